package audit

import (
	"context"
	"errors"
	"testing"
)

type recordingInserter struct {
	entries []Entry
	err     error
}

func (r *recordingInserter) Insert(_ context.Context, entry Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

type countingFailures struct {
	n int
}

func (c *countingFailures) AuditFailureInc() { c.n++ }

func TestLogger_CapturesBothPayloads(t *testing.T) {
	ins := &recordingInserter{}
	logger := NewLogger(ins, nil)

	logger.Capture(context.Background(), []byte(`{"date":"2023-10-02"}`), []byte(`{"sales":13}`))

	if len(ins.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(ins.entries))
	}
	e := ins.entries[0]
	if e.RequestData != `{"date":"2023-10-02"}` {
		t.Errorf("RequestData = %q", e.RequestData)
	}
	if e.ResponseData != `{"sales":13}` {
		t.Errorf("ResponseData = %q", e.ResponseData)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestLogger_SentinelForUndecodablePayload(t *testing.T) {
	ins := &recordingInserter{}
	logger := NewLogger(ins, nil)

	invalid := []byte{0xff, 0xfe, 0xfd}
	logger.Capture(context.Background(), invalid, []byte("ok"))

	if len(ins.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(ins.entries))
	}
	if ins.entries[0].RequestData != decodeFailureSentinel {
		t.Errorf("RequestData = %q, want sentinel", ins.entries[0].RequestData)
	}
	if ins.entries[0].ResponseData != "ok" {
		t.Errorf("ResponseData = %q, want %q", ins.entries[0].ResponseData, "ok")
	}
}

func TestLogger_SwallowsStoreFailure(t *testing.T) {
	ins := &recordingInserter{err: errors.New("database is gone")}
	failures := &countingFailures{}
	logger := NewLogger(ins, failures)

	// Must not panic and must not propagate anything.
	logger.Capture(context.Background(), []byte("req"), []byte("resp"))

	if failures.n != 1 {
		t.Errorf("failure counter = %d, want 1", failures.n)
	}
}
