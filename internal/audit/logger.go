package audit

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// decodeFailureSentinel replaces payloads that cannot be decoded as
// text, so the entry is still written with whatever is salvageable.
const decodeFailureSentinel = "<unable to decode>"

// Inserter is the slice of Store the logger needs; tests inject
// failing implementations through it.
type Inserter interface {
	Insert(ctx context.Context, entry Entry) error
}

// FailureCounter records discarded audit writes for operator visibility.
type FailureCounter interface {
	AuditFailureInc()
}

// Logger captures raw request/response byte pairs into the audit store.
// Capture deliberately has no error result: the write either succeeds
// or is logged and discarded, and must never fail the request that
// produced it.
type Logger struct {
	store    Inserter
	failures FailureCounter
}

// NewLogger returns a Logger writing to store. failures may be nil.
func NewLogger(store Inserter, failures FailureCounter) *Logger {
	return &Logger{store: store, failures: failures}
}

// Capture appends one entry for a request/response pair. Undecodable
// payloads are replaced by a sentinel rather than aborting the write.
func (l *Logger) Capture(ctx context.Context, requestBody, responseBody []byte) {
	entry := Entry{
		RequestData:  decodeText(requestBody),
		ResponseData: decodeText(responseBody),
		Timestamp:    time.Now().UTC(),
	}

	if err := l.store.Insert(ctx, entry); err != nil {
		log.Error().Err(err).Msg("audit log write failed, entry discarded")
		if l.failures != nil {
			l.failures.AuditFailureInc()
		}
	}
}

func decodeText(b []byte) string {
	if !utf8.Valid(b) {
		return decodeFailureSentinel
	}
	return string(b)
}
