package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-forecast-api/internal/audit"
	"sales-forecast-api/internal/forecast"
)

// stubScorer implements forecast.Scorer for handler tests.
type stubScorer struct {
	ready bool
	preds []float64
	panic bool
	calls int
}

func (s *stubScorer) Ready() bool { return s.ready }

func (s *stubScorer) Score(_ context.Context, records []forecast.FeatureRecord) ([]float64, error) {
	s.calls++
	if s.panic {
		panic("scorer exploded")
	}
	if s.preds != nil {
		return s.preds, nil
	}
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Store*100 + r.Item)
	}
	return out, nil
}

type memoryInserter struct {
	entries []audit.Entry
	err     error
}

func (m *memoryInserter) Insert(_ context.Context, entry audit.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func newTestRouter(scorer forecast.Scorer, ins audit.Inserter) http.Handler {
	svc := forecast.NewService(scorer, nil)
	server := NewServer(svc, nil)
	return server.Router(audit.NewLogger(ins, nil))
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubScorer{ready: true}, &memoryInserter{})

	rec := doRequest(t, router, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "Model API is running"}`, rec.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(&stubScorer{ready: true}, &memoryInserter{})

	rec := doRequest(t, router, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestPredict_Single(t *testing.T) {
	router := newTestRouter(&stubScorer{ready: true, preds: []float64{12.6}}, &memoryInserter{})

	rec := doRequest(t, router, http.MethodPost, "/predict", `{"date":"2023-10-02","store":1,"item":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	// Single object in, bare object out.
	assert.JSONEq(t, `{"sales": 13}`, rec.Body.String())
	assert.False(t, strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "["))
}

func TestPredict_Batch(t *testing.T) {
	scorer := &stubScorer{ready: true}
	router := newTestRouter(scorer, &memoryInserter{})

	body := `[
		{"date":"2023-10-02","store":1,"item":5},
		{"date":"2023-10-03","store":2,"item":7}
	]`
	rec := doRequest(t, router, http.MethodPost, "/predict", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resps []forecast.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resps))
	require.Len(t, resps, 2)
	assert.Equal(t, 105, resps[0].Sales)
	assert.Equal(t, 207, resps[1].Sales)
	assert.Equal(t, 1, scorer.calls, "batch must be one scoring call")
}

func TestPredict_SingleElementArrayStaysArray(t *testing.T) {
	router := newTestRouter(&stubScorer{ready: true, preds: []float64{12.6}}, &memoryInserter{})

	rec := doRequest(t, router, http.MethodPost, "/predict", `[{"date":"2023-10-02","store":1,"item":5}]`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"sales": 13}]`, rec.Body.String())
}

func TestPredict_EmptyArray(t *testing.T) {
	router := newTestRouter(&stubScorer{ready: true}, &memoryInserter{})

	rec := doRequest(t, router, http.MethodPost, "/predict", `[]`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPredict_ModelNotLoaded(t *testing.T) {
	scorer := &stubScorer{ready: false}
	router := newTestRouter(scorer, &memoryInserter{})

	rec := doRequest(t, router, http.MethodPost, "/predict", `{"date":"2023-10-02","store":1,"item":5}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Model not loaded yet")
	assert.Zero(t, scorer.calls, "no scoring may happen before the model is ready")
}

func TestPredict_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing item", `{"date":"2023-10-02","store":1}`},
		{"missing date", `{"store":1,"item":5}`},
		{"bad date format", `{"date":"10/02/2023","store":1,"item":5}`},
		{"month out of range", `{"date":"2023-13-01","store":1,"item":5}`},
		{"day out of range", `{"date":"2023-02-30","store":1,"item":5}`},
		{"wrong date type", `{"date":5,"store":1,"item":5}`},
		{"wrong store type", `{"date":"2023-10-02","store":"one","item":5}`},
		{"malformed json", `{"date":`},
		{"empty body", ``},
		{"bad element in batch", `[{"date":"2023-10-02","store":1,"item":5},{"date":"nope","store":1,"item":5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &stubScorer{ready: true}
			router := newTestRouter(scorer, &memoryInserter{})

			rec := doRequest(t, router, http.MethodPost, "/predict", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "body: %s", rec.Body.String())
			assert.Zero(t, scorer.calls)
		})
	}
}

func TestPredict_ScoringPanicBecomes500(t *testing.T) {
	router := newTestRouter(&stubScorer{ready: true, panic: true}, &memoryInserter{})

	rec := doRequest(t, router, http.MethodPost, "/predict", `{"date":"2023-10-02","store":1,"item":5}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAudit_EntryPerRequest(t *testing.T) {
	ins := &memoryInserter{}
	router := newTestRouter(&stubScorer{ready: true, preds: []float64{12.6}}, ins)

	reqBody := `{"date":"2023-10-02","store":1,"item":5}`
	rec := doRequest(t, router, http.MethodPost, "/predict", reqBody)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ins.entries, 1)
	assert.Equal(t, reqBody, ins.entries[0].RequestData)
	assert.JSONEq(t, `{"sales": 13}`, ins.entries[0].ResponseData)
}

func TestAudit_ErrorResponsesAreCaptured(t *testing.T) {
	ins := &memoryInserter{}
	router := newTestRouter(&stubScorer{ready: false}, ins)

	rec := doRequest(t, router, http.MethodPost, "/predict", `{"date":"2023-10-02","store":1,"item":5}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.Len(t, ins.entries, 1)
	assert.Contains(t, ins.entries[0].ResponseData, "Model not loaded yet")
}

func TestAudit_FailureInvisibleToCaller(t *testing.T) {
	ins := &memoryInserter{err: assert.AnError}
	router := newTestRouter(&stubScorer{ready: true, preds: []float64{12.6}}, ins)

	rec := doRequest(t, router, http.MethodPost, "/predict", `{"date":"2023-10-02","store":1,"item":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sales": 13}`, rec.Body.String())
}

func TestAudit_SqliteEndToEnd(t *testing.T) {
	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()

	router := newTestRouter(&stubScorer{ready: true, preds: []float64{12.6}}, store)

	rec := doRequest(t, router, http.MethodPost, "/predict", `{"date":"2023-10-02","store":1,"item":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `{"date":"2023-10-02","store":1,"item":5}`, entries[0].RequestData)
	assert.JSONEq(t, `{"sales": 13}`, entries[0].ResponseData)
}
