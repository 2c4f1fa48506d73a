package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"sales-forecast-api/internal/audit"
)

// Capture is the audit middleware wrapped around every route. Each
// request moves through a fixed sequence of stages: the inbound body is
// fully materialized and replaced with a replayable reader, the handler
// runs against a buffering response writer, the buffered response is
// flushed to the client, and finally both byte buffers are handed to
// the audit logger. The last stage is terminal regardless of the audit
// outcome.
func Capture(logger *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Received -> InboundCaptured. The body stream can only be
			// consumed once, so buffer it and hand the handler a replay.
			reqBody, err := io.ReadAll(r.Body)
			if err != nil {
				// Transport aborted mid-read; skip the remaining stages.
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("request body read aborted")
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			// InboundCaptured -> Processed.
			buf := newResponseBuffer(w)
			next.ServeHTTP(buf, r)

			// Processed -> OutboundCaptured: materialize the response
			// and forward it to the real transport.
			buf.flush()

			// OutboundCaptured -> Completed. The audit write must not
			// be cancelled by a client that has already disconnected.
			logger.Capture(context.WithoutCancel(r.Context()), reqBody, buf.body.Bytes())
		})
	}
}

// responseBuffer materializes the outgoing response so its bytes can be
// audited after the handler returns. Nothing reaches the client until
// flush.
type responseBuffer struct {
	underlying  http.ResponseWriter
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newResponseBuffer(w http.ResponseWriter) *responseBuffer {
	return &responseBuffer{underlying: w, status: http.StatusOK}
}

func (b *responseBuffer) Header() http.Header {
	return b.underlying.Header()
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *responseBuffer) flush() {
	b.underlying.WriteHeader(b.status)
	if b.body.Len() > 0 {
		if _, err := b.underlying.Write(b.body.Bytes()); err != nil {
			log.Warn().Err(err).Msg("response write failed, client likely disconnected")
		}
	}
}
