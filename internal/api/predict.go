package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"sales-forecast-api/internal/forecast"
	"sales-forecast-api/internal/ml"
)

// handlePredict accepts either a single PredictionRequest object or an
// array of them, and mirrors the input shape in the response: object in,
// object out; array in, array out, same length and order.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "request body must not be empty")
		return
	}

	if trimmed[0] == '[' {
		s.predictBatch(w, r, body)
		return
	}
	s.predictOne(w, r, body)
}

func (s *Server) predictOne(w http.ResponseWriter, r *http.Request, body []byte) {
	var req forecast.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, decodeDetail(err))
		return
	}

	resp, err := s.svc.PredictOne(r.Context(), req)
	if err != nil {
		writePredictError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) predictBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	var reqs []forecast.PredictionRequest
	if err := json.Unmarshal(body, &reqs); err != nil {
		writeError(w, http.StatusUnprocessableEntity, decodeDetail(err))
		return
	}

	resps, err := s.svc.PredictBatch(r.Context(), reqs)
	if err != nil {
		writePredictError(w, err)
		return
	}
	if resps == nil {
		resps = []forecast.PredictionResponse{}
	}

	writeJSON(w, http.StatusOK, resps)
}

// writePredictError translates pipeline errors into HTTP statuses:
// readiness -> 503, validation -> 422, scoring or anything else -> 500.
func writePredictError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forecast.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "Model not loaded yet. Please try again later.")
	case errors.Is(err, forecast.ErrDateMissing),
		errors.Is(err, forecast.ErrDateFormat),
		errors.Is(err, forecast.ErrStoreMissing),
		errors.Is(err, forecast.ErrItemMissing):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ml.ErrScoring):
		log.Error().Err(err).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, "prediction failed")
	default:
		log.Error().Err(err).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeDetail keeps JSON type errors informative without leaking Go
// type names for every decode failure.
func decodeDetail(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return "invalid type for field '" + typeErr.Field + "'"
	}
	return "invalid JSON in request body"
}
