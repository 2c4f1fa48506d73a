// Package forecast implements the prediction pipeline: request
// validation, calendar feature derivation, batched scoring, and
// response shaping.
package forecast

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrModelNotLoaded signals that the scoring model has not finished
// loading. It is surfaced to callers as a service-unavailable condition.
var ErrModelNotLoaded = errors.New("model not loaded yet")

// Scorer is the loaded model as seen by the service: a readiness query
// plus one batched, order-preserving scoring call.
type Scorer interface {
	Ready() bool
	Score(ctx context.Context, records []FeatureRecord) ([]float64, error)
}

// Recorder receives served predictions for the retraining history.
// Recording is best-effort and runs off the request path.
type Recorder interface {
	RecordServed(features FeatureRecord, sales int, at time.Time) error
}

// Service orchestrates validation, feature derivation, scoring and
// response shaping for single and batched requests.
type Service struct {
	scorer   Scorer
	recorder Recorder
}

// NewService returns a Service backed by the given scorer. recorder may
// be nil, in which case no prediction history is kept.
func NewService(scorer Scorer, recorder Recorder) *Service {
	return &Service{scorer: scorer, recorder: recorder}
}

// PredictOne scores a single request with a batch of size one.
func (s *Service) PredictOne(ctx context.Context, req PredictionRequest) (PredictionResponse, error) {
	out, err := s.PredictBatch(ctx, []PredictionRequest{req})
	if err != nil {
		return PredictionResponse{}, err
	}
	return out[0], nil
}

// PredictBatch scores a batch of requests in one model invocation. The
// result preserves input order and length. A derivation error on any
// element fails the whole batch; partial success is deliberately not
// offered, since callers could not tell which rows were dropped.
func (s *Service) PredictBatch(ctx context.Context, reqs []PredictionRequest) ([]PredictionResponse, error) {
	// Readiness is checked before any feature work so a cold process
	// fails fast with a clear retry-later condition.
	if !s.scorer.Ready() {
		return nil, ErrModelNotLoaded
	}

	if len(reqs) == 0 {
		return []PredictionResponse{}, nil
	}

	records := make([]FeatureRecord, len(reqs))
	for i, req := range reqs {
		rec, err := DeriveFeatures(req)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	preds, err := s.scorer.Score(ctx, records)
	if err != nil {
		return nil, err
	}

	responses := make([]PredictionResponse, len(preds))
	for i, p := range preds {
		responses[i] = PredictionResponse{Sales: int(math.Round(p))}
	}

	if s.recorder != nil {
		now := time.Now().UTC()
		go func() {
			for i, resp := range responses {
				if err := s.recorder.RecordServed(records[i], resp.Sales, now); err != nil {
					log.Debug().Err(err).Msg("prediction history write failed")
					return
				}
			}
		}()
	}

	return responses, nil
}
