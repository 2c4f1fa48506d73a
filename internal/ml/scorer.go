package ml

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sales-forecast-api/internal/forecast"
	"sales-forecast-api/internal/metrics"
)

// ErrModelNotLoaded is re-exported from the forecast package so callers
// holding a *Scorer can match it without importing both packages.
var ErrModelNotLoaded = forecast.ErrModelNotLoaded

// ErrScoring wraps failures of the underlying scoring call. These are
// treated as internal errors and not retried.
var ErrScoring = errors.New("scoring failed")

// Scorer owns the loaded model and gates all scoring behind an explicit
// readiness check. It is constructed once at process start and shared
// by all requests; scoring is a stateless read against the immutable
// artifact, so no per-request locking is needed beyond the readiness
// flag itself.
type Scorer struct {
	mu      sync.RWMutex
	booster Booster
	obs     metrics.ScoringObserver
}

// NewScorer returns a Scorer with no model attached. obs may be nil.
func NewScorer(obs metrics.ScoringObserver) *Scorer {
	return &Scorer{obs: obs}
}

// Attach installs the loaded booster and flips the readiness gate.
func (s *Scorer) Attach(b Booster) {
	s.mu.Lock()
	s.booster = b
	s.mu.Unlock()
	if s.obs != nil {
		s.obs.ReadySet(b != nil)
	}
}

// Ready reports whether the model artifact has finished loading.
func (s *Scorer) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.booster != nil
}

// Score runs one batched model invocation. The result has exactly one
// prediction per input record, positionally aligned: out[i] corresponds
// to records[i].
func (s *Scorer) Score(ctx context.Context, records []forecast.FeatureRecord) ([]float64, error) {
	s.mu.RLock()
	booster := s.booster
	s.mu.RUnlock()

	if booster == nil {
		return nil, ErrModelNotLoaded
	}

	start := time.Now()
	preds, err := booster.PredictBatch(ctx, records)
	if s.obs != nil {
		s.obs.LatencyObserve(time.Since(start).Seconds())
		s.obs.BatchObserve(len(records))
	}
	if err != nil {
		if s.obs != nil {
			s.obs.FailuresInc()
		}
		return nil, fmt.Errorf("%w: %v", ErrScoring, err)
	}
	if len(preds) != len(records) {
		if s.obs != nil {
			s.obs.FailuresInc()
		}
		return nil, fmt.Errorf("%w: batch size mismatch, %d in %d out", ErrScoring, len(records), len(preds))
	}

	if s.obs != nil {
		s.obs.PredictionsInc(len(preds))
		for _, p := range preds {
			s.obs.ValueObserve(p)
		}
	}

	return preds, nil
}
