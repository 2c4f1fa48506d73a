package forecast

import (
	"errors"
	"fmt"
	"time"
)

// dateLayout is the only accepted wire format for request dates. The
// trained model was fit on month/dayofweek/year columns derived from
// dates in this format, so nothing looser is accepted.
const dateLayout = "2006-01-02"

var (
	ErrDateMissing  = errors.New("request must contain 'date' field")
	ErrDateFormat   = errors.New("date must be in format 'YYYY-MM-DD'")
	ErrStoreMissing = errors.New("request must contain 'store' field")
	ErrItemMissing  = errors.New("request must contain 'item' field")
)

// PredictionRequest is one forecast query as decoded from the request
// body. Fields are pointers so that absent JSON keys are distinguishable
// from zero values during validation.
type PredictionRequest struct {
	Date  *string `json:"date"`
	Store *int    `json:"store"`
	Item  *int    `json:"item"`
}

// PredictionResponse carries the model output for one query, rounded to
// the nearest integer.
type PredictionResponse struct {
	Sales int `json:"sales"`
}

// FeatureRecord is the flat row consumed by the scoring model. It is
// entirely determined by the request it was derived from.
type FeatureRecord struct {
	Store     int `json:"store"`
	Item      int `json:"item"`
	Month     int `json:"month"`
	DayOfWeek int `json:"dayofweek"`
	Year      int `json:"year"`
}

// Validate checks that all required fields are present.
func (r PredictionRequest) Validate() error {
	if r.Date == nil {
		return ErrDateMissing
	}
	if r.Store == nil {
		return ErrStoreMissing
	}
	if r.Item == nil {
		return ErrItemMissing
	}
	return nil
}

// DeriveFeatures converts a raw request into the feature row the model
// was trained on. Day-of-week uses the Monday=0..Sunday=6 convention;
// this must match the training pipeline exactly.
func DeriveFeatures(req PredictionRequest) (FeatureRecord, error) {
	if err := req.Validate(); err != nil {
		return FeatureRecord{}, err
	}

	parsed, err := time.Parse(dateLayout, *req.Date)
	if err != nil {
		return FeatureRecord{}, fmt.Errorf("%w: %q", ErrDateFormat, *req.Date)
	}
	// time.Parse normalizes some near-miss inputs; a round-trip check
	// rejects anything that is not the canonical form.
	if parsed.Format(dateLayout) != *req.Date {
		return FeatureRecord{}, fmt.Errorf("%w: %q", ErrDateFormat, *req.Date)
	}

	return FeatureRecord{
		Store:     *req.Store,
		Item:      *req.Item,
		Month:     int(parsed.Month()),
		DayOfWeek: mondayIndexed(parsed.Weekday()),
		Year:      parsed.Year(),
	}, nil
}

// mondayIndexed maps Go's Sunday=0 weekday onto the Monday=0..Sunday=6
// numbering used as a model feature.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
