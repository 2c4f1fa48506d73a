// Package storage provides an optional local history of served
// predictions, kept in BoltDB. Each record pairs the derived feature
// row with the returned sales figure, so the history can be exported
// later as labeled data for model retraining.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"sales-forecast-api/internal/forecast"
)

const predictionsBucket = "predictions"

// PredictionRecord is one served prediction with the features it was
// derived from.
type PredictionRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Features  forecast.FeatureRecord `json:"features"`
	Sales     int                    `json:"sales"`
}

// Store keeps prediction history in a local BoltDB file.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "prediction-history.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create predictions bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores one prediction. Keys are nanosecond timestamps with a
// store/item suffix so range scans stay time-ordered and keys from
// concurrent requests cannot collide silently.
func (s *Store) Record(rec PredictionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction record: %w", err)
		}

		key := fmt.Sprintf("%020d_%d_%d", rec.Timestamp.UnixNano(), rec.Features.Store, rec.Features.Item)
		return b.Put([]byte(key), data)
	})
}

// RecordServed implements forecast.Recorder.
func (s *Store) RecordServed(features forecast.FeatureRecord, sales int, at time.Time) error {
	return s.Record(PredictionRecord{Timestamp: at, Features: features, Sales: sales})
}

// Range returns all records with timestamps in [start, end], oldest
// first.
func (s *Store) Range(start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%020d", end.UnixNano()+1))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) < 0; k, v = c.Next() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}
