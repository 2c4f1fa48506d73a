package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sales-forecast-api/internal/forecast"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	dbPath := filepath.Join(tempDir, "prediction-history.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New("/nonexistent/path"); err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
}

func TestRecordAndRange(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Now().UTC()
	records := []PredictionRecord{
		{Timestamp: base.Add(-2 * time.Hour), Features: forecast.FeatureRecord{Store: 1, Item: 5, Month: 10, DayOfWeek: 0, Year: 2023}, Sales: 13},
		{Timestamp: base.Add(-1 * time.Hour), Features: forecast.FeatureRecord{Store: 2, Item: 7, Month: 10, DayOfWeek: 1, Year: 2023}, Sales: 21},
		{Timestamp: base, Features: forecast.FeatureRecord{Store: 3, Item: 9, Month: 10, DayOfWeek: 2, Year: 2023}, Sales: 8},
	}
	for _, rec := range records {
		if err := store.Record(rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// Full range, oldest first.
	got, err := store.Range(base.Add(-3*time.Hour), base)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Sales != 13 || got[2].Sales != 8 {
		t.Errorf("records out of order: %+v", got)
	}

	// Narrow range.
	got, err = store.Range(base.Add(-90*time.Minute), base.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != 1 || got[0].Sales != 21 {
		t.Errorf("narrow range = %+v, want the middle record", got)
	}
}

func TestRecordServed(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	features := forecast.FeatureRecord{Store: 1, Item: 5, Month: 10, DayOfWeek: 0, Year: 2023}
	at := time.Now().UTC()
	if err := store.RecordServed(features, 13, at); err != nil {
		t.Fatalf("RecordServed failed: %v", err)
	}

	got, err := store.Range(at.Add(-time.Minute), at.Add(time.Minute))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Features != features || got[0].Sales != 13 {
		t.Errorf("stored record = %+v", got[0])
	}
}
