// Package ml wraps the trained LightGBM sales model. The model artifact
// is treated as an opaque scoring function: rows of derived features go
// in, one real-valued sales estimate per row comes out, in order.
//
// Scoring runs through a small Python bridge process, since the artifact
// is a LightGBM booster file produced by the training pipeline. The
// bridge is invoked per scoring call with a bounded timeout.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sales-forecast-api/internal/forecast"
)

// Booster is the loaded model artifact. PredictBatch returns exactly one
// prediction per input row, positionally aligned.
type Booster interface {
	PredictBatch(ctx context.Context, rows []forecast.FeatureRecord) ([]float64, error)
}

// LightGBMBooster scores feature rows by piping them through a Python
// LightGBM process.
type LightGBMBooster struct {
	modelPath  string
	pythonPath string
	scriptPath string
	timeout    time.Duration
}

type bridgeRequest struct {
	Rows []forecast.FeatureRecord `json:"rows"`
}

type bridgeResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

// LoadBooster loads the model artifact at path and verifies it scores a
// probe row end to end. pythonPath may be empty, in which case a suitable
// interpreter is located on PATH.
func LoadBooster(path, pythonPath string, timeout time.Duration) (*LightGBMBooster, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact not accessible: %w", err)
	}

	if pythonPath == "" {
		var err error
		pythonPath, err = findPython()
		if err != nil {
			return nil, err
		}
	}

	scriptPath := filepath.Join(filepath.Dir(path), "lgbm_inference.py")
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		if err := writeInferenceScript(scriptPath); err != nil {
			return nil, fmt.Errorf("failed to create inference script: %w", err)
		}
	}

	b := &LightGBMBooster{
		modelPath:  path,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
		timeout:    timeout,
	}

	// Probe the full bridge once so a broken artifact fails at load
	// time instead of on the first request.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	probe := []forecast.FeatureRecord{{Store: 1, Item: 1, Month: 1, DayOfWeek: 0, Year: 2023}}
	if _, err := b.PredictBatch(ctx, probe); err != nil {
		return nil, fmt.Errorf("model health check failed: %w", err)
	}

	log.Info().Str("model_path", path).Msg("LightGBM model loaded successfully")
	return b, nil
}

// PredictBatch implements Booster.
func (b *LightGBMBooster) PredictBatch(ctx context.Context, rows []forecast.FeatureRecord) ([]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty feature batch")
	}

	reqJSON, err := json.Marshal(bridgeRequest{Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bridge request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.pythonPath, b.scriptPath, b.modelPath)
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("scoring timeout after %v", b.timeout)
		}
		log.Error().
			Err(err).
			Str("model_path", b.modelPath).
			Str("stderr", stderr.String()).
			Int("rows", len(rows)).
			Msg("scoring bridge execution failed")
		return nil, fmt.Errorf("scoring bridge failed: %w, stderr: %s", err, stderr.String())
	}

	var resp bridgeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bridge response: %w, stdout: %s", err, stdout.String())
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("scoring bridge error: %s", resp.Error)
	}
	if len(resp.Predictions) != len(rows) {
		return nil, fmt.Errorf("expected %d predictions, got %d", len(rows), len(resp.Predictions))
	}

	return resp.Predictions, nil
}

func findPython() (string, error) {
	// Prefer the active virtual environment if one is set.
	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates := []string{
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				if hasLightGBM(candidate) {
					log.Info().Str("python_path", candidate).Msg("Using virtual environment Python")
					return candidate, nil
				}
			}
		}
	}

	for _, candidate := range []string{"python3", "python"} {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		if hasLightGBM(path) {
			log.Info().Str("python_path", path).Msg("Using system Python")
			return path, nil
		}
	}

	return "", fmt.Errorf("no Python 3 with lightgbm found; install lightgbm or set PYTHON_PATH")
}

func hasLightGBM(pythonPath string) bool {
	cmd := exec.Command(pythonPath, "-c", "import sys, lightgbm; print('Python', sys.version)")
	output, err := cmd.Output()
	return err == nil && strings.Contains(string(output), "Python 3")
}

func writeInferenceScript(scriptPath string) error {
	script := `#!/usr/bin/env python3
"""LightGBM batch scoring bridge for the sales forecast API."""
import sys
import json

try:
    import lightgbm as lgb
    import pandas as pd
except ImportError as e:
    print(json.dumps({"error": f"missing dependency: {e}"}))
    sys.exit(1)

FEATURE_COLUMNS = ["store", "item", "month", "dayofweek", "year"]


def main():
    if len(sys.argv) != 2:
        print(json.dumps({"error": "usage: lgbm_inference.py <model_path>"}))
        sys.exit(1)

    try:
        request = json.load(sys.stdin)
        frame = pd.DataFrame(request["rows"], columns=FEATURE_COLUMNS)
        booster = lgb.Booster(model_file=sys.argv[1])
        preds = booster.predict(frame)
        print(json.dumps({"predictions": [float(p) for p in preds]}))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`

	return os.WriteFile(scriptPath, []byte(script), 0o755)
}
