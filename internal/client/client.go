// Package client is a small Go client for the sales forecast API, used
// by the salesctl tool and available to other services.
package client

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"sales-forecast-api/internal/forecast"
)

type Client struct {
	base string
	rest *resty.Client
}

type errorBody struct {
	Detail string `json:"detail"`
}

// New returns a client for the API at base (e.g. http://localhost:8000).
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

// Health calls GET / and returns the reported status string.
func (c *Client) Health() (string, error) {
	var body struct {
		Status string `json:"status"`
	}
	resp, err := c.rest.R().
		SetResult(&body).
		Get(c.base + "/")
	if err != nil {
		return "", fmt.Errorf("health request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("health check: status %d", resp.StatusCode())
	}
	return body.Status, nil
}

// Predict scores a single request.
func (c *Client) Predict(req forecast.PredictionRequest) (forecast.PredictionResponse, error) {
	var (
		result forecast.PredictionResponse
		apiErr errorBody
	)
	resp, err := c.rest.R().
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.base + "/predict")
	if err != nil {
		return forecast.PredictionResponse{}, fmt.Errorf("predict request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return forecast.PredictionResponse{}, fmt.Errorf("predict: status %d: %s", resp.StatusCode(), apiErr.Detail)
	}
	return result, nil
}

// PredictBatch scores a batch of requests in one call. The response
// preserves input order and length.
func (c *Client) PredictBatch(reqs []forecast.PredictionRequest) ([]forecast.PredictionResponse, error) {
	var (
		results []forecast.PredictionResponse
		apiErr  errorBody
	)
	resp, err := c.rest.R().
		SetBody(reqs).
		SetResult(&results).
		SetError(&apiErr).
		Post(c.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("predict: status %d: %s", resp.StatusCode(), apiErr.Detail)
	}
	return results, nil
}
