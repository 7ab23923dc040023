// Package client calls a running loan prediction server over its JSON API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loan-predictor/internal/common"
	"loan-predictor/internal/features"
	"loan-predictor/internal/ml"
	"loan-predictor/internal/web"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

// New creates a client for the server at base. A non-positive timeout
// falls back to 5 seconds.
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict scores rec on the server. Rejected input is returned as a
// *features.InvalidInputError and a server without models as an error
// matching ml.ErrModelUnavailable.
func (c *Client) Predict(ctx context.Context, rec features.ApplicantRecord, requestID string) (*web.PredictResponse, error) {
	var (
		result  web.PredictResponse
		failure web.ErrorResponse
	)
	req := c.rest.R().
		SetContext(ctx).
		SetBody(rec).
		SetResult(&result).
		SetError(&failure)
	if requestID != "" {
		req.SetHeader(common.HeaderRequestID, requestID)
	}

	resp, err := req.Post(c.base + "/api/v1/predict")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &result, nil
	case http.StatusBadRequest:
		return nil, &features.InvalidInputError{Field: failure.Field, Message: failure.Message}
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("server %s: %w", c.base, ml.ErrModelUnavailable)
	}
	return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
}

// Health fetches the server health report. A degraded server answers 503
// with a body, so the report is returned alongside a nil error either way.
func (c *Client) Health(ctx context.Context) (*web.HealthResponse, error) {
	var health web.HealthResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&health).
		SetError(&health).
		Get(c.base + "/health")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode())
	}
	return &health, nil
}

// ModelInfo fetches the loaded model descriptions and load history.
func (c *Client) ModelInfo(ctx context.Context) (*web.ModelInfoResponse, error) {
	var info web.ModelInfoResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&info).
		Get(c.base + "/model/info")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode())
	}
	return &info, nil
}
