package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	EndpointPredict = "/api/predict"
	EndpointHealth  = "/health"
)

// Outcomes reported to an Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeHTTPError   = "http_error"
	OutcomeUnreachable = "unreachable"
	OutcomeInvalid     = "invalid_response"
)

// Observer receives per-call measurements. metrics.Recorder implements it.
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
	ObservePrediction(label Label, confidence float64)
}

// Client talks to the Veil classification API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (which has no timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Predict sends emailText for classification. It issues exactly one request
// and never retries. Callers validate the text beforehand.
func (c *Client) Predict(ctx context.Context, emailText string) (*PredictionResponse, error) {
	start := time.Now()

	body, err := json.Marshal(PredictionRequest{EmailText: emailText})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointPredict, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(EndpointPredict, OutcomeUnreachable, start)
		c.logger.Warn("predict request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, &RequestError{Message: UnreachableMessage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(EndpointPredict, OutcomeHTTPError, start)
		msg := detailMessage(resp.Body)
		c.logger.Warn("predict returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", msg))
		return nil, &RequestError{Status: resp.StatusCode, Message: msg}
	}

	var result PredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.observe(EndpointPredict, OutcomeInvalid, start)
		return nil, &ParseError{Reason: "malformed JSON", Err: err}
	}
	if !result.Prediction.Valid() {
		c.observe(EndpointPredict, OutcomeInvalid, start)
		return nil, &ParseError{Reason: fmt.Sprintf("unknown prediction %q", result.Prediction)}
	}

	c.observe(EndpointPredict, OutcomeSuccess, start)
	if c.observer != nil {
		c.observer.ObservePrediction(result.Prediction, result.Confidence)
	}
	c.logger.Debug("prediction received",
		zap.String("prediction", string(result.Prediction)),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("elapsed", time.Since(start)))

	return &result, nil
}

// CheckHealth probes the API liveness endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+EndpointHealth, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(EndpointHealth, OutcomeUnreachable, start)
		return nil, &RequestError{Message: HealthFailureMessage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(EndpointHealth, OutcomeHTTPError, start)
		return nil, &RequestError{Status: resp.StatusCode, Message: HealthFailureMessage}
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.observe(EndpointHealth, OutcomeInvalid, start)
		return nil, &ParseError{Reason: "malformed health JSON", Err: err}
	}

	c.observe(EndpointHealth, OutcomeSuccess, start)
	return &result, nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, outcome, time.Since(start))
	}
}

// detailMessage extracts {"detail": "..."} from an error body, falling back
// to FallbackPredictMessage when the body is unreadable or has no detail.
func detailMessage(body io.Reader) string {
	raw, err := io.ReadAll(body)
	if err != nil {
		return FallbackPredictMessage
	}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Detail == "" {
		return FallbackPredictMessage
	}
	return er.Detail
}
