// Package intake submits completed conversations to the intake endpoint that
// creates the server-side tracking counterpart.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/util"
)

// DefaultTimeout bounds one submission round trip.
const DefaultTimeout = 15 * time.Second

// Opts holds configuration options for the intake client.
type Opts struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Option defines a configuration option for the intake client.
type Option func(*Opts)

// WithEndpoint sets the submission URL.
func WithEndpoint(url string) Option {
	return func(o *Opts) { o.Endpoint = url }
}

// WithAPIKey sets the bearer token sent with each submission.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the intake-submission endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an intake client for the given endpoint.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("intake endpoint not set")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("intake.NewClient: client configured", "endpoint", cfg.Endpoint, "apiKey_set", cfg.APIKey != "")
	return &Client{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, httpClient: cfg.HTTPClient}, nil
}

// errorBody is the endpoint's failure payload.
type errorBody struct {
	Error string `json:"error"`
}

// Submit posts the intake payload. On failure it returns an error whose text
// is safe to show the user; progression halts at the pre-submit step until a
// retry succeeds.
func (c *Client) Submit(ctx context.Context, req models.IntakeRequest) (models.IntakeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.IntakeResult{}, fmt.Errorf("failed to marshal intake request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.IntakeResult{}, fmt.Errorf("failed to build intake request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Correlates retried submissions on the endpoint side.
	httpReq.Header.Set("X-Request-ID", util.GenerateRandomID("req_", 32))
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("intake.Submit: request failed", "error", err, "product", req.ProductName)
		return models.IntakeResult{}, fmt.Errorf("intake submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		slog.Error("intake.Submit: endpoint rejected submission", "status", resp.StatusCode, "message", eb.Error, "product", req.ProductName)
		if eb.Error != "" {
			return models.IntakeResult{}, fmt.Errorf("%w: %s", models.ErrIntakeRejected, eb.Error)
		}
		return models.IntakeResult{}, fmt.Errorf("%w: status %d", models.ErrIntakeRejected, resp.StatusCode)
	}

	var result models.IntakeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Error("intake.Submit: malformed success body", "error", err)
		return models.IntakeResult{}, fmt.Errorf("failed to decode intake response: %w", err)
	}
	slog.Info("intake.Submit: submission accepted", "trackingID", result.TrackingID, "product", req.ProductName)
	return result, nil
}
