// Package assistant provides the HTTP client for the hospital assistant
// classification backend. The backend receives the raw user utterance and
// returns the structured chat response the orchestrator consumes.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Default client configuration
const (
	// DefaultBaseURL points at a locally running assistant backend.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single chat request.
	DefaultTimeout = 30 * time.Second

	chatPath = "/api/v1/public/chat"
)

// Opts holds optional configuration for the assistant client.
type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option configures Opts.
type Option func(*Opts)

// WithBaseURL sets the assistant backend base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient sets the underlying HTTP client, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Location describes where the user currently is inside the facility.
type Location struct {
	Building    string      `json:"building,omitempty"`
	Floor       string      `json:"floor,omitempty"`
	Room        string      `json:"room,omitempty"`
	Name        string      `json:"name,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// Coordinates are facility-map coordinates.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RequestContext carries the situational fields the backend uses for
// classification.
type RequestContext struct {
	Location        string    `json:"location,omitempty"`
	UserAge         int       `json:"user_age,omitempty"`
	CurrentLocation *Location `json:"current_location,omitempty"`
}

// ChatRequest is the wire format of a chat call.
type ChatRequest struct {
	Context   RequestContext `json:"context"`
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
}

// Client talks to the assistant backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an assistant client based on provided options.
func NewClient(opts ...Option) *Client {
	cfg := Opts{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	slog.Debug("Assistant.NewClient: client created", "baseURL", cfg.BaseURL, "timeout", cfg.Timeout)
	return &Client{baseURL: cfg.BaseURL, http: httpClient}
}

// Chat sends the user utterance to the backend and returns the decoded
// response. The raw JSON decoding is tolerant of shape drift; callers only
// rely on the fields they understand.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug("Assistant.Chat: sending request", "sessionID", req.SessionID, "messageLen", len(req.Message))
	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("Assistant.Chat: request failed", "error", err, "sessionID", req.SessionID)
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Assistant.Chat: non-OK status", "status", resp.StatusCode, "sessionID", req.SessionID)
		return nil, fmt.Errorf("chat backend returned status %d", resp.StatusCode)
	}

	result := &ChatResult{Raw: data}
	if err := json.Unmarshal(data, &result.Response); err != nil {
		slog.Error("Assistant.Chat: failed to decode response", "error", err, "sessionID", req.SessionID)
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	slog.Debug("Assistant.Chat: response received", "sessionID", req.SessionID, "intents", result.Response.Intent)
	return result, nil
}
