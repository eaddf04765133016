package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultUserAgent = "flowiq-scheduling/0.1"

// Config controls how the SMS provider client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	FromNumber string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the provider's REST message-send endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	fromNumber string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sms: API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sms: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		fromNumber: cfg.FromNumber,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

type sendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"text"`
}

type sendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SendSMS submits one outbound message. 5xx responses are retried with
// linear backoff; 4xx responses are terminal.
func (c *Client) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(sendRequest{From: c.fromNumber, To: to, Body: body})
	if err != nil {
		return fmt.Errorf("sms: marshal send request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		resp, retryable, err := c.post(ctx, payload)
		if err == nil {
			c.logger.Info("sms sent", "to", to, "provider_id", resp.ID, "status", resp.Status)
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("sms send retrying", "to", to, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("sms: send to %s: %w", to, lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) (*sendResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out sendResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, false, fmt.Errorf("decode response: %w", err)
		}
		return &out, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("provider returned %d", resp.StatusCode)
	default:
		var apiErr errorResponse
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Error != "" {
			return nil, false, fmt.Errorf("provider rejected message: %s", apiErr.Error)
		}
		return nil, false, fmt.Errorf("provider returned %d", resp.StatusCode)
	}
}
