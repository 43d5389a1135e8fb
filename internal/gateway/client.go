package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
	maxDetailBytes   = 512
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client for the default endpoint and model.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithModel sets the default model.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithTimeout sets the per-call deadline. d <= 0 keeps the default.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Model returns the default model name.
func (c *Client) Model() string { return c.model }

// Complete sends one chat completion request. It makes a single attempt and
// reports every failure as a Result.
func (c *Client) Complete(ctx context.Context, req Request) Result {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(wireRequest{
		Model:          model,
		Messages:       req.Messages,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		ResponseFormat: req.ResponseFormat,
		Extra:          req.Extra,
	})
	if err != nil {
		return failed(Unreachable, fmt.Sprintf("marshaling request: %v", err))
	}

	start := time.Now()
	res := c.do(ctx, body)
	slog.Debug("completion",
		"model", model,
		"failure", res.Failure,
		"status", res.StatusCode,
		"latency", time.Since(start),
	)
	return res
}

func (c *Client) do(ctx context.Context, body []byte) Result {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return failed(Unreachable, fmt.Sprintf("creating request: %v", err))
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return failed(Unreachable, fmt.Sprintf("executing request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return failed(Unreachable, fmt.Sprintf("reading response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			Failure:    HTTPError,
			StatusCode: resp.StatusCode,
			Detail:     truncate(string(respBody), maxDetailBytes),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{Failure: EmptyResponse, StatusCode: resp.StatusCode, Detail: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return Result{Failure: EmptyResponse, StatusCode: resp.StatusCode, Detail: "no choices"}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Result{Failure: EmptyResponse, StatusCode: resp.StatusCode, Detail: "empty content"}
	}

	return Result{Text: text, StatusCode: resp.StatusCode}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
