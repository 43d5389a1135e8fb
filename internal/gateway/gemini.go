package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Completer on the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a Gemini-backed Completer. baseURL is optional and
// only used to point the SDK at a different host.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: DefaultTimeout}, nil
}

// WithTimeout sets the per-call deadline. d <= 0 keeps the default.
func (g *GeminiClient) WithTimeout(d time.Duration) *GeminiClient {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// Model returns the default model name.
func (g *GeminiClient) Model() string { return g.model }

// Complete maps the chat request onto GenerateContent. System messages become
// the system instruction; assistant messages use the model role.
func (g *GeminiClient) Complete(ctx context.Context, req Request) Result {
	model := req.Model
	if model == "" {
		model = g.model
	}

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if len(req.ResponseFormat) > 0 {
		cfg.ResponseMIMEType = "application/json"
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	res, err := g.client.Models.GenerateContent(callCtx, model, contents, cfg)
	result := geminiResult(res, err)
	slog.Debug("completion",
		"backend", "gemini",
		"model", model,
		"failure", result.Failure,
		"status", result.StatusCode,
		"latency", time.Since(start),
	)
	return result
}

func geminiResult(res *genai.GenerateContentResponse, err error) Result {
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return Result{Failure: HTTPError, StatusCode: apiErr.Code, Detail: truncate(apiErr.Message, maxDetailBytes)}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return Result{Failure: HTTPError, StatusCode: apiErrPtr.Code, Detail: truncate(apiErrPtr.Message, maxDetailBytes)}
		}
		return failed(Unreachable, err.Error())
	}
	if res == nil {
		return failed(EmptyResponse, "no response")
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return failed(EmptyResponse, "empty content")
	}
	return Result{Text: text}
}
