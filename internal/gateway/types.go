package gateway

import (
	"context"
	"encoding/json"
)

// FailureKind classifies why a completion produced no usable text.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// Unreachable covers transport errors, timeouts and unreadable bodies.
	Unreachable
	// HTTPError is a non-2xx response from the endpoint.
	HTTPError
	// EmptyResponse is a 2xx response with no choices or blank content.
	EmptyResponse
	// MalformedJSON is set by callers when the text could not be turned into
	// the structure they expected.
	MalformedJSON
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case Unreachable:
		return "unreachable"
	case HTTPError:
		return "http_error"
	case EmptyResponse:
		return "empty_response"
	case MalformedJSON:
		return "malformed_json"
	default:
		return "unknown"
	}
}

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	// Model overrides the client's default model when set.
	Model     string
	Messages  []Message
	MaxTokens int
	// Temperature is omitted from the wire request when nil.
	Temperature *float64
	// ResponseFormat is passed through verbatim as "response_format".
	ResponseFormat json.RawMessage
	// Extra holds additional top-level request fields, e.g. reasoning_effort.
	Extra map[string]json.RawMessage
}

// Result is the outcome of a completion call. Exactly one of Text or Failure
// is meaningful.
type Result struct {
	Text       string
	Failure    FailureKind
	StatusCode int
	Detail     string
}

// OK reports whether the call produced text.
func (r Result) OK() bool { return r.Failure == FailureNone }

func failed(kind FailureKind, detail string) Result {
	return Result{Failure: kind, Detail: detail}
}

// Completer sends one completion request. Implementations never retry and
// report every failure through Result.
type Completer interface {
	Complete(ctx context.Context, req Request) Result
}

// wireRequest is the OpenAI-compatible chat completion body. Fields not
// modelled explicitly come from Extra.
type wireRequest struct {
	Model          string
	Messages       []Message
	MaxTokens      int
	Temperature    *float64
	ResponseFormat json.RawMessage
	Extra          map[string]json.RawMessage
}

func (r wireRequest) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(r.Extra)+5)
	for k, v := range r.Extra {
		m[k] = v
	}
	b, err := json.Marshal(r.Model)
	if err != nil {
		return nil, err
	}
	m["model"] = b
	if b, err = json.Marshal(r.Messages); err != nil {
		return nil, err
	}
	m["messages"] = b
	if r.MaxTokens > 0 {
		b, _ = json.Marshal(r.MaxTokens)
		m["max_tokens"] = b
	}
	if r.Temperature != nil {
		b, _ = json.Marshal(*r.Temperature)
		m["temperature"] = b
	}
	if len(r.ResponseFormat) > 0 {
		m["response_format"] = r.ResponseFormat
	}
	return json.Marshal(m)
}

// chatResponse is the subset of the completion envelope we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
