package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/sanitize"
)

const sopMaxTokens = 2048

// MsgSOPFailed is shown when no statement could be generated.
const MsgSOPFailed = "Failed to generate SOP. Please try again shortly."

// SOPResult is a generated statement of purpose.
type SOPResult struct {
	SOP       string `json:"sop"`
	Prompt    string `json:"prompt"`
	WordCount int    `json:"word_count"`
}

// SOPWriter generates statements of purpose.
type SOPWriter struct {
	completer gateway.Completer
	logger    *slog.Logger
}

// NewSOPWriter creates the SOP workflow.
func NewSOPWriter(c gateway.Completer, logger *slog.Logger) *SOPWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SOPWriter{completer: c, logger: logger.With("workflow", "sop")}
}

// Generate validates the details and writes a statement. Citation markers and
// markdown links are stripped from the model output.
func (w *SOPWriter) Generate(ctx context.Context, d prompt.SOPDetails) (SOPResult, error) {
	if err := required(
		[2]string{"name", d.Name},
		[2]string{"country_of_origin", d.CountryOfOrigin},
		[2]string{"intended_degree", d.IntendedDegree},
		[2]string{"preferred_country", d.PreferredCountry},
		[2]string{"field_of_study", d.FieldOfStudy},
		[2]string{"preferred_uni", d.PreferredUni},
	); err != nil {
		return SOPResult{}, err
	}

	p := prompt.SOP(d)
	res := w.completer.Complete(ctx, gateway.Request{
		Messages:  p.Messages(),
		MaxTokens: sopMaxTokens,
	})
	if !res.OK() {
		w.logger.Warn("sop generation failed", "failure", res.Failure, "status", res.StatusCode, "detail", res.Detail)
		return SOPResult{}, &Error{Workflow: "sop", Kind: res.Failure, Message: MsgSOPFailed, Detail: res.Detail}
	}

	text := sanitize.RemoveCitations(sanitize.CollapseMarkdownLinks(res.Text))
	if text == "" {
		w.logger.Warn("sop empty after cleanup", "failure", gateway.EmptyResponse)
		return SOPResult{}, &Error{Workflow: "sop", Kind: gateway.EmptyResponse, Message: MsgSOPFailed}
	}

	words := len(strings.Fields(text))
	w.logger.Info("sop generated", "failure", gateway.FailureNone, "words", words)
	return SOPResult{SOP: text, Prompt: p.String(), WordCount: words}, nil
}
