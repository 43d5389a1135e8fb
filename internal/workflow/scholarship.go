package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/llmjson"
	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/sanitize"
)

const scholarshipMaxTokens = 1000

// User-facing scholarship search errors, one per failure stage.
const (
	MsgScholarshipConnect  = "Unable to connect right now. Please check your connection and try again."
	MsgScholarshipEmpty    = "Something went wrong. Please try again."
	MsgScholarshipNoObject = "Something went wrong. Please try again shortly."
	MsgScholarshipInvalid  = "We ran into an issue while finding scholarships. Please try again shortly."
	MsgScholarshipShape    = "We couldn't find valid scholarships for your profile. Please try again."
)

// ScholarshipItem is one recommended scholarship.
type ScholarshipItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

// ScholarshipResult is a successful search.
type ScholarshipResult struct {
	Scholarships []ScholarshipItem `json:"scholarships"`
	Prompt       string            `json:"prompt"`
}

// Scholarships recommends scholarships for a student profile.
type Scholarships struct {
	completer gateway.Completer
	logger    *slog.Logger
}

// NewScholarships creates the scholarship search workflow.
func NewScholarships(c gateway.Completer, logger *slog.Logger) *Scholarships {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scholarships{completer: c, logger: logger.With("workflow", "scholarships")}
}

// Find validates the profile, asks the model and parses its recommendations.
// Failures are returned as *ValidationError or *Error.
func (s *Scholarships) Find(ctx context.Context, sp prompt.ScholarshipProfile) (ScholarshipResult, error) {
	if err := required(
		[2]string{"citizenship", sp.Citizenship},
		[2]string{"preferred_country", sp.PreferredCountry},
		[2]string{"level", sp.Level},
		[2]string{"field", sp.Field},
	); err != nil {
		return ScholarshipResult{}, err
	}

	p := prompt.Scholarship(sp)
	res := s.completer.Complete(ctx, gateway.Request{
		Messages:  p.Messages(),
		MaxTokens: scholarshipMaxTokens,
		Extra:     map[string]json.RawMessage{"reasoning_effort": json.RawMessage(`"medium"`)},
	})
	if !res.OK() {
		msg := MsgScholarshipConnect
		if res.Failure == gateway.EmptyResponse {
			msg = MsgScholarshipEmpty
		}
		return ScholarshipResult{}, s.fail(res.Failure, msg, res.Detail)
	}

	items, err := parseScholarships(res.Text)
	if err != nil {
		return ScholarshipResult{}, s.fail(gateway.MalformedJSON, scholarshipMessage(err), err.Error())
	}

	s.logger.Info("scholarships found", "failure", gateway.FailureNone, "count", len(items))
	return ScholarshipResult{Scholarships: items, Prompt: p.String()}, nil
}

func (s *Scholarships) fail(kind gateway.FailureKind, msg, detail string) *Error {
	s.logger.Warn("scholarship search failed", "failure", kind, "detail", detail)
	return &Error{Workflow: "scholarships", Kind: kind, Message: msg, Detail: detail}
}

var errScholarshipShape = errors.New(`reply has no "scholarships" list`)

func parseScholarships(text string) ([]ScholarshipItem, error) {
	fields, missing, err := llmjson.Fields(text, "scholarships")
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, errScholarshipShape
	}

	var items []ScholarshipItem
	if err := json.Unmarshal(fields["scholarships"], &items); err != nil {
		return nil, errScholarshipShape
	}

	out := items[:0]
	for _, it := range items {
		it.Name = sanitize.RemoveCitations(it.Name)
		it.Description = sanitize.RemoveCitations(it.Description)
		it.Deadline = strings.TrimSpace(sanitize.RemoveCitations(it.Deadline))
		if it.Name == "" {
			continue
		}
		out = append(out, it)
	}
	if out == nil {
		out = []ScholarshipItem{}
	}
	return out, nil
}

func scholarshipMessage(err error) string {
	switch {
	case errors.Is(err, llmjson.ErrNoObject):
		return MsgScholarshipNoObject
	case errors.Is(err, llmjson.ErrMalformed):
		return MsgScholarshipInvalid
	default:
		return MsgScholarshipShape
	}
}
