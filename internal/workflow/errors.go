package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inforens/nori/internal/gateway"
)

// ErrEmptyQuestion is returned by Chat.Ask for blank questions, before any
// network call is made.
var ErrEmptyQuestion = errors.New("question is required")

// ValidationError lists required input fields that were missing or blank.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Error is a workflow failure with a message that is safe to show to users.
// Detail carries the diagnostic text and is only logged.
type Error struct {
	Workflow string
	Kind     gateway.FailureKind
	Message  string
	Detail   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Workflow, e.Message, e.Kind)
}

// required returns a ValidationError naming each blank field, or nil.
func required(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
