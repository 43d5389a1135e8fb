// Package prompt renders the system and user messages for each assistant
// workflow. Rendering is deterministic and never fails; optional inputs that
// are empty are left out.
package prompt

import (
	"fmt"
	"strings"

	"github.com/inforens/nori/internal/gateway"
)

// Prompt is a compiled system/user message pair. It is built per call and
// never stored.
type Prompt struct {
	System string
	User   string
}

// Messages returns the prompt as gateway chat messages. An empty system part
// is omitted.
func (p Prompt) Messages() []gateway.Message {
	msgs := make([]gateway.Message, 0, 2)
	if p.System != "" {
		msgs = append(msgs, gateway.Message{Role: "system", Content: p.System})
	}
	return append(msgs, gateway.Message{Role: "user", Content: p.User})
}

// String renders the prompt as a single block, as echoed back to API callers.
func (p Prompt) String() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// line writes "label: value" when value is non-blank.
func line(sb *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(sb, "%s: %s\n", label, v)
	}
}

func bullets(sb *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}
