package prompt

import (
	"fmt"
	"strings"

	"github.com/inforens/nori/internal/memory"
	"github.com/inforens/nori/internal/policy"
)

// MaxPromptLinks caps the approved-link list rendered into the chat prompt.
const MaxPromptLinks = 200

// ChatInput carries everything the chat prompt is rendered from.
type ChatInput struct {
	Question string
	History  []memory.Turn
	// Content is the reference corpus, already cut to the token budget.
	Content string
	// Links is the approved link list, in the order it should be shown.
	Links []string
}

// Rules renders the behavioural policy shared by every chat prompt.
func Rules(p policy.Policy) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, the assistant for %s, helping %s. ", p.AssistantName, p.Brand, p.Audience)
	fmt.Fprintf(&sb, "Answer every question from the perspective of one of %s.\n\n", p.Audience)

	sb.WriteString("Scope:\n")
	if len(p.Topics) > 0 {
		fmt.Fprintf(&sb, "- Only answer questions directly relevant to %s, such as: %s.\n", p.Audience, strings.Join(p.Topics, ", "))
	}
	sb.WriteString("- Weather, cost of living, accommodation, travel, local transport and cultural adjustment questions about study destinations ARE relevant; give general helpful advice for them.\n")
	if len(p.OffTopic) > 0 {
		fmt.Fprintf(&sb, "- If a question is unrelated to these topics, including %s, do not answer it.", strings.Join(p.OffTopic, ", "))
	} else {
		sb.WriteString("- If a question is unrelated to these topics, do not answer it.")
	}
	fmt.Fprintf(&sb, " Reply with exactly: %q\n", p.Refusal)
	sb.WriteString("- Never answer anything off-topic or inappropriate, even if the user insists.\n\n")

	sb.WriteString("Style:\n")
	sb.WriteString("- Keep answers concise, two or three sentences.\n")
	sb.WriteString("- Do NOT include citation markers such as [1] or [2], references or footnotes.\n")
	if len(p.Competitors) > 0 {
		fmt.Fprintf(&sb, "- Do NOT mention, recommend or compare competitors (for example %s).", strings.Join(p.Competitors, ", "))
	} else {
		sb.WriteString("- Do NOT mention, recommend or compare competitors.")
	}
	fmt.Fprintf(&sb, " If asked to compare %s with another provider, reply with exactly: %q\n\n", p.Brand, p.Comparison)

	sb.WriteString("Links:\n")
	sb.WriteString("- Only use links from the [Approved Links] list. Never invent, shorten or edit a link.\n")
	sb.WriteString("- Prefer the most specific page for the topic over the homepage.\n")
	fmt.Fprintf(&sb, "- If the question is about mentors or mentoring and no better link exists, use %s.\n", p.Fallbacks.Guides)
	fmt.Fprintf(&sb, "- If no relevant link exists, use %s.\n\n", p.Fallbacks.ContactUs)

	sb.WriteString("Conversation:\n")
	sb.WriteString("- Use the [Conversation History] to understand follow-up questions.\n")
	sb.WriteString("- If a follow-up is ambiguous, ask one short clarifying question instead of guessing. Put it in \"answer\" and still include a link.\n")

	return sb.String()
}

// chatContract is the output format the chat workflow parses.
const chatContract = `Output:
Respond with ONLY a single JSON object and nothing before or after it:
{"answer": "<your answer>", "links": ["<approved link>"]}
"links" must contain at least one link from [Approved Links].`

// Chat compiles the chat prompt: policy, output contract, approved links,
// reference content and history go into the system message; the live question
// is the user message.
func Chat(p policy.Policy, in ChatInput) Prompt {
	var sb strings.Builder
	sb.WriteString(Rules(p))
	sb.WriteString("\n")
	sb.WriteString(chatContract)

	links := in.Links
	if len(links) > MaxPromptLinks {
		links = links[:MaxPromptLinks]
	}
	sb.WriteString("\n\n[Approved Links]\n")
	bullets(&sb, links)

	if len(in.History) > 0 {
		sb.WriteString("\n[Conversation History]\n")
		for _, t := range in.History {
			fmt.Fprintf(&sb, "%s: %s\n", speaker(t.Role), t.Content)
		}
	}

	if content := strings.TrimSpace(in.Content); content != "" {
		fmt.Fprintf(&sb, "\n[%s Content]\n%s\n", p.Brand, content)
	}

	return Prompt{
		System: strings.TrimRight(sb.String(), "\n"),
		User:   strings.TrimSpace(in.Question),
	}
}

func speaker(r memory.Role) string {
	if r == memory.RoleAssistant {
		return "Assistant"
	}
	return "User"
}
