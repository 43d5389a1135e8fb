package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/inforens/nori/internal/corpus"
	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/llmjson"
	"github.com/inforens/nori/internal/memory"
	"github.com/inforens/nori/internal/policy"
	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/sanitize"
)

const chatMaxTokens = 400

// User-facing chat messages for outcomes that do not come from the model.
const (
	MsgNoContent   = "No content loaded. Please check the reference content file."
	MsgUnavailable = "Sorry, I couldn't generate a response right now. Please try again later."
	MsgMalformed   = "Sorry, something went wrong processing the response. Please try again."
)

// StructuredAnswer is the chat reply: a sanitized answer and at least one
// approved link. Failure records why a fixed fallback reply was produced.
type StructuredAnswer struct {
	Answer  string              `json:"answer"`
	Links   []string            `json:"links"`
	Failure gateway.FailureKind `json:"-"`
}

// ChatConfig wires a Chat orchestrator.
type ChatConfig struct {
	Completer gateway.Completer
	Corpus    *corpus.Corpus
	Policy    policy.Policy
	// Memory defaults to an in-memory store with the default window.
	Memory memory.Store
	// ContextTokens bounds the corpus excerpt; <= 0 uses the corpus default.
	ContextTokens int
	Logger        *slog.Logger
}

// Chat answers student questions grounded in the reference corpus, keeping a
// short per-session history.
type Chat struct {
	completer     gateway.Completer
	corpus        *corpus.Corpus
	policy        policy.Policy
	sanitizer     *sanitize.Sanitizer
	memory        memory.Store
	contextTokens int
	links         []string
	logger        *slog.Logger
}

// NewChat builds a Chat orchestrator. The approved link list is computed once
// from the corpus.
func NewChat(cfg ChatConfig) *Chat {
	c := cfg.Corpus
	if c == nil {
		c = corpus.New("", cfg.Policy.FallbackURLs()...)
	}
	mem := cfg.Memory
	if mem == nil {
		mem = memory.NewInMemory(memory.DefaultMaxTurns)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Chat{
		completer:     cfg.Completer,
		corpus:        c,
		policy:        cfg.Policy,
		sanitizer:     sanitize.New(c, cfg.Policy),
		memory:        mem,
		contextTokens: cfg.ContextTokens,
		links:         approvedLinks(c, cfg.Policy),
		logger:        logger.With("workflow", "chat"),
	}
}

// approvedLinks lists fallbacks first, then corpus links in lexical order.
func approvedLinks(c *corpus.Corpus, p policy.Policy) []string {
	set := c.ValidURLs()
	out := make([]string, 0, len(set))
	for _, f := range p.FallbackURLs() {
		if _, ok := set[f]; ok {
			out = append(out, f)
			delete(set, f)
		}
	}
	return append(out, corpus.SortedURLs(set)...)
}

// Memory returns the conversation store.
func (c *Chat) Memory() memory.Store { return c.memory }

// Ask answers one question. The only error is ErrEmptyQuestion; every other
// outcome, including gateway and parse failures, is a reply with a non-empty
// link list. History is only updated after a successful answer.
func (c *Chat) Ask(ctx context.Context, sessionID, question string) (StructuredAnswer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return StructuredAnswer{}, ErrEmptyQuestion
	}
	session := memory.Key(sessionID)
	log := c.logger.With("session", session)

	if c.corpus.Empty() {
		log.Warn("no reference content loaded", "path", c.corpus.Path())
		return c.fallback(MsgNoContent, gateway.FailureNone), nil
	}

	history := c.memory.History(session)
	p := prompt.Chat(c.policy, prompt.ChatInput{
		Question: q,
		History:  history,
		Content:  c.corpus.Excerpt(c.contextTokens),
		Links:    c.links,
	})

	res := c.completer.Complete(ctx, gateway.Request{
		Messages:  p.Messages(),
		MaxTokens: chatMaxTokens,
	})
	if !res.OK() {
		log.Warn("completion failed", "failure", res.Failure, "status", res.StatusCode, "detail", res.Detail)
		return c.fallback(MsgUnavailable, res.Failure), nil
	}

	answer, links, err := parseChatReply(res.Text)
	if err != nil {
		log.Warn("unusable model reply", "failure", gateway.MalformedJSON, "error", err)
		return c.fallback(MsgMalformed, gateway.MalformedJSON), nil
	}

	answer = c.sanitizer.Sanitize(answer)
	if answer == "" {
		log.Warn("reply empty after sanitizing", "failure", gateway.MalformedJSON)
		return c.fallback(MsgMalformed, gateway.MalformedJSON), nil
	}
	links = c.sanitizer.Links(answer, links)

	c.memory.Append(session, memory.User(q), memory.Assistant(answer))
	log.Info("question answered", "failure", gateway.FailureNone, "history", len(history), "links", len(links))

	return StructuredAnswer{Answer: answer, Links: links}, nil
}

func (c *Chat) fallback(msg string, kind gateway.FailureKind) StructuredAnswer {
	return StructuredAnswer{
		Answer:  msg,
		Links:   []string{c.sanitizer.ContactUs()},
		Failure: kind,
	}
}

var errMissingFields = errors.New("reply missing answer or links")

// parseChatReply extracts the answer and links from the model output. links
// may be a list or a single string.
func parseChatReply(text string) (string, []string, error) {
	fields, missing, err := llmjson.Fields(text, "answer", "links")
	if err != nil {
		return "", nil, err
	}
	if len(missing) > 0 {
		return "", nil, errMissingFields
	}

	var answer string
	if err := json.Unmarshal(fields["answer"], &answer); err != nil {
		return "", nil, err
	}

	var links []string
	if err := json.Unmarshal(fields["links"], &links); err != nil {
		var single string
		if err2 := json.Unmarshal(fields["links"], &single); err2 != nil {
			return "", nil, err
		}
		links = []string{single}
	}
	return answer, links, nil
}
