// Package sanitize cleans model output before it reaches a user: citation
// markers go, markdown links collapse to their target, and any link outside
// the approved set is swapped for a fallback.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/inforens/nori/internal/corpus"
	"github.com/inforens/nori/internal/policy"
)

var (
	citationPattern = regexp.MustCompile(`\[\d+\]`)
	markdownLink    = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)`)
)

// maxPasses bounds the fixpoint loop in Sanitize. Every pass either shrinks
// the text or replaces links with valid ones, so two passes are normally
// enough.
const maxPasses = 8

// LinkSet decides whether a URL may be shown to users.
type LinkSet interface {
	IsValid(u string) bool
}

// Sanitizer applies the link policy to model output.
type Sanitizer struct {
	links     LinkSet
	policy    policy.Policy
	fallbacks map[string]struct{}
}

// New creates a Sanitizer. The policy fallback URLs are always accepted, even
// if links does not contain them.
func New(links LinkSet, p policy.Policy) *Sanitizer {
	fb := make(map[string]struct{})
	for _, u := range p.FallbackURLs() {
		fb[u] = struct{}{}
	}
	return &Sanitizer{links: links, policy: p, fallbacks: fb}
}

// RemoveCitations deletes numbered citation markers such as "[1]" and trims
// surrounding whitespace.
func RemoveCitations(text string) string {
	return strings.TrimSpace(stripCitations(text))
}

// stripCitations removes markers until none are left, so nested markers like
// "[1[2]]" go in one call.
func stripCitations(text string) string {
	for citationPattern.MatchString(text) {
		text = citationPattern.ReplaceAllString(text, "")
	}
	return text
}

// CollapseMarkdownLinks rewrites "[label](target)" as the bare target.
func CollapseMarkdownLinks(text string) string {
	return markdownLink.ReplaceAllString(text, "$2")
}

// Sanitize removes citation markers, collapses markdown links and replaces
// every URL not in the approved set with a fallback. It never fails and is
// idempotent.
func (s *Sanitizer) Sanitize(text string) string {
	out := text
	for range maxPasses {
		next := s.pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func (s *Sanitizer) pass(text string) string {
	text = stripCitations(text)
	text = CollapseMarkdownLinks(text)
	text = s.ReplaceInvalidURLs(text)
	return strings.TrimSpace(text)
}

// ReplaceInvalidURLs swaps every URL outside the approved set for the guides
// fallback when the text talks about mentoring, or the contact-us fallback
// otherwise. Trailing sentence punctuation is left in place.
func (s *Sanitizer) ReplaceInvalidURLs(text string) string {
	fallback := s.Fallback(text)
	return corpus.URLPattern.ReplaceAllStringFunc(text, func(u string) string {
		if s.Valid(u) {
			return u
		}
		trimmed := corpus.TrimURL(u)
		if s.Valid(trimmed) {
			return u
		}
		return fallback + u[len(trimmed):]
	})
}

// Valid reports whether u is approved, either by the link set or as a
// fallback.
func (s *Sanitizer) Valid(u string) bool {
	if _, ok := s.fallbacks[u]; ok {
		return true
	}
	return s.links != nil && s.links.IsValid(u)
}

// Fallback picks the replacement link for text.
func (s *Sanitizer) Fallback(text string) string {
	if s.policy.MentionsMentoring(text) {
		return s.policy.Fallbacks.Guides
	}
	return s.policy.Fallbacks.ContactUs
}

// ContactUs returns the contact-us fallback.
func (s *Sanitizer) ContactUs() string {
	return s.policy.Fallbacks.ContactUs
}

// Links filters a model-supplied link list: each entry is trimmed, invalid
// entries are replaced by the fallback chosen for context, and duplicates are
// dropped. The result is never empty.
func (s *Sanitizer) Links(context string, links []string) []string {
	fallback := s.Fallback(context)
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))

	add := func(u string) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, raw := range links {
		u := strings.TrimSpace(raw)
		if m := markdownLink.FindStringSubmatch(u); m != nil {
			u = m[2]
		}
		switch {
		case u == "":
			continue
		case s.Valid(u):
			add(u)
		case s.Valid(corpus.TrimURL(u)):
			add(corpus.TrimURL(u))
		default:
			add(fallback)
		}
	}

	if len(out) == 0 {
		out = append(out, s.policy.Fallbacks.ContactUs)
	}
	return out
}
