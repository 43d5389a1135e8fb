package corpus

import (
	"regexp"
	"sort"
	"strings"
)

// URLPattern matches http(s) URLs terminated by whitespace, a comma or a
// closing parenthesis.
var URLPattern = regexp.MustCompile(`https?://[^\s,)]+`)

// trailingPunct is stripped from the end of a match; sentence punctuation
// glued to a URL is almost never part of it.
const trailingPunct = `.;:!?'"]>`

// FindURLs returns every URL occurrence in text, in order, without trimming.
func FindURLs(text string) []string {
	return URLPattern.FindAllString(text, -1)
}

// TrimURL strips trailing sentence punctuation from a matched URL.
func TrimURL(u string) string {
	return strings.TrimRight(u, trailingPunct)
}

// ExtractURLs returns the set of URLs found in text. Both the raw match and
// its punctuation-trimmed form are members. No matches yields an empty set.
func ExtractURLs(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, u := range FindURLs(text) {
		set[u] = struct{}{}
		if t := TrimURL(u); t != "" && t != u {
			set[t] = struct{}{}
		}
	}
	return set
}

// SortedURLs returns the members of set in lexical order.
func SortedURLs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
