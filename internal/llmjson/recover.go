// Package llmjson pulls a JSON object out of free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoObject means the text contains no '{' ... '}' span.
	ErrNoObject = errors.New("no JSON object in response")
	// ErrMalformed means a span was found but does not parse.
	ErrMalformed = errors.New("malformed JSON object")
)

var (
	leadingFence   = regexp.MustCompile("^```[A-Za-z0-9_-]*\\s*")
	trailingFence  = regexp.MustCompile("\\s*```\\s*$")
	trailingCommas = regexp.MustCompile(`,(\s*[}\]])`)
)

// Recover isolates the outermost JSON object in text: a leading/trailing code
// fence is stripped, the span from the first '{' to the last '}' is taken, and
// commas directly before '}' or ']' are removed. ok is false when there is no
// such span. The result is not guaranteed to parse.
func Recover(text string) (string, bool) {
	s := strings.TrimSpace(text)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}

	obj := trailingCommas.ReplaceAllString(s[start:end+1], "$1")
	return strings.TrimSpace(obj), true
}

// Decode recovers the JSON object in text and unmarshals it into v.
func Decode(text string, v any) error {
	obj, ok := Recover(text)
	if !ok {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Fields decodes the recovered object into a raw field map and reports any of
// the required keys that are missing or null.
func Fields(text string, required ...string) (map[string]json.RawMessage, []string, error) {
	var m map[string]json.RawMessage
	if err := Decode(text, &m); err != nil {
		return nil, nil, err
	}
	var missing []string
	for _, k := range required {
		v, ok := m[k]
		if !ok || string(v) == "null" {
			missing = append(missing, k)
		}
	}
	return m, missing, nil
}
