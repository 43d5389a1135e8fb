package llmjson

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "fenced with trailing comma",
			input:  "```json\n{\"answer\":\"Hi\",\"links\":[\"https://x\",],}\n```",
			want:   `{"answer":"Hi","links":["https://x"]}`,
			wantOK: true,
		},
		{
			name:   "plain object",
			input:  `{"a":1}`,
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "prose around object",
			input:  "Sure! Here you go: {\"a\": {\"b\": 2}} Hope that helps.",
			want:   `{"a": {"b": 2}}`,
			wantOK: true,
		},
		{
			name:   "fence without language tag",
			input:  "```\n{\"a\":1}\n```",
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "trailing comma with whitespace",
			input:  "{\"a\": [1, 2,\n ],\n}",
			want:   "{\"a\": [1, 2\n ]\n}",
			wantOK: true,
		},
		{
			name:   "no braces",
			input:  "I cannot help with that.",
			wantOK: false,
		},
		{
			name:   "only opening brace",
			input:  "{ broken",
			wantOK: false,
		},
		{
			name:   "closing before opening",
			input:  "} then {",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Recover(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Recover() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecover_FencedSampleParses(t *testing.T) {
	in := "```json\n{\"answer\":\"Hi\",\"links\":[\"https://x\",],}\n```"
	obj, ok := Recover(in)
	if !ok {
		t.Fatal("Recover failed")
	}

	var got struct {
		Answer string   `json:"answer"`
		Links  []string `json:"links"`
	}
	if err := json.Unmarshal([]byte(obj), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Answer != "Hi" {
		t.Errorf("answer = %q, want %q", got.Answer, "Hi")
	}
	if diff := cmp.Diff([]string{"https://x"}, got.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Errors(t *testing.T) {
	var v map[string]any

	if err := Decode("nothing here", &v); !errors.Is(err, ErrNoObject) {
		t.Errorf("err = %v, want ErrNoObject", err)
	}
	if err := Decode(`{"a": tru}`, &v); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestFields_Missing(t *testing.T) {
	m, missing, err := Fields(`{"answer": "ok", "links": null}`, "answer", "links")
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if diff := cmp.Diff([]string{"links"}, missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if string(m["answer"]) != `"ok"` {
		t.Errorf("answer = %s", m["answer"])
	}
}
