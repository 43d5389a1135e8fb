package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), p); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_OverridesSomeFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
brand: Acme Study
competitors:
  - RivalCo
fallbacks:
  contact_us: https://acme.example/help
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Brand != "Acme Study" {
		t.Errorf("Brand = %q, want %q", p.Brand, "Acme Study")
	}
	if diff := cmp.Diff([]string{"RivalCo"}, p.Competitors); diff != "" {
		t.Errorf("Competitors mismatch (-want +got):\n%s", diff)
	}
	if p.Fallbacks.ContactUs != "https://acme.example/help" {
		t.Errorf("ContactUs = %q", p.Fallbacks.ContactUs)
	}
	if p.Fallbacks.Guides != defaultGuides {
		t.Errorf("Guides = %q, want default %q", p.Fallbacks.Guides, defaultGuides)
	}
}

func TestLoad_InvalidFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("fallbacks:\n  guides: not-a-url\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid fallback URL")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("brand: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if p.Brand != Default().Brand {
		t.Errorf("Brand on error = %q, want default", p.Brand)
	}
}

func TestMentionsMentoring(t *testing.T) {
	p := Default()
	tests := []struct {
		text string
		want bool
	}{
		{"Book a session with a Mentor today", true},
		{"Our MENTORSHIP programme", true},
		{"Visa requirements for the UK", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.MentionsMentoring(tt.text); got != tt.want {
			t.Errorf("MentionsMentoring(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
