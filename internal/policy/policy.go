package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy holds the behavioural rules every assistant prompt is built from.
// It is plain data so prompt rendering can be tested against any policy.
type Policy struct {
	Brand         string    `yaml:"brand"`
	AssistantName string    `yaml:"assistant_name"`
	Audience      string    `yaml:"audience"`
	Topics        []string  `yaml:"topics"`
	OffTopic      []string  `yaml:"off_topic"`
	Refusal       string    `yaml:"refusal"`
	Comparison    string    `yaml:"comparison"`
	Competitors   []string  `yaml:"competitors"`
	MentorTerms   []string  `yaml:"mentor_terms"`
	Fallbacks     Fallbacks `yaml:"fallbacks"`
}

// Fallbacks are the always-valid links substituted for anything the model
// invents.
type Fallbacks struct {
	Guides    string `yaml:"guides"`
	ContactUs string `yaml:"contact_us"`
}

const (
	defaultGuides    = "https://www.inforens.com/guides"
	defaultContactUs = "https://www.inforens.com/contact-us"
)

// Default returns the built-in policy.
func Default() Policy {
	return Policy{
		Brand:         "Inforens",
		AssistantName: "Nori",
		Audience:      "international students",
		Topics: []string{
			"applications", "scholarships", "visas", "study destinations",
			"student life", "living costs", "travel", "weather",
			"accommodation", "local transport", "cultural adjustment", "settling in",
			"Inforens services and mentoring",
		},
		OffTopic: []string{
			"personal matters", "entertainment", "adult content", "sports",
			"cooking", "gambling", "news", "jokes", "celebrities",
		},
		Refusal: "Sorry, I can only answer questions related to international students and their study destination. " +
			"For all other matters, please contact support at " + defaultContactUs + ".",
		Comparison: "I can only help with Inforens services. For anything else, please contact support at " +
			defaultContactUs + ".",
		MentorTerms: []string{"mentor", "mentoring", "mentorship"},
		Fallbacks: Fallbacks{
			Guides:    defaultGuides,
			ContactUs: defaultContactUs,
		},
	}
}

// Load reads a YAML policy file over the defaults. A missing file yields the
// defaults unchanged; fields absent from the file keep their default values.
func Load(path string) (Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("reading policy file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Default(), fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the fields the sanitizer and prompts cannot work without.
func (p Policy) Validate() error {
	if !isHTTPURL(p.Fallbacks.Guides) {
		return fmt.Errorf("fallbacks.guides must be an http(s) URL, got %q", p.Fallbacks.Guides)
	}
	if !isHTTPURL(p.Fallbacks.ContactUs) {
		return fmt.Errorf("fallbacks.contact_us must be an http(s) URL, got %q", p.Fallbacks.ContactUs)
	}
	if strings.TrimSpace(p.Brand) == "" {
		return errors.New("brand must not be empty")
	}
	return nil
}

// FallbackURLs returns the fixed links that are always considered valid.
func (p Policy) FallbackURLs() []string {
	return []string{p.Fallbacks.Guides, p.Fallbacks.ContactUs}
}

// MentionsMentoring reports whether text contains any mentoring term,
// case-insensitively.
func (p Policy) MentionsMentoring(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range p.MentorTerms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
