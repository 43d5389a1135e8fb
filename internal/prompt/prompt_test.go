package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/inforens/nori/internal/memory"
	"github.com/inforens/nori/internal/policy"
)

func TestRules_PolicyContent(t *testing.T) {
	p := policy.Default()
	p.Competitors = []string{"RivalCo", "OtherEdu"}
	rules := Rules(p)

	for _, want := range []string{
		p.Refusal,
		p.Comparison,
		"RivalCo, OtherEdu",
		p.Fallbacks.Guides,
		p.Fallbacks.ContactUs,
		"[1]",
		"clarifying question",
		"visas",
	} {
		if !strings.Contains(rules, want) {
			t.Errorf("rules missing %q", want)
		}
	}
}

func TestRules_NoCompetitorList(t *testing.T) {
	rules := Rules(policy.Default())
	if strings.Contains(rules, "for example") {
		t.Error("competitor examples rendered with an empty list")
	}
}

func TestChat(t *testing.T) {
	p := policy.Default()
	in := ChatInput{
		Question: "  What about housing?  ",
		History: []memory.Turn{
			memory.User("Can I work on a student visa?"),
			memory.Assistant("Usually up to 20 hours a week."),
		},
		Content: "Inforens helps with accommodation.",
		Links:   []string{"https://www.inforens.com/accommodation", p.Fallbacks.ContactUs},
	}

	got := Chat(p, in)

	if got.User != "What about housing?" {
		t.Errorf("User = %q", got.User)
	}
	for _, want := range []string{
		`{"answer": "<your answer>", "links": ["<approved link>"]}`,
		"[Approved Links]\n- https://www.inforens.com/accommodation\n- " + p.Fallbacks.ContactUs,
		"[Conversation History]\nUser: Can I work on a student visa?\nAssistant: Usually up to 20 hours a week.",
		"[Inforens Content]\nInforens helps with accommodation.",
	} {
		if !strings.Contains(got.System, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Contains(got.System, "What about housing?") {
		t.Error("live question should not be in the system prompt")
	}
}

func TestChat_OptionalSectionsOmitted(t *testing.T) {
	got := Chat(policy.Default(), ChatInput{Question: "hi"})
	if strings.Contains(got.System, "[Conversation History]") {
		t.Error("history section rendered without history")
	}
	if strings.Contains(got.System, "Content]") {
		t.Error("content section rendered without content")
	}
}

func TestChat_Deterministic(t *testing.T) {
	in := ChatInput{Question: "q", Links: []string{"https://a", "https://b"}, Content: "c"}
	a := Chat(policy.Default(), in)
	b := Chat(policy.Default(), in)
	if a != b {
		t.Error("same input produced different prompts")
	}
}

func TestChat_LinkCap(t *testing.T) {
	links := make([]string, MaxPromptLinks+50)
	for i := range links {
		links[i] = "https://x.example/" + strings.Repeat("a", i%7)
	}
	got := Chat(policy.Default(), ChatInput{Question: "q", Links: links})
	section := got.System[strings.Index(got.System, "[Approved Links]"):]
	if n := strings.Count(section, "\n- "); n != MaxPromptLinks {
		t.Errorf("rendered %d links, want %d", n, MaxPromptLinks)
	}
}

func TestPrompt_Messages(t *testing.T) {
	msgs := Prompt{System: "sys", User: "usr"}.Messages()
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("Messages = %+v", msgs)
	}

	msgs = Prompt{User: "only"}.Messages()
	if len(msgs) != 1 || msgs[0].Content != "only" {
		t.Fatalf("Messages = %+v", msgs)
	}
}

func TestScholarship(t *testing.T) {
	got := Scholarship(ScholarshipProfile{
		Citizenship:           "India",
		PreferredCountry:      "UK",
		Level:                 "Postgraduate",
		Field:                 "Data Science",
		PreferredUniversities: []string{"UCL", " ", "Imperial"},
		Gender:                "",
	})

	for _, want := range []string{
		"Citizenship: India\n",
		"Desired level of study: Postgraduate\n",
		"Preferred field of study: Data Science\n",
		"Preferred country of study: UK\n",
		"Preferred universities: UCL, Imperial\n",
		`"scholarships"`,
		"mmm dd, yyyy",
	} {
		if !strings.Contains(got.User, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got.User, "Gender:") {
		t.Error("empty optional field rendered")
	}
	if got.System != "" {
		t.Errorf("System = %q, want empty", got.System)
	}
}

func TestSOP(t *testing.T) {
	got := SOP(SOPDetails{
		Name:             "Asha",
		CountryOfOrigin:  "Kenya",
		IntendedDegree:   "MSc",
		PreferredCountry: "Canada",
		FieldOfStudy:     "Public Health",
		PreferredUni:     "McGill",
		WordCountTarget:  800,
		Goals:            "run a clinic.",
	})

	for _, want := range []string{
		"I am Asha, I am from Kenya. I want to study MSc in Canada.",
		"My preferred university is McGill.",
		"of about 800 words",
		"Use a Formal tone.",
		"Here are my details:\nMy long term goals are run a clinic.",
		"citations",
	} {
		if !strings.Contains(got.User, want) {
			t.Errorf("prompt missing %q\n%s", want, got.User)
		}
	}
	if strings.Contains(got.User, "My strengths are") {
		t.Error("empty optional field rendered")
	}
}

func TestSOP_NoDetails(t *testing.T) {
	got := SOP(SOPDetails{Name: "A", Tone: "Enthusiastic"})
	if strings.Contains(got.User, "Here are my details") {
		t.Error("details header rendered without details")
	}
	if !strings.Contains(got.User, "Use a Enthusiastic tone.") {
		t.Errorf("custom tone missing: %s", got.User)
	}
	if strings.Contains(got.User, "words") {
		t.Error("word target rendered when zero")
	}
}

func TestCVPrompts(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","required":["full_name"]}`)

	gen := CVGenerate(schema, map[string]string{"full_name": "Lee Min"})
	if !strings.Contains(gen.User, `"full_name": "Lee Min"`) {
		t.Errorf("user data missing from generate prompt:\n%s", gen.User)
	}
	if !strings.Contains(gen.User, `"required": [`) {
		t.Errorf("schema missing from generate prompt:\n%s", gen.User)
	}

	parse := CVParse(schema, "  Lee Min\nEngineer  ")
	if !strings.Contains(parse.User, "\"\"\"\nLee Min\nEngineer\n\"\"\"") {
		t.Errorf("cv text not fenced:\n%s", parse.User)
	}
	if !strings.Contains(parse.User, "Do not fabricate") {
		t.Error("parse rules missing")
	}
}
