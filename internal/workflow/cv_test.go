package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/inforens/nori/internal/document"
	"github.com/inforens/nori/internal/gateway"
)

const cvReply = `{
  "full_name": "Lee Min",
  "email": "lee@example.com",
  "location": "Seoul, KR",
  "summary": "Backend engineer [1].",
  "skills": ["Go", "[2]", "SQL"],
  "work_experience": [{
    "job_title": "Engineer", "company_name": "Acme", "type_of_work": "full-time",
    "start_date": "01/2022", "end_date": "Present",
    "responsibilities": ["Built APIs [3]"], "achievements": ["Cut latency 40%"]
  }],
  "education": [{"university_name": "KAIST", "level": "BSc", "course": "Computer Science", "results": "3.9 GPA"}],
  "additionalSec": [{"title": "Volunteering", "desc": "Code club mentor"}],
}`

func TestCVGenerate(t *testing.T) {
	f := newFake(reply(cvReply))
	b := NewCVBuilder(f, nil)

	cv, err := b.Generate(context.Background(), CVInput{
		FullName:       "Lee Min",
		TargetCountry:  "UK",
		WorkExperience: json.RawMessage(`"Engineer at Acme since 2022"`),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if cv.Summary != "Backend engineer ." {
		t.Errorf("Summary = %q", cv.Summary)
	}
	if diff := cmp.Diff([]string{"Go", "SQL"}, cv.Skills); diff != "" {
		t.Errorf("skills mismatch (-want +got):\n%s", diff)
	}
	if got := cv.WorkExperience[0].Responsibilities[0]; got != "Built APIs" {
		t.Errorf("responsibility = %q", got)
	}

	req := f.last()
	var rf struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Schema map[string]any `json:"schema"`
		} `json:"json_schema"`
	}
	if err := json.Unmarshal(req.ResponseFormat, &rf); err != nil {
		t.Fatalf("response_format: %v", err)
	}
	if rf.Type != "json_schema" || rf.JSONSchema.Schema["type"] != "object" {
		t.Errorf("response_format = %s", req.ResponseFormat)
	}
	if !strings.Contains(req.Messages[0].Content, `"target_country": "UK"`) {
		t.Error("user data missing from prompt")
	}
}

func TestCVGenerate_FillsMissingName(t *testing.T) {
	b := NewCVBuilder(newFake(reply(`{"full_name": "", "skills": ["Go"]}`)), nil)
	cv, err := b.Generate(context.Background(), CVInput{FullName: " Ana Lima "})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if cv.FullName != "Ana Lima" {
		t.Errorf("FullName = %q", cv.FullName)
	}
}

func TestCVGenerate_Validation(t *testing.T) {
	f := newFake()
	_, err := NewCVBuilder(f, nil).Generate(context.Background(), CVInput{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Missing[0] != "full_name" {
		t.Fatalf("err = %v, want missing full_name", err)
	}
	if f.calls() != 0 {
		t.Error("completer called for invalid input")
	}
}

func TestCVParse_Failures(t *testing.T) {
	tests := []struct {
		name     string
		result   gateway.Result
		wantKind gateway.FailureKind
		wantMsg  string
	}{
		{"unavailable", gateway.Result{Failure: gateway.HTTPError, StatusCode: 503}, gateway.HTTPError, MsgCVUnavailable},
		{"empty", gateway.Result{Failure: gateway.EmptyResponse}, gateway.EmptyResponse, MsgCVEmpty},
		{"invalid", reply("not json at all"), gateway.MalformedJSON, MsgCVInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCVBuilder(newFake(tt.result), nil).Parse(context.Background(), "Lee Min\nEngineer")
			var werr *Error
			if !errors.As(err, &werr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if werr.Kind != tt.wantKind || werr.Message != tt.wantMsg {
				t.Errorf("err = %+v", werr)
			}
		})
	}
}

func TestCVParse_Success(t *testing.T) {
	f := newFake(reply(cvReply))
	cv, err := NewCVBuilder(f, nil).Parse(context.Background(), "Lee Min\nlee@example.com")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cv.FullName != "Lee Min" || cv.Email != "lee@example.com" {
		t.Errorf("cv = %+v", cv)
	}
	if !strings.Contains(f.last().Messages[0].Content, "lee@example.com") {
		t.Error("cv text missing from prompt")
	}
}

func TestCVParse_EmptyText(t *testing.T) {
	_, err := NewCVBuilder(newFake(), nil).Parse(context.Background(), "   ")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestCV_Document(t *testing.T) {
	var cv CV
	if err := json.Unmarshal([]byte(strings.Replace(cvReply, "}],\n}", "}]\n}", 1)), &cv); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	cv.clean()

	doc := cv.Document()
	if doc.Title != "Lee Min" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.Subtitle != "Seoul, KR | lee@example.com" {
		t.Errorf("Subtitle = %q", doc.Subtitle)
	}

	var headings []string
	for _, b := range doc.Blocks {
		if b.Kind == document.Heading {
			headings = append(headings, b.Text)
		}
	}
	want := []string{"Professional Summary", "Work Experience", "Education", "Skills", "Volunteering"}
	if diff := cmp.Diff(want, headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}

	text := doc.PlainText()
	for _, s := range []string{
		"Engineer, Acme  01/2022 - Present (full-time)",
		"- Built APIs",
		"- BSc, Computer Science",
		"- Result: 3.9 GPA",
		"Go, SQL",
	} {
		if !strings.Contains(text, s) {
			t.Errorf("document missing %q:\n%s", s, text)
		}
	}
}
