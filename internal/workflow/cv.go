package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/inforens/nori/internal/document"
	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/llmjson"
	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/sanitize"
)

// User-facing CV errors.
const (
	MsgCVUnavailable = "The CV service is unavailable right now. Please try again shortly."
	MsgCVEmpty       = "We didn't get a CV back. Please try again."
	MsgCVInvalid     = "We couldn't read the generated CV. Please try again."
)

// CV is the structured CV produced by generation and upload parsing.
type CV struct {
	FullName       string          `json:"full_name"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Location       string          `json:"location,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Links          []CVLink        `json:"links,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	Languages      []string        `json:"languages_known,omitempty"`
	WorkExperience []CVWork        `json:"work_experience,omitempty"`
	Education      []CVEducation   `json:"education,omitempty"`
	Projects       []CVProject     `json:"projects,omitempty"`
	Certifications []CVCertificate `json:"certifications,omitempty"`
	Additional     []CVSection     `json:"additionalSec,omitempty"`
}

type CVLink struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type CVWork struct {
	JobTitle         string   `json:"job_title,omitempty"`
	CompanyName      string   `json:"company_name,omitempty"`
	TypeOfWork       string   `json:"type_of_work,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements     []string `json:"achievements,omitempty"`
}

type CVEducation struct {
	UniversityName string `json:"university_name,omitempty"`
	Course         string `json:"course,omitempty"`
	Discipline     string `json:"discipline,omitempty"`
	Level          string `json:"level,omitempty"`
	Location       string `json:"location,omitempty"`
	Country        string `json:"country,omitempty"`
	Results        string `json:"results,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
}

type CVProject struct {
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
}

type CVCertificate struct {
	Name         string `json:"name"`
	Organisation string `json:"organisation,omitempty"`
	Date         string `json:"date,omitempty"`
	Type         string `json:"type,omitempty"`
}

type CVSection struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// CVSchema is the JSON schema sent as the structured response format.
var CVSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "full_name": {"type": "string"},
    "email": {"type": "string"},
    "phone": {"type": "string"},
    "location": {"type": "string"},
    "summary": {"type": "string"},
    "links": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "url": {"type": "string"}}}},
    "skills": {"type": "array", "items": {"type": "string"}},
    "languages_known": {"type": "array", "items": {"type": "string"}},
    "work_experience": {"type": "array", "items": {"type": "object", "properties": {
      "job_title": {"type": "string"}, "company_name": {"type": "string"}, "type_of_work": {"type": "string"},
      "start_date": {"type": "string"}, "end_date": {"type": "string"},
      "responsibilities": {"type": "array", "items": {"type": "string"}},
      "achievements": {"type": "array", "items": {"type": "string"}}}}},
    "education": {"type": "array", "items": {"type": "object", "properties": {
      "university_name": {"type": "string"}, "course": {"type": "string"}, "discipline": {"type": "string"},
      "level": {"type": "string"}, "location": {"type": "string"}, "country": {"type": "string"},
      "results": {"type": "string"}, "start_date": {"type": "string"}, "end_date": {"type": "string"}}}},
    "projects": {"type": "array", "items": {"type": "object", "properties": {
      "title": {"type": "string"}, "type": {"type": "string"}, "link": {"type": "string"}, "description": {"type": "string"}}}},
    "certifications": {"type": "array", "items": {"type": "object", "properties": {
      "name": {"type": "string"}, "organisation": {"type": "string"}, "date": {"type": "string"}, "type": {"type": "string"}},
      "required": ["name"]}},
    "additionalSec": {"type": "array", "items": {"type": "object", "properties": {
      "title": {"type": "string"}, "desc": {"type": "string"}}, "required": ["title", "desc"]}}
  },
  "required": ["full_name"]
}`)

// cvResponseFormat wraps CVSchema as a json_schema response format.
var cvResponseFormat = func() json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"type":        "json_schema",
		"json_schema": map[string]json.RawMessage{"schema": CVSchema},
	})
	return b
}()

// CVInput is the form data a CV is generated from. Experience and education
// may be free text or structured JSON.
type CVInput struct {
	FullName       string          `json:"full_name"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	LinkedIn       string          `json:"linkedin,omitempty"`
	Location       string          `json:"location,omitempty"`
	TargetCountry  string          `json:"target_country,omitempty"`
	TargetCompany  string          `json:"target_company,omitempty"`
	TargetRole     string          `json:"target_role,omitempty"`
	JobDescription string          `json:"job_description,omitempty"`
	CVLength       string          `json:"cv_length,omitempty"`
	Style          string          `json:"style,omitempty"`
	Skills         string          `json:"skills,omitempty"`
	Certificates   string          `json:"certificates,omitempty"`
	Projects       string          `json:"projects,omitempty"`
	WorkExperience json.RawMessage `json:"work_experience,omitempty"`
	Education      json.RawMessage `json:"education,omitempty"`
}

// CVBuilder generates CVs from form data and parses uploaded CV text.
type CVBuilder struct {
	completer gateway.Completer
	logger    *slog.Logger
}

// NewCVBuilder creates the CV workflow.
func NewCVBuilder(c gateway.Completer, logger *slog.Logger) *CVBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CVBuilder{completer: c, logger: logger.With("workflow", "cv")}
}

// Generate drafts a structured CV from form data.
func (b *CVBuilder) Generate(ctx context.Context, in CVInput) (*CV, error) {
	if err := required([2]string{"full_name", in.FullName}); err != nil {
		return nil, err
	}

	cv, err := b.complete(ctx, prompt.CVGenerate(CVSchema, in), "generate")
	if err != nil {
		return nil, err
	}
	if cv.FullName == "" {
		cv.FullName = strings.TrimSpace(in.FullName)
	}
	return cv, nil
}

// Parse structures the text of an uploaded CV.
func (b *CVBuilder) Parse(ctx context.Context, text string) (*CV, error) {
	if err := required([2]string{"file", text}); err != nil {
		return nil, err
	}
	return b.complete(ctx, prompt.CVParse(CVSchema, text), "parse")
}

func (b *CVBuilder) complete(ctx context.Context, p prompt.Prompt, op string) (*CV, error) {
	log := b.logger.With("op", op)

	res := b.completer.Complete(ctx, gateway.Request{
		Messages:       p.Messages(),
		ResponseFormat: cvResponseFormat,
	})
	if !res.OK() {
		msg := MsgCVUnavailable
		if res.Failure == gateway.EmptyResponse {
			msg = MsgCVEmpty
		}
		log.Warn("cv completion failed", "failure", res.Failure, "status", res.StatusCode, "detail", res.Detail)
		return nil, &Error{Workflow: "cv", Kind: res.Failure, Message: msg, Detail: res.Detail}
	}

	var cv CV
	if err := llmjson.Decode(res.Text, &cv); err != nil {
		log.Warn("cv reply not parseable", "failure", gateway.MalformedJSON, "error", err)
		return nil, &Error{Workflow: "cv", Kind: gateway.MalformedJSON, Message: MsgCVInvalid, Detail: err.Error()}
	}
	cv.clean()

	log.Info("cv built", "failure", gateway.FailureNone, "sections", len(cv.Document().Blocks))
	return &cv, nil
}

// clean strips citation markers from free-text fields.
func (cv *CV) clean() {
	cv.FullName = strings.TrimSpace(cv.FullName)
	cv.Summary = sanitize.RemoveCitations(cv.Summary)
	for i := range cv.WorkExperience {
		w := &cv.WorkExperience[i]
		w.Responsibilities = cleanList(w.Responsibilities)
		w.Achievements = cleanList(w.Achievements)
	}
	for i := range cv.Projects {
		cv.Projects[i].Description = sanitize.RemoveCitations(cv.Projects[i].Description)
	}
	for i := range cv.Additional {
		cv.Additional[i].Desc = sanitize.RemoveCitations(cv.Additional[i].Desc)
	}
	cv.Skills = cleanList(cv.Skills)
}

func cleanList(items []string) []string {
	out := items[:0]
	for _, it := range items {
		if it = sanitize.RemoveCitations(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// Document lays the CV out for PDF and DOCX rendering.
func (cv *CV) Document() document.Document {
	doc := document.Document{Title: cv.FullName}

	var contact []string
	for _, s := range []string{cv.Location, cv.Email, cv.Phone} {
		if s = strings.TrimSpace(s); s != "" {
			contact = append(contact, s)
		}
	}
	for _, l := range cv.Links {
		if l.URL != "" {
			contact = append(contact, l.URL)
		}
	}
	doc.Subtitle = strings.Join(contact, " | ")

	add := func(kind document.BlockKind, label, text string) {
		text = strings.TrimSpace(text)
		if strings.TrimSpace(label) == "" {
			label = ""
		}
		if text == "" {
			if label == "" {
				return
			}
			label, text = "", strings.TrimSpace(label)
		}
		doc.Blocks = append(doc.Blocks, document.Block{Kind: kind, Label: label, Text: text})
	}
	heading := func(title string) { add(document.Heading, "", title) }

	if cv.Summary != "" {
		heading("Professional Summary")
		add(document.Paragraph, "", cv.Summary)
	}
	if len(cv.WorkExperience) > 0 {
		heading("Work Experience")
		for _, w := range cv.WorkExperience {
			add(document.Paragraph, joinParts(w.JobTitle, w.CompanyName)+"  ", dateRange(w.StartDate, w.EndDate, w.TypeOfWork))
			for _, r := range w.Responsibilities {
				add(document.Bullet, "", r)
			}
			for _, a := range w.Achievements {
				add(document.Bullet, "", a)
			}
		}
	}
	if len(cv.Education) > 0 {
		heading("Education")
		for _, e := range cv.Education {
			course := joinParts(e.Level, e.Course, e.Discipline)
			add(document.Paragraph, joinParts(e.UniversityName, e.Location, e.Country)+"  ", dateRange(e.StartDate, e.EndDate, ""))
			add(document.Bullet, "", course)
			if e.Results != "" {
				add(document.Bullet, "Result: ", e.Results)
			}
		}
	}
	if len(cv.Skills) > 0 {
		heading("Skills")
		add(document.Paragraph, "", strings.Join(cv.Skills, ", "))
	}
	if len(cv.Languages) > 0 {
		heading("Languages")
		add(document.Paragraph, "", strings.Join(cv.Languages, ", "))
	}
	if len(cv.Projects) > 0 {
		heading("Projects")
		for _, p := range cv.Projects {
			label := p.Title
			if label != "" {
				label += ": "
			}
			add(document.Bullet, label, joinParts(p.Description, p.Link))
		}
	}
	if len(cv.Certifications) > 0 {
		heading("Certifications")
		for _, c := range cv.Certifications {
			add(document.Bullet, "", joinParts(c.Name, c.Organisation, c.Date))
		}
	}
	for _, s := range cv.Additional {
		heading(s.Title)
		add(document.Paragraph, "", s.Desc)
	}
	return doc
}

func joinParts(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func dateRange(start, end, kind string) string {
	s := strings.TrimSpace(start)
	if e := strings.TrimSpace(end); e != "" {
		if s != "" {
			s += " - "
		}
		s += e
	}
	if kind = strings.TrimSpace(kind); kind != "" {
		if s != "" {
			s += " "
		}
		s += "(" + kind + ")"
	}
	return s
}
