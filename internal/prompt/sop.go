package prompt

import (
	"fmt"
	"strings"
)

// DefaultTone is used when an SOP request does not name one.
const DefaultTone = "Formal"

// SOPDetails are the applicant facts a statement of purpose is written from.
type SOPDetails struct {
	Name             string `json:"name"`
	CountryOfOrigin  string `json:"country_of_origin"`
	IntendedDegree   string `json:"intended_degree"`
	PreferredCountry string `json:"preferred_country"`
	FieldOfStudy     string `json:"field_of_study"`
	PreferredUni     string `json:"preferred_uni"`
	WordCountTarget  int    `json:"word_count_target,omitempty"`
	Tone             string `json:"tone,omitempty"`

	Degree                  string `json:"degree,omitempty"`
	QualificationUniversity string `json:"qualification_university,omitempty"`
	GraduationYear          string `json:"graduation_year,omitempty"`
	RelevantSubjects        string `json:"relevant_subjects,omitempty"`
	KeySkills               string `json:"key_skills,omitempty"`
	Strengths               string `json:"strengths,omitempty"`
	WhyField                string `json:"why_field,omitempty"`
	WhyUni                  string `json:"why_uni,omitempty"`
	Projects                string `json:"projects,omitempty"`
	Awards                  string `json:"awards,omitempty"`
	Goals                   string `json:"goals,omitempty"`
	Hobbies                 string `json:"hobbies,omitempty"`
	Challenge               string `json:"challenge,omitempty"`
}

// SOP compiles the statement-of-purpose prompt. The brief is written in the
// applicant's voice.
func SOP(d SOPDetails) Prompt {
	tone := strings.TrimSpace(d.Tone)
	if tone == "" {
		tone = DefaultTone
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I am %s, I am from %s. I want to study %s in %s. ",
		d.Name, d.CountryOfOrigin, d.IntendedDegree, d.PreferredCountry)
	fmt.Fprintf(&sb, "My preferred field of study is %s. ", d.FieldOfStudy)
	fmt.Fprintf(&sb, "My preferred university is %s. ", d.PreferredUni)
	sb.WriteString("I want you to write me a statement of purpose")
	if d.WordCountTarget > 0 {
		fmt.Fprintf(&sb, " of about %d words", d.WordCountTarget)
	}
	sb.WriteString(".\n")

	sb.WriteString("Make sure the statement is ATS friendly and reads as if a person wrote it, not an AI. ")
	fmt.Fprintf(&sb, "Use a %s tone. ", tone)
	sb.WriteString("Only respond with the statement text, without explanations or additional messages. ")
	sb.WriteString("Exclude all inline citations and footnote markers.\n")

	optional := []struct{ label, value string }{
		{"My academic qualifications include a degree in", d.Degree},
		{"I received my academic qualification from", d.QualificationUniversity},
		{"My academic qualifications were completed in", d.GraduationYear},
		{"My relevant subjects within the degree are", d.RelevantSubjects},
		{"My key skills are", d.KeySkills},
		{"My strengths are", d.Strengths},
		{"I want to pursue this field because", d.WhyField},
		{"I chose this university because", d.WhyUni},
		{"Projects I have done:", d.Projects},
		{"Awards I have received:", d.Awards},
		{"My long term goals are", d.Goals},
		{"In my free time I like to", d.Hobbies},
		{"More about me:", d.Challenge},
	}

	var details strings.Builder
	for _, o := range optional {
		if v := strings.TrimRight(strings.TrimSpace(o.value), "."); v != "" {
			fmt.Fprintf(&details, "%s %s.\n", o.label, v)
		}
	}
	if details.Len() > 0 {
		sb.WriteString("Here are my details:\n")
		sb.WriteString(details.String())
	}

	return Prompt{User: strings.TrimSpace(sb.String())}
}
