package prompt

import (
	"encoding/json"
	"strings"
)

const cvGenerateRules = `You are an expert CV generator. Use the provided information to create a professional CV.
Make the CV highly ATS-friendly with a human-written tone.
Use strong action verbs, for example:
- Leadership: managed, orchestrated.
- Results: achieved, generated, maximised.
- Innovation: designed, implemented, streamlined.
Include quantifiable results where possible.
Write a professional summary highlighting the candidate's goals ONLY IF work experience is provided; otherwise leave "summary" empty.

Rules:
- Return ONLY valid JSON matching the schema below.
- Respect the JSON structure exactly.
- If information is missing, leave the field empty. Do not fabricate.
- Do not include citation markers such as [1].
- The request may ask for one of three formats:
  a) By country: tailor layout and wording to the target country's conventions.
  b) By company: tailor experiences and terminology to the target company and job description, using ATS keywords from it.
  c) By role: tailor experiences and terminology to the target role, using ATS keywords strongly related to it.`

const cvParseRules = `You are an expert CV parser and formatter. Extract structured information from the CV text below.

Rules:
- Return ONLY valid JSON matching the schema below.
- Respect the JSON structure exactly.
- If information is missing, leave the field empty. Do not fabricate.
- Keep any extra sections (for example Languages or Positions of Responsibility) under "additionalSec".
- Dates use mm/yyyy where the CV allows it, or "Present" for ongoing roles.`

// CVGenerate compiles the CV generation prompt. data is rendered as indented
// JSON under the schema.
func CVGenerate(schema json.RawMessage, data any) Prompt {
	var sb strings.Builder
	sb.WriteString(cvGenerateRules)
	sb.WriteString("\n\nSchema:\n")
	sb.Write(indentJSON(schema))
	sb.WriteString("\n\nUser Data:\n")
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		b = []byte("{}")
	}
	sb.Write(b)
	return Prompt{User: sb.String()}
}

// CVParse compiles the prompt that turns uploaded CV text into the schema.
func CVParse(schema json.RawMessage, cvText string) Prompt {
	var sb strings.Builder
	sb.WriteString(cvParseRules)
	sb.WriteString("\n\nSchema:\n")
	sb.Write(indentJSON(schema))
	sb.WriteString("\n\nCV Text:\n\"\"\"\n")
	sb.WriteString(strings.TrimSpace(cvText))
	sb.WriteString("\n\"\"\"")
	return Prompt{User: sb.String()}
}

func indentJSON(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return b
}
