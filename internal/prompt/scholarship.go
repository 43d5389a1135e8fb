package prompt

import (
	"strings"
)

// ScholarshipProfile is the student profile a scholarship search is run for.
type ScholarshipProfile struct {
	Citizenship           string   `json:"citizenship"`
	PreferredCountry      string   `json:"preferred_country"`
	Level                 string   `json:"level"`
	Field                 string   `json:"field"`
	PreferredUniversities []string `json:"preferred_universities,omitempty"`
	CourseIntake          string   `json:"course_intake,omitempty"`
	AcademicPerformance   string   `json:"academic_perf,omitempty"`
	DateOfBirth           string   `json:"dob,omitempty"`
	Gender                string   `json:"gender,omitempty"`
	Disability            string   `json:"disability,omitempty"`
	Extracurricular       string   `json:"extracurricular,omitempty"`
}

const scholarshipContract = `Based on this information, recommend relevant scholarships for this student. If no exact matches exist, recommend the closest applicable international scholarships.
Do NOT return an empty list unless no scholarships exist worldwide.
Respond ONLY with a SINGLE valid JSON object with a key "scholarships" whose value is an array of objects, each with:
  - "name": name of the scholarship.
  - "description": a SHORT description of the scholarship, maximum 20 words.
  - "deadline": the (approximate) deadline in mmm dd, yyyy format.

Example output:
{
  "scholarships": [
    {
      "name": "Commonwealth Scholarship",
      "description": "Covers tuition and living expenses for postgraduate study in the UK for eligible Commonwealth students.",
      "deadline": "Dec 12, 2025"
    }
  ]
}

The scholarships recommended must be relevant to the student's profile.
Do not add any explanations or text before or after the JSON.
Do not include citation markers such as [1].
Ensure the JSON you return is syntactically valid and parseable.`

// Scholarship compiles the scholarship search prompt.
func Scholarship(sp ScholarshipProfile) Prompt {
	var sb strings.Builder
	sb.WriteString("You are an expert on global scholarships. A student has provided their profile details:\n\n")

	line(&sb, "Citizenship", sp.Citizenship)
	line(&sb, "Desired level of study", sp.Level)
	line(&sb, "Preferred field of study", sp.Field)
	line(&sb, "Academic performance", sp.AcademicPerformance)
	line(&sb, "Disability", sp.Disability)
	line(&sb, "Preferred country of study", sp.PreferredCountry)
	line(&sb, "Preferred universities", joinNonEmpty(sp.PreferredUniversities))
	line(&sb, "Course intake", sp.CourseIntake)
	line(&sb, "Date of birth", sp.DateOfBirth)
	line(&sb, "Gender", sp.Gender)
	line(&sb, "Extracurricular activities", sp.Extracurricular)

	return Prompt{User: sb.String() + "\n" + scholarshipContract}
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ", ")
}
