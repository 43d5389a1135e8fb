package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/workflow"
)

// MCPDeps holds dependencies for the MCP server. Store may be nil, in which
// case the recent-queries resource is not registered.
type MCPDeps struct {
	Chat         Asker
	Scholarships ScholarshipFinder
	SOP          SOPGenerator
	Store        QueryStore
}

// NewMCPServer creates an MCP server exposing the assistant workflows as tools.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nori",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("nori answers study-abroad questions from approved reference content, finds scholarships and drafts statements of purpose."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the study-abroad assistant a question. Answers cite only approved links."),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation id; omit to start a new conversation")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("find_scholarships",
			mcp.WithDescription("Recommend scholarships for a student profile."),
			mcp.WithString("citizenship", mcp.Description("Student's citizenship"), mcp.Required()),
			mcp.WithString("preferred_country", mcp.Description("Country the student wants to study in"), mcp.Required()),
			mcp.WithString("level", mcp.Description("Level of study, e.g. Masters"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Field of study"), mcp.Required()),
			mcp.WithArray("preferred_universities", mcp.Description("Universities the student prefers"), mcp.WithStringItems()),
			mcp.WithString("course_intake", mcp.Description("Intended intake, e.g. Sep 2026")),
			mcp.WithString("academic_perf", mcp.Description("Academic performance, e.g. GPA")),
			mcp.WithString("gender", mcp.Description("Gender")),
			mcp.WithString("disability", mcp.Description("Disability, if any")),
			mcp.WithString("extracurricular", mcp.Description("Extracurricular activities")),
		),
		mcpFindScholarships(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_sop",
			mcp.WithDescription("Draft a statement of purpose for a university application."),
			mcp.WithString("name", mcp.Description("Applicant name"), mcp.Required()),
			mcp.WithString("country_of_origin", mcp.Description("Applicant's home country"), mcp.Required()),
			mcp.WithString("intended_degree", mcp.Description("Degree applied for"), mcp.Required()),
			mcp.WithString("preferred_country", mcp.Description("Country of study"), mcp.Required()),
			mcp.WithString("field_of_study", mcp.Description("Field of study"), mcp.Required()),
			mcp.WithString("preferred_uni", mcp.Description("University applied to"), mcp.Required()),
			mcp.WithNumber("word_count_target", mcp.Description("Approximate length in words")),
			mcp.WithString("tone", mcp.Description("Tone of the statement (default Formal)")),
			mcp.WithString("key_skills", mcp.Description("Key skills")),
			mcp.WithString("goals", mcp.Description("Career goals")),
			mcp.WithString("why_uni", mcp.Description("Why this university")),
		),
		mcpGenerateSOP(deps),
	)

	if deps.Store != nil {
		s.AddResource(
			mcp.NewResource(
				"nori://queries/recent",
				"Recent Questions",
				mcp.WithResourceDescription("Last 10 answered questions"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecent(deps),
		)
	}

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		sessionID := req.GetString("session_id", "")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		ans, err := deps.Chat.Ask(ctx, sessionID, question)
		if err != nil {
			return mcpWorkflowError(err), nil
		}
		return mcpJSON(map[string]any{
			"answer":     ans.Answer,
			"links":      ans.Links,
			"session_id": sessionID,
		})
	}
}

func mcpFindScholarships(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sp := prompt.ScholarshipProfile{
			Citizenship:           req.GetString("citizenship", ""),
			PreferredCountry:      req.GetString("preferred_country", ""),
			Level:                 req.GetString("level", ""),
			Field:                 req.GetString("field", ""),
			PreferredUniversities: req.GetStringSlice("preferred_universities", nil),
			CourseIntake:          req.GetString("course_intake", ""),
			AcademicPerformance:   req.GetString("academic_perf", ""),
			Gender:                req.GetString("gender", ""),
			Disability:            req.GetString("disability", ""),
			Extracurricular:       req.GetString("extracurricular", ""),
		}
		res, err := deps.Scholarships.Find(ctx, sp)
		if err != nil {
			return mcpWorkflowError(err), nil
		}
		return mcpJSON(res.Scholarships)
	}
}

func mcpGenerateSOP(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		d := prompt.SOPDetails{
			Name:             req.GetString("name", ""),
			CountryOfOrigin:  req.GetString("country_of_origin", ""),
			IntendedDegree:   req.GetString("intended_degree", ""),
			PreferredCountry: req.GetString("preferred_country", ""),
			FieldOfStudy:     req.GetString("field_of_study", ""),
			PreferredUni:     req.GetString("preferred_uni", ""),
			WordCountTarget:  req.GetInt("word_count_target", 0),
			Tone:             req.GetString("tone", ""),
			KeySkills:        req.GetString("key_skills", ""),
			Goals:            req.GetString("goals", ""),
			WhyUni:           req.GetString("why_uni", ""),
		}
		res, err := deps.SOP.Generate(ctx, d)
		if err != nil {
			return mcpWorkflowError(err), nil
		}
		return mcpText(res.SOP), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		queries, err := deps.Store.ListQueries(10, 0)
		if err != nil {
			return nil, fmt.Errorf("listing recent queries: %w", err)
		}

		type querySummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Question  string `json:"question"`
			Success   bool   `json:"success"`
		}

		summaries := make([]querySummary, len(queries))
		for i, q := range queries {
			question := q.Question
			if utf8.RuneCountInString(question) > 200 {
				question = string([]rune(question)[:200]) + "..."
			}
			summaries[i] = querySummary{
				ID:        q.ID,
				CreatedAt: q.CreatedAt.Format(time.RFC3339),
				Question:  question,
				Success:   q.Success,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("marshaling queries: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpWorkflowError(err error) *mcp.CallToolResult {
	var werr *workflow.Error
	if errors.As(err, &werr) {
		return mcpError(werr.Message)
	}
	return mcpError(err.Error())
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
