package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPAsk(t *testing.T) {
	asker := &fakeAsker{answer: workflow.StructuredAnswer{Answer: "Yes.", Links: []string{"https://example.com/a"}}}
	deps := MCPDeps{Chat: asker}

	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]any{
		"question":   "Can I work while studying?",
		"session_id": "abc",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var out struct {
		Answer    string   `json:"answer"`
		Links     []string `json:"links"`
		SessionID string   `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("decoding tool output: %v", err)
	}
	if out.Answer != "Yes." || out.SessionID != "abc" || len(out.Links) != 1 {
		t.Errorf("output = %+v", out)
	}
}

func TestMCPAsk_NewSessionPerCall(t *testing.T) {
	asker := &fakeAsker{answer: workflow.StructuredAnswer{Answer: "ok", Links: []string{"https://example.com"}}}
	handler := mcpAsk(MCPDeps{Chat: asker})

	for i := 0; i < 2; i++ {
		if _, err := handler(context.Background(), makeCallToolRequest("ask", map[string]any{"question": "hi"})); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(asker.sessions) != 2 || asker.sessions[0] == "" || asker.sessions[0] == asker.sessions[1] {
		t.Errorf("sessions = %v, want two distinct generated ids", asker.sessions)
	}
}

func TestMCPAsk_MissingQuestion(t *testing.T) {
	result, err := mcpAsk(MCPDeps{Chat: &fakeAsker{}})(context.Background(), makeCallToolRequest("ask", map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing question")
	}
}

func TestMCPFindScholarships(t *testing.T) {
	schol := &fakeScholarships{res: workflow.ScholarshipResult{
		Scholarships: []workflow.ScholarshipItem{{Name: "Fulbright"}},
	}}

	result, err := mcpFindScholarships(MCPDeps{Scholarships: schol})(context.Background(), makeCallToolRequest("find_scholarships", map[string]any{
		"citizenship":            "Nepal",
		"preferred_country":      "USA",
		"level":                  "PhD",
		"field":                  "Physics",
		"preferred_universities": []any{"MIT", "Caltech"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "Fulbright") {
		t.Errorf("output = %s", toolText(t, result))
	}
	if schol.got.Level != "PhD" || len(schol.got.PreferredUniversities) != 2 {
		t.Errorf("profile = %+v", schol.got)
	}
}

func TestMCPGenerateSOP_Failure(t *testing.T) {
	sop := &fakeSOP{err: &workflow.Error{Workflow: "sop", Kind: gateway.Unreachable, Message: workflow.MsgSOPFailed, Detail: "dial tcp"}}

	result, err := mcpGenerateSOP(MCPDeps{SOP: sop})(context.Background(), makeCallToolRequest("generate_sop", map[string]any{
		"name":              "Asha",
		"word_count_target": float64(600),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if got := toolText(t, result); got != workflow.MsgSOPFailed {
		t.Errorf("message = %q, want %q", got, workflow.MsgSOPFailed)
	}
	if sop.got.WordCountTarget != 600 {
		t.Errorf("WordCountTarget = %d, want 600", sop.got.WordCountTarget)
	}
}

func TestMCPResourceRecent(t *testing.T) {
	store := openTestStore(t)
	long := strings.Repeat("é", 250)
	if err := store.SaveQuery(&storage.Query{Question: long, Success: true}); err != nil {
		t.Fatalf("SaveQuery: %v", err)
	}

	contents, err := mcpResourceRecent(MCPDeps{Store: store})(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "nori://queries/recent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text := contents[0].(mcp.TextResourceContents).Text

	var items []struct {
		Question string `json:"question"`
		Success  bool   `json:"success"`
	}
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if len(items) != 1 || !items[0].Success {
		t.Fatalf("items = %+v", items)
	}
	if !strings.HasSuffix(items[0].Question, "...") || len([]rune(items[0].Question)) != 203 {
		t.Errorf("question not truncated to 200 runes: %d runes", len([]rune(items[0].Question)))
	}
}

func TestNewMCPServer(t *testing.T) {
	if s := NewMCPServer(MCPDeps{Chat: &fakeAsker{}}, "test"); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
