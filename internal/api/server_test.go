package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

type testEnv struct {
	handler http.Handler
	asker   *fakeAsker
	schol   *fakeScholarships
	sop     *fakeSOP
	cv      *fakeCV
	store   *storage.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		asker: &fakeAsker{answer: workflow.StructuredAnswer{
			Answer: "Apply early.",
			Links:  []string{"https://example.com/guides"},
		}},
		schol: &fakeScholarships{},
		sop:   &fakeSOP{},
		cv:    &fakeCV{},
		store: openTestStore(t),
	}
	env.handler = NewHandler(Deps{
		Chat:         env.asker,
		Scholarships: env.schol,
		SOP:          env.sop,
		CV:           env.cv,
		Store:        env.store,
		Model:        "sonar",
	})
	return env
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) (msg, typ string) {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error.Message, body.Error.Type
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/api/health"} {
		rr := env.do(http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", path, rr.Code, http.StatusOK)
		}
		if !strings.Contains(rr.Body.String(), `"ok"`) {
			t.Errorf("%s body = %q", path, rr.Body.String())
		}
	}
}

func TestAsk_SavesQuery(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/ask", `{"question":"  How do I apply?  ","sessionId":"s1","userId":"u1"}`,
		"User-Agent", "test-agent", "X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp askResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "Apply early." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.MessageID == "" {
		t.Fatal("messageId is empty")
	}
	if len(env.asker.sessions) != 1 || env.asker.sessions[0] != "s1" {
		t.Errorf("sessions = %v, want [s1]", env.asker.sessions)
	}

	q, err := env.store.GetQuery(resp.MessageID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	want := storage.Query{
		ID:        resp.MessageID,
		CreatedAt: q.CreatedAt,
		SessionID: "s1",
		UserID:    "u1",
		Workflow:  "chat",
		Question:  "How do I apply?",
		Answer:    "Apply early.",
		Links:     []string{"https://example.com/guides"},
		Model:     "sonar",
		LatencyMS: resp.LatencyMS,
		Success:   true,
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("stored query mismatch (-want +got):\n%s", diff)
	}
}

func TestAsk_FallbackRecordedAsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.asker.answer = workflow.StructuredAnswer{
		Answer:  workflow.MsgUnavailable,
		Links:   []string{"https://example.com/contact-us"},
		Failure: gateway.Unreachable,
	}

	rr := env.do(http.MethodPost, "/api/ask", `{"question":"hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for fallback replies", rr.Code)
	}
	var resp askResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	q, err := env.store.GetQuery(resp.MessageID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if q.Success || q.FailureKind != "unreachable" {
		t.Errorf("success = %v, failure_kind = %q; want false, unreachable", q.Success, q.FailureKind)
	}
}

func TestAsk_RenderFormat(t *testing.T) {
	env := newTestEnv(t)
	env.asker.answer = workflow.StructuredAnswer{
		Answer: "See https://example.com/guides.",
		Links:  []string{"https://example.com/guides"},
	}

	rr := env.do(http.MethodPost, "/api/ask", `{"question":"where?","format":"html"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp askResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if !strings.Contains(resp.Answer, `<a href="https://example.com/guides"`) {
		t.Errorf("answer = %q, want an anchor", resp.Answer)
	}

	// The log keeps the plain answer.
	q, err := env.store.GetQuery(resp.MessageID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if q.Answer != "See https://example.com/guides." {
		t.Errorf("stored answer = %q", q.Answer)
	}

	if rr := env.do(http.MethodPost, "/api/ask", `{"question":"q","format":"rtf"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d, want 400", rr.Code)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/ask", `{"question":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if _, typ := errorBody(t, rr); typ != "invalid_request_error" {
		t.Errorf("error type = %q", typ)
	}
	if n, _ := env.store.CountQueries(); n != 0 {
		t.Errorf("stored %d queries for a rejected request", n)
	}
}

func TestAsk_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/ask", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAsk_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)

	body := `{"question":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	rr := env.do(http.MethodPost, "/api/ask", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t)

	q := &storage.Query{Question: "q"}
	if err := env.store.SaveQuery(q); err != nil {
		t.Fatalf("SaveQuery: %v", err)
	}

	rr := env.do(http.MethodPost, "/api/feedback", `{"messageId":"`+q.ID+`","thumbsUp":true,"feedback":"great"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	got, _ := env.store.GetQuery(q.ID)
	if !got.ThumbsUp || got.Feedback != "great" {
		t.Errorf("feedback not stored: %+v", got)
	}

	rr = env.do(http.MethodPost, "/api/feedback", `{"thumbsUp":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", rr.Code)
	}

	rr = env.do(http.MethodPost, "/api/feedback", `{"messageId":"nope"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rr.Code)
	}
}

func TestQueries(t *testing.T) {
	env := newTestEnv(t)

	for _, question := range []string{"a", "b", "c"} {
		env.do(http.MethodPost, "/api/ask", `{"question":"`+question+`"}`)
	}

	rr := env.do(http.MethodGet, "/api/queries?limit=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var list struct {
		Queries []storage.Query `json:"queries"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(list.Queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(list.Queries))
	}

	rr = env.do(http.MethodGet, "/api/queries/"+list.Queries[0].ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	if rr := env.do(http.MethodGet, "/api/queries/missing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/queries?limit=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rr.Code)
	}
}

func TestScholarships(t *testing.T) {
	env := newTestEnv(t)
	env.schol.res = workflow.ScholarshipResult{
		Scholarships: []workflow.ScholarshipItem{{Name: "Chevening", Description: "UK", Deadline: "Nov 05, 2026"}},
		Prompt:       "p",
	}

	rr := env.do(http.MethodPost, "/api/scholarships",
		`{"citizenship":"India","preferred_country":"UK","level":"Masters","field":"CS","preferred_universities":["UCL"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if env.schol.got.Citizenship != "India" || len(env.schol.got.PreferredUniversities) != 1 {
		t.Errorf("profile = %+v", env.schol.got)
	}
	var res workflow.ScholarshipResult
	json.NewDecoder(rr.Body).Decode(&res)
	if diff := cmp.Diff(env.schol.res, res); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkflowErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "validation",
			err:      &workflow.ValidationError{Missing: []string{"citizenship", "level"}},
			wantCode: http.StatusBadRequest,
			wantMsg:  "missing required fields: citizenship, level",
		},
		{
			name:     "upstream",
			err:      &workflow.Error{Workflow: "scholarships", Kind: gateway.HTTPError, Message: workflow.MsgScholarshipConnect, Detail: "secret upstream body"},
			wantCode: http.StatusBadGateway,
			wantMsg:  workflow.MsgScholarshipConnect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.schol.err = tt.err

			rr := env.do(http.MethodPost, "/api/scholarships", `{}`)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			msg, _ := errorBody(t, rr)
			if msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestSOP(t *testing.T) {
	env := newTestEnv(t)
	env.sop.res = workflow.SOPResult{SOP: "I am Asha.", Prompt: "p", WordCount: 3}

	rr := env.do(http.MethodPost, "/api/sop", `{"name":"Asha","tone":"Warm"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if env.sop.got.Name != "Asha" || env.sop.got.Tone != "Warm" {
		t.Errorf("details = %+v", env.sop.got)
	}
	if !strings.Contains(rr.Body.String(), `"word_count":3`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestSOPDownload(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/sop/download/pdf", `{"sop":"First paragraph.\n\nSecond paragraph.","name":"Asha"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("pdf status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "statement_of_purpose.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rr = env.do(http.MethodPost, "/api/sop/download/docx", `{"sop":"Text"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("docx status = %d", rr.Code)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip package")
	}

	if rr := env.do(http.MethodPost, "/api/sop/download/odt", `{"sop":"Text"}`); rr.Code != http.StatusNotFound {
		t.Errorf("unknown format status = %d, want 404", rr.Code)
	}
	if rr := env.do(http.MethodPost, "/api/sop/download/pdf", `{"sop":"  "}`); rr.Code != http.StatusBadRequest {
		t.Errorf("empty sop status = %d, want 400", rr.Code)
	}
}

func TestCV(t *testing.T) {
	env := newTestEnv(t)
	env.cv.cv = &workflow.CV{FullName: "Asha Rao", Skills: []string{"Go"}}

	rr := env.do(http.MethodPost, "/api/cv", `{"full_name":"Asha Rao","skills":"Go"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var cv workflow.CV
	json.NewDecoder(rr.Body).Decode(&cv)
	if diff := cmp.Diff(*env.cv.cv, cv); diff != "" {
		t.Errorf("cv mismatch (-want +got):\n%s", diff)
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/cv/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCVUpload(t *testing.T) {
	env := newTestEnv(t)
	env.cv.cv = &workflow.CV{FullName: "Asha Rao"}

	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, uploadRequest(t, "cv.txt", []byte("Asha Rao\nGo developer\n")))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if env.cv.parsedText != "Asha Rao\nGo developer" {
		t.Errorf("parsed text = %q", env.cv.parsedText)
	}

	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, uploadRequest(t, "cv.exe", []byte("MZ")))
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("unsupported status = %d, want 415", rr.Code)
	}

	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, uploadRequest(t, "cv.txt", []byte("   ")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank file status = %d, want 400", rr.Code)
	}
}

func TestCVDownload(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/cv/download/docx", `{"full_name":"Asha Rao","skills":["Go","SQL"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("structured status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "wordprocessingml") {
		t.Errorf("Content-Type = %q", ct)
	}

	rr = env.do(http.MethodPost, "/api/cv/download/pdf", `{"text":"# Asha Rao\n- Go"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("text status = %d", rr.Code)
	}

	if rr := env.do(http.MethodPost, "/api/cv/download/pdf", `{}`); rr.Code != http.StatusBadRequest {
		t.Errorf("empty status = %d, want 400", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Errorf("clientIP = %q, want 192.0.2.1", got)
	}
	req.Header.Set("X-Forwarded-For", " 198.51.100.2 ")
	if got := clientIP(req); got != "198.51.100.2" {
		t.Errorf("clientIP = %q, want 198.51.100.2", got)
	}
}
