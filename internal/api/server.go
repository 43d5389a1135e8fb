package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

const (
	maxRequestBodySize = 1 << 20  // 1MB
	maxUploadSize      = 10 << 20 // 10MB
)

// Asker answers chat questions.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (workflow.StructuredAnswer, error)
}

// ScholarshipFinder recommends scholarships for a profile.
type ScholarshipFinder interface {
	Find(ctx context.Context, sp prompt.ScholarshipProfile) (workflow.ScholarshipResult, error)
}

// SOPGenerator writes statements of purpose.
type SOPGenerator interface {
	Generate(ctx context.Context, d prompt.SOPDetails) (workflow.SOPResult, error)
}

// CVService drafts CVs from form data and structures uploaded CVs.
type CVService interface {
	Generate(ctx context.Context, in workflow.CVInput) (*workflow.CV, error)
	Parse(ctx context.Context, text string) (*workflow.CV, error)
}

// QueryStore persists answered questions and their feedback.
type QueryStore interface {
	SaveQuery(q *storage.Query) error
	GetQuery(id string) (storage.Query, error)
	ListQueries(limit, offset int) ([]storage.Query, error)
	UpdateFeedback(id string, fb storage.Feedback) error
}

// Deps holds the collaborators of the HTTP API.
type Deps struct {
	Chat         Asker
	Scholarships ScholarshipFinder
	SOP          SOPGenerator
	CV           CVService
	Store        QueryStore
	// Model is recorded on every stored query.
	Model  string
	Logger *slog.Logger
}

type handler struct {
	Deps
	log *slog.Logger
}

// NewHandler returns the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	h := &handler{Deps: deps, log: deps.Logger}
	if h.log == nil {
		h.log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth)
		r.Post("/ask", h.handleAsk)
		r.Post("/feedback", h.handleFeedback)
		r.Get("/queries", h.handleListQueries)
		r.Get("/queries/{id}", h.handleGetQuery)

		r.Post("/scholarships", h.handleScholarships)
		r.Post("/sop", h.handleSOP)
		r.Post("/sop/download/{format}", h.handleSOPDownload)
		r.Post("/cv", h.handleCV)
		r.Post("/cv/upload", h.handleCVUpload)
		r.Post("/cv/download/{format}", h.handleCVDownload)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// decodeJSON reads a size-capped JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "request body exceeds %d bytes", tooLarge.Limit)
			return false
		}
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// workflowError maps workflow failures onto HTTP statuses. Only the
// user-facing message of a *workflow.Error is exposed.
func (h *handler) workflowError(w http.ResponseWriter, err error) {
	var verr *workflow.ValidationError
	var werr *workflow.Error
	switch {
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", verr.Error())
	case errors.As(err, &werr):
		httpError(w, http.StatusBadGateway, "api_error", "%s", werr.Message)
	default:
		h.log.Error("unexpected workflow error", "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
