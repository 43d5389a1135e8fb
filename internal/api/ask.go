package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/sanitize"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	// Format renders links in the returned answer: plain (default), html or markdown.
	Format sanitize.Format `json:"format"`
}

type askResponse struct {
	Answer    string   `json:"answer"`
	Links     []string `json:"links"`
	MessageID string   `json:"messageId,omitempty"`
	LatencyMS int64    `json:"latencyMs"`
}

func (h *handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Format {
	case "", sanitize.FormatPlain, sanitize.FormatHTML, sanitize.FormatMarkdown:
	default:
		httpError(w, http.StatusBadRequest, "invalid_request_error", "format must be plain, html or markdown")
		return
	}

	ans, err := h.Chat.Ask(r.Context(), req.SessionID, req.Question)
	if errors.Is(err, workflow.ErrEmptyQuestion) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
		return
	}
	if err != nil {
		h.workflowError(w, err)
		return
	}
	latency := time.Since(start).Milliseconds()

	resp := askResponse{Answer: sanitize.RenderLinks(ans.Answer, req.Format), Links: ans.Links, LatencyMS: latency}
	if h.Store != nil {
		q := &storage.Query{
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Workflow:  "chat",
			Question:  strings.TrimSpace(req.Question),
			Answer:    ans.Answer,
			Links:     ans.Links,
			Model:     h.Model,
			LatencyMS: latency,
			Success:   ans.Failure == gateway.FailureNone,
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		}
		if ans.Failure != gateway.FailureNone {
			q.FailureKind = ans.Failure.String()
		}
		if err := h.Store.SaveQuery(q); err != nil {
			// The answer is still returned; only the log entry is lost.
			h.log.Error("saving query", "error", err)
		} else {
			resp.MessageID = q.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type feedbackRequest struct {
	MessageID  string `json:"messageId"`
	ThumbsUp   bool   `json:"thumbsUp"`
	ThumbsDown bool   `json:"thumbsDown"`
	Feedback   string `json:"feedback"`
}

func (h *handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		httpError(w, http.StatusServiceUnavailable, "api_error", "query log is not enabled")
		return
	}

	var req feedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.MessageID) == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "messageId is required")
		return
	}

	err := h.Store.UpdateFeedback(req.MessageID, storage.Feedback{
		ThumbsUp:   req.ThumbsUp,
		ThumbsDown: req.ThumbsDown,
		Note:       req.Feedback,
	})
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found_error", "message %q not found", req.MessageID)
		return
	}
	if err != nil {
		h.log.Error("updating feedback", "id", req.MessageID, "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "could not save feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleListQueries(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		httpError(w, http.StatusServiceUnavailable, "api_error", "query log is not enabled")
		return
	}

	limit, err := intParam(r, "limit", 50)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	if limit > 500 {
		limit = 500
	}

	queries, err := h.Store.ListQueries(limit, offset)
	if err != nil {
		h.log.Error("listing queries", "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "could not list queries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": queries})
}

func (h *handler) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		httpError(w, http.StatusServiceUnavailable, "api_error", "query log is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	q, err := h.Store.GetQuery(id)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found_error", "query %q not found", id)
		return
	}
	if err != nil {
		h.log.Error("getting query", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "could not load query")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}
