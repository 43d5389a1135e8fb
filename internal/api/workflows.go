package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inforens/nori/internal/document"
	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/workflow"
)

func (h *handler) handleScholarships(w http.ResponseWriter, r *http.Request) {
	var sp prompt.ScholarshipProfile
	if !decodeJSON(w, r, &sp) {
		return
	}
	res, err := h.Scholarships.Find(r.Context(), sp)
	if err != nil {
		h.workflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleSOP(w http.ResponseWriter, r *http.Request) {
	var d prompt.SOPDetails
	if !decodeJSON(w, r, &d) {
		return
	}
	res, err := h.SOP.Generate(r.Context(), d)
	if err != nil {
		h.workflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type sopDownloadRequest struct {
	SOP  string `json:"sop"`
	Name string `json:"name"`
}

func (h *handler) handleSOPDownload(w http.ResponseWriter, r *http.Request) {
	var req sopDownloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SOP) == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "sop is required")
		return
	}

	doc := document.FromText("Statement of Purpose", req.SOP)
	doc.Subtitle = strings.TrimSpace(req.Name)
	h.sendDocument(w, chi.URLParam(r, "format"), "statement_of_purpose", doc)
}

func (h *handler) handleCV(w http.ResponseWriter, r *http.Request) {
	var in workflow.CVInput
	if !decodeJSON(w, r, &in) {
		return
	}
	cv, err := h.CV.Generate(r.Context(), in)
	if err != nil {
		h.workflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

func (h *handler) handleCVUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid upload: %v", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "file is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
		return
	}

	text, err := document.ExtractText(header.Filename, data)
	if errors.Is(err, document.ErrUnsupported) {
		httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "only PDF, DOCX and TXT files are supported")
		return
	}
	if err != nil {
		h.log.Warn("cv upload unreadable", "file", header.Filename, "error", err)
		httpError(w, http.StatusBadRequest, "invalid_request_error", "could not read %s", header.Filename)
		return
	}
	if text == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "no text found in %s", header.Filename)
		return
	}

	cv, err := h.CV.Parse(r.Context(), text)
	if err != nil {
		h.workflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

// cvDownloadRequest accepts either a structured CV or free text.
type cvDownloadRequest struct {
	workflow.CV
	Text string `json:"text"`
}

func (h *handler) handleCVDownload(w http.ResponseWriter, r *http.Request) {
	var req cvDownloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var doc document.Document
	switch {
	case strings.TrimSpace(req.FullName) != "":
		doc = req.CV.Document()
	case strings.TrimSpace(req.Text) != "":
		doc = document.FromText("Curriculum Vitae", req.Text)
	default:
		httpError(w, http.StatusBadRequest, "invalid_request_error", "full_name or text is required")
		return
	}
	h.sendDocument(w, chi.URLParam(r, "format"), "cv", doc)
}

func (h *handler) sendDocument(w http.ResponseWriter, format, name string, doc document.Document) {
	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case "pdf":
		data, err = document.PDF(doc)
		contentType = "application/pdf"
	case "docx":
		data, err = document.DOCX(doc)
		contentType = document.DOCXContentType
	default:
		httpError(w, http.StatusNotFound, "not_found_error", "unknown format %q; use pdf or docx", format)
		return
	}
	if err != nil {
		h.log.Error("rendering document", "format", format, "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "could not render %s", format)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.Write(data)
}
