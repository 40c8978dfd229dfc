package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fra-atlas/platform/internal/auth"
	claimdomain "github.com/fra-atlas/platform/internal/claim/domain"
	"github.com/fra-atlas/platform/internal/legacy"
	sharedauth "github.com/fra-atlas/platform/internal/shared/auth"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the legacy digitization module
type Handler struct {
	workflow *legacy.Workflow
}

// NewHandler creates a new legacy records handler
func NewHandler(workflow *legacy.Workflow) *Handler {
	return &Handler{workflow: workflow}
}

// Routes registers the legacy record routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListRecords)
	r.Post("/", h.UploadRecord)

	r.Route("/{recordID}", func(r chi.Router) {
		r.Get("/", h.GetRecord)
		r.Post("/decide", h.DecideRecord)

		// Extraction pipeline callbacks
		r.Post("/extraction/start", h.StartExtraction)
		r.Post("/extraction/complete", h.CompleteExtraction)
		r.Post("/extraction/fail", h.FailExtraction)
	})

	return r
}

// --- Request/Response types ---

type UploadRecordRequest struct {
	FileReference string `json:"file_reference"`
	Village       string `json:"village,omitempty"`
	Block         string `json:"block,omitempty"`
	District      string `json:"district"`
	State         string `json:"state"`
}

type DecideRecordRequest struct {
	Approved     bool                `json:"approved"`
	EditedDrafts []claimdomain.Draft `json:"edited_drafts,omitempty"`
}

type CompleteExtractionRequest struct {
	Result legacy.ExtractionResult `json:"result"`
}

type FailExtractionRequest struct {
	Reason string `json:"reason"`
}

// --- Handlers ---

func (h *Handler) UploadRecord(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	var req UploadRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	record, err := h.workflow.Upload(r.Context(), p, req.FileReference, req.State, req.District, req.Block, req.Village)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid record ID"))
		return
	}

	record, err := h.workflow.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	filter := legacy.ListFilter{
		State:    r.URL.Query().Get("state"),
		District: r.URL.Query().Get("district"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := legacy.ProcessingStatus(s)
		if !status.Valid() {
			writeError(w, errors.BadRequest("invalid status filter"))
			return
		}
		filter.Status = &status
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			writeError(w, errors.BadRequest("invalid limit"))
			return
		}
		filter.Limit = limit
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		offset, err := strconv.Atoi(o)
		if err != nil || offset < 0 {
			writeError(w, errors.BadRequest("invalid offset"))
			return
		}
		filter.Offset = offset
	}

	records, err := h.workflow.List(r.Context(), p, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"total": len(records),
	})
}

func (h *Handler) DecideRecord(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid record ID"))
		return
	}

	var req DecideRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	decision, err := h.workflow.Decide(r.Context(), p, id, req.Approved, req.EditedDrafts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// Extraction callbacks are invoked by the digitization pipeline, not by
// end users. Only platform operators may call them directly.

func (h *Handler) StartExtraction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pipelineRecordID(w, r)
	if !ok {
		return
	}

	if err := h.workflow.StartExtraction(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(legacy.StatusExtracting)})
}

func (h *Handler) CompleteExtraction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pipelineRecordID(w, r)
	if !ok {
		return
	}

	var req CompleteExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.workflow.CompleteExtraction(r.Context(), id, &req.Result); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(legacy.StatusCompleted)})
}

func (h *Handler) FailExtraction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pipelineRecordID(w, r)
	if !ok {
		return
	}

	var req FailExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := h.workflow.FailExtraction(r.Context(), id, req.Reason); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(legacy.StatusFailed)})
}

func (h *Handler) pipelineRecordID(w http.ResponseWriter, r *http.Request) (types.ID, bool) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return "", false
	}
	if p.Role != auth.RoleAdmin && p.Role != auth.RoleMoTATechnical {
		writeError(w, errors.Forbidden("extraction callbacks are restricted to platform operators"))
		return "", false
	}

	id, err := types.ParseID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid record ID"))
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
