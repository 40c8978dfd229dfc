package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/claim/domain"
	sharedauth "github.com/fra-atlas/platform/internal/shared/auth"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/events"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the claim module
type Handler struct {
	service *domain.Service
	bus     *events.Bus
}

// NewHandler creates a new claim handler
func NewHandler(service *domain.Service, bus *events.Bus) *Handler {
	return &Handler{service: service, bus: bus}
}

// Routes registers the claim routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListClaims)
	r.Post("/", h.SubmitClaim)

	r.Get("/track/{claimNumber}", h.TrackClaim)

	r.Route("/{claimID}", func(r chi.Router) {
		r.Post("/transition", h.TransitionClaim)
		r.Get("/events", h.GetEvents)
	})

	return r
}

// --- Request/Response types ---

type SubmitClaimRequest struct {
	Type          domain.ClaimType     `json:"claim_type"`
	ApplicantName string               `json:"applicant_name"`
	Village       string               `json:"village,omitempty"`
	Block         string               `json:"block,omitempty"`
	District      string               `json:"district"`
	State         string               `json:"state"`
	Area          float64              `json:"area"`
	Coordinates   *domain.Geometry     `json:"coordinates,omitempty"`
	Documents     []domain.DocumentRef `json:"documents,omitempty"`
}

type TransitionClaimRequest struct {
	Status  domain.ClaimStatus `json:"status"`
	Comment string             `json:"comment,omitempty"`
}

// --- Handlers ---

func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	var req SubmitClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	draft := domain.Draft{
		Type:          req.Type,
		ApplicantName: req.ApplicantName,
		Village:       req.Village,
		Block:         req.Block,
		District:      req.District,
		State:         req.State,
		Area:          req.Area,
		Coordinates:   req.Coordinates,
		Documents:     req.Documents,
	}

	claim, err := h.service.Submit(r.Context(), p, draft)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publishEvent(r.Context(), p, "claim.submitted", claim)

	writeJSON(w, http.StatusCreated, claim)
}

func (h *Handler) TrackClaim(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	claimNumber := chi.URLParam(r, "claimNumber")
	if claimNumber == "" {
		writeError(w, errors.BadRequest("claim number is required"))
		return
	}

	claim, err := h.service.Track(r.Context(), p, claimNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	filter := domain.ListFilter{
		State:    r.URL.Query().Get("state"),
		District: r.URL.Query().Get("district"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.ClaimStatus(s)
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

	claims, err := h.service.ListForReview(r.Context(), p, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  claims,
		"total": len(claims),
	})
}

func (h *Handler) TransitionClaim(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid claim ID"))
		return
	}

	var req TransitionClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	claim, err := h.service.Transition(r.Context(), p, id, req.Status, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publishEvent(r.Context(), p, "claim.status_changed", claim)

	writeJSON(w, http.StatusOK, claim)
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	p := sharedauth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid claim ID"))
		return
	}

	history, err := h.service.History(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  history,
		"total": len(history),
	})
}

func (h *Handler) publishEvent(ctx context.Context, p *auth.Principal, eventType string, claim *domain.Claim) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "claim", map[string]any{
		"claim_id":     claim.ID,
		"claim_number": claim.ClaimNumber,
		"status":       claim.Status,
		"state":        claim.State,
		"district":     claim.District,
	}).WithActor(p.ID, string(p.Role))

	h.bus.Publish(ctx, event)
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
