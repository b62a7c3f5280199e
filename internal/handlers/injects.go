package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tabletop/backend/internal/db"
	"github.com/tabletop/backend/internal/journal"
	"github.com/tabletop/backend/internal/middleware"
	"github.com/tabletop/backend/internal/models"
	"github.com/tabletop/backend/internal/services"
)

const injectStatusPending = "pending"

// InjectHandler manages the injects (timed exercise events) of a scenario.
// All routes are nested under a scenario id; visibility of the parent
// scenario gates every operation.
type InjectHandler struct {
	queries     *db.Queries
	visibility  *services.VisibilityService
	broadcaster Broadcaster
}

// NewInjectHandler creates an InjectHandler with the required dependencies.
func NewInjectHandler(queries *db.Queries, visibility *services.VisibilityService, broadcaster Broadcaster) *InjectHandler {
	return &InjectHandler{
		queries:     queries,
		visibility:  visibility,
		broadcaster: broadcaster,
	}
}

// List returns the injects of a scenario in schedule order.
func (h *InjectHandler) List(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")
	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	injects, err := h.queries.ListInjectsByScenario(r.Context(), scenarioID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list injects", err)
		return
	}

	resp := make([]models.InjectResponse, 0, len(injects))
	for _, in := range injects {
		resp = append(resp, injectResponse(in))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds an inject and broadcasts InjectCreated to the scenario channel.
func (h *InjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())

	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	var req models.CreateInjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Status == "" {
		req.Status = injectStatusPending
	}

	inject, err := h.queries.CreateInject(r.Context(), db.CreateInjectParams{
		ID:            uuid.New().String(),
		ScenarioID:    scenarioID,
		Title:         req.Title,
		Description:   req.Description,
		OffsetMinutes: req.OffsetMinutes,
		Status:        req.Status,
		CreatedBy:     userID,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create inject", err)
		return
	}

	j := journal.New()
	j.Record("Inject", inject.ID, journal.ActionCreated)
	broadcastJournal(h.broadcaster, j, scenarioID)

	writeJSON(w, http.StatusCreated, injectResponse(inject))
}

// Update applies field changes to an inject and broadcasts the modified fields.
func (h *InjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")
	injectID := chi.URLParam(r, "injectId")

	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	var req models.UpdateInjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	prior, err := h.queries.GetInject(r.Context(), injectID)
	if err != nil || prior.ScenarioID != scenarioID {
		if errors.Is(err, sql.ErrNoRows) || (err == nil && prior.ScenarioID != scenarioID) {
			writeError(w, http.StatusNotFound, "inject not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load inject", err)
		return
	}

	inject, err := h.queries.UpdateInject(r.Context(), db.UpdateInjectParams{
		ID:            injectID,
		Title:         req.Title,
		Description:   req.Description,
		OffsetMinutes: req.OffsetMinutes,
		Status:        req.Status,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update inject", err)
		return
	}

	j := journal.New()
	j.Record("Inject", inject.ID, journal.ActionUpdated, injectDiff(prior, inject)...)
	broadcastJournal(h.broadcaster, j, scenarioID)

	writeJSON(w, http.StatusOK, injectResponse(inject))
}

// Delete removes an inject and broadcasts InjectDeleted.
func (h *InjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")
	injectID := chi.URLParam(r, "injectId")

	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	inject, err := h.queries.GetInject(r.Context(), injectID)
	if err != nil || inject.ScenarioID != scenarioID {
		if errors.Is(err, sql.ErrNoRows) || (err == nil && inject.ScenarioID != scenarioID) {
			writeError(w, http.StatusNotFound, "inject not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load inject", err)
		return
	}

	if err := h.queries.DeleteInject(r.Context(), injectID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete inject", err)
		return
	}

	j := journal.New()
	j.Record("Inject", injectID, journal.ActionDeleted)
	broadcastJournal(h.broadcaster, j, scenarioID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *InjectHandler) requireVisible(w http.ResponseWriter, r *http.Request, scenarioID string) bool {
	userID := middleware.UserID(r.Context())

	ids, err := h.visibility.VisibleScenarios(r.Context(), userID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve visible scenarios", err)
		return false
	}
	for _, id := range ids {
		if id == scenarioID {
			return true
		}
	}

	writeError(w, http.StatusNotFound, "scenario not found")
	return false
}

func injectDiff(prior, next db.Inject) []string {
	var fields []string
	if prior.Title != next.Title {
		fields = append(fields, "title")
	}
	if prior.Description != next.Description {
		fields = append(fields, "description")
	}
	if prior.OffsetMinutes != next.OffsetMinutes {
		fields = append(fields, "offsetMinutes")
	}
	if prior.Status != next.Status {
		fields = append(fields, "status")
	}
	return fields
}

func injectResponse(in db.Inject) models.InjectResponse {
	return models.InjectResponse{
		ID:            in.ID,
		ScenarioID:    in.ScenarioID,
		Title:         in.Title,
		Description:   in.Description,
		OffsetMinutes: in.OffsetMinutes,
		Status:        in.Status,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     in.CreatedAt,
		UpdatedAt:     in.UpdatedAt,
	}
}
