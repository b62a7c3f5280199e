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
	"github.com/tabletop/backend/internal/logging"
	"github.com/tabletop/backend/internal/middleware"
	"github.com/tabletop/backend/internal/models"
	"github.com/tabletop/backend/internal/presence"
	"github.com/tabletop/backend/internal/services"
)

// ScenarioHandler manages scenario lifecycle and team linkage.
type ScenarioHandler struct {
	dbc         *sql.DB
	queries     *db.Queries
	visibility  *services.VisibilityService
	authz       *services.AuthzService
	broadcaster Broadcaster
}

// NewScenarioHandler creates a ScenarioHandler with the required dependencies.
func NewScenarioHandler(dbc *sql.DB, queries *db.Queries, visibility *services.VisibilityService, authz *services.AuthzService, broadcaster Broadcaster) *ScenarioHandler {
	return &ScenarioHandler{
		dbc:         dbc,
		queries:     queries,
		visibility:  visibility,
		authz:       authz,
		broadcaster: broadcaster,
	}
}

// List returns every scenario visible to the caller.
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	ids, err := h.visibility.VisibleScenarios(r.Context(), userID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve visible scenarios", err)
		return
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to encode scenario ids", err)
		return
	}

	scenarios, err := h.queries.ListScenariosByIDs(r.Context(), string(idsJSON))
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list scenarios", err)
		return
	}

	resp := make([]models.ScenarioResponse, 0, len(scenarios))
	for _, s := range scenarios {
		resp = append(resp, scenarioResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create initializes a scenario, optionally linking teams in the same
// transaction. The journal collapses the create and the team links into a
// single ScenarioCreated event.
func (h *ScenarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.CreateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	tx, err := h.dbc.BeginTx(r.Context(), nil)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	qtx := h.queries.WithTx(tx)
	j := journal.New()

	scenario, err := qtx.CreateScenario(r.Context(), db.CreateScenarioParams{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Status:      db.ScenarioStatusDraft,
		IsTemplate:  req.IsTemplate,
		CreatedBy:   userID,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create scenario", err)
		return
	}
	j.Record("Scenario", scenario.ID, journal.ActionCreated)

	for _, teamID := range req.TeamIDs {
		if err := qtx.LinkScenarioTeam(r.Context(), scenario.ID, teamID); err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to link team", err)
			return
		}
		j.Record("Scenario", scenario.ID, journal.ActionUpdated, "teams")
	}

	if err := tx.Commit(); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to commit", err)
		return
	}

	broadcastJournal(h.broadcaster, j, scenario.ID)
	h.broadcaster.Broadcast(presence.AdminChannel, presence.Event{
		Name:    "ScenarioCreated",
		Payload: models.ChangePayload{ID: scenario.ID},
	})

	writeJSON(w, http.StatusCreated, scenarioResponse(scenario))
}

// Get returns one scenario if the caller may see it.
func (h *ScenarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")

	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	scenario, err := h.queries.GetScenario(r.Context(), scenarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, scenarioResponse(scenario))
}

// Update applies field changes and broadcasts one ScenarioUpdated event
// naming the fields that actually changed.
func (h *ScenarioHandler) Update(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")

	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	var req models.UpdateScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Status != db.ScenarioStatusDraft && req.Status != db.ScenarioStatusActive && req.Status != db.ScenarioStatusArchived {
		writeError(w, http.StatusBadRequest, "status must be draft, active, or archived")
		return
	}

	prior, err := h.queries.GetScenario(r.Context(), scenarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	tx, err := h.dbc.BeginTx(r.Context(), nil)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	qtx := h.queries.WithTx(tx)
	j := journal.New()

	scenario, err := qtx.UpdateScenario(r.Context(), db.UpdateScenarioParams{
		ID:          scenarioID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		IsTemplate:  req.IsTemplate,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update scenario", err)
		return
	}
	j.Record("Scenario", scenario.ID, journal.ActionUpdated, scenarioDiff(prior, scenario)...)

	if err := tx.Commit(); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to commit", err)
		return
	}

	broadcastJournal(h.broadcaster, j, scenario.ID)
	if prior.Status != scenario.Status && scenario.Status == db.ScenarioStatusArchived {
		h.broadcaster.Broadcast(presence.AdminChannel, presence.Event{
			Name:    "ScenarioArchived",
			Payload: models.ChangePayload{ID: scenario.ID},
		})
	}

	writeJSON(w, http.StatusOK, scenarioResponse(scenario))
}

// Delete removes a scenario. Only the creator or a full-rights user may delete.
func (h *ScenarioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())

	scenario, err := h.queries.GetScenario(r.Context(), scenarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	if scenario.CreatedBy != userID {
		fullRights, err := h.authz.HasFullRights(r.Context(), userID)
		if err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check permissions", err)
			return
		}
		if !fullRights {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventForbidden, "delete scenario without rights")
			writeError(w, http.StatusForbidden, "only the creator or an administrator may delete a scenario")
			return
		}
	}

	if err := h.queries.DeleteScenario(r.Context(), scenarioID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete scenario", err)
		return
	}

	payload := models.ChangePayload{ID: scenarioID}
	h.broadcaster.Broadcast(presence.ScenarioChannel(scenarioID), presence.Event{Name: "ScenarioDeleted", Payload: payload})
	h.broadcaster.Broadcast(presence.AdminChannel, presence.Event{Name: "ScenarioDeleted", Payload: payload})

	w.WriteHeader(http.StatusNoContent)
}

// LinkTeam links a team to a scenario, widening its visibility.
func (h *ScenarioHandler) LinkTeam(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")

	if !h.requireVisible(w, r, scenarioID) {
		return
	}

	var req models.LinkTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "teamId is required")
		return
	}

	if err := h.queries.LinkScenarioTeam(r.Context(), scenarioID, req.TeamID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to link team", err)
		return
	}

	j := journal.New()
	j.Record("Scenario", scenarioID, journal.ActionUpdated, "teams")
	broadcastJournal(h.broadcaster, j, scenarioID)

	w.WriteHeader(http.StatusNoContent)
}

// requireVisible writes a 404 and returns false when the caller cannot see
// the scenario. Invisible and nonexistent look identical to the client.
func (h *ScenarioHandler) requireVisible(w http.ResponseWriter, r *http.Request, scenarioID string) bool {
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

func scenarioDiff(prior, next db.Scenario) []string {
	var fields []string
	if prior.Name != next.Name {
		fields = append(fields, "name")
	}
	if prior.Description != next.Description {
		fields = append(fields, "description")
	}
	if prior.Status != next.Status {
		fields = append(fields, "status")
	}
	if prior.IsTemplate != next.IsTemplate {
		fields = append(fields, "isTemplate")
	}
	return fields
}

func scenarioResponse(s db.Scenario) models.ScenarioResponse {
	return models.ScenarioResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Status:      s.Status,
		IsTemplate:  s.IsTemplate,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
