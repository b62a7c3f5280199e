package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/tabletop/backend/internal/db"
	"github.com/tabletop/backend/internal/logging"
	"github.com/tabletop/backend/internal/middleware"
	"github.com/tabletop/backend/internal/models"
	"github.com/tabletop/backend/internal/services"
)

// TeamHandler manages teams and invite-key based membership.
type TeamHandler struct {
	queries    *db.Queries
	inviteKeys *services.InviteKeyService
}

// NewTeamHandler creates a TeamHandler with the required dependencies.
func NewTeamHandler(queries *db.Queries, inviteKeys *services.InviteKeyService) *TeamHandler {
	return &TeamHandler{queries: queries, inviteKeys: inviteKeys}
}

// List returns all teams. Invite keys are omitted from the listing.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.queries.ListTeams(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list teams", err)
		return
	}

	resp := make([]models.TeamResponse, 0, len(teams))
	for _, t := range teams {
		resp = append(resp, models.TeamResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create makes a team with a fresh invite key and adds the creator as its
// first member.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	inviteKey, err := h.inviteKeys.Generate(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate invite key", err)
		return
	}

	team, err := h.queries.CreateTeam(r.Context(), db.CreateTeamParams{
		ID:        uuid.New().String(),
		Name:      req.Name,
		InviteKey: inviteKey,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create team", err)
		return
	}

	if err := h.queries.AddTeamMember(r.Context(), team.ID, userID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to add creator to team", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.TeamResponse{
		ID:        team.ID,
		Name:      team.Name,
		InviteKey: team.InviteKey,
		CreatedAt: team.CreatedAt,
	})
}

// Join adds the caller to the team matching the invite key.
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.JoinTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InviteKey == "" {
		writeError(w, http.StatusBadRequest, "inviteKey is required")
		return
	}

	team, err := h.queries.GetTeamByInviteKey(r.Context(), req.InviteKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadInviteKey, "join with unknown invite key")
			writeError(w, http.StatusNotFound, "invalid invite key")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up team", err)
		return
	}

	if err := h.queries.AddTeamMember(r.Context(), team.ID, userID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to join team", err)
		return
	}

	writeJSON(w, http.StatusOK, models.TeamResponse{ID: team.ID, Name: team.Name, CreatedAt: team.CreatedAt})
}
