// Package handlers implements the HTTP API: authentication, scenario and
// inject CRUD, and team management. Mutation handlers record changes into a
// journal and broadcast them to the relevant presence channels after commit.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tabletop/backend/internal/journal"
	"github.com/tabletop/backend/internal/logging"
	"github.com/tabletop/backend/internal/models"
	"github.com/tabletop/backend/internal/presence"
)

// Broadcaster fans named events out to every connection on a channel. The
// presence coordinator implements it; handlers never talk to connections
// directly.
type Broadcaster interface {
	Broadcast(ch presence.Channel, evt presence.Event)
}

// writeJSON serializes data as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response for simple client errors (400-level).
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// writeErrorWithCause writes an error response and logs the error with stack trace.
// Use this for server errors (500-level) where you have an underlying error to log.
func writeErrorWithCause(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	writeError(w, status, message)

	// Don't log 401/403 - handled by security event logging
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return
	}

	if status >= 400 && err != nil {
		wrappedErr := logging.WrapError(err, message)
		logging.LogErrorWithStatus(ctx, status, "error response", wrappedErr)
	}
}

// broadcastJournal pushes one event per journal entry to the scenario's
// channel. Runs after commit; delivery is best-effort.
func broadcastJournal(b Broadcaster, j *journal.Journal, scenarioID string) {
	for _, e := range j.Entries() {
		payload := models.ChangePayload{
			ID:             e.EntityID,
			ModifiedFields: e.ModifiedFields,
		}
		if e.EntityType != "Scenario" {
			payload.ScenarioID = scenarioID
		}
		b.Broadcast(presence.ScenarioChannel(scenarioID), presence.Event{
			Name:    e.EventName(),
			Payload: payload,
		})
	}
}
