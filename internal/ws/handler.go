package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tabletop/backend/internal/logging"
	"github.com/tabletop/backend/internal/presence"
	"github.com/tabletop/backend/internal/services"
)

// Client-invocable actions. Each is ack-only; results arrive as broadcasts.
const (
	actionJoin           = "join"
	actionLeave          = "leave"
	actionSelectScenario = "selectScenario"
	actionJoinAdmin      = "joinAdmin"
	actionLeaveAdmin     = "leaveAdmin"
)

// Server push message names for operation outcomes.
const (
	eventAck   = "Ack"
	eventError = "Error"
)

type clientMessage struct {
	Action      string   `json:"action"`
	ScenarioIDs []string `json:"scenarioIds,omitempty"`
}

// Handler upgrades authenticated requests to websocket sessions and
// dispatches client actions to the presence coordinator.
type Handler struct {
	coordinator *presence.Coordinator
	auth        *services.AuthService
	upgrader    websocket.Upgrader
	sendBuffer  int
}

// NewHandler creates a websocket Handler. allowedOrigins mirrors the CORS
// configuration; requests without an Origin header (non-browser clients) are
// accepted.
func NewHandler(coordinator *presence.Coordinator, auth *services.AuthService, allowedOrigins []string, sendBuffer int) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		coordinator: coordinator,
		auth:        auth,
		sendBuffer:  sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Serve authenticates the request, upgrades it, and runs the session until
// the client disconnects. The principal comes from the token's subject claim;
// a token without one rejects the connection before any join logic runs.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventMissingAuth, "websocket connect without token")
		http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		event := logging.SecurityEventInvalidJWT
		if err == services.ErrNoSubject {
			event = logging.SecurityEventNoSubject
		}
		logging.LogSecurityEvent(r.Context(), event, "websocket connect with invalid token")
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	connID := uuid.NewString()
	userID := claims.Subject
	c := newConnection(conn, h.sendBuffer)

	h.coordinator.Connect(connID, userID, c)
	go c.writePump()

	slog.Info("websocket session opened",
		slog.String("conn_id", connID), slog.String("user_id", userID))

	defer func() {
		h.coordinator.Disconnect(connID)
		c.Close()
		slog.Info("websocket session closed",
			slog.String("conn_id", connID), slog.String("user_id", userID))
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read error", slog.String("conn_id", connID), slog.Any("error", err))
			}
			return
		}
		h.dispatch(r, connID, userID, msg, c)
	}
}

// dispatch runs one client action. Operation failures surface to the client
// as an Error push and never tear down the session; the client may retry.
func (h *Handler) dispatch(r *http.Request, connID, userID string, msg clientMessage, c *Connection) {
	ctx := r.Context()

	var err error
	switch msg.Action {
	case actionJoin:
		err = h.coordinator.Join(ctx, connID)
	case actionLeave:
		err = h.coordinator.Leave(ctx, connID)
	case actionSelectScenario:
		err = h.coordinator.SelectScenario(ctx, connID, msg.ScenarioIDs)
	case actionJoinAdmin:
		err = h.coordinator.JoinAdmin(ctx, connID)
	case actionLeaveAdmin:
		err = h.coordinator.LeaveAdmin(ctx, connID)
	default:
		c.Deliver(presence.Event{Name: eventError, Payload: map[string]string{
			"action":  msg.Action,
			"message": "unknown action",
		}})
		return
	}

	if err != nil {
		slog.Warn("presence operation failed",
			slog.String("conn_id", connID),
			slog.String("user_id", userID),
			slog.String("action", msg.Action),
			slog.Any("error", err))
		c.Deliver(presence.Event{Name: eventError, Payload: map[string]string{
			"action":  msg.Action,
			"message": "operation failed",
		}})
		return
	}

	c.Deliver(presence.Event{Name: eventAck, Payload: map[string]string{"action": msg.Action}})
}

// extractToken reads the bearer token from the query string (the usual place
// for browser websocket clients) or the Authorization header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
