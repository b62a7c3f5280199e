package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tabletop/backend/internal/db"
	"github.com/tabletop/backend/internal/middleware"
	"github.com/tabletop/backend/internal/models"
	"github.com/tabletop/backend/internal/presence"
	"github.com/tabletop/backend/internal/services"
)

type recordedEvent struct {
	channel presence.Channel
	event   presence.Event
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) Broadcast(ch presence.Channel, evt presence.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{channel: ch, event: evt})
}

func (b *fakeBroadcaster) on(ch presence.Channel) []presence.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []presence.Event
	for _, e := range b.events {
		if e.channel == ch {
			out = append(out, e.event)
		}
	}
	return out
}

type scenarioFixture struct {
	handler     *ScenarioHandler
	queries     *db.Queries
	broadcaster *fakeBroadcaster
	router      chi.Router
}

func newScenarioFixture(t *testing.T) *scenarioFixture {
	t.Helper()

	sqlDB, queries := newTestDB(t)
	authz := services.NewAuthzService(queries)
	visibility := services.NewVisibilityService(queries, authz)
	broadcaster := &fakeBroadcaster{}
	handler := NewScenarioHandler(sqlDB, queries, visibility, authz, broadcaster)

	r := chi.NewRouter()
	r.Route("/api/scenarios", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.Get)
			r.Put("/", handler.Update)
			r.Delete("/", handler.Delete)
			r.Post("/teams", handler.LinkTeam)
		})
	})

	return &scenarioFixture{handler: handler, queries: queries, broadcaster: broadcaster, router: r}
}

func (f *scenarioFixture) seedUser(t *testing.T, email string) db.User {
	t.Helper()
	u, err := f.queries.CreateUser(context.Background(), db.CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  email,
		PasswordHash: "x:y",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// do performs a request through the router with the given user authenticated.
func (f *scenarioFixture) do(t *testing.T, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	claims := &services.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsKey, claims))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateScenarioCollapsesToSingleCreatedEvent(t *testing.T) {
	f := newScenarioFixture(t)
	user := f.seedUser(t, "dev@example.com")

	team, err := f.queries.CreateTeam(context.Background(), db.CreateTeamParams{
		ID: uuid.NewString(), Name: "Blue Cell", InviteKey: "otter-lamp-7",
	})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	rec := f.do(t, user.ID, http.MethodPost, "/api/scenarios",
		`{"name":"Flood Response","teamIds":["`+team.ID+`"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created models.ScenarioResponse
	decodeBody(t, rec, &created)

	// One ScenarioCreated on the scenario channel despite the team link being
	// journaled as an update in the same transaction.
	events := f.broadcaster.on(presence.ScenarioChannel(created.ID))
	if len(events) != 1 || events[0].Name != "ScenarioCreated" {
		t.Errorf("scenario channel events = %v, want one ScenarioCreated", eventNames(events))
	}

	adminEvents := f.broadcaster.on(presence.AdminChannel)
	if len(adminEvents) != 1 || adminEvents[0].Name != "ScenarioCreated" {
		t.Errorf("admin channel events = %v, want one ScenarioCreated", eventNames(adminEvents))
	}
}

func TestUpdateScenarioBroadcastsChangedFields(t *testing.T) {
	f := newScenarioFixture(t)
	user := f.seedUser(t, "dev@example.com")

	rec := f.do(t, user.ID, http.MethodPost, "/api/scenarios", `{"name":"Flood Response"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d", rec.Code)
	}
	var created models.ScenarioResponse
	decodeBody(t, rec, &created)

	rec = f.do(t, user.ID, http.MethodPut, "/api/scenarios/"+created.ID,
		`{"name":"Flood Response v2","description":"","status":"active","isTemplate":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update status = %d, body %s", rec.Code, rec.Body.String())
	}

	events := f.broadcaster.on(presence.ScenarioChannel(created.ID))
	last := events[len(events)-1]
	if last.Name != "ScenarioUpdated" {
		t.Fatalf("last event = %s, want ScenarioUpdated", last.Name)
	}
	payload, ok := last.Payload.(models.ChangePayload)
	if !ok {
		t.Fatalf("payload type = %T, want ChangePayload", last.Payload)
	}
	wantFields := map[string]bool{"name": true, "status": true}
	if len(payload.ModifiedFields) != len(wantFields) {
		t.Fatalf("ModifiedFields = %v, want name and status", payload.ModifiedFields)
	}
	for _, field := range payload.ModifiedFields {
		if !wantFields[field] {
			t.Errorf("unexpected modified field %q", field)
		}
	}
}

func TestArchivingScenarioNotifiesAdminChannel(t *testing.T) {
	f := newScenarioFixture(t)
	user := f.seedUser(t, "dev@example.com")

	rec := f.do(t, user.ID, http.MethodPost, "/api/scenarios", `{"name":"Flood Response"}`)
	var created models.ScenarioResponse
	decodeBody(t, rec, &created)

	rec = f.do(t, user.ID, http.MethodPut, "/api/scenarios/"+created.ID,
		`{"name":"Flood Response","description":"","status":"archived","isTemplate":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update status = %d, body %s", rec.Code, rec.Body.String())
	}

	var archived bool
	for _, evt := range f.broadcaster.on(presence.AdminChannel) {
		if evt.Name == "ScenarioArchived" {
			archived = true
		}
	}
	if !archived {
		t.Error("archiving should broadcast ScenarioArchived to the admin channel")
	}
}

func TestGetScenarioInvisibleLooksLikeNotFound(t *testing.T) {
	f := newScenarioFixture(t)
	owner := f.seedUser(t, "owner@example.com")
	outsider := f.seedUser(t, "outsider@example.com")

	rec := f.do(t, owner.ID, http.MethodPost, "/api/scenarios", `{"name":"Private"}`)
	var created models.ScenarioResponse
	decodeBody(t, rec, &created)

	if rec := f.do(t, owner.ID, http.MethodGet, "/api/scenarios/"+created.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("owner Get status = %d, want 200", rec.Code)
	}
	if rec := f.do(t, outsider.ID, http.MethodGet, "/api/scenarios/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("outsider Get status = %d, want 404", rec.Code)
	}
}

func TestDeleteScenarioRequiresCreatorOrFullRights(t *testing.T) {
	ctx := context.Background()
	f := newScenarioFixture(t)
	owner := f.seedUser(t, "owner@example.com")
	outsider := f.seedUser(t, "outsider@example.com")
	admin := f.seedUser(t, "admin@example.com")
	if err := f.queries.GrantPermission(ctx, admin.ID, db.PermissionFullRights); err != nil {
		t.Fatalf("grant permission: %v", err)
	}

	rec := f.do(t, owner.ID, http.MethodPost, "/api/scenarios", `{"name":"Flood Response"}`)
	var created models.ScenarioResponse
	decodeBody(t, rec, &created)

	if rec := f.do(t, outsider.ID, http.MethodDelete, "/api/scenarios/"+created.ID, ""); rec.Code != http.StatusForbidden {
		t.Errorf("outsider Delete status = %d, want 403", rec.Code)
	}
	if rec := f.do(t, admin.ID, http.MethodDelete, "/api/scenarios/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("admin Delete status = %d, want 204", rec.Code)
	}
}

func TestListScenariosScopedToCaller(t *testing.T) {
	f := newScenarioFixture(t)
	owner := f.seedUser(t, "owner@example.com")
	outsider := f.seedUser(t, "outsider@example.com")

	if rec := f.do(t, owner.ID, http.MethodPost, "/api/scenarios", `{"name":"Mine"}`); rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d", rec.Code)
	}

	rec := f.do(t, owner.ID, http.MethodGet, "/api/scenarios", "")
	var ownerList []models.ScenarioResponse
	decodeBody(t, rec, &ownerList)
	if len(ownerList) != 1 {
		t.Errorf("owner list = %d scenarios, want 1", len(ownerList))
	}

	rec = f.do(t, outsider.ID, http.MethodGet, "/api/scenarios", "")
	var outsiderList []models.ScenarioResponse
	decodeBody(t, rec, &outsiderList)
	if len(outsiderList) != 0 {
		t.Errorf("outsider list = %d scenarios, want 0", len(outsiderList))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func eventNames(events []presence.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}
