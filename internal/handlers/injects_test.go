package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
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

type injectFixture struct {
	queries     *db.Queries
	broadcaster *fakeBroadcaster
	router      chi.Router
	user        db.User
	scenario    db.Scenario
}

func newInjectFixture(t *testing.T) *injectFixture {
	t.Helper()

	_, queries := newTestDB(t)
	authz := services.NewAuthzService(queries)
	visibility := services.NewVisibilityService(queries, authz)
	broadcaster := &fakeBroadcaster{}
	handler := NewInjectHandler(queries, visibility, broadcaster)

	r := chi.NewRouter()
	r.Route("/api/scenarios/{id}/injects", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Put("/{injectId}", handler.Update)
		r.Delete("/{injectId}", handler.Delete)
	})

	ctx := context.Background()
	user, err := queries.CreateUser(ctx, db.CreateUserParams{
		ID: uuid.NewString(), Email: "dev@example.com", DisplayName: "Dev", PasswordHash: "x:y",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	scenario, err := queries.CreateScenario(ctx, db.CreateScenarioParams{
		ID: uuid.NewString(), Name: "Flood Response", Status: db.ScenarioStatusActive, CreatedBy: user.ID,
	})
	if err != nil {
		t.Fatalf("create scenario: %v", err)
	}

	return &injectFixture{queries: queries, broadcaster: broadcaster, router: r, user: user, scenario: scenario}
}

func (f *injectFixture) do(t *testing.T, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	claims := &services.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsKey, claims))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *injectFixture) injectsPath() string {
	return "/api/scenarios/" + f.scenario.ID + "/injects"
}

func TestCreateInjectBroadcastsWithScenarioID(t *testing.T) {
	f := newInjectFixture(t)

	rec := f.do(t, f.user.ID, http.MethodPost, f.injectsPath(),
		`{"title":"Power outage","offsetMinutes":30}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.InjectResponse
	decodeBody(t, rec, &created)
	if created.Status != injectStatusPending {
		t.Errorf("default status = %q, want %q", created.Status, injectStatusPending)
	}

	events := f.broadcaster.on(presence.ScenarioChannel(f.scenario.ID))
	if len(events) != 1 || events[0].Name != "InjectCreated" {
		t.Fatalf("events = %v, want one InjectCreated", eventNames(events))
	}
	payload, ok := events[0].Payload.(models.ChangePayload)
	if !ok {
		t.Fatalf("payload type = %T, want ChangePayload", events[0].Payload)
	}
	if payload.ID != created.ID {
		t.Errorf("payload ID = %s, want %s", payload.ID, created.ID)
	}
	if payload.ScenarioID != f.scenario.ID {
		t.Errorf("payload ScenarioID = %s, want %s", payload.ScenarioID, f.scenario.ID)
	}
}

func TestUpdateInjectBroadcastsModifiedFields(t *testing.T) {
	f := newInjectFixture(t)

	rec := f.do(t, f.user.ID, http.MethodPost, f.injectsPath(), `{"title":"Power outage"}`)
	var created models.InjectResponse
	decodeBody(t, rec, &created)

	rec = f.do(t, f.user.ID, http.MethodPut, f.injectsPath()+"/"+created.ID,
		`{"title":"Power outage","description":"substation fire","offsetMinutes":0,"status":"pending"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update status = %d, body %s", rec.Code, rec.Body.String())
	}

	events := f.broadcaster.on(presence.ScenarioChannel(f.scenario.ID))
	last := events[len(events)-1]
	if last.Name != "InjectUpdated" {
		t.Fatalf("last event = %s, want InjectUpdated", last.Name)
	}
	payload := last.Payload.(models.ChangePayload)
	if len(payload.ModifiedFields) != 1 || payload.ModifiedFields[0] != "description" {
		t.Errorf("ModifiedFields = %v, want [description]", payload.ModifiedFields)
	}
}

func TestDeleteInjectBroadcastsDeleted(t *testing.T) {
	f := newInjectFixture(t)

	rec := f.do(t, f.user.ID, http.MethodPost, f.injectsPath(), `{"title":"Power outage"}`)
	var created models.InjectResponse
	decodeBody(t, rec, &created)

	rec = f.do(t, f.user.ID, http.MethodDelete, f.injectsPath()+"/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete status = %d", rec.Code)
	}

	events := f.broadcaster.on(presence.ScenarioChannel(f.scenario.ID))
	if got := events[len(events)-1].Name; got != "InjectDeleted" {
		t.Errorf("last event = %s, want InjectDeleted", got)
	}
}

func TestInjectRoutesHiddenForInvisibleScenario(t *testing.T) {
	f := newInjectFixture(t)

	outsider, err := f.queries.CreateUser(context.Background(), db.CreateUserParams{
		ID: uuid.NewString(), Email: "outsider@example.com", DisplayName: "Outsider", PasswordHash: "x:y",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if rec := f.do(t, outsider.ID, http.MethodGet, f.injectsPath(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("outsider List status = %d, want 404", rec.Code)
	}
	if rec := f.do(t, outsider.ID, http.MethodPost, f.injectsPath(), `{"title":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("outsider Create status = %d, want 404", rec.Code)
	}
}

func TestUpdateInjectWrongScenarioIsNotFound(t *testing.T) {
	f := newInjectFixture(t)

	rec := f.do(t, f.user.ID, http.MethodPost, f.injectsPath(), `{"title":"Power outage"}`)
	var created models.InjectResponse
	decodeBody(t, rec, &created)

	other, err := f.queries.CreateScenario(context.Background(), db.CreateScenarioParams{
		ID: uuid.NewString(), Name: "Other", Status: db.ScenarioStatusActive, CreatedBy: f.user.ID,
	})
	if err != nil {
		t.Fatalf("create scenario: %v", err)
	}

	path := "/api/scenarios/" + other.ID + "/injects/" + created.ID
	if rec := f.do(t, f.user.ID, http.MethodPut, path, `{"title":"renamed"}`); rec.Code != http.StatusNotFound {
		t.Errorf("cross-scenario Update status = %d, want 404", rec.Code)
	}
}
