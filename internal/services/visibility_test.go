package services

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/tabletop/backend/internal/database"
	"github.com/tabletop/backend/internal/db"
)

func newTestQueries(t *testing.T) *db.Queries {
	t.Helper()

	sqlDB, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db.New(sqlDB)
}

func createTestUser(t *testing.T, q *db.Queries, email string) db.User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), db.CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  email,
		PasswordHash: "x:y",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func createTestScenario(t *testing.T, q *db.Queries, name, status, createdBy string, isTemplate bool) db.Scenario {
	t.Helper()
	s, err := q.CreateScenario(context.Background(), db.CreateScenarioParams{
		ID:         uuid.NewString(),
		Name:       name,
		Status:     status,
		IsTemplate: isTemplate,
		CreatedBy:  createdBy,
	})
	if err != nil {
		t.Fatalf("create scenario %s: %v", name, err)
	}
	return s
}

func TestVisibleScenariosForTeamMember(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)
	authz := NewAuthzService(q)
	vis := NewVisibilityService(q, authz)

	participant := createTestUser(t, q, "participant@example.com")
	other := createTestUser(t, q, "other@example.com")

	team, err := q.CreateTeam(ctx, db.CreateTeamParams{ID: uuid.NewString(), Name: "Blue Cell", InviteKey: "otter-lamp-42"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := q.AddTeamMember(ctx, team.ID, participant.ID); err != nil {
		t.Fatalf("add team member: %v", err)
	}

	linked := createTestScenario(t, q, "linked active", db.ScenarioStatusActive, other.ID, false)
	archived := createTestScenario(t, q, "linked archived", db.ScenarioStatusArchived, other.ID, false)
	own := createTestScenario(t, q, "own draft", db.ScenarioStatusDraft, participant.ID, false)
	template := createTestScenario(t, q, "template", db.ScenarioStatusActive, other.ID, true)
	unrelated := createTestScenario(t, q, "unrelated", db.ScenarioStatusActive, other.ID, false)

	for _, s := range []db.Scenario{linked, archived} {
		if err := q.LinkScenarioTeam(ctx, s.ID, team.ID); err != nil {
			t.Fatalf("link scenario team: %v", err)
		}
	}

	ids, err := vis.VisibleScenarios(ctx, participant.ID)
	if err != nil {
		t.Fatalf("VisibleScenarios() error = %v", err)
	}

	want := []string{linked.ID, own.ID, template.ID}
	sort.Strings(ids)
	sort.Strings(want)
	if len(ids) != len(want) {
		t.Fatalf("visible = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("visible[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	for _, hidden := range []string{archived.ID, unrelated.ID} {
		for _, id := range ids {
			if id == hidden {
				t.Errorf("scenario %s should not be visible", hidden)
			}
		}
	}
}

func TestVisibleScenariosForFullRightsUser(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)
	authz := NewAuthzService(q)
	vis := NewVisibilityService(q, authz)

	admin := createTestUser(t, q, "admin@example.com")
	other := createTestUser(t, q, "other@example.com")
	if err := q.GrantPermission(ctx, admin.ID, db.PermissionFullRights); err != nil {
		t.Fatalf("grant permission: %v", err)
	}

	active := createTestScenario(t, q, "someone else's", db.ScenarioStatusActive, other.ID, false)
	draft := createTestScenario(t, q, "draft", db.ScenarioStatusDraft, other.ID, false)
	createTestScenario(t, q, "archived", db.ScenarioStatusArchived, other.ID, false)

	ids, err := vis.VisibleScenarios(ctx, admin.ID)
	if err != nil {
		t.Fatalf("VisibleScenarios() error = %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("visible = %v, want the two non-archived scenarios", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[active.ID] || !seen[draft.ID] {
		t.Errorf("visible = %v, want both %s and %s", ids, active.ID, draft.ID)
	}
}

func TestVisibleScenariosEmptyForNewUser(t *testing.T) {
	q := newTestQueries(t)
	vis := NewVisibilityService(q, NewAuthzService(q))

	user := createTestUser(t, q, "newbie@example.com")

	ids, err := vis.VisibleScenarios(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("VisibleScenarios() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("visible = %v, want none", ids)
	}
}

func TestAuthzPermissionChecks(t *testing.T) {
	ctx := context.Background()
	q := newTestQueries(t)
	authz := NewAuthzService(q)

	user := createTestUser(t, q, "dev@example.com")

	dev, err := authz.IsContentDeveloper(ctx, user.ID)
	if err != nil {
		t.Fatalf("IsContentDeveloper() error = %v", err)
	}
	if dev {
		t.Error("new user should not be a content developer")
	}

	if err := q.GrantPermission(ctx, user.ID, db.PermissionContentDeveloper); err != nil {
		t.Fatalf("grant permission: %v", err)
	}

	dev, err = authz.IsContentDeveloper(ctx, user.ID)
	if err != nil {
		t.Fatalf("IsContentDeveloper() error = %v", err)
	}
	if !dev {
		t.Error("granted user should be a content developer")
	}

	// Revocation must take effect on the next check; nothing is cached.
	if err := q.RevokePermission(ctx, user.ID, db.PermissionContentDeveloper); err != nil {
		t.Fatalf("revoke permission: %v", err)
	}
	dev, err = authz.IsContentDeveloper(ctx, user.ID)
	if err != nil {
		t.Fatalf("IsContentDeveloper() error = %v", err)
	}
	if dev {
		t.Error("revoked user should no longer be a content developer")
	}
}
