package db

import "time"

// Permission values stored in user_permissions.
const (
	PermissionFullRights       = "full_rights"
	PermissionContentDeveloper = "content_developer"
)

// Scenario status values. Anything other than archived is broadcast-visible.
const (
	ScenarioStatusDraft    = "draft"
	ScenarioStatusActive   = "active"
	ScenarioStatusArchived = "archived"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

type Team struct {
	ID        string
	Name      string
	InviteKey string
	CreatedAt time.Time
}

type Scenario struct {
	ID          string
	Name        string
	Description string
	Status      string
	IsTemplate  bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Inject struct {
	ID            string
	ScenarioID    string
	Title         string
	Description   string
	OffsetMinutes int64
	Status        string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
