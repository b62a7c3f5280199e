// Package models holds request and response types for the HTTP API.
package models

import "time"

// Authentication
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Scenarios
type CreateScenarioRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	IsTemplate  bool     `json:"isTemplate,omitempty"`
	TeamIDs     []string `json:"teamIds,omitempty"`
}

type UpdateScenarioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IsTemplate  bool   `json:"isTemplate"`
}

type ScenarioResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	IsTemplate  bool      `json:"isTemplate"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type LinkTeamRequest struct {
	TeamID string `json:"teamId"`
}

// Injects
type CreateInjectRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	OffsetMinutes int64  `json:"offsetMinutes,omitempty"`
	Status        string `json:"status,omitempty"`
}

type UpdateInjectRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	OffsetMinutes int64  `json:"offsetMinutes"`
	Status        string `json:"status"`
}

type InjectResponse struct {
	ID            string    `json:"id"`
	ScenarioID    string    `json:"scenarioId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	OffsetMinutes int64     `json:"offsetMinutes"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Teams
type CreateTeamRequest struct {
	Name string `json:"name"`
}

type TeamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	InviteKey string    `json:"inviteKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type JoinTeamRequest struct {
	InviteKey string `json:"inviteKey"`
}

// Change events pushed over the websocket carry the entity id and the fields
// the mutation touched; clients refetch what they need.
type ChangePayload struct {
	ID             string   `json:"id"`
	ScenarioID     string   `json:"scenarioId,omitempty"`
	ModifiedFields []string `json:"modifiedFields,omitempty"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
