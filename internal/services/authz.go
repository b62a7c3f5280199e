package services

import (
	"context"
	"fmt"

	"github.com/tabletop/backend/internal/db"
)

// AuthzService answers authorization-tier questions about users. Results are
// never cached here: privilege-sensitive callers (the presence layer's
// admin-channel join in particular) require a fresh answer on every call.
type AuthzService struct {
	queries *db.Queries
}

// NewAuthzService creates an AuthzService over the given query layer.
func NewAuthzService(queries *db.Queries) *AuthzService {
	return &AuthzService{queries: queries}
}

// HasFullRights reports whether the user holds the full-rights tier, which
// sees every non-archived scenario unconditionally.
func (s *AuthzService) HasFullRights(ctx context.Context, userID string) (bool, error) {
	count, err := s.queries.UserHasPermission(ctx, userID, db.PermissionFullRights)
	if err != nil {
		return false, fmt.Errorf("check full rights for user %s: %w", userID, err)
	}
	return count > 0, nil
}

// IsContentDeveloper reports whether the user holds the content-developer
// tier, which is eligible for administrative-channel membership.
func (s *AuthzService) IsContentDeveloper(ctx context.Context, userID string) (bool, error) {
	count, err := s.queries.UserHasPermission(ctx, userID, db.PermissionContentDeveloper)
	if err != nil {
		return false, fmt.Errorf("check content developer for user %s: %w", userID, err)
	}
	return count > 0, nil
}
