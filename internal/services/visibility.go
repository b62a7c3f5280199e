package services

import (
	"context"
	"fmt"

	"github.com/tabletop/backend/internal/db"
)

// VisibilityService answers which scenarios a user may see. Full-rights users
// see every non-archived scenario; everyone else sees the union of their
// teams' scenarios, their own, and templates, all non-archived. Errors from
// the storage or authorization layer propagate to the caller; an empty result
// is only ever a genuine "sees nothing".
type VisibilityService struct {
	queries *db.Queries
	authz   *AuthzService
}

// NewVisibilityService creates a VisibilityService.
func NewVisibilityService(queries *db.Queries, authz *AuthzService) *VisibilityService {
	return &VisibilityService{queries: queries, authz: authz}
}

// VisibleScenarios returns the ids of every scenario visible to the user.
func (s *VisibilityService) VisibleScenarios(ctx context.Context, userID string) ([]string, error) {
	fullRights, err := s.authz.HasFullRights(ctx, userID)
	if err != nil {
		return nil, err
	}

	if fullRights {
		ids, err := s.queries.ListActiveScenarioIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active scenarios: %w", err)
		}
		return ids, nil
	}

	ids, err := s.queries.ListVisibleScenarioIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list visible scenarios for user %s: %w", userID, err)
	}
	return ids, nil
}
