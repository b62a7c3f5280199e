package presence

import (
	"context"
	"fmt"
)

// VisibilityIndex answers which scenarios a user may currently see.
// Implementations must return an error on storage or authorization failure,
// never an empty set.
type VisibilityIndex interface {
	VisibleScenarios(ctx context.Context, userID string) ([]string, error)
}

// Authorizer answers authorization-tier questions about a user.
type Authorizer interface {
	HasFullRights(ctx context.Context, userID string) (bool, error)
	IsContentDeveloper(ctx context.Context, userID string) (bool, error)
}

// Resolver computes the broadcast channels a user is entitled to occupy.
// Every method resolves fresh on each call: authorization may change between
// calls, and administrative eligibility in particular must never be granted
// on stale data.
type Resolver struct {
	visibility VisibilityIndex
	authz      Authorizer
}

// NewResolver creates a Resolver over the given collaborators.
func NewResolver(visibility VisibilityIndex, authz Authorizer) *Resolver {
	return &Resolver{visibility: visibility, authz: authz}
}

// InitialChannels returns the channels a connection occupies after Join:
// the user's personal channel plus one scenario channel per visible scenario.
func (r *Resolver) InitialChannels(ctx context.Context, userID string) ([]Channel, error) {
	ids, err := r.visibility.VisibleScenarios(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve visible scenarios: %w", err)
	}

	channels := make([]Channel, 0, len(ids)+1)
	channels = append(channels, PersonalChannel(userID))
	for _, id := range ids {
		channels = append(channels, ScenarioChannel(id))
	}
	return channels, nil
}

// AdminChannels returns the user's personal channel plus, when the user is
// eligible right now, the administrative channel. Content developers and
// full-rights users are eligible.
func (r *Resolver) AdminChannels(ctx context.Context, userID string) ([]Channel, error) {
	eligible, err := r.adminEligible(ctx, userID)
	if err != nil {
		return nil, err
	}

	channels := []Channel{PersonalChannel(userID)}
	if eligible {
		channels = append(channels, AdminChannel)
	}
	return channels, nil
}

// VisibleScenarioSet returns the user's visible scenario ids as a set, for
// membership checks during scenario selection.
func (r *Resolver) VisibleScenarioSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	ids, err := r.visibility.VisibleScenarios(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve visible scenarios: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *Resolver) adminEligible(ctx context.Context, userID string) (bool, error) {
	dev, err := r.authz.IsContentDeveloper(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolve content developer: %w", err)
	}
	if dev {
		return true, nil
	}

	full, err := r.authz.HasFullRights(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolve full rights: %w", err)
	}
	return full, nil
}
