// Package journal tracks entity mutations observed during a single
// persistence unit of work, so that each entity yields at most one change
// event per save and fields flagged modified by an earlier save in the same
// transaction are not lost when the entity is re-observed.
package journal

import "github.com/google/uuid"

// Action is the kind of mutation applied to an entity.
type Action string

const (
	ActionCreated Action = "Created"
	ActionUpdated Action = "Updated"
	ActionDeleted Action = "Deleted"
)

// Entry is one tracked mutation.
type Entry struct {
	Key            string
	EntityType     string
	EntityID       string
	Action         Action
	ModifiedFields []string
}

// EventName returns the broadcast event name for the entry, e.g. "ScenarioUpdated".
func (e Entry) EventName() string {
	return e.EntityType + string(e.Action)
}

// Journal is a keyed replace-on-match record of tracked mutations, scoped to
// the lifetime of one unit of work. It is not safe for concurrent use; a unit
// of work runs on a single goroutine.
type Journal struct {
	entries []Entry
}

// New creates an empty Journal.
func New() *Journal {
	return &Journal{}
}

// Record notes a mutation. Re-observing an entity already tracked in this
// unit of work replaces the earlier entry in place under a fresh key, with
// the earlier entry's modified fields carried forward. A create followed by
// an update remains a create; a delete supersedes any earlier action.
func (j *Journal) Record(entityType, entityID string, action Action, modifiedFields ...string) {
	for i, e := range j.entries {
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		merged := action
		if e.Action == ActionCreated && action == ActionUpdated {
			merged = ActionCreated
		}
		j.entries[i] = Entry{
			Key:            uuid.NewString(),
			EntityType:     entityType,
			EntityID:       entityID,
			Action:         merged,
			ModifiedFields: unionFields(e.ModifiedFields, modifiedFields),
		}
		return
	}

	j.entries = append(j.entries, Entry{
		Key:            uuid.NewString(),
		EntityType:     entityType,
		EntityID:       entityID,
		Action:         action,
		ModifiedFields: unionFields(nil, modifiedFields),
	})
}

// Entries returns the tracked mutations in first-observation order.
func (j *Journal) Entries() []Entry {
	return j.entries
}

// Len returns the number of distinct tracked entities.
func (j *Journal) Len() int {
	return len(j.entries)
}

// unionFields appends the fields of b not already present in a, preserving
// first-seen order.
func unionFields(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, f := range a {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	for _, f := range b {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
