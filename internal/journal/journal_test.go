package journal

import (
	"testing"
)

func TestRecordDistinctEntities(t *testing.T) {
	j := New()
	j.Record("Scenario", "s1", ActionCreated)
	j.Record("Inject", "i1", ActionUpdated, "title")

	entries := j.Entries()
	if len(entries) != 2 {
		t.Fatalf("Len = %d, want 2", len(entries))
	}
	if entries[0].EntityType != "Scenario" || entries[0].Action != ActionCreated {
		t.Errorf("entries[0] = %+v, want Scenario Created", entries[0])
	}
	if entries[1].EntityType != "Inject" || entries[1].Action != ActionUpdated {
		t.Errorf("entries[1] = %+v, want Inject Updated", entries[1])
	}
}

func TestRecordReplacesSameEntityWithFreshKey(t *testing.T) {
	j := New()
	j.Record("Inject", "i1", ActionUpdated, "title")
	firstKey := j.Entries()[0].Key

	j.Record("Inject", "i1", ActionUpdated, "body")

	entries := j.Entries()
	if len(entries) != 1 {
		t.Fatalf("Len = %d, want 1 after re-observing the same entity", len(entries))
	}
	if entries[0].Key == firstKey {
		t.Error("replacement entry should carry a fresh key")
	}
}

func TestRecordCarriesModifiedFieldsForward(t *testing.T) {
	j := New()
	j.Record("Inject", "i1", ActionUpdated, "title", "body")
	j.Record("Inject", "i1", ActionUpdated, "body", "dueAt")

	fields := j.Entries()[0].ModifiedFields
	want := []string{"title", "body", "dueAt"}
	if len(fields) != len(want) {
		t.Fatalf("ModifiedFields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("ModifiedFields[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestRecordCreateThenUpdateStaysCreate(t *testing.T) {
	j := New()
	j.Record("Scenario", "s1", ActionCreated)
	j.Record("Scenario", "s1", ActionUpdated, "teams")

	entries := j.Entries()
	if len(entries) != 1 {
		t.Fatalf("Len = %d, want 1", len(entries))
	}
	if entries[0].Action != ActionCreated {
		t.Errorf("Action = %v, want Created", entries[0].Action)
	}
	if len(entries[0].ModifiedFields) != 1 || entries[0].ModifiedFields[0] != "teams" {
		t.Errorf("ModifiedFields = %v, want [teams]", entries[0].ModifiedFields)
	}
}

func TestRecordDeleteSupersedes(t *testing.T) {
	j := New()
	j.Record("Inject", "i1", ActionUpdated, "title")
	j.Record("Inject", "i1", ActionDeleted)

	if got := j.Entries()[0].Action; got != ActionDeleted {
		t.Errorf("Action = %v, want Deleted", got)
	}
}

func TestEntriesPreserveFirstObservationOrder(t *testing.T) {
	j := New()
	j.Record("Scenario", "s1", ActionUpdated, "name")
	j.Record("Inject", "i1", ActionCreated)
	j.Record("Scenario", "s1", ActionUpdated, "status")

	entries := j.Entries()
	if entries[0].EntityType != "Scenario" || entries[1].EntityType != "Inject" {
		t.Errorf("order = [%s %s], want [Scenario Inject]", entries[0].EntityType, entries[1].EntityType)
	}
}

func TestEventName(t *testing.T) {
	tests := []struct {
		entityType string
		action     Action
		want       string
	}{
		{"Scenario", ActionCreated, "ScenarioCreated"},
		{"Inject", ActionUpdated, "InjectUpdated"},
		{"Inject", ActionDeleted, "InjectDeleted"},
	}

	for _, tt := range tests {
		e := Entry{EntityType: tt.entityType, Action: tt.action}
		if got := e.EventName(); got != tt.want {
			t.Errorf("EventName() = %q, want %q", got, tt.want)
		}
	}
}
