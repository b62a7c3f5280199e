// Package presence implements the access-scoped broadcast layer: resolving
// which channels an authenticated connection belongs to, tracking live
// channel membership, and fanning events out to channel members.
package presence

import "strings"

// Channel is an opaque broadcast routing key. Three kinds exist, in disjoint
// namespaces: personal (one per user, always part of a joined session),
// scenario (one per scenario, carries collaborative edit events), and the
// single administrative channel. A channel has no lifecycle of its own; it
// exists while at least one connection occupies it.
type Channel string

// AdminChannel is the well-known administrative channel used for system-wide
// notices to content developers.
const AdminChannel Channel = "admin"

const (
	personalPrefix = "user:"
	scenarioPrefix = "scenario:"
)

// PersonalChannel returns the channel for direct-to-user pushes.
func PersonalChannel(userID string) Channel {
	return Channel(personalPrefix + userID)
}

// ScenarioChannel returns the channel carrying one scenario's edit events.
func ScenarioChannel(scenarioID string) Channel {
	return Channel(scenarioPrefix + scenarioID)
}

// IsScenario reports whether the channel is scenario-kind.
func (c Channel) IsScenario() bool {
	return strings.HasPrefix(string(c), scenarioPrefix)
}

// Event is a named message broadcast to every member of a channel.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Sink receives events for one connection. Deliver must not block; it reports
// whether the event was accepted. A false return means the event was dropped
// for that connection only.
type Sink interface {
	Deliver(evt Event) bool
}
