package presence

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnknownConnection is returned for operations on a connection id that was
// never registered or has already disconnected.
var ErrUnknownConnection = errors.New("presence: unknown connection")

// Coordinator is the process-wide presence registry. It executes join, leave,
// and re-select operations atomically against the channel membership index
// and exposes the broadcast primitive used by the mutation layer.
//
// Resolution always happens before any membership mutation, so a failing
// resolver leaves the connection in exactly its prior state.
type Coordinator struct {
	resolver *Resolver
	reg      *registry
}

// NewCoordinator creates a Coordinator using the given resolver.
func NewCoordinator(resolver *Resolver) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		reg:      newRegistry(),
	}
}

// Connect registers a transport connection for the given user. The connection
// occupies no channels until Join is called.
func (c *Coordinator) Connect(connID, userID string, sink Sink) {
	c.reg.add(&session{
		id:       connID,
		userID:   userID,
		sink:     sink,
		channels: make(map[Channel]struct{}),
	})
}

// Join resolves the connection's initial channel set (personal channel plus
// every visible scenario) and adds the connection to each. Calling Join again
// re-resolves and re-adds; duplicates collapse.
func (c *Coordinator) Join(ctx context.Context, connID string) error {
	s, ok := c.reg.get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	channels, err := c.resolver.InitialChannels(ctx, s.userID)
	if err != nil {
		return err
	}
	c.reg.join(s, channels...)
	return nil
}

// Leave removes the connection from the initial channel set re-resolved at
// call time, including the personal channel. If visibility changed since
// Join, the re-resolved set is what gets removed; membership acquired under
// the old visibility may remain until disconnect.
func (c *Coordinator) Leave(ctx context.Context, connID string) error {
	s, ok := c.reg.get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	channels, err := c.resolver.InitialChannels(ctx, s.userID)
	if err != nil {
		return err
	}
	c.reg.leave(s, channels...)
	return nil
}

// SelectScenario focuses the connection on at most one scenario's live view.
// Every scenario channel the connection occupies is left first. Then, when
// exactly one id is requested and it is in the connection's visible set, that
// scenario channel is joined and marked selected. An id outside the visible
// set, or more than one id, ends the operation with no scenario membership
// and no selection; neither is an error.
func (c *Coordinator) SelectScenario(ctx context.Context, connID string, scenarioIDs []string) error {
	s, ok := c.reg.get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	visible, err := c.resolver.VisibleScenarioSet(ctx, s.userID)
	if err != nil {
		return err
	}

	var target Channel
	if len(scenarioIDs) == 1 {
		if _, ok := visible[scenarioIDs[0]]; ok {
			target = ScenarioChannel(scenarioIDs[0])
		}
	}
	c.reg.reselect(s, target)
	return nil
}

// JoinAdmin adds the personal channel and, when the user is eligible at call
// time, the administrative channel. Eligibility is re-checked on every call.
func (c *Coordinator) JoinAdmin(ctx context.Context, connID string) error {
	s, ok := c.reg.get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	channels, err := c.resolver.AdminChannels(ctx, s.userID)
	if err != nil {
		return err
	}
	c.reg.join(s, channels...)
	return nil
}

// LeaveAdmin removes the channel set JoinAdmin resolves, re-resolved at call
// time: the personal channel and, for currently-eligible users, the
// administrative channel.
func (c *Coordinator) LeaveAdmin(ctx context.Context, connID string) error {
	s, ok := c.reg.get(connID)
	if !ok {
		return ErrUnknownConnection
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	channels, err := c.resolver.AdminChannels(ctx, s.userID)
	if err != nil {
		return err
	}
	c.reg.leave(s, channels...)
	return nil
}

// Broadcast fans the event out to every connection currently on the channel.
// An empty channel is a no-op. Delivery is per-recipient: a slow or closed
// connection drops the event without affecting the others or the caller.
func (c *Coordinator) Broadcast(ch Channel, evt Event) {
	members := c.reg.members(ch)
	for _, s := range members {
		if !s.sink.Deliver(evt) {
			slog.Debug("dropped event for slow connection",
				slog.String("conn_id", s.id),
				slog.String("channel", string(ch)),
				slog.String("event", evt.Name))
		}
	}
}

// Disconnect removes the connection from every channel it occupies and
// discards its session state. It always succeeds, including for unknown ids.
func (c *Coordinator) Disconnect(connID string) {
	c.reg.remove(connID)
}

// Channels returns a snapshot of the channels the connection occupies.
func (c *Coordinator) Channels(connID string) []Channel {
	return c.reg.channelsOf(connID)
}

// SelectedScenario returns the connection's selected scenario channel, if any.
func (c *Coordinator) SelectedScenario(connID string) (Channel, bool) {
	return c.reg.selectedOf(connID)
}
