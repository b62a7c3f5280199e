package presence

import "sync"

// session is the live membership state of one transport connection.
type session struct {
	id     string
	userID string
	sink   Sink

	// opMu serializes membership operations for this connection. Resolution
	// happens while it is held so a Join and a Leave on the same connection
	// cannot interleave their resolve and mutate steps.
	opMu sync.Mutex

	// channels and selected are guarded by the registry mutex.
	channels map[Channel]struct{}
	selected Channel
}

// registry is the bidirectional channel<->connection index. One RWMutex
// guards both directions so a broadcast always observes a consistent snapshot
// of a channel's membership.
type registry struct {
	mu        sync.RWMutex
	byChannel map[Channel]map[string]*session
	byConn    map[string]*session
}

func newRegistry() *registry {
	return &registry{
		byChannel: make(map[Channel]map[string]*session),
		byConn:    make(map[string]*session),
	}
}

func (r *registry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[s.id] = s
}

func (r *registry) get(connID string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// join adds the session to each channel. Membership is a set: joining a
// channel already held is a no-op.
func (r *registry) join(s *session, channels ...Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range channels {
		r.joinLocked(s, ch)
	}
}

// leave removes the session from each channel. Leaving a channel not held is
// a no-op. The selection is cleared if the selected channel is removed.
func (r *registry) leave(s *session, channels ...Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range channels {
		r.leaveLocked(s, ch)
	}
}

// reselect atomically removes the session from every scenario channel it
// occupies, then joins and selects the target if one is given. An empty
// target leaves the session with no scenario membership and no selection.
func (r *registry) reselect(s *session, target Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ch := range s.channels {
		if ch.IsScenario() {
			r.leaveLocked(s, ch)
		}
	}
	s.selected = ""

	if target != "" {
		r.joinLocked(s, target)
		s.selected = target
	}
}

// remove drops the session from every channel it occupies and forgets it.
func (r *registry) remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return
	}
	for ch := range s.channels {
		r.leaveLocked(s, ch)
	}
	delete(r.byConn, connID)
}

// members returns a snapshot of the sessions currently on the channel.
func (r *registry) members(ch Channel) []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byChannel[ch]
	if len(set) == 0 {
		return nil
	}
	members := make([]*session, 0, len(set))
	for _, s := range set {
		members = append(members, s)
	}
	return members
}

// channelsOf returns a snapshot of the channels the connection occupies.
func (r *registry) channelsOf(connID string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	channels := make([]Channel, 0, len(s.channels))
	for ch := range s.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (r *registry) selectedOf(connID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	if !ok || s.selected == "" {
		return "", false
	}
	return s.selected, true
}

func (r *registry) joinLocked(s *session, ch Channel) {
	if _, held := s.channels[ch]; held {
		return
	}
	s.channels[ch] = struct{}{}
	set := r.byChannel[ch]
	if set == nil {
		set = make(map[string]*session)
		r.byChannel[ch] = set
	}
	set[s.id] = s
}

func (r *registry) leaveLocked(s *session, ch Channel) {
	if _, held := s.channels[ch]; !held {
		return
	}
	delete(s.channels, ch)
	if set, ok := r.byChannel[ch]; ok {
		delete(set, s.id)
		if len(set) == 0 {
			delete(r.byChannel, ch)
		}
	}
	if s.selected == ch {
		s.selected = ""
	}
}
