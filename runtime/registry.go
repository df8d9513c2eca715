package runtime

import (
	"sync"

	"gimp-server/contract"
)

type Set map[string]struct{}

// Registry tracks live subscriptions: which connection (session)
// holds which sink, and which sessions belong to which group room.
// It is independent of the transport, so fan-out stays testable
// without an open connection.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[string]contract.EventSink // session -> sink
	groupSessions map[string]Set                // group -> sessions
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[string]contract.EventSink),
		groupSessions: make(map[string]Set),
	}
}

// Subscribe registers a session's sink and assigns it to a group
// room, creating the room on the fly.
func (r *Registry) Subscribe(sessionID string, group string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = sink

	if _, ok := r.groupSessions[group]; !ok {
		r.groupSessions[group] = make(Set)
	}
	r.groupSessions[group][sessionID] = struct{}{}
}

// Unsubscribe drops a session and its room membership. Empty rooms
// are removed so the map doesn't leak over time. The member state
// behind the session is untouched; only the reaper deletes state.
func (r *Registry) Unsubscribe(sessionID string, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)

	if sessions, ok := r.groupSessions[group]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.groupSessions, group)
		}
	}
}

// SinksForGroup resolves the active sinks of a room, excluding the
// originating session so a member never receives its own update.
// Returns nil for an unknown or empty room.
func (r *Registry) SinksForGroup(group string, exceptSession string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions, ok := r.groupSessions[group]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for sessionID := range sessions {
		if sessionID == exceptSession {
			continue
		}
		if sink, exists := r.sessions[sessionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Counts reports how many rooms hold at least one live subscription
// and how many subscriber connections exist in total.
func (r *Registry) Counts() (rooms, sessions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groupSessions), len(r.sessions)
}
