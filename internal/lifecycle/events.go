package lifecycle

import "sort"

// EventType identifies a lifecycle broadcast.
type EventType int

const (
	EventResetStarted EventType = iota
	EventResetCompleted
	EventResetFailed
)

func (t EventType) String() string {
	switch t {
	case EventResetStarted:
		return "reset_started"
	case EventResetCompleted:
		return "reset_completed"
	case EventResetFailed:
		return "reset_failed"
	}
	return "unknown"
}

// Event is delivered to subscribers. Token is the reset token in effect when
// the event was sent.
type Event struct {
	Type  EventType
	Token string
	Err   error
}

// Subscribe registers fn for lifecycle events and returns a function that
// removes it. fn runs synchronously on the resetting goroutine and must not
// call Manager methods that synchronize or reset.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) broadcast(ev Event) {
	m.subsMu.Lock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subs[id])
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
