package domain

import (
	"sync"
	"time"
)

type Role string

const (
	// RoleAnswerer waits for the negotiation to be initiated. The first
	// connection to enter an empty room always gets this role.
	RoleAnswerer Role = "answerer"
	// RoleOfferer initiates the negotiation. The second arrival always
	// gets this role.
	RoleOfferer Role = "offerer"
)

// RoleForPosition maps arrival position inside a room to a negotiation role.
// Position is the member count at the moment of joining.
func RoleForPosition(position int) Role {
	if position == 0 {
		return RoleAnswerer
	}
	return RoleOfferer
}

// Member is a room-scoped projection of a connection. The role is fixed at
// join time and never reassigned while the member stays in the room.
type Member struct {
	ConnID   string
	Role     Role
	Position int
	JoinedAt time.Time

	mu     sync.RWMutex
	closed bool
	Events chan SignalMessage
}

func NewMember(connID string, position int) *Member {
	return &Member{
		ConnID:   connID,
		Role:     RoleForPosition(position),
		Position: position,
		JoinedAt: time.Now().UTC(),
		Events:   make(chan SignalMessage, 16),
	}
}

// EnqueueEvent hands an event to the member's outbound queue without
// blocking. Events for a slow or departed member are dropped; a stale peer
// will produce its own disconnect soon enough.
func (m *Member) EnqueueEvent(event SignalMessage) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.Events <- event:
	default:
	}
}

// Close shuts the event queue. Safe to call more than once.
func (m *Member) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.Events)
}
