package domain

import (
	"sync"
	"time"
)

// Room is a capacity-bounded grouping of connections sharing a relay
// channel. The key is caller-supplied; rooms are created lazily on the first
// join attempt and deleted once the last member departs.
//
// Members is ordered by arrival, which is the only thing the role assignment
// looks at.
type Room struct {
	Mutex     sync.RWMutex
	Key       string
	Members   []*Member
	CreatedAt time.Time
}

func NewRoom(key string) *Room {
	return &Room{
		Key:       key,
		Members:   make([]*Member, 0, 2),
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Room) MemberCount() int {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	return len(r.Members)
}

// MemberByConn returns the member entry for a connection, if present.
func (r *Room) MemberByConn(connID string) (*Member, bool) {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	for _, m := range r.Members {
		if m.ConnID == connID {
			return m, true
		}
	}
	return nil, false
}

// OtherMembers snapshots every member except the given connection.
func (r *Room) OtherMembers(exclude string) []*Member {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	out := make([]*Member, 0, len(r.Members))
	for _, m := range r.Members {
		if m.ConnID == exclude {
			continue
		}
		out = append(out, m)
	}
	return out
}

// IsStale reports whether the room is empty and has outlived the retention
// window. Non-empty rooms are never stale, whatever their age.
func (r *Room) IsStale(retention time.Duration) bool {
	if r == nil {
		return true
	}
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	if len(r.Members) > 0 {
		return false
	}
	return time.Now().UTC().Sub(r.CreatedAt) > retention
}
