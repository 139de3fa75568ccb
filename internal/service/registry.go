package service

import (
	"log/slog"
	"sync"

	"pairline/internal/domain"
)

// Registry is the source of truth for live connections. It knows nothing
// about rooms beyond a reverse index (connection -> room key) maintained for
// it by the room service, so that disconnect cleanup does not have to scan
// every room.
type Registry struct {
	log *slog.Logger

	mu     sync.RWMutex
	conns  map[string]*domain.Connection
	roomOf map[string]string
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:    log,
		conns:  make(map[string]*domain.Connection),
		roomOf: make(map[string]string),
	}
}

func (r *Registry) Register(conn *domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID] = conn
	r.log.Debug("connection registered", slog.String("conn_id", conn.ID))
}

// Unregister discards the connection record. Callers must run the room
// departure path first; once the record is gone the connection is
// unaddressable. Unregistering an unknown connection is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		return
	}
	delete(r.conns, connID)
	delete(r.roomOf, connID)
	r.log.Debug("connection unregistered", slog.String("conn_id", connID))
}

func (r *Registry) IsRegistered(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

func (r *Registry) BindRoom(connID, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		return
	}
	r.roomOf[connID] = roomKey
}

func (r *Registry) ClearRoom(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roomOf, connID)
}

func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.roomOf[connID]
	return key, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
