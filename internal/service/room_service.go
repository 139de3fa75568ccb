package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"pairline/internal/config"
	"pairline/internal/domain"
	"pairline/internal/repository"

	"pairline/lib/logger/sl"
)

// RoomService owns the room map. All membership mutation funnels through it;
// no other component reaches into room internals. Live rooms are held in
// memory and mirrored to the repository, which is best-effort: a mirror
// write failure never rolls back a committed membership change.
type RoomService struct {
	repo     repository.RoomRepository
	registry *Registry
	log      *slog.Logger

	capacity  int
	maxKeyLen int

	mu     sync.RWMutex
	active map[string]*domain.Room
}

func NewRoomService(repo repository.RoomRepository, registry *Registry, log *slog.Logger, cfg config.SignalingConfig) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		repo:      repo,
		registry:  registry,
		log:       log,
		capacity:  cfg.RoomCapacity,
		maxKeyLen: cfg.MaxRoomKeyLength,
		active:    make(map[string]*domain.Room),
	}
}

// Join admits a connection into a room, creating the room lazily. The first
// arrival becomes the answerer and waits; the second becomes the offerer and
// both sides are ready. The joining connection learns its role from the
// returned result; an already-present member learns the peer arrived via a
// room-ready event on its queue.
func (s *RoomService) Join(ctx context.Context, roomKey, connID string) (*JoinResult, error) {
	const op = "service.room.join"

	key := strings.TrimSpace(roomKey)
	if key == "" || utf8.RuneCountInString(key) > s.maxKeyLen {
		return nil, ErrRoomKeyInvalid
	}
	if !s.registry.IsRegistered(connID) {
		return nil, ErrConnectionUnknown
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("room", key),
		slog.String("conn_id", connID),
	)

	room := s.getOrCreateRoom(ctx, key)

	room.Mutex.Lock()
	if existing := memberByConnLocked(room, connID); existing != nil {
		// Re-join with the same identity: report the current state,
		// do not duplicate the entry.
		decision := DecisionWaiting
		if len(room.Members) >= s.capacity {
			decision = DecisionReady
		}
		room.Mutex.Unlock()
		log.Info("re-join treated as no-op", slog.String("role", string(existing.Role)))
		return &JoinResult{Member: existing, Decision: decision}, nil
	}

	if len(room.Members) >= s.capacity {
		room.Mutex.Unlock()
		log.Info("join rejected, room full")
		return nil, ErrRoomFull
	}

	position := len(room.Members)
	member := domain.NewMember(connID, position)
	room.Members = append(room.Members, member)
	peers := make([]*domain.Member, 0, len(room.Members)-1)
	for _, m := range room.Members {
		if m.ConnID != connID {
			peers = append(peers, m)
		}
	}
	full := len(room.Members) >= s.capacity
	room.Mutex.Unlock()

	// A sweep racing this join may have dropped the room between lookup
	// and commit. Re-inserting keeps the occupied room reachable.
	s.mu.Lock()
	if _, ok := s.active[key]; !ok {
		s.active[key] = room
	}
	s.mu.Unlock()

	s.registry.BindRoom(connID, key)
	s.persist(ctx, room)

	decision := DecisionWaiting
	if full {
		decision = DecisionReady
		// Peers already in the room learn their polarity out-of-band,
		// after membership is committed.
		for _, peer := range peers {
			peer.EnqueueEvent(domain.SignalMessage{
				Type: domain.EventRoomReady,
				Room: key,
				Payload: map[string]any{
					"is_offerer": peer.Role == domain.RoleOfferer,
					"peer_id":    member.ConnID,
				},
			})
		}
	}

	log.Info("member joined",
		slog.String("role", string(member.Role)),
		slog.Int("position", member.Position),
		slog.String("decision", string(decision)),
	)
	return &JoinResult{Member: member, Decision: decision}, nil
}

// Leave handles an explicit departure. Leaving a room the connection is not
// in, or a room that no longer exists, is a benign no-op: disconnect races
// are expected.
func (s *RoomService) Leave(ctx context.Context, roomKey, connID string) error {
	return s.depart(ctx, strings.TrimSpace(roomKey), connID, domain.EventPeerLeft)
}

// HandleDisconnect mirrors Leave for an involuntary departure, then discards
// the connection record. Duplicate disconnect signals are no-ops. Cleanup
// runs before the record is dropped so the remaining peer can still be told
// who went away.
func (s *RoomService) HandleDisconnect(ctx context.Context, connID string) error {
	if !s.registry.IsRegistered(connID) {
		return nil
	}

	key, ok := s.registry.RoomOf(connID)
	if !ok {
		// Reverse index may be cold; fall back to scanning and act on
		// the first room that knows this connection.
		key = s.findRoomOf(connID)
	}
	if key != "" {
		if err := s.depart(ctx, key, connID, domain.EventPeerDisconnected); err != nil {
			return err
		}
	}

	s.registry.Unregister(connID)
	return nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomKey string) (*domain.Room, error) {
	s.mu.RLock()
	room, ok := s.active[roomKey]
	s.mu.RUnlock()
	if ok {
		return room, nil
	}
	return s.repo.GetByKey(ctx, roomKey)
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Room, 0, len(s.active))
	for _, room := range s.active {
		out = append(out, room)
	}
	return out, nil
}

// ActiveRoom exposes a live room to the relay. The repository mirror is
// never consulted here: relaying into a room that is not live is a no-op.
func (s *RoomService) ActiveRoom(roomKey string) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.active[roomKey]
	return room, ok
}

// SweepStale deletes rooms that are empty and older than the retention
// window: first live rooms whose synchronous deletion was missed, then
// repository records orphaned by a restart. Returns the number of rooms
// reclaimed.
func (s *RoomService) SweepStale(ctx context.Context, retention time.Duration) int {
	reclaimed := 0

	s.mu.RLock()
	candidates := make([]string, 0, len(s.active))
	for key, room := range s.active {
		if room.IsStale(retention) {
			candidates = append(candidates, key)
		}
	}
	s.mu.RUnlock()

	for _, key := range candidates {
		s.mu.Lock()
		room, ok := s.active[key]
		if ok && room.IsStale(retention) {
			delete(s.active, key)
		} else {
			ok = false
		}
		s.mu.Unlock()
		if ok {
			s.deleteRecord(ctx, key)
			reclaimed++
			s.log.Info("swept stale room", slog.String("room", key))
		}
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("sweep: failed to list room records", sl.Err(err))
		return reclaimed
	}
	for _, record := range records {
		if !record.IsStale(retention) {
			continue
		}
		if _, live := s.ActiveRoom(record.Key); live {
			continue
		}
		s.deleteRecord(ctx, record.Key)
		reclaimed++
		s.log.Info("swept orphaned room record", slog.String("room", record.Key))
	}

	return reclaimed
}

func (s *RoomService) getOrCreateRoom(ctx context.Context, key string) *domain.Room {
	s.mu.RLock()
	room, ok := s.active[key]
	s.mu.RUnlock()
	if ok {
		return room
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.active[key]; ok {
		return room
	}
	room = domain.NewRoom(key)
	s.active[key] = room

	if err := s.repo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrRoomKeyExists) {
			// Stale record from a previous run; take it over.
			err = s.repo.Update(ctx, room)
		}
		if err != nil {
			s.log.Error("failed to mirror room record", slog.String("room", key), sl.Err(err))
		}
	}
	s.log.Info("room created", slog.String("room", key))
	return room
}

func (s *RoomService) depart(ctx context.Context, roomKey, connID, eventType string) error {
	s.mu.RLock()
	room, ok := s.active[roomKey]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	room.Mutex.Lock()
	idx := -1
	for i, m := range room.Members {
		if m.ConnID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		room.Mutex.Unlock()
		return nil
	}
	member := room.Members[idx]
	room.Members = append(room.Members[:idx], room.Members[idx+1:]...)
	empty := len(room.Members) == 0
	remaining := make([]*domain.Member, len(room.Members))
	copy(remaining, room.Members)
	room.Mutex.Unlock()

	member.Close()
	s.registry.ClearRoom(connID)

	for _, peer := range remaining {
		peer.EnqueueEvent(domain.SignalMessage{
			Type: eventType,
			Room: roomKey,
			Payload: map[string]any{
				"peer_id": connID,
			},
		})
	}

	if empty {
		s.mu.Lock()
		if current, ok := s.active[roomKey]; ok && current == room {
			delete(s.active, roomKey)
		}
		s.mu.Unlock()
		s.deleteRecord(ctx, roomKey)
		s.log.Info("room deleted", slog.String("room", roomKey))
	} else {
		s.persist(ctx, room)
	}

	s.log.Info("member departed",
		slog.String("room", roomKey),
		slog.String("conn_id", connID),
		slog.String("event", eventType),
	)
	return nil
}

func (s *RoomService) findRoomOf(connID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, room := range s.active {
		if _, ok := room.MemberByConn(connID); ok {
			return key
		}
	}
	return ""
}

func (s *RoomService) persist(ctx context.Context, room *domain.Room) {
	err := s.repo.Update(ctx, room)
	if errors.Is(err, repository.ErrRoomNotFound) {
		err = s.repo.Create(ctx, room)
	}
	if err != nil {
		s.log.Error("failed to mirror room record", slog.String("room", room.Key), sl.Err(err))
	}
}

func (s *RoomService) deleteRecord(ctx context.Context, roomKey string) {
	if err := s.repo.Delete(ctx, roomKey); err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		s.log.Error("failed to delete room record", slog.String("room", roomKey), sl.Err(err))
	}
}

func memberByConnLocked(room *domain.Room, connID string) *domain.Member {
	for _, m := range room.Members {
		if m.ConnID == connID {
			return m
		}
	}
	return nil
}
