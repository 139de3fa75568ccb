package service

import (
	"context"
	"errors"

	"pairline/internal/domain"
)

var (
	// Validation failures: rejected synchronously, nothing mutated.
	ErrRoomKeyInvalid    = errors.New("room key is invalid")
	ErrConnectionUnknown = errors.New("connection is not registered")
	ErrChatEmpty         = errors.New("chat message cannot be empty")
	ErrChatTooLong       = errors.New("chat message is too long")
	ErrUnsupportedSignal = errors.New("unsupported signal type")

	// Capacity failure: rejected, no partial membership left behind.
	ErrRoomFull = errors.New("room full")
)

// Decision is the admission outcome reported to the joining connection.
type Decision string

const (
	// DecisionWaiting: the connection is alone in the room and waits for a
	// peer.
	DecisionWaiting Decision = "waiting"
	// DecisionReady: both parties are present, negotiation can start.
	DecisionReady Decision = "ready"
)

type JoinResult struct {
	Member   *domain.Member
	Decision Decision
}

type RoomInteractor interface {
	Join(ctx context.Context, roomKey, connID string) (*JoinResult, error)
	Leave(ctx context.Context, roomKey, connID string) error
	HandleDisconnect(ctx context.Context, connID string) error
	GetRoom(ctx context.Context, roomKey string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
}

type RelayInteractor interface {
	Relay(ctx context.Context, roomKey, senderID string, msg *domain.SignalMessage) error
}
