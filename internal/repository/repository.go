package repository

import (
	"context"
	"errors"

	"pairline/internal/domain"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomKeyExists = errors.New("room key already exists")
)

// RoomRepository mirrors room and membership records durably. Live
// membership in memory stays authoritative; the mirror exists so that rooms
// surviving a crash are still visible to the sweep and to the read API.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByKey(ctx context.Context, key string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*domain.Room, error)
}
