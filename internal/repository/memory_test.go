package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairline/internal/domain"
)

func TestInMemoryRoomRepositoryCRUD(t *testing.T) {
	repo := NewInMemoryRoomRepository()
	ctx := context.Background()

	room := domain.NewRoom("r1")
	require.NoError(t, repo.Create(ctx, room))
	require.ErrorIs(t, repo.Create(ctx, domain.NewRoom("r1")), ErrRoomKeyExists)

	got, err := repo.GetByKey(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room, got)

	room.Members = append(room.Members, domain.NewMember("c1", 0))
	require.NoError(t, repo.Update(ctx, room))

	got, err = repo.GetByKey(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)

	rooms, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	require.NoError(t, repo.Delete(ctx, "r1"))
	_, err = repo.GetByKey(ctx, "r1")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestInMemoryRoomRepositoryMissingRoom(t *testing.T) {
	repo := NewInMemoryRoomRepository()
	ctx := context.Background()

	_, err := repo.GetByKey(ctx, "missing")
	require.ErrorIs(t, err, ErrRoomNotFound)
	require.ErrorIs(t, repo.Update(ctx, domain.NewRoom("missing")), ErrRoomNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "missing"), ErrRoomNotFound)
}

func TestInMemoryRoomRepositoryHonorsContext(t *testing.T) {
	repo := NewInMemoryRoomRepository()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, repo.Create(ctx, domain.NewRoom("r1")))
	_, err := repo.List(ctx)
	require.Error(t, err)
}
