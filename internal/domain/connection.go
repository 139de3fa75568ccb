package domain

import (
	"time"

	"github.com/google/uuid"
)

// Connection is a live transport session known to the registry. The ID is
// opaque to everything above the registry; it only has to be unique for the
// lifetime of the underlying socket.
type Connection struct {
	ID        string
	CreatedAt time.Time
}

func NewConnection() *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}
