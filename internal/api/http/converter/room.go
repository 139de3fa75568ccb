package converter

import (
	"time"

	"pairline/internal/domain"
)

type RoomResponse struct {
	Key         string           `json:"key"`
	Members     []MemberResponse `json:"members"`
	MemberCount int              `json:"member_count"`
	CreatedAt   time.Time        `json:"created_at"`
}

type MemberResponse struct {
	ConnID   string    `json:"conn_id"`
	Role     string    `json:"role"`
	Position int       `json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	r.Mutex.RLock()
	members := make([]MemberResponse, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, MemberResponse{
			ConnID:   m.ConnID,
			Role:     string(m.Role),
			Position: m.Position,
			JoinedAt: m.JoinedAt,
		})
	}
	r.Mutex.RUnlock()

	return &RoomResponse{
		Key:         r.Key,
		Members:     members,
		MemberCount: len(members),
		CreatedAt:   r.CreatedAt,
	}
}
