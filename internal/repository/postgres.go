package repository

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"pairline/internal/domain"
	"pairline/internal/repository/model"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	roomModel := toModelRoom(room)

	if err := r.db.WithContext(ctx).Create(roomModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomKeyExists
		}
		return err
	}
	return nil
}

func (r *PostgresRoomRepository) GetByKey(ctx context.Context, key string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).Preload("Members").First(&room, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	roomModel := toModelRoom(room)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Room{}).
			Where("key = ?", roomModel.Key).
			Update("created_at", roomModel.CreatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRoomNotFound
		}

		if err := tx.Where("room_key = ?", roomModel.Key).Delete(&model.Member{}).Error; err != nil {
			return err
		}

		if len(roomModel.Members) > 0 {
			if err := tx.Create(&roomModel.Members).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&model.Room{}, "key = ?", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rooms []model.Room
	if err := r.db.WithContext(ctx).Preload("Members").Find(&rooms).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		result = append(result, toDomainRoom(&rooms[i]))
	}
	return result, nil
}

func toModelRoom(room *domain.Room) *model.Room {
	room.Mutex.RLock()
	defer room.Mutex.RUnlock()

	members := make([]model.Member, 0, len(room.Members))
	for _, m := range room.Members {
		members = append(members, model.Member{
			ConnID:   m.ConnID,
			RoomKey:  room.Key,
			Role:     string(m.Role),
			Position: m.Position,
			JoinedAt: m.JoinedAt,
		})
	}

	return &model.Room{
		Key:       room.Key,
		CreatedAt: room.CreatedAt,
		Members:   members,
	}
}

func toDomainRoom(room *model.Room) *domain.Room {
	out := domain.NewRoom(room.Key)
	out.CreatedAt = room.CreatedAt

	sort.Slice(room.Members, func(i, j int) bool {
		return room.Members[i].Position < room.Members[j].Position
	})

	for _, m := range room.Members {
		member := domain.NewMember(m.ConnID, m.Position)
		member.Role = domain.Role(m.Role)
		member.JoinedAt = m.JoinedAt
		out.Members = append(out.Members, member)
	}
	return out
}
