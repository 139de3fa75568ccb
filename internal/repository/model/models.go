package model

import "time"

type Room struct {
	Key       string    `gorm:"size:64;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	Members   []Member  `gorm:"foreignKey:RoomKey;constraint:OnDelete:CASCADE"`
}

type Member struct {
	ConnID   string    `gorm:"size:64;primaryKey"`
	RoomKey  string    `gorm:"size:64;index;not null"`
	Role     string    `gorm:"size:16;not null"`
	Position int       `gorm:"not null"`
	JoinedAt time.Time `gorm:"not null"`
}
