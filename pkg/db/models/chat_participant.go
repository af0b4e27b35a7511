package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// ChatParticipant is a member of a group chat.
type ChatParticipant struct {
	ID      uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ChatID  uuid.UUID             `gorm:"column:chat_id;type:uuid;not null;uniqueIndex:idx_chat_participants_chat_user"`
	UserID  uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_chat_participants_chat_user"`
	Role    enums.ParticipantRole `gorm:"column:role;type:text;not null"`
	AddedAt time.Time             `gorm:"column:added_at;not null"`
}

// TableName pins the table name for GORM.
func (ChatParticipant) TableName() string { return "chat_participants" }
