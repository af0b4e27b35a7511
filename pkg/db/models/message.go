package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// Message is a single chat message. Seq is assigned server-side per chat and
// backed by a unique index on (chat_id, seq); external messages also carry a
// dedup key on (chat_id, source, external_message_id).
type Message struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ChatID            uuid.UUID           `gorm:"column:chat_id;type:uuid;not null;uniqueIndex:idx_messages_chat_seq"`
	Seq               int64               `gorm:"column:seq;not null;uniqueIndex:idx_messages_chat_seq"`
	Source            enums.MessageSource `gorm:"column:source;type:text;not null"`
	SenderUserID      *uuid.UUID          `gorm:"column:sender_user_id;type:uuid"`
	ExternalMessageID *string             `gorm:"column:external_message_id"`
	Body              string              `gorm:"column:body;not null"`
	AttachmentURL     *string             `gorm:"column:attachment_url"`
	SentAt            time.Time           `gorm:"column:sent_at;not null"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name for GORM.
func (Message) TableName() string { return "messages" }
