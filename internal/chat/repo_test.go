package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

func setupChatTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	chats := `
CREATE TABLE IF NOT EXISTS group_chats (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  external_thread_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	messages := `
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  chat_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  source TEXT NOT NULL,
  sender_user_id TEXT,
  external_message_id TEXT,
  body TEXT NOT NULL,
  attachment_url TEXT,
  sent_at DATETIME NOT NULL,
  created_at DATETIME
);`
	seqIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_chat_seq ON messages (chat_id, seq);`
	extIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS ux_messages_chat_source_external
  ON messages (chat_id, source, external_message_id)
  WHERE external_message_id IS NOT NULL;`
	contacts := `
CREATE TABLE IF NOT EXISTS external_contacts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  provider TEXT NOT NULL,
  handle TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(chats).Error)
	require.NoError(t, conn.Exec(messages).Error)
	require.NoError(t, conn.Exec(seqIndex).Error)
	require.NoError(t, conn.Exec(extIndex).Error)
	require.NoError(t, conn.Exec(contacts).Error)
	return conn
}

func createChatRow(t *testing.T, conn *gorm.DB) *models.GroupChat {
	t.Helper()

	chat := &models.GroupChat{
		ID:      uuid.New(),
		OrderID: uuid.New(),
	}
	require.NoError(t, conn.Create(chat).Error)
	return chat
}

func createMessageRow(t *testing.T, conn *gorm.DB, chatID uuid.UUID, seq int64, source enums.MessageSource, externalID *string) *models.Message {
	t.Helper()

	message := &models.Message{
		ID:                uuid.New(),
		ChatID:            chatID,
		Seq:               seq,
		Source:            source,
		ExternalMessageID: externalID,
		Body:              "hello",
		SentAt:            time.Now().UTC(),
	}
	require.NoError(t, conn.Create(message).Error)
	return message
}

func TestRepositoryMaxSeq(t *testing.T) {
	conn := setupChatTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	chat := createChatRow(t, conn)

	max, err := repo.MaxSeq(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	createMessageRow(t, conn, chat.ID, 1, enums.MessageSourceInternal, nil)
	createMessageRow(t, conn, chat.ID, 2, enums.MessageSourceExternal, strPtr("ext-a"))

	max, err = repo.MaxSeq(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), max)
}

func TestRepositorySeqUniquePerChat(t *testing.T) {
	conn := setupChatTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	chat := createChatRow(t, conn)
	createMessageRow(t, conn, chat.ID, 1, enums.MessageSourceInternal, nil)

	err := repo.CreateMessage(ctx, &models.Message{
		ID:     uuid.New(),
		ChatID: chat.ID,
		Seq:    1,
		Source: enums.MessageSourceInternal,
		Body:   "collision",
		SentAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	// Same seq on a different chat is fine.
	other := createChatRow(t, conn)
	require.NoError(t, repo.CreateMessage(ctx, &models.Message{
		ID:     uuid.New(),
		ChatID: other.ID,
		Seq:    1,
		Source: enums.MessageSourceInternal,
		Body:   "ok",
		SentAt: time.Now().UTC(),
	}))
}

func TestRepositoryFindMessageByExternalID(t *testing.T) {
	conn := setupChatTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	chat := createChatRow(t, conn)
	stored := createMessageRow(t, conn, chat.ID, 1, enums.MessageSourceExternal, strPtr("ext-b"))

	found, err := repo.FindMessageByExternalID(ctx, chat.ID, enums.MessageSourceExternal, "ext-b")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, found.ID)

	_, err = repo.FindMessageByExternalID(ctx, chat.ID, enums.MessageSourceExternal, "ext-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindChatByOrderID(t *testing.T) {
	conn := setupChatTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	chat := createChatRow(t, conn)

	found, err := repo.FindChatByOrderID(ctx, chat.OrderID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, found.ID)
}

func TestRepositoryFindExternalContact(t *testing.T) {
	conn := setupChatTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	contact := &models.ExternalContact{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Provider: "messenger",
		Handle:   "lin.factory",
	}
	require.NoError(t, conn.Create(contact).Error)

	found, err := repo.FindExternalContact(ctx, contact.UserID, "messenger")
	require.NoError(t, err)
	assert.Equal(t, "lin.factory", found.Handle)

	_, err = repo.FindExternalContact(ctx, contact.UserID, "other")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
