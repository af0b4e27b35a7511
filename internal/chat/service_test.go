package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

type stubChatRepo struct {
	chat            *models.GroupChat
	existingByExtID *models.Message
	extIDResults    []*models.Message
	maxSeq          int64
	created         []*models.Message
	createErrs      []error
	contact         *models.ExternalContact
	message         *models.Message
}

func (s *stubChatRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubChatRepo) FindChat(ctx context.Context, chatID uuid.UUID) (*models.GroupChat, error) {
	if s.chat == nil || s.chat.ID != chatID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.chat, nil
}

func (s *stubChatRepo) FindChatByOrderID(ctx context.Context, orderID uuid.UUID) (*models.GroupChat, error) {
	if s.chat == nil || s.chat.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.chat, nil
}

func (s *stubChatRepo) FindMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	if s.message == nil || s.message.ID != messageID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.message, nil
}

func (s *stubChatRepo) FindMessageByExternalID(ctx context.Context, chatID uuid.UUID, source enums.MessageSource, externalID string) (*models.Message, error) {
	if len(s.extIDResults) > 0 {
		result := s.extIDResults[0]
		s.extIDResults = s.extIDResults[1:]
		if result == nil {
			return nil, gorm.ErrRecordNotFound
		}
		return result, nil
	}
	if s.existingByExtID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existingByExtID, nil
}

func (s *stubChatRepo) MaxSeq(ctx context.Context, chatID uuid.UUID) (int64, error) {
	return s.maxSeq, nil
}

func (s *stubChatRepo) CreateMessage(ctx context.Context, message *models.Message) error {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			s.maxSeq++
			return err
		}
	}
	s.created = append(s.created, message)
	return nil
}

func (s *stubChatRepo) FindExternalContact(ctx context.Context, userID uuid.UUID, provider string) (*models.ExternalContact, error) {
	if s.contact == nil || s.contact.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.contact, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestChat() *models.GroupChat {
	return &models.GroupChat{
		ID:      uuid.New(),
		OrderID: uuid.New(),
	}
}

func strPtr(value string) *string {
	return &value
}

func TestIngestInternalAssignsSeqAndEmits(t *testing.T) {
	chat := newTestChat()
	repo := &stubChatRepo{chat: chat, maxSeq: 4}
	sink := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, sink)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	sender := uuid.New()
	message, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:       chat.ID,
		SenderUserID: &sender,
		Body:         "Sample batch ships Friday",
		Source:       enums.MessageSourceInternal,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if message.Seq != 5 {
		t.Fatalf("expected seq 5 got %d", message.Seq)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventMessageRecorded {
		t.Fatalf("expected message recorded event got %+v", sink.events)
	}
	payload, ok := sink.events[0].Data.(payloads.MessageRecordedEvent)
	if !ok || payload.OrderID != chat.OrderID || payload.Seq != 5 {
		t.Fatalf("unexpected payload %+v", sink.events[0].Data)
	}
}

func TestIngestExternalDedupReturnsStoredRow(t *testing.T) {
	chat := newTestChat()
	stored := &models.Message{
		ID:                uuid.New(),
		ChatID:            chat.ID,
		Seq:               2,
		Source:            enums.MessageSourceExternal,
		ExternalMessageID: strPtr("ext-1"),
		Body:              "already here",
	}
	repo := &stubChatRepo{chat: chat, existingByExtID: stored}
	sink := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, sink)

	message, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:            chat.ID,
		Body:              "already here",
		Source:            enums.MessageSourceExternal,
		ExternalMessageID: strPtr("ext-1"),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if message.ID != stored.ID {
		t.Fatalf("expected stored row got %s", message.ID)
	}
	if len(repo.created) != 0 {
		t.Fatal("duplicate must not insert")
	}
	if len(sink.events) != 0 {
		t.Fatal("duplicate must not emit")
	}
}

func TestIngestExternalDedupRaceReturnsWinner(t *testing.T) {
	chat := newTestChat()
	winner := &models.Message{
		ID:                uuid.New(),
		ChatID:            chat.ID,
		Seq:               3,
		Source:            enums.MessageSourceExternal,
		ExternalMessageID: strPtr("ext-race"),
		Body:              "landed first",
	}
	repo := &stubChatRepo{
		chat:         chat,
		extIDResults: []*models.Message{nil, winner},
		createErrs:   []error{fmt.Errorf("duplicate key value violates unique constraint %q", externalDedupIndex)},
	}
	sink := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, sink)

	message, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:            chat.ID,
		Body:              "landed first",
		Source:            enums.MessageSourceExternal,
		ExternalMessageID: strPtr("ext-race"),
	})
	if err != nil {
		t.Fatalf("losing replay must absorb the race, got %v", err)
	}
	if message.ID != winner.ID {
		t.Fatalf("expected winner row got %s", message.ID)
	}
	if len(repo.created) != 0 {
		t.Fatal("losing replay must not insert")
	}
	if len(sink.events) != 0 {
		t.Fatal("losing replay must not emit")
	}
}

func TestIngestExternalDoesNotEmit(t *testing.T) {
	chat := newTestChat()
	repo := &stubChatRepo{chat: chat}
	sink := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, sink)

	_, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:            chat.ID,
		Body:              "from the provider",
		Source:            enums.MessageSourceExternal,
		ExternalMessageID: strPtr("ext-2"),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected insert got %d", len(repo.created))
	}
	if len(sink.events) != 0 {
		t.Fatal("external messages must not emit recorded events")
	}
}

func TestIngestRetriesSeqCollisionOnce(t *testing.T) {
	chat := newTestChat()
	repo := &stubChatRepo{
		chat:       chat,
		maxSeq:     7,
		createErrs: []error{fmt.Errorf("UNIQUE constraint failed: %s", seqUniqueIndex)},
	}
	sink := &stubOutboxPublisher{}
	svc, _ := NewService(repo, stubTxRunner{}, sink)

	sender := uuid.New()
	message, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:       chat.ID,
		SenderUserID: &sender,
		Body:         "retry me",
		Source:       enums.MessageSourceInternal,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if message.Seq != 9 {
		t.Fatalf("expected reassigned seq got %d", message.Seq)
	}
}

func TestIngestSeqCollisionTwiceConflicts(t *testing.T) {
	chat := newTestChat()
	collision := fmt.Errorf("UNIQUE constraint failed: %s", seqUniqueIndex)
	repo := &stubChatRepo{
		chat:       chat,
		createErrs: []error{collision, collision},
	}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	sender := uuid.New()
	_, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:       chat.ID,
		SenderUserID: &sender,
		Body:         "contended",
		Source:       enums.MessageSourceInternal,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestIngestValidation(t *testing.T) {
	svc, _ := NewService(&stubChatRepo{}, stubTxRunner{}, &stubOutboxPublisher{})
	sender := uuid.New()

	cases := []struct {
		name  string
		input IngestInput
	}{
		{"missing chat", IngestInput{Body: "x", Source: enums.MessageSourceInternal, SenderUserID: &sender}},
		{"empty body", IngestInput{ChatID: uuid.New(), Source: enums.MessageSourceInternal, SenderUserID: &sender}},
		{"internal without sender", IngestInput{ChatID: uuid.New(), Body: "x", Source: enums.MessageSourceInternal}},
		{"external without id", IngestInput{ChatID: uuid.New(), Body: "x", Source: enums.MessageSourceExternal}},
		{"bad source", IngestInput{ChatID: uuid.New(), Body: "x", Source: "carrier_pigeon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error got %v", err)
			}
		})
	}
}

func TestIngestChatNotFound(t *testing.T) {
	svc, _ := NewService(&stubChatRepo{}, stubTxRunner{}, &stubOutboxPublisher{})
	sender := uuid.New()

	_, err := svc.Ingest(context.Background(), IngestInput{
		ChatID:       uuid.New(),
		SenderUserID: &sender,
		Body:         "hello",
		Source:       enums.MessageSourceInternal,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
