package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

type fakeFollowupProcessor struct {
	lastNow   time.Time
	lastLimit int
	claimed   []uuid.UUID
	err       error
}

func (f *fakeFollowupProcessor) ProcessDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	f.lastNow = now
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.claimed, nil
}

func newFollowupJob(t *testing.T, processor *fakeFollowupProcessor, batch int) *followupJob {
	t.Helper()

	jobIface, err := NewFollowupJob(FollowupJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Followups: processor,
		Batch:     batch,
	})
	if err != nil {
		t.Fatalf("NewFollowupJob: %v", err)
	}
	job, ok := jobIface.(*followupJob)
	if !ok {
		t.Fatalf("expected followupJob, got %T", jobIface)
	}
	return job
}

func TestFollowupJobProcessesBatch(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	processor := &fakeFollowupProcessor{claimed: []uuid.UUID{uuid.New(), uuid.New()}}
	job := newFollowupJob(t, processor, 25)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !processor.lastNow.Equal(now) {
		t.Fatalf("expected now %s, got %s", now, processor.lastNow)
	}
	if processor.lastLimit != 25 {
		t.Fatalf("expected batch 25, got %d", processor.lastLimit)
	}
}

func TestFollowupJobDefaultsBatch(t *testing.T) {
	processor := &fakeFollowupProcessor{}
	job := newFollowupJob(t, processor, 0)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processor.lastLimit != defaultFollowupBatch {
		t.Fatalf("expected default batch %d, got %d", defaultFollowupBatch, processor.lastLimit)
	}
}

func TestFollowupJobPropagatesError(t *testing.T) {
	processor := &fakeFollowupProcessor{err: errors.New("boom")}
	job := newFollowupJob(t, processor, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
