package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

const defaultFollowupBatch = 100

// FollowupJobParams configure the followup dispatch job.
type FollowupJobParams struct {
	Logger    *logger.Logger
	Followups followupProcessor
	Batch     int
}

type followupProcessor interface {
	ProcessDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// NewFollowupJob builds the job that claims due followups and emits their
// events.
func NewFollowupJob(params FollowupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Followups == nil {
		return nil, fmt.Errorf("followup service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultFollowupBatch
	}
	return &followupJob{
		logg:      params.Logger,
		followups: params.Followups,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type followupJob struct {
	logg      *logger.Logger
	followups followupProcessor
	batch     int
	now       func() time.Time
}

func (j *followupJob) Name() string { return "followup-dispatch" }

func (j *followupJob) Run(ctx context.Context) error {
	claimed, err := j.followups.ProcessDue(ctx, j.now().UTC(), j.batch)
	if err != nil {
		return fmt.Errorf("followup dispatch: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"claimed": len(claimed),
		"batch":   j.batch,
	})
	j.logg.Info(logCtx, "followups dispatched")
	return nil
}
