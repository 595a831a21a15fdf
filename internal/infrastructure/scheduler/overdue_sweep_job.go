package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/clubdeportivo/backend/internal/application/billing"
	"go.uber.org/zap"
)

// OverdueSweepJobName identifies the overdue sweep in logs and RunNow
const OverdueSweepJobName = "overdue_sweep"

// OverdueMarker is the part of the billing service the sweep needs
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, referenceDate time.Time) (*billing.MarkOverdueResult, error)
}

// OverdueSweepJob moves every pending installment whose due date has passed
// to OVERDUE, using the run's start time as the reference date.
type OverdueSweepJob struct {
	marker  OverdueMarker
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewOverdueSweepJob creates the job. A non-positive timeout means no limit
// beyond the scheduler's own context.
func NewOverdueSweepJob(marker OverdueMarker, timeout time.Duration, logger *zap.Logger) *OverdueSweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweepJob{
		marker:  marker,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

func (j *OverdueSweepJob) Name() string { return OverdueSweepJobName }

func (j *OverdueSweepJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	ref := j.now()
	result, err := j.marker.MarkOverdue(ctx, ref)
	if err != nil {
		marked := 0
		if result != nil {
			marked = result.Marked
		}
		return fmt.Errorf("overdue sweep at %s (marked %d before failing): %w",
			ref.Format(time.RFC3339), marked, err)
	}

	j.logger.Info("overdue sweep finished",
		zap.Time("reference_date", result.ReferenceDate),
		zap.Int("marked", result.Marked),
	)
	return nil
}
