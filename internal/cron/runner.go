// Package cron implements deterministic, idempotent job execution. Every
// trigger maps onto a logical run id derived from the job type and the
// trigger window; re-entrant triggers of the same window reuse the stored
// outcome instead of running twice.
package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/store"
	"github.com/pricewatch/catalog-aggregator/internal/store/schema"
)

// MaxRetries is the number of recorded failures after which a logical run
// is exhausted and no longer re-executed.
const MaxRetries = 2

// Aggregator is the unit of work the runner executes.
type Aggregator interface {
	AggregateAll(ctx context.Context) error
}

// LogicalID derives the deterministic run id for a trigger time. Trigger
// times within the same cadence window collapse onto the same id.
func LogicalID(jobType domain.JobType, t time.Time, cadence time.Duration) string {
	bucket := t.UTC().Truncate(cadence)
	return fmt.Sprintf("%s_%s", jobType, bucket.Format(time.RFC3339))
}

// Runner executes aggregation jobs and journals every attempt into the
// cron log.
type Runner struct {
	store      store.Store
	aggregator Aggregator
	json       adapter.JSON
	clock      adapter.Clock
	cadence    time.Duration
}

// NewRunner creates a job runner. cadence defines the idempotence window of
// the logical run id.
func NewRunner(s store.Store, aggregator Aggregator, json adapter.JSON, clock adapter.Clock, cadence time.Duration) *Runner {
	return &Runner{
		store:      s,
		aggregator: aggregator,
		json:       json,
		clock:      clock,
		cadence:    cadence,
	}
}

type jobInput struct {
	TriggerTime time.Time `json:"trigger_time"`
}

// Process handles one trigger. A finished successful run and an exhausted
// failed run both short-circuit to the stored log; a failed run below the
// retry ceiling executes again under the same logical id.
func (r *Runner) Process(ctx context.Context, triggerTime time.Time) (*schema.CronLog, error) {
	logicalID := LogicalID(domain.JobTypeProductAggregation, triggerTime, r.cadence)

	existing, err := r.store.GetCronLog(ctx, logicalID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cron log %q: %w", logicalID, err)
	}

	attempt := 1
	if existing != nil {
		switch {
		case existing.Status == domain.JobStatusSuccess:
			logger.InfoCtx(ctx, "Run already succeeded, skipping",
				zap.String("logical_id", logicalID),
			)
			return existing, nil
		case existing.RetryCount >= MaxRetries:
			logger.WarnCtx(ctx, "Run exhausted its retries, skipping",
				zap.String("logical_id", logicalID),
				zap.Int("retry_count", existing.RetryCount),
			)
			return existing, nil
		default:
			attempt = existing.RetryCount + 1
			logger.InfoCtx(ctx, "Retrying failed run",
				zap.String("logical_id", logicalID),
				zap.Int("attempt", attempt),
			)
		}
	}

	startTime := r.clock.Now()
	runErr := r.aggregator.AggregateAll(ctx)
	endTime := r.clock.Now()

	result := domain.JobResult{
		Success: runErr == nil,
		Message: "aggregation completed",
		Input:   jobInput{TriggerTime: triggerTime.UTC()},
	}
	if runErr != nil {
		result.Message = runErr.Error()
	}

	resultJSON, err := r.json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job result: %w", err)
	}

	log := &schema.CronLog{
		ID:         logicalID,
		Type:       domain.JobTypeProductAggregation,
		Status:     domain.StatusFromResult(result),
		StartTime:  startTime,
		EndTime:    endTime,
		RetryCount: attempt,
		Result:     resultJSON,
	}
	if runErr != nil {
		msg := runErr.Error()
		log.Error = &msg
	}

	if err := r.store.SaveCronLog(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to save cron log %q: %w", logicalID, err)
	}

	if runErr != nil {
		logger.ErrorCtx(ctx, runErr,
			zap.String("logical_id", logicalID),
			zap.Int("attempt", attempt),
		)
	}
	return log, nil
}

// ListFailed returns failed aggregation runs, newest first.
func (r *Runner) ListFailed(ctx context.Context, limit, offset int) ([]*schema.CronLog, int64, error) {
	return r.store.ListCronLogs(ctx, store.CronLogFilter{
		Type:   domain.JobTypeProductAggregation,
		Status: domain.JobStatusFailed,
		Limit:  limit,
		Offset: offset,
	})
}
