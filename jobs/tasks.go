package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mealdesk/mealdesk-console/internal/auth"
	jobmetrics "github.com/mealdesk/mealdesk-console/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditSweep removes sign-in audit rows whose sessions expired.
	TaskAuditSweep = "audit:sweep"
)

// AuditSweepPayload configures one sweep run.
type AuditSweepPayload struct {
	// Retention keeps rows for this long past their session expiry.
	Retention time.Duration `json:"retention"`
}

// NewAuditSweepTask constructs an Asynq task for the audit sweep.
func NewAuditSweepTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditSweepPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditSweep, data, asynq.Queue(QueueDefault)), nil
}

// NewAuditSweepHandler returns the handler processing TaskAuditSweep.
func NewAuditSweepHandler(repo auth.AuditRepository, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskAuditSweep)
		cutoff := time.Now().Add(-payload.Retention)
		removed, err := repo.DeleteExpired(ctx, cutoff)
		if err != nil {
			logger.Error("audit sweep", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddSwept(removed)
		logger.Info("audit sweep complete", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
		return tracker.End(nil)
	}
}
