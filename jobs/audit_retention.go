package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRetentionJob removes primary-sink audit rows whose retention period
// has elapsed. The file sink is rotated by day and archived out of band.
type AuditRetentionJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewAuditRetentionJob initialises the retention sweep handler.
func NewAuditRetentionJob(pool *pgxpool.Pool, logger *slog.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{Pool: pool, Logger: logger}
}

// Handle executes one retention sweep.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = 10000
	}

	tag, err := j.Pool.Exec(ctx,
		`DELETE FROM audit_entries
		 WHERE id IN (
			SELECT id FROM audit_entries
			WHERE occurred_at < NOW() - (retention_days || ' days')::interval
			LIMIT $1
		 )`, payload.BatchSize)
	if err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("audit retention sweep complete", slog.Int64("deleted", tag.RowsAffected()))
	}
	return nil
}
