package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SecurityAlertJob delivers out-of-band security alerts. The default
// delivery is the structured alert log; deployments forward that stream to
// their paging integration.
type SecurityAlertJob struct {
	Logger *slog.Logger
}

// NewSecurityAlertJob initialises the alert handler.
func NewSecurityAlertJob(logger *slog.Logger) *SecurityAlertJob {
	return &SecurityAlertJob{Logger: logger}
}

// Handle processes one alert task.
func (j *SecurityAlertJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Logger == nil {
		return errors.New("security alert: handler not configured")
	}
	var payload SecurityAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	e := payload.Entry
	j.Logger.Warn("security alert",
		slog.String("channel", "security_alerts"),
		slog.String("audit_id", e.ID),
		slog.String("event_type", e.EventType),
		slog.String("risk_level", e.RiskLevel),
		slog.String("tenant_id", e.TenantID),
		slog.String("actor_hash", e.ActorHash),
		slog.Time("occurred_at", e.Timestamp))
	return nil
}
