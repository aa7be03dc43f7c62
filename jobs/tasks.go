package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/oncosaferx/authcore/internal/audit"
)

// Queue names.
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// Task types.
const (
	TaskSecurityAlert  = "alerts:security"
	TaskAuditRetention = "audit:retention"
)

// SecurityAlertPayload carries an audit entry to the out-of-band alert
// channel. The entry already holds hashed identifiers only.
type SecurityAlertPayload struct {
	Entry audit.Entry `json:"entry"`
}

// NewSecurityAlertTask builds a security alert task.
func NewSecurityAlertTask(payload SecurityAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSecurityAlert, data), nil
}

// AuditRetentionPayload bounds a retention sweep.
type AuditRetentionPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewAuditRetentionTask builds a retention sweep task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}
