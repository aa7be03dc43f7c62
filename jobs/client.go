package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/oncosaferx/authcore/internal/audit"
)

// Client submits jobs to the queue. It implements audit.AlertDispatcher so
// the recorder can hand critical events to the out-of-band channel without
// knowing about asynq.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// DispatchSecurityAlert enqueues a security alert on the critical queue.
func (c *Client) DispatchSecurityAlert(ctx context.Context, entry audit.Entry) error {
	task, err := NewSecurityAlertTask(SecurityAlertPayload{Entry: entry})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueCritical))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ audit.AlertDispatcher = (*Client)(nil)
