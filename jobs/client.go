package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Client submits ledger tasks.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq-backed client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueIntegrityScan enqueues one integrity scan on the default queue. Scans requested
// within the same minute collapse into one task.
func (c *Client) EnqueueIntegrityScan(ctx context.Context, source string) (*asynq.TaskInfo, error) {
	task, err := NewIntegrityScanTask(source)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(time.Minute))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
