package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"sms-gateway/internal/consumers"
)

// Task Types
const (
	TypeSmsRedeliver = "sms:redeliver"
)

// Task Creators

func NewRedeliveryTask(payload consumers.RedeliveryDTO) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSmsRedeliver, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}

// RedeliveryTaskID names the task for one redelivery attempt of a message.
// asynq rejects a second task with the same id while the first is pending.
func RedeliveryTaskID(messageID, attempt int) string {
	return fmt.Sprintf("sms-redeliver-%d-%d", messageID, attempt)
}

// Client enqueues tasks for the worker process.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

// EnqueueRedelivery queues attempt for messageID once; repeating the call for
// an attempt that is still queued is a no-op.
func (c *Client) EnqueueRedelivery(ctx context.Context, messageID, attempt int) error {
	task, err := NewRedeliveryTask(consumers.RedeliveryDTO{MessageId: messageID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue("critical"),
		asynq.TaskID(RedeliveryTaskID(messageID, attempt)))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (c *Client) Close() error {
	return c.client.Close()
}
