package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"sms-gateway/internal/consumers"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/logger"
)

type Worker struct {
	Processor *consumers.MessageProcessor
}

func NewWorker(processor *consumers.MessageProcessor) *Worker {
	return &Worker{
		Processor: processor,
	}
}

func (w *Worker) HandleSmsRedeliver(ctx context.Context, t *asynq.Task) error {
	var p consumers.RedeliveryDTO
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.MessageId <= 0 {
		return fmt.Errorf("invalid message_id %d: %w", p.MessageId, asynq.SkipRetry)
	}
	if err := w.Processor.ProcessRedelivery(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("sms %d: %v: %w", p.MessageId, err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

func NewServeMux(processor *consumers.MessageProcessor) *asynq.ServeMux {
	worker := NewWorker(processor)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSmsRedeliver, worker.HandleSmsRedeliver)
	return mux
}

// StartWorker processes tasks until ctx is cancelled, then drains in-flight work.
func StartWorker(ctx context.Context, redisOpt asynq.RedisClientOpt, processor *consumers.MessageProcessor) error {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logger.Logger(),
		},
	)

	if err := srv.Start(NewServeMux(processor)); err != nil {
		return fmt.Errorf("could not run server: %w", err)
	}
	logger.Info("Asynq worker started")

	<-ctx.Done()
	srv.Shutdown()
	logger.Info("Asynq worker stopped")
	return nil
}
