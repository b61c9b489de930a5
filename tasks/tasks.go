// Package tasks decouples heavy per-lead enrichment from the main graph:
// prospecting enqueues persisted leads on a Redis list and a worker drains
// it through the shared lead processor.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phantomlabs/beastmode/log"
)

const defaultQueueKey = "beastmode:leads"

// Task is one queued unit of per-lead work.
type Task struct {
	LeadID string `json:"lead_id"`
	Token  string `json:"token,omitempty"`
}

// RedisDispatcher pushes lead tasks onto a Redis list.
type RedisDispatcher struct {
	client   *redis.Client
	queueKey string
}

// NewRedisDispatcher wraps a Redis client. An empty queueKey uses the
// default queue.
func NewRedisDispatcher(client *redis.Client, queueKey string) *RedisDispatcher {
	if queueKey == "" {
		queueKey = defaultQueueKey
	}
	return &RedisDispatcher{client: client, queueKey: queueKey}
}

// Dispatch enqueues one lead for background processing.
func (d *RedisDispatcher) Dispatch(ctx context.Context, leadID, token string) error {
	data, err := json.Marshal(Task{LeadID: leadID, Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := d.client.LPush(ctx, d.queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue lead %s: %w", leadID, err)
	}
	return nil
}

// Processor handles one dequeued lead.
type Processor func(ctx context.Context, leadID, token string) error

// Worker drains the lead queue. Processing failures are logged and the
// worker moves on; only context cancellation stops the loop.
type Worker struct {
	client   *redis.Client
	queueKey string
	process  Processor
	logger   log.Logger

	// pollTimeout bounds each blocking pop so cancellation is noticed.
	pollTimeout time.Duration
}

// NewWorker creates a queue consumer.
func NewWorker(client *redis.Client, queueKey string, process Processor, logger log.Logger) *Worker {
	if queueKey == "" {
		queueKey = defaultQueueKey
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Worker{
		client:      client,
		queueKey:    queueKey,
		process:     process,
		logger:      logger,
		pollTimeout: time.Second,
	}
}

// Run consumes tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		values, err := w.client.BRPop(ctx, w.pollTimeout, w.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("queue pop failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.pollTimeout):
			}
			continue
		}
		if len(values) < 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(values[1]), &task); err != nil {
			w.logger.Warn("dropping malformed task: %v", err)
			continue
		}

		if err := w.process(ctx, task.LeadID, task.Token); err != nil {
			w.logger.Error("lead %s processing failed: %v", task.LeadID, err)
			continue
		}
		w.logger.Info("lead %s processed", task.LeadID)
	}
}
