// Package worker runs refresh cycles in the background: on a fixed schedule and as
// queued asynq tasks.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"rateservice/internal/service"
)

// TaskTypeRefreshRates is the asynq task type for queued refresh cycles.
const TaskTypeRefreshRates = "rates:refresh"

// RefreshPayload is the payload of a refresh task.
type RefreshPayload struct {
	Source string `json:"source"`
}

// NewRefreshHandler returns the asynq handler that runs one refresh cycle per task.
// A payload that cannot be decoded is not retried.
func NewRefreshHandler(refresher service.Refresher, logger *zap.SugaredLogger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Errorw("Invalid task payload", "type", t.Type(), "error", err)
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		filter, err := service.ParseSourceFilter(payload.Source)
		if err != nil {
			logger.Errorw("Invalid refresh source", "source", payload.Source, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		res, err := refresher.RunCycle(ctx, filter)
		if err != nil {
			logger.Errorw("Refresh task failed", "source", filter, "error", err)
			return err
		}

		logger.Infow("Refresh task completed", "source", filter, "ok", res.OK, "pairs", res.UpdatedPairs, "warnings", len(res.Warnings))
		return nil
	}
}

// AsynqEnqueuer puts refresh tasks on the asynq queue with fixed retry and timeout settings.
type AsynqEnqueuer struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
}

// NewAsynqEnqueuer creates a new AsynqEnqueuer.
func NewAsynqEnqueuer(client *asynq.Client, maxRetry int, timeout time.Duration) *AsynqEnqueuer {
	return &AsynqEnqueuer{
		client:   client,
		maxRetry: maxRetry,
		timeout:  timeout,
	}
}

// NewRefreshTask builds a refresh task for filter.
func (e *AsynqEnqueuer) NewRefreshTask(filter service.SourceFilter) (*asynq.Task, error) {
	data, err := json.Marshal(RefreshPayload{Source: string(filter)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRefreshRates, data,
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(e.timeout),
	), nil
}

// EnqueueRefresh queues a refresh cycle and returns the task id.
func (e *AsynqEnqueuer) EnqueueRefresh(ctx context.Context, filter service.SourceFilter) (string, error) {
	task, err := e.NewRefreshTask(filter)
	if err != nil {
		return "", fmt.Errorf("create refresh task: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue refresh task: %w", err)
	}
	return info.ID, nil
}
