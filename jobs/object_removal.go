package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/casinha/portal/internal/jobs"
)

// ObjectRemover deletes a stored object. Missing objects are not an error.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

// ObjectRemovalJob handles TaskObjectsRemove.
type ObjectRemovalJob struct {
	Remover ObjectRemover
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewObjectRemovalJob initialises the removal handler. metrics may be nil.
func NewObjectRemovalJob(remover ObjectRemover, logger *slog.Logger, metrics *jobmetrics.Metrics) *ObjectRemovalJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectRemovalJob{Remover: remover, Logger: logger, Metrics: metrics}
}

// Handle removes every key in the payload. Any failure fails the task so asynq
// retries it; keys already removed are no-ops on retry.
func (j *ObjectRemovalJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Remover == nil {
		return errors.New("objects remove: handler not configured")
	}
	var payload ObjectsRemovePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskObjectsRemove)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var (
		errs    []error
		removed int64
	)
	for _, key := range payload.Keys {
		if err := j.Remover.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
			continue
		}
		removed++
	}
	j.Metrics.AddPurged("report_objects", removed)
	if err := errors.Join(errs...); err != nil {
		j.Logger.Warn("objects remove incomplete", slog.Int("failed", len(errs)), slog.Any("error", err))
		return err
	}
	j.Logger.Info("objects removed", slog.Int64("removed", removed))
	return nil
}
