package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/service"
)

func (j *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, j.HandlePublishPostTask)
}

// HandlePublishPostTask publishes a scheduled post. Posts that are gone or
// can no longer be published are not retried; posts that were rescheduled or
// left the Scheduled state are skipped.
func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	var at time.Time
	if payload.PublishAt > 0 {
		at = time.Unix(payload.PublishAt, 0)
	}

	outcomes, err := j.ps.PublishScheduledPost(ctx, payload.PostID, at)
	if errors.Is(err, service.ErrNotDue) {
		slog.Info("skipping publish task", "post", payload.PostID, "reason", err.Error())
		return nil
	}
	if err != nil {
		slog.Error("publish post task failed", "post", payload.PostID, "err", err)
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	slog.Info("post published", "post", payload.PostID, "targets", len(outcomes), "failed", failed)
	return nil
}
