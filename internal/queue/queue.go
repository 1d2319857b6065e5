package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Deleter is the part of asynq.Inspector the scheduler needs.
type Deleter interface {
	DeleteTask(queue, id string) error
}

// Scheduler queues posts for publishing at their slot.
type Scheduler struct {
	client    Enqueuer
	inspector Deleter
	queue     string
	maxRetry  int
}

func NewScheduler(client Enqueuer, inspector Deleter) *Scheduler {
	return &Scheduler{client: client, inspector: inspector, queue: "default", maxRetry: 3}
}

func taskID(postID int64, at time.Time) string {
	return fmt.Sprintf("publish:%d:%d", postID, at.Unix())
}

// SchedulePublish enqueues the post to run at the given time. Scheduling the
// same post for the same time twice is a no-op.
func (s *Scheduler) SchedulePublish(ctx context.Context, postID int64, at time.Time) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID, PublishAt: at.Unix()})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(taskID(postID, at)),
		asynq.MaxRetry(s.maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish scheduled", "post", postID, "at", at)
	return nil
}

// CancelPublish deletes the task queued for the post at the given time. A
// task that already ran or was never queued is not an error.
func (s *Scheduler) CancelPublish(ctx context.Context, postID int64, at time.Time) error {
	if s.inspector == nil {
		return nil
	}

	err := s.inspector.DeleteTask(s.queue, taskID(postID, at))
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish cancelled", "post", postID, "at", at)
	return nil
}
