package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/scheduling"
)

// PublishScheduler queues a post for publishing at a given time and drops a
// queued publish.
type PublishScheduler interface {
	SchedulePublish(ctx context.Context, postID int64, at time.Time) error
	CancelPublish(ctx context.Context, postID int64, at time.Time) error
}

type ScheduleService interface {
	AutoSchedule(ctx context.Context, workspaceID, postID int64, status *models.PostStatus) (*models.Post, error)
	SuggestSlots(ctx context.Context, workspaceID, postID int64, n int) ([]time.Time, error)
}

type scheduleService struct {
	posts     repository.PostRepository
	scheduler PublishScheduler
	now       func() time.Time
}

func NewScheduleService(posts repository.PostRepository, scheduler PublishScheduler) ScheduleService {
	return &scheduleService{posts: posts, scheduler: scheduler, now: time.Now}
}

func (s *scheduleService) load(ctx context.Context, workspaceID, postID int64) (*models.Post, []*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil || post.WorkspaceID != workspaceID {
		return nil, nil, apperr.NotFound("post", postID)
	}

	siblings, err := s.posts.ListScheduledByBoard(ctx, post.BoardID)
	if err != nil {
		return nil, nil, err
	}
	return post, siblings, nil
}

// AutoSchedule stores the next free slot for the post. The new status is the
// requested one, else Scheduled for approved posts, else unchanged. Scheduled
// posts are queued for publishing at the slot.
func (s *scheduleService) AutoSchedule(ctx context.Context, workspaceID, postID int64, status *models.PostStatus) (*models.Post, error) {
	post, siblings, err := s.load(ctx, workspaceID, postID)
	if err != nil {
		return nil, err
	}

	slot := scheduling.ComputeSlot(post, siblings, s.now())
	prevStatus, prevDate := post.Status, post.PublishDate

	next := post.Status
	switch {
	case status != nil:
		next = *status
	case post.Status == models.PostStatusApproved:
		next = models.PostStatusScheduled
	}

	if err := s.posts.UpdateSchedule(ctx, post.ID, slot, next); err != nil {
		return nil, err
	}
	post.PublishDate = &slot
	post.Status = next

	// The worker also drops stale tasks, so a failed cancel is only logged.
	if prevStatus == models.PostStatusScheduled && prevDate != nil && s.scheduler != nil &&
		(next != models.PostStatusScheduled || !prevDate.Equal(slot)) {
		if err := s.scheduler.CancelPublish(ctx, post.ID, *prevDate); err != nil {
			slog.Error("cancel previous publish", "post", post.ID, "at", *prevDate, "err", err)
		}
	}

	if next == models.PostStatusScheduled && s.scheduler != nil {
		if err := s.scheduler.SchedulePublish(ctx, post.ID, slot); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
	}
	return post, nil
}

func (s *scheduleService) SuggestSlots(ctx context.Context, workspaceID, postID int64, n int) ([]time.Time, error) {
	if n <= 0 || n > 20 {
		return nil, apperr.Validation("n", "must be between 1 and 20")
	}
	post, siblings, err := s.load(ctx, workspaceID, postID)
	if err != nil {
		return nil, err
	}
	return scheduling.SuggestSlots(post, siblings, s.now(), n), nil
}
