package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newScheduleFixture() (*mockPostRepo, *mockScheduler, *scheduleService) {
	posts := &mockPostRepo{}
	scheduler := &mockScheduler{}
	svc := NewScheduleService(posts, scheduler).(*scheduleService)
	svc.now = func() time.Time { return testNow }
	return posts, scheduler, svc
}

func boardPost(status models.PostStatus) *models.Post {
	return &models.Post{
		ID:          3,
		WorkspaceID: 1,
		BoardID:     5,
		Platforms:   models.PlatformSet{models.LinkedIn, models.Instagram},
		Status:      status,
	}
}

func TestAutoScheduleApprovedPost(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()
	post := boardPost(models.PostStatusApproved)

	taken := testNow.Add(48 * time.Hour)
	siblings := []*models.Post{{ID: 8, BoardID: 5, Status: models.PostStatusScheduled, PublishDate: &taken}}
	want := scheduling.ComputeSlot(post, siblings, testNow)

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(siblings, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), want, models.PostStatusScheduled).Return(nil)
	scheduler.On("SchedulePublish", mock.Anything, int64(3), want).Return(nil)

	got, err := svc.AutoSchedule(context.Background(), 1, 3, nil)
	require.NoError(t, err)
	require.NotNil(t, got.PublishDate)
	assert.Equal(t, want, *got.PublishDate)
	assert.True(t, want.After(testNow))
	assert.Equal(t, models.PostStatusScheduled, got.Status)

	posts.AssertExpectations(t)
	scheduler.AssertExpectations(t)
}

func TestAutoScheduleKeepsUnapprovedStatus(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()
	post := boardPost(models.PostStatusPendingApproval)

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), mock.Anything, models.PostStatusPendingApproval).Return(nil)

	got, err := svc.AutoSchedule(context.Background(), 1, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPendingApproval, got.Status)
	scheduler.AssertNotCalled(t, "SchedulePublish", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoScheduleExplicitStatus(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()
	post := boardPost(models.PostStatusApproved)
	draft := models.PostStatusDraft

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), mock.Anything, models.PostStatusDraft).Return(nil)

	got, err := svc.AutoSchedule(context.Background(), 1, 3, &draft)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, got.Status)
	scheduler.AssertNotCalled(t, "SchedulePublish", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoScheduleEnqueueFailure(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()

	posts.On("GetByID", mock.Anything, int64(3)).Return(boardPost(models.PostStatusApproved), nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), mock.Anything, models.PostStatusScheduled).Return(nil)
	scheduler.On("SchedulePublish", mock.Anything, int64(3), mock.Anything).Return(errors.New("redis unavailable"))

	_, err := svc.AutoSchedule(context.Background(), 1, 3, nil)
	assert.EqualError(t, err, "redis unavailable")
}

func TestAutoScheduleOtherWorkspace(t *testing.T) {
	posts, _, svc := newScheduleFixture()
	posts.On("GetByID", mock.Anything, int64(3)).Return(boardPost(models.PostStatusApproved), nil)

	_, err := svc.AutoSchedule(context.Background(), 2, 3, nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	posts.AssertNotCalled(t, "UpdateSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggestSlots(t *testing.T) {
	posts, _, svc := newScheduleFixture()
	post := boardPost(models.PostStatusDraft)
	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)

	slots, err := svc.SuggestSlots(context.Background(), 1, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, scheduling.SuggestSlots(post, nil, testNow, 4), slots)
	assert.Len(t, slots, 4)

	for _, n := range []int{0, -1, 21} {
		_, err := svc.SuggestSlots(context.Background(), 1, 3, n)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "n=%d", n)
	}
}

func TestAutoScheduleReplacesQueuedPublish(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()
	post := boardPost(models.PostStatusScheduled)
	old := testNow.Add(-time.Hour)
	post.PublishDate = &old
	want := scheduling.ComputeSlot(post, nil, testNow)

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), want, models.PostStatusScheduled).Return(nil)
	scheduler.On("CancelPublish", mock.Anything, int64(3), old).Return(errors.New("redis unavailable"))
	scheduler.On("SchedulePublish", mock.Anything, int64(3), want).Return(nil)

	got, err := svc.AutoSchedule(context.Background(), 1, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, want, *got.PublishDate)
	scheduler.AssertExpectations(t)
}

func TestAutoScheduleCancelsWhenLeavingScheduled(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()
	post := boardPost(models.PostStatusScheduled)
	old := testNow.Add(3 * time.Hour)
	post.PublishDate = &old
	draft := models.PostStatusDraft

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), mock.Anything, models.PostStatusDraft).Return(nil)
	scheduler.On("CancelPublish", mock.Anything, int64(3), old).Return(nil)

	_, err := svc.AutoSchedule(context.Background(), 1, 3, &draft)
	require.NoError(t, err)
	scheduler.AssertExpectations(t)
	scheduler.AssertNotCalled(t, "SchedulePublish", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoScheduleKeepsTaskForSameSlot(t *testing.T) {
	posts, scheduler, svc := newScheduleFixture()
	post := boardPost(models.PostStatusScheduled)
	slot := scheduling.ComputeSlot(post, nil, testNow)
	post.PublishDate = &slot

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("ListScheduledByBoard", mock.Anything, int64(5)).Return(nil, nil)
	posts.On("UpdateSchedule", mock.Anything, int64(3), slot, models.PostStatusScheduled).Return(nil)
	scheduler.On("SchedulePublish", mock.Anything, int64(3), slot).Return(nil)

	_, err := svc.AutoSchedule(context.Background(), 1, 3, nil)
	require.NoError(t, err)
	scheduler.AssertNotCalled(t, "CancelPublish", mock.Anything, mock.Anything, mock.Anything)
}
