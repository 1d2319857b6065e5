package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/metrics"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
)

// TargetOutcome is the result of publishing a post to one page.
type TargetOutcome struct {
	Platform   models.Platform `json:"platform"`
	PageID     int64           `json:"pageId"`
	ExternalID string          `json:"externalId,omitempty"`
	URL        string          `json:"url,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func (o *TargetOutcome) Succeeded() bool { return o.Error == "" }

// PublishRequest is an ad-hoc publish to a single page.
type PublishRequest struct {
	Text      string              `json:"text"`
	Title     string              `json:"title"`
	Link      string              `json:"link"`
	MediaType platform.MediaType  `json:"mediaType"`
	MediaURLs []string            `json:"mediaUrls"`
	Thumbnail string              `json:"thumbnailUrl"`
	Settings  models.PostSettings `json:"settings"`
}

func (r *PublishRequest) Content() *platform.Content {
	c := &platform.Content{Text: r.Text, Title: r.Title, Link: r.Link}
	if len(r.MediaURLs) > 0 {
		mt := r.MediaType
		if mt == "" {
			mt = platform.MediaImage
			if len(r.MediaURLs) > 1 {
				mt = platform.MediaCarousel
			}
		}
		c.Media = &platform.Media{Type: mt, URLs: r.MediaURLs, ThumbnailURL: r.Thumbnail}
	}
	return c
}

type PublishService interface {
	Publish(ctx context.Context, post *models.Post, targets []*models.SocialPage) []*TargetOutcome
	PublishPost(ctx context.Context, postID int64) ([]*TargetOutcome, error)
	PublishWorkspacePost(ctx context.Context, workspaceID, postID int64) ([]*TargetOutcome, error)
	PublishScheduledPost(ctx context.Context, postID int64, at time.Time) ([]*TargetOutcome, error)
	PublishToPage(ctx context.Context, workspaceID, pageID int64, req *PublishRequest) (*platform.PublishResult, error)
}

type publishService struct {
	posts       repository.PostRepository
	pages       repository.SocialPageRepository
	history     repository.PostingHistoryRepository
	tokens      TokenService
	registry    *platform.Registry
	concurrency int
}

func NewPublishService(
	posts repository.PostRepository,
	pages repository.SocialPageRepository,
	history repository.PostingHistoryRepository,
	tokens TokenService,
	registry *platform.Registry,
	concurrency int,
) PublishService {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &publishService{
		posts:       posts,
		pages:       pages,
		history:     history,
		tokens:      tokens,
		registry:    registry,
		concurrency: concurrency,
	}
}

// Publish sends the post to every target in parallel. A failing target never
// affects the others; outcomes are returned in target order.
func (s *publishService) Publish(ctx context.Context, post *models.Post, targets []*models.SocialPage) []*TargetOutcome {
	outcomes := make([]*TargetOutcome, len(targets))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.concurrency)

	for i, page := range targets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, page *models.SocialPage) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcomes[i] = s.publishTarget(ctx, post, page)
		}(i, page)
	}
	wg.Wait()

	return outcomes
}

func (s *publishService) publishTarget(ctx context.Context, post *models.Post, page *models.SocialPage) *TargetOutcome {
	out := &TargetOutcome{Platform: page.Platform, PageID: page.ID}

	res, err := s.send(ctx, page, BuildContent(post, page.Platform), post.Settings)
	metrics.PublishAttempts.WithLabelValues(page.Platform.String(), metrics.Outcome(err)).Inc()

	record := &models.PostingHistory{PostID: post.ID, PageID: page.ID, Platform: page.Platform}
	if err != nil {
		slog.Error("publish target failed", "post", post.ID, "page", page.ID, "platform", page.Platform, "err", err)
		out.Error = err.Error()
		record.ErrorMessage = out.Error
	} else {
		out.ExternalID, out.URL = res.ExternalID, res.URL
		record.ExternalPostID = res.ExternalID

		key := models.PlatformPostKey(page.Platform, page.ID)
		if err := s.posts.SetPlatformPostID(ctx, post.ID, key, res.ExternalID, res.PublishedAt); err != nil {
			slog.Error("store platform post id", "post", post.ID, "key", key, "err", err)
		}
	}

	if _, err := s.history.Create(ctx, record); err != nil {
		slog.Error("save posting history", "post", post.ID, "page", page.ID, "err", err)
	}
	return out
}

// send validates content against the platform and publishes with a live
// token.
func (s *publishService) send(ctx context.Context, page *models.SocialPage, content *platform.Content, opts models.PostSettings) (*platform.PublishResult, error) {
	ops, err := s.registry.ForPage(page)
	if err != nil {
		return nil, err
	}
	if err := ops.Features().Validate(content); err != nil {
		return nil, err
	}

	var res *platform.PublishResult
	err = s.tokens.WithLiveToken(ctx, page, func(token string) error {
		var perr error
		res, perr = ops.PublishPost(ctx, toPlatformPage(page, token), content, opts)
		return perr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PublishPost publishes a stored post to its target pages and settles its
// status: Published when at least one target succeeded, Failed Publishing
// otherwise.
func (s *publishService) PublishPost(ctx context.Context, postID int64) ([]*TargetOutcome, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("post", postID)
	}
	return s.publishPost(ctx, post)
}

// PublishWorkspacePost is PublishPost for a caller acting on one workspace.
func (s *publishService) PublishWorkspacePost(ctx context.Context, workspaceID, postID int64) ([]*TargetOutcome, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.WorkspaceID != workspaceID {
		return nil, apperr.NotFound("post", postID)
	}
	return s.publishPost(ctx, post)
}

// ErrNotDue reports a queued publish whose post was rescheduled or left the
// Scheduled state after the task was queued.
var ErrNotDue = errors.New("post is not scheduled for this time")

// PublishScheduledPost publishes a queued post only while it is still
// Scheduled for at. A zero at skips the time check.
func (s *publishService) PublishScheduledPost(ctx context.Context, postID int64, at time.Time) ([]*TargetOutcome, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("post", postID)
	}
	if post.Status != models.PostStatusScheduled {
		return nil, fmt.Errorf("post %d is %s: %w", postID, post.Status, ErrNotDue)
	}
	if !at.IsZero() && (post.PublishDate == nil || post.PublishDate.Unix() != at.Unix()) {
		return nil, fmt.Errorf("post %d was rescheduled: %w", postID, ErrNotDue)
	}
	return s.publishPost(ctx, post)
}

func (s *publishService) publishPost(ctx context.Context, post *models.Post) ([]*TargetOutcome, error) {
	if post.Status == models.PostStatusPublished {
		return nil, apperr.Validation("status", "post %d is already published", post.ID)
	}

	pages, err := s.pages.ListByIDs(ctx, post.PageIDs)
	if err != nil {
		return nil, err
	}
	var targets []*models.SocialPage
	for _, page := range pages {
		if len(post.Platforms) == 0 || post.Platforms.Contains(page.Platform) {
			targets = append(targets, page)
		}
	}
	if len(targets) == 0 {
		msg := "no connected target pages"
		if err := s.posts.FinishPublish(ctx, post.ID, models.PostStatusFailedPublishing, msg); err != nil {
			return nil, err
		}
		return nil, apperr.Validation("page_ids", "%s", msg)
	}

	if err := s.posts.UpdateStatus(ctx, post.ID, models.PostStatusPublishing); err != nil {
		return nil, err
	}

	outcomes := s.Publish(ctx, post, targets)

	status := models.PostStatusFailedPublishing
	var failures []string
	for _, o := range outcomes {
		if o.Succeeded() {
			status = models.PostStatusPublished
			continue
		}
		failures = append(failures, fmt.Sprintf("%s page %d: %s", o.Platform, o.PageID, o.Error))
	}

	if err := s.posts.FinishPublish(ctx, post.ID, status, strings.Join(failures, "; ")); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (s *publishService) PublishToPage(ctx context.Context, workspaceID, pageID int64, req *PublishRequest) (*platform.PublishResult, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil || page.WorkspaceID != workspaceID {
		return nil, apperr.NotFound("page", pageID)
	}

	res, err := s.send(ctx, page, req.Content(), req.Settings)
	metrics.PublishAttempts.WithLabelValues(page.Platform.String(), metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return res, nil
}
