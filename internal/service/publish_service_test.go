package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publishFixture struct {
	posts    *mockPostRepo
	pages    *mockPageRepo
	history  *mockHistoryRepo
	accounts *mockAccountRepo
	ops      *fakeOps
	cipher   *utils.Cipher
	svc      PublishService
}

func newPublishFixture(t *testing.T, ops *fakeOps) *publishFixture {
	t.Helper()
	f := &publishFixture{
		posts:    &mockPostRepo{},
		pages:    &mockPageRepo{},
		history:  &mockHistoryRepo{},
		accounts: &mockAccountRepo{},
		ops:      ops,
		cipher:   testCipher(),
	}
	registry := platform.NewRegistry(ops)
	tokens := NewTokenService(f.accounts, f.pages, registry, f.cipher, nil)
	f.svc = NewPublishService(f.posts, f.pages, f.history, tokens, registry, 2)
	return f
}

func (f *publishFixture) page(id int64, token string) *models.SocialPage {
	return &models.SocialPage{
		ID:          id,
		AccountID:   9,
		WorkspaceID: 1,
		Platform:    f.ops.platform,
		PageID:      "ext-" + token,
		AuthToken:   seal(f.cipher, token),
		Status:      models.StatusActive,
	}
}

func imagePost() *models.Post {
	return &models.Post{
		ID:          3,
		WorkspaceID: 1,
		Caption:     models.CaptionData{Synced: true, Default: "Fresh bread"},
		Platforms:   models.PlatformSet{models.Facebook},
		PageIDs:     []int64{10, 20},
		Status:      models.PostStatusScheduled,
		Blocks: models.Blocks{{
			ID:               "b1",
			Kind:             models.BlockImage,
			CurrentVersionID: "v2",
			Versions: []*models.Version{
				{ID: "v1", File: models.FileRef{Kind: models.FileImage, URL: "https://cdn.example.com/old.png"}},
				{ID: "v2", File: models.FileRef{Kind: models.FileImage, URL: "https://cdn.example.com/new.png"}},
			},
		}},
	}
}

// failingFor publishes successfully except for pages holding the given token.
func failingFor(token string, err error) *fakeOps {
	return &fakeOps{
		platform: models.Facebook,
		features: platform.Features{MaxTextLength: 100, MediaTypes: []platform.MediaType{platform.MediaImage}},
		publish: func(page *platform.Page, content *platform.Content) (*platform.PublishResult, error) {
			if page.AccessToken == token {
				return nil, err
			}
			return &platform.PublishResult{ExternalID: "post-" + page.ExternalID, PublishedAt: testNow}, nil
		},
	}
}

func TestPublishIsolatesTargetFailures(t *testing.T) {
	f := newPublishFixture(t, failingFor("bad", apperr.PlatformAPI("facebook", 400, "(#100) invalid image")))
	post := imagePost()
	targets := []*models.SocialPage{f.page(10, "good"), f.page(20, "bad")}

	f.posts.On("SetPlatformPostID", mock.Anything, int64(3), "facebook_10", "post-ext-good", testNow).Return(nil)
	f.history.On("Create", mock.Anything, mock.MatchedBy(func(ph *models.PostingHistory) bool {
		return ph.PageID == 10 && ph.ExternalPostID == "post-ext-good" && ph.ErrorMessage == ""
	})).Return(int64(1), nil)
	f.history.On("Create", mock.Anything, mock.MatchedBy(func(ph *models.PostingHistory) bool {
		return ph.PageID == 20 && ph.ErrorMessage != ""
	})).Return(int64(2), nil)

	outcomes := f.svc.Publish(context.Background(), post, targets)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Succeeded())
	assert.Equal(t, "post-ext-good", outcomes[0].ExternalID)
	assert.False(t, outcomes[1].Succeeded())
	assert.Contains(t, outcomes[1].Error, "(#100) invalid image")

	f.posts.AssertExpectations(t)
	f.history.AssertExpectations(t)
}

func TestPublishSendsCurrentVersionOnly(t *testing.T) {
	var got *platform.Content
	ops := &fakeOps{
		platform: models.Facebook,
		features: platform.Features{MediaTypes: []platform.MediaType{platform.MediaImage}},
		publish: func(page *platform.Page, content *platform.Content) (*platform.PublishResult, error) {
			got = content
			return &platform.PublishResult{ExternalID: "x", PublishedAt: testNow}, nil
		},
	}
	f := newPublishFixture(t, ops)
	f.posts.On("SetPlatformPostID", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.history.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)

	f.svc.Publish(context.Background(), imagePost(), []*models.SocialPage{f.page(10, "good")})

	require.NotNil(t, got)
	assert.Equal(t, "Fresh bread", got.Text)
	require.NotNil(t, got.Media)
	assert.Equal(t, platform.MediaImage, got.Media.Type)
	assert.Equal(t, []string{"https://cdn.example.com/new.png"}, got.Media.URLs)
}

func TestPublishPostPartialSuccess(t *testing.T) {
	f := newPublishFixture(t, failingFor("bad", apperr.PlatformAPI("facebook", 400, "rejected")))
	post := imagePost()

	f.posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	f.pages.On("ListByIDs", mock.Anything, []int64{10, 20}).Return([]*models.SocialPage{f.page(10, "good"), f.page(20, "bad")}, nil)
	f.posts.On("UpdateStatus", mock.Anything, int64(3), models.PostStatusPublishing).Return(nil)
	f.posts.On("SetPlatformPostID", mock.Anything, int64(3), "facebook_10", mock.Anything, mock.Anything).Return(nil)
	f.history.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.posts.On("FinishPublish", mock.Anything, int64(3), models.PostStatusPublished, mock.MatchedBy(func(msg string) bool {
		return containsAll(msg, "facebook page 20", "rejected") && !strings.Contains(msg, "page 10")
	})).Return(nil)

	outcomes, err := f.svc.PublishPost(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	f.posts.AssertExpectations(t)
	f.history.AssertNumberOfCalls(t, "Create", 2)
}

func TestPublishPostAllFail(t *testing.T) {
	f := newPublishFixture(t, failingFor("bad", apperr.PlatformAPI("facebook", 500, "down")))
	post := imagePost()
	post.PageIDs = []int64{20}

	f.posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	f.pages.On("ListByIDs", mock.Anything, []int64{20}).Return([]*models.SocialPage{f.page(20, "bad")}, nil)
	f.posts.On("UpdateStatus", mock.Anything, int64(3), models.PostStatusPublishing).Return(nil)
	f.history.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.posts.On("FinishPublish", mock.Anything, int64(3), models.PostStatusFailedPublishing, mock.MatchedBy(func(msg string) bool {
		return containsAll(msg, "facebook page 20", "down")
	})).Return(nil)

	_, err := f.svc.PublishPost(context.Background(), 3)
	require.NoError(t, err)
	f.posts.AssertExpectations(t)
}

func TestPublishPostSkipsPagesOfUnselectedPlatforms(t *testing.T) {
	f := newPublishFixture(t, failingFor("", nil))
	post := imagePost()
	post.Platforms = models.PlatformSet{models.LinkedIn}

	f.posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	f.pages.On("ListByIDs", mock.Anything, []int64{10, 20}).Return([]*models.SocialPage{f.page(10, "good")}, nil)
	f.posts.On("FinishPublish", mock.Anything, int64(3), models.PostStatusFailedPublishing, "no connected target pages").Return(nil)

	_, err := f.svc.PublishPost(context.Background(), 3)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	f.posts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishPostRejectsPublishedAndMissing(t *testing.T) {
	f := newPublishFixture(t, failingFor("", nil))
	post := imagePost()
	post.Status = models.PostStatusPublished

	f.posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	f.posts.On("GetByID", mock.Anything, int64(4)).Return(nil, nil)

	_, err := f.svc.PublishPost(context.Background(), 3)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.PublishPost(context.Background(), 4)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.PublishWorkspacePost(context.Background(), 2, 3)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPublishValidatesBeforeNetwork(t *testing.T) {
	ops := failingFor("", nil)
	ops.features.MaxTextLength = 5
	f := newPublishFixture(t, ops)
	f.history.On("Create", mock.Anything, mock.MatchedBy(func(ph *models.PostingHistory) bool {
		return ph.ErrorMessage != ""
	})).Return(int64(1), nil)

	outcomes := f.svc.Publish(context.Background(), imagePost(), []*models.SocialPage{f.page(10, "good")})
	require.Len(t, outcomes, 1)
	assert.Contains(t, outcomes[0].Error, "caption exceeds 5 characters")
	assert.Empty(t, ops.publishedTokens())
}

func TestPublishToPageRetriesAfterAuthError(t *testing.T) {
	ops := failingFor("stale", apperr.Auth("facebook", "Error validating access token"))
	ops.refresh = func(acc *platform.Account) (*platform.Account, error) {
		return &platform.Account{ExternalID: acc.ExternalID, AccessToken: "fresh"}, nil
	}
	f := newPublishFixture(t, ops)
	page := f.page(10, "stale")

	f.pages.On("GetByID", mock.Anything, int64(10)).Return(page, nil)
	f.accounts.On("GetByID", mock.Anything, int64(9)).Return(&models.SocialAccount{
		ID:        9,
		Platform:  models.Facebook,
		AuthToken: seal(f.cipher, "stale"),
	}, nil)
	f.accounts.On("UpdateTokens", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.pages.On("UpdateTokensByAccount", mock.Anything, mock.Anything, int64(9), mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.PublishToPage(context.Background(), 1, 10, &PublishRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "post-ext-stale", res.ExternalID)
	assert.Equal(t, []string{"stale", "fresh"}, ops.publishedTokens())
}

func TestPublishToPageOtherWorkspace(t *testing.T) {
	f := newPublishFixture(t, failingFor("", nil))
	f.pages.On("GetByID", mock.Anything, int64(10)).Return(f.page(10, "good"), nil)

	_, err := f.svc.PublishToPage(context.Background(), 2, 10, &PublishRequest{Text: "hello"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPublishRequestContent(t *testing.T) {
	single := (&PublishRequest{MediaURLs: []string{"a.png"}}).Content()
	assert.Equal(t, platform.MediaImage, single.Media.Type)

	many := (&PublishRequest{MediaURLs: []string{"a.png", "b.png"}}).Content()
	assert.Equal(t, platform.MediaCarousel, many.Media.Type)

	video := (&PublishRequest{MediaType: platform.MediaVideo, MediaURLs: []string{"a.mp4"}, Thumbnail: "t.jpg"}).Content()
	assert.Equal(t, "t.jpg", video.Media.ThumbnailURL)

	assert.Nil(t, (&PublishRequest{Text: "plain"}).Content().Media)
}

func TestBuildContentPerPlatformCaption(t *testing.T) {
	post := &models.Post{
		Caption: models.CaptionData{
			Default:     "default",
			PerPlatform: map[models.Platform]string{models.LinkedIn: "for linkedin"},
		},
		Blocks: models.Blocks{
			{ID: "a", Kind: models.BlockVideo, CurrentVersionID: "v", Versions: []*models.Version{{ID: "v", File: models.FileRef{URL: "a.mp4", ThumbnailURL: "a.jpg"}}}},
		},
	}

	li := BuildContent(post, models.LinkedIn)
	assert.Equal(t, "for linkedin", li.Text)
	assert.Equal(t, platform.MediaVideo, li.Media.Type)
	assert.Equal(t, "a.jpg", li.Media.ThumbnailURL)

	assert.Equal(t, "default", BuildContent(post, models.TikTok).Text)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

func TestPublishScheduledPostSkipsPostsNoLongerDue(t *testing.T) {
	slot := testNow.Add(2 * time.Hour)
	moved := slot.Add(24 * time.Hour)

	tests := []struct {
		name   string
		status models.PostStatus
		date   *time.Time
	}{
		{"sent back for revisions", models.PostStatusNeedsRevisions, &slot},
		{"returned to draft", models.PostStatusDraft, &slot},
		{"rescheduled", models.PostStatusScheduled, &moved},
		{"schedule cleared", models.PostStatusScheduled, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			published := 0
			ops := failingFor("", nil)
			ops.publish = func(page *platform.Page, content *platform.Content) (*platform.PublishResult, error) {
				published++
				return &platform.PublishResult{ExternalID: "x", PublishedAt: testNow}, nil
			}
			f := newPublishFixture(t, ops)
			post := imagePost()
			post.Status = tt.status
			post.PublishDate = tt.date
			f.posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)

			_, err := f.svc.PublishScheduledPost(context.Background(), 3, slot)
			assert.True(t, errors.Is(err, ErrNotDue))
			assert.Zero(t, published)
			f.posts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			f.pages.AssertNotCalled(t, "ListByIDs", mock.Anything, mock.Anything)
		})
	}
}

func TestPublishScheduledPostAtItsSlot(t *testing.T) {
	f := newPublishFixture(t, failingFor("", nil))
	slot := testNow.Add(2 * time.Hour)
	post := imagePost()
	post.PageIDs = []int64{10}
	post.PublishDate = &slot

	f.posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	f.pages.On("ListByIDs", mock.Anything, []int64{10}).Return([]*models.SocialPage{f.page(10, "good")}, nil)
	f.posts.On("UpdateStatus", mock.Anything, int64(3), models.PostStatusPublishing).Return(nil)
	f.posts.On("SetPlatformPostID", mock.Anything, int64(3), "facebook_10", mock.Anything, mock.Anything).Return(nil)
	f.history.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.posts.On("FinishPublish", mock.Anything, int64(3), models.PostStatusPublished, "").Return(nil)

	outcomes, err := f.svc.PublishScheduledPost(context.Background(), 3, slot.In(time.UTC))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded())
	f.posts.AssertExpectations(t)
}
