package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
}

func newContentFixture() (*mockPostRepo, *mockMediaStore, ContentService) {
	posts := &mockPostRepo{}
	media := &mockMediaStore{}
	svc := NewContentService(posts, media).(*contentService)
	svc.now = func() time.Time { return testNow }
	return posts, media, svc
}

func reviewPost(status models.PostStatus) *models.Post {
	return &models.Post{
		ID:          3,
		WorkspaceID: 1,
		Status:      status,
		Blocks: models.Blocks{{
			ID:               "b1",
			Kind:             models.BlockImage,
			CurrentVersionID: "v1",
			Versions: []*models.Version{
				{ID: "v1", File: models.FileRef{Kind: models.FileImage, URL: "https://cdn.example.com/v1.png"}},
				{ID: "v0", File: models.FileRef{Kind: models.FileImage, URL: "https://cdn.example.com/v0.png"}},
			},
		}},
	}
}

func TestDetectFile(t *testing.T) {
	kind, mime, err := DetectFile(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, models.FileImage, kind)
	assert.Equal(t, "image/png", mime)

	_, _, err = DetectFile([]byte("just some text"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestAddVersionMovesRevisionToRevised(t *testing.T) {
	posts, media, svc := newContentFixture()
	post := reviewPost(models.PostStatusNeedsRevisions)

	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	media.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "posts/3/b1/")
	}), pngHeader, "image/png").Return("https://cdn.example.com/v2.png", nil)
	posts.On("UpdateBlocks", mock.Anything, int64(3), mock.Anything, models.PostStatusRevised).Return(nil)

	v, err := svc.AddVersion(context.Background(), 1, 3, "b1", &VersionUpload{Data: pngHeader, Caption: "warmer tones", By: "designer"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v2.png", v.File.URL)
	assert.Equal(t, models.FileImage, v.File.Kind)
	assert.Equal(t, testNow, v.CreatedAt)

	b := post.Blocks.Find("b1")
	assert.Equal(t, v.ID, b.CurrentVersionID)
	assert.Len(t, b.Versions, 3)

	posts.AssertExpectations(t)
	media.AssertExpectations(t)
}

func TestAddVersionKeepsOtherStatuses(t *testing.T) {
	posts, media, svc := newContentFixture()

	posts.On("GetByID", mock.Anything, int64(3)).Return(reviewPost(models.PostStatusDraft), nil)
	media.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://cdn.example.com/v2.png", nil)
	posts.On("UpdateBlocks", mock.Anything, int64(3), mock.Anything, models.PostStatusDraft).Return(nil)

	_, err := svc.AddVersion(context.Background(), 1, 3, "b1", &VersionUpload{Data: pngHeader})
	require.NoError(t, err)
	posts.AssertExpectations(t)
}

func TestAddVersionRejects(t *testing.T) {
	posts, media, svc := newContentFixture()
	post := reviewPost(models.PostStatusDraft)
	post.Blocks[0].Kind = models.BlockVideo
	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)

	_, err := svc.AddVersion(context.Background(), 1, 3, "b1", &VersionUpload{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.AddVersion(context.Background(), 1, 3, "b1", &VersionUpload{Data: pngHeader})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.AddVersion(context.Background(), 1, 3, "missing", &VersionUpload{Data: pngHeader})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.AddVersion(context.Background(), 2, 3, "b1", &VersionUpload{Data: pngHeader})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	media.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetCurrentVersion(t *testing.T) {
	posts, _, svc := newContentFixture()
	posts.On("GetByID", mock.Anything, int64(3)).Return(reviewPost(models.PostStatusApproved), nil)
	posts.On("UpdateBlocks", mock.Anything, int64(3), mock.Anything, models.PostStatusApproved).Return(nil)

	b, err := svc.SetCurrentVersion(context.Background(), 1, 3, "b1", "v0")
	require.NoError(t, err)
	assert.Equal(t, "v0", b.CurrentVersionID)

	_, err = svc.SetCurrentVersion(context.Background(), 1, 3, "b1", "v9")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	posts.AssertNumberOfCalls(t, "UpdateBlocks", 1)
}

func TestCommentRequestingRevision(t *testing.T) {
	tests := []struct {
		name     string
		status   models.PostStatus
		revision bool
		want     models.PostStatus
	}{
		{"pending approval", models.PostStatusPendingApproval, true, models.PostStatusNeedsRevisions},
		{"approved", models.PostStatusApproved, true, models.PostStatusNeedsRevisions},
		{"revised", models.PostStatusRevised, true, models.PostStatusNeedsRevisions},
		{"draft is untouched", models.PostStatusDraft, true, models.PostStatusDraft},
		{"plain comment", models.PostStatusApproved, false, models.PostStatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, _, svc := newContentFixture()
			post := reviewPost(tt.status)
			posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
			posts.On("UpdateBlocks", mock.Anything, int64(3), mock.Anything, tt.want).Return(nil)

			c, err := svc.CommentOnBlock(context.Background(), 1, 3, "b1", &CommentInput{
				Text:              "logo is too small",
				RevisionRequested: tt.revision,
				Author:            "client",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, "client", c.Author)
			assert.Len(t, post.Blocks[0].Comments, 1)
			posts.AssertExpectations(t)
		})
	}
}

func TestCommentOnVersion(t *testing.T) {
	posts, _, svc := newContentFixture()
	post := reviewPost(models.PostStatusPendingApproval)
	posts.On("GetByID", mock.Anything, int64(3)).Return(post, nil)
	posts.On("UpdateBlocks", mock.Anything, int64(3), mock.Anything, mock.Anything).Return(nil)

	parent, err := svc.CommentOnVersion(context.Background(), 1, 3, "b1", "v0", &CommentInput{Text: "first"})
	require.NoError(t, err)

	reply, err := svc.CommentOnVersion(context.Background(), 1, 3, "b1", "v0", &CommentInput{Text: "reply", ParentID: parent.ID})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, reply.ParentID)
	assert.Len(t, post.Blocks[0].Version("v0").Comments, 2)

	_, err = svc.CommentOnVersion(context.Background(), 1, 3, "b1", "v0", &CommentInput{Text: "orphan", ParentID: "nope"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.CommentOnVersion(context.Background(), 1, 3, "b1", "v9", &CommentInput{Text: "lost"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.CommentOnBlock(context.Background(), 1, 3, "b1", &CommentInput{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
