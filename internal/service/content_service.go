package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
)

var allowedUploads = map[string]models.FileKind{
	"jpg":  models.FileImage,
	"jpeg": models.FileImage,
	"png":  models.FileImage,
	"webp": models.FileImage,
	"gif":  models.FileImage,
	"mp4":  models.FileVideo,
	"mov":  models.FileVideo,
	"webm": models.FileVideo,
}

type VersionUpload struct {
	Data    []byte
	Caption string
	By      string
}

type CommentInput struct {
	Text              string `json:"text"`
	ParentID          string `json:"parentId"`
	RevisionRequested bool   `json:"revisionRequested"`
	Author            string `json:"-"`
}

type ContentService interface {
	AddVersion(ctx context.Context, workspaceID, postID int64, blockID string, up *VersionUpload) (*models.Version, error)
	SetCurrentVersion(ctx context.Context, workspaceID, postID int64, blockID, versionID string) (*models.Block, error)
	CommentOnBlock(ctx context.Context, workspaceID, postID int64, blockID string, in *CommentInput) (*models.Comment, error)
	CommentOnVersion(ctx context.Context, workspaceID, postID int64, blockID, versionID string, in *CommentInput) (*models.Comment, error)
}

type contentService struct {
	posts repository.PostRepository
	media MediaStore
	now   func() time.Time
}

func NewContentService(posts repository.PostRepository, media MediaStore) ContentService {
	return &contentService{posts: posts, media: media, now: time.Now}
}

func (s *contentService) block(ctx context.Context, workspaceID, postID int64, blockID string) (*models.Post, *models.Block, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil || post.WorkspaceID != workspaceID {
		return nil, nil, apperr.NotFound("post", postID)
	}
	b := post.Blocks.Find(blockID)
	if b == nil {
		return nil, nil, apperr.NotFound("block", blockID)
	}
	return post, b, nil
}

// DetectFile sniffs an upload and reports its kind and MIME type. Only the
// image and video formats the platforms accept pass.
func DetectFile(data []byte) (models.FileKind, string, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", "", apperr.Validation("file", "unsupported file type")
	}
	fk, ok := allowedUploads[kind.Extension]
	if !ok {
		return "", "", apperr.Validation("file", "file type %s is not allowed", kind.Extension)
	}
	return fk, kind.MIME.Value, nil
}

// AddVersion uploads a file and appends it as the block's current version.
// A post waiting on revisions becomes Revised.
func (s *contentService) AddVersion(ctx context.Context, workspaceID, postID int64, blockID string, up *VersionUpload) (*models.Version, error) {
	if len(up.Data) == 0 {
		return nil, apperr.Validation("file", "file is empty")
	}
	post, b, err := s.block(ctx, workspaceID, postID, blockID)
	if err != nil {
		return nil, err
	}

	kind, mime, err := DetectFile(up.Data)
	if err != nil {
		return nil, err
	}
	if !b.Accepts(kind) {
		return nil, apperr.Validation("file", "%s file cannot be added to a %s block", kind, b.Kind)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	key := fmt.Sprintf("posts/%d/%s/%s", post.ID, b.ID, id)
	url, err := s.media.Upload(ctx, key, up.Data, mime)
	if err != nil {
		return nil, err
	}

	v := &models.Version{
		ID:        id,
		CreatedAt: s.now().UTC(),
		By:        up.By,
		Caption:   up.Caption,
		File:      models.FileRef{Kind: kind, URL: url},
	}
	if err := b.AppendVersion(v); err != nil {
		return nil, err
	}

	status := post.Status
	if status == models.PostStatusNeedsRevisions {
		status = models.PostStatusRevised
	}
	if err := s.posts.UpdateBlocks(ctx, post.ID, post.Blocks, status); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *contentService) SetCurrentVersion(ctx context.Context, workspaceID, postID int64, blockID, versionID string) (*models.Block, error) {
	post, b, err := s.block(ctx, workspaceID, postID, blockID)
	if err != nil {
		return nil, err
	}
	if err := b.SetCurrentVersion(versionID); err != nil {
		return nil, err
	}
	if err := s.posts.UpdateBlocks(ctx, post.ID, post.Blocks, post.Status); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *contentService) newComment(in *CommentInput) (*models.Comment, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &models.Comment{
		ID:                id,
		ParentID:          in.ParentID,
		CreatedAt:         s.now().UTC(),
		Author:            in.Author,
		Text:              in.Text,
		RevisionRequested: in.RevisionRequested,
	}, nil
}

// revisionStatus moves a post under review to Needs Revisions when a comment
// asks for changes.
func revisionStatus(current models.PostStatus, requested bool) models.PostStatus {
	if !requested {
		return current
	}
	switch current {
	case models.PostStatusPendingApproval, models.PostStatusApproved, models.PostStatusRevised:
		return models.PostStatusNeedsRevisions
	}
	return current
}

func (s *contentService) CommentOnBlock(ctx context.Context, workspaceID, postID int64, blockID string, in *CommentInput) (*models.Comment, error) {
	post, b, err := s.block(ctx, workspaceID, postID, blockID)
	if err != nil {
		return nil, err
	}
	c, err := s.newComment(in)
	if err != nil {
		return nil, err
	}
	if err := b.AddComment(c); err != nil {
		return nil, err
	}
	if err := s.posts.UpdateBlocks(ctx, post.ID, post.Blocks, revisionStatus(post.Status, c.RevisionRequested)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *contentService) CommentOnVersion(ctx context.Context, workspaceID, postID int64, blockID, versionID string, in *CommentInput) (*models.Comment, error) {
	post, b, err := s.block(ctx, workspaceID, postID, blockID)
	if err != nil {
		return nil, err
	}
	v := b.Version(versionID)
	if v == nil {
		return nil, apperr.NotFound("version", versionID)
	}
	c, err := s.newComment(in)
	if err != nil {
		return nil, err
	}
	if err := v.AddComment(c); err != nil {
		return nil, err
	}
	if err := s.posts.UpdateBlocks(ctx, post.ID, post.Blocks, revisionStatus(post.Status, c.RevisionRequested)); err != nil {
		return nil, err
	}
	return c, nil
}
