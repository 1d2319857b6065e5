package service

import (
	"context"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
)

type PlatformService interface {
	ListAccounts(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error)
	History(ctx context.Context, workspaceID, pageID int64, limit int, cursor string) (*platform.HistoryPage, error)
	Boards(ctx context.Context, workspaceID, pageID int64) ([]*platform.Board, error)
	DeletePost(ctx context.Context, workspaceID, pageID int64, externalID string) error
}

type platformService struct {
	accounts repository.SocialAccountRepository
	pages    repository.SocialPageRepository
	tokens   TokenService
	registry *platform.Registry
}

func NewPlatformService(
	accounts repository.SocialAccountRepository,
	pages repository.SocialPageRepository,
	tokens TokenService,
	registry *platform.Registry,
) PlatformService {
	return &platformService{
		accounts: accounts,
		pages:    pages,
		tokens:   tokens,
		registry: registry,
	}
}

// ListAccounts returns the workspace accounts with their pages attached.
func (s *platformService) ListAccounts(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.accounts.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[int64]*models.SocialAccount, len(accounts))
	for _, acc := range accounts {
		acc.Pages = []*models.SocialPage{}
		byAccount[acc.ID] = acc
	}
	for _, page := range pages {
		if acc, ok := byAccount[page.AccountID]; ok {
			acc.Pages = append(acc.Pages, page)
		}
	}
	return accounts, nil
}

func (s *platformService) page(ctx context.Context, workspaceID, pageID int64) (*models.SocialPage, platform.Operations, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, nil, err
	}
	if page == nil || page.WorkspaceID != workspaceID {
		return nil, nil, apperr.NotFound("page", pageID)
	}
	ops, err := s.registry.ForPage(page)
	if err != nil {
		return nil, nil, err
	}
	return page, ops, nil
}

func (s *platformService) History(ctx context.Context, workspaceID, pageID int64, limit int, cursor string) (*platform.HistoryPage, error) {
	page, ops, err := s.page(ctx, workspaceID, pageID)
	if err != nil {
		return nil, err
	}

	var out *platform.HistoryPage
	err = s.tokens.WithLiveToken(ctx, page, func(token string) error {
		var herr error
		out, herr = ops.GetPostHistory(ctx, toPlatformPage(page, token), limit, cursor)
		return herr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *platformService) Boards(ctx context.Context, workspaceID, pageID int64) ([]*platform.Board, error) {
	page, ops, err := s.page(ctx, workspaceID, pageID)
	if err != nil {
		return nil, err
	}
	if _, ok := ops.(platform.BoardLister); !ok {
		return nil, apperr.NotSupported(page.Platform.String(), "GetBoards")
	}

	var boards []*platform.Board
	err = s.tokens.WithLiveToken(ctx, page, func(token string) error {
		var berr error
		boards, berr = platform.GetBoards(ctx, ops, toPlatformPage(page, token))
		return berr
	})
	if err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *platformService) DeletePost(ctx context.Context, workspaceID, pageID int64, externalID string) error {
	if externalID == "" {
		return apperr.Validation("postId", "post id is required")
	}
	page, ops, err := s.page(ctx, workspaceID, pageID)
	if err != nil {
		return err
	}
	if _, ok := ops.(platform.PostDeleter); !ok {
		return apperr.NotSupported(page.Platform.String(), "DeletePost")
	}

	return s.tokens.WithLiveToken(ctx, page, func(token string) error {
		return platform.DeletePost(ctx, ops, toPlatformPage(page, token), externalID)
	})
}
