package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/metrics"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/pkg/utils"
)

// Lease guards one refresh per account at a time.
type Lease interface {
	Acquire(ctx context.Context, platform string, accountID int64) (bool, func(), error)
}

type TokenService interface {
	GetLiveToken(ctx context.Context, pageID int64) (*models.SocialPage, string, error)
	LiveToken(ctx context.Context, page *models.SocialPage) (string, error)
	Refresh(ctx context.Context, page *models.SocialPage) (string, error)
	// WithLiveToken calls fn with a usable token and retries once after a
	// forced refresh when fn fails with an auth error.
	WithLiveToken(ctx context.Context, page *models.SocialPage, fn func(token string) error) error
}

type tokenService struct {
	accounts repository.SocialAccountRepository
	pages    repository.SocialPageRepository
	registry *platform.Registry
	cipher   *utils.Cipher
	lease    Lease
	now      func() time.Time

	waitInterval time.Duration
	waitAttempts int
}

// NewTokenService builds the token manager. lease may be nil, in which case
// refreshes are not coordinated between processes.
func NewTokenService(
	accounts repository.SocialAccountRepository,
	pages repository.SocialPageRepository,
	registry *platform.Registry,
	cipher *utils.Cipher,
	lease Lease,
) TokenService {
	return &tokenService{
		accounts:     accounts,
		pages:        pages,
		registry:     registry,
		cipher:       cipher,
		lease:        lease,
		now:          time.Now,
		waitInterval: 500 * time.Millisecond,
		waitAttempts: 10,
	}
}

func (s *tokenService) GetLiveToken(ctx context.Context, pageID int64) (*models.SocialPage, string, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, "", err
	}
	if page == nil {
		return nil, "", apperr.NotFound("page", pageID)
	}

	token, err := s.LiveToken(ctx, page)
	if err != nil {
		return nil, "", err
	}
	return page, token, nil
}

func (s *tokenService) LiveToken(ctx context.Context, page *models.SocialPage) (string, error) {
	if page.AuthToken == "" || page.TokenExpired(s.now()) {
		return s.Refresh(ctx, page)
	}
	return s.cipher.Decrypt(page.AuthToken)
}

func (s *tokenService) Refresh(ctx context.Context, page *models.SocialPage) (string, error) {
	acc, err := s.accounts.GetByID(ctx, page.AccountID)
	if err != nil {
		return "", err
	}
	if acc == nil {
		return "", apperr.NotFound("account", page.AccountID)
	}

	if s.lease != nil {
		ok, release, err := s.lease.Acquire(ctx, acc.Platform.String(), acc.ID)
		switch {
		case err != nil:
			slog.Error("refresh lease unavailable, refreshing without it", "account", acc.ID, "err", err)
		case !ok:
			return s.awaitRefresh(ctx, acc.Platform, page)
		default:
			defer release()
		}
	}

	ops, err := s.registry.ForAccount(acc)
	if err != nil {
		return "", err
	}

	current, err := toPlatformAccount(s.cipher, acc)
	if err != nil {
		return "", err
	}

	refreshed, err := ops.RefreshToken(ctx, current)
	metrics.TokenRefreshes.WithLabelValues(acc.Platform.String(), metrics.Outcome(err)).Inc()
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, apperr.ErrAuth) {
			s.markExpired(ctx, acc.ID, page.ID)
		}
		return "", fmt.Errorf("refresh %s token: %w", acc.Platform, err)
	}

	updated, err := fromPlatformAccount(s.cipher, acc.WorkspaceID, acc.Platform, refreshed)
	if err != nil {
		return "", err
	}
	updated.ID = acc.ID
	if err := s.accounts.UpdateTokens(ctx, nil, updated); err != nil {
		return "", err
	}

	token, expiresAt, err := platform.PageToken(ctx, ops, refreshed, page.PageID)
	if err != nil {
		return "", err
	}
	sealed, err := s.cipher.Encrypt(token)
	if err != nil {
		return "", err
	}

	if _, own := ops.(platform.PageTokenResolver); own {
		err = s.pages.UpdateToken(ctx, page.ID, sealed, expiresAt)
	} else {
		err = s.pages.UpdateTokensByAccount(ctx, nil, acc.ID, sealed, expiresAt)
	}
	if err != nil {
		return "", err
	}

	page.AuthToken = sealed
	page.AuthTokenExpiresAt = expiresAt
	return token, nil
}

// awaitRefresh waits for another holder of the lease to store a new token.
func (s *tokenService) awaitRefresh(ctx context.Context, p models.Platform, page *models.SocialPage) (string, error) {
	for i := 0; i < s.waitAttempts; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.waitInterval):
		}

		fresh, err := s.pages.GetByID(ctx, page.ID)
		if err != nil {
			return "", err
		}
		if fresh == nil {
			return "", apperr.NotFound("page", page.ID)
		}
		if fresh.AuthToken != page.AuthToken && !fresh.TokenExpired(s.now()) {
			*page = *fresh
			return s.cipher.Decrypt(fresh.AuthToken)
		}
	}
	return "", apperr.Auth(p.String(), "token refresh is still in progress")
}

func (s *tokenService) markExpired(ctx context.Context, accountID, pageID int64) {
	if err := s.accounts.SetStatus(ctx, accountID, models.StatusExpired); err != nil {
		slog.Error("mark account expired", "account", accountID, "err", err)
	}
	if err := s.pages.SetStatus(ctx, pageID, models.StatusExpired); err != nil {
		slog.Error("mark page expired", "page", pageID, "err", err)
	}
}

func (s *tokenService) WithLiveToken(ctx context.Context, page *models.SocialPage, fn func(token string) error) error {
	token, err := s.LiveToken(ctx, page)
	if err != nil {
		return err
	}

	err = fn(token)
	if err == nil || !errors.Is(err, apperr.ErrAuth) {
		return err
	}

	slog.Info("provider rejected token, refreshing once", "page", page.ID, "platform", page.Platform)
	token, rerr := s.Refresh(ctx, page)
	if rerr != nil {
		return fmt.Errorf("%w (refresh failed: %v)", err, rerr)
	}
	return fn(token)
}
