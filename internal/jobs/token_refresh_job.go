package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/service"
)

// TokenRefreshJob renews page tokens shortly before they expire.
type TokenRefreshJob struct {
	pr     repository.SocialPageRepository
	ts     service.TokenService
	window time.Duration
	now    func() time.Time
}

func NewTokenRefreshJob(pr repository.SocialPageRepository, ts service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		pr:     pr,
		ts:     ts,
		window: 30 * time.Minute,
		now:    time.Now,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	refreshed := c.Sweep(ctx)
	slog.Info("token refresh sweep finished", "refreshed", refreshed)
}

// Sweep refreshes every page whose token expires within the window. Pages
// of one account are handled in turn since a refresh may already have
// renewed its siblings.
func (c *TokenRefreshJob) Sweep(ctx context.Context) int {
	cutoff := c.now().Add(c.window)

	pages, err := c.pr.ListExpiring(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	byAccount := make(map[int64][]*models.SocialPage)
	var order []int64
	for _, p := range pages {
		if _, ok := byAccount[p.AccountID]; !ok {
			order = append(order, p.AccountID)
		}
		byAccount[p.AccountID] = append(byAccount[p.AccountID], p)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, accountID := range order {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(group []*models.SocialPage) {
			defer wg.Done()
			defer func() { <-semaphore }()

			n := c.refreshGroup(ctx, group, cutoff)

			mu.Lock()
			refreshed += n
			mu.Unlock()
		}(byAccount[accountID])
	}
	wg.Wait()

	return refreshed
}

func (c *TokenRefreshJob) refreshGroup(ctx context.Context, group []*models.SocialPage, cutoff time.Time) int {
	n := 0
	for i, page := range group {
		if i > 0 {
			fresh, err := c.pr.GetByID(ctx, page.ID)
			if err != nil || fresh == nil {
				continue
			}
			if fresh.AuthTokenExpiresAt == nil || fresh.AuthTokenExpiresAt.After(cutoff) {
				continue
			}
			page = fresh
		}

		if _, err := c.ts.Refresh(ctx, page); err != nil {
			slog.Info("unable to refresh token", "platform", page.Platform, "page", page.ID, "err", err)
			continue
		}
		n++
	}
	return n
}
