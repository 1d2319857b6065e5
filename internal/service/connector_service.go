package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/metrics"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/transfer"
	"github.com/maheshrc27/socialsync/pkg/utils"
)

// ConnectState is a step of the OAuth callback.
type ConnectState string

const (
	StateAwaitingCode    ConnectState = "awaiting_code"
	StateExchangingToken ConnectState = "exchanging_token"
	StateListingPages    ConnectState = "listing_pages"
	StatePersisting      ConnectState = "persisting"
	StateDone            ConnectState = "done"
	StateError           ConnectState = "error"
)

// HandshakeStore keeps the pending/completed record of a connect flow.
type HandshakeStore interface {
	Put(ctx context.Context, h *models.Handshake, ttl time.Duration) error
	Get(ctx context.Context, nonce string) (*models.Handshake, error)
}

type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type ConnectResult struct {
	WorkspaceID int64                `json:"workspaceId"`
	AccountID   int64                `json:"accountId"`
	Pages       []*models.SocialPage `json:"pages"`
}

type ConnectorService interface {
	BeginConnect(ctx context.Context, workspaceID int64, platformName, method string) (string, string, error)
	HandleCallback(ctx context.Context, platformName string, params CallbackParams) (*ConnectResult, error)
	Status(ctx context.Context, nonce string) (*models.Handshake, error)
	Disconnect(ctx context.Context, workspaceID, pageID int64) error
}

type connectorService struct {
	cfg        config.Config
	accounts   repository.SocialAccountRepository
	pages      repository.SocialPageRepository
	registry   *platform.Registry
	cipher     *utils.Cipher
	handshakes HandshakeStore
	now        func() time.Time
}

func NewConnectorService(
	cfg config.Config,
	accounts repository.SocialAccountRepository,
	pages repository.SocialPageRepository,
	registry *platform.Registry,
	cipher *utils.Cipher,
	handshakes HandshakeStore,
) ConnectorService {
	return &connectorService{
		cfg:        cfg,
		accounts:   accounts,
		pages:      pages,
		registry:   registry,
		cipher:     cipher,
		handshakes: handshakes,
		now:        time.Now,
	}
}

// BeginConnect signs the state for a new flow, records it as pending and
// returns the provider URL with the handshake nonce.
func (s *connectorService) BeginConnect(ctx context.Context, workspaceID int64, platformName, method string) (string, string, error) {
	if workspaceID <= 0 {
		return "", "", apperr.Validation("workspace_id", "workspace is required")
	}
	p, err := models.ParsePlatform(platformName)
	if err != nil {
		return "", "", err
	}
	ops, err := s.registry.LookupMethod(p, method)
	if err != nil {
		return "", "", err
	}

	state, nonce, err := utils.SignState(s.cfg.SecretKey, workspaceID, p.String(), method, s.cfg.StateTTL)
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}

	h := &models.Handshake{
		Nonce:       nonce,
		Status:      models.HandshakePending,
		Platform:    p,
		WorkspaceID: workspaceID,
		UpdatedAt:   s.now(),
	}
	if err := s.handshakes.Put(ctx, h, s.cfg.StateTTL); err != nil {
		slog.Info(err.Error())
		return "", "", err
	}

	return ops.AuthURL(state), nonce, nil
}

// HandleCallback runs the connect flow for one provider redirect. The
// handshake record is completed whatever the outcome once the state is
// trusted.
func (s *connectorService) HandleCallback(ctx context.Context, platformName string, params CallbackParams) (*ConnectResult, error) {
	p, err := models.ParsePlatform(platformName)
	if err != nil {
		return nil, err
	}

	claims, err := utils.ValidateState(s.cfg.SecretKey, params.State)
	if err != nil {
		slog.Info(err.Error())
		metrics.OAuthConnects.WithLabelValues(p.String(), "error").Inc()
		return nil, apperr.Auth(p.String(), "invalid or expired state")
	}

	result, state, err := s.connect(ctx, p, claims, params)
	metrics.OAuthConnects.WithLabelValues(p.String(), metrics.Outcome(err)).Inc()

	h := &models.Handshake{
		Nonce:       claims.ID,
		Status:      models.HandshakeCompleted,
		Platform:    p,
		WorkspaceID: claims.WorkspaceID,
		UpdatedAt:   s.now(),
	}
	if err != nil {
		slog.Error("oauth callback failed", "platform", p, "state", state, "err", err)
		h.Error = err.Error()
	} else {
		h.Success = true
		h.AccountID = result.AccountID
		for _, page := range result.Pages {
			h.PageIDs = append(h.PageIDs, page.ID)
		}
	}
	if perr := s.handshakes.Put(ctx, h, s.cfg.StateTTL); perr != nil {
		slog.Error("store handshake", "nonce", h.Nonce, "err", perr)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *connectorService) connect(ctx context.Context, p models.Platform, claims *transfer.StateClaims, params CallbackParams) (*ConnectResult, ConnectState, error) {
	state := StateAwaitingCode
	if claims.Platform != p.String() {
		return nil, StateError, apperr.Validation("state", "state was issued for %s", claims.Platform)
	}
	if params.Error != "" {
		msg := params.Error
		if params.ErrorDescription != "" {
			msg = params.ErrorDescription
		}
		return nil, StateError, apperr.Auth(p.String(), msg)
	}
	if params.Code == "" {
		return nil, StateError, apperr.Validation("code", "authorization code is missing")
	}

	ops, err := s.registry.LookupMethod(p, claims.Method)
	if err != nil {
		return nil, StateError, err
	}

	state = StateExchangingToken
	acc, err := ops.ConnectAccount(ctx, params.Code)
	if err != nil {
		return nil, state, fmt.Errorf("%s: %w", state, err)
	}

	state = StateListingPages
	pages, err := ops.ListPages(ctx, acc)
	if err != nil {
		return nil, state, fmt.Errorf("%s: %w", state, err)
	}

	state = StatePersisting
	result, err := s.persist(ctx, claims.WorkspaceID, p, acc, pages)
	if err != nil {
		return nil, state, fmt.Errorf("%s: %w", state, err)
	}
	return result, StateDone, nil
}

// persist upserts the account by (workspace, platform, external id). A new
// account is removed again when its pages cannot be stored.
func (s *connectorService) persist(ctx context.Context, workspaceID int64, p models.Platform, acc *platform.Account, pages []*platform.Page) (*ConnectResult, error) {
	sa, err := fromPlatformAccount(s.cipher, workspaceID, p, acc)
	if err != nil {
		return nil, err
	}

	existing, err := s.accounts.GetByExternalID(ctx, workspaceID, p, acc.ExternalID)
	if err != nil {
		return nil, err
	}

	created := existing == nil
	if created {
		id, err := s.accounts.Create(ctx, nil, sa)
		if err != nil {
			return nil, err
		}
		sa.ID = id
	} else {
		sa.ID = existing.ID
		if err := s.accounts.UpdateTokens(ctx, nil, sa); err != nil {
			return nil, err
		}
		if err := s.pages.UpdateTokensByAccount(ctx, nil, sa.ID, sa.AuthToken, sa.AccessTokenExpiresAt); err != nil {
			return nil, err
		}
	}

	rows := make([]*models.SocialPage, 0, len(pages))
	for _, pg := range pages {
		row, err := fromPlatformPage(s.cipher, sa, acc, pg)
		if err != nil {
			s.compensate(ctx, created, sa.ID)
			return nil, err
		}
		rows = append(rows, row)
	}

	if _, err := s.pages.Upsert(ctx, nil, rows); err != nil {
		s.compensate(ctx, created, sa.ID)
		return nil, err
	}

	return &ConnectResult{WorkspaceID: workspaceID, AccountID: sa.ID, Pages: rows}, nil
}

func (s *connectorService) compensate(ctx context.Context, created bool, accountID int64) {
	if !created {
		return
	}
	if err := s.accounts.Remove(ctx, nil, accountID); err != nil {
		slog.Error("remove account after failed page insert", "account", accountID, "err", err)
	}
}

func (s *connectorService) Status(ctx context.Context, nonce string) (*models.Handshake, error) {
	h, err := s.handshakes.Get(ctx, nonce)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("handshake", nonce)
	}
	return h, nil
}

// Disconnect removes a page. When it is the last page of its account the
// grant is revoked and the account removed with it.
func (s *connectorService) Disconnect(ctx context.Context, workspaceID, pageID int64) error {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil || page.WorkspaceID != workspaceID {
		return apperr.NotFound("page", pageID)
	}

	count, err := s.pages.CountByAccount(ctx, page.AccountID)
	if err != nil {
		return err
	}
	if count > 1 {
		return s.pages.Remove(ctx, page.ID)
	}

	acc, err := s.accounts.GetByID(ctx, page.AccountID)
	if err != nil {
		return err
	}
	if acc == nil {
		return s.pages.Remove(ctx, page.ID)
	}

	if ops, err := s.registry.ForAccount(acc); err == nil {
		if pacc, err := toPlatformAccount(s.cipher, acc); err == nil {
			if err := ops.DisconnectAccount(ctx, pacc); err != nil {
				slog.Error("revoke grant", "platform", acc.Platform, "account", acc.ID, "err", err)
			}
		} else {
			slog.Error("open account tokens", "account", acc.ID, "err", err)
		}
	}

	return s.accounts.Remove(ctx, nil, acc.ID)
}
