package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialsync/internal/models"
)

type SocialPageRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, pages []*models.SocialPage) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialPage, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*models.SocialPage, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialPage, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*models.SocialPage, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialPage, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
	UpdateToken(ctx context.Context, id int64, token string, expiresAt *time.Time) error
	UpdateTokensByAccount(ctx context.Context, tx *sql.Tx, accountID int64, token string, expiresAt *time.Time) error
	SetStatus(ctx context.Context, id int64, status models.ConnectionStatus) error
	Remove(ctx context.Context, id int64) error
}

type socialPageRepository struct {
	db *sql.DB
}

func NewSocialPageRepository(db *sql.DB) SocialPageRepository {
	return &socialPageRepository{db: db}
}

const socialPageColumns = `id, account_id, workspace_id, platform, page_id, name, auth_token,
	auth_token_expires_at, connected, status, entity_type, metadata, created_at, updated_at`

func scanSocialPage(row interface{ Scan(...any) error }) (*models.SocialPage, error) {
	var p models.SocialPage
	err := row.Scan(&p.ID, &p.AccountID, &p.WorkspaceID, &p.Platform, &p.PageID, &p.Name, &p.AuthToken,
		&p.AuthTokenExpiresAt, &p.Connected, &p.Status, &p.EntityType, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *socialPageRepository) list(ctx context.Context, query string, args ...any) ([]*models.SocialPage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pages []*models.SocialPage
	for rows.Next() {
		p, err := scanSocialPage(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pages = append(pages, p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return pages, nil
}

// Upsert inserts pages or refreshes the ones already known for the account,
// returning ids in input order.
func (r *socialPageRepository) Upsert(ctx context.Context, tx *sql.Tx, pages []*models.SocialPage) ([]int64, error) {
	query := `
		INSERT INTO social_pages (
			account_id,
			workspace_id,
			platform,
			page_id,
			name,
			auth_token,
			auth_token_expires_at,
			connected,
			status,
			entity_type,
			metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account_id, page_id) DO UPDATE SET
			name = EXCLUDED.name,
			auth_token = EXCLUDED.auth_token,
			auth_token_expires_at = EXCLUDED.auth_token_expires_at,
			connected = EXCLUDED.connected,
			status = EXCLUDED.status,
			entity_type = EXCLUDED.entity_type,
			metadata = EXCLUDED.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	ids := make([]int64, 0, len(pages))
	for _, p := range pages {
		args := []any{
			p.AccountID,
			p.WorkspaceID,
			p.Platform,
			p.PageID,
			p.Name,
			p.AuthToken,
			p.AuthTokenExpiresAt,
			p.Connected,
			p.Status,
			p.EntityType,
			p.Metadata,
		}

		var id int64
		var err error
		if tx != nil {
			err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
		} else {
			err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
		}
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		p.ID = id
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *socialPageRepository) GetByID(ctx context.Context, id int64) (*models.SocialPage, error) {
	query := `SELECT ` + socialPageColumns + ` FROM social_pages WHERE id = $1`

	p, err := scanSocialPage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return p, nil
}

func (r *socialPageRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.SocialPage, error) {
	query := `SELECT ` + socialPageColumns + ` FROM social_pages WHERE account_id = $1 ORDER BY id`
	return r.list(ctx, query, accountID)
}

func (r *socialPageRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialPage, error) {
	query := `SELECT ` + socialPageColumns + ` FROM social_pages WHERE workspace_id = $1 ORDER BY account_id, id`
	return r.list(ctx, query, workspaceID)
}

func (r *socialPageRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.SocialPage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + socialPageColumns + ` FROM social_pages WHERE id = ANY($1) ORDER BY id`
	return r.list(ctx, query, pq.Array(ids))
}

// ListExpiring returns connected pages whose token expires before the given
// time, including already expired ones. Pages marked expired need a reconnect
// and are skipped.
func (r *socialPageRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialPage, error) {
	query := `SELECT ` + socialPageColumns + ` FROM social_pages
		WHERE connected = TRUE AND status <> 'expired'
		AND auth_token_expires_at IS NOT NULL AND auth_token_expires_at < $1
		ORDER BY auth_token_expires_at`
	return r.list(ctx, query, before)
}

func (r *socialPageRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	query := `SELECT COUNT(*) FROM social_pages WHERE account_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&count); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *socialPageRepository) UpdateToken(ctx context.Context, id int64, token string, expiresAt *time.Time) error {
	query := `
		UPDATE social_pages
		SET auth_token = $2,
			auth_token_expires_at = $3,
			connected = TRUE,
			status = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, token, expiresAt, models.StatusActive)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialPageRepository) UpdateTokensByAccount(ctx context.Context, tx *sql.Tx, accountID int64, token string, expiresAt *time.Time) error {
	query := `
		UPDATE social_pages
		SET auth_token = $2,
			auth_token_expires_at = $3,
			connected = TRUE,
			status = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $1
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, accountID, token, expiresAt, models.StatusActive)
	} else {
		_, err = r.db.ExecContext(ctx, query, accountID, token, expiresAt, models.StatusActive)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialPageRepository) SetStatus(ctx context.Context, id int64, status models.ConnectionStatus) error {
	query := `
		UPDATE social_pages
		SET status = $2,
			connected = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, status, status == models.StatusActive)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialPageRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_pages WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
