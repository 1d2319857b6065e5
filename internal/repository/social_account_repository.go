package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialsync/internal/models"
)

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	GetByExternalID(ctx context.Context, workspaceID int64, platform models.Platform, externalID string) (*models.SocialAccount, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error)
	UpdateTokens(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) error
	SetStatus(ctx context.Context, id int64, status models.ConnectionStatus) error
	Remove(ctx context.Context, tx *sql.Tx, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, workspace_id, platform, account_id, name, auth_token, refresh_token,
	access_token_expires_at, refresh_token_expires_at, token_issued_at, connected, status, metadata,
	created_at, updated_at`

func scanSocialAccount(row interface{ Scan(...any) error }) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.WorkspaceID, &sa.Platform, &sa.AccountID, &sa.Name, &sa.AuthToken,
		&sa.RefreshToken, &sa.AccessTokenExpiresAt, &sa.RefreshTokenExpiresAt, &sa.TokenIssuedAt,
		&sa.Connected, &sa.Status, &sa.Metadata, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	var err error
	var id int64

	query := `
		INSERT INTO social_accounts(
			workspace_id,
			platform,
			account_id,
			name,
			auth_token,
			refresh_token,
			access_token_expires_at,
			refresh_token_expires_at,
			token_issued_at,
			connected,
			status,
			metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	args := []any{
		sa.WorkspaceID,
		sa.Platform,
		sa.AccountID,
		sa.Name,
		sa.AuthToken,
		sa.RefreshToken,
		sa.AccessTokenExpiresAt,
		sa.RefreshTokenExpiresAt,
		sa.TokenIssuedAt,
		sa.Connected,
		sa.Status,
		sa.Metadata,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`

	sa, err := scanSocialAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) GetByExternalID(ctx context.Context, workspaceID int64, platform models.Platform, externalID string) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts
		WHERE workspace_id = $1 AND platform = $2 AND account_id = $3`

	sa, err := scanSocialAccount(r.db.QueryRowContext(ctx, query, workspaceID, platform, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE workspace_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanSocialAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

// UpdateTokens stores rotated credentials. An empty refresh token keeps the
// stored one since some providers only return it on first consent.
func (r *socialAccountRepository) UpdateTokens(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) error {
	query := `
		UPDATE social_accounts
		SET
			name = COALESCE(NULLIF($2, ''), name),
			auth_token = $3,
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			access_token_expires_at = $5,
			refresh_token_expires_at = COALESCE($6, refresh_token_expires_at),
			token_issued_at = $7,
			connected = TRUE,
			status = $8,
			metadata = $9,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	args := []any{
		sa.ID,
		sa.Name,
		sa.AuthToken,
		sa.RefreshToken,
		sa.AccessTokenExpiresAt,
		sa.RefreshTokenExpiresAt,
		sa.TokenIssuedAt,
		models.StatusActive,
		sa.Metadata,
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) SetStatus(ctx context.Context, id int64, status models.ConnectionStatus) error {
	query := `
		UPDATE social_accounts
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

// Remove deletes the account; its pages go with it through the foreign key.
func (r *socialAccountRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
