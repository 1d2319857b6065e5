package models

import (
	"time"
)

// SocialAccount is one OAuth grant. Tokens are stored as encrypted envelopes
// and never serialized to clients.
type SocialAccount struct {
	ID                    int64            `db:"id" json:"id"`
	WorkspaceID           int64            `db:"workspace_id" json:"workspace_id"`
	Platform              Platform         `db:"platform" json:"platform"`
	AccountID             string           `db:"account_id" json:"account_id"`
	Name                  string           `db:"name" json:"name"`
	AuthToken             string           `db:"auth_token" json:"-"`
	RefreshToken          string           `db:"refresh_token" json:"-"`
	AccessTokenExpiresAt  *time.Time       `db:"access_token_expires_at" json:"access_token_expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time       `db:"refresh_token_expires_at" json:"refresh_token_expires_at,omitempty"`
	TokenIssuedAt         *time.Time       `db:"token_issued_at" json:"token_issued_at,omitempty"`
	Connected             bool             `db:"connected" json:"connected"`
	Status                ConnectionStatus `db:"status" json:"status"`
	Metadata              Metadata         `db:"metadata" json:"metadata"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`

	Pages []*SocialPage `db:"-" json:"pages,omitempty"`
}

// SocialPage is a publishable target under an account: a page, profile,
// board, channel, business location or organization.
type SocialPage struct {
	ID                 int64            `db:"id" json:"id"`
	AccountID          int64            `db:"account_id" json:"account_id"`
	WorkspaceID        int64            `db:"workspace_id" json:"workspace_id"`
	Platform           Platform         `db:"platform" json:"platform"`
	PageID             string           `db:"page_id" json:"page_id"`
	Name               string           `db:"name" json:"name"`
	AuthToken          string           `db:"auth_token" json:"-"`
	AuthTokenExpiresAt *time.Time       `db:"auth_token_expires_at" json:"auth_token_expires_at,omitempty"`
	Connected          bool             `db:"connected" json:"connected"`
	Status             ConnectionStatus `db:"status" json:"status"`
	EntityType         EntityType       `db:"entity_type" json:"entity_type"`
	Metadata           Metadata         `db:"metadata" json:"metadata"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// TokenExpired reports whether the page token must be refreshed before use.
// Pages without an expiry never expire.
func (p *SocialPage) TokenExpired(now time.Time) bool {
	return p.AuthTokenExpiresAt != nil && !now.Before(*p.AuthTokenExpiresAt)
}
