package service

import (
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/pkg/utils"
)

// toPlatformAccount opens the stored credentials of an account.
func toPlatformAccount(c *utils.Cipher, sa *models.SocialAccount) (*platform.Account, error) {
	access, err := c.Decrypt(sa.AuthToken)
	if err != nil {
		return nil, err
	}
	refresh, err := c.Decrypt(sa.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &platform.Account{
		ExternalID:            sa.AccountID,
		Name:                  sa.Name,
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  sa.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: sa.RefreshTokenExpiresAt,
		TokenIssuedAt:         sa.TokenIssuedAt,
		Metadata:              sa.Metadata,
	}, nil
}

// fromPlatformAccount seals a provider account for storage.
func fromPlatformAccount(c *utils.Cipher, workspaceID int64, p models.Platform, acc *platform.Account) (*models.SocialAccount, error) {
	access, err := c.EncryptIfPresent(acc.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := c.EncryptIfPresent(acc.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &models.SocialAccount{
		WorkspaceID:           workspaceID,
		Platform:              p,
		AccountID:             acc.ExternalID,
		Name:                  acc.Name,
		AuthToken:             access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  acc.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: acc.RefreshTokenExpiresAt,
		TokenIssuedAt:         acc.TokenIssuedAt,
		Connected:             true,
		Status:                models.StatusActive,
		Metadata:              acc.Metadata,
	}, nil
}

func toPlatformPage(page *models.SocialPage, token string) *platform.Page {
	return &platform.Page{
		ExternalID:           page.PageID,
		Name:                 page.Name,
		EntityType:           page.EntityType,
		AccessToken:          token,
		AccessTokenExpiresAt: page.AuthTokenExpiresAt,
		Metadata:             page.Metadata,
	}
}

// fromPlatformPage seals a page for storage. Pages without their own token
// publish with the account token.
func fromPlatformPage(c *utils.Cipher, sa *models.SocialAccount, acc *platform.Account, p *platform.Page) (*models.SocialPage, error) {
	token, expiresAt := p.AccessToken, p.AccessTokenExpiresAt
	if token == "" {
		token, expiresAt = acc.AccessToken, acc.AccessTokenExpiresAt
	}
	sealed, err := c.Encrypt(token)
	if err != nil {
		return nil, err
	}

	return &models.SocialPage{
		AccountID:          sa.ID,
		WorkspaceID:        sa.WorkspaceID,
		Platform:           sa.Platform,
		PageID:             p.ExternalID,
		Name:               p.Name,
		AuthToken:          sealed,
		AuthTokenExpiresAt: expiresAt,
		Connected:          true,
		Status:             models.StatusActive,
		EntityType:         p.EntityType,
		Metadata:           p.Metadata,
	}, nil
}

// BuildContent maps a post to the generic payload for one platform, reading
// only the current version of each block.
func BuildContent(post *models.Post, p models.Platform) *platform.Content {
	content := &platform.Content{Text: post.Caption.For(p)}

	var urls []string
	var first *models.Version
	var firstKind models.BlockKind
	for _, b := range post.Blocks {
		v := b.CurrentVersion()
		if v == nil || v.File.URL == "" {
			continue
		}
		if first == nil {
			first, firstKind = v, b.Kind
		}
		urls = append(urls, v.File.URL)
	}
	if len(urls) == 0 {
		return content
	}

	media := &platform.Media{URLs: urls, ThumbnailURL: first.File.ThumbnailURL}
	switch {
	case len(urls) > 1:
		media.Type = platform.MediaCarousel
	case firstKind == models.BlockVideo:
		media.Type = platform.MediaVideo
	default:
		media.Type = platform.MediaImage
	}
	content.Media = media
	return content
}
