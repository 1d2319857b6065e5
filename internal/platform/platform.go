// Package platform defines the uniform contract every social network adapter
// implements and the adapters themselves.
package platform

import (
	"context"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
)

// Account is the provider side of a connected grant. Tokens are plaintext here;
// callers encrypt before storing.
type Account struct {
	ExternalID            string
	Name                  string
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  *time.Time
	RefreshTokenExpiresAt *time.Time
	TokenIssuedAt         *time.Time
	Metadata              models.Metadata
}

// Page is a publishable target. AccessToken is empty when the page publishes
// with the account token.
type Page struct {
	ExternalID           string
	Name                 string
	EntityType           models.EntityType
	AccessToken          string
	AccessTokenExpiresAt *time.Time
	Metadata             models.Metadata
}

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaCarousel MediaType = "carousel"
)

type Media struct {
	Type         MediaType
	URLs         []string
	ThumbnailURL string
}

type Content struct {
	Text  string
	Title string
	Media *Media
	Link  string
}

type PublishResult struct {
	ExternalID  string    `json:"externalId"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

type HistoryItem struct {
	ExternalID  string    `json:"externalId"`
	Text        string    `json:"text,omitempty"`
	URL         string    `json:"url,omitempty"`
	MediaURLs   []string  `json:"mediaUrls,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type Board struct {
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
}

// Features describes what a platform accepts in a single post.
type Features struct {
	MaxTextLength  int
	MaxTitleLength int
	MaxMedia       int
	MediaTypes     []MediaType
	RequiresMedia  bool
	Deletion       bool
}

// Validate checks content against the platform limits before any network call.
func (f Features) Validate(c *Content) error {
	if f.MaxTextLength > 0 && utf8.RuneCountInString(c.Text) > f.MaxTextLength {
		return apperr.Validation("text", "caption exceeds %d characters", f.MaxTextLength)
	}
	if f.MaxTitleLength > 0 && utf8.RuneCountInString(c.Title) > f.MaxTitleLength {
		return apperr.Validation("title", "title exceeds %d characters", f.MaxTitleLength)
	}
	if c.Media == nil || len(c.Media.URLs) == 0 {
		if f.RequiresMedia {
			return apperr.Validation("media", "media is required")
		}
		return nil
	}
	if !slices.Contains(f.MediaTypes, c.Media.Type) {
		return apperr.Validation("media", "%s media is not supported", c.Media.Type)
	}
	if c.Media.Type == MediaVideo && len(c.Media.URLs) > 1 {
		return apperr.Validation("media", "only one video can be posted")
	}
	if f.MaxMedia > 0 && len(c.Media.URLs) > f.MaxMedia {
		return apperr.Validation("media", "at most %d media items are allowed", f.MaxMedia)
	}
	return nil
}

// Operations is implemented by every platform adapter.
type Operations interface {
	Platform() models.Platform
	Features() Features
	AuthURL(state string) string
	ConnectAccount(ctx context.Context, code string) (*Account, error)
	ListPages(ctx context.Context, acc *Account) ([]*Page, error)
	RefreshToken(ctx context.Context, acc *Account) (*Account, error)
	PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error)
	DisconnectAccount(ctx context.Context, acc *Account) error
	GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error)
}

// BoardLister is implemented by platforms with sub-collections under a page.
type BoardLister interface {
	GetBoards(ctx context.Context, page *Page) ([]*Board, error)
}

// PostDeleter is implemented by platforms that allow removing a published post.
type PostDeleter interface {
	DeletePost(ctx context.Context, page *Page, externalID string) error
}

// PageTokenResolver is implemented by platforms whose pages carry their own
// tokens derived from the account token.
type PageTokenResolver interface {
	PageToken(ctx context.Context, acc *Account, pageExternalID string) (string, *time.Time, error)
}

func GetBoards(ctx context.Context, ops Operations, page *Page) ([]*Board, error) {
	bl, ok := ops.(BoardLister)
	if !ok {
		return nil, apperr.NotSupported(ops.Platform().String(), "GetBoards")
	}
	return bl.GetBoards(ctx, page)
}

func DeletePost(ctx context.Context, ops Operations, page *Page, externalID string) error {
	pd, ok := ops.(PostDeleter)
	if !ok {
		return apperr.NotSupported(ops.Platform().String(), "DeletePost")
	}
	return pd.DeletePost(ctx, page, externalID)
}

// PageToken returns the token a page publishes with after acc was refreshed.
func PageToken(ctx context.Context, ops Operations, acc *Account, pageExternalID string) (string, *time.Time, error) {
	if r, ok := ops.(PageTokenResolver); ok {
		return r.PageToken(ctx, acc, pageExternalID)
	}
	return acc.AccessToken, acc.AccessTokenExpiresAt, nil
}

// expiresIn converts a provider expires_in value to an absolute time. Zero
// means the token does not expire.
func expiresIn(now time.Time, seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := now.Add(time.Duration(seconds) * time.Second)
	return &t
}

func timePtr(t time.Time) *time.Time { return &t }

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return max
	}
	return min(limit, max)
}
