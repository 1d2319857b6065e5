package platform

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/transfer"
)

const (
	pinterestAuthURL    = "https://www.pinterest.com/oauth/"
	pinterestAPIURL     = "https://api.pinterest.com"
	pinterestMaxHistory = 100
)

var pinterestScopes = []string{"boards:read", "boards:write", "pins:read", "pins:write", "user_accounts:read"}

// Pinterest treats every board as a publishable page.
type Pinterest struct {
	cfg  config.OAuthClient
	api  *apiClient
	base string
	now  func() time.Time
}

func NewPinterest(cfg config.OAuthClient, opts ...Option) *Pinterest {
	o := newOptions(opts)
	return &Pinterest{
		cfg:  cfg,
		api:  newAPIClient(models.Pinterest, o),
		base: o.host(pinterestAPIURL) + "/v5",
		now:  o.now,
	}
}

func (p *Pinterest) Platform() models.Platform { return models.Pinterest }

func (p *Pinterest) Features() Features {
	return Features{
		MaxTextLength:  500,
		MaxTitleLength: 100,
		MaxMedia:       1,
		MediaTypes:     []MediaType{MediaImage},
		RequiresMedia:  true,
		Deletion:       true,
	}
}

func (p *Pinterest) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(pinterestScopes, ","))
	q.Set("state", state)
	return pinterestAuthURL + "?" + q.Encode()
}

func (p *Pinterest) token(ctx context.Context, form url.Values) (*transfer.PinterestToken, error) {
	var tok transfer.PinterestToken
	if _, err := p.api.send(ctx, request{
		method:    http.MethodPost,
		url:       p.base + "/oauth/token",
		form:      form,
		basicUser: p.cfg.ClientID,
		basicPass: p.cfg.ClientSecret,
	}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, apperr.Auth(models.Pinterest.String(), "empty access token")
	}
	return &tok, nil
}

func (p *Pinterest) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	tok, err := p.token(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {p.cfg.RedirectURI},
	})
	if err != nil {
		return nil, err
	}

	var user transfer.PinterestUser
	if _, err := p.api.send(ctx, request{url: p.base + "/user_account", bearer: tok.AccessToken}, &user); err != nil {
		return nil, err
	}

	id := user.ID
	if id == "" {
		id = user.Username
	}
	name := user.BusinessName
	if name == "" {
		name = user.Username
	}

	now := p.now()
	return &Account{
		ExternalID:            id,
		Name:                  name,
		AccessToken:           tok.AccessToken,
		RefreshToken:          tok.RefreshToken,
		AccessTokenExpiresAt:  expiresIn(now, tok.ExpiresIn),
		RefreshTokenExpiresAt: expiresIn(now, tok.RefreshTokenExpiresIn),
		TokenIssuedAt:         timePtr(now),
		Metadata: models.Metadata{
			Kind:      models.Pinterest,
			Pinterest: &models.PinterestMetadata{Username: user.Username},
			Extra:     map[string]any{"profileImage": user.ProfileImage, "accountType": user.AccountType},
		},
	}, nil
}

func (p *Pinterest) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	boards, err := p.boards(ctx, acc.AccessToken)
	if err != nil {
		return nil, err
	}

	pages := make([]*Page, 0, len(boards))
	for _, b := range boards {
		pages = append(pages, &Page{
			ExternalID: b.ExternalID,
			Name:       b.Name,
			EntityType: models.EntityBoard,
			Metadata: models.Metadata{
				Kind: models.Pinterest,
				Pinterest: &models.PinterestMetadata{
					Privacy:     b.Privacy,
					Description: b.Description,
				},
			},
		})
	}
	return pages, nil
}

func (p *Pinterest) boards(ctx context.Context, token string) ([]*Board, error) {
	var out []*Board
	bookmark := ""
	for i := 0; i < graphMaxPages; i++ {
		q := url.Values{"page_size": {"100"}}
		if bookmark != "" {
			q.Set("bookmark", bookmark)
		}

		var list transfer.PinterestBoardList
		if _, err := p.api.send(ctx, request{url: p.base + "/boards", query: q, bearer: token}, &list); err != nil {
			return nil, err
		}
		for _, b := range list.Items {
			out = append(out, &Board{ExternalID: b.ID, Name: b.Name, Description: b.Description, Privacy: b.Privacy})
		}
		if list.Bookmark == "" {
			break
		}
		bookmark = list.Bookmark
	}
	return out, nil
}

func (p *Pinterest) GetBoards(ctx context.Context, page *Page) ([]*Board, error) {
	return p.boards(ctx, page.AccessToken)
}

func (p *Pinterest) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	if acc.RefreshToken == "" {
		return nil, apperr.Auth(models.Pinterest.String(), "no refresh token")
	}
	tok, err := p.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {acc.RefreshToken},
	})
	if err != nil {
		return nil, err
	}

	now := p.now()
	refreshed := *acc
	refreshed.AccessToken = tok.AccessToken
	refreshed.AccessTokenExpiresAt = expiresIn(now, tok.ExpiresIn)
	refreshed.TokenIssuedAt = timePtr(now)
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
		refreshed.RefreshTokenExpiresAt = expiresIn(now, tok.RefreshTokenExpiresIn)
	}
	return &refreshed, nil
}

func (p *Pinterest) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	if content.Media == nil || len(content.Media.URLs) == 0 {
		return nil, apperr.Validation("media", "pinterest requires at least one media url")
	}

	body := transfer.PinterestCreatePin{
		BoardID:     page.ExternalID,
		MediaSource: transfer.PinterestMediaSource{SourceType: "image_url", URL: content.Media.URLs[0]},
		Title:       content.Title,
		Description: content.Text,
		Link:        content.Link,
	}
	if s := opts.Pinterest; s != nil {
		if s.Title != "" {
			body.Title = s.Title
		}
		if s.Link != "" {
			body.Link = s.Link
		}
	}

	var pin transfer.PinterestPin
	if _, err := p.api.send(ctx, request{
		method: http.MethodPost,
		url:    p.base + "/pins",
		bearer: page.AccessToken,
		json:   body,
	}, &pin); err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalID:  pin.ID,
		URL:         "https://www.pinterest.com/pin/" + pin.ID + "/",
		PublishedAt: p.now(),
	}, nil
}

func (p *Pinterest) DisconnectAccount(ctx context.Context, acc *Account) error {
	return nil
}

func (p *Pinterest) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	q := url.Values{"page_size": {strconv.Itoa(clampLimit(limit, pinterestMaxHistory))}}
	if cursor != "" {
		q.Set("bookmark", cursor)
	}

	var list transfer.PinterestPinList
	if _, err := p.api.send(ctx, request{
		url:    p.base + "/boards/" + url.PathEscape(page.ExternalID) + "/pins",
		query:  q,
		bearer: page.AccessToken,
	}, &list); err != nil {
		return nil, err
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(list.Items)), NextCursor: list.Bookmark}
	for _, pin := range list.Items {
		text := pin.Description
		if text == "" {
			text = pin.Title
		}
		item := HistoryItem{
			ExternalID: pin.ID,
			Text:       text,
			URL:        "https://www.pinterest.com/pin/" + pin.ID + "/",
		}
		if u := bestPinImage(pin.Media.Images); u != "" {
			item.MediaURLs = []string{u}
		}
		if t, err := time.Parse("2006-01-02T15:04:05", pin.CreatedAt); err == nil {
			item.PublishedAt = t.UTC()
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (p *Pinterest) DeletePost(ctx context.Context, page *Page, externalID string) error {
	_, err := p.api.send(ctx, request{
		method: http.MethodDelete,
		url:    p.base + "/pins/" + url.PathEscape(externalID),
		bearer: page.AccessToken,
	}, nil)
	return err
}

// bestPinImage picks the widest rendition Pinterest returned.
func bestPinImage(images map[string]transfer.PinterestImage) string {
	best := ""
	width := -1
	for _, img := range images {
		if img.Width > width {
			best, width = img.URL, img.Width
		}
	}
	return best
}
