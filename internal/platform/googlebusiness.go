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
	gbpAccountsURL  = "https://mybusinessaccountmanagement.googleapis.com"
	gbpLocationsURL = "https://mybusinessbusinessinformation.googleapis.com"
	gbpPostsURL     = "https://mybusiness.googleapis.com"
	gbpMaxHistory   = 100
)

var googleBusinessScopes = []string{
	"https://www.googleapis.com/auth/business.manage",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// GoogleBusiness publishes local posts to Business Profile locations.
type GoogleBusiness struct {
	oauth         *googleOAuth
	accountsBase  string
	locationsBase string
	postsBase     string
}

func NewGoogleBusiness(cfg config.OAuthClient, opts ...Option) *GoogleBusiness {
	o := newOptions(opts)
	return &GoogleBusiness{
		oauth:         newGoogleOAuth(models.Google, cfg, googleBusinessScopes, o),
		accountsBase:  o.host(gbpAccountsURL) + "/v1",
		locationsBase: o.host(gbpLocationsURL) + "/v1",
		postsBase:     o.host(gbpPostsURL) + "/v4",
	}
}

func (g *GoogleBusiness) Platform() models.Platform { return models.Google }

func (g *GoogleBusiness) Features() Features {
	return Features{
		MaxTextLength:  1500,
		MaxTitleLength: 100,
		MaxMedia:       1,
		MediaTypes:     []MediaType{MediaImage},
		Deletion:       true,
	}
}

func (g *GoogleBusiness) AuthURL(state string) string { return g.oauth.authURL(state) }

func (g *GoogleBusiness) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	acc, err := g.oauth.exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	acc.Metadata = models.Metadata{Kind: models.Google}
	return acc, nil
}

// ListPages returns every location of every business account the user can
// manage.
func (g *GoogleBusiness) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	accounts, err := g.accounts(ctx, acc.AccessToken)
	if err != nil {
		return nil, err
	}

	var pages []*Page
	for _, a := range accounts {
		pageToken := ""
		for i := 0; i < graphMaxPages; i++ {
			q := url.Values{"readMask": {"name,title,storefrontAddress"}, "pageSize": {"100"}}
			if pageToken != "" {
				q.Set("pageToken", pageToken)
			}

			var list transfer.GoogleLocationList
			if _, err := g.oauth.api.send(ctx, request{
				url:    g.locationsBase + "/" + a.Name + "/locations",
				query:  q,
				bearer: acc.AccessToken,
			}, &list); err != nil {
				return nil, err
			}

			for _, loc := range list.Locations {
				pages = append(pages, &Page{
					ExternalID: strings.TrimPrefix(loc.Name, "locations/"),
					Name:       loc.Title,
					EntityType: models.EntityBusiness,
					Metadata: models.Metadata{
						Kind: models.Google,
						Google: &models.GoogleMetadata{
							AccountName:  a.Name,
							LocationName: loc.Name,
							Address:      formatAddress(loc.StorefrontAddress),
						},
					},
				})
			}

			if list.NextPageToken == "" {
				break
			}
			pageToken = list.NextPageToken
		}
	}
	return pages, nil
}

func (g *GoogleBusiness) accounts(ctx context.Context, token string) ([]transfer.GoogleBusinessAccount, error) {
	var out []transfer.GoogleBusinessAccount
	pageToken := ""
	for i := 0; i < graphMaxPages; i++ {
		q := url.Values{}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var list transfer.GoogleBusinessAccountList
		if _, err := g.oauth.api.send(ctx, request{url: g.accountsBase + "/accounts", query: q, bearer: token}, &list); err != nil {
			return nil, err
		}
		out = append(out, list.Accounts...)
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}
	return out, nil
}

func formatAddress(a *transfer.GoogleAddress) string {
	if a == nil {
		return ""
	}
	parts := append([]string{}, a.AddressLines...)
	for _, p := range []string{a.Locality, a.AdministrativeArea, a.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (g *GoogleBusiness) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	return g.oauth.refresh(ctx, acc)
}

func (g *GoogleBusiness) locationPath(page *Page) (string, error) {
	meta := page.Metadata.Google
	if meta == nil || meta.AccountName == "" || meta.LocationName == "" {
		return "", apperr.Validation("page", "location %s has no account or location name", page.ExternalID)
	}
	return meta.AccountName + "/" + meta.LocationName, nil
}

func (g *GoogleBusiness) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	loc, err := g.locationPath(page)
	if err != nil {
		return nil, err
	}

	post := transfer.GoogleLocalPost{
		LanguageCode: "en-US",
		Summary:      content.Text,
		TopicType:    "STANDARD",
	}
	if content.Media != nil && len(content.Media.URLs) > 0 {
		if len(content.Media.URLs) > 1 {
			return nil, apperr.Validation("media", "google business posts accept a single image")
		}
		post.Media = []transfer.GoogleMediaItem{{MediaFormat: "PHOTO", SourceURL: content.Media.URLs[0]}}
	}
	if s := opts.Google; s != nil && s.CallToAction != nil {
		post.CallToAction = &transfer.GoogleCallToAction{ActionType: s.CallToAction.ActionType, URL: s.CallToAction.URL}
	} else if content.Link != "" {
		post.CallToAction = &transfer.GoogleCallToAction{ActionType: "LEARN_MORE", URL: content.Link}
	}

	var created transfer.GoogleLocalPost
	if _, err := g.oauth.api.send(ctx, request{
		method: http.MethodPost,
		url:    g.postsBase + "/" + loc + "/localPosts",
		bearer: page.AccessToken,
		json:   post,
	}, &created); err != nil {
		return nil, err
	}

	return &PublishResult{ExternalID: created.Name, URL: created.SearchURL, PublishedAt: g.oauth.now()}, nil
}

func (g *GoogleBusiness) DisconnectAccount(ctx context.Context, acc *Account) error {
	token := acc.RefreshToken
	if token == "" {
		token = acc.AccessToken
	}
	return g.oauth.revoke(ctx, token)
}

func (g *GoogleBusiness) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	loc, err := g.locationPath(page)
	if err != nil {
		return nil, err
	}

	q := url.Values{"pageSize": {strconv.Itoa(clampLimit(limit, gbpMaxHistory))}}
	if cursor != "" {
		q.Set("pageToken", cursor)
	}

	var list transfer.GoogleLocalPostList
	if _, err := g.oauth.api.send(ctx, request{
		url:    g.postsBase + "/" + loc + "/localPosts",
		query:  q,
		bearer: page.AccessToken,
	}, &list); err != nil {
		return nil, err
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(list.LocalPosts)), NextCursor: list.NextPageToken}
	for _, p := range list.LocalPosts {
		item := HistoryItem{ExternalID: p.Name, Text: p.Summary, URL: p.SearchURL}
		for _, m := range p.Media {
			u := m.GoogleURL
			if u == "" {
				u = m.SourceURL
			}
			item.MediaURLs = append(item.MediaURLs, u)
		}
		if t, err := time.Parse(time.RFC3339, p.CreateTime); err == nil {
			item.PublishedAt = t.UTC()
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (g *GoogleBusiness) DeletePost(ctx context.Context, page *Page, externalID string) error {
	if !strings.HasPrefix(externalID, "accounts/") {
		return apperr.Validation("postId", "expected a local post resource name, got %q", externalID)
	}
	_, err := g.oauth.api.send(ctx, request{
		method: http.MethodDelete,
		url:    g.postsBase + "/" + externalID,
		bearer: page.AccessToken,
	}, nil)
	return err
}
