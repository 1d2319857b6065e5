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

var (
	instagramBusinessScopes = []string{"instagram_business_basic", "instagram_business_content_publish"}
	instagramFacebookScopes = []string{
		"instagram_basic",
		"instagram_content_publish",
		"pages_show_list",
		"pages_read_engagement",
		"business_management",
	}
)

const instagramPageFields = "id,name,access_token,instagram_business_account{id,username,profile_picture_url}"

// Instagram publishes to professional accounts either through Instagram
// Login (instagram_business) or through the Facebook pages they are linked to
// (facebook).
type Instagram struct {
	method string
	cfg    config.OAuthClient
	api    *apiClient
	// Instagram Login hosts.
	oauthBase string
	graphBase string
	// Facebook Login, set in facebook mode.
	login *graphLogin
	pub   *igPublisher
	now   func() time.Time
}

func NewInstagram(cfg config.OAuthClient, opts ...Option) *Instagram {
	o := newOptions(opts)
	api := newAPIClient(models.Instagram, o)
	api.classify = classifyGraph(models.Instagram)
	graphBase := o.host(instagramGraphURL)
	return &Instagram{
		method:    models.MethodInstagramBusiness,
		cfg:       cfg,
		api:       api,
		oauthBase: o.host(instagramAPIURL),
		graphBase: graphBase,
		pub:       newIGPublisher(api, graphBase+"/"+graphVersion, o.now),
		now:       o.now,
	}
}

// NewInstagramViaFacebook builds the adapter for accounts connected through
// Facebook Login. cfg is the Facebook app.
func NewInstagramViaFacebook(cfg config.OAuthClient, opts ...Option) *Instagram {
	o := newOptions(opts)
	login := newGraphLogin(models.Instagram, cfg, o)
	return &Instagram{
		method: models.MethodFacebook,
		cfg:    cfg,
		api:    login.api,
		login:  login,
		pub:    newIGPublisher(login.api, login.base, o.now),
		now:    o.now,
	}
}

func newIGPublisher(api *apiClient, base string, now func() time.Time) *igPublisher {
	return &igPublisher{api: api, base: base, now: now, pollInterval: 3 * time.Second, pollAttempts: 20}
}

func (ig *Instagram) Platform() models.Platform { return models.Instagram }

func (ig *Instagram) Method() string { return ig.method }

func (ig *Instagram) Features() Features {
	return Features{
		MaxTextLength: 2200,
		MaxMedia:      10,
		MediaTypes:    []MediaType{MediaImage, MediaVideo, MediaCarousel},
		RequiresMedia: true,
	}
}

func (ig *Instagram) AuthURL(state string) string {
	if ig.login != nil {
		return ig.login.dialogURL(state, instagramFacebookScopes)
	}
	q := url.Values{}
	q.Set("client_id", ig.cfg.ClientID)
	q.Set("redirect_uri", ig.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(instagramBusinessScopes, ","))
	q.Set("state", state)
	return instagramAuthURL + "?" + q.Encode()
}

func (ig *Instagram) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	if ig.login != nil {
		acc, err := ig.login.exchange(ctx, code)
		if err != nil {
			return nil, err
		}
		acc.Metadata = models.Metadata{
			Kind:      models.Instagram,
			Instagram: &models.InstagramMetadata{Method: ig.method},
		}
		return acc, nil
	}

	var short transfer.InstagramShortToken
	if _, err := ig.api.send(ctx, request{
		method: http.MethodPost,
		url:    ig.oauthBase + "/oauth/access_token",
		form: url.Values{
			"client_id":     {ig.cfg.ClientID},
			"client_secret": {ig.cfg.ClientSecret},
			"grant_type":    {"authorization_code"},
			"redirect_uri":  {ig.cfg.RedirectURI},
			"code":          {code},
		},
	}, &short); err != nil {
		return nil, err
	}

	var long transfer.GraphToken
	if _, err := ig.api.send(ctx, request{
		url: ig.graphBase + "/access_token",
		query: url.Values{
			"grant_type":    {"ig_exchange_token"},
			"client_secret": {ig.cfg.ClientSecret},
			"access_token":  {short.AccessToken},
		},
	}, &long); err != nil {
		return nil, err
	}

	var user transfer.InstagramUserInfo
	if _, err := ig.api.send(ctx, request{
		url: ig.graphBase + "/" + graphVersion + "/me",
		query: url.Values{
			"fields":       {"user_id,username,name,profile_picture_url"},
			"access_token": {long.AccessToken},
		},
	}, &user); err != nil {
		return nil, err
	}

	id := user.UserID
	if id == "" {
		id = user.ID
	}
	if id == "" {
		id = strconv.FormatInt(short.UserID, 10)
	}
	name := user.Name
	if name == "" {
		name = user.Username
	}

	now := ig.now()
	return &Account{
		ExternalID:           id,
		Name:                 name,
		AccessToken:          long.AccessToken,
		AccessTokenExpiresAt: expiresIn(now, long.ExpiresIn),
		TokenIssuedAt:        timePtr(now),
		Metadata: models.Metadata{
			Kind: models.Instagram,
			Instagram: &models.InstagramMetadata{
				Username:          user.Username,
				ProfilePictureURL: user.ProfilePicture,
				Method:            ig.method,
			},
		},
	}, nil
}

func (ig *Instagram) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	if ig.login == nil {
		return []*Page{{
			ExternalID: acc.ExternalID,
			Name:       acc.Name,
			EntityType: models.EntityProfile,
			Metadata:   acc.Metadata,
		}}, nil
	}

	list, err := ig.login.pages(ctx, acc, instagramPageFields)
	if err != nil {
		return nil, err
	}

	var pages []*Page
	for _, p := range list {
		biz := p.InstagramBusinessAccount
		if biz == nil || biz.ID == "" {
			continue
		}
		pages = append(pages, &Page{
			ExternalID:  biz.ID,
			Name:        biz.Username,
			EntityType:  models.EntityBusiness,
			AccessToken: p.AccessToken,
			Metadata: models.Metadata{
				Kind: models.Instagram,
				Instagram: &models.InstagramMetadata{
					Username:          biz.Username,
					ProfilePictureURL: biz.ProfilePictureURL,
					FacebookPageID:    p.ID,
					Method:            ig.method,
				},
			},
		})
	}
	return pages, nil
}

func (ig *Instagram) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	if ig.login != nil {
		return ig.login.extend(ctx, acc)
	}

	var tok transfer.GraphToken
	if _, err := ig.api.send(ctx, request{
		url: ig.graphBase + "/refresh_access_token",
		query: url.Values{
			"grant_type":   {"ig_refresh_token"},
			"access_token": {acc.AccessToken},
		},
	}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, apperr.Auth(models.Instagram.String(), "empty refreshed token")
	}

	now := ig.now()
	refreshed := *acc
	refreshed.AccessToken = tok.AccessToken
	refreshed.AccessTokenExpiresAt = expiresIn(now, tok.ExpiresIn)
	refreshed.TokenIssuedAt = timePtr(now)
	return &refreshed, nil
}

func (ig *Instagram) PageToken(ctx context.Context, acc *Account, pageExternalID string) (string, *time.Time, error) {
	if ig.login == nil {
		return acc.AccessToken, acc.AccessTokenExpiresAt, nil
	}
	return pageTokenFrom(ctx, ig.login, acc, pageExternalID, instagramPageFields, func(p transfer.FacebookPage) string {
		if p.InstagramBusinessAccount == nil {
			return ""
		}
		return p.InstagramBusinessAccount.ID
	})
}

func (ig *Instagram) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	return ig.pub.publish(ctx, page.ExternalID, page.AccessToken, content)
}

// DisconnectAccount revokes Facebook permissions in facebook mode. Instagram
// Login has no revoke endpoint; tokens lapse on their own.
func (ig *Instagram) DisconnectAccount(ctx context.Context, acc *Account) error {
	if ig.login != nil {
		return ig.login.revoke(ctx, acc)
	}
	return nil
}

func (ig *Instagram) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	return ig.pub.history(ctx, page.ExternalID, page.AccessToken, limit, cursor)
}
