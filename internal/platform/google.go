package platform

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"
	googleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// googleOAuth is the Google authorization-code flow shared by youtube and
// google business.
type googleOAuth struct {
	platform    models.Platform
	conf        *oauth2.Config
	api         *apiClient
	userInfoURL string
	revokeURL   string
	now         func() time.Time
}

func newGoogleOAuth(p models.Platform, cfg config.OAuthClient, scopes []string, o *options) *googleOAuth {
	endpoint := google.Endpoint
	userInfo, revoke := googleUserInfoURL, googleRevokeURL
	if o.baseURL != "" {
		endpoint.TokenURL = o.baseURL + "/token"
		userInfo = o.baseURL + "/oauth2/v1/userinfo"
		revoke = o.baseURL + "/revoke"
	}
	return &googleOAuth{
		platform: p,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		api:         newAPIClient(p, o),
		userInfoURL: userInfo,
		revokeURL:   revoke,
		now:         o.now,
	}
}

// withClient makes oauth2 use the adapter's HTTP client.
func (g *googleOAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.api.http)
}

func (g *googleOAuth) authURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (g *googleOAuth) exchange(ctx context.Context, code string) (*Account, error) {
	if err := g.api.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tok, err := g.conf.Exchange(g.withClient(ctx), code)
	if err != nil {
		return nil, g.oauthErr(err)
	}
	if tok.RefreshToken == "" {
		return nil, apperr.Auth(g.platform.String(), "refresh token is empty; consent must be granted with offline access")
	}

	var user transfer.GoogleUserInfo
	if _, err := g.api.send(ctx, request{url: g.userInfoURL, bearer: tok.AccessToken}, &user); err != nil {
		return nil, err
	}

	acc := g.fromToken(tok)
	acc.ExternalID = user.ID
	acc.Name = user.Name
	return acc, nil
}

func (g *googleOAuth) fromToken(tok *oauth2.Token) *Account {
	acc := &Account{
		AccessToken:   tok.AccessToken,
		RefreshToken:  tok.RefreshToken,
		TokenIssuedAt: timePtr(g.now()),
	}
	if !tok.Expiry.IsZero() {
		acc.AccessTokenExpiresAt = timePtr(tok.Expiry)
	}
	return acc
}

func (g *googleOAuth) refresh(ctx context.Context, acc *Account) (*Account, error) {
	if acc.RefreshToken == "" {
		return nil, apperr.Auth(g.platform.String(), "no refresh token")
	}
	if err := g.api.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tok, err := g.conf.TokenSource(g.withClient(ctx), &oauth2.Token{RefreshToken: acc.RefreshToken}).Token()
	if err != nil {
		return nil, g.oauthErr(err)
	}

	fresh := g.fromToken(tok)
	refreshed := *acc
	refreshed.AccessToken = fresh.AccessToken
	refreshed.AccessTokenExpiresAt = fresh.AccessTokenExpiresAt
	refreshed.TokenIssuedAt = fresh.TokenIssuedAt
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	return &refreshed, nil
}

func (g *googleOAuth) revoke(ctx context.Context, token string) error {
	_, err := g.api.send(ctx, request{
		method: http.MethodPost,
		url:    g.revokeURL,
		form:   url.Values{"token": {token}},
	}, nil)
	return err
}

// client returns an HTTP client authorised with a static access token.
func (g *googleOAuth) client(ctx context.Context, token string) *http.Client {
	return oauth2.NewClient(g.withClient(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func (g *googleOAuth) oauthErr(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return apperr.Auth(g.platform.String(), string(re.Body))
	}
	return apperr.PlatformAPI(g.platform.String(), 0, err.Error())
}

// apiErr classifies errors returned by generated Google API clients.
func (g *googleOAuth) apiErr(err error) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		if ge.Code == http.StatusUnauthorized {
			return apperr.Auth(g.platform.String(), ge.Message)
		}
		return apperr.PlatformAPI(g.platform.String(), ge.Code, ge.Body)
	}
	return apperr.PlatformAPI(g.platform.String(), 0, err.Error())
}
