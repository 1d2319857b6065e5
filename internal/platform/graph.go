package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/transfer"
)

const (
	graphVersion      = "v21.0"
	facebookGraphURL  = "https://graph.facebook.com"
	facebookDialogURL = "https://www.facebook.com/" + graphVersion + "/dialog/oauth"
	instagramGraphURL = "https://graph.instagram.com"
	instagramAPIURL   = "https://api.instagram.com"
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"

	graphTimeLayout = "2006-01-02T15:04:05-0700"
	graphMaxPages   = 50
	graphMaxHistory = 100
)

// Graph error codes that mean the token is no longer usable.
var graphAuthCodes = map[int]bool{102: true, 190: true, 463: true, 467: true}

func classifyGraph(p models.Platform) classifier {
	return func(status int, body []byte) error {
		var ge transfer.GraphError
		if err := json.Unmarshal(body, &ge); err != nil || ge.Error.Code == 0 {
			return nil
		}
		if graphAuthCodes[ge.Error.Code] || status == http.StatusUnauthorized {
			return apperr.Auth(p.String(), ge.Error.Message)
		}
		return apperr.PlatformAPI(p.String(), status, string(body))
	}
}

func parseGraphTime(s string) time.Time {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// graphLogin is the Facebook Login flow shared by the facebook adapter and the
// instagram adapter in facebook mode.
type graphLogin struct {
	platform models.Platform
	cfg      config.OAuthClient
	api      *apiClient
	base     string
	now      func() time.Time
}

func newGraphLogin(p models.Platform, cfg config.OAuthClient, o *options) *graphLogin {
	api := newAPIClient(p, o)
	api.classify = classifyGraph(p)
	return &graphLogin{
		platform: p,
		cfg:      cfg,
		api:      api,
		base:     o.host(facebookGraphURL) + "/" + graphVersion,
		now:      o.now,
	}
}

func (g *graphLogin) dialogURL(state string, scopes []string) string {
	q := url.Values{}
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURI)
	q.Set("state", state)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(scopes, ","))
	return facebookDialogURL + "?" + q.Encode()
}

// exchange trades the code for a long-lived user token and loads the user.
func (g *graphLogin) exchange(ctx context.Context, code string) (*Account, error) {
	var short transfer.GraphToken
	if _, err := g.api.send(ctx, request{
		url: g.base + "/oauth/access_token",
		query: url.Values{
			"client_id":     {g.cfg.ClientID},
			"client_secret": {g.cfg.ClientSecret},
			"redirect_uri":  {g.cfg.RedirectURI},
			"code":          {code},
		},
	}, &short); err != nil {
		return nil, err
	}

	acc, err := g.extend(ctx, &Account{AccessToken: short.AccessToken})
	if err != nil {
		return nil, err
	}

	var me transfer.FacebookUser
	if _, err := g.api.send(ctx, request{
		url:   g.base + "/me",
		query: url.Values{"fields": {"id,name"}, "access_token": {acc.AccessToken}},
	}, &me); err != nil {
		return nil, err
	}
	acc.ExternalID = me.ID
	acc.Name = me.Name
	return acc, nil
}

// extend exchanges a user token for a fresh long-lived one.
func (g *graphLogin) extend(ctx context.Context, acc *Account) (*Account, error) {
	var long transfer.GraphToken
	if _, err := g.api.send(ctx, request{
		url: g.base + "/oauth/access_token",
		query: url.Values{
			"grant_type":        {"fb_exchange_token"},
			"client_id":         {g.cfg.ClientID},
			"client_secret":     {g.cfg.ClientSecret},
			"fb_exchange_token": {acc.AccessToken},
		},
	}, &long); err != nil {
		return nil, err
	}
	if long.AccessToken == "" {
		return nil, apperr.Auth(g.platform.String(), "empty long-lived token")
	}

	now := g.now()
	extended := *acc
	extended.AccessToken = long.AccessToken
	extended.AccessTokenExpiresAt = expiresIn(now, long.ExpiresIn)
	extended.TokenIssuedAt = timePtr(now)
	return &extended, nil
}

// pages walks the cursor-paged list of pages the user manages.
func (g *graphLogin) pages(ctx context.Context, acc *Account, fields string) ([]transfer.FacebookPage, error) {
	owner := acc.ExternalID
	if owner == "" {
		owner = "me"
	}

	var out []transfer.FacebookPage
	after := ""
	for i := 0; i < graphMaxPages; i++ {
		q := url.Values{"fields": {fields}, "limit": {"100"}, "access_token": {acc.AccessToken}}
		if after != "" {
			q.Set("after", after)
		}

		var list transfer.FacebookPageList
		if _, err := g.api.send(ctx, request{url: g.base + "/" + owner + "/accounts", query: q}, &list); err != nil {
			return nil, err
		}
		out = append(out, list.Data...)

		if list.Paging.Next == "" || list.Paging.Cursors.After == "" {
			break
		}
		after = list.Paging.Cursors.After
	}
	return out, nil
}

func (g *graphLogin) revoke(ctx context.Context, acc *Account) error {
	_, err := g.api.send(ctx, request{
		method: http.MethodDelete,
		url:    g.base + "/me/permissions",
		query:  url.Values{"access_token": {acc.AccessToken}},
	}, nil)
	return err
}

// igPublisher drives the container then publish flow of the Instagram
// content publishing API. base is either the Instagram or Facebook graph host.
type igPublisher struct {
	api          *apiClient
	base         string
	now          func() time.Time
	pollInterval time.Duration
	pollAttempts int
}

func (p *igPublisher) publish(ctx context.Context, igUserID, token string, content *Content) (*PublishResult, error) {
	if content.Media == nil || len(content.Media.URLs) == 0 {
		return nil, apperr.Validation("media", "instagram posts need media")
	}

	var creationID string
	var err error
	switch {
	case len(content.Media.URLs) > 1 || content.Media.Type == MediaCarousel:
		creationID, err = p.carousel(ctx, igUserID, token, content)
	case content.Media.Type == MediaVideo:
		creationID, err = p.container(ctx, igUserID, token, url.Values{
			"media_type": {"REELS"},
			"video_url":  {content.Media.URLs[0]},
			"caption":    {content.Text},
		})
	default:
		creationID, err = p.container(ctx, igUserID, token, url.Values{
			"image_url": {content.Media.URLs[0]},
			"caption":   {content.Text},
		})
	}
	if err != nil {
		return nil, err
	}

	if err := p.waitReady(ctx, creationID, token); err != nil {
		return nil, err
	}

	var published transfer.GraphID
	if _, err := p.api.send(ctx, request{
		method: http.MethodPost,
		url:    p.base + "/" + igUserID + "/media_publish",
		form:   url.Values{"creation_id": {creationID}, "access_token": {token}},
	}, &published); err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, apperr.PlatformAPI(p.api.platform.String(), http.StatusOK, "no media id returned")
	}
	return &PublishResult{ExternalID: published.ID, PublishedAt: p.now()}, nil
}

func (p *igPublisher) carousel(ctx context.Context, igUserID, token string, content *Content) (string, error) {
	if n := len(content.Media.URLs); n < 2 || n > 10 {
		return "", apperr.Validation("media", "carousel needs between 2 and 10 items, got %d", n)
	}

	children := make([]string, 0, len(content.Media.URLs))
	for _, u := range content.Media.URLs {
		form := url.Values{"is_carousel_item": {"true"}}
		if isVideoURL(u) {
			form.Set("media_type", "VIDEO")
			form.Set("video_url", u)
		} else {
			form.Set("image_url", u)
		}
		id, err := p.container(ctx, igUserID, token, form)
		if err != nil {
			return "", err
		}
		if err := p.waitReady(ctx, id, token); err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return p.container(ctx, igUserID, token, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {content.Text},
	})
}

func (p *igPublisher) container(ctx context.Context, igUserID, token string, form url.Values) (string, error) {
	form.Set("access_token", token)
	var res transfer.GraphID
	if _, err := p.api.send(ctx, request{
		method: http.MethodPost,
		url:    p.base + "/" + igUserID + "/media",
		form:   form,
	}, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", apperr.PlatformAPI(p.api.platform.String(), http.StatusOK, "no container id returned")
	}
	return res.ID, nil
}

// waitReady polls a container until Instagram finished processing it.
func (p *igPublisher) waitReady(ctx context.Context, containerID, token string) error {
	for i := 0; i < p.pollAttempts; i++ {
		var st transfer.InstagramContainerStatus
		if _, err := p.api.send(ctx, request{
			url:   p.base + "/" + containerID,
			query: url.Values{"fields": {"status_code,status"}, "access_token": {token}},
		}, &st); err != nil {
			return err
		}

		switch st.StatusCode {
		case "", "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return apperr.PlatformAPI(p.api.platform.String(), http.StatusOK, fmt.Sprintf("container %s: %s", st.StatusCode, st.Status))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
	return apperr.PlatformAPI(p.api.platform.String(), http.StatusOK, "media container was not ready in time")
}

func (p *igPublisher) history(ctx context.Context, igUserID, token string, limit int, cursor string) (*HistoryPage, error) {
	q := url.Values{
		"fields":       {"id,caption,media_type,media_url,thumbnail_url,permalink,timestamp"},
		"limit":        {strconv.Itoa(clampLimit(limit, graphMaxHistory))},
		"access_token": {token},
	}
	if cursor != "" {
		q.Set("after", cursor)
	}

	var list transfer.InstagramMediaList
	if _, err := p.api.send(ctx, request{url: p.base + "/" + igUserID + "/media", query: q}, &list); err != nil {
		return nil, err
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(list.Data))}
	for _, m := range list.Data {
		media := m.MediaURL
		if m.MediaType == "VIDEO" && m.ThumbnailURL != "" {
			media = m.ThumbnailURL
		}
		out.Items = append(out.Items, HistoryItem{
			ExternalID:  m.ID,
			Text:        m.Caption,
			URL:         m.Permalink,
			MediaURLs:   []string{media},
			PublishedAt: parseGraphTime(m.Timestamp),
		})
	}
	if list.Paging.Next != "" {
		out.NextCursor = list.Paging.Cursors.After
	}
	return out, nil
}

func isVideoURL(u string) bool {
	if parsed, err := url.Parse(u); err == nil {
		u = parsed.Path
	}
	switch strings.ToLower(path.Ext(u)) {
	case ".mp4", ".mov", ".m4v", ".webm":
		return true
	}
	return false
}
