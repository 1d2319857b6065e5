package platform

import (
	"bytes"
	"context"
	"fmt"
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
	linkedinAuthURL    = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinOAuthURL   = "https://www.linkedin.com"
	linkedinAPIURL     = "https://api.linkedin.com"
	linkedinShare      = "com.linkedin.ugc.ShareContent"
	linkedinVisibility = "com.linkedin.ugc.MemberNetworkVisibility"
	linkedinUploadMech = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
	linkedinMaxHistory = 50
)

var linkedinScopes = []string{
	"openid", "profile", "email",
	"w_member_social", "r_organization_social", "w_organization_social", "rw_organization_admin",
}

// LinkedIn publishes as the member or as organizations the member administers.
type LinkedIn struct {
	cfg       config.OAuthClient
	api       *apiClient
	oauthBase string
	base      string
	now       func() time.Time
}

func NewLinkedIn(cfg config.OAuthClient, opts ...Option) *LinkedIn {
	o := newOptions(opts)
	return &LinkedIn{
		cfg:       cfg,
		api:       newAPIClient(models.LinkedIn, o),
		oauthBase: o.host(linkedinOAuthURL) + "/oauth/v2",
		base:      o.host(linkedinAPIURL) + "/v2",
		now:       o.now,
	}
}

func (l *LinkedIn) Platform() models.Platform { return models.LinkedIn }

func (l *LinkedIn) Features() Features {
	return Features{
		MaxTextLength: 3000,
		MaxMedia:      9,
		MediaTypes:    []MediaType{MediaImage, MediaVideo, MediaCarousel},
		Deletion:      true,
	}
}

func (l *LinkedIn) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", l.cfg.ClientID)
	q.Set("redirect_uri", l.cfg.RedirectURI)
	q.Set("scope", strings.Join(linkedinScopes, " "))
	q.Set("state", state)
	return linkedinAuthURL + "?" + q.Encode()
}

func (l *LinkedIn) token(ctx context.Context, form url.Values) (*transfer.LinkedinToken, error) {
	form.Set("client_id", l.cfg.ClientID)
	form.Set("client_secret", l.cfg.ClientSecret)

	var tok transfer.LinkedinToken
	if _, err := l.api.send(ctx, request{
		method: http.MethodPost,
		url:    l.oauthBase + "/accessToken",
		form:   form,
	}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, apperr.Auth(models.LinkedIn.String(), "empty access token")
	}
	return &tok, nil
}

func (l *LinkedIn) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	tok, err := l.token(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {l.cfg.RedirectURI},
	})
	if err != nil {
		return nil, err
	}

	var me transfer.LinkedinUserInfo
	if _, err := l.api.send(ctx, request{url: l.base + "/userinfo", bearer: tok.AccessToken}, &me); err != nil {
		return nil, err
	}

	now := l.now()
	return &Account{
		ExternalID:            me.Sub,
		Name:                  me.Name,
		AccessToken:           tok.AccessToken,
		RefreshToken:          tok.RefreshToken,
		AccessTokenExpiresAt:  expiresIn(now, tok.ExpiresIn),
		RefreshTokenExpiresAt: expiresIn(now, tok.RefreshTokenExpiresIn),
		TokenIssuedAt:         timePtr(now),
		Metadata: models.Metadata{
			Kind:     models.LinkedIn,
			LinkedIn: &models.LinkedInMetadata{URN: "urn:li:person:" + me.Sub, Picture: me.Picture},
		},
	}, nil
}

// ListPages returns the member profile followed by administered organizations.
func (l *LinkedIn) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	pages := []*Page{{
		ExternalID: acc.ExternalID,
		Name:       acc.Name,
		EntityType: models.EntityProfile,
		Metadata:   acc.Metadata,
	}}

	const count = 50
	for start := 0; start < count*graphMaxPages; start += count {
		var acls transfer.LinkedinOrgACLList
		if _, err := l.api.send(ctx, request{
			url: l.base + "/organizationAcls",
			query: url.Values{
				"q":     {"roleAssignee"},
				"role":  {"ADMINISTRATOR"},
				"state": {"APPROVED"},
				"count": {strconv.Itoa(count)},
				"start": {strconv.Itoa(start)},
			},
			bearer: acc.AccessToken,
		}, &acls); err != nil {
			return nil, err
		}

		for _, acl := range acls.Elements {
			orgID := strings.TrimPrefix(acl.OrganizationalTarget, "urn:li:organization:")
			var org transfer.LinkedinOrganization
			if _, err := l.api.send(ctx, request{url: l.base + "/organizations/" + orgID, bearer: acc.AccessToken}, &org); err != nil {
				return nil, err
			}
			pages = append(pages, &Page{
				ExternalID: orgID,
				Name:       org.LocalizedName,
				EntityType: models.EntityOrganization,
				Metadata: models.Metadata{
					Kind:     models.LinkedIn,
					LinkedIn: &models.LinkedInMetadata{URN: acl.OrganizationalTarget},
					Extra:    map[string]any{"vanityName": org.VanityName},
				},
			})
		}

		if !hasNextLink(acls.Paging) {
			break
		}
	}
	return pages, nil
}

func hasNextLink(p transfer.LinkedinPaging) bool {
	for _, link := range p.Links {
		if link.Rel == "next" {
			return true
		}
	}
	return false
}

// RefreshToken returns acc unchanged when LinkedIn issued no refresh token;
// the member has to reconnect once the access token lapses.
func (l *LinkedIn) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	if acc.RefreshToken == "" {
		return acc, nil
	}
	tok, err := l.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {acc.RefreshToken},
	})
	if err != nil {
		return nil, err
	}

	now := l.now()
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

func (l *LinkedIn) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	author := authorURN(page)

	share := transfer.LinkedinShareContent{
		ShareCommentary:    transfer.LinkedinText{Text: content.Text},
		ShareMediaCategory: "NONE",
	}

	switch {
	case content.Media != nil && len(content.Media.URLs) > 0:
		recipe, category := "urn:li:digitalmediaRecipe:feedshare-image", "IMAGE"
		if content.Media.Type == MediaVideo {
			recipe, category = "urn:li:digitalmediaRecipe:feedshare-video", "VIDEO"
		}
		for _, u := range content.Media.URLs {
			asset, err := l.upload(ctx, page.AccessToken, author, recipe, u)
			if err != nil {
				return nil, err
			}
			m := transfer.LinkedinMedia{Status: "READY", Media: asset}
			if content.Title != "" {
				m.Title = &transfer.LinkedinText{Text: content.Title}
			}
			share.Media = append(share.Media, m)
		}
		share.ShareMediaCategory = category
	case content.Link != "":
		share.ShareMediaCategory = "ARTICLE"
		share.Media = []transfer.LinkedinMedia{{Status: "READY", OriginalURL: content.Link}}
	}

	post := transfer.LinkedinUGCPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]transfer.LinkedinShareContent{linkedinShare: share},
		Visibility:      map[string]string{linkedinVisibility: "PUBLIC"},
	}

	var created transfer.LinkedinUGCPost
	header, err := l.api.send(ctx, request{
		method: http.MethodPost,
		url:    l.base + "/ugcPosts",
		bearer: page.AccessToken,
		json:   post,
		header: map[string]string{"X-Restli-Protocol-Version": "2.0.0"},
	}, &created)
	if err != nil {
		return nil, err
	}

	id := header.Get("X-Restli-Id")
	if id == "" {
		id = created.ID
	}
	return &PublishResult{
		ExternalID:  id,
		URL:         "https://www.linkedin.com/feed/update/" + id,
		PublishedAt: l.now(),
	}, nil
}

// upload registers an asset and pushes the media bytes to LinkedIn.
func (l *LinkedIn) upload(ctx context.Context, token, owner, recipe, mediaURL string) (string, error) {
	var reg transfer.LinkedinRegisterUploadResponse
	if _, err := l.api.send(ctx, request{
		method: http.MethodPost,
		url:    l.base + "/assets?action=registerUpload",
		bearer: token,
		json: transfer.LinkedinRegisterUploadRequest{RegisterUploadRequest: transfer.LinkedinRegisterUpload{
			Recipes: []string{recipe},
			Owner:   owner,
			ServiceRelationships: []transfer.LinkedinServiceRelationship{
				{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"},
			},
		}},
	}, &reg); err != nil {
		return "", err
	}

	mech, ok := reg.Value.UploadMechanism[linkedinUploadMech]
	if !ok || mech.UploadURL == "" || reg.Value.Asset == "" {
		return "", apperr.PlatformAPI(models.LinkedIn.String(), http.StatusOK, "register upload returned no upload url")
	}

	data, contentType, err := l.api.fetch(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	header := map[string]string{}
	if contentType != "" {
		header["Content-Type"] = contentType
	}
	if _, err := l.api.send(ctx, request{
		method: http.MethodPut,
		url:    mech.UploadURL,
		bearer: token,
		raw:    bytes.NewReader(data),
		header: header,
	}, nil); err != nil {
		return "", err
	}
	return reg.Value.Asset, nil
}

func authorURN(page *Page) string {
	if page.Metadata.LinkedIn != nil && page.Metadata.LinkedIn.URN != "" {
		return page.Metadata.LinkedIn.URN
	}
	if page.EntityType == models.EntityOrganization {
		return "urn:li:organization:" + page.ExternalID
	}
	return "urn:li:person:" + page.ExternalID
}

func (l *LinkedIn) DisconnectAccount(ctx context.Context, acc *Account) error {
	_, err := l.api.send(ctx, request{
		method: http.MethodPost,
		url:    l.oauthBase + "/revoke",
		form: url.Values{
			"client_id":     {l.cfg.ClientID},
			"client_secret": {l.cfg.ClientSecret},
			"token":         {acc.AccessToken},
		},
	}, nil)
	return err
}

func (l *LinkedIn) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	count := clampLimit(limit, linkedinMaxHistory)
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, apperr.Validation("cursor", "invalid cursor %q", cursor)
		}
		start = n
	}

	// Rest.li list syntax must not be form-encoded.
	target := fmt.Sprintf("%s/ugcPosts?q=authors&authors=List(%s)&count=%d&start=%d",
		l.base, url.QueryEscape(authorURN(page)), count, start)

	var list transfer.LinkedinUGCPostList
	if _, err := l.api.send(ctx, request{
		url:    target,
		bearer: page.AccessToken,
		header: map[string]string{"X-Restli-Protocol-Version": "2.0.0"},
	}, &list); err != nil {
		return nil, err
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(list.Elements))}
	for _, p := range list.Elements {
		item := HistoryItem{
			ExternalID: p.ID,
			Text:       p.SpecificContent[linkedinShare].ShareCommentary.Text,
			URL:        "https://www.linkedin.com/feed/update/" + p.ID,
		}
		if p.Created != nil {
			item.PublishedAt = time.UnixMilli(p.Created.Time).UTC()
		}
		out.Items = append(out.Items, item)
	}
	if next := start + len(list.Elements); len(list.Elements) == count && (list.Paging.Total == 0 || next < list.Paging.Total) {
		out.NextCursor = strconv.Itoa(next)
	}
	return out, nil
}

func (l *LinkedIn) DeletePost(ctx context.Context, page *Page, externalID string) error {
	_, err := l.api.send(ctx, request{
		method: http.MethodDelete,
		url:    l.base + "/ugcPosts/" + url.PathEscape(externalID),
		bearer: page.AccessToken,
	}, nil)
	return err
}
