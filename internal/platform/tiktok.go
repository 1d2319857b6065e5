package platform

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/transfer"
)

const (
	tiktokAuthURL    = "https://www.tiktok.com/v2/auth/authorize/"
	tiktokAPIURL     = "https://open.tiktokapis.com"
	tiktokScopes     = "user.info.basic,user.info.profile,video.publish,video.upload,video.list"
	tiktokPrivacy    = "SELF_ONLY"
	tiktokMaxHistory = 20
)

const tiktokVideoFields = "id,create_time,cover_image_url,share_url,video_description,duration,title"

type TikTok struct {
	cfg  config.OAuthClient
	api  *apiClient
	base string
	now  func() time.Time
}

func NewTikTok(cfg config.OAuthClient, opts ...Option) *TikTok {
	o := newOptions(opts)
	return &TikTok{
		cfg:  cfg,
		api:  newAPIClient(models.TikTok, o),
		base: o.host(tiktokAPIURL),
		now:  o.now,
	}
}

func (t *TikTok) Platform() models.Platform { return models.TikTok }

func (t *TikTok) Features() Features {
	return Features{
		MaxTextLength:  2200,
		MaxTitleLength: 100,
		MaxMedia:       35,
		MediaTypes:     []MediaType{MediaVideo, MediaImage, MediaCarousel},
		RequiresMedia:  true,
	}
}

func (t *TikTok) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_key", t.cfg.ClientID)
	q.Set("scope", tiktokScopes)
	q.Set("response_type", "code")
	q.Set("redirect_uri", t.cfg.RedirectURI)
	q.Set("state", state)
	return tiktokAuthURL + "?" + q.Encode()
}

func (t *TikTok) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	form := url.Values{}
	form.Set("client_key", t.cfg.ClientID)
	form.Set("client_secret", t.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", t.cfg.RedirectURI)

	tok, err := t.token(ctx, form)
	if err != nil {
		return nil, err
	}

	var user transfer.TiktokUserResponse
	_, err = t.api.send(ctx, request{
		url:    t.base + "/v2/user/info/",
		query:  url.Values{"fields": {"open_id,avatar_url,display_name,username"}},
		bearer: tok.AccessToken,
	}, &user)
	if err != nil {
		return nil, err
	}
	if !user.Error.OK() {
		return nil, apperr.PlatformAPI(models.TikTok.String(), http.StatusOK, user.Error.Message)
	}

	acc := t.accountFromToken(tok)
	acc.ExternalID = user.Data.User.OpenID
	if acc.ExternalID == "" {
		acc.ExternalID = tok.OpenID
	}
	acc.Name = user.Data.User.DisplayName
	acc.Metadata = models.Metadata{
		Kind: models.TikTok,
		TikTok: &models.TikTokMetadata{
			Username:  user.Data.User.Username,
			AvatarURL: user.Data.User.AvatarURL,
		},
	}
	return acc, nil
}

func (t *TikTok) token(ctx context.Context, form url.Values) (*transfer.TiktokTokenResponse, error) {
	var tok transfer.TiktokTokenResponse
	if _, err := t.api.send(ctx, request{
		method: http.MethodPost,
		url:    t.base + "/v2/oauth/token/",
		form:   form,
	}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		detail := tok.ErrorDescription
		if detail == "" {
			detail = tok.Error
		}
		return nil, apperr.Auth(models.TikTok.String(), detail)
	}
	return &tok, nil
}

func (t *TikTok) accountFromToken(tok *transfer.TiktokTokenResponse) *Account {
	now := t.now()
	return &Account{
		ExternalID:            tok.OpenID,
		AccessToken:           tok.AccessToken,
		RefreshToken:          tok.RefreshToken,
		AccessTokenExpiresAt:  expiresIn(now, tok.ExpiresIn),
		RefreshTokenExpiresAt: expiresIn(now, tok.RefreshExpiresIn),
		TokenIssuedAt:         timePtr(now),
	}
}

// ListPages returns the creator profile itself; TikTok has no sub-pages.
func (t *TikTok) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	return []*Page{{
		ExternalID: acc.ExternalID,
		Name:       acc.Name,
		EntityType: models.EntityProfile,
		Metadata:   acc.Metadata,
	}}, nil
}

func (t *TikTok) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	if acc.RefreshToken == "" {
		return nil, apperr.Auth(models.TikTok.String(), "no refresh token")
	}
	form := url.Values{}
	form.Set("client_key", t.cfg.ClientID)
	form.Set("client_secret", t.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", acc.RefreshToken)

	tok, err := t.token(ctx, form)
	if err != nil {
		return nil, err
	}

	refreshed := *acc
	fresh := t.accountFromToken(tok)
	refreshed.AccessToken = fresh.AccessToken
	refreshed.AccessTokenExpiresAt = fresh.AccessTokenExpiresAt
	refreshed.TokenIssuedAt = fresh.TokenIssuedAt
	if fresh.RefreshToken != "" {
		refreshed.RefreshToken = fresh.RefreshToken
		refreshed.RefreshTokenExpiresAt = fresh.RefreshTokenExpiresAt
	}
	return &refreshed, nil
}

func (t *TikTok) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	if content.Media == nil || len(content.Media.URLs) == 0 {
		return nil, apperr.Validation("media", "tiktok posts need a video or photos")
	}

	creator, err := t.creatorInfo(ctx, page.AccessToken)
	if err != nil {
		return nil, err
	}

	body := BuildTikTokRequest(content, opts.TikTok)
	if len(creator.PrivacyLevelOptions) > 0 && !slices.Contains(creator.PrivacyLevelOptions, body.PostInfo.PrivacyLevel) {
		return nil, apperr.Validation("privacyLevel", "privacy level %s is not allowed for this creator", body.PostInfo.PrivacyLevel)
	}

	endpoint := "/v2/post/publish/video/init/"
	if body.MediaType == "PHOTO" {
		endpoint = "/v2/post/publish/content/init/"
	}

	var resp transfer.TiktokPublishResponse
	if _, err := t.api.send(ctx, request{
		method: http.MethodPost,
		url:    t.base + endpoint,
		bearer: page.AccessToken,
		json:   body,
	}, &resp); err != nil {
		return nil, err
	}
	if !resp.Error.OK() {
		return nil, apperr.PlatformAPI(models.TikTok.String(), http.StatusOK, resp.Error.Code+": "+resp.Error.Message)
	}

	return &PublishResult{ExternalID: resp.Data.PublishID, PublishedAt: t.now()}, nil
}

// BuildTikTokRequest maps content and settings to the publish init body.
func BuildTikTokRequest(content *Content, s *models.TikTokSettings) transfer.TiktokPublishRequest {
	if s == nil {
		s = &models.TikTokSettings{}
	}
	privacy := s.PrivacyLevel
	if privacy == "" {
		privacy = tiktokPrivacy
	}

	info := transfer.TiktokPostInfo{
		Title:                 content.Title,
		Description:           content.Text,
		PrivacyLevel:          privacy,
		DisableDuet:           s.DisableDuet,
		DisableStitch:         s.DisableStitch,
		DisableComment:        s.DisableComment,
		BrandContentToggle:    s.BrandContentToggle,
		BrandOrganicToggle:    s.BrandOrganicToggle,
		AutoAddMusic:          s.AutoAddMusic,
		IsAIGC:                s.IsAIGC,
		VideoCoverTimestampMs: s.VideoCoverTimestampMs,
	}

	if content.Media.Type == MediaVideo {
		return transfer.TiktokPublishRequest{
			PostInfo: info,
			SourceInfo: transfer.TiktokSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: content.Media.URLs[0],
			},
		}
	}

	info.VideoCoverTimestampMs = 0
	return transfer.TiktokPublishRequest{
		PostInfo: info,
		SourceInfo: transfer.TiktokSourceInfo{
			Source:      "PULL_FROM_URL",
			PhotoImages: content.Media.URLs,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}
}

func (t *TikTok) creatorInfo(ctx context.Context, token string) (*transfer.TiktokCreatorInfo, error) {
	var resp transfer.TiktokCreatorInfoResponse
	if _, err := t.api.send(ctx, request{
		method: http.MethodPost,
		url:    t.base + "/v2/post/publish/creator_info/query/",
		bearer: token,
	}, &resp); err != nil {
		return nil, err
	}
	if !resp.Error.OK() {
		return nil, apperr.PlatformAPI(models.TikTok.String(), http.StatusOK, resp.Error.Code+": "+resp.Error.Message)
	}
	return &resp.Data, nil
}

func (t *TikTok) DisconnectAccount(ctx context.Context, acc *Account) error {
	form := url.Values{}
	form.Set("client_key", t.cfg.ClientID)
	form.Set("client_secret", t.cfg.ClientSecret)
	form.Set("token", acc.AccessToken)

	_, err := t.api.send(ctx, request{
		method: http.MethodPost,
		url:    t.base + "/v2/oauth/revoke/",
		form:   form,
	}, nil)
	return err
}

func (t *TikTok) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	body := transfer.TiktokVideoListRequest{MaxCount: clampLimit(limit, tiktokMaxHistory)}
	if cursor != "" {
		c, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, apperr.Validation("cursor", "invalid cursor %q", cursor)
		}
		body.Cursor = c
	}

	var resp transfer.TiktokVideoListResponse
	if _, err := t.api.send(ctx, request{
		method: http.MethodPost,
		url:    t.base + "/v2/video/list/",
		query:  url.Values{"fields": {tiktokVideoFields}},
		bearer: page.AccessToken,
		json:   body,
	}, &resp); err != nil {
		return nil, err
	}
	if !resp.Error.OK() {
		return nil, apperr.PlatformAPI(models.TikTok.String(), http.StatusOK, resp.Error.Code+": "+resp.Error.Message)
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(resp.Data.Videos))}
	for _, v := range resp.Data.Videos {
		text := v.VideoDescription
		if strings.TrimSpace(text) == "" {
			text = v.Title
		}
		out.Items = append(out.Items, HistoryItem{
			ExternalID:  v.ID,
			Text:        text,
			URL:         v.ShareURL,
			MediaURLs:   []string{v.CoverImageURL},
			PublishedAt: time.Unix(v.CreateTime, 0).UTC(),
		})
	}
	if resp.Data.HasMore {
		out.NextCursor = strconv.FormatInt(resp.Data.Cursor, 10)
	}
	return out, nil
}
