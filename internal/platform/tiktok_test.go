package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTikTokServer(t *testing.T, handlers map[string]http.HandlerFunc) *TikTok {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.OAuthClient{ClientID: "key", ClientSecret: "secret", RedirectURI: "https://app.example.com/auth/tiktok/callback"}
	return NewTikTok(cfg, WithBaseURL(srv.URL), WithClock(fixedClock))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestTikTokConnectAccount(t *testing.T) {
	tt := newTikTokServer(t, map[string]http.HandlerFunc{
		"/v2/oauth/token/": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "the-code", r.PostForm.Get("code"))
			writeJSON(w, map[string]any{
				"access_token":       "act.1",
				"refresh_token":      "rft.1",
				"expires_in":         86400,
				"refresh_expires_in": 31536000,
				"open_id":            "open-1",
			})
		},
		"/v2/user/info/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer act.1", r.Header.Get("Authorization"))
			writeJSON(w, map[string]any{
				"data":  map[string]any{"user": map[string]any{"open_id": "open-1", "display_name": "Ana", "username": "ana.makes", "avatar_url": "https://cdn/a.png"}},
				"error": map[string]any{"code": "ok"},
			})
		},
	})

	acc, err := tt.ConnectAccount(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "open-1", acc.ExternalID)
	assert.Equal(t, "Ana", acc.Name)
	assert.Equal(t, "act.1", acc.AccessToken)
	assert.Equal(t, "rft.1", acc.RefreshToken)
	require.NotNil(t, acc.AccessTokenExpiresAt)
	assert.Equal(t, fixedNow.Add(24*time.Hour), *acc.AccessTokenExpiresAt)
	assert.Equal(t, "ana.makes", acc.Metadata.TikTok.Username)

	pages, err := tt.ListPages(context.Background(), acc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, models.EntityProfile, pages[0].EntityType)
}

func TestTikTokTokenErrorIsAuth(t *testing.T) {
	tt := newTikTokServer(t, map[string]http.HandlerFunc{
		"/v2/oauth/token/": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"error": "invalid_grant", "error_description": "Authorization code is expired."})
		},
	})

	_, err := tt.ConnectAccount(context.Background(), "stale")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestTikTokPublishVideo(t *testing.T) {
	var body map[string]any
	tt := newTikTokServer(t, map[string]http.HandlerFunc{
		"/v2/post/publish/creator_info/query/": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"data":  map[string]any{"privacy_level_options": []string{"PUBLIC_TO_EVERYONE", "SELF_ONLY"}},
				"error": map[string]any{"code": "ok"},
			})
		},
		"/v2/post/publish/video/init/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer page-token", r.Header.Get("Authorization"))
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))
			writeJSON(w, map[string]any{
				"data":  map[string]any{"publish_id": "v_pub_url~123"},
				"error": map[string]any{"code": "ok"},
			})
		},
	})

	page := &Page{ExternalID: "open-1", AccessToken: "page-token"}
	content := &Content{Text: "hello", Media: &Media{Type: MediaVideo, URLs: []string{"https://cdn/v.mp4"}}}
	settings := models.PostSettings{TikTok: &models.TikTokSettings{DisableDuet: true, IsAIGC: true}}

	res, err := tt.PublishPost(context.Background(), page, content, settings)
	require.NoError(t, err)
	assert.Equal(t, "v_pub_url~123", res.ExternalID)

	info := body["post_info"].(map[string]any)
	assert.Equal(t, "hello", info["description"])
	assert.Equal(t, "SELF_ONLY", info["privacy_level"])
	assert.Equal(t, true, info["disable_duet"])
	assert.Equal(t, true, info["is_aigc"])
	source := body["source_info"].(map[string]any)
	assert.Equal(t, "PULL_FROM_URL", source["source"])
	assert.Equal(t, "https://cdn/v.mp4", source["video_url"])
}

func TestTikTokPublishErrorEnvelope(t *testing.T) {
	tt := newTikTokServer(t, map[string]http.HandlerFunc{
		"/v2/post/publish/creator_info/query/": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"data": map[string]any{}, "error": map[string]any{"code": "ok"}})
		},
		"/v2/post/publish/content/init/": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"error": map[string]any{"code": "spam_risk_too_many_posts", "message": "slow down"}})
		},
	})

	content := &Content{Text: "pics", Media: &Media{Type: MediaCarousel, URLs: []string{"https://cdn/1.jpg", "https://cdn/2.jpg"}}}
	_, err := tt.PublishPost(context.Background(), &Page{AccessToken: "t"}, content, models.PostSettings{})

	var perr *apperr.PlatformAPIError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "tiktok", perr.Platform)
	assert.Contains(t, perr.Detail, "spam_risk_too_many_posts")
}

func TestBuildTikTokRequestPhotos(t *testing.T) {
	content := &Content{Text: "carousel", Media: &Media{Type: MediaImage, URLs: []string{"https://cdn/1.jpg", "https://cdn/2.jpg"}}}
	req := BuildTikTokRequest(content, &models.TikTokSettings{PrivacyLevel: "PUBLIC_TO_EVERYONE", AutoAddMusic: true, VideoCoverTimestampMs: 1000})

	assert.Equal(t, "DIRECT_POST", req.PostMode)
	assert.Equal(t, "PHOTO", req.MediaType)
	assert.Equal(t, []string{"https://cdn/1.jpg", "https://cdn/2.jpg"}, req.SourceInfo.PhotoImages)
	assert.Equal(t, "PUBLIC_TO_EVERYONE", req.PostInfo.PrivacyLevel)
	assert.True(t, req.PostInfo.AutoAddMusic)
	assert.Zero(t, req.PostInfo.VideoCoverTimestampMs)
}

func TestTikTokHistoryCursor(t *testing.T) {
	tt := newTikTokServer(t, map[string]http.HandlerFunc{
		"/v2/video/list/": func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Query().Get("fields"), "share_url")
			var req map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &req))
			assert.EqualValues(t, 20, req["max_count"])
			assert.EqualValues(t, 1700000000000, req["cursor"])
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"videos":   []map[string]any{{"id": "v1", "create_time": 1700000000, "title": "t", "share_url": "https://tiktok.com/@a/video/v1"}},
					"cursor":   1690000000000,
					"has_more": true,
				},
				"error": map[string]any{"code": "ok"},
			})
		},
	})

	page, err := tt.GetPostHistory(context.Background(), &Page{AccessToken: "t"}, 50, "1700000000000")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "t", page.Items[0].Text)
	assert.Equal(t, "1690000000000", page.NextCursor)
}

func TestTikTokUnauthorizedIsAuthError(t *testing.T) {
	tt := newTikTokServer(t, map[string]http.HandlerFunc{
		"/v2/video/list/": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{"error": map[string]any{"code": "access_token_invalid"}})
		},
	})

	_, err := tt.GetPostHistory(context.Background(), &Page{AccessToken: "expired"}, 10, "")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}
