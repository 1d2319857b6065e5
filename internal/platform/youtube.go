package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubeMaxHistory  = 50
	youtubeCategory    = "22"
	youtubeDefaultPriv = "public"
)

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/youtube.force-ssl",
}

// YouTube uploads videos to the channels of a Google account.
type YouTube struct {
	oauth    *googleOAuth
	endpoint string
}

func NewYouTube(cfg config.OAuthClient, opts ...Option) *YouTube {
	o := newOptions(opts)
	y := &YouTube{oauth: newGoogleOAuth(models.YouTube, cfg, youtubeScopes, o)}
	if o.baseURL != "" {
		y.endpoint = o.baseURL + "/youtube/v3/"
	}
	return y
}

func (y *YouTube) Platform() models.Platform { return models.YouTube }

func (y *YouTube) Features() Features {
	return Features{
		MaxTextLength:  5000,
		MaxTitleLength: 100,
		MaxMedia:       1,
		MediaTypes:     []MediaType{MediaVideo},
		RequiresMedia:  true,
		Deletion:       true,
	}
}

func (y *YouTube) AuthURL(state string) string { return y.oauth.authURL(state) }

func (y *YouTube) service(ctx context.Context, token string) (*youtube.Service, error) {
	if err := y.oauth.api.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(y.oauth.client(ctx, token))}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}
	return svc, nil
}

func (y *YouTube) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	acc, err := y.oauth.exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	acc.Metadata = models.Metadata{Kind: models.YouTube, YouTube: &models.YouTubeMetadata{}}
	return acc, nil
}

func (y *YouTube) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	svc, err := y.service(ctx, acc.AccessToken)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Channels.List([]string{"snippet", "contentDetails"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, y.oauth.apiErr(err)
	}

	pages := make([]*Page, 0, len(resp.Items))
	for _, ch := range resp.Items {
		meta := &models.YouTubeMetadata{}
		name := ch.Id
		if ch.Snippet != nil {
			name = ch.Snippet.Title
			meta.CustomURL = ch.Snippet.CustomUrl
		}
		if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
			meta.UploadsPlaylistID = ch.ContentDetails.RelatedPlaylists.Uploads
		}
		pages = append(pages, &Page{
			ExternalID: ch.Id,
			Name:       name,
			EntityType: models.EntityChannel,
			Metadata:   models.Metadata{Kind: models.YouTube, YouTube: meta},
		})
	}
	return pages, nil
}

func (y *YouTube) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	return y.oauth.refresh(ctx, acc)
}

func (y *YouTube) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	if content.Media == nil || content.Media.Type != MediaVideo || len(content.Media.URLs) == 0 {
		return nil, apperr.Validation("media", "youtube requires a video")
	}

	title, privacy, category := content.Title, youtubeDefaultPriv, youtubeCategory
	if s := opts.YouTube; s != nil {
		if s.Title != "" {
			title = s.Title
		}
		if s.PrivacyStatus != "" {
			privacy = s.PrivacyStatus
		}
		if s.CategoryID != "" {
			category = s.CategoryID
		}
	}
	if title == "" {
		title = truncateRunes(content.Text, 100)
	}

	svc, err := y.service(ctx, page.AccessToken)
	if err != nil {
		return nil, err
	}

	file, err := y.download(ctx, content.Media.URLs[0])
	if err != nil {
		return nil, err
	}
	defer os.Remove(file.Name())
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: content.Text,
			CategoryId:  category,
			ChannelId:   page.ExternalID,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx).Do()
	if err != nil {
		return nil, y.oauth.apiErr(err)
	}

	return &PublishResult{
		ExternalID:  uploaded.Id,
		URL:         "https://youtu.be/" + uploaded.Id,
		PublishedAt: y.oauth.now(),
	}, nil
}

// download stores the video in a temporary file so the upload can be resumed
// from disk.
func (y *YouTube) download(ctx context.Context, mediaURL string) (*os.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := y.oauth.api.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Validation("media", "video url returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("error creating temporary file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("error saving video to temporary file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

func (y *YouTube) DisconnectAccount(ctx context.Context, acc *Account) error {
	token := acc.RefreshToken
	if token == "" {
		token = acc.AccessToken
	}
	return y.oauth.revoke(ctx, token)
}

func (y *YouTube) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	svc, err := y.service(ctx, page.AccessToken)
	if err != nil {
		return nil, err
	}

	playlist := ""
	if page.Metadata.YouTube != nil {
		playlist = page.Metadata.YouTube.UploadsPlaylistID
	}
	if playlist == "" {
		ch, err := svc.Channels.List([]string{"contentDetails"}).Id(page.ExternalID).Context(ctx).Do()
		if err != nil {
			return nil, y.oauth.apiErr(err)
		}
		if len(ch.Items) == 0 || ch.Items[0].ContentDetails == nil {
			return nil, apperr.NotFound("channel", page.ExternalID)
		}
		playlist = ch.Items[0].ContentDetails.RelatedPlaylists.Uploads
	}

	call := svc.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlist).
		MaxResults(int64(clampLimit(limit, youtubeMaxHistory)))
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, y.oauth.apiErr(err)
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(resp.Items)), NextCursor: resp.NextPageToken}
	for _, it := range resp.Items {
		if it.Snippet == nil || it.Snippet.ResourceId == nil {
			continue
		}
		id := it.Snippet.ResourceId.VideoId
		item := HistoryItem{
			ExternalID: id,
			Text:       it.Snippet.Title,
			URL:        "https://youtu.be/" + id,
		}
		if t, err := time.Parse(time.RFC3339, it.Snippet.PublishedAt); err == nil {
			item.PublishedAt = t.UTC()
		}
		if it.Snippet.Thumbnails != nil && it.Snippet.Thumbnails.High != nil {
			item.MediaURLs = []string{it.Snippet.Thumbnails.High.Url}
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (y *YouTube) DeletePost(ctx context.Context, page *Page, externalID string) error {
	svc, err := y.service(ctx, page.AccessToken)
	if err != nil {
		return err
	}
	if err := svc.Videos.Delete(externalID).Context(ctx).Do(); err != nil {
		return y.oauth.apiErr(err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
