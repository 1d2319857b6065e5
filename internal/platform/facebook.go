package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/transfer"
)

var facebookScopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"pages_manage_posts",
	"business_management",
}

const facebookPageFields = "id,name,access_token,category,tasks"

// Facebook publishes to pages with page-scoped tokens obtained from the
// user's long-lived token.
type Facebook struct {
	login *graphLogin
	now   func() time.Time
}

func NewFacebook(cfg config.OAuthClient, opts ...Option) *Facebook {
	o := newOptions(opts)
	return &Facebook{login: newGraphLogin(models.Facebook, cfg, o), now: o.now}
}

func (f *Facebook) Platform() models.Platform { return models.Facebook }

func (f *Facebook) Features() Features {
	return Features{
		MaxTextLength: 63206,
		MaxMedia:      10,
		MediaTypes:    []MediaType{MediaImage, MediaVideo, MediaCarousel},
		Deletion:      true,
	}
}

func (f *Facebook) AuthURL(state string) string {
	return f.login.dialogURL(state, facebookScopes)
}

func (f *Facebook) ConnectAccount(ctx context.Context, code string) (*Account, error) {
	acc, err := f.login.exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	acc.Metadata = models.Metadata{Kind: models.Facebook}
	return acc, nil
}

func (f *Facebook) ListPages(ctx context.Context, acc *Account) ([]*Page, error) {
	list, err := f.login.pages(ctx, acc, facebookPageFields)
	if err != nil {
		return nil, err
	}

	pages := make([]*Page, 0, len(list))
	for _, p := range list {
		pages = append(pages, &Page{
			ExternalID:  p.ID,
			Name:        p.Name,
			EntityType:  models.EntityPage,
			AccessToken: p.AccessToken,
			Metadata: models.Metadata{
				Kind:     models.Facebook,
				Facebook: &models.FacebookMetadata{Category: p.Category, Tasks: p.Tasks},
			},
		})
	}
	return pages, nil
}

// RefreshToken re-exchanges the current long-lived token; Facebook issues no
// refresh tokens.
func (f *Facebook) RefreshToken(ctx context.Context, acc *Account) (*Account, error) {
	return f.login.extend(ctx, acc)
}

func (f *Facebook) PageToken(ctx context.Context, acc *Account, pageExternalID string) (string, *time.Time, error) {
	return pageTokenFrom(ctx, f.login, acc, pageExternalID, facebookPageFields, func(p transfer.FacebookPage) string { return p.ID })
}

func (f *Facebook) PublishPost(ctx context.Context, page *Page, content *Content, opts models.PostSettings) (*PublishResult, error) {
	var (
		res transfer.GraphID
		err error
	)
	base := f.login.base + "/" + page.ExternalID

	switch {
	case content.Media == nil || len(content.Media.URLs) == 0:
		form := url.Values{"message": {content.Text}, "access_token": {page.AccessToken}}
		if content.Link != "" {
			form.Set("link", content.Link)
		}
		_, err = f.login.api.send(ctx, request{method: http.MethodPost, url: base + "/feed", form: form}, &res)

	case content.Media.Type == MediaVideo:
		form := url.Values{
			"file_url":     {content.Media.URLs[0]},
			"description":  {content.Text},
			"access_token": {page.AccessToken},
		}
		if content.Title != "" {
			form.Set("title", content.Title)
		}
		_, err = f.login.api.send(ctx, request{method: http.MethodPost, url: base + "/videos", form: form}, &res)

	case len(content.Media.URLs) == 1:
		_, err = f.login.api.send(ctx, request{
			method: http.MethodPost,
			url:    base + "/photos",
			form: url.Values{
				"url":          {content.Media.URLs[0]},
				"message":      {content.Text},
				"access_token": {page.AccessToken},
			},
		}, &res)

	default:
		res, err = f.multiPhoto(ctx, base, page.AccessToken, content)
	}
	if err != nil {
		return nil, err
	}

	id := res.PostID
	if id == "" {
		id = res.ID
	}
	return &PublishResult{
		ExternalID:  id,
		URL:         "https://www.facebook.com/" + id,
		PublishedAt: f.now(),
	}, nil
}

// multiPhoto uploads unpublished photos and attaches them to one feed post.
func (f *Facebook) multiPhoto(ctx context.Context, base, token string, content *Content) (transfer.GraphID, error) {
	form := url.Values{"message": {content.Text}, "access_token": {token}}
	for i, u := range content.Media.URLs {
		var photo transfer.GraphID
		if _, err := f.login.api.send(ctx, request{
			method: http.MethodPost,
			url:    base + "/photos",
			form:   url.Values{"url": {u}, "published": {"false"}, "access_token": {token}},
		}, &photo); err != nil {
			return transfer.GraphID{}, err
		}
		form.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, photo.ID))
	}

	var res transfer.GraphID
	_, err := f.login.api.send(ctx, request{method: http.MethodPost, url: base + "/feed", form: form}, &res)
	return res, err
}

func (f *Facebook) DisconnectAccount(ctx context.Context, acc *Account) error {
	return f.login.revoke(ctx, acc)
}

func (f *Facebook) GetPostHistory(ctx context.Context, page *Page, limit int, cursor string) (*HistoryPage, error) {
	q := url.Values{
		"fields":       {"id,message,created_time,permalink_url,full_picture"},
		"limit":        {strconv.Itoa(clampLimit(limit, graphMaxHistory))},
		"access_token": {page.AccessToken},
	}
	if cursor != "" {
		q.Set("after", cursor)
	}

	var list transfer.FacebookPostList
	if _, err := f.login.api.send(ctx, request{
		url:   f.login.base + "/" + page.ExternalID + "/published_posts",
		query: q,
	}, &list); err != nil {
		return nil, err
	}

	out := &HistoryPage{Items: make([]HistoryItem, 0, len(list.Data))}
	for _, p := range list.Data {
		item := HistoryItem{
			ExternalID:  p.ID,
			Text:        p.Message,
			URL:         p.PermalinkURL,
			PublishedAt: parseGraphTime(p.CreatedTime),
		}
		if p.FullPicture != "" {
			item.MediaURLs = []string{p.FullPicture}
		}
		out.Items = append(out.Items, item)
	}
	if list.Paging.Next != "" {
		out.NextCursor = list.Paging.Cursors.After
	}
	return out, nil
}

func (f *Facebook) DeletePost(ctx context.Context, page *Page, externalID string) error {
	_, err := f.login.api.send(ctx, request{
		method: http.MethodDelete,
		url:    f.login.base + "/" + externalID,
		query:  url.Values{"access_token": {page.AccessToken}},
	}, nil)
	return err
}

// pageTokenFrom re-lists the user's pages and returns the token of the one
// identified by key.
func pageTokenFrom(ctx context.Context, login *graphLogin, acc *Account, externalID, fields string, key func(transfer.FacebookPage) string) (string, *time.Time, error) {
	list, err := login.pages(ctx, acc, fields)
	if err != nil {
		return "", nil, err
	}
	for _, p := range list {
		if key(p) == externalID && p.AccessToken != "" {
			return p.AccessToken, nil, nil
		}
	}
	return "", nil, apperr.NotFound("page", externalID)
}
