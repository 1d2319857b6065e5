package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createdAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	accountCols = []string{"id", "workspace_id", "platform", "account_id", "name", "auth_token", "refresh_token",
		"access_token_expires_at", "refresh_token_expires_at", "token_issued_at", "connected", "status", "metadata",
		"created_at", "updated_at"}
	pageCols = []string{"id", "account_id", "workspace_id", "platform", "page_id", "name", "auth_token",
		"auth_token_expires_at", "connected", "status", "entity_type", "metadata", "created_at", "updated_at"}
	postCols = []string{"id", "workspace_id", "board_id", "caption", "platforms", "page_ids", "blocks", "settings",
		"status", "publish_date", "platform_post_ids", "last_publish_error", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestSocialAccountCreateInTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO social_accounts")).
		WithArgs(int64(3), models.TikTok, "open-1", "Ana", "enc.v1:a", "enc.v1:r",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, models.StatusActive, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	id, err := repo.Create(context.Background(), tx, &models.SocialAccount{
		WorkspaceID:  3,
		Platform:     models.TikTok,
		AccountID:    "open-1",
		Name:         "Ana",
		AuthToken:    "enc.v1:a",
		RefreshToken: "enc.v1:r",
		Connected:    true,
		Status:       models.StatusActive,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(11), id)
}

func TestSocialAccountGetByExternalID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialAccountRepository(db)

	expires := createdAt.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM social_accounts")).
		WithArgs(int64(3), models.Instagram, "178").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(
			5, 3, "instagram", "178", "studio", "enc.v1:a", "", expires, nil, createdAt, true, "active",
			[]byte(`{"kind":"instagram","instagram":{"username":"studio","method":"facebook"}}`), createdAt, createdAt))

	sa, err := repo.GetByExternalID(context.Background(), 3, models.Instagram, "178")
	require.NoError(t, err)
	require.NotNil(t, sa)
	assert.Equal(t, int64(5), sa.ID)
	assert.Equal(t, models.Instagram, sa.Platform)
	assert.Equal(t, expires, *sa.AccessTokenExpiresAt)
	assert.Nil(t, sa.RefreshTokenExpiresAt)
	assert.Equal(t, models.MethodFacebook, sa.Metadata.Method())
}

func TestSocialAccountGetByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM social_accounts WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	sa, err := repo.GetByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, sa)
}

func TestSocialAccountUpdateTokensAndRemove(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE social_accounts")).
		WithArgs(int64(5), "studio", "enc.v1:new", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			models.StatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM social_accounts WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.UpdateTokens(context.Background(), nil, &models.SocialAccount{ID: 5, Name: "studio", AuthToken: "enc.v1:new"}))
	assert.EqualError(t, repo.Remove(context.Background(), nil, 5), "connection reset")
}

func TestSocialPageUpsertAssignsIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialPageRepository(db)

	pages := []*models.SocialPage{
		{AccountID: 5, WorkspaceID: 3, Platform: models.Facebook, PageID: "p1", Name: "One", Status: models.StatusActive, EntityType: models.EntityPage},
		{AccountID: 5, WorkspaceID: 3, Platform: models.Facebook, PageID: "p2", Name: "Two", Status: models.StatusActive, EntityType: models.EntityPage},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (account_id, page_id) DO UPDATE")).
		WithArgs(int64(5), int64(3), models.Facebook, "p1", "One", "", nil, false, models.StatusActive, models.EntityPage, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO social_pages")).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.Upsert(context.Background(), tx, pages)
	assert.EqualError(t, err, "duplicate key")
	require.NoError(t, tx.Rollback())
	assert.Equal(t, int64(21), pages[0].ID)
}

func TestSocialPageListByIDsAndExpiring(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialPageRepository(db)

	expired := createdAt.Add(-time.Minute)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(pageCols).AddRow(
			21, 5, 3, "facebook", "p1", "One", "enc.v1:x", expired, true, "active", "page",
			[]byte(`{"kind":"facebook","facebook":{"category":"Shop"}}`), createdAt, createdAt)
	}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).WillReturnRows(rows())
	mock.ExpectQuery(regexp.QuoteMeta("auth_token_expires_at < $1")).WithArgs(createdAt).WillReturnRows(rows())

	pages, err := repo.ListByIDs(context.Background(), []int64{21})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Shop", pages[0].Metadata.Facebook.Category)
	assert.True(t, pages[0].TokenExpired(createdAt))

	pages, err = repo.ListExpiring(context.Background(), createdAt)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	none, err := repo.ListByIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestSocialPageCountAndTokens(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSocialPageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM social_pages WHERE account_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("WHERE account_id = $1")).
		WithArgs(int64(5), "enc.v1:t", nil, models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(21), "enc.v1:p", sqlmock.AnyArg(), models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := repo.CountByAccount(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.UpdateTokensByAccount(context.Background(), nil, 5, "enc.v1:t", nil))
	exp := createdAt
	require.NoError(t, repo.UpdateToken(context.Background(), 21, "enc.v1:p", &exp))
}

func TestPostGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)

	publish := createdAt.Add(24 * time.Hour)
	blocks := `[{"id":"b1","kind":"image","currentVersionId":"v1","versions":[{"id":"v1","createdAt":"2025-03-01T12:00:00Z","by":"u1","file":{"kind":"image","url":"https://cdn/1.jpg"}}]}]`
	mock.ExpectQuery(regexp.QuoteMeta("FROM posts WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(
			7, 3, 1,
			[]byte(`{"synced":false,"default":"hi","perPlatform":{"tiktok":"hey tiktok"}}`),
			"{instagram,tiktok}", "{21,22}", []byte(blocks), []byte(`{}`),
			"Scheduled", publish, []byte(`{"instagram_21":"1789"}`), nil, createdAt, createdAt))

	post, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, models.PlatformSet{models.Instagram, models.TikTok}, post.Platforms)
	assert.Equal(t, []int64{21, 22}, []int64(post.PageIDs))
	assert.Equal(t, "hey tiktok", post.Caption.For(models.TikTok))
	assert.Equal(t, "hi", post.Caption.For(models.Instagram))
	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, "1789", post.PlatformPostIDs["instagram_21"])
	assert.Empty(t, post.LastPublishError)
	require.Len(t, post.Blocks, 1)
	assert.Equal(t, "https://cdn/1.jpg", post.Blocks[0].CurrentVersion().File.URL)
}

func TestPostScheduleAndPublishUpdates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	slot := createdAt.Add(2 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE board_id = $1 AND status = $2")).
		WithArgs(int64(1), models.PostStatusScheduled).
		WillReturnRows(sqlmock.NewRows(postCols))
	mock.ExpectExec(regexp.QuoteMeta("SET publish_date = $2")).
		WithArgs(int64(7), slot, models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("jsonb_build_object($2::text, $3::text)")).
		WithArgs(int64(7), "tiktok_22", "v_pub~1", slot).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("last_publish_error = NULLIF($3, '')")).
		WithArgs(int64(7), models.PostStatusPublished, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	siblings, err := repo.ListScheduledByBoard(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, siblings)

	require.NoError(t, repo.UpdateSchedule(ctx, 7, slot, models.PostStatusScheduled))
	require.NoError(t, repo.SetPlatformPostID(ctx, 7, models.PlatformPostKey(models.TikTok, 22), "v_pub~1", slot))
	require.NoError(t, repo.FinishPublish(ctx, 7, models.PostStatusPublished, ""))
}

func TestPostingHistory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingHistoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posting_history")).
		WithArgs(int64(7), int64(22), models.TikTok, "", "tiktok: spam_risk").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM posting_history")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "page_id", "platform", "external_post_id", "error_message", "created_at"}).
			AddRow(1, 7, 22, "tiktok", "", "tiktok: spam_risk", createdAt).
			AddRow(2, 7, 21, "instagram", "1789", "", createdAt))

	id, err := repo.Create(context.Background(), &models.PostingHistory{PostID: 7, PageID: 22, Platform: models.TikTok, ErrorMessage: "tiktok: spam_risk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	history, err := repo.ListByPostID(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Succeeded())
	assert.True(t, history[1].Succeeded())
}
