package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/pkg/utils"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func testCipher() *utils.Cipher {
	c, err := utils.NewCipher("unit-test-data-key")
	if err != nil {
		panic(err)
	}
	return c
}

func seal(c *utils.Cipher, s string) string {
	v, err := c.Encrypt(s)
	if err != nil {
		panic(err)
	}
	return v
}

type mockAccountRepo struct{ mock.Mock }

func (m *mockAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	args := m.Called(ctx, tx, sa)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	args := m.Called(ctx, id)
	sa, _ := args.Get(0).(*models.SocialAccount)
	return sa, args.Error(1)
}

func (m *mockAccountRepo) GetByExternalID(ctx context.Context, workspaceID int64, p models.Platform, externalID string) (*models.SocialAccount, error) {
	args := m.Called(ctx, workspaceID, p, externalID)
	sa, _ := args.Get(0).(*models.SocialAccount)
	return sa, args.Error(1)
}

func (m *mockAccountRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	args := m.Called(ctx, workspaceID)
	list, _ := args.Get(0).([]*models.SocialAccount)
	return list, args.Error(1)
}

func (m *mockAccountRepo) UpdateTokens(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) error {
	return m.Called(ctx, tx, sa).Error(0)
}

func (m *mockAccountRepo) SetStatus(ctx context.Context, id int64, status models.ConnectionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockAccountRepo) Remove(ctx context.Context, tx *sql.Tx, id int64) error {
	return m.Called(ctx, tx, id).Error(0)
}

type mockPageRepo struct{ mock.Mock }

func (m *mockPageRepo) Upsert(ctx context.Context, tx *sql.Tx, pages []*models.SocialPage) ([]int64, error) {
	args := m.Called(ctx, tx, pages)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *mockPageRepo) GetByID(ctx context.Context, id int64) (*models.SocialPage, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.SocialPage)
	return p, args.Error(1)
}

func (m *mockPageRepo) ListByAccount(ctx context.Context, accountID int64) ([]*models.SocialPage, error) {
	args := m.Called(ctx, accountID)
	list, _ := args.Get(0).([]*models.SocialPage)
	return list, args.Error(1)
}

func (m *mockPageRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialPage, error) {
	args := m.Called(ctx, workspaceID)
	list, _ := args.Get(0).([]*models.SocialPage)
	return list, args.Error(1)
}

func (m *mockPageRepo) ListByIDs(ctx context.Context, ids []int64) ([]*models.SocialPage, error) {
	args := m.Called(ctx, ids)
	list, _ := args.Get(0).([]*models.SocialPage)
	return list, args.Error(1)
}

func (m *mockPageRepo) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialPage, error) {
	args := m.Called(ctx, before)
	list, _ := args.Get(0).([]*models.SocialPage)
	return list, args.Error(1)
}

func (m *mockPageRepo) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *mockPageRepo) UpdateToken(ctx context.Context, id int64, token string, expiresAt *time.Time) error {
	return m.Called(ctx, id, token, expiresAt).Error(0)
}

func (m *mockPageRepo) UpdateTokensByAccount(ctx context.Context, tx *sql.Tx, accountID int64, token string, expiresAt *time.Time) error {
	return m.Called(ctx, tx, accountID, token, expiresAt).Error(0)
}

func (m *mockPageRepo) SetStatus(ctx context.Context, id int64, status models.ConnectionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockPageRepo) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockPostRepo struct{ mock.Mock }

func (m *mockPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	args := m.Called(ctx, tx, post)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepo) ListScheduledByBoard(ctx context.Context, boardID int64) ([]*models.Post, error) {
	args := m.Called(ctx, boardID)
	list, _ := args.Get(0).([]*models.Post)
	return list, args.Error(1)
}

func (m *mockPostRepo) UpdateSchedule(ctx context.Context, id int64, publishDate time.Time, status models.PostStatus) error {
	return m.Called(ctx, id, publishDate, status).Error(0)
}

func (m *mockPostRepo) UpdateStatus(ctx context.Context, id int64, status models.PostStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockPostRepo) UpdateBlocks(ctx context.Context, id int64, blocks models.Blocks, status models.PostStatus) error {
	return m.Called(ctx, id, blocks, status).Error(0)
}

func (m *mockPostRepo) SetPlatformPostID(ctx context.Context, id int64, key, externalID string, publishedAt time.Time) error {
	return m.Called(ctx, id, key, externalID, publishedAt).Error(0)
}

func (m *mockPostRepo) FinishPublish(ctx context.Context, id int64, status models.PostStatus, lastError string) error {
	return m.Called(ctx, id, status, lastError).Error(0)
}

type mockHistoryRepo struct{ mock.Mock }

func (m *mockHistoryRepo) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	args := m.Called(ctx, ph)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockHistoryRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	args := m.Called(ctx, postID)
	list, _ := args.Get(0).([]*models.PostingHistory)
	return list, args.Error(1)
}

type mockScheduler struct{ mock.Mock }

func (m *mockScheduler) SchedulePublish(ctx context.Context, postID int64, at time.Time) error {
	return m.Called(ctx, postID, at).Error(0)
}

func (m *mockScheduler) CancelPublish(ctx context.Context, postID int64, at time.Time) error {
	return m.Called(ctx, postID, at).Error(0)
}

type mockLease struct{ mock.Mock }

func (m *mockLease) Acquire(ctx context.Context, p string, accountID int64) (bool, func(), error) {
	args := m.Called(ctx, p, accountID)
	release, _ := args.Get(1).(func())
	if release == nil {
		release = func() {}
	}
	return args.Bool(0), release, args.Error(2)
}

type mockMediaStore struct{ mock.Mock }

func (m *mockMediaStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

// fakeOps is a scriptable adapter; tests set the hooks they exercise.
type fakeOps struct {
	platform models.Platform
	features platform.Features

	mu        sync.Mutex
	published []string

	connect   func(code string) (*platform.Account, error)
	listPages func(acc *platform.Account) ([]*platform.Page, error)
	refresh   func(acc *platform.Account) (*platform.Account, error)
	publish   func(page *platform.Page, content *platform.Content) (*platform.PublishResult, error)
	history   func(page *platform.Page, limit int, cursor string) (*platform.HistoryPage, error)
	revoked   int
}

func (f *fakeOps) Platform() models.Platform   { return f.platform }
func (f *fakeOps) Features() platform.Features { return f.features }

func (f *fakeOps) AuthURL(state string) string {
	return "https://provider.example.com/auth?state=" + state
}

func (f *fakeOps) publishedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.published...)
}

func (f *fakeOps) DisconnectAccount(ctx context.Context, acc *platform.Account) error {
	f.revoked++
	return nil
}

func (f *fakeOps) ConnectAccount(ctx context.Context, code string) (*platform.Account, error) {
	return f.connect(code)
}

func (f *fakeOps) ListPages(ctx context.Context, acc *platform.Account) ([]*platform.Page, error) {
	return f.listPages(acc)
}

func (f *fakeOps) RefreshToken(ctx context.Context, acc *platform.Account) (*platform.Account, error) {
	return f.refresh(acc)
}

func (f *fakeOps) PublishPost(ctx context.Context, page *platform.Page, content *platform.Content, opts models.PostSettings) (*platform.PublishResult, error) {
	f.mu.Lock()
	f.published = append(f.published, page.AccessToken)
	f.mu.Unlock()
	return f.publish(page, content)
}

func (f *fakeOps) GetPostHistory(ctx context.Context, page *platform.Page, limit int, cursor string) (*platform.HistoryPage, error) {
	return f.history(page, limit, cursor)
}

// fakePageOps also resolves page-scoped tokens.
type fakePageOps struct {
	*fakeOps
	pageToken string
}

func (f *fakePageOps) PageToken(ctx context.Context, acc *platform.Account, pageExternalID string) (string, *time.Time, error) {
	return f.pageToken, nil, nil
}
