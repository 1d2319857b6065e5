package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListScheduledByBoard(ctx context.Context, boardID int64) ([]*models.Post, error)
	UpdateSchedule(ctx context.Context, id int64, publishDate time.Time, status models.PostStatus) error
	UpdateStatus(ctx context.Context, id int64, status models.PostStatus) error
	UpdateBlocks(ctx context.Context, id int64, blocks models.Blocks, status models.PostStatus) error
	SetPlatformPostID(ctx context.Context, id int64, key, externalID string, publishedAt time.Time) error
	FinishPublish(ctx context.Context, id int64, status models.PostStatus, lastError string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, workspace_id, board_id, caption, platforms, page_ids, blocks, settings, status,
	publish_date, platform_post_ids, last_publish_error, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	var lastErr sql.NullString
	err := row.Scan(&post.ID, &post.WorkspaceID, &post.BoardID, &post.Caption, &post.Platforms, &post.PageIDs,
		&post.Blocks, &post.Settings, &post.Status, &post.PublishDate, &post.PlatformPostIDs, &lastErr,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.LastPublishError = lastErr.String
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (workspace_id, board_id, caption, platforms, page_ids, blocks, settings, status, publish_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	args := []any{post.WorkspaceID, post.BoardID, post.Caption, post.Platforms, post.PageIDs,
		post.Blocks, post.Settings, post.Status, post.PublishDate}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

// ListScheduledByBoard returns the posts holding a slot on the board.
func (r *postRepository) ListScheduledByBoard(ctx context.Context, boardID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE board_id = $1 AND status = $2 AND publish_date IS NOT NULL
		ORDER BY publish_date`

	rows, err := r.db.QueryContext(ctx, query, boardID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UpdateSchedule(ctx context.Context, id int64, publishDate time.Time, status models.PostStatus) error {
	query := `
		UPDATE posts
		SET publish_date = $2,
			status = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, publishDate, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id int64, status models.PostStatus) error {
	query := `
		UPDATE posts
		SET status = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateBlocks(ctx context.Context, id int64, blocks models.Blocks, status models.PostStatus) error {
	query := `
		UPDATE posts
		SET blocks = $2,
			status = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, blocks, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// SetPlatformPostID merges one key into platform_post_ids so concurrent
// targets of the same post never overwrite each other.
func (r *postRepository) SetPlatformPostID(ctx context.Context, id int64, key, externalID string, publishedAt time.Time) error {
	query := `
		UPDATE posts
		SET platform_post_ids = COALESCE(platform_post_ids, '{}'::jsonb) || jsonb_build_object($2::text, $3::text),
			publish_date = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, key, externalID, publishedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) FinishPublish(ctx context.Context, id int64, status models.PostStatus, lastError string) error {
	query := `
		UPDATE posts
		SET status = $2,
			last_publish_error = NULLIF($3, ''),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, status, lastError)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
