package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	UpdatePostStatus(ctx context.Context, status string, postID int64) error
	MarkPublished(ctx context.Context, postID int64, platformPostID string, platformData []byte, retryCount int) error
	MarkFailed(ctx context.Context, postID int64, lastError string, retryCount int) error
	ListReadyForPublishing(ctx context.Context, cutoff time.Time, limit int) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, platform, post_type, caption, title, text, scheduled_time, timezone, recurrence, status, platform_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Platform, post.PostType, post.Caption,
			post.Title, post.Text, post.ScheduledTime, post.Timezone, post.Recurrence, post.Status, post.PlatformData).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Platform, post.PostType, post.Caption,
			post.Title, post.Text, post.ScheduledTime, post.Timezone, post.Recurrence, post.Status, post.PlatformData).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		SELECT id, user_id, platform, post_type, caption, title, text, scheduled_time, timezone,
			recurrence, status, published_at, platform_post_id, platform_data, last_error, retry_count,
			created_at, updated_at
		FROM posts WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var post models.Post
	var publishedAt sql.NullTime
	err := row.Scan(&post.ID, &post.UserID, &post.Platform, &post.PostType, &post.Caption, &post.Title,
		&post.Text, &post.ScheduledTime, &post.Timezone, &post.Recurrence, &post.Status, &publishedAt,
		&post.PlatformPostID, &post.PlatformData, &post.LastError, &post.RetryCount,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	post.PublishedAt = publishedAt.Time

	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `
		SELECT id, user_id, platform, post_type, caption, title, text, scheduled_time, timezone,
			recurrence, status, published_at, platform_post_id, platform_data, last_error, retry_count,
			created_at, updated_at
		FROM posts WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		var publishedAt sql.NullTime
		err := rows.Scan(&post.ID, &post.UserID, &post.Platform, &post.PostType, &post.Caption, &post.Title,
			&post.Text, &post.ScheduledTime, &post.Timezone, &post.Recurrence, &post.Status, &publishedAt,
			&post.PlatformPostID, &post.PlatformData, &post.LastError, &post.RetryCount,
			&post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		post.PublishedAt = publishedAt.Time
		posts = append(posts, &post)
	}
	return posts, nil
}

func (r *postRepository) ListReadyForPublishing(ctx context.Context, cutoff time.Time, limit int) ([]*models.Post, error) {
	query := `
		SELECT id, user_id, platform, post_type, caption, title, text, scheduled_time, timezone,
			recurrence, status, published_at, platform_post_id, platform_data, last_error, retry_count,
			created_at, updated_at
		FROM posts
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, cutoff, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		var publishedAt sql.NullTime
		err := rows.Scan(&post.ID, &post.UserID, &post.Platform, &post.PostType, &post.Caption, &post.Title,
			&post.Text, &post.ScheduledTime, &post.Timezone, &post.Recurrence, &post.Status, &publishedAt,
			&post.PlatformPostID, &post.PlatformData, &post.LastError, &post.RetryCount,
			&post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		post.PublishedAt = publishedAt.Time
		posts = append(posts, &post)
	}
	return posts, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkPublished(ctx context.Context, postID int64, platformPostID string, platformData []byte, retryCount int) error {
	query := `
		UPDATE posts
		SET status = $2,
			published_at = $3,
			platform_post_id = $4,
			platform_data = $5,
			retry_count = $6,
			last_error = '',
			updated_at = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, postID, models.PostStatusPublished, time.Now(), platformPostID, platformData, retryCount)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, postID int64, lastError string, retryCount int) error {
	query := `
		UPDATE posts
		SET status = $2,
			last_error = $3,
			retry_count = $4,
			updated_at = $5
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, postID, models.PostStatusFailed, lastError, retryCount, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
