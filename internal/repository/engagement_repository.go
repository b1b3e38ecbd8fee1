package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

type EngagementRepository interface {
	Create(ctx context.Context, es *models.EngagementSnapshot) (int64, error)
	GetLatestByAccountID(ctx context.Context, accountID int64) (*models.EngagementSnapshot, error)
	ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.EngagementSnapshot, error)
}

type engagementRepository struct {
	db *sql.DB
}

func NewEngagementRepository(db *sql.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) Create(ctx context.Context, es *models.EngagementSnapshot) (int64, error) {
	query := `
		INSERT INTO engagement_snapshots (user_id, account_id, platform, followers, posts_analyzed, avg_likes, avg_comments, avg_shares, engagement_rate, trend)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		es.UserID,
		es.AccountID,
		es.Platform,
		es.Followers,
		es.PostsAnalyzed,
		es.AvgLikes,
		es.AvgComments,
		es.AvgShares,
		es.EngagementRate,
		es.Trend,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *engagementRepository) GetLatestByAccountID(ctx context.Context, accountID int64) (*models.EngagementSnapshot, error) {
	query := `
		SELECT id, user_id, account_id, platform, followers, posts_analyzed, avg_likes, avg_comments, avg_shares, engagement_rate, trend, collected_at
		FROM engagement_snapshots
		WHERE account_id = $1
		ORDER BY collected_at DESC
		LIMIT 1
	`

	var es models.EngagementSnapshot
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&es.ID,
		&es.UserID,
		&es.AccountID,
		&es.Platform,
		&es.Followers,
		&es.PostsAnalyzed,
		&es.AvgLikes,
		&es.AvgComments,
		&es.AvgShares,
		&es.EngagementRate,
		&es.Trend,
		&es.CollectedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &es, nil
}

func (r *engagementRepository) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.EngagementSnapshot, error) {
	query := `
		SELECT id, user_id, account_id, platform, followers, posts_analyzed, avg_likes, avg_comments, avg_shares, engagement_rate, trend, collected_at
		FROM engagement_snapshots
		WHERE account_id = $1
		ORDER BY collected_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.EngagementSnapshot
	for rows.Next() {
		var es models.EngagementSnapshot
		err := rows.Scan(
			&es.ID,
			&es.UserID,
			&es.AccountID,
			&es.Platform,
			&es.Followers,
			&es.PostsAnalyzed,
			&es.AvgLikes,
			&es.AvgComments,
			&es.AvgShares,
			&es.EngagementRate,
			&es.Trend,
			&es.CollectedAt,
		)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, &es)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return snapshots, nil
}
