package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

type AnalysisRepository interface {
	Create(ctx context.Context, ar *models.AnalysisResult) (string, error)
	GetByID(ctx context.Context, id string) (*models.AnalysisResult, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.AnalysisResult, error)
	Remove(ctx context.Context, id string) error
}

type analysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Create(ctx context.Context, ar *models.AnalysisResult) (string, error) {
	query := `
		INSERT INTO analysis_results (id, user_id, analysis_type, status, competitor_data, insights, benchmarks, used_fallback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		ar.ID,
		ar.UserID,
		ar.AnalysisType,
		ar.Status,
		ar.CompetitorData,
		ar.Insights,
		ar.Benchmarks,
		ar.UsedFallback,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *analysisRepository) GetByID(ctx context.Context, id string) (*models.AnalysisResult, error) {
	query := `
		SELECT id, user_id, analysis_type, status, competitor_data, insights, benchmarks, used_fallback, created_at
		FROM analysis_results
		WHERE id = $1
	`

	var ar models.AnalysisResult
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ar.ID,
		&ar.UserID,
		&ar.AnalysisType,
		&ar.Status,
		&ar.CompetitorData,
		&ar.Insights,
		&ar.Benchmarks,
		&ar.UsedFallback,
		&ar.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ar, nil
}

func (r *analysisRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.AnalysisResult, error) {
	query := `
		SELECT id, user_id, analysis_type, status, competitor_data, insights, benchmarks, used_fallback, created_at
		FROM analysis_results
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.AnalysisResult
	for rows.Next() {
		var ar models.AnalysisResult
		err := rows.Scan(
			&ar.ID,
			&ar.UserID,
			&ar.AnalysisType,
			&ar.Status,
			&ar.CompetitorData,
			&ar.Insights,
			&ar.Benchmarks,
			&ar.UsedFallback,
			&ar.CreatedAt,
		)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &ar)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return results, nil
}

func (r *analysisRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM analysis_results WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
