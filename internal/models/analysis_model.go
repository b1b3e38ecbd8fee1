package models

import (
	"encoding/json"
	"time"
)

type AnalysisResult struct {
	ID             string          `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	AnalysisType   string          `db:"analysis_type" json:"analysis_type"`
	Status         string          `db:"status" json:"status"` // completed, completed_basic, failed
	CompetitorData json.RawMessage `db:"competitor_data" json:"competitor_data"`
	Insights       json.RawMessage `db:"insights" json:"insights"`
	Benchmarks     json.RawMessage `db:"benchmarks" json:"benchmarks"`
	UsedFallback   bool            `db:"used_fallback" json:"used_fallback"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

const (
	AnalysisStatusCompleted      = "completed"
	AnalysisStatusCompletedBasic = "completed_basic"
	AnalysisStatusFailed         = "failed"
)

type EngagementSnapshot struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Platform       string    `db:"platform" json:"platform"`
	Followers      int64     `db:"followers" json:"followers"`
	PostsAnalyzed  int       `db:"posts_analyzed" json:"posts_analyzed"`
	AvgLikes       float64   `db:"avg_likes" json:"avg_likes"`
	AvgComments    float64   `db:"avg_comments" json:"avg_comments"`
	AvgShares      float64   `db:"avg_shares" json:"avg_shares"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	Trend          string    `db:"trend" json:"trend"`
	CollectedAt    time.Time `db:"collected_at" json:"collected_at"`
}
