package transfer

import (
	"time"

	"github.com/maheshrc27/socialflow/internal/platform"
)

type CollectionOptions struct {
	MaxPosts       int      `json:"max_posts"`
	TimePeriodDays int      `json:"time_period_days"`
	Platforms      []string `json:"platforms"`

	// FetchRealTimeData skips cached snapshots for this run.
	FetchRealTimeData bool `json:"fetch_real_time_data"`

	// Collection pacing. Not settable through the API.
	BatchSize  int           `json:"-"`
	BatchDelay time.Duration `json:"-"`
}

type CompetitorAnalysisRequest struct {
	CompetitorURLs []string          `json:"competitor_urls"`
	AnalysisType   string            `json:"analysis_type"`
	Options        CollectionOptions `json:"options"`
}

type CompetitorProfile struct {
	AccountID   string `json:"account_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	PictureURL  string `json:"picture_url,omitempty"`
	Followers   int64  `json:"followers"`
	Following   int64  `json:"following"`
	PostCount   int64  `json:"post_count"`
	Verified    bool   `json:"verified"`
	Private     bool   `json:"private"`
}

type CompetitorPost struct {
	ExternalID  string    `json:"external_id"`
	Type        string    `json:"type"`
	Text        string    `json:"text"`
	Hashtags    []string  `json:"hashtags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url,omitempty"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	Shares      int64     `json:"shares"`
	Views       int64     `json:"views"`
}

type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type ContentPatterns struct {
	TypeHistogram   map[string]int `json:"type_histogram"`
	TopHashtags     []HashtagCount `json:"top_hashtags"`
	TopPostingHours []HourCount    `json:"top_posting_hours"`
	TopPostingDays  []DayCount     `json:"top_posting_days"`
}

type EngagementSummary struct {
	AvgLikes       float64 `json:"avg_likes"`
	AvgComments    float64 `json:"avg_comments"`
	AvgShares      float64 `json:"avg_shares"`
	AvgTotal       float64 `json:"avg_total"`
	EngagementRate float64 `json:"engagement_rate"`
	Trend          string  `json:"trend"`
	PostsAnalyzed  int     `json:"posts_analyzed"`
}

type DataQuality struct {
	Score int    `json:"score"`
	Level string `json:"level"`
}

type CompetitorSnapshot struct {
	URL             string             `json:"url"`
	Platform        string             `json:"platform"`
	Handle          string             `json:"handle"`
	Profile         *CompetitorProfile `json:"profile"`
	Posts           []*CompetitorPost  `json:"posts"`
	ContentPatterns *ContentPatterns   `json:"content_patterns"`
	Engagement      *EngagementSummary `json:"engagement"`
	DataQuality     *DataQuality       `json:"data_quality"`
	Warnings        []string           `json:"warnings,omitempty"`
	FromCache       bool               `json:"from_cache,omitempty"`
	CollectedAt     time.Time          `json:"collected_at"`
}

type CompetitorFailure struct {
	URL       string `json:"url"`
	Platform  string `json:"platform,omitempty"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

type CompetitorCollection struct {
	Competitors []*CompetitorSnapshot `json:"competitors"`
	Failures    []*CompetitorFailure  `json:"failures,omitempty"`
	CollectedAt time.Time             `json:"collected_at"`
}

type Benchmarks struct {
	Competitors        int     `json:"competitors"`
	PostsAnalyzed      int     `json:"posts_analyzed"`
	AvgFollowers       float64 `json:"avg_followers"`
	AvgEngagementRate  float64 `json:"avg_engagement_rate"`
	BestEngagementRate float64 `json:"best_engagement_rate"`
	DominantType       string  `json:"dominant_content_type"`
}

type AIAnalysisPayload struct {
	AnalysisType string                `json:"analysis_type"`
	Competitors  []*CompetitorSnapshot `json:"competitors"`
	Benchmarks   *Benchmarks           `json:"benchmarks"`
}

type AIInsights struct {
	MarketInsights  []string       `json:"market_insights"`
	Recommendations []string       `json:"recommendations"`
	ContentIdeas    []string       `json:"content_ideas,omitempty"`
	Raw             map[string]any `json:"raw,omitempty"`
}

type AccountEngagement struct {
	AccountID   int64                      `json:"account_id"`
	Platform    string                     `json:"platform"`
	Username    string                     `json:"username"`
	Followers   int64                      `json:"followers"`
	Summary     *EngagementSummary         `json:"summary"`
	RecentPosts []*CompetitorPost          `json:"recent_posts"`
	Metrics     platform.EngagementMetrics `json:"totals"`
	CollectedAt time.Time                  `json:"collected_at"`
}
