package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

func datedPost(day int, likes, comments, shares int64) *transfer.CompetitorPost {
	return &transfer.CompetitorPost{
		Type:        "image",
		PublishedAt: time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC),
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
	}
}

func TestBuildEngagementSummaryAverages(t *testing.T) {
	posts := []*transfer.CompetitorPost{
		datedPost(1, 30, 5, 5),
		datedPost(2, 40, 5, 5),
		datedPost(3, 50, 5, 5),
	}

	summary := buildEngagementSummary(posts, 1000)
	assert.Equal(t, 40.0, summary.AvgLikes)
	assert.Equal(t, 5.0, summary.AvgComments)
	assert.Equal(t, 5.0, summary.AvgShares)
	assert.Equal(t, 50.0, summary.AvgTotal)
	assert.Equal(t, 5.0, summary.EngagementRate)
	assert.Equal(t, 3, summary.PostsAnalyzed)
}

func TestBuildEngagementSummaryZeroFollowers(t *testing.T) {
	posts := []*transfer.CompetitorPost{datedPost(1, 50, 0, 0)}

	summary := buildEngagementSummary(posts, 0)
	assert.Equal(t, 5000.0, summary.EngagementRate)
}

func TestBuildEngagementSummaryEmpty(t *testing.T) {
	summary := buildEngagementSummary(nil, 1000)
	assert.Equal(t, TrendInsufficientData, summary.Trend)
	assert.Equal(t, 0, summary.PostsAnalyzed)
	assert.Zero(t, summary.AvgTotal)
}

func TestEngagementTrendIncreasing(t *testing.T) {
	posts := []*transfer.CompetitorPost{
		datedPost(1, 10, 0, 0),
		datedPost(2, 10, 0, 0),
		datedPost(3, 10, 0, 0),
		datedPost(4, 30, 0, 0),
		datedPost(5, 30, 0, 0),
		datedPost(6, 30, 0, 0),
	}

	assert.Equal(t, TrendIncreasing, engagementTrend(posts))
}

func TestEngagementTrendDecreasing(t *testing.T) {
	posts := []*transfer.CompetitorPost{
		datedPost(1, 30, 0, 0),
		datedPost(2, 30, 0, 0),
		datedPost(3, 30, 0, 0),
		datedPost(4, 10, 0, 0),
		datedPost(5, 10, 0, 0),
		datedPost(6, 10, 0, 0),
	}

	assert.Equal(t, TrendDecreasing, engagementTrend(posts))
}

func TestEngagementTrendStableWithinMargin(t *testing.T) {
	// Newer half averages 21 versus 20, inside the 10% band.
	posts := []*transfer.CompetitorPost{
		datedPost(1, 20, 0, 0),
		datedPost(2, 20, 0, 0),
		datedPost(3, 20, 0, 0),
		datedPost(4, 21, 0, 0),
		datedPost(5, 21, 0, 0),
		datedPost(6, 21, 0, 0),
	}

	assert.Equal(t, TrendStable, engagementTrend(posts))
}

func TestEngagementTrendNeedsFiveDatedPosts(t *testing.T) {
	posts := []*transfer.CompetitorPost{
		datedPost(1, 10, 0, 0),
		datedPost(2, 20, 0, 0),
		datedPost(3, 30, 0, 0),
		datedPost(4, 40, 0, 0),
		{Likes: 99}, // undated, does not count
	}

	assert.Equal(t, TrendInsufficientData, engagementTrend(posts))
}

func TestEngagementTrendIgnoresInputOrder(t *testing.T) {
	// Same posts as the increasing case, shuffled.
	posts := []*transfer.CompetitorPost{
		datedPost(5, 30, 0, 0),
		datedPost(1, 10, 0, 0),
		datedPost(6, 30, 0, 0),
		datedPost(3, 10, 0, 0),
		datedPost(4, 30, 0, 0),
		datedPost(2, 10, 0, 0),
	}

	assert.Equal(t, TrendIncreasing, engagementTrend(posts))
}

func TestBuildContentPatterns(t *testing.T) {
	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC)

	posts := []*transfer.CompetitorPost{
		{Type: "image", Hashtags: []string{"GoLang", "devops"}, PublishedAt: monday},
		{Type: "image", Hashtags: []string{"golang"}, PublishedAt: monday},
		{Type: "video", PublishedAt: tuesday},
		{Type: ""}, // untyped and undated
	}

	patterns := buildContentPatterns(posts)

	assert.Equal(t, map[string]int{"image": 2, "video": 1, "text": 1}, patterns.TypeHistogram)

	require.Len(t, patterns.TopHashtags, 2)
	assert.Equal(t, transfer.HashtagCount{Tag: "golang", Count: 2}, patterns.TopHashtags[0])
	assert.Equal(t, transfer.HashtagCount{Tag: "devops", Count: 1}, patterns.TopHashtags[1])

	require.Len(t, patterns.TopPostingHours, 2)
	assert.Equal(t, transfer.HourCount{Hour: "09:00", Count: 2}, patterns.TopPostingHours[0])
	assert.Equal(t, transfer.HourCount{Hour: "18:00", Count: 1}, patterns.TopPostingHours[1])

	require.Len(t, patterns.TopPostingDays, 2)
	assert.Equal(t, transfer.DayCount{Day: "Monday", Count: 2}, patterns.TopPostingDays[0])
	assert.Equal(t, transfer.DayCount{Day: "Tuesday", Count: 1}, patterns.TopPostingDays[1])
}

func TestBuildContentPatternsTieBreaksAlphabetically(t *testing.T) {
	posts := []*transfer.CompetitorPost{
		{Type: "text", Hashtags: []string{"zeta", "alpha", "mid"}},
	}

	patterns := buildContentPatterns(posts)
	require.Len(t, patterns.TopHashtags, 3)
	assert.Equal(t, "alpha", patterns.TopHashtags[0].Tag)
	assert.Equal(t, "mid", patterns.TopHashtags[1].Tag)
	assert.Equal(t, "zeta", patterns.TopHashtags[2].Tag)
}

func TestBuildContentPatternsCapsHashtags(t *testing.T) {
	post := &transfer.CompetitorPost{Type: "text"}
	for i := 0; i < 30; i++ {
		post.Hashtags = append(post.Hashtags, string(rune('a'+i)))
	}

	patterns := buildContentPatterns([]*transfer.CompetitorPost{post})
	assert.Len(t, patterns.TopHashtags, topHashtagCount)
}

func TestBuildContentPatternsEmpty(t *testing.T) {
	patterns := buildContentPatterns(nil)
	assert.Empty(t, patterns.TypeHistogram)
	assert.Empty(t, patterns.TopHashtags)
	assert.Empty(t, patterns.TopPostingHours)
	assert.Empty(t, patterns.TopPostingDays)
}

func TestScoreDataQuality(t *testing.T) {
	fullPosts := make([]*transfer.CompetitorPost, 12)
	for i := range fullPosts {
		fullPosts[i] = datedPost(i+1, 10, 2, 1)
	}

	cases := []struct {
		name     string
		snapshot *transfer.CompetitorSnapshot
		score    int
		level    string
	}{
		{
			name: "complete snapshot",
			snapshot: &transfer.CompetitorSnapshot{
				Profile: &transfer.CompetitorProfile{Username: "acme"},
				Posts:   fullPosts,
			},
			score: 100,
			level: "high",
		},
		{
			name:     "profile only",
			snapshot: &transfer.CompetitorSnapshot{Profile: &transfer.CompetitorProfile{Username: "acme"}},
			score:    30,
			level:    "low",
		},
		{
			name: "few posts with engagement",
			snapshot: &transfer.CompetitorSnapshot{
				Profile: &transfer.CompetitorProfile{Username: "acme"},
				Posts:   []*transfer.CompetitorPost{datedPost(1, 5, 0, 0)},
			},
			score: 90,
			level: "high",
		},
		{
			name: "posts without engagement numbers",
			snapshot: &transfer.CompetitorSnapshot{
				Posts: []*transfer.CompetitorPost{{Type: "text"}, {Type: "text"}},
			},
			score: 40,
			level: "low",
		},
		{
			name: "posts with engagement but no profile",
			snapshot: &transfer.CompetitorSnapshot{
				Posts: []*transfer.CompetitorPost{datedPost(1, 5, 0, 0)},
			},
			score: 60,
			level: "medium",
		},
		{
			name:     "nothing collected",
			snapshot: &transfer.CompetitorSnapshot{},
			score:    0,
			level:    "low",
		},
	}

	for _, tc := range cases {
		quality := scoreDataQuality(tc.snapshot)
		assert.Equal(t, tc.score, quality.Score, tc.name)
		assert.Equal(t, tc.level, quality.Level, tc.name)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.23456))
	assert.Equal(t, 1.24, round2(1.239))
	assert.Equal(t, 0.0, round2(math.NaN()))
	assert.Equal(t, 0.0, round2(math.Inf(1)))
	assert.Equal(t, 0.0, round2(math.Inf(-1)))
}
