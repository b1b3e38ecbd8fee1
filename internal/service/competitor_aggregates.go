package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	topHashtagCount = 20
	topHourCount    = 5
	topDayCount     = 3

	trendMinPosts = 5
	trendMargin   = 0.1
)

const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

func buildContentPatterns(posts []*transfer.CompetitorPost) *transfer.ContentPatterns {
	patterns := &transfer.ContentPatterns{
		TypeHistogram: make(map[string]int),
	}
	if len(posts) == 0 {
		return patterns
	}

	hashtags := make(map[string]int)
	hours := make(map[string]int)
	days := make(map[string]int)

	for _, post := range posts {
		postType := post.Type
		if postType == "" {
			postType = "text"
		}
		patterns.TypeHistogram[postType]++

		for _, tag := range post.Hashtags {
			hashtags[strings.ToLower(tag)]++
		}

		if !post.PublishedAt.IsZero() {
			hours[fmt.Sprintf("%02d:00", post.PublishedAt.Hour())]++
			days[post.PublishedAt.Weekday().String()]++
		}
	}

	patterns.TopHashtags = topHashtags(hashtags, topHashtagCount)
	patterns.TopPostingHours = topHours(hours, topHourCount)
	patterns.TopPostingDays = topDays(days, topDayCount)

	return patterns
}

func topHashtags(counts map[string]int, limit int) []transfer.HashtagCount {
	out := make([]transfer.HashtagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, transfer.HashtagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topHours(counts map[string]int, limit int) []transfer.HourCount {
	out := make([]transfer.HourCount, 0, len(counts))
	for hour, count := range counts {
		out = append(out, transfer.HourCount{Hour: hour, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Hour < out[j].Hour
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topDays(counts map[string]int, limit int) []transfer.DayCount {
	out := make([]transfer.DayCount, 0, len(counts))
	for day, count := range counts {
		out = append(out, transfer.DayCount{Day: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Day < out[j].Day
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func buildEngagementSummary(posts []*transfer.CompetitorPost, followers int64) *transfer.EngagementSummary {
	summary := &transfer.EngagementSummary{
		Trend:         TrendInsufficientData,
		PostsAnalyzed: len(posts),
	}
	if len(posts) == 0 {
		return summary
	}

	likes := make([]float64, len(posts))
	comments := make([]float64, len(posts))
	shares := make([]float64, len(posts))
	totals := make([]float64, len(posts))

	for i, post := range posts {
		likes[i] = float64(post.Likes)
		comments[i] = float64(post.Comments)
		shares[i] = float64(post.Shares)
		totals[i] = float64(post.Likes + post.Comments + post.Shares)
	}

	summary.AvgLikes = round2(stat.Mean(likes, nil))
	summary.AvgComments = round2(stat.Mean(comments, nil))
	summary.AvgShares = round2(stat.Mean(shares, nil))
	summary.AvgTotal = round2(stat.Mean(totals, nil))

	// Rate is interactions per follower. A missing follower count still
	// yields a number, just not a comparable one.
	base := float64(followers)
	if base < 1 {
		base = 1
	}
	summary.EngagementRate = round2(stat.Mean(totals, nil) / base * 100)

	summary.Trend = engagementTrend(posts)

	return summary
}

// engagementTrend compares the average engagement of the newer half of
// posts against the older half. Movement within 10% counts as stable.
func engagementTrend(posts []*transfer.CompetitorPost) string {
	dated := make([]*transfer.CompetitorPost, 0, len(posts))
	for _, post := range posts {
		if !post.PublishedAt.IsZero() {
			dated = append(dated, post)
		}
	}
	if len(dated) < trendMinPosts {
		return TrendInsufficientData
	}

	sort.Slice(dated, func(i, j int) bool {
		return dated[i].PublishedAt.Before(dated[j].PublishedAt)
	})

	mid := len(dated) / 2
	older := meanTotal(dated[:mid])
	newer := meanTotal(dated[mid:])

	switch {
	case newer > older*(1+trendMargin):
		return TrendIncreasing
	case newer < older*(1-trendMargin):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func meanTotal(posts []*transfer.CompetitorPost) float64 {
	if len(posts) == 0 {
		return 0
	}
	totals := make([]float64, len(posts))
	for i, post := range posts {
		totals[i] = float64(post.Likes + post.Comments + post.Shares)
	}
	return stat.Mean(totals, nil)
}

// scoreDataQuality grades how complete a snapshot is: 30 points for the
// profile, up to 50 for posts, 20 for usable engagement numbers.
func scoreDataQuality(snapshot *transfer.CompetitorSnapshot) *transfer.DataQuality {
	score := 0

	if snapshot.Profile != nil {
		score += 30
	}

	if len(snapshot.Posts) > 0 {
		score += 40
		if len(snapshot.Posts) >= 10 {
			score += 10
		}

		for _, post := range snapshot.Posts {
			if post.Likes > 0 || post.Comments > 0 || post.Shares > 0 || post.Views > 0 {
				score += 20
				break
			}
		}
	}

	level := "low"
	switch {
	case score >= 80:
		level = "high"
	case score >= 50:
		level = "medium"
	}

	return &transfer.DataQuality{Score: score, Level: level}
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
