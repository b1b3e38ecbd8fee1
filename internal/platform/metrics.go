package platform

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type EngagementMetrics struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views"`
}

func (m EngagementMetrics) Total() int64 {
	return m.Likes + m.Comments + m.Shares
}

// Field fallback chains per platform. Providers rename metric fields across
// API versions, so normalization tries each known location in order and
// takes the first that resolves. A fully exhausted chain yields zero.
var metricPaths = map[string]map[string][]string{
	"twitter": {
		"likes":    {"public_metrics.like_count", "like_count", "favorite_count", "likes"},
		"comments": {"public_metrics.reply_count", "reply_count", "comments"},
		"shares":   {"public_metrics.retweet_count", "retweet_count", "shares"},
		"views":    {"public_metrics.impression_count", "impression_count", "views"},
	},
	"instagram": {
		"likes":    {"like_count", "likes.summary.total_count", "likes"},
		"comments": {"comments_count", "comments.summary.total_count", "comments"},
		"shares":   {"shares"},
		"views":    {"video_view_count", "play_count", "views"},
	},
	"youtube": {
		"likes":    {"statistics.likeCount", "likeCount", "likes"},
		"comments": {"statistics.commentCount", "commentCount", "comments"},
		"shares":   {"shares"},
		"views":    {"statistics.viewCount", "viewCount", "views"},
	},
	"linkedin": {
		"likes":    {"likesSummary.totalLikes", "numLikes", "likes"},
		"comments": {"commentsSummary.aggregatedTotalComments", "numComments", "comments"},
		"shares":   {"numShares", "shares"},
		"views":    {"impressionCount", "views"},
	},
	"facebook": {
		"likes":    {"reactions.summary.total_count", "likes.summary.total_count", "like_count", "likes"},
		"comments": {"comments.summary.total_count", "comments_count", "comments"},
		"shares":   {"shares.count", "share_count"},
		"views":    {"video_views", "views"},
	},
}

// NormalizeEngagement maps a raw API item onto uniform counts using the
// platform's fallback chains.
func NormalizeEngagement(platform string, raw map[string]any) EngagementMetrics {
	paths, ok := metricPaths[platform]
	if !ok {
		paths = map[string][]string{
			"likes":    {"likes", "like_count"},
			"comments": {"comments", "comment_count"},
			"shares":   {"shares", "share_count"},
			"views":    {"views", "view_count"},
		}
	}
	return EngagementMetrics{
		Likes:    ResolveCount(raw, paths["likes"]...),
		Comments: ResolveCount(raw, paths["comments"]...),
		Shares:   ResolveCount(raw, paths["shares"]...),
		Views:    ResolveCount(raw, paths["views"]...),
	}
}

// ResolveCount walks dotted paths through nested maps and returns the first
// value that converts to an integer.
func ResolveCount(raw map[string]any, paths ...string) int64 {
	for _, path := range paths {
		if v, ok := lookupPath(raw, path); ok {
			if n, ok := asInt64(v); ok {
				return n
			}
		}
	}
	return 0
}

// ResolveTimestamp returns the first path that parses as a timestamp.
// Strings go through dateparse so provider specific layouts all work,
// numbers are treated as unix seconds or milliseconds.
func ResolveTimestamp(raw map[string]any, paths ...string) time.Time {
	for _, path := range paths {
		v, ok := lookupPath(raw, path)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if parsed, err := dateparse.ParseAny(t); err == nil {
				return parsed.UTC()
			}
		case float64:
			return fromEpoch(int64(t))
		case int64:
			return fromEpoch(t)
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return fromEpoch(n)
			}
		}
	}
	return time.Time{}
}

func fromEpoch(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func lookupPath(raw map[string]any, path string) (any, bool) {
	cur := any(raw)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func stringField(raw map[string]any, path string) string {
	if v, ok := lookupPath(raw, path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolField(raw map[string]any, path string) bool {
	if v, ok := lookupPath(raw, path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractHashtags pulls lowercased hashtags out of post text, used when the
// provider does not return them as structured entities.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m[1]))
	}
	return tags
}
