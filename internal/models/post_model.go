package models

import (
	"encoding/json"
	"time"
)

type Post struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	Platform       string          `db:"platform" json:"platform"`
	PostType       string          `db:"post_type" json:"post_type"`
	Caption        string          `db:"caption" json:"caption"`
	Title          string          `db:"title" json:"title"`
	Text           string          `db:"text" json:"text"`
	ScheduledTime  time.Time       `db:"scheduled_time" json:"scheduled_time"`
	Timezone       string          `db:"timezone" json:"timezone"`
	Recurrence     string          `db:"recurrence" json:"recurrence"`
	Status         string          `db:"status" json:"status"` // draft, scheduled, published, failed
	PublishedAt    time.Time       `db:"published_at" json:"published_at"`
	PlatformPostID string          `db:"platform_post_id" json:"platform_post_id"`
	PlatformData   json.RawMessage `db:"platform_data" json:"platform_data"`
	LastError      string          `db:"last_error" json:"last_error"`
	RetryCount     int             `db:"retry_count" json:"retry_count"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	FileName     string    `db:"file_name"`
	FileType     string    `db:"file_type"`
	FileSize     int64     `db:"file_size"`
	MediaKind    string    `db:"media_kind"` // image, video, audio
	StorageKey   string    `db:"storage_key"`
	LocalPath    string    `db:"local_path"`
	FileURL      string    `db:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
	PlatformLinkedIn  = "linkedin"
	PlatformFacebook  = "facebook"
)

var allowedPostTypes = map[string]map[string]bool{
	PlatformTwitter:   {"tweet": true, "thread": true, "poll": true},
	PlatformInstagram: {"image": true, "video": true, "carousel": true, "story": true, "reel": true},
	PlatformYouTube:   {"video": true, "short": true},
	PlatformLinkedIn:  {"post": true, "article": true},
	PlatformFacebook:  {"post": true, "photo": true, "video": true},
}

func KnownPlatform(platform string) bool {
	_, ok := allowedPostTypes[platform]
	return ok
}

func ValidPostType(platform, postType string) bool {
	types, ok := allowedPostTypes[platform]
	if !ok {
		return false
	}
	return types[postType]
}
