package transfer

import (
	"encoding/json"
	"time"
)

type PostCreation struct {
	Platform      string   `json:"platform"`
	PostType      string   `json:"post_type"`
	Caption       string   `json:"caption"`
	Title         string   `json:"title"`
	Text          string   `json:"text"`
	Link          string   `json:"link"`
	ScheduledTime string   `json:"scheduled_time"`
	Timezone      string   `json:"timezone"`
	Recurrence    string   `json:"recurrence"`
	PollOptions   []string `json:"poll_options"`
	PollMinutes   int      `json:"poll_minutes"`
}

type PostCreated struct {
	PostID     int64         `json:"post_id"`
	Status     string        `json:"status"`
	Delay      time.Duration `json:"-"`
	PublishNow bool          `json:"-"`
}

type PublishOutcome struct {
	PostID               int64           `json:"post_id"`
	Status               string          `json:"status"`
	PlatformPostID       string          `json:"platform_post_id,omitempty"`
	PostURL              string          `json:"post_url,omitempty"`
	PlatformData         json.RawMessage `json:"platform_data,omitempty"`
	Attempts             int             `json:"attempts"`
	Warnings             []string        `json:"warnings,omitempty"`
	PublishedImmediately bool            `json:"published_immediately,omitempty"`
	ErrorKind            string          `json:"error_kind,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
}

type SettingsUpdate struct {
	Timezone        string `json:"timezone"`
	DefaultPostTime string `json:"default_post_time"`
	ContentNiche    string `json:"content_niche"`
}
