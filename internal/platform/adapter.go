package platform

import (
	"context"
	"time"
)

// Session identifies the account an adapter call acts on behalf of. For the
// public read path (profile collection) AccessToken holds an app level
// bearer token or API key and AccountID stays empty.
type Session struct {
	AccessToken string
	AccountID   string
}

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// MediaUpload carries one resolved media item. Data holds the raw bytes,
// SourceURL a publicly reachable copy for providers that ingest by URL.
type MediaUpload struct {
	FileName  string
	MimeType  string
	Kind      string // image, video, audio
	Data      []byte
	SourceURL string
}

// MediaHandle is the provider side reference returned by UploadMedia and
// consumed by Publish: a media id, container id or asset URN.
type MediaHandle struct {
	ID   string
	Kind string
	URL  string
}

type Content struct {
	PostType    string
	Caption     string
	Title       string
	Link        string
	ThreadParts []string
	PollOptions []string
	PollMinutes int
}

type PublishResult struct {
	ExternalID string
	URL        string
	Raw        map[string]any
}

type RefKind string

const (
	RefHandle     RefKind = "handle"
	RefChannelID  RefKind = "channel_id"
	RefLegacyUser RefKind = "legacy_user"
	RefCustomURL  RefKind = "custom_url"
	RefCompany    RefKind = "company"
	RefAccountID  RefKind = "account_id"
)

// ProfileRef names a profile to look up. A nil ref passed to GetProfile
// means the account the session is authenticated as.
type ProfileRef struct {
	Platform  string
	Handle    string
	AccountID string
	Kind      RefKind
}

type Profile struct {
	Platform    string
	AccountID   string
	Username    string
	DisplayName string
	Bio         string
	PictureURL  string
	Followers   int64
	Following   int64
	PostCount   int64
	Verified    bool
	Private     bool
}

type ContentItem struct {
	ExternalID  string
	Type        string // image, video, text, carousel, short
	Text        string
	Hashtags    []string
	PublishedAt time.Time
	URL         string
	Metrics     EngagementMetrics
}

type ContentQuery struct {
	Limit     int
	SinceDays int
}

// Adapter is the per platform integration surface. Every method returns
// *Error on failure so callers can classify without knowing the provider.
type Adapter interface {
	Platform() string
	UploadMedia(ctx context.Context, session *Session, media *MediaUpload) (*MediaHandle, error)
	Publish(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	GetProfile(ctx context.Context, session *Session, ref *ProfileRef) (*Profile, error)
	GetContent(ctx context.Context, session *Session, ref *ProfileRef, q *ContentQuery) ([]*ContentItem, error)
}
