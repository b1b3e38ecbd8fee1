package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	instagramGraphBase     = "https://graph.instagram.com/v21.0"
	instagramRefreshURL    = "https://graph.instagram.com/refresh_access_token"
	instagramContainerWait = 3 * time.Second
	instagramMaxPolls      = 20
)

type instagramAdapter struct {
	clientSecret string
	client       *http.Client
}

func NewInstagramAdapter(clientSecret string) Adapter {
	return &instagramAdapter{clientSecret: clientSecret, client: newHTTPClient()}
}

func (a *instagramAdapter) Platform() string { return "instagram" }

// UploadMedia validates that a public URL exists for the item. The Graph
// API ingests media by URL inside a container that also carries the
// caption, so container creation happens in Publish.
func (a *instagramAdapter) UploadMedia(ctx context.Context, session *Session, media *MediaUpload) (*MediaHandle, error) {
	if media.SourceURL == "" {
		return nil, newError("instagram", "upload_media", KindRejected, "instagram requires a publicly reachable media url")
	}
	return &MediaHandle{Kind: media.Kind, URL: media.SourceURL}, nil
}

func (a *instagramAdapter) Publish(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error) {
	if len(media) == 0 {
		return nil, newError("instagram", "publish", KindRejected, "instagram posts need at least one media item")
	}

	var containerID string
	var err error

	switch content.PostType {
	case "carousel":
		containerID, err = a.createCarousel(ctx, session, content, media)
	case "video", "reel":
		containerID, err = a.createContainer(ctx, session, map[string]any{
			"video_url":  media[0].URL,
			"media_type": "REELS",
			"caption":    content.Caption,
		})
		if err == nil {
			err = a.awaitContainer(ctx, session, containerID)
		}
	case "story":
		payload := map[string]any{"media_type": "STORIES"}
		if media[0].Kind == "video" {
			payload["video_url"] = media[0].URL
		} else {
			payload["image_url"] = media[0].URL
		}
		containerID, err = a.createContainer(ctx, session, payload)
		if err == nil && media[0].Kind == "video" {
			err = a.awaitContainer(ctx, session, containerID)
		}
	default: // image
		containerID, err = a.createContainer(ctx, session, map[string]any{
			"image_url": media[0].URL,
			"caption":   content.Caption,
		})
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := a.publishContainer(ctx, session, containerID)
	if err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalID: mediaID,
		URL:        "https://www.instagram.com/p/" + mediaID,
		Raw:        map[string]any{"container_id": containerID, "media_id": mediaID},
	}, nil
}

func (a *instagramAdapter) createCarousel(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (string, error) {
	children := make([]string, 0, len(media))
	for _, m := range media {
		payload := map[string]any{"is_carousel_item": true}
		if m.Kind == "video" {
			payload["video_url"] = m.URL
			payload["media_type"] = "REELS"
		} else {
			payload["image_url"] = m.URL
		}
		id, err := a.createContainer(ctx, session, payload)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return a.createContainer(ctx, session, map[string]any{
		"media_type": "CAROUSEL",
		"caption":    content.Caption,
		"children":   strings.Join(children, ","),
	})
}

func (a *instagramAdapter) createContainer(ctx context.Context, session *Session, payload map[string]any) (string, error) {
	payload["access_token"] = session.AccessToken
	body, err := json.Marshal(payload)
	if err != nil {
		return "", wrapError("instagram", "publish", KindRejected, err)
	}

	endpoint := fmt.Sprintf("%s/%s/media", instagramGraphBase, url.PathEscape(session.AccountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", wrapError("instagram", "publish", KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		ID string `json:"id"`
	}
	if err := doJSON(a.client, "instagram", "publish", req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", newError("instagram", "publish", KindRejected, "no container id returned")
	}
	return result.ID, nil
}

// awaitContainer polls until video transcoding finishes. Containers stay in
// IN_PROGRESS for a while, publishing before FINISHED fails.
func (a *instagramAdapter) awaitContainer(ctx context.Context, session *Session, containerID string) error {
	endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		instagramGraphBase, url.PathEscape(containerID), url.QueryEscape(session.AccessToken))

	for i := 0; i < instagramMaxPolls; i++ {
		select {
		case <-ctx.Done():
			return wrapError("instagram", "publish", KindTransient, ctx.Err())
		case <-time.After(instagramContainerWait):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return wrapError("instagram", "publish", KindTransient, err)
		}

		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := doJSON(a.client, "instagram", "publish", req, &status); err != nil {
			return err
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return newError("instagram", "publish", KindRejected, "media container failed processing")
		}
	}
	return newError("instagram", "publish", KindTransient, "media container not ready in time")
}

func (a *instagramAdapter) publishContainer(ctx context.Context, session *Session, containerID string) (string, error) {
	payload := map[string]any{
		"creation_id":  containerID,
		"access_token": session.AccessToken,
	}
	body, _ := json.Marshal(payload)

	endpoint := fmt.Sprintf("%s/%s/media_publish", instagramGraphBase, url.PathEscape(session.AccountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", wrapError("instagram", "publish", KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		ID string `json:"id"`
	}
	if err := doJSON(a.client, "instagram", "publish", req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", newError("instagram", "publish", KindRejected, "no media id returned")
	}
	return result.ID, nil
}

// RefreshToken extends a long lived token. Instagram has no separate
// refresh token, the current token refreshes itself while still valid.
func (a *instagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	endpoint := fmt.Sprintf("%s?grant_type=ig_refresh_token&access_token=%s",
		instagramRefreshURL, url.QueryEscape(refreshToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError("instagram", "refresh_token", KindTransient, err)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := doJSON(a.client, "instagram", "refresh_token", req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, newError("instagram", "refresh_token", KindAuth, "refresh response missing access token")
	}
	return &Token{
		AccessToken:  out.AccessToken,
		RefreshToken: out.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func (a *instagramAdapter) GetProfile(ctx context.Context, session *Session, ref *ProfileRef) (*Profile, error) {
	if ref == nil {
		return a.ownProfile(ctx, session)
	}
	if ref.Handle == "" {
		return nil, newError("instagram", "get_profile", KindRejected, "profile ref has no handle")
	}
	if session.AccountID == "" {
		return nil, newError("instagram", "get_profile", KindConfig, "business discovery needs a connected business account")
	}

	fields := fmt.Sprintf("business_discovery.username(%s){username,name,biography,profile_picture_url,followers_count,follows_count,media_count}", ref.Handle)
	raw, err := a.graphGet(ctx, session, session.AccountID, fields, "get_profile")
	if err != nil {
		return nil, err
	}

	bd, ok := lookupPath(raw, "business_discovery")
	if !ok {
		return nil, newError("instagram", "get_profile", KindNotFound, "profile not found or not a business account")
	}
	data, _ := bd.(map[string]any)

	return &Profile{
		Platform:    "instagram",
		AccountID:   stringField(data, "id"),
		Username:    stringField(data, "username"),
		DisplayName: stringField(data, "name"),
		Bio:         stringField(data, "biography"),
		PictureURL:  stringField(data, "profile_picture_url"),
		Followers:   ResolveCount(data, "followers_count"),
		Following:   ResolveCount(data, "follows_count"),
		PostCount:   ResolveCount(data, "media_count"),
	}, nil
}

func (a *instagramAdapter) ownProfile(ctx context.Context, session *Session) (*Profile, error) {
	raw, err := a.graphGet(ctx, session, "me",
		"id,username,name,account_type,profile_picture_url,followers_count,follows_count,media_count", "get_profile")
	if err != nil {
		return nil, err
	}
	return &Profile{
		Platform:    "instagram",
		AccountID:   stringField(raw, "id"),
		Username:    stringField(raw, "username"),
		DisplayName: stringField(raw, "name"),
		PictureURL:  stringField(raw, "profile_picture_url"),
		Followers:   ResolveCount(raw, "followers_count"),
		Following:   ResolveCount(raw, "follows_count"),
		PostCount:   ResolveCount(raw, "media_count"),
	}, nil
}

func (a *instagramAdapter) GetContent(ctx context.Context, session *Session, ref *ProfileRef, q *ContentQuery) ([]*ContentItem, error) {
	limit := q.Limit
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	mediaFields := fmt.Sprintf("media.limit(%d){id,caption,media_type,media_url,permalink,like_count,comments_count,timestamp}", limit)

	var raw map[string]any
	var err error
	if ref != nil && ref.Handle != "" {
		if session.AccountID == "" {
			return nil, newError("instagram", "get_content", KindConfig, "business discovery needs a connected business account")
		}
		fields := fmt.Sprintf("business_discovery.username(%s){%s}", ref.Handle, mediaFields)
		raw, err = a.graphGet(ctx, session, session.AccountID, fields, "get_content")
		if err == nil {
			if bd, ok := lookupPath(raw, "business_discovery"); ok {
				raw, _ = bd.(map[string]any)
			}
		}
	} else {
		raw, err = a.graphGet(ctx, session, "me", mediaFields, "get_content")
	}
	if err != nil {
		return nil, err
	}

	list, ok := lookupPath(raw, "media.data")
	if !ok {
		return nil, nil
	}
	entries, _ := list.([]any)

	items := make([]*ContentItem, 0, len(entries))
	for _, e := range entries {
		item, ok := e.(map[string]any)
		if !ok {
			continue
		}
		caption := stringField(item, "caption")
		items = append(items, &ContentItem{
			ExternalID:  stringField(item, "id"),
			Type:        instagramMediaType(stringField(item, "media_type")),
			Text:        caption,
			Hashtags:    ExtractHashtags(caption),
			PublishedAt: ResolveTimestamp(item, "timestamp"),
			URL:         stringField(item, "permalink"),
			Metrics:     NormalizeEngagement("instagram", item),
		})
	}
	return items, nil
}

func (a *instagramAdapter) graphGet(ctx context.Context, session *Session, node, fields, op string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=%s&access_token=%s",
		instagramGraphBase, url.PathEscape(node), url.QueryEscape(fields), url.QueryEscape(session.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError("instagram", op, KindTransient, err)
	}

	var raw map[string]any
	if err := doJSON(a.client, "instagram", op, req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func instagramMediaType(mediaType string) string {
	switch mediaType {
	case "VIDEO":
		return "video"
	case "CAROUSEL_ALBUM":
		return "carousel"
	default:
		return "image"
	}
}
