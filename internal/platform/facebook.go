package platform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	fb "github.com/huandu/facebook/v2"
)

type facebookAdapter struct {
	appID     string
	appSecret string
}

func NewFacebookAdapter(appID, appSecret string) Adapter {
	return &facebookAdapter{appID: appID, appSecret: appSecret}
}

func (a *facebookAdapter) Platform() string { return "facebook" }

// UploadMedia uploads photos unpublished so Publish can attach them to a
// feed post. Videos are ingested by URL at publish time.
func (a *facebookAdapter) UploadMedia(ctx context.Context, session *Session, media *MediaUpload) (*MediaHandle, error) {
	if media.Kind == "video" {
		if media.SourceURL == "" {
			return nil, newError("facebook", "upload_media", KindRejected, "facebook video needs a publicly reachable url")
		}
		return &MediaHandle{Kind: "video", URL: media.SourceURL}, nil
	}

	if media.SourceURL == "" {
		return nil, newError("facebook", "upload_media", KindRejected, "facebook photo needs a publicly reachable url")
	}

	res, err := fb.Post("/"+session.AccountID+"/photos", fb.Params{
		"url":          media.SourceURL,
		"published":    false,
		"access_token": session.AccessToken,
	})
	if err != nil {
		return nil, fbError("upload_media", err)
	}

	id, _ := res.Get("id").(string)
	if id == "" {
		return nil, newError("facebook", "upload_media", KindRejected, "photo upload returned no id")
	}
	return &MediaHandle{ID: id, Kind: "image", URL: media.SourceURL}, nil
}

func (a *facebookAdapter) Publish(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error) {
	if content.PostType == "video" {
		if len(media) == 0 || media[0].URL == "" {
			return nil, newError("facebook", "publish", KindRejected, "video posts need a video url")
		}
		params := fb.Params{
			"file_url":     media[0].URL,
			"description":  content.Caption,
			"access_token": session.AccessToken,
		}
		if content.Title != "" {
			params["title"] = content.Title
		}
		res, err := fb.Post("/"+session.AccountID+"/videos", params)
		if err != nil {
			return nil, fbError("publish", err)
		}
		return fbResult(session.AccountID, res)
	}

	params := fb.Params{
		"message":      content.Caption,
		"access_token": session.AccessToken,
	}
	if content.Link != "" {
		params["link"] = content.Link
	}

	attached := make([]map[string]string, 0, len(media))
	for _, m := range media {
		if m != nil && m.ID != "" {
			attached = append(attached, map[string]string{"media_fbid": m.ID})
		}
	}
	if content.PostType == "photo" && len(attached) == 0 {
		return nil, newError("facebook", "publish", KindRejected, "photo posts need at least one uploaded photo")
	}
	if len(attached) > 0 {
		params["attached_media"] = attached
	}

	res, err := fb.Post("/"+session.AccountID+"/feed", params)
	if err != nil {
		return nil, fbError("publish", err)
	}
	return fbResult(session.AccountID, res)
}

func fbResult(accountID string, res fb.Result) (*PublishResult, error) {
	id, _ := res.Get("id").(string)
	if id == "" {
		return nil, newError("facebook", "publish", KindRejected, "publish returned no id")
	}
	return &PublishResult{
		ExternalID: id,
		URL:        "https://www.facebook.com/" + id,
		Raw:        map[string]any{"id": id, "page_id": accountID},
	}, nil
}

// RefreshToken exchanges the current long lived token for a fresh one.
// Facebook has no refresh grant, the exchange flow serves that purpose.
func (a *facebookAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	res, err := fb.Get("/oauth/access_token", fb.Params{
		"grant_type":        "fb_exchange_token",
		"client_id":         a.appID,
		"client_secret":     a.appSecret,
		"fb_exchange_token": refreshToken,
	})
	if err != nil {
		return nil, fbError("refresh_token", err)
	}

	token, _ := res.Get("access_token").(string)
	if token == "" {
		return nil, newError("facebook", "refresh_token", KindAuth, "exchange returned no access token")
	}

	expiresIn := int64(0)
	switch v := res.Get("expires_in").(type) {
	case float64:
		expiresIn = int64(v)
	case string:
		expiresIn, _ = strconv.ParseInt(v, 10, 64)
	}
	if expiresIn == 0 {
		expiresIn = 60 * 24 * 3600 // long lived tokens run about 60 days
	}

	return &Token{
		AccessToken:  token,
		RefreshToken: token,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

func (a *facebookAdapter) GetProfile(ctx context.Context, session *Session, ref *ProfileRef) (*Profile, error) {
	target := "me"
	if ref != nil {
		switch {
		case ref.AccountID != "":
			target = ref.AccountID
		case ref.Handle != "":
			target = ref.Handle
		default:
			return nil, newError("facebook", "get_profile", KindRejected, "profile ref has no identifier")
		}
	}

	res, err := fb.Get("/"+target, fb.Params{
		"fields":       "id,name,username,about,fan_count,followers_count,link,verification_status,picture{url}",
		"access_token": session.AccessToken,
	})
	if err != nil {
		return nil, fbError("get_profile", err)
	}

	raw := map[string]any(res)
	followers := ResolveCount(raw, "followers_count", "fan_count")

	return &Profile{
		Platform:    "facebook",
		AccountID:   stringField(raw, "id"),
		Username:    stringField(raw, "username"),
		DisplayName: stringField(raw, "name"),
		Bio:         stringField(raw, "about"),
		PictureURL:  stringField(raw, "picture.data.url"),
		Followers:   followers,
		Verified:    stringField(raw, "verification_status") == "blue_verified",
	}, nil
}

func (a *facebookAdapter) GetContent(ctx context.Context, session *Session, ref *ProfileRef, q *ContentQuery) ([]*ContentItem, error) {
	target := "me"
	if ref != nil {
		if ref.AccountID != "" {
			target = ref.AccountID
		} else if ref.Handle != "" {
			target = ref.Handle
		}
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	res, err := fb.Get("/"+target+"/posts", fb.Params{
		"fields": "id,message,created_time,permalink_url,attachments{media_type}," +
			"shares,comments.summary(true).limit(0),reactions.summary(true).limit(0)",
		"limit":        limit,
		"access_token": session.AccessToken,
	})
	if err != nil {
		return nil, fbError("get_content", err)
	}

	data, _ := res.Get("data").([]any)
	items := make([]*ContentItem, 0, len(data))
	for _, entry := range data {
		raw, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		message := stringField(raw, "message")
		itemType := "text"
		if v, ok := lookupPath(raw, "attachments.data"); ok {
			if list, ok := v.([]any); ok && len(list) > 0 {
				if m, ok := list[0].(map[string]any); ok {
					switch stringField(m, "media_type") {
					case "video":
						itemType = "video"
					case "photo", "album":
						itemType = "image"
					case "link":
						itemType = "link"
					}
				}
			}
		}
		items = append(items, &ContentItem{
			ExternalID:  stringField(raw, "id"),
			Type:        itemType,
			Text:        message,
			Hashtags:    ExtractHashtags(message),
			PublishedAt: ResolveTimestamp(raw, "created_time"),
			URL:         stringField(raw, "permalink_url"),
			Metrics:     NormalizeEngagement("facebook", raw),
		})
	}
	return items, nil
}

func fbError(op string, err error) *Error {
	var ferr *fb.Error
	if errors.As(err, &ferr) {
		kind := KindRejected
		switch ferr.Code {
		case 1, 2:
			kind = KindTransient
		case 4, 17, 32, 613:
			kind = KindRateLimit
		case 10, 102, 190:
			kind = KindAuth
		case 803:
			kind = KindNotFound
		}
		return &Error{
			Platform: "facebook",
			Op:       op,
			Kind:     kind,
			Code:     fmt.Sprintf("%d", ferr.Code),
			Message:  ferr.Message,
			Err:      err,
		}
	}
	return wrapError("facebook", op, KindTransient, err)
}
