package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	twitterAPIBase   = "https://api.twitter.com/2"
	twitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	twitterChunkSize = 1 << 20
	twitterMaxPolls  = 10
	twitterTextLimit = 280
)

type twitterAdapter struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewTwitterAdapter(clientID, clientSecret string) Adapter {
	return &twitterAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       newHTTPClient(),
	}
}

func (a *twitterAdapter) Platform() string { return "twitter" }

// UploadMedia runs the chunked v1.1 flow: INIT, APPEND per chunk, FINALIZE,
// then polls STATUS until async video processing settles.
func (a *twitterAdapter) UploadMedia(ctx context.Context, session *Session, media *MediaUpload) (*MediaHandle, error) {
	if len(media.Data) == 0 {
		return nil, newError("twitter", "upload_media", KindRejected, "no media bytes")
	}

	category := "tweet_image"
	if media.Kind == "video" {
		category = "tweet_video"
	} else if media.MimeType == "image/gif" {
		category = "tweet_gif"
	}

	form := url.Values{}
	form.Set("command", "INIT")
	form.Set("total_bytes", strconv.Itoa(len(media.Data)))
	form.Set("media_type", media.MimeType)
	form.Set("media_category", category)

	var initResp struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := a.uploadCommand(ctx, session, form, &initResp); err != nil {
		return nil, err
	}
	if initResp.MediaIDString == "" {
		return nil, newError("twitter", "upload_media", KindRejected, "upload INIT returned no media id")
	}

	for i, offset := 0, 0; offset < len(media.Data); i, offset = i+1, offset+twitterChunkSize {
		end := offset + twitterChunkSize
		if end > len(media.Data) {
			end = len(media.Data)
		}
		if err := a.appendChunk(ctx, session, initResp.MediaIDString, i, media.Data[offset:end]); err != nil {
			return nil, err
		}
	}

	form = url.Values{}
	form.Set("command", "FINALIZE")
	form.Set("media_id", initResp.MediaIDString)

	var finalResp struct {
		MediaIDString  string `json:"media_id_string"`
		ProcessingInfo *struct {
			State          string `json:"state"`
			CheckAfterSecs int    `json:"check_after_secs"`
		} `json:"processing_info"`
	}
	if err := a.uploadCommand(ctx, session, form, &finalResp); err != nil {
		return nil, err
	}

	if finalResp.ProcessingInfo != nil {
		if err := a.awaitProcessing(ctx, session, initResp.MediaIDString, finalResp.ProcessingInfo.CheckAfterSecs); err != nil {
			return nil, err
		}
	}

	return &MediaHandle{ID: initResp.MediaIDString, Kind: media.Kind}, nil
}

func (a *twitterAdapter) uploadCommand(ctx context.Context, session *Session, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterUploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return wrapError("twitter", "upload_media", KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	return doJSON(a.client, "twitter", "upload_media", req, out)
}

func (a *twitterAdapter) appendChunk(ctx context.Context, session *Session, mediaID string, segment int, chunk []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("command", "APPEND")
	w.WriteField("media_id", mediaID)
	w.WriteField("segment_index", strconv.Itoa(segment))
	part, err := w.CreateFormFile("media", "chunk")
	if err != nil {
		return wrapError("twitter", "upload_media", KindTransient, err)
	}
	part.Write(chunk)
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterUploadURL, &buf)
	if err != nil {
		return wrapError("twitter", "upload_media", KindTransient, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	return doJSON(a.client, "twitter", "upload_media", req, nil)
}

func (a *twitterAdapter) awaitProcessing(ctx context.Context, session *Session, mediaID string, checkAfter int) error {
	if checkAfter <= 0 {
		checkAfter = 1
	}
	for i := 0; i < twitterMaxPolls; i++ {
		select {
		case <-ctx.Done():
			return wrapError("twitter", "upload_media", KindTransient, ctx.Err())
		case <-time.After(time.Duration(checkAfter) * time.Second):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			twitterUploadURL+"?command=STATUS&media_id="+mediaID, nil)
		if err != nil {
			return wrapError("twitter", "upload_media", KindTransient, err)
		}
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)

		var status struct {
			ProcessingInfo struct {
				State          string `json:"state"`
				CheckAfterSecs int    `json:"check_after_secs"`
				Error          struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"processing_info"`
		}
		if err := doJSON(a.client, "twitter", "upload_media", req, &status); err != nil {
			return err
		}

		switch status.ProcessingInfo.State {
		case "succeeded", "":
			return nil
		case "failed":
			return newError("twitter", "upload_media", KindRejected, status.ProcessingInfo.Error.Message)
		}
		if status.ProcessingInfo.CheckAfterSecs > 0 {
			checkAfter = status.ProcessingInfo.CheckAfterSecs
		}
	}
	return newError("twitter", "upload_media", KindTransient, "media processing did not finish in time")
}

func (a *twitterAdapter) Publish(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error) {
	switch content.PostType {
	case "thread":
		return a.publishThread(ctx, session, content, media)
	case "poll":
		if len(content.PollOptions) < 2 {
			return nil, newError("twitter", "publish", KindRejected, "poll needs at least two options")
		}
		body := map[string]any{
			"text": content.Caption,
			"poll": map[string]any{
				"options":          content.PollOptions,
				"duration_minutes": pollMinutes(content.PollMinutes),
			},
		}
		return a.createTweet(ctx, session, body)
	default:
		body := map[string]any{"text": content.Caption}
		if ids := mediaIDs(media); len(ids) > 0 {
			body["media"] = map[string]any{"media_ids": ids}
		}
		return a.createTweet(ctx, session, body)
	}
}

func (a *twitterAdapter) publishThread(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error) {
	parts := content.ThreadParts
	if len(parts) == 0 {
		parts = splitThread(content.Caption)
	}

	var first *PublishResult
	prevID := ""
	for i, part := range parts {
		body := map[string]any{"text": part}
		if i == 0 {
			if ids := mediaIDs(media); len(ids) > 0 {
				body["media"] = map[string]any{"media_ids": ids}
			}
		}
		if prevID != "" {
			body["reply"] = map[string]any{"in_reply_to_tweet_id": prevID}
		}

		res, err := a.createTweet(ctx, session, body)
		if err != nil {
			if first != nil {
				slog.Info("thread interrupted after partial publish",
					"first_tweet_id", first.ExternalID, "failed_part", i)
			}
			return nil, err
		}
		if first == nil {
			first = res
		}
		prevID = res.ExternalID
	}
	if first == nil {
		return nil, newError("twitter", "publish", KindRejected, "thread has no content")
	}
	first.Raw["thread_length"] = len(parts)
	return first, nil
}

func (a *twitterAdapter) createTweet(ctx context.Context, session *Session, body map[string]any) (*PublishResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, wrapError("twitter", "publish", KindRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterAPIBase+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError("twitter", "publish", KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := doJSON(a.client, "twitter", "publish", req, &out); err != nil {
		return nil, err
	}

	id := stringField(out.Data, "id")
	if id == "" {
		return nil, newError("twitter", "publish", KindRejected, "tweet response missing id")
	}
	return &PublishResult{
		ExternalID: id,
		URL:        "https://x.com/i/web/status/" + id,
		Raw:        out.Data,
	}, nil
}

func (a *twitterAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		twitterAPIBase+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, wrapError("twitter", "refresh_token", KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := doJSON(a.client, "twitter", "refresh_token", req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, newError("twitter", "refresh_token", KindAuth, "refresh response missing access token")
	}
	return &Token{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func (a *twitterAdapter) GetProfile(ctx context.Context, session *Session, ref *ProfileRef) (*Profile, error) {
	endpoint := twitterAPIBase + "/users/me"
	if ref != nil {
		switch {
		case ref.AccountID != "":
			endpoint = twitterAPIBase + "/users/" + url.PathEscape(ref.AccountID)
		case ref.Handle != "":
			endpoint = twitterAPIBase + "/users/by/username/" + url.PathEscape(ref.Handle)
		default:
			return nil, newError("twitter", "get_profile", KindRejected, "profile ref has no identifier")
		}
	}
	endpoint += "?user.fields=description,profile_image_url,public_metrics,verified,protected"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError("twitter", "get_profile", KindTransient, err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := doJSON(a.client, "twitter", "get_profile", req, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, newError("twitter", "get_profile", KindNotFound, "user not found")
	}

	return &Profile{
		Platform:    "twitter",
		AccountID:   stringField(out.Data, "id"),
		Username:    stringField(out.Data, "username"),
		DisplayName: stringField(out.Data, "name"),
		Bio:         stringField(out.Data, "description"),
		PictureURL:  stringField(out.Data, "profile_image_url"),
		Followers:   ResolveCount(out.Data, "public_metrics.followers_count"),
		Following:   ResolveCount(out.Data, "public_metrics.following_count"),
		PostCount:   ResolveCount(out.Data, "public_metrics.tweet_count"),
		Verified:    boolField(out.Data, "verified"),
		Private:     boolField(out.Data, "protected"),
	}, nil
}

func (a *twitterAdapter) GetContent(ctx context.Context, session *Session, ref *ProfileRef, q *ContentQuery) ([]*ContentItem, error) {
	userID := ""
	if ref != nil {
		userID = ref.AccountID
	}
	if userID == "" {
		profile, err := a.GetProfile(ctx, session, ref)
		if err != nil {
			return nil, err
		}
		userID = profile.AccountID
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	endpoint := fmt.Sprintf(
		"%s/users/%s/tweets?max_results=%d&tweet.fields=public_metrics,created_at,entities,attachments&exclude=retweets,replies",
		twitterAPIBase, url.PathEscape(userID), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError("twitter", "get_content", KindTransient, err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	var out struct {
		Data []map[string]any `json:"data"`
	}
	if err := doJSON(a.client, "twitter", "get_content", req, &out); err != nil {
		return nil, err
	}

	items := make([]*ContentItem, 0, len(out.Data))
	for _, raw := range out.Data {
		id := stringField(raw, "id")
		text := stringField(raw, "text")
		itemType := "text"
		if _, ok := lookupPath(raw, "attachments.media_keys"); ok {
			itemType = "media"
		}
		items = append(items, &ContentItem{
			ExternalID:  id,
			Type:        itemType,
			Text:        text,
			Hashtags:    tweetHashtags(raw, text),
			PublishedAt: ResolveTimestamp(raw, "created_at"),
			URL:         "https://x.com/i/web/status/" + id,
			Metrics:     NormalizeEngagement("twitter", raw),
		})
	}
	return items, nil
}

func tweetHashtags(raw map[string]any, text string) []string {
	if v, ok := lookupPath(raw, "entities.hashtags"); ok {
		if list, ok := v.([]any); ok && len(list) > 0 {
			tags := make([]string, 0, len(list))
			for _, e := range list {
				if m, ok := e.(map[string]any); ok {
					if tag := stringField(m, "tag"); tag != "" {
						tags = append(tags, strings.ToLower(tag))
					}
				}
			}
			if len(tags) > 0 {
				return tags
			}
		}
	}
	return ExtractHashtags(text)
}

func mediaIDs(media []*MediaHandle) []string {
	ids := make([]string, 0, len(media))
	for _, m := range media {
		if m != nil && m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func pollMinutes(m int) int {
	if m <= 0 {
		return 1440
	}
	return m
}

// splitThread breaks long text into tweet sized parts, preferring paragraph
// breaks over mid sentence cuts.
func splitThread(text string) []string {
	paragraphs := strings.Split(text, "\n\n")
	var parts []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for len(p) > twitterTextLimit {
			cut := strings.LastIndex(p[:twitterTextLimit], " ")
			if cut <= 0 {
				cut = twitterTextLimit
			}
			parts = append(parts, strings.TrimSpace(p[:cut]))
			p = strings.TrimSpace(p[cut:])
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{text}
	}
	return parts
}
