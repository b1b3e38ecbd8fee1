package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type youtubeAdapter struct {
	clientID     string
	clientSecret string
	apiKey       string
}

// NewYouTubeAdapter wires the OAuth client pair for the write path and an
// API key for public channel reads.
func NewYouTubeAdapter(clientID, clientSecret, apiKey string) Adapter {
	return &youtubeAdapter{clientID: clientID, clientSecret: clientSecret, apiKey: apiKey}
}

func (a *youtubeAdapter) Platform() string { return "youtube" }

func (a *youtubeAdapter) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
		},
		Endpoint: google.Endpoint,
	}
}

func (a *youtubeAdapter) service(ctx context.Context, session *Session) (*youtube.Service, error) {
	if session == nil || session.AccessToken == "" {
		if a.apiKey == "" {
			return nil, newError("youtube", "service", KindConfig, "no access token and no api key configured")
		}
		svc, err := youtube.NewService(ctx, option.WithAPIKey(a.apiKey))
		if err != nil {
			return nil, wrapError("youtube", "service", KindTransient, err)
		}
		return svc, nil
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: session.AccessToken}))
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, wrapError("youtube", "service", KindTransient, err)
	}
	return svc, nil
}

// UploadMedia stages the bytes in a temp file. The resumable insert wants a
// seekable reader, and Publish removes the file when done.
func (a *youtubeAdapter) UploadMedia(ctx context.Context, session *Session, media *MediaUpload) (*MediaHandle, error) {
	if media.Kind != "video" {
		return nil, newError("youtube", "upload_media", KindUnsupported, "youtube only accepts video media")
	}
	if len(media.Data) == 0 {
		return nil, newError("youtube", "upload_media", KindRejected, "no media bytes")
	}

	ext := filepath.Ext(media.FileName)
	if ext == "" {
		ext = ".mp4"
	}
	tmp, err := os.CreateTemp("", "yt-upload-*"+ext)
	if err != nil {
		return nil, wrapError("youtube", "upload_media", KindTransient, err)
	}
	if _, err := tmp.Write(media.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, wrapError("youtube", "upload_media", KindTransient, err)
	}
	tmp.Close()

	return &MediaHandle{ID: tmp.Name(), Kind: "file"}, nil
}

func (a *youtubeAdapter) Publish(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error) {
	if len(media) == 0 {
		return nil, newError("youtube", "publish", KindRejected, "youtube posts need a video")
	}

	svc, err := a.service(ctx, session)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(media[0].ID)
	if err != nil {
		return nil, wrapError("youtube", "publish", KindTransient, err)
	}
	defer file.Close()
	defer os.Remove(media[0].ID)

	title := content.Title
	if title == "" {
		title = firstLine(content.Caption)
	}
	description := content.Caption
	if content.PostType == "short" && !strings.Contains(strings.ToLower(title), "#shorts") {
		title += " #Shorts"
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		return nil, ytError("publish", err)
	}

	return &PublishResult{
		ExternalID: response.Id,
		URL:        "https://youtu.be/" + response.Id,
		Raw:        map[string]any{"video_id": response.Id, "title": title},
	}, nil
}

func (a *youtubeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	tokenSource := a.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		return nil, wrapError("youtube", "refresh_token", KindAuth, err)
	}

	rt := token.RefreshToken
	if rt == "" {
		rt = refreshToken
	}
	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: rt,
		ExpiresAt:    token.Expiry,
	}, nil
}

func (a *youtubeAdapter) GetProfile(ctx context.Context, session *Session, ref *ProfileRef) (*Profile, error) {
	svc, err := a.service(ctx, session)
	if err != nil {
		return nil, err
	}

	channel, err := a.resolveChannel(ctx, svc, ref, []string{"snippet", "statistics"})
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Platform:    "youtube",
		AccountID:   channel.Id,
		DisplayName: channel.Snippet.Title,
		Bio:         channel.Snippet.Description,
		Followers:   int64(channel.Statistics.SubscriberCount),
		PostCount:   int64(channel.Statistics.VideoCount),
		Private:     channel.Statistics.HiddenSubscriberCount,
	}
	if channel.Snippet.CustomUrl != "" {
		profile.Username = strings.TrimPrefix(channel.Snippet.CustomUrl, "@")
	}
	if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
		profile.PictureURL = channel.Snippet.Thumbnails.Default.Url
	}
	return profile, nil
}

func (a *youtubeAdapter) resolveChannel(ctx context.Context, svc *youtube.Service, ref *ProfileRef, parts []string) (*youtube.Channel, error) {
	call := svc.Channels.List(parts)

	switch {
	case ref == nil:
		call = call.Mine(true)
	case ref.Kind == RefChannelID || ref.AccountID != "":
		call = call.Id(channelID(ref))
	case ref.Kind == RefHandle:
		call = call.ForHandle("@" + ref.Handle)
	case ref.Kind == RefLegacyUser:
		call = call.ForUsername(ref.Handle)
	case ref.Kind == RefCustomURL:
		id, err := a.searchChannelID(ctx, svc, ref.Handle)
		if err != nil {
			return nil, err
		}
		call = call.Id(id)
	default:
		return nil, newError("youtube", "get_profile", KindRejected, "profile ref has no identifier")
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, ytError("get_profile", err)
	}
	if len(resp.Items) == 0 {
		return nil, newError("youtube", "get_profile", KindNotFound, "channel not found")
	}
	return resp.Items[0], nil
}

// searchChannelID resolves legacy /c/ custom URLs, which have no direct
// lookup in the Data API.
func (a *youtubeAdapter) searchChannelID(ctx context.Context, svc *youtube.Service, name string) (string, error) {
	resp, err := svc.Search.List([]string{"snippet"}).
		Q(name).Type("channel").MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", ytError("get_profile", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", newError("youtube", "get_profile", KindNotFound, "channel not found for custom url "+name)
	}
	return resp.Items[0].Snippet.ChannelId, nil
}

func (a *youtubeAdapter) GetContent(ctx context.Context, session *Session, ref *ProfileRef, q *ContentQuery) ([]*ContentItem, error) {
	svc, err := a.service(ctx, session)
	if err != nil {
		return nil, err
	}

	channel, err := a.resolveChannel(ctx, svc, ref, []string{"contentDetails"})
	if err != nil {
		return nil, err
	}
	if channel.ContentDetails == nil || channel.ContentDetails.RelatedPlaylists == nil {
		return nil, newError("youtube", "get_content", KindNotFound, "channel has no uploads playlist")
	}
	uploads := channel.ContentDetails.RelatedPlaylists.Uploads

	limit := int64(q.Limit)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	playlistResp, err := svc.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(uploads).MaxResults(limit).Context(ctx).Do()
	if err != nil {
		return nil, ytError("get_content", err)
	}

	videoIDs := make([]string, 0, len(playlistResp.Items))
	for _, item := range playlistResp.Items {
		if item.ContentDetails != nil {
			videoIDs = append(videoIDs, item.ContentDetails.VideoId)
		}
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	videosResp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(videoIDs...).Context(ctx).Do()
	if err != nil {
		return nil, ytError("get_content", err)
	}

	items := make([]*ContentItem, 0, len(videosResp.Items))
	for _, v := range videosResp.Items {
		item := &ContentItem{
			ExternalID: v.Id,
			Type:       "video",
			URL:        "https://youtu.be/" + v.Id,
		}
		if v.Snippet != nil {
			item.Text = v.Snippet.Title
			item.Hashtags = ExtractHashtags(v.Snippet.Title + " " + v.Snippet.Description)
			if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
				item.PublishedAt = t.UTC()
			}
		}
		if v.Statistics != nil {
			item.Metrics = EngagementMetrics{
				Likes:    int64(v.Statistics.LikeCount),
				Comments: int64(v.Statistics.CommentCount),
				Views:    int64(v.Statistics.ViewCount),
			}
		}
		if v.ContentDetails != nil && isoDurationSeconds(v.ContentDetails.Duration) <= 60 {
			item.Type = "short"
		}
		items = append(items, item)
	}
	return items, nil
}

func ytError(op string, err error) *Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return statusError("youtube", op, gerr.Code, gerr.Message)
	}
	return wrapError("youtube", op, KindTransient, err)
}

func channelID(ref *ProfileRef) string {
	if ref.AccountID != "" {
		return ref.AccountID
	}
	return ref.Handle
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	if s == "" {
		return "Untitled"
	}
	return s
}

// isoDurationSeconds parses the PT#H#M#S durations the Data API returns.
// Unparseable input counts as long form.
func isoDurationSeconds(d string) int {
	d = strings.TrimPrefix(d, "PT")
	if d == "" {
		return 1 << 30
	}
	total := 0
	num := ""
	for _, r := range d {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			n, err := strconv.Atoi(num)
			if err != nil {
				return 1 << 30
			}
			switch r {
			case 'H':
				total += n * 3600
			case 'M':
				total += n * 60
			case 'S':
				total += n
			}
			num = ""
		default:
			return 1 << 30
		}
	}
	return total
}

