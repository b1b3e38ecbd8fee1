package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	linkedinAPIBase  = "https://api.linkedin.com/v2"
	linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
)

type linkedinAdapter struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewLinkedInAdapter(clientID, clientSecret string) Adapter {
	return &linkedinAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       newHTTPClient(),
	}
}

func (a *linkedinAdapter) Platform() string { return "linkedin" }

// UploadMedia registers an upload slot, PUTs the bytes to the returned
// location and hands back the asset URN for the share.
func (a *linkedinAdapter) UploadMedia(ctx context.Context, session *Session, media *MediaUpload) (*MediaHandle, error) {
	if len(media.Data) == 0 {
		return nil, newError("linkedin", "upload_media", KindRejected, "no media bytes")
	}

	recipe := "urn:li:digitalmediaRecipe:feedshare-image"
	if media.Kind == "video" {
		recipe = "urn:li:digitalmediaRecipe:feedshare-video"
	}

	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{recipe},
			"owner":   personURN(session.AccountID),
			"serviceRelationships": []map[string]any{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	payload, _ := json.Marshal(register)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		linkedinAPIBase+"/assets?action=registerUpload", bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError("linkedin", "upload_media", KindTransient, err)
	}
	a.setHeaders(req, session)

	var out struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := doJSON(a.client, "linkedin", "upload_media", req, &out); err != nil {
		return nil, err
	}

	uploadURL := ""
	for _, m := range out.Value.UploadMechanism {
		if m.UploadURL != "" {
			uploadURL = m.UploadURL
			break
		}
	}
	if uploadURL == "" || out.Value.Asset == "" {
		return nil, newError("linkedin", "upload_media", KindRejected, "register upload returned no destination")
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(media.Data))
	if err != nil {
		return nil, wrapError("linkedin", "upload_media", KindTransient, err)
	}
	putReq.Header.Set("Authorization", "Bearer "+session.AccessToken)
	putReq.Header.Set("Content-Type", media.MimeType)

	resp, err := a.client.Do(putReq)
	if err != nil {
		return nil, wrapError("linkedin", "upload_media", KindTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError("linkedin", "upload_media", resp.StatusCode, string(body))
	}

	return &MediaHandle{ID: out.Value.Asset, Kind: media.Kind}, nil
}

func (a *linkedinAdapter) Publish(ctx context.Context, session *Session, content *Content, media []*MediaHandle) (*PublishResult, error) {
	shareContent := map[string]any{
		"shareCommentary":    map[string]any{"text": content.Caption},
		"shareMediaCategory": "NONE",
	}

	switch {
	case content.PostType == "article":
		if content.Link == "" {
			return nil, newError("linkedin", "publish", KindRejected, "article posts need a link")
		}
		shareContent["shareMediaCategory"] = "ARTICLE"
		articleMedia := map[string]any{
			"status":      "READY",
			"originalUrl": content.Link,
		}
		if content.Title != "" {
			articleMedia["title"] = map[string]any{"text": content.Title}
		}
		shareContent["media"] = []map[string]any{articleMedia}
	case len(media) > 0:
		category := "IMAGE"
		if media[0].Kind == "video" {
			category = "VIDEO"
		}
		shareContent["shareMediaCategory"] = category
		shares := make([]map[string]any, 0, len(media))
		for _, m := range media {
			shares = append(shares, map[string]any{"status": "READY", "media": m.ID})
		}
		shareContent["media"] = shares
	}

	body := map[string]any{
		"author":         personURN(session.AccountID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, wrapError("linkedin", "publish", KindRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinAPIBase+"/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError("linkedin", "publish", KindTransient, err)
	}
	a.setHeaders(req, session)

	var out struct {
		ID string `json:"id"`
	}
	if err := doJSON(a.client, "linkedin", "publish", req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, newError("linkedin", "publish", KindRejected, "share response missing id")
	}

	return &PublishResult{
		ExternalID: out.ID,
		URL:        "https://www.linkedin.com/feed/update/" + url.PathEscape(out.ID),
		Raw:        map[string]any{"urn": out.ID},
	}, nil
}

func (a *linkedinAdapter) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, wrapError("linkedin", "refresh_token", KindTransient, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := doJSON(a.client, "linkedin", "refresh_token", req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, newError("linkedin", "refresh_token", KindAuth, "refresh response missing access token")
	}

	rt := out.RefreshToken
	if rt == "" {
		rt = refreshToken
	}
	return &Token{
		AccessToken:  out.AccessToken,
		RefreshToken: rt,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func (a *linkedinAdapter) GetProfile(ctx context.Context, session *Session, ref *ProfileRef) (*Profile, error) {
	if ref == nil {
		return a.ownProfile(ctx, session)
	}

	switch ref.Kind {
	case RefCompany:
		return a.companyProfile(ctx, session, ref.Handle)
	default:
		// Member profiles have no public lookup outside partner programs.
		return nil, newError("linkedin", "get_profile", KindUnsupported,
			"linkedin member profiles cannot be read without partner api access")
	}
}

func (a *linkedinAdapter) ownProfile(ctx context.Context, session *Session) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinAPIBase+"/userinfo", nil)
	if err != nil {
		return nil, wrapError("linkedin", "get_profile", KindTransient, err)
	}
	a.setHeaders(req, session)

	var out map[string]any
	if err := doJSON(a.client, "linkedin", "get_profile", req, &out); err != nil {
		return nil, err
	}

	return &Profile{
		Platform:    "linkedin",
		AccountID:   stringField(out, "sub"),
		Username:    stringField(out, "email"),
		DisplayName: stringField(out, "name"),
		PictureURL:  stringField(out, "picture"),
	}, nil
}

func (a *linkedinAdapter) companyProfile(ctx context.Context, session *Session, vanityName string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/organizations?q=vanityName&vanityName=%s", linkedinAPIBase, url.QueryEscape(vanityName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError("linkedin", "get_profile", KindTransient, err)
	}
	a.setHeaders(req, session)

	var out struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := doJSON(a.client, "linkedin", "get_profile", req, &out); err != nil {
		return nil, err
	}
	if len(out.Elements) == 0 {
		return nil, newError("linkedin", "get_profile", KindNotFound, "organization not found")
	}
	org := out.Elements[0]
	orgID := ResolveCount(org, "id")

	profile := &Profile{
		Platform:    "linkedin",
		AccountID:   fmt.Sprintf("%d", orgID),
		Username:    vanityName,
		DisplayName: stringField(org, "localizedName"),
		Bio:         stringField(org, "localizedDescription"),
	}

	followers, err := a.organizationFollowers(ctx, session, orgID)
	if err == nil {
		profile.Followers = followers
	}
	return profile, nil
}

func (a *linkedinAdapter) organizationFollowers(ctx context.Context, session *Session, orgID int64) (int64, error) {
	endpoint := fmt.Sprintf("%s/networkSizes/urn:li:organization:%d?edgeType=CompanyFollowedByMember", linkedinAPIBase, orgID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, wrapError("linkedin", "get_profile", KindTransient, err)
	}
	a.setHeaders(req, session)

	var out map[string]any
	if err := doJSON(a.client, "linkedin", "get_profile", req, &out); err != nil {
		return 0, err
	}
	return ResolveCount(out, "firstDegreeSize"), nil
}

func (a *linkedinAdapter) GetContent(ctx context.Context, session *Session, ref *ProfileRef, q *ContentQuery) ([]*ContentItem, error) {
	if ref == nil || ref.Kind != RefCompany {
		return nil, newError("linkedin", "get_content", KindUnsupported,
			"linkedin content is only readable for organizations")
	}

	profile, err := a.companyProfile(ctx, session, ref.Handle)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	author := "urn:li:organization:" + profile.AccountID
	endpoint := fmt.Sprintf("%s/ugcPosts?q=authors&authors=List(%s)&count=%d",
		linkedinAPIBase, url.QueryEscape(author), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError("linkedin", "get_content", KindTransient, err)
	}
	a.setHeaders(req, session)

	var out struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := doJSON(a.client, "linkedin", "get_content", req, &out); err != nil {
		return nil, err
	}

	items := make([]*ContentItem, 0, len(out.Elements))
	for _, raw := range out.Elements {
		text := stringField(raw, "specificContent.com.linkedin.ugc.ShareContent.shareCommentary.text")
		itemType := "text"
		if cat := stringField(raw, "specificContent.com.linkedin.ugc.ShareContent.shareMediaCategory"); cat != "" && cat != "NONE" {
			itemType = strings.ToLower(cat)
		}
		items = append(items, &ContentItem{
			ExternalID:  stringField(raw, "id"),
			Type:        itemType,
			Text:        text,
			Hashtags:    ExtractHashtags(text),
			PublishedAt: ResolveTimestamp(raw, "created.time", "firstPublishedAt"),
			Metrics:     NormalizeEngagement("linkedin", raw),
		})
	}
	return items, nil
}

func (a *linkedinAdapter) setHeaders(req *http.Request, session *Session) {
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}

func personURN(accountID string) string {
	if strings.HasPrefix(accountID, "urn:") {
		return accountID
	}
	return "urn:li:person:" + accountID
}
