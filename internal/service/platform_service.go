package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	fb "github.com/huandu/facebook/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

const (
	TWITTER_AUTH_URL   = "https://twitter.com/i/oauth2/authorize"
	TWITTER_TOKEN_URL  = "https://api.twitter.com/2/oauth2/token"
	GOOGLE_AUTH_URL    = "https://accounts.google.com/o/oauth2/v2/auth"
	INSTAGRAM_AUTH_URL = "https://www.instagram.com/oauth/authorize"
	LINKEDIN_AUTH_URL  = "https://www.linkedin.com/oauth/v2/authorization"
	LINKEDIN_TOKEN_URL = "https://www.linkedin.com/oauth/v2/accessToken"
	FACEBOOK_AUTH_URL  = "https://www.facebook.com/v21.0/dialog/oauth"
)

// PlatformService owns the account connection lifecycle: building the
// OAuth authorize URL, finishing the callback by exchanging the code and
// storing the encrypted tokens, and listing or disconnecting accounts.
type PlatformService interface {
	GetAuthURL(ctx context.Context, platformName string, userID int64) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*models.SocialAccount, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg    config.Config
	sa     repository.SocialAccountRepository
	states repository.OAuthStateStore
}

func NewPlatformService(cfg config.Config, sa repository.SocialAccountRepository, states repository.OAuthStateStore) PlatformService {
	return &platformService{
		cfg:    cfg,
		sa:     sa,
		states: states,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platformName string, userID int64) (string, error) {
	if !models.KnownPlatform(platformName) {
		return "", fmt.Errorf("unknown platform: %s", platformName)
	}

	creds := s.credentials(platformName)
	if !creds.Configured() {
		return "", fmt.Errorf("%s is not configured", platformName)
	}

	state, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	oauthState := &repository.OAuthState{
		UserID:   userID,
		Platform: platformName,
	}

	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("state", state)

	var authURL string
	switch platformName {
	case models.PlatformTwitter:
		authURL = TWITTER_AUTH_URL
		verifier, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 64)
		if err != nil {
			return "", err
		}
		oauthState.CodeVerifier = verifier

		params.Add("client_id", creds.ClientID)
		params.Add("redirect_uri", creds.RedirectURI)
		params.Add("scope", "tweet.read tweet.write users.read offline.access")
		params.Add("code_challenge", codeChallenge(verifier))
		params.Add("code_challenge_method", "S256")

	case models.PlatformInstagram:
		authURL = INSTAGRAM_AUTH_URL
		params.Add("client_id", creds.ClientID)
		params.Add("redirect_uri", creds.RedirectURI)
		params.Add("scope", "instagram_business_basic,instagram_business_content_publish")

	case models.PlatformYouTube:
		authURL = GOOGLE_AUTH_URL
		params.Add("client_id", creds.ClientID)
		params.Add("redirect_uri", creds.RedirectURI)
		params.Add("scope", "https://www.googleapis.com/auth/youtube.upload https://www.googleapis.com/auth/youtube.readonly")
		params.Add("access_type", "offline")
		params.Add("prompt", "consent")

	case models.PlatformLinkedIn:
		authURL = LINKEDIN_AUTH_URL
		params.Add("client_id", creds.ClientID)
		params.Add("redirect_uri", creds.RedirectURI)
		params.Add("scope", "openid profile email w_member_social")

	case models.PlatformFacebook:
		authURL = FACEBOOK_AUTH_URL
		params.Add("client_id", creds.ClientID)
		params.Add("redirect_uri", creds.RedirectURI)
		params.Add("scope", "pages_show_list,pages_manage_posts,pages_read_engagement")
	}

	if err := s.states.Save(ctx, state, oauthState); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s?%s", authURL, params.Encode()), nil
}

func (s *platformService) HandleCallback(ctx context.Context, code, state string) (*models.SocialAccount, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return nil, err
	}

	oauthState, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	var account *models.SocialAccount
	switch oauthState.Platform {
	case models.PlatformTwitter:
		account, err = s.twitterCallback(ctx, code, oauthState)
	case models.PlatformInstagram:
		account, err = s.instagramCallback(ctx, code, oauthState)
	case models.PlatformYouTube:
		account, err = s.youtubeCallback(ctx, code, oauthState)
	case models.PlatformLinkedIn:
		account, err = s.linkedinCallback(ctx, code, oauthState)
	case models.PlatformFacebook:
		account, err = s.facebookCallback(ctx, code, oauthState)
	default:
		err = fmt.Errorf("unknown platform: %s", oauthState.Platform)
	}
	if err != nil {
		return nil, err
	}

	account.AccountStatus = models.AccountStatusActive

	if _, err := s.sa.Create(ctx, nil, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *platformService) twitterCallback(ctx context.Context, code string, st *repository.OAuthState) (*models.SocialAccount, error) {
	creds := s.cfg.Twitter

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", creds.RedirectURI)
	data.Set("code_verifier", st.CodeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TWITTER_TOKEN_URL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)

	var token transfer.OAuthTokenResponse
	if err := doOAuthRequest(req, &token); err != nil {
		return nil, err
	}

	userReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.twitter.com/2/users/me?user.fields=profile_image_url", nil)
	if err != nil {
		return nil, err
	}
	userReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var userInfo transfer.TwitterUserInfo
	if err := doOAuthRequest(userReq, &userInfo); err != nil {
		return nil, err
	}

	return s.buildAccount(st.UserID, models.PlatformTwitter, token.AccessToken, token.RefreshToken,
		expiresAt(token.ExpiresIn), userInfo.Data.ID, userInfo.Data.Name, userInfo.Data.Username, userInfo.Data.ProfileImageURL)
}

func (s *platformService) instagramCallback(ctx context.Context, code string, st *repository.OAuthState) (*models.SocialAccount, error) {
	creds := s.cfg.Instagram

	token, err := s.exchangeInstagramCode(ctx, code)
	if err != nil {
		return nil, err
	}

	longLived, err := s.exchangeInstagramLongLived(ctx, token.AccessToken, creds.ClientSecret)
	if err != nil {
		return nil, err
	}

	userInfo, err := s.instagramUserInfo(ctx, longLived.AccessToken)
	if err != nil {
		return nil, err
	}

	// Instagram refreshes long lived tokens with the token itself, so the
	// same value fills both slots.
	return s.buildAccount(st.UserID, models.PlatformInstagram, longLived.AccessToken, longLived.AccessToken,
		longLived.ExpiresAt, userInfo.UserID, userInfo.Name, userInfo.Username, userInfo.ProfilePicture)
}

func (s *platformService) exchangeInstagramCode(ctx context.Context, code string) (*transfer.InstagramToken, error) {
	creds := s.cfg.Instagram

	data := url.Values{}
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", creds.RedirectURI)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.instagram.com/oauth/access_token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := doOAuthRequest(req, &body); err != nil {
		return nil, err
	}

	return &transfer.InstagramToken{AccessToken: body.AccessToken}, nil
}

func (s *platformService) exchangeInstagramLongLived(ctx context.Context, shortLived, clientSecret string) (*transfer.InstagramToken, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_exchange_token")
	params.Set("client_secret", clientSecret)
	params.Set("access_token", shortLived)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://graph.instagram.com/access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := doOAuthRequest(req, &body); err != nil {
		return nil, err
	}

	return &transfer.InstagramToken{
		AccessToken: body.AccessToken,
		ExpiresAt:   expiresAt(body.ExpiresIn),
	}, nil
}

func (s *platformService) instagramUserInfo(ctx context.Context, accessToken string) (*transfer.InstagramUserInfo, error) {
	params := url.Values{}
	params.Set("fields", "user_id,username,name,profile_picture_url")
	params.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://graph.instagram.com/v21.0/me?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var userInfo transfer.InstagramUserInfo
	if err := doOAuthRequest(req, &userInfo); err != nil {
		return nil, err
	}

	return &userInfo, nil
}

func (s *platformService) youtubeCallback(ctx context.Context, code string, st *repository.OAuthState) (*models.SocialAccount, error) {
	creds := s.cfg.YouTube

	oauth2Config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
		},
		Endpoint: google.Endpoint,
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if token.RefreshToken == "" {
		err = errors.New("refresh token is empty")
		slog.Info(err.Error())
		return nil, err
	}

	client := oauth2Config.Client(ctx, token)
	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	call := service.Channels.List([]string{"snippet"}).Mine(true)
	resp, err := call.Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, errors.New("no youtube channel on this google account")
	}

	channel := resp.Items[0]
	picture := ""
	if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
		picture = channel.Snippet.Thumbnails.Default.Url
	}

	return s.buildAccount(st.UserID, models.PlatformYouTube, token.AccessToken, token.RefreshToken,
		token.Expiry, channel.Id, channel.Snippet.Title, channel.Snippet.CustomUrl, picture)
}

func (s *platformService) linkedinCallback(ctx context.Context, code string, st *repository.OAuthState) (*models.SocialAccount, error) {
	creds := s.cfg.LinkedIn

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", creds.RedirectURI)
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, LINKEDIN_TOKEN_URL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token transfer.OAuthTokenResponse
	if err := doOAuthRequest(req, &token); err != nil {
		return nil, err
	}

	userReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.linkedin.com/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	userReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var userInfo transfer.LinkedInUserInfo
	if err := doOAuthRequest(userReq, &userInfo); err != nil {
		return nil, err
	}

	return s.buildAccount(st.UserID, models.PlatformLinkedIn, token.AccessToken, token.RefreshToken,
		expiresAt(token.ExpiresIn), userInfo.Sub, userInfo.Name, userInfo.Email, userInfo.Picture)
}

func (s *platformService) facebookCallback(ctx context.Context, code string, st *repository.OAuthState) (*models.SocialAccount, error) {
	creds := s.cfg.Facebook

	result, err := fb.Get("/oauth/access_token", fb.Params{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"redirect_uri":  creds.RedirectURI,
		"code":          code,
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var userToken string
	if err := result.DecodeField("access_token", &userToken); err != nil {
		return nil, err
	}

	// Posting happens as a page, so swap the user token for the first
	// managed page and keep the page token.
	pagesResult, err := fb.Get("/me/accounts", fb.Params{"access_token": userToken})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var pages []transfer.FacebookPage
	if err := pagesResult.DecodeField("data", &pages); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errors.New("no facebook pages available on this account")
	}
	page := pages[0]

	pictureResult, err := fb.Get(fmt.Sprintf("/%s/picture", page.ID), fb.Params{
		"access_token": page.AccessToken,
		"redirect":     false,
	})
	picture := ""
	if err == nil {
		pictureResult.DecodeField("data.url", &picture)
	}

	// Page tokens inherit the user token's lifetime; give it the long
	// lived 60 days and let the refresh job extend it.
	return s.buildAccount(st.UserID, models.PlatformFacebook, page.AccessToken, page.AccessToken,
		time.Now().Add(60*24*time.Hour), page.ID, page.Name, page.Category, picture)
}

func (s *platformService) buildAccount(userID int64, platformName, accessToken, refreshToken string, tokenExpiresAt time.Time, accountID, name, username, picture string) (*models.SocialAccount, error) {
	encryptedAccessToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	encryptedRefreshToken := encryptedAccessToken
	if refreshToken != "" && refreshToken != accessToken {
		encryptedRefreshToken, err = utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	return &models.SocialAccount{
		UserID:          userID,
		Platform:        platformName,
		AccountID:       accountID,
		AccountName:     name,
		AccountUsername: username,
		ProfilePicture:  picture,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  tokenExpiresAt,
	}, nil
}

func doOAuthRequest(req *http.Request, out any) error {
	client := &http.Client{Timeout: 15 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("oauth request to %s failed with status %d: %s", req.URL.Host, resp.StatusCode, truncate(string(body), 300))
		slog.Info(err.Error())
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *platformService) credentials(platformName string) config.PlatformCredentials {
	switch platformName {
	case models.PlatformTwitter:
		return s.cfg.Twitter
	case models.PlatformInstagram:
		return s.cfg.Instagram
	case models.PlatformYouTube:
		return s.cfg.YouTube
	case models.PlatformLinkedIn:
		return s.cfg.LinkedIn
	case models.PlatformFacebook:
		return s.cfg.Facebook
	}
	return config.PlatformCredentials{}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	accountInfo, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Unable to get social account info")
	}

	// Best effort: a revoke that fails (token already dead, provider
	// hiccup) should not keep the account stuck as connected.
	if accountInfo != nil {
		decryptedAccessToken, err := utils.Decrypt(accountInfo.AccessToken, []byte(s.cfg.SecretKey))
		if err == nil {
			if err := s.revokeAccess(ctx, accountInfo.Platform, decryptedAccessToken); err != nil {
				slog.Info(err.Error())
			}
		}
	}

	err = s.sa.SetStatus(ctx, accountID, models.AccountStatusDisconnected)
	if err != nil {
		return fmt.Errorf("Error disconnecting account")
	}

	return nil
}

func (s *platformService) revokeAccess(ctx context.Context, platformName, accessToken string) error {
	switch platformName {
	case models.PlatformYouTube:
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			"https://oauth2.googleapis.com/revoke", strings.NewReader("token="+accessToken))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return doRevoke(req)

	case models.PlatformTwitter:
		data := url.Values{}
		data.Set("token", accessToken)
		data.Set("token_type_hint", "access_token")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			"https://api.twitter.com/2/oauth2/revoke", strings.NewReader(data.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(s.cfg.Twitter.ClientID, s.cfg.Twitter.ClientSecret)
		return doRevoke(req)
	}

	return nil
}

func doRevoke(req *http.Request) error {
	client := &http.Client{Timeout: 15 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}

// expiresAt converts a token lifetime in seconds to an absolute deadline.
func expiresAt(expiresIn int64) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
