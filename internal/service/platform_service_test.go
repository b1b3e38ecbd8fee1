package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
)

func oauthTestConfig() config.Config {
	creds := func(name string) config.PlatformCredentials {
		return config.PlatformCredentials{
			ClientID:     name + "-client-id",
			ClientSecret: name + "-client-secret",
			RedirectURI:  "https://app.example.com/auth/callback",
		}
	}
	return config.Config{
		Twitter:   creds("twitter"),
		Instagram: creds("instagram"),
		YouTube:   creds("youtube"),
		LinkedIn:  creds("linkedin"),
		Facebook:  creds("facebook"),
		SecretKey: "0123456789abcdef0123456789abcdef",
	}
}

func newTestPlatformService(states *fakeStateStore) *platformService {
	return &platformService{
		cfg:    oauthTestConfig(),
		sa:     &fakeAccountRepo{},
		states: states,
	}
}

func TestGetAuthURLTwitterUsesPKCE(t *testing.T) {
	states := &fakeStateStore{}
	svc := newTestPlatformService(states)

	rawURL, err := svc.GetAuthURL(context.Background(), models.PlatformTwitter, 7)
	require.NoError(t, err)

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "twitter-client-id", query.Get("client_id"))
	assert.Equal(t, "https://app.example.com/auth/callback", query.Get("redirect_uri"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	require.NotEmpty(t, query.Get("code_challenge"))

	state := query.Get("state")
	require.NotEmpty(t, state)

	saved, ok := states.saved[state]
	require.True(t, ok, "state must be stored for the callback")
	assert.Equal(t, int64(7), saved.UserID)
	assert.Equal(t, models.PlatformTwitter, saved.Platform)
	require.NotEmpty(t, saved.CodeVerifier)
	assert.Equal(t, codeChallenge(saved.CodeVerifier), query.Get("code_challenge"))
}

func TestGetAuthURLPerPlatform(t *testing.T) {
	cases := []struct {
		platform string
		base     string
	}{
		{models.PlatformTwitter, TWITTER_AUTH_URL},
		{models.PlatformInstagram, INSTAGRAM_AUTH_URL},
		{models.PlatformYouTube, GOOGLE_AUTH_URL},
		{models.PlatformLinkedIn, LINKEDIN_AUTH_URL},
		{models.PlatformFacebook, FACEBOOK_AUTH_URL},
	}

	for _, tc := range cases {
		states := &fakeStateStore{}
		svc := newTestPlatformService(states)

		rawURL, err := svc.GetAuthURL(context.Background(), tc.platform, 7)
		require.NoError(t, err, tc.platform)
		assert.True(t, strings.HasPrefix(rawURL, tc.base+"?"), tc.platform)

		parsed, err := url.Parse(rawURL)
		require.NoError(t, err, tc.platform)
		query := parsed.Query()
		assert.NotEmpty(t, query.Get("scope"), tc.platform)
		assert.NotEmpty(t, query.Get("state"), tc.platform)

		saved := states.saved[query.Get("state")]
		require.NotNil(t, saved, tc.platform)
		assert.Equal(t, tc.platform, saved.Platform, tc.platform)
	}
}

func TestGetAuthURLUnknownPlatform(t *testing.T) {
	svc := newTestPlatformService(&fakeStateStore{})

	_, err := svc.GetAuthURL(context.Background(), "tiktok", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}

func TestGetAuthURLUnconfiguredCredentials(t *testing.T) {
	svc := newTestPlatformService(&fakeStateStore{})
	svc.cfg.LinkedIn = config.PlatformCredentials{
		ClientID:     "your-linkedin-client-id",
		ClientSecret: "your-linkedin-client-secret",
	}

	_, err := svc.GetAuthURL(context.Background(), models.PlatformLinkedIn, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestHandleCallbackRejectsEmptyParams(t *testing.T) {
	svc := newTestPlatformService(&fakeStateStore{})

	_, err := svc.HandleCallback(context.Background(), "", "some-state")
	require.Error(t, err)

	_, err = svc.HandleCallback(context.Background(), "some-code", "")
	require.Error(t, err)
}

func TestHandleCallbackUnknownState(t *testing.T) {
	svc := newTestPlatformService(&fakeStateStore{})

	_, err := svc.HandleCallback(context.Background(), "some-code", "never-saved")
	require.ErrorIs(t, err, repository.ErrStateNotFound)
}

func TestHandleCallbackStateIsSingleUse(t *testing.T) {
	states := &fakeStateStore{}
	svc := newTestPlatformService(states)

	// A state pointing at a platform the callback cannot handle still
	// burns the state on first use.
	require.NoError(t, states.Save(context.Background(), "st-1", &repository.OAuthState{UserID: 7, Platform: "tiktok"}))

	_, err := svc.HandleCallback(context.Background(), "some-code", "st-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")

	_, err = svc.HandleCallback(context.Background(), "some-code", "st-1")
	require.ErrorIs(t, err, repository.ErrStateNotFound)
}

func TestCodeChallengeIsDeterministic(t *testing.T) {
	challenge := codeChallenge("verifier-value")
	assert.Equal(t, challenge, codeChallenge("verifier-value"))
	assert.NotEqual(t, challenge, codeChallenge("other-verifier"))
	// RawURLEncoding leaves no padding behind.
	assert.NotContains(t, challenge, "=")
}

func TestListRequiresUserID(t *testing.T) {
	svc := newTestPlatformService(&fakeStateStore{})

	_, err := svc.List(context.Background(), 0)
	require.Error(t, err)
}

func TestDeleteValidations(t *testing.T) {
	svc := newTestPlatformService(&fakeStateStore{})

	require.Error(t, svc.Delete(context.Background(), 0, 5))
	require.Error(t, svc.Delete(context.Background(), 7, 0))
}

func TestDeleteDisconnectsAccount(t *testing.T) {
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{
		5: {ID: 5, UserID: 7, Platform: models.PlatformLinkedIn, AccessToken: "opaque"},
	}}
	svc := newTestPlatformService(&fakeStateStore{})
	svc.sa = accounts

	require.NoError(t, svc.Delete(context.Background(), 7, 5))
	assert.Equal(t, models.AccountStatusDisconnected, accounts.statuses[5])
}
