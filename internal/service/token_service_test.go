package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func newTestTokenService(adapter *fakeAdapter, accounts *fakeAccountRepo) *tokenService {
	registry := platform.NewRegistry()
	if adapter != nil {
		registry.Register(adapter)
	}
	return &tokenService{
		cfg:      config.Config{SecretKey: testSecretKey},
		sa:       accounts,
		registry: registry,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func encryptedToken(t *testing.T, plaintext string) string {
	t.Helper()
	encrypted, err := utils.Encrypt([]byte(plaintext), []byte(testSecretKey))
	require.NoError(t, err)
	return encrypted
}

func tokenAccount(t *testing.T, expiresAt time.Time) *models.SocialAccount {
	return &models.SocialAccount{
		ID:             5,
		UserID:         7,
		Platform:       models.PlatformTwitter,
		AccountStatus:  models.AccountStatusActive,
		AccessToken:    encryptedToken(t, "stored-access"),
		RefreshToken:   encryptedToken(t, "stored-refresh"),
		TokenExpiresAt: expiresAt,
	}
}

func TestAccessTokenDecryptsStoredToken(t *testing.T) {
	account := tokenAccount(t, time.Now().Add(time.Hour))
	svc := newTestTokenService(&fakeAdapter{name: models.PlatformTwitter}, &fakeAccountRepo{})

	token, err := svc.AccessToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "stored-access", token)
}

func TestAccessTokenRefusesDisconnectedAccounts(t *testing.T) {
	svc := newTestTokenService(&fakeAdapter{name: models.PlatformTwitter}, &fakeAccountRepo{})

	for _, status := range []string{models.AccountStatusReconnectNeeded, models.AccountStatusDisconnected} {
		account := tokenAccount(t, time.Now().Add(time.Hour))
		account.AccountStatus = status

		_, err := svc.AccessToken(context.Background(), account)
		require.Error(t, err, status)
		assert.Contains(t, err.Error(), "reconnected", status)
	}
}

func TestAccessTokenNilAccount(t *testing.T) {
	svc := newTestTokenService(&fakeAdapter{name: models.PlatformTwitter}, &fakeAccountRepo{})

	_, err := svc.AccessToken(context.Background(), nil)
	require.Error(t, err)
}

func TestAccessTokenRefreshesExpiringToken(t *testing.T) {
	account := tokenAccount(t, time.Now().Add(5*time.Second))
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{account.ID: account}}
	adapter := &fakeAdapter{
		name:         models.PlatformTwitter,
		refreshToken: &platform.Token{AccessToken: "rotated-access", ExpiresAt: time.Now().Add(2 * time.Hour)},
	}
	svc := newTestTokenService(adapter, accounts)

	token, err := svc.AccessToken(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", token)
	assert.Equal(t, models.AccountStatusActive, account.AccountStatus)
	assert.True(t, account.TokenExpiresAt.After(time.Now().Add(time.Hour)))
}

func TestRefreshSkipsWhenAnotherCallerFinished(t *testing.T) {
	// The stored row is already fresh; the adapter would fail if asked.
	stored := tokenAccount(t, time.Now().Add(time.Hour))
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{stored.ID: stored}}
	adapter := &fakeAdapter{name: models.PlatformTwitter, refreshErr: assert.AnError}
	svc := newTestTokenService(adapter, accounts)

	stale := tokenAccount(t, time.Now().Add(time.Second))
	require.NoError(t, svc.Refresh(context.Background(), stale))
	assert.Equal(t, stored.TokenExpiresAt, stale.TokenExpiresAt)
	assert.Equal(t, stored.AccessToken, stale.AccessToken)
}

func TestRefreshAuthFailureFlagsReconnect(t *testing.T) {
	account := tokenAccount(t, time.Now().Add(time.Second))
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{account.ID: account}}
	adapter := &fakeAdapter{
		name: models.PlatformTwitter,
		refreshErr: &platform.Error{
			Platform: models.PlatformTwitter, Op: "refresh_token", Kind: platform.KindAuth, Message: "grant revoked",
		},
	}
	svc := newTestTokenService(adapter, accounts)

	err := svc.Refresh(context.Background(), account)
	require.Error(t, err)
	assert.Equal(t, models.AccountStatusReconnectNeeded, accounts.statuses[account.ID])
}

func TestRefreshUnknownAccount(t *testing.T) {
	svc := newTestTokenService(&fakeAdapter{name: models.PlatformTwitter}, &fakeAccountRepo{})

	err := svc.Refresh(context.Background(), tokenAccount(t, time.Now().Add(time.Second)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists")
}
