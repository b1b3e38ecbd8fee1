package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

type fakeApiKeyRepo struct {
	keys   []*models.ApiKey
	nextID int64
}

func (f *fakeApiKeyRepo) GetByKey(ctx context.Context, apiKey string) (*int64, bool, error) {
	for _, k := range f.keys {
		if k.ApiKey == apiKey {
			id := k.UserID
			return &id, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeApiKeyRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	var out []*models.ApiKey
	for _, k := range f.keys {
		if k.UserID == userID {
			row := *k
			out = append(out, &row)
		}
	}
	return out, nil
}

func (f *fakeApiKeyRepo) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	f.nextID++
	row := *apiKey
	row.ID = f.nextID
	f.keys = append(f.keys, &row)
	return f.nextID, nil
}

func (f *fakeApiKeyRepo) CheckByUserID(ctx context.Context, keyID, userID int64) (bool, error) {
	for _, k := range f.keys {
		if k.ID == keyID && k.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeApiKeyRepo) Remove(ctx context.Context, id int64) error {
	for i, k := range f.keys {
		if k.ID == id {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestCreateApiKeyReturnsPrefixedSecret(t *testing.T) {
	repo := &fakeApiKeyRepo{}
	svc := NewApiKeyService(repo)

	key, err := svc.Create(context.Background(), 7, " CI runner ")
	require.NoError(t, err)

	assert.Equal(t, int64(7), key.UserID)
	assert.Equal(t, "CI runner", key.Name)
	assert.True(t, strings.HasPrefix(key.ApiKey, utils.APIKeyPrefix))
	assert.NotZero(t, key.ID)

	userID, err := svc.GetUserID(context.Background(), key.ApiKey)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestCreateApiKeyDefaultsName(t *testing.T) {
	svc := NewApiKeyService(&fakeApiKeyRepo{})

	key, err := svc.Create(context.Background(), 7, "")
	require.NoError(t, err)
	assert.Equal(t, "default", key.Name)
}

func TestCreateApiKeyEnforcesLimit(t *testing.T) {
	repo := &fakeApiKeyRepo{}
	svc := NewApiKeyService(repo)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), 7, "")
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), 7, "one too many")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 5 API keys")

	// The cap is per user, other users are unaffected.
	_, err = svc.Create(context.Background(), 8, "")
	assert.NoError(t, err)
}

func TestListMasksSecrets(t *testing.T) {
	repo := &fakeApiKeyRepo{}
	svc := NewApiKeyService(repo)

	created, err := svc.Create(context.Background(), 7, "zapier")
	require.NoError(t, err)

	keys, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, utils.MaskAPIKey(created.ApiKey), keys[0].ApiKey)
	assert.NotEqual(t, created.ApiKey, keys[0].ApiKey)
	assert.Contains(t, keys[0].ApiKey, "...")

	// Masking the listing must not break lookups with the real key.
	userID, err := svc.GetUserID(context.Background(), created.ApiKey)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestGetUserIDUnknownKey(t *testing.T) {
	svc := NewApiKeyService(&fakeApiKeyRepo{})

	_, err := svc.GetUserID(context.Background(), "sf_nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown API key")
}

func TestRemoveAPIKey(t *testing.T) {
	repo := &fakeApiKeyRepo{}
	svc := NewApiKeyService(repo)

	created, err := svc.Create(context.Background(), 7, "")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveAPIKey(context.Background(), 7, created.ID))

	keys, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRemoveAPIKeyValidations(t *testing.T) {
	repo := &fakeApiKeyRepo{}
	svc := NewApiKeyService(repo)

	created, err := svc.Create(context.Background(), 7, "")
	require.NoError(t, err)

	assert.Error(t, svc.RemoveAPIKey(context.Background(), 0, created.ID))
	assert.Error(t, svc.RemoveAPIKey(context.Background(), 7, 0))

	// Another user's key is invisible, not removable.
	err = svc.RemoveAPIKey(context.Background(), 8, created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
}
