package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

// maxKeysPerUser bounds how many live keys a single user can hold.
const maxKeysPerUser = 5

type ApiKeyService interface {
	Create(ctx context.Context, userID int64, name string) (*models.ApiKey, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

// Create mints a new key and returns it with the raw secret set. This is
// the only place the full key is ever handed out; List masks it.
func (s *apiKeyService) Create(ctx context.Context, userID int64, name string) (*models.ApiKey, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(keys) >= maxKeysPerUser {
		err = fmt.Errorf("at most %d API keys can be active per user", maxKeysPerUser)
		slog.Info(err.Error())
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		slog.Info(err.Error())
		return nil, errors.New("could not generate API key")
	}

	apiKey := &models.ApiKey{
		UserID: userID,
		Name:   name,
		ApiKey: key,
	}

	id, err := s.k.Create(ctx, apiKey)
	if err != nil {
		return nil, errors.New("could not save API key")
	}
	apiKey.ID = id

	return apiKey, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, isExist, err := s.k.GetByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}

	if !isExist {
		return 0, errors.New("unknown API key")
	}

	return *userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.New("could not list API keys")
	}

	for _, key := range apiKeys {
		key.ApiKey = utils.MaskAPIKey(key.ApiKey)
	}
	return apiKeys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("user id is not valid")
		slog.Info(err.Error())
		return err
	}

	if keyID == 0 {
		err = errors.New("key id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.k.CheckByUserID(ctx, keyID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("key doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.k.Remove(ctx, keyID)
	if err != nil {
		return err
	}
	return nil
}
