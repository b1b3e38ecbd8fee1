package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

// refreshSkew refreshes tokens slightly before they expire so a publish
// that starts now does not race the expiry.
const refreshSkew = 30 * time.Second

// TokenService hands out usable access tokens for connected accounts,
// refreshing them when they are close to expiry. Refreshes for the same
// account are serialized so the publish path and the cron job cannot
// rotate the same token twice.
type TokenService interface {
	AccessToken(ctx context.Context, account *models.SocialAccount) (string, error)
	Refresh(ctx context.Context, account *models.SocialAccount) error
}

type tokenService struct {
	cfg      config.Config
	sa       repository.SocialAccountRepository
	registry *platform.Registry

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewTokenService(cfg config.Config, sa repository.SocialAccountRepository, registry *platform.Registry) TokenService {
	return &tokenService{
		cfg:      cfg,
		sa:       sa,
		registry: registry,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *tokenService) accountLock(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

func (s *tokenService) AccessToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	if account == nil {
		return "", errors.New("social account is nil")
	}

	if account.AccountStatus == models.AccountStatusReconnectNeeded || account.AccountStatus == models.AccountStatusDisconnected {
		return "", fmt.Errorf("account %d needs to be reconnected", account.ID)
	}

	if !account.TokenExpiresAt.IsZero() && time.Until(account.TokenExpiresAt) < refreshSkew {
		if err := s.Refresh(ctx, account); err != nil {
			return "", err
		}
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return accessToken, nil
}

func (s *tokenService) Refresh(ctx context.Context, account *models.SocialAccount) error {
	if account == nil {
		return errors.New("social account is nil")
	}

	lock := s.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished the refresh while we waited.
	fresh, err := s.sa.GetByID(ctx, account.ID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("social account %d no longer exists", account.ID)
	}
	if !fresh.TokenExpiresAt.IsZero() && time.Until(fresh.TokenExpiresAt) >= refreshSkew {
		*account = *fresh
		return nil
	}

	adapter, err := s.registry.Get(fresh.Platform)
	if err != nil {
		return err
	}

	refreshToken, err := utils.Decrypt(fresh.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	token, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		if platform.KindOf(err) == platform.KindAuth {
			if stErr := s.sa.SetStatus(ctx, fresh.ID, models.AccountStatusReconnectNeeded); stErr != nil {
				slog.Info(stErr.Error())
			}
		}
		return err
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	var encryptedRefresh string
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	updated := &models.SocialAccount{
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		TokenExpiresAt: token.ExpiresAt,
	}
	err = s.sa.SetToken(ctx, fresh.UserID, fresh.AccessToken, updated)
	if err != nil {
		return err
	}

	account.AccessToken = encryptedAccess
	if encryptedRefresh != "" {
		account.RefreshToken = encryptedRefresh
	}
	account.TokenExpiresAt = token.ExpiresAt
	account.AccountStatus = models.AccountStatusActive

	return nil
}
