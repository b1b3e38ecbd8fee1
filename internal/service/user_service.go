package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
)

// UserProfile is the account page payload: the user row plus a summary of
// the social accounts hanging off it.
type UserProfile struct {
	*models.User
	ConnectedAccounts int `json:"connected_accounts"`
	ReconnectNeeded   int `json:"reconnect_needed"`
}

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*UserProfile, error)
	RemoveUser(ctx context.Context, userID int64) error
}

type userService struct {
	u  repository.UserRepository
	sa repository.SocialAccountRepository
}

func NewUserService(u repository.UserRepository, sa repository.SocialAccountRepository) UserService {
	return &userService{
		u:  u,
		sa: sa,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*UserProfile, error) {
	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("error getting user info")
	}

	if !isExist {
		err = errors.New("user not found")
		slog.Info(err.Error())
		return nil, err
	}

	profile := &UserProfile{User: user}

	// The summary is best effort, the profile is still useful without it.
	accounts, err := s.sa.ListByUserID(ctx, id)
	if err != nil {
		slog.Info(err.Error())
		return profile, nil
	}

	for _, account := range accounts {
		if account.AccountStatus == models.AccountStatusDisconnected {
			continue
		}
		profile.ConnectedAccounts++
		if account.AccountStatus == models.AccountStatusReconnectNeeded {
			profile.ReconnectNeeded++
		}
	}
	return profile, nil
}

// RemoveUser deletes the user row. Social accounts, posts and API keys go
// with it through the schema's ON DELETE CASCADE constraints.
func (s *userService) RemoveUser(ctx context.Context, userID int64) error {
	err := s.u.Remove(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		return errors.New("could not remove user")
	}
	return nil
}
