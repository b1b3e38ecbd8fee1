package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStateTTL = 10 * time.Minute

var ErrStateNotFound = errors.New("oauth state not found or expired")

// OAuthState is what a connect flow stashes between the redirect to the
// platform and the callback. The PKCE verifier is only set for platforms
// that require it.
type OAuthState struct {
	UserID       int64  `json:"user_id"`
	Platform     string `json:"platform"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

type OAuthStateStore interface {
	Save(ctx context.Context, state string, st *OAuthState) error
	Consume(ctx context.Context, state string) (*OAuthState, error)
}

type oauthStateStore struct {
	rdb *redis.Client
}

func NewOAuthStateStore(rdb *redis.Client) OAuthStateStore {
	return &oauthStateStore{rdb: rdb}
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

func (s *oauthStateStore) Save(ctx context.Context, state string, st *OAuthState) error {
	data, err := json.Marshal(st)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	err = s.rdb.Set(ctx, stateKey(state), data, oauthStateTTL).Err()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Consume returns the stored state and deletes it so a state value can
// only be redeemed once.
func (s *oauthStateStore) Consume(ctx context.Context, state string) (*OAuthState, error) {
	data, err := s.rdb.GetDel(ctx, stateKey(state)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrStateNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	var st OAuthState
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &st, nil
}
