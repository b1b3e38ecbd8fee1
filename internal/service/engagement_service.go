package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	engagementPostLimit = 20
	engagementWindow    = 30
)

// EngagementService pulls recent performance numbers for the user's own
// connected accounts and stores a snapshot per sync so trends can be
// read back over time.
type EngagementService interface {
	SyncAccount(ctx context.Context, userID, accountID int64) (*transfer.AccountEngagement, error)
	History(ctx context.Context, userID, accountID int64, limit int) ([]*models.EngagementSnapshot, error)
}

type engagementService struct {
	sa       repository.SocialAccountRepository
	er       repository.EngagementRepository
	tokens   TokenService
	registry *platform.Registry
}

func NewEngagementService(
	sa repository.SocialAccountRepository,
	er repository.EngagementRepository,
	tokens TokenService,
	registry *platform.Registry) EngagementService {
	return &engagementService{
		sa:       sa,
		er:       er,
		tokens:   tokens,
		registry: registry,
	}
}

func (s *engagementService) SyncAccount(ctx context.Context, userID, accountID int64) (*transfer.AccountEngagement, error) {
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(account.Platform)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	session := &platform.Session{
		AccessToken: accessToken,
		AccountID:   account.AccountID,
	}

	profile, err := adapter.GetProfile(ctx, session, nil)
	if err != nil {
		return nil, err
	}

	items, err := adapter.GetContent(ctx, session, nil, &platform.ContentQuery{
		Limit:     engagementPostLimit,
		SinceDays: engagementWindow,
	})
	if err != nil {
		return nil, err
	}

	posts := postsFromItems(items, engagementWindow)
	summary := buildEngagementSummary(posts, profile.Followers)

	snapshot := &models.EngagementSnapshot{
		UserID:         userID,
		AccountID:      account.ID,
		Platform:       account.Platform,
		Followers:      profile.Followers,
		PostsAnalyzed:  summary.PostsAnalyzed,
		AvgLikes:       summary.AvgLikes,
		AvgComments:    summary.AvgComments,
		AvgShares:      summary.AvgShares,
		EngagementRate: summary.EngagementRate,
		Trend:          summary.Trend,
	}
	if _, err := s.er.Create(ctx, snapshot); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var totals platform.EngagementMetrics
	for _, item := range items {
		totals.Likes += item.Metrics.Likes
		totals.Comments += item.Metrics.Comments
		totals.Shares += item.Metrics.Shares
		totals.Views += item.Metrics.Views
	}

	return &transfer.AccountEngagement{
		AccountID:   account.ID,
		Platform:    account.Platform,
		Username:    account.AccountUsername,
		Followers:   profile.Followers,
		Summary:     summary,
		RecentPosts: posts,
		Metrics:     totals,
		CollectedAt: time.Now().UTC(),
	}, nil
}

func (s *engagementService) History(ctx context.Context, userID, accountID int64, limit int) ([]*models.EngagementSnapshot, error) {
	if _, err := s.ownedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 30
	}
	return s.er.ListByAccountID(ctx, accountID, limit)
}

func (s *engagementService) ownedAccount(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error) {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("social account doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		err = errors.New("social account doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return account, nil
}
