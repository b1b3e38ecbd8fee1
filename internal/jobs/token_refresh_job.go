package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/service"
)

type TokenRefreshJob struct {
	sr     repository.SocialAccountRepository
	tokens service.TokenService
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:     sr,
		tokens: tokens,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListByTimeInterval(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.tokens.Refresh(ctx, acc); err != nil {
				slog.Info("Unable to refresh tokens",
					slog.String("platform", acc.Platform),
					slog.Int64("account_id", acc.ID),
					slog.String("error", err.Error()))
			}
		}(acc)
	}

	wg.Wait()
}
