package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
	"github.com/maheshrc27/socialflow/pkg/retry"
)

const uploadConcurrency = 3

// PublishService runs the full publish pipeline for a post: resolve the
// connected account, refresh its token if needed, upload media, publish
// with retries, then record the outcome on the post and in history.
// Platform level failures land in the returned outcome, not in err; err
// is reserved for infrastructure problems (db, etc.) a queue may retry.
type PublishService interface {
	PublishPost(ctx context.Context, postID int64) (*transfer.PublishOutcome, error)
}

type publishService struct {
	pr       repository.PostRepository
	sa       repository.SocialAccountRepository
	ph       repository.PostingHistoryRepository
	ma       repository.MediaAssetRepository
	media    MediaService
	tokens   TokenService
	registry *platform.Registry
	policy   retry.Policy
}

func NewPublishService(
	pr repository.PostRepository,
	sa repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	ma repository.MediaAssetRepository,
	media MediaService,
	tokens TokenService,
	registry *platform.Registry) PublishService {
	return &publishService{
		pr:       pr,
		sa:       sa,
		ph:       ph,
		ma:       ma,
		media:    media,
		tokens:   tokens,
		registry: registry,
		policy:   retry.DefaultPolicy(),
	}
}

// mediaRequired lists the post types that cannot go out without at least
// one successfully uploaded media item.
var mediaRequired = map[string]map[string]bool{
	models.PlatformInstagram: {"image": true, "video": true, "carousel": true, "story": true, "reel": true},
	models.PlatformYouTube:   {"video": true, "short": true},
	models.PlatformFacebook:  {"photo": true, "video": true},
}

func requiresMedia(platformName, postType string) bool {
	types, ok := mediaRequired[platformName]
	if !ok {
		return false
	}
	return types[postType]
}

func (s *publishService) PublishPost(ctx context.Context, postID int64) (*transfer.PublishOutcome, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d not found", postID)
	}

	// Re-publishing an already published post is a no-op so a queue
	// retry or a duplicate request cannot double-post.
	if post.Status == models.PostStatusPublished {
		return &transfer.PublishOutcome{
			PostID:         post.ID,
			Status:         post.Status,
			PlatformPostID: post.PlatformPostID,
			PlatformData:   post.PlatformData,
		}, nil
	}

	account, err := s.sa.GetByUserPlatform(ctx, post.UserID, post.Platform)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return s.recordFailure(ctx, post, nil, 0, platform.KindConfig,
			fmt.Sprintf("no connected %s account", post.Platform))
	}

	adapter, err := s.registry.Get(post.Platform)
	if err != nil {
		return s.recordFailure(ctx, post, account, 0, platform.KindOf(err), err.Error())
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		return s.recordFailure(ctx, post, account, 0, failureKind(err), err.Error())
	}

	session := &platform.Session{
		AccessToken: accessToken,
		AccountID:   account.AccountID,
	}

	assets, err := s.ma.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	handles, warnings := s.uploadAll(ctx, adapter, session, assets)
	if len(assets) > 0 && len(handles) == 0 && requiresMedia(post.Platform, post.PostType) {
		return s.recordFailureWithWarnings(ctx, post, account, 0, platform.KindRejected,
			"all media uploads failed", warnings)
	}

	content := buildContent(post)

	var result *platform.PublishResult
	attempts, err := s.policy.Do(ctx, platform.IsRetryable, func(ctx context.Context) error {
		var publishErr error
		result, publishErr = adapter.Publish(ctx, session, content, handles)
		return publishErr
	})
	if err != nil {
		if platform.KindOf(err) == platform.KindAuth {
			if stErr := s.sa.SetStatus(ctx, account.ID, models.AccountStatusReconnectNeeded); stErr != nil {
				slog.Info(stErr.Error())
			}
		}
		return s.recordFailureWithWarnings(ctx, post, account, attempts, platform.KindOf(err), err.Error(), warnings)
	}

	var raw json.RawMessage
	if result.Raw != nil {
		raw, _ = json.Marshal(result.Raw)
	}

	// retry_count accumulates attempts beyond the first across publish runs.
	retries := post.RetryCount + max(attempts-1, 0)

	if err := s.pr.MarkPublished(ctx, post.ID, result.ExternalID, raw, retries); err != nil {
		return nil, err
	}

	history := models.PostingHistory{
		UserID:         post.UserID,
		PostID:         post.ID,
		AccountID:      account.ID,
		Platform:       post.Platform,
		Status:         models.HistoryStatusSuccess,
		Attempts:       attempts,
		PlatformPostID: result.ExternalID,
	}
	if _, err := s.ph.Create(ctx, &history); err != nil {
		slog.Info(err.Error())
	}

	return &transfer.PublishOutcome{
		PostID:         post.ID,
		Status:         models.PostStatusPublished,
		PlatformPostID: result.ExternalID,
		PostURL:        result.URL,
		PlatformData:   raw,
		Attempts:       attempts,
		Warnings:       warnings,
	}, nil
}

// uploadAll pushes every asset to the platform with a bounded number of
// concurrent uploads. Failed items are skipped and reported as warnings;
// order of the surviving handles follows the post's display order.
func (s *publishService) uploadAll(ctx context.Context, adapter platform.Adapter, session *platform.Session, assets []*models.MediaAsset) ([]*platform.MediaHandle, []string) {
	if len(assets) == 0 {
		return nil, nil
	}

	slots := make([]*platform.MediaHandle, len(assets))
	warnings := make([]string, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, uploadConcurrency)

	for i, asset := range assets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, asset *models.MediaAsset) {
			defer wg.Done()
			defer func() { <-semaphore }()

			upload, err := s.media.Resolve(ctx, asset)
			if err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("media %s skipped: %v", asset.FileName, err))
				mu.Unlock()
				return
			}

			var handle *platform.MediaHandle
			_, err = s.policy.Do(ctx, platform.IsRetryable, func(ctx context.Context) error {
				var upErr error
				handle, upErr = adapter.UploadMedia(ctx, session, upload)
				return upErr
			})
			if err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("media %s skipped: %v", asset.FileName, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			slots[i] = handle
			mu.Unlock()
		}(i, asset)
	}

	wg.Wait()

	handles := make([]*platform.MediaHandle, 0, len(assets))
	for _, h := range slots {
		if h != nil {
			handles = append(handles, h)
		}
	}

	return handles, warnings
}

// postExtras is platform specific input stored in the post's
// platform_data column at creation time.
type postExtras struct {
	Link        string   `json:"link,omitempty"`
	PollOptions []string `json:"poll_options,omitempty"`
	PollMinutes int      `json:"poll_minutes,omitempty"`
}

func buildContent(post *models.Post) *platform.Content {
	caption := post.Caption
	if caption == "" {
		caption = post.Text
	}
	if caption == "" {
		caption = post.Title
	}
	if post.PostType == "thread" && post.Text != "" {
		caption = post.Text
	}

	content := &platform.Content{
		PostType: post.PostType,
		Caption:  caption,
		Title:    post.Title,
	}

	if len(post.PlatformData) > 0 {
		var extras postExtras
		if err := json.Unmarshal(post.PlatformData, &extras); err == nil {
			content.Link = extras.Link
			content.PollOptions = extras.PollOptions
			content.PollMinutes = extras.PollMinutes
		}
	}

	return content
}

func failureKind(err error) platform.ErrorKind {
	if kind := platform.KindOf(err); kind != "" {
		return kind
	}
	return platform.KindAuth
}

func (s *publishService) recordFailure(ctx context.Context, post *models.Post, account *models.SocialAccount, attempts int, kind platform.ErrorKind, message string) (*transfer.PublishOutcome, error) {
	return s.recordFailureWithWarnings(ctx, post, account, attempts, kind, message, nil)
}

func (s *publishService) recordFailureWithWarnings(ctx context.Context, post *models.Post, account *models.SocialAccount, attempts int, kind platform.ErrorKind, message string, warnings []string) (*transfer.PublishOutcome, error) {
	// Config class failures never reach the provider, so they leave the
	// retry count alone; only attempts beyond the first count as retries.
	if err := s.pr.MarkFailed(ctx, post.ID, message, post.RetryCount+max(attempts-1, 0)); err != nil {
		return nil, err
	}

	history := models.PostingHistory{
		UserID:       post.UserID,
		PostID:       post.ID,
		Platform:     post.Platform,
		Status:       models.HistoryStatusFailed,
		Attempts:     attempts,
		ErrorMessage: message,
	}
	if account != nil {
		history.AccountID = account.ID
	}
	if _, err := s.ph.Create(ctx, &history); err != nil {
		slog.Info(err.Error())
	}

	return &transfer.PublishOutcome{
		PostID:       post.ID,
		Status:       models.PostStatusFailed,
		Attempts:     attempts,
		Warnings:     warnings,
		ErrorKind:    string(kind),
		ErrorMessage: message,
	}, nil
}
