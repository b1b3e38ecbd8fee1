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
	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	maxCompetitorURLs = 10
	collectBatchSize  = 3
	interBatchDelay   = 2 * time.Second

	defaultMaxPosts       = 20
	maxPostsCap           = 50
	defaultTimePeriodDays = 30
)

// CompetitorService collects public profile and post data for competitor
// URLs. Collection is polite: at most three profiles in flight at once
// and a pause between batches so we do not hammer the platform APIs.
type CompetitorService interface {
	Collect(ctx context.Context, userID int64, urls []string, opts *transfer.CollectionOptions) (*transfer.CompetitorCollection, error)
}

type competitorService struct {
	cfg      config.Config
	sa       repository.SocialAccountRepository
	tokens   TokenService
	cache    repository.SnapshotCache
	registry *platform.Registry
}

func NewCompetitorService(
	cfg config.Config,
	sa repository.SocialAccountRepository,
	tokens TokenService,
	cache repository.SnapshotCache,
	registry *platform.Registry) CompetitorService {
	return &competitorService{
		cfg:      cfg,
		sa:       sa,
		tokens:   tokens,
		cache:    cache,
		registry: registry,
	}
}

func (s *competitorService) Collect(ctx context.Context, userID int64, urls []string, opts *transfer.CollectionOptions) (*transfer.CompetitorCollection, error) {
	if len(urls) == 0 {
		return nil, errors.New("no competitor urls provided")
	}
	if len(urls) > maxCompetitorURLs {
		return nil, fmt.Errorf("too many competitor urls: %d (max %d)", len(urls), maxCompetitorURLs)
	}

	maxPosts := defaultMaxPosts
	timePeriodDays := defaultTimePeriodDays
	batchSize := collectBatchSize
	delay := interBatchDelay
	fresh := false
	var allowed []string
	if opts != nil {
		if opts.MaxPosts > 0 {
			maxPosts = opts.MaxPosts
		}
		if opts.TimePeriodDays > 0 {
			timePeriodDays = opts.TimePeriodDays
		}
		if opts.BatchSize > 0 {
			batchSize = opts.BatchSize
		}
		if opts.BatchDelay > 0 {
			delay = opts.BatchDelay
		}
		fresh = opts.FetchRealTimeData
		allowed = opts.Platforms
	}
	if maxPosts > maxPostsCap {
		maxPosts = maxPostsCap
	}

	collection := &transfer.CompetitorCollection{
		CollectedAt: time.Now().UTC(),
	}

	pending := urls
	if len(allowed) > 0 {
		pending = make([]string, 0, len(urls))
		for _, rawURL := range urls {
			if failure := platformExcluded(rawURL, allowed); failure != nil {
				collection.Failures = append(collection.Failures, failure)
				continue
			}
			pending = append(pending, rawURL)
		}
	}

	var mu sync.Mutex

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}

		var wg sync.WaitGroup
		for _, rawURL := range pending[start:end] {
			wg.Add(1)
			go func(rawURL string) {
				defer wg.Done()

				snapshot, failure := s.collectOne(ctx, userID, rawURL, maxPosts, timePeriodDays, fresh)

				mu.Lock()
				if failure != nil {
					collection.Failures = append(collection.Failures, failure)
				} else {
					collection.Competitors = append(collection.Competitors, snapshot)
				}
				mu.Unlock()
			}(rawURL)
		}
		wg.Wait()

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return collection, nil
}

// platformExcluded reports a structured failure when the URL's platform is
// not in the requested platform filter. URLs that do not parse are left for
// collectOne so the failure carries the parse error instead.
func platformExcluded(rawURL string, allowed []string) *transfer.CompetitorFailure {
	ref, err := platform.ParseProfileURL(rawURL)
	if err != nil {
		return nil
	}
	for _, name := range allowed {
		if name == ref.Platform {
			return nil
		}
	}
	return &transfer.CompetitorFailure{
		URL:       rawURL,
		Platform:  ref.Platform,
		ErrorKind: string(platform.KindRejected),
		Message:   fmt.Sprintf("platform %s excluded by request filter", ref.Platform),
	}
}

func (s *competitorService) collectOne(ctx context.Context, userID int64, rawURL string, maxPosts, timePeriodDays int, fresh bool) (*transfer.CompetitorSnapshot, *transfer.CompetitorFailure) {
	ref, err := platform.ParseProfileURL(rawURL)
	if err != nil {
		return nil, &transfer.CompetitorFailure{
			URL:       rawURL,
			ErrorKind: string(platform.KindRejected),
			Message:   err.Error(),
		}
	}

	if !fresh {
		cached, err := s.cache.Get(ctx, rawURL, maxPosts, timePeriodDays)
		if err != nil {
			slog.Info(err.Error())
		}
		if cached != nil {
			cached.FromCache = true
			return cached, nil
		}
	}

	adapter, err := s.registry.Get(ref.Platform)
	if err != nil {
		return nil, failureFrom(rawURL, ref.Platform, err)
	}

	session, err := s.sessionFor(ctx, userID, ref.Platform)
	if err != nil {
		return nil, failureFrom(rawURL, ref.Platform, err)
	}

	profile, err := adapter.GetProfile(ctx, session, ref)
	if err != nil {
		return nil, failureFrom(rawURL, ref.Platform, err)
	}

	snapshot := &transfer.CompetitorSnapshot{
		URL:         rawURL,
		Platform:    ref.Platform,
		Handle:      profileHandle(ref, profile),
		Profile:     profileDTO(profile),
		CollectedAt: time.Now().UTC(),
	}

	if profile.Private {
		snapshot.Warnings = append(snapshot.Warnings, "profile is private; only public profile fields were collected")
		finishSnapshot(snapshot, nil)
		s.storeSnapshot(ctx, snapshot, maxPosts, timePeriodDays)
		return snapshot, nil
	}

	items, err := adapter.GetContent(ctx, session, ref, &platform.ContentQuery{
		Limit:     maxPosts,
		SinceDays: timePeriodDays,
	})
	if err != nil {
		if platform.KindOf(err) == platform.KindUnsupported {
			snapshot.Warnings = append(snapshot.Warnings, fmt.Sprintf("post data unavailable: %v", err))
		} else {
			snapshot.Warnings = append(snapshot.Warnings, fmt.Sprintf("collecting posts failed: %v", err))
		}
		finishSnapshot(snapshot, nil)
		s.storeSnapshot(ctx, snapshot, maxPosts, timePeriodDays)
		return snapshot, nil
	}

	posts := postsFromItems(items, timePeriodDays)
	finishSnapshot(snapshot, posts)
	s.storeSnapshot(ctx, snapshot, maxPosts, timePeriodDays)

	return snapshot, nil
}

// sessionFor builds the read session for public collection. Twitter and
// youtube can run on app level credentials; the graph style platforms
// need a connected account of the same platform to read through.
func (s *competitorService) sessionFor(ctx context.Context, userID int64, platformName string) (*platform.Session, error) {
	switch platformName {
	case models.PlatformTwitter:
		if s.cfg.TwitterBearerToken != "" {
			return &platform.Session{AccessToken: s.cfg.TwitterBearerToken}, nil
		}
	case models.PlatformYouTube:
		// The adapter falls back to the API key when the session is empty.
		return &platform.Session{}, nil
	}

	account, err := s.sa.GetByUserPlatform(ctx, userID, platformName)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &platform.Error{
			Platform: platformName,
			Op:       "collect",
			Kind:     platform.KindConfig,
			Message:  fmt.Sprintf("connect a %s account to analyze %s profiles", platformName, platformName),
		}
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	return &platform.Session{
		AccessToken: accessToken,
		AccountID:   account.AccountID,
	}, nil
}

func (s *competitorService) storeSnapshot(ctx context.Context, snapshot *transfer.CompetitorSnapshot, maxPosts, timePeriodDays int) {
	if err := s.cache.Set(ctx, snapshot, maxPosts, timePeriodDays); err != nil {
		slog.Info(err.Error())
	}
}

func failureFrom(rawURL, platformName string, err error) *transfer.CompetitorFailure {
	kind := platform.KindOf(err)
	if kind == "" {
		kind = platform.KindTransient
	}
	return &transfer.CompetitorFailure{
		URL:       rawURL,
		Platform:  platformName,
		ErrorKind: string(kind),
		Message:   err.Error(),
	}
}

func profileHandle(ref *platform.ProfileRef, profile *platform.Profile) string {
	if profile.Username != "" {
		return profile.Username
	}
	return ref.Handle
}

func profileDTO(p *platform.Profile) *transfer.CompetitorProfile {
	return &transfer.CompetitorProfile{
		AccountID:   p.AccountID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		PictureURL:  p.PictureURL,
		Followers:   p.Followers,
		Following:   p.Following,
		PostCount:   p.PostCount,
		Verified:    p.Verified,
		Private:     p.Private,
	}
}

func postsFromItems(items []*platform.ContentItem, timePeriodDays int) []*transfer.CompetitorPost {
	cutoff := time.Now().AddDate(0, 0, -timePeriodDays)

	posts := make([]*transfer.CompetitorPost, 0, len(items))
	for _, item := range items {
		if !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
			continue
		}
		posts = append(posts, &transfer.CompetitorPost{
			ExternalID:  item.ExternalID,
			Type:        item.Type,
			Text:        item.Text,
			Hashtags:    item.Hashtags,
			PublishedAt: item.PublishedAt,
			URL:         item.URL,
			Likes:       item.Metrics.Likes,
			Comments:    item.Metrics.Comments,
			Shares:      item.Metrics.Shares,
			Views:       item.Metrics.Views,
		})
	}

	return posts
}

// finishSnapshot attaches the aggregate sections once posts are known.
func finishSnapshot(snapshot *transfer.CompetitorSnapshot, posts []*transfer.CompetitorPost) {
	snapshot.Posts = posts
	snapshot.ContentPatterns = buildContentPatterns(posts)

	var followers int64
	if snapshot.Profile != nil {
		followers = snapshot.Profile.Followers
	}
	snapshot.Engagement = buildEngagementSummary(posts, followers)
	snapshot.DataQuality = scoreDataQuality(snapshot)
}
