package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

// Fakes shared by the service tests. Each fake records the calls the tests
// care about and returns zero values everywhere else.

type fakePostRepo struct {
	posts map[int64]*models.Post

	published []publishedCall
	failed    []failedCall
}

type publishedCall struct {
	postID     int64
	externalID string
	data       []byte
	retryCount int
}

type failedCall struct {
	postID     int64
	lastError  string
	retryCount int
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	return nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, postID int64, platformPostID string, platformData []byte, retryCount int) error {
	f.published = append(f.published, publishedCall{postID, platformPostID, platformData, retryCount})
	if post, ok := f.posts[postID]; ok {
		post.Status = models.PostStatusPublished
		post.PlatformPostID = platformPostID
		post.RetryCount = retryCount
	}
	return nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, postID int64, lastError string, retryCount int) error {
	f.failed = append(f.failed, failedCall{postID, lastError, retryCount})
	if post, ok := f.posts[postID]; ok {
		post.Status = models.PostStatusFailed
		post.LastError = lastError
		post.RetryCount = retryCount
	}
	return nil
}

func (f *fakePostRepo) ListReadyForPublishing(ctx context.Context, cutoff time.Time, limit int) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return true, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error { return nil }

type fakeAccountRepo struct {
	byPlatform map[string]*models.SocialAccount
	byID       map[int64]*models.SocialAccount
	statuses   map[int64]string
	list       []*models.SocialAccount
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return sa.ID, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return f.byID[id], nil
}

func (f *fakeAccountRepo) GetByUserPlatform(ctx context.Context, userID int64, platformName string) (*models.SocialAccount, error) {
	return f.byPlatform[platformName], nil
}

func (f *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return f.list, nil
}

func (f *fakeAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return true, nil
}

func (f *fakeAccountRepo) SetToken(ctx context.Context, userID int64, oldAccessToken string, sa *models.SocialAccount) error {
	return nil
}

func (f *fakeAccountRepo) SetStatus(ctx context.Context, id int64, status string) error {
	if f.statuses == nil {
		f.statuses = make(map[int64]string)
	}
	f.statuses[id] = status
	if account, ok := f.byID[id]; ok {
		account.AccountStatus = status
	}
	return nil
}

func (f *fakeAccountRepo) Remove(ctx context.Context, id int64) error { return nil }

type fakeUserRepo struct {
	users   map[int64]*models.User
	removed []int64
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	user, ok := f.users[id]
	return user, ok, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	return user.ID, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error { return nil }

func (f *fakeUserRepo) Remove(ctx context.Context, id int64) error {
	f.removed = append(f.removed, id)
	delete(f.users, id)
	return nil
}

type fakeHistoryRepo struct {
	entries []*models.PostingHistory
}

func (f *fakeHistoryRepo) GetByID(ctx context.Context, id int64) (*models.PostingHistory, error) {
	return nil, nil
}

func (f *fakeHistoryRepo) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	f.entries = append(f.entries, ph)
	return int64(len(f.entries)), nil
}

func (f *fakeHistoryRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.PostingHistory, error) {
	return nil, nil
}

func (f *fakeHistoryRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	return f.entries, nil
}

type fakeAssetRepo struct {
	byPost map[int64][]*models.MediaAsset
}

func (f *fakeAssetRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (f *fakeAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, nil
}

func (f *fakeAssetRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	return f.byPost[postID], nil
}

func (f *fakeAssetRepo) Remove(ctx context.Context, id int64) error { return nil }

type fakeMediaService struct {
	uploads map[int64]*platform.MediaUpload
	errs    map[int64]error
}

func (f *fakeMediaService) Resolve(ctx context.Context, asset *models.MediaAsset) (*platform.MediaUpload, error) {
	if err := f.errs[asset.ID]; err != nil {
		return nil, err
	}
	if upload, ok := f.uploads[asset.ID]; ok {
		return upload, nil
	}
	return &platform.MediaUpload{FileName: asset.FileName, MimeType: asset.FileType, Kind: asset.MediaKind}, nil
}

func (f *fakeMediaService) ResolveForPost(ctx context.Context, postID int64) ([]*platform.MediaUpload, error) {
	return nil, nil
}

type fakeTokenService struct {
	token      string
	err        error
	refreshErr error
}

func (f *fakeTokenService) AccessToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeTokenService) Refresh(ctx context.Context, account *models.SocialAccount) error {
	return f.refreshErr
}

// fakeAdapter scripts publish and read behavior per test. publishErrs is
// consumed one error per attempt; once drained, publishing succeeds.
type fakeAdapter struct {
	mu sync.Mutex

	name string

	uploadErr error
	uploads   int

	publishErrs []error
	publishes   int
	lastContent *platform.Content
	lastMedia   []*platform.MediaHandle
	result      *platform.PublishResult

	refreshToken *platform.Token
	refreshErr   error

	profile    *platform.Profile
	profileErr error
	items      []*platform.ContentItem
	contentErr error

	profileCalls int
	contentCalls int
}

func (f *fakeAdapter) Platform() string { return f.name }

func (f *fakeAdapter) UploadMedia(ctx context.Context, session *platform.Session, media *platform.MediaUpload) (*platform.MediaHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &platform.MediaHandle{ID: fmt.Sprintf("media-%d", f.uploads), Kind: media.Kind}, nil
}

func (f *fakeAdapter) Publish(ctx context.Context, session *platform.Session, content *platform.Content, media []*platform.MediaHandle) (*platform.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	f.lastContent = content
	f.lastMedia = media

	if len(f.publishErrs) > 0 {
		err := f.publishErrs[0]
		f.publishErrs = f.publishErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.result != nil {
		return f.result, nil
	}
	return &platform.PublishResult{ExternalID: "ext-1", URL: "https://example.com/ext-1"}, nil
}

func (f *fakeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.Token, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshToken != nil {
		return f.refreshToken, nil
	}
	return &platform.Token{AccessToken: "refreshed", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAdapter) GetProfile(ctx context.Context, session *platform.Session, ref *platform.ProfileRef) (*platform.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeAdapter) GetContent(ctx context.Context, session *platform.Session, ref *platform.ProfileRef, q *platform.ContentQuery) ([]*platform.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentCalls++
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return f.items, nil
}

type fakeSnapshotCache struct {
	mu        sync.Mutex
	snapshots map[string]*transfer.CompetitorSnapshot
	sets      int
}

func (f *fakeSnapshotCache) Get(ctx context.Context, url string, maxPosts, timePeriodDays int) (*transfer.CompetitorSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshots == nil {
		return nil, nil
	}
	return f.snapshots[url], nil
}

func (f *fakeSnapshotCache) Set(ctx context.Context, snapshot *transfer.CompetitorSnapshot, maxPosts, timePeriodDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshots == nil {
		f.snapshots = make(map[string]*transfer.CompetitorSnapshot)
	}
	f.snapshots[snapshot.URL] = snapshot
	f.sets++
	return nil
}

type fakeStateStore struct {
	saved map[string]*repository.OAuthState
}

func (f *fakeStateStore) Save(ctx context.Context, state string, st *repository.OAuthState) error {
	if f.saved == nil {
		f.saved = make(map[string]*repository.OAuthState)
	}
	f.saved[state] = st
	return nil
}

func (f *fakeStateStore) Consume(ctx context.Context, state string) (*repository.OAuthState, error) {
	st, ok := f.saved[state]
	if !ok {
		return nil, repository.ErrStateNotFound
	}
	delete(f.saved, state)
	return st, nil
}

type fakeCompetitorService struct {
	collection *transfer.CompetitorCollection
	err        error
	lastOpts   *transfer.CollectionOptions
}

func (f *fakeCompetitorService) Collect(ctx context.Context, userID int64, urls []string, opts *transfer.CollectionOptions) (*transfer.CompetitorCollection, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.collection, nil
}

type fakeAIClient struct {
	insights *transfer.AIInsights
	err      error
	payloads []*transfer.AIAnalysisPayload
}

func (f *fakeAIClient) AnalyzeCompetitors(ctx context.Context, payload *transfer.AIAnalysisPayload) (*transfer.AIInsights, error) {
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return nil, f.err
	}
	return f.insights, nil
}

type fakeAnalysisRepo struct {
	created []*models.AnalysisResult
}

func (f *fakeAnalysisRepo) Create(ctx context.Context, ar *models.AnalysisResult) (string, error) {
	f.created = append(f.created, ar)
	return ar.ID, nil
}

func (f *fakeAnalysisRepo) GetByID(ctx context.Context, id string) (*models.AnalysisResult, error) {
	for _, ar := range f.created {
		if ar.ID == id {
			return ar, nil
		}
	}
	return nil, nil
}

func (f *fakeAnalysisRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.AnalysisResult, error) {
	return f.created, nil
}

func (f *fakeAnalysisRepo) Remove(ctx context.Context, id string) error { return nil }

type fakeEngagementRepo struct {
	created []*models.EngagementSnapshot
}

func (f *fakeEngagementRepo) Create(ctx context.Context, es *models.EngagementSnapshot) (int64, error) {
	f.created = append(f.created, es)
	return int64(len(f.created)), nil
}

func (f *fakeEngagementRepo) GetLatestByAccountID(ctx context.Context, accountID int64) (*models.EngagementSnapshot, error) {
	if len(f.created) == 0 {
		return nil, nil
	}
	return f.created[len(f.created)-1], nil
}

func (f *fakeEngagementRepo) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.EngagementSnapshot, error) {
	return f.created, nil
}
