package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

const maxFilesPerPost = 10

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (*transfer.PostCreated, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	History(ctx context.Context, postID, userID int64) ([]*models.PostingHistory, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	ac repository.SocialAccountRepository
	ma repository.MediaAssetRepository
	pm repository.PostMediaRepository
	ph repository.PostingHistoryRepository
	r2 *R2Service
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ma repository.MediaAssetRepository,
	ac repository.SocialAccountRepository,
	pm repository.PostMediaRepository,
	ph repository.PostingHistoryRepository,
	r2 *R2Service) PostService {
	return &postService{
		db: db,
		pr: pr,
		ac: ac,
		ma: ma,
		pm: pm,
		ph: ph,
		r2: r2,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (*transfer.PostCreated, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return nil, err
	}

	if err := validateCreation(pc, len(files)); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	// The post targets one platform, so a connected account must exist
	// before anything is stored.
	account, err := s.ac.GetByUserPlatform(ctx, userID, pc.Platform)
	if err != nil {
		return nil, err
	}
	if account == nil {
		err = fmt.Errorf("no connected %s account", pc.Platform)
		slog.Info(err.Error())
		return nil, err
	}

	schedule, err := resolveSchedule(pc.ScheduledTime, pc.Timezone, time.Now())
	if err != nil {
		slog.Error(err.Error())
		return nil, err
	}

	platformData, err := marshalExtras(pc)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:        userID,
		Platform:      pc.Platform,
		PostType:      pc.PostType,
		Caption:       pc.Caption,
		Title:         pc.Title,
		Text:          pc.Text,
		ScheduledTime: schedule.At,
		Timezone:      pc.Timezone,
		Recurrence:    pc.Recurrence,
		Status:        schedule.Status,
		PlatformData:  platformData,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return nil, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &transfer.PostCreated{
		PostID:     postID,
		Status:     schedule.Status,
		Delay:      schedule.Delay,
		PublishNow: schedule.PublishNow,
	}, nil
}

type postSchedule struct {
	Status     string
	At         time.Time
	Delay      time.Duration
	PublishNow bool
}

// resolveSchedule decides what happens to a new post: drafts stay put,
// future times get queued with a delay, and times already in the past
// publish immediately instead of waiting for a scheduler pass that would
// fire right away anyway.
func resolveSchedule(value, timezone string, now time.Time) (postSchedule, error) {
	if value == "" {
		return postSchedule{Status: models.PostStatusDraft}, nil
	}

	at, err := parseScheduledTime(value, timezone)
	if err != nil {
		return postSchedule{}, err
	}

	schedule := postSchedule{
		Status: models.PostStatusScheduled,
		At:     at,
		Delay:  at.Sub(now),
	}
	if schedule.Delay <= 0 {
		schedule.Delay = 0
		schedule.PublishNow = true
	}
	return schedule, nil
}

// validateCreation checks the platform and content rules that do not
// need any IO: type table, content presence, poll shape, media counts.
func validateCreation(pc *transfer.PostCreation, fileCount int) error {
	if !models.KnownPlatform(pc.Platform) {
		return fmt.Errorf("unknown platform: %s", pc.Platform)
	}
	if !models.ValidPostType(pc.Platform, pc.PostType) {
		return fmt.Errorf("post type %q is not valid for %s", pc.PostType, pc.Platform)
	}

	if pc.Caption == "" && pc.Text == "" && pc.Title == "" && fileCount == 0 {
		return errors.New("post has no content")
	}

	if pc.PostType == "poll" {
		if len(pc.PollOptions) < 2 || len(pc.PollOptions) > 4 {
			return errors.New("polls need between 2 and 4 options")
		}
	}

	if pc.PostType == "article" && pc.Link == "" {
		return errors.New("articles need a link")
	}

	if fileCount > maxFilesPerPost {
		return fmt.Errorf("too many files: %d (max %d)", fileCount, maxFilesPerPost)
	}

	return validateMediaCount(pc.Platform, pc.PostType, fileCount)
}

func validateMediaCount(platformName, postType string, count int) error {
	switch platformName {
	case models.PlatformTwitter:
		if count > 4 {
			return errors.New("twitter allows at most 4 media items")
		}
		if postType == "poll" && count > 0 {
			return errors.New("polls cannot carry media")
		}
	case models.PlatformInstagram:
		if postType == "carousel" {
			if count < 2 {
				return errors.New("carousels need at least 2 media items")
			}
		} else if count != 1 {
			return fmt.Errorf("instagram %s posts need exactly 1 media item", postType)
		}
	case models.PlatformYouTube:
		if count != 1 {
			return errors.New("youtube posts need exactly 1 video file")
		}
	case models.PlatformLinkedIn:
		if count > 1 {
			return errors.New("linkedin posts carry at most 1 media item")
		}
	case models.PlatformFacebook:
		if postType == "photo" && count == 0 {
			return errors.New("photo posts need at least 1 image")
		}
		if postType == "video" && count != 1 {
			return errors.New("video posts need exactly 1 video file")
		}
	}
	return nil
}

func parseScheduledTime(value, timezone string) (time.Time, error) {
	loc := time.UTC
	if timezone != "" {
		parsed, err := time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone: %w", err)
		}
		loc = parsed
	}

	scheduledTime, err := time.ParseInLocation("2006-01-02T15:04", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid scheduled time format: %w", err)
	}

	return scheduledTime, nil
}

func marshalExtras(pc *transfer.PostCreation) (json.RawMessage, error) {
	if pc.Link == "" && len(pc.PollOptions) == 0 && pc.PollMinutes == 0 {
		return nil, nil
	}

	extras := map[string]any{}
	if pc.Link != "" {
		extras["link"] = pc.Link
	}
	if len(pc.PollOptions) > 0 {
		extras["poll_options"] = pc.PollOptions
	}
	if pc.PollMinutes > 0 {
		extras["poll_minutes"] = pc.PollMinutes
	}

	data, err := json.Marshal(extras)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return data, nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {}, "gif": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, fileType string, file []byte) (int64, error) {
	key, err := gonanoid.New()
	if err != nil {
		log.Println(err.Error())
		return 0, err
	}
	err = s.r2.UploadToR2(ctx, key, file, fileType)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ma := models.MediaAsset{
		UserID:     userID,
		FileName:   key,
		FileType:   fileType,
		MediaKind:  mediaKindFromMIME(fileType),
		FileSize:   int64(len(file)),
		StorageKey: key,
		FileURL:    s.r2.PublicURL(key),
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}

	return post, nil
}

func (s *postService) History(ctx context.Context, postID, userID int64) ([]*models.PostingHistory, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.ph.ListByPostID(ctx, postID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}
