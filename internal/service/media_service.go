package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/internal/repository"
)

const mediaFetchTimeout = 30 * time.Second

// MediaService turns stored media asset rows into the bytes and URLs the
// platform adapters consume. Assets can live on local disk, in the R2
// bucket, or behind an external URL; resolution tries them in that order.
type MediaService interface {
	Resolve(ctx context.Context, asset *models.MediaAsset) (*platform.MediaUpload, error)
	ResolveForPost(ctx context.Context, postID int64) ([]*platform.MediaUpload, error)
}

type mediaService struct {
	ma repository.MediaAssetRepository
	r2 *R2Service
}

func NewMediaService(ma repository.MediaAssetRepository, r2 *R2Service) MediaService {
	return &mediaService{
		ma: ma,
		r2: r2,
	}
}

func (s *mediaService) Resolve(ctx context.Context, asset *models.MediaAsset) (*platform.MediaUpload, error) {
	if asset == nil {
		return nil, errors.New("media asset is nil")
	}

	data, err := s.loadBytes(ctx, asset)
	if err != nil {
		return nil, err
	}

	mimeType := asset.FileType
	kind := asset.MediaKind
	if mimeType == "" || kind == "" {
		ft, err := filetype.Match(data)
		if err != nil || ft == types.Unknown {
			return nil, fmt.Errorf("unable to detect media type for asset %d", asset.ID)
		}
		if mimeType == "" {
			mimeType = ft.MIME.Value
		}
		if kind == "" {
			kind = mediaKindFromMIME(ft.MIME.Value)
		}
	}

	return &platform.MediaUpload{
		FileName:  asset.FileName,
		MimeType:  mimeType,
		Kind:      kind,
		Data:      data,
		SourceURL: s.sourceURL(asset),
	}, nil
}

func (s *mediaService) ResolveForPost(ctx context.Context, postID int64) ([]*platform.MediaUpload, error) {
	assets, err := s.ma.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	uploads := make([]*platform.MediaUpload, 0, len(assets))
	for _, asset := range assets {
		upload, err := s.Resolve(ctx, asset)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}

	return uploads, nil
}

// loadBytes tries local disk, then the R2 bucket, then the external URL.
// The first source that yields bytes wins; a failing source is skipped so a
// pruned local cache never blocks an asset that still exists remotely.
func (s *mediaService) loadBytes(ctx context.Context, asset *models.MediaAsset) ([]byte, error) {
	var lastErr error

	if asset.LocalPath != "" {
		data, err := os.ReadFile(asset.LocalPath)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil {
			slog.Info("local media read failed", slog.String("path", asset.LocalPath), slog.String("error", err.Error()))
			lastErr = err
		}
	}

	if asset.StorageKey != "" {
		data, err := s.r2.GetFromR2(ctx, asset.StorageKey)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil {
			slog.Info("bucket media read failed", slog.String("key", asset.StorageKey), slog.String("error", err.Error()))
			lastErr = err
		}
	}

	if asset.FileURL != "" {
		data, err := fetchURL(ctx, asset.FileURL)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("media asset %d unavailable from all sources: %w", asset.ID, lastErr)
	}
	return nil, fmt.Errorf("media asset %d has no readable location", asset.ID)
}

// sourceURL is the address handed to platforms that ingest media by URL.
func (s *mediaService) sourceURL(asset *models.MediaAsset) string {
	if asset.FileURL != "" {
		return asset.FileURL
	}
	if asset.StorageKey != "" {
		return s.r2.PublicURL(asset.StorageKey)
	}
	return ""
}

func fetchURL(ctx context.Context, fileURL string) ([]byte, error) {
	client := &http.Client{Timeout: mediaFetchTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("fetching media returned status %d", resp.StatusCode)
		slog.Info(err.Error())
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

func mediaKindFromMIME(mime string) string {
	if strings.HasPrefix(mime, "video/") {
		return "video"
	}
	return "image"
}
