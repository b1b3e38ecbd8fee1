package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, id int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, su *transfer.SettingsUpdate) error
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		sr: sr,
	}
}

func (s *settingsService) GetSettingsInfo(ctx context.Context, id int64) (*models.Settings, error) {
	settings, isExist, err := s.sr.GetByUserID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isExist {
		err = errors.New("setting for given user doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, su *transfer.SettingsUpdate) error {
	if su.Timezone != "" {
		if _, err := time.LoadLocation(su.Timezone); err != nil {
			slog.Info(err.Error())
			return errors.New("invalid timezone")
		}
	}

	if su.DefaultPostTime != "" {
		const layout = "15:04"
		if _, err := time.Parse(layout, su.DefaultPostTime); err != nil {
			slog.Info(err.Error())
			return errors.New("invalid default post time, expected HH:MM")
		}
	}

	settings := models.Settings{
		Timezone:        su.Timezone,
		DefaultPostTime: su.DefaultPostTime,
		ContentNiche:    su.ContentNiche,
	}
	err := s.sr.UpdateSettings(ctx, &settings, userID)
	if err != nil {
		return err
	}
	return nil
}
