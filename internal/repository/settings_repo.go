package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
)

type SettingsRepository interface {
	// Get returns the settings singleton, creating the empty row if a legacy
	// database is missing it.
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, s *model.Settings) error
	UpdateLastBackup(ctx context.Context, at time.Time) error
}

type settingsRepo struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &settingsRepo{db: db} }

func (r *settingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	var s model.Settings
	err := r.db.WithContext(ctx).First(&s, model.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = model.Settings{ID: model.SettingsID}
		if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	}
	return &s, err
}

func (r *settingsRepo) Update(ctx context.Context, s *model.Settings) error {
	s.ID = model.SettingsID // the singleton is only ever updated, never forked
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *settingsRepo) UpdateLastBackup(ctx context.Context, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Settings{}).
		Where("id = ?", model.SettingsID).
		Update("last_backup_at", at).Error
}
