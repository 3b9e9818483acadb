package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/models"
	"spielebasar/internal/repository"
)

const (
	FeatureSyncWeek      = "feature.sync.w1"
	FeatureSyncThreeWeek = "feature.sync.w3"
	FeatureSyncAll       = "feature.sync.all"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureSyncWeek:      true,
		FeatureSyncThreeWeek: true,
		FeatureSyncAll:       true,
	}
}

// FeatureKeyForHorizon names the switch that gates scheduled runs of a horizon.
func FeatureKeyForHorizon(h teamsl.Horizon) string {
	return "feature.sync." + string(h)
}

// IsFeatureSwitch reports whether key is one of the known switches.
func IsFeatureSwitch(key string) bool {
	_, ok := DefaultFeatureSwitches()[strings.TrimSpace(key)]
	return ok
}

type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches inserts missing switches. Stored values always win.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

func (s *SystemSettingsService) List(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	prefix := "feature."
	return s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix})
}
