package repository

import (
	"context"

	"gorm.io/gorm"

	"spielebasar/internal/models"
)

// MatchRepository covers the open-games tables written by the sync engine.
type MatchRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetMatchTx(ctx context.Context, tx *gorm.DB, id int64) (*models.Match, error)
	UpsertMatchTx(ctx context.Context, tx *gorm.DB, item *models.Match) error
	DeleteMatchTx(ctx context.Context, tx *gorm.DB, id int64) (bool, error)
	UpsertClubsTx(ctx context.Context, tx *gorm.DB, items []models.Club) error
	ListClubsByIDsTx(ctx context.Context, tx *gorm.DB, ids []int64) (map[int64]models.Club, error)
	FindClubByNameTx(ctx context.Context, tx *gorm.DB, name string) (*models.Club, error)
	UpsertQualificationTx(ctx context.Context, tx *gorm.DB, item *models.Qualification) error
	ListMatchIDs(ctx context.Context) ([]int64, error)
	DeleteMatchesNotIn(ctx context.Context, keep []int64) ([]int64, error)
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	CountMatches(ctx context.Context) (int64, error)
	GetClub(ctx context.Context, id int64) (*models.Club, error)
	SetClubHidden(ctx context.Context, id int64, hidden bool) (*models.Club, error)
}

type SyncBookkeeping interface {
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
	InsertSyncRun(ctx context.Context, item *models.SyncRun) error
	ListSyncRuns(ctx context.Context, params ListSyncRunsParams) ([]models.SyncRun, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

// Repository is everything the service layer needs from storage.
type Repository interface {
	MatchRepository
	SyncBookkeeping
	SettingsRepository
}

type ListSyncRunsParams struct {
	Limit   int
	Offset  int
	Horizon *string
	Status  *string
}

type ListSystemSettingsParams struct {
	Limit  int
	Offset int
	Prefix *string
}
