package gormrepository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spielebasar/internal/models"
	"spielebasar/internal/repository"
)

const deleteChunkSize = 1000

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- matches ----------------------------------------------------------------

func (s *Store) GetMatchTx(ctx context.Context, tx *gorm.DB, id int64) (*models.Match, error) {
	var item models.Match
	err := tx.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertMatchTx(ctx context.Context, tx *gorm.DB, item *models.Match) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kickoff_at",
			"league_name",
			"license",
			"home_team",
			"guest_team",
			"home_club_id",
			"guest_club_id",
			"venue_name",
			"venue_street",
			"venue_postal_code",
			"venue_city",
			"seat1_open",
			"seat1_club_id",
			"seat1_club_name",
			"seat2_open",
			"seat2_club_id",
			"seat2_club_name",
			"seat3_open",
			"seat3_club_id",
			"seat3_club_name",
			"qualification_id",
			"last_horizon",
			"last_seen_at",
			"raw_json",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) DeleteMatchTx(ctx context.Context, tx *gorm.DB, id int64) (bool, error) {
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(&models.Match{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return s.GetMatchTx(ctx, s.db, id)
}

func (s *Store) CountMatches(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Match{}).Count(&n).Error
	return n, err
}

func (s *Store) ListMatchIDs(ctx context.Context) ([]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&models.Match{}).Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteMatchesNotIn removes every stored match whose id is not in keep and
// returns the removed ids. An empty keep set removes all matches.
func (s *Store) DeleteMatchesNotIn(ctx context.Context, keep []int64) ([]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	stored, err := s.ListMatchIDs(ctx)
	if err != nil {
		return nil, err
	}
	keepSet := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	orphans := make([]int64, 0)
	for _, id := range stored {
		if _, ok := keepSet[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return orphans, nil
	}
	err = s.InTx(ctx, func(tx *gorm.DB) error {
		for _, chunk := range chunkIDs(orphans, deleteChunkSize) {
			if err := tx.Where("id IN ?", chunk).Delete(&models.Match{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// --- clubs & qualifications ---------------------------------------------------

// UpsertClubsTx refreshes upstream club data. The hidden flag is only set on insert.
func (s *Store) UpsertClubsTx(ctx context.Context, tx *gorm.DB, items []models.Club) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"number",
			"name",
			"association_id",
			"district_id",
			"region_id",
			"last_seen_at",
			"updated_at",
		}),
	}), items, 200)
}

func (s *Store) ListClubsByIDsTx(ctx context.Context, tx *gorm.DB, ids []int64) (map[int64]models.Club, error) {
	out := make(map[int64]models.Club, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.Club
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// FindClubByNameTx returns the club with exactly this name, or nil when the
// name is unknown or ambiguous.
func (s *Store) FindClubByNameTx(ctx context.Context, tx *gorm.DB, name string) (*models.Club, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var items []models.Club
	if err := tx.WithContext(ctx).Where("name = ?", name).Limit(2).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) != 1 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *Store) GetClub(ctx context.Context, id int64) (*models.Club, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Club
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetClubHidden flips the visibility switch. It returns nil when the club is unknown.
func (s *Store) SetClubHidden(ctx context.Context, id int64, hidden bool) (*models.Club, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	err := s.db.WithContext(ctx).Model(&models.Club{}).Where("id = ?", id).Update("hidden", hidden).Error
	if err != nil {
		return nil, err
	}
	return s.GetClub(ctx, id)
}

func (s *Store) UpsertQualificationTx(ctx context.Context, tx *gorm.DB, item *models.Qualification) error {
	if item == nil || item.ID <= 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"label",
			"short_label",
			"last_seen_at",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- sync bookkeeping ---------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	columns := []string{"last_run_id", "last_attempt_at", "last_error", "stats_json"}
	// A failed attempt must not erase the previous success time.
	if state.LastSuccessAt != nil {
		columns = append(columns, "last_success_at")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("scope asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (s *Store) InsertSyncRun(ctx context.Context, item *models.SyncRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSyncRuns(ctx context.Context, params repository.ListSyncRunsParams) ([]models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SyncRun{})
	if params.Horizon != nil && strings.TrimSpace(*params.Horizon) != "" {
		query = query.Where("horizon = ?", strings.TrimSpace(*params.Horizon))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.SyncRun
	if err := query.Order("started_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings ------------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("setting_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("setting_key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	var items []models.SystemSetting
	if err := query.Order("setting_key asc").
		Limit(normalizeLimit(params.Limit, 500)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = deleteChunkSize
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make([][]int64, 0, (len(sorted)+size-1)/size)
	for i := 0; i < len(sorted); i += size {
		end := i + size
		if end > len(sorted) {
			end = len(sorted)
		}
		out = append(out, sorted[i:end])
	}
	return out
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
