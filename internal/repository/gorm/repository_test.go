package gormrepository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"spielebasar/internal/models"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.Club{},
		&models.Qualification{},
		&models.Match{},
		&models.SyncState{},
		&models.SyncRun{},
		&models.SystemSetting{},
	))
	return New(gdb), gdb
}

func seedMatches(t *testing.T, s *Store, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		for _, id := range ids {
			m := &models.Match{ID: id, KickoffAt: now.Add(24 * time.Hour), Seat1Open: true, LastSeenAt: now}
			if err := s.UpsertMatchTx(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestUpsertClubsKeepsHiddenFlag(t *testing.T) {
	s, gdb := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpsertClubsTx(ctx, gdb, []models.Club{{ID: 7, Name: "TV Alt", LastSeenAt: now}}))
	_, err := s.SetClubHidden(ctx, 7, true)
	require.NoError(t, err)

	require.NoError(t, s.UpsertClubsTx(ctx, gdb, []models.Club{{ID: 7, Name: "TV Neu", Number: 42, LastSeenAt: now}}))

	club, err := s.GetClub(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, club)
	require.Equal(t, "TV Neu", club.Name)
	require.Equal(t, int64(42), club.Number)
	require.True(t, club.Hidden)
}

func TestSetClubHiddenUnknownClub(t *testing.T) {
	s, _ := newTestStore(t)
	club, err := s.SetClubHidden(context.Background(), 99, true)
	require.NoError(t, err)
	require.Nil(t, club)
}

func TestUpsertMatchOverwritesFields(t *testing.T) {
	s, gdb := newTestStore(t)
	ctx := context.Background()
	seedMatches(t, s, 1)

	now := time.Now().UTC()
	clubID := int64(5)
	require.NoError(t, s.UpsertMatchTx(ctx, gdb, &models.Match{
		ID:          1,
		KickoffAt:   now,
		LeagueName:  "Kreisliga",
		Seat2Open:   true,
		Seat2ClubID: &clubID,
		LastSeenAt:  now,
	}))

	m, err := s.GetMatch(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "Kreisliga", m.LeagueName)
	require.False(t, m.Seat1Open)
	require.True(t, m.Seat2Open)
	require.Equal(t, clubID, *m.Seat2ClubID)

	n, err := s.CountMatches(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestDeleteMatchesNotIn(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedMatches(t, s, 1, 2, 3, 4)

	removed, err := s.DeleteMatchesNotIn(ctx, []int64{2, 4, 99})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 3}, removed)

	ids, err := s.ListMatchIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 4}, ids)
}

func TestDeleteMatchesNotInEmptyKeepRemovesAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedMatches(t, s, 10, 11)

	removed, err := s.DeleteMatchesNotIn(ctx, nil)
	require.NoError(t, err)
	require.Len(t, removed, 2)

	n, err := s.CountMatches(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSaveSyncStateKeepsLastSuccessOnFailure(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ok := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSyncState(ctx, &models.SyncState{Scope: "w1", LastSuccessAt: &ok, LastAttemptAt: &ok}))

	later := ok.Add(time.Hour)
	msg := "boom"
	require.NoError(t, s.SaveSyncState(ctx, &models.SyncState{Scope: "w1", LastAttemptAt: &later, LastError: &msg}))

	st, err := s.GetSyncState(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, st.LastSuccessAt)
	require.True(t, st.LastSuccessAt.Equal(ok))
	require.Equal(t, "boom", *st.LastError)
}

func TestChunkIDs(t *testing.T) {
	ids := make([]int64, 2500)
	for i := range ids {
		ids[i] = int64(len(ids) - i)
	}
	chunks := chunkIDs(ids, 1000)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 500 {
		t.Fatalf("expected last chunk of 500, got %d", len(chunks[2]))
	}
	if chunks[0][0] != 1 {
		t.Fatalf("expected sorted chunks, got first id %d", chunks[0][0])
	}
}

func TestFindClubByNameTx(t *testing.T) {
	s, gdb := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.UpsertClubsTx(ctx, gdb, []models.Club{
		{ID: 1, Name: "TV Musterstadt", LastSeenAt: now},
		{ID: 2, Name: "BC Doppelt", LastSeenAt: now},
		{ID: 3, Name: "BC Doppelt", LastSeenAt: now},
	}))

	club, err := s.FindClubByNameTx(ctx, gdb, " TV Musterstadt ")
	require.NoError(t, err)
	require.NotNil(t, club)
	require.Equal(t, int64(1), club.ID)

	club, err = s.FindClubByNameTx(ctx, gdb, "BC Doppelt")
	require.NoError(t, err)
	require.Nil(t, club)
}
