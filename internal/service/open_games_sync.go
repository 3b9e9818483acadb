package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/collector"
	"spielebasar/internal/events"
	"spielebasar/internal/logger"
	"spielebasar/internal/metrics"
	"spielebasar/internal/repository"
)

var (
	// ErrIncompleteCollection aborts a cycle under the fail mismatch policy.
	ErrIncompleteCollection = errors.New("collection incomplete")
	// ErrPartialHorizon rejects orphan removal for horizons that do not see every game.
	ErrPartialHorizon = errors.New("orphan removal requires the full horizon")
)

type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerCLI      Trigger = "cli"
)

type MismatchPolicy string

const (
	MismatchWarn  MismatchPolicy = "warn"
	MismatchRetry MismatchPolicy = "retry"
	MismatchFail  MismatchPolicy = "fail"
)

func ParseMismatchPolicy(raw string) MismatchPolicy {
	switch MismatchPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case MismatchRetry:
		return MismatchRetry
	case MismatchFail:
		return MismatchFail
	default:
		return MismatchWarn
	}
}

// Upstream is what a cycle needs from the portal client besides paging.
type Upstream interface {
	Authenticate(ctx context.Context, username, password string) (*teamsl.Session, error)
	FetchMatchDetail(ctx context.Context, sess *teamsl.Session, matchID int64) (*teamsl.MatchDetail, error)
	EndSession(sess *teamsl.Session)
}

type PageCollector interface {
	FetchAll(ctx context.Context, sess *teamsl.Session, horizon teamsl.Horizon) (collector.Result, error)
}

type SyncOptions struct {
	Username          string
	Password          string
	MismatchPolicy    MismatchPolicy
	PurgeOnMismatch   bool
	DetailEnrichment  bool
	DetailConcurrency int
}

type OpenGamesSyncService struct {
	Store     repository.Repository
	Upstream  Upstream
	Collector PageCollector
	Events    events.Publisher
	Logger    *zap.Logger
	Options   SyncOptions

	// Now is overridable in tests.
	Now func() time.Time
}

// CycleResult describes one sync cycle from login to orphan removal.
type CycleResult struct {
	RunID         string           `json:"run_id"`
	Horizon       teamsl.Horizon   `json:"horizon"`
	Trigger       Trigger          `json:"trigger"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	ReportedTotal int              `json:"reported_total"`
	Collected     int              `json:"collected"`
	Rejected      int              `json:"rejected"`
	FailedPages   []int            `json:"failed_pages,omitempty"`
	Mismatch      bool             `json:"mismatch"`
	Enriched      int              `json:"enriched"`
	Reconcile     ReconcileSummary `json:"reconcile"`
	Purged        int              `json:"purged"`
	PurgeSkipped  bool             `json:"purge_skipped"`
}

func (r CycleResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunCycle logs in, collects every open game of the horizon, reconciles the
// records and, for the full horizon only, removes matches that were not seen.
// Only login and first-page failures end a cycle early.
func (s *OpenGamesSyncService) RunCycle(ctx context.Context, horizon teamsl.Horizon, trigger Trigger) (result CycleResult, err error) {
	result = CycleResult{
		RunID:     uuid.NewString(),
		Horizon:   horizon,
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}
	log := logger.ForJob(s.Logger, horizon.String(), string(trigger)).With(zap.String("run_id", result.RunID))
	defer func() {
		result.FinishedAt = s.now().UTC()
		s.recordRun(ctx, &result, err, log)
	}()

	if _, perr := teamsl.ParseHorizon(horizon.String()); perr != nil {
		return result, perr
	}

	sess, err := s.Upstream.Authenticate(ctx, s.Options.Username, s.Options.Password)
	if err != nil {
		return result, fmt.Errorf("authenticate: %w", err)
	}
	defer s.Upstream.EndSession(sess)

	col, err := s.collect(ctx, sess, horizon, log)
	result.ReportedTotal = col.ReportedTotal
	result.Collected = col.UniqueCount
	result.Rejected = col.Rejected
	result.FailedPages = col.FailedPages
	result.Mismatch = col.Mismatch
	if err != nil {
		return result, err
	}

	if s.Options.DetailEnrichment {
		result.Enriched = s.enrich(ctx, sess, col.Records, log)
	}

	result.Reconcile = s.Reconcile(ctx, horizon, col.Records)
	pending := result.Reconcile.Events
	if err := ctx.Err(); err != nil {
		s.publish(ctx, result.RunID, pending, log)
		return result, fmt.Errorf("reconcile interrupted: %w", err)
	}

	if horizon.IsFull() {
		if col.Mismatch && !s.Options.PurgeOnMismatch {
			result.PurgeSkipped = true
			log.Warn("orphan removal skipped after incomplete collection",
				zap.Int("reported_total", col.ReportedTotal),
				zap.Int("collected", col.UniqueCount),
			)
		} else {
			removed, err := s.PurgeOrphans(ctx, horizon, col.KeepIDs())
			if err != nil {
				s.publish(ctx, result.RunID, pending, log)
				return result, fmt.Errorf("purge orphans: %w", err)
			}
			result.Purged = len(removed)
			now := s.now().UTC()
			for _, id := range removed {
				pending = append(pending, events.Event{
					Type:       events.TypeMatchOrphaned,
					MatchID:    id,
					Horizon:    horizon.String(),
					OccurredAt: now,
				})
			}
		}
	}

	s.publish(ctx, result.RunID, pending, log)
	log.Info("sync cycle finished",
		zap.Int("collected", result.Collected),
		zap.Int("created", result.Reconcile.Created),
		zap.Int("updated", result.Reconcile.Updated),
		zap.Int("skipped", result.Reconcile.SkippedTotal()),
		zap.Int("deleted", result.Reconcile.Deleted),
		zap.Int("errored", result.Reconcile.Errored),
		zap.Int("purged", result.Purged),
	)
	return result, nil
}

// collect runs the page collector and applies the mismatch policy.
func (s *OpenGamesSyncService) collect(ctx context.Context, sess *teamsl.Session, horizon teamsl.Horizon, log *zap.Logger) (collector.Result, error) {
	res, err := s.Collector.FetchAll(ctx, sess, horizon)
	if err != nil {
		return res, err
	}
	if !res.Mismatch {
		return res, nil
	}
	switch s.Options.MismatchPolicy {
	case MismatchRetry:
		log.Info("collection incomplete, collecting again", zap.Int("reported_total", res.ReportedTotal), zap.Int("unique", res.UniqueCount))
		again, err := s.Collector.FetchAll(ctx, sess, horizon)
		if err != nil {
			log.Warn("second collection failed, keeping the first", zap.Error(err))
			return res, nil
		}
		if again.UniqueCount > res.UniqueCount {
			return again, nil
		}
		return res, nil
	case MismatchFail:
		return res, fmt.Errorf("%w: %d of %d reported games", ErrIncompleteCollection, res.UniqueCount, res.ReportedTotal)
	default:
		return res, nil
	}
}

// enrich asks the detail view about records whose open seats lack a club.
func (s *OpenGamesSyncService) enrich(ctx context.Context, sess *teamsl.Session, records []teamsl.OpenGame, log *zap.Logger) int {
	idx := make([]int, 0)
	for i := range records {
		if records[i].NeedsDetail() {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0
	}
	workers := s.Options.DetailConcurrency
	if workers <= 0 {
		workers = 4
	}

	var enriched atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for _, i := range idx {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			detail, err := s.Upstream.FetchMatchDetail(ctx, sess, records[i].MatchID)
			if err != nil {
				log.Warn("match detail fetch failed", zap.Int64("match_id", records[i].MatchID), zap.Error(err))
				return
			}
			records[i].ApplyDetail(detail)
			enriched.Add(1)
		}(i)
	}
	wg.Wait()
	return int(enriched.Load())
}

// PurgeOrphans deletes every match not in keep. Only the full horizon may
// call it, since shorter horizons legitimately miss later games.
func (s *OpenGamesSyncService) PurgeOrphans(ctx context.Context, horizon teamsl.Horizon, keep []int64) ([]int64, error) {
	if !horizon.IsFull() {
		return nil, fmt.Errorf("%w: got %q", ErrPartialHorizon, horizon)
	}
	removed, err := s.Store.DeleteMatchesNotIn(ctx, keep)
	if err != nil {
		return nil, err
	}
	metrics.OrphansPurged.Add(float64(len(removed)))
	if len(removed) > 0 {
		s.logger().Info("orphaned matches removed", zap.Int("count", len(removed)), zap.Int("kept", len(keep)))
	}
	return removed, nil
}

func (s *OpenGamesSyncService) publish(ctx context.Context, runID string, items []events.Event, log *zap.Logger) {
	if s.Events == nil || len(items) == 0 {
		return
	}
	for i := range items {
		items[i].RunID = runID
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, items); err != nil {
		log.Warn("publishing match events failed", zap.Int("count", len(items)), zap.Error(err))
	}
}

func (s *OpenGamesSyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OpenGamesSyncService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
