package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"spielebasar/internal/metrics"
	"spielebasar/internal/models"
)

const maxStoredRecordErrors = 50

type runStats struct {
	Skipped      map[SkipReason]int `json:"skipped"`
	Errors       []RecordError      `json:"errors,omitempty"`
	FailedPages  []int              `json:"failed_pages,omitempty"`
	Rejected     int                `json:"rejected"`
	Enriched     int                `json:"enriched"`
	PurgeSkipped bool               `json:"purge_skipped"`
}

// recordRun writes the run history row and the per-horizon state. It runs on a
// context detached from cancellation so a timed-out cycle still leaves a trace.
func (s *OpenGamesSyncService) recordRun(ctx context.Context, res *CycleResult, runErr error, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	finished := res.FinishedAt
	status := models.SyncRunStatusOK
	var errMsg *string
	if runErr != nil {
		status = models.SyncRunStatusFailed
		errMsg = strPtr(runErr.Error())
		log.Warn("sync cycle failed", zap.Error(runErr))
	}

	recErrors := res.Reconcile.Errors
	if len(recErrors) > maxStoredRecordErrors {
		recErrors = recErrors[:maxStoredRecordErrors]
	}
	run := &models.SyncRun{
		ID:            res.RunID,
		Horizon:       res.Horizon.String(),
		Trigger:       string(res.Trigger),
		Status:        status,
		StartedAt:     res.StartedAt,
		FinishedAt:    finished,
		DurationMs:    res.Duration().Milliseconds(),
		ReportedTotal: res.ReportedTotal,
		Collected:     res.Collected,
		Created:       res.Reconcile.Created,
		Updated:       res.Reconcile.Updated,
		Skipped:       res.Reconcile.SkippedTotal(),
		Deleted:       res.Reconcile.Deleted,
		Errored:       res.Reconcile.Errored,
		Purged:        res.Purged,
		Mismatch:      res.Mismatch,
		Error:         errMsg,
		StatsJSON: mustJSON(runStats{
			Skipped:      res.Reconcile.Skipped,
			Errors:       recErrors,
			FailedPages:  res.FailedPages,
			Rejected:     res.Rejected,
			Enriched:     res.Enriched,
			PurgeSkipped: res.PurgeSkipped,
		}),
	}
	if err := s.Store.InsertSyncRun(ctx, run); err != nil {
		log.Warn("sync run not recorded", zap.Error(err))
	}

	runID := res.RunID
	state := &models.SyncState{
		Scope:         res.Horizon.String(),
		LastRunID:     &runID,
		LastAttemptAt: &finished,
		LastError:     errMsg,
		StatsJSON: statsJSON(map[string]int{
			"collected": res.Collected,
			"created":   res.Reconcile.Created,
			"updated":   res.Reconcile.Updated,
			"skipped":   res.Reconcile.SkippedTotal(),
			"deleted":   res.Reconcile.Deleted,
			"errored":   res.Reconcile.Errored,
			"purged":    res.Purged,
		}),
	}
	if runErr == nil {
		state.LastSuccessAt = &finished
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil {
		log.Warn("sync state not saved", zap.Error(err))
	}

	metrics.SyncRunsTotal.WithLabelValues(res.Horizon.String(), status).Inc()
	metrics.SyncRunDuration.WithLabelValues(res.Horizon.String()).Observe(res.Duration().Seconds())
}

func statsJSON(stats map[string]int) datatypes.JSON {
	if len(stats) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

func mustJSON(v any) datatypes.JSON {
	payload, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(payload)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
