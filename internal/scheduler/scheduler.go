// Package scheduler runs one sync job per horizon on its own cadence and
// keeps the jobs mutually exclusive: a job never overlaps itself, and no two
// jobs of the family run at the same time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"spielebasar/internal/client/teamsl"
	cronrunner "spielebasar/internal/cron"
	"spielebasar/internal/metrics"
	"spielebasar/internal/service"
)

// ErrSkipped is matched by every *SkipError.
var ErrSkipped = errors.New("sync job skipped")

type SkipReason string

const (
	SkipJobRunning    SkipReason = "job_running"
	SkipFamilyBusy    SkipReason = "family_busy"
	SkipClusterLocked SkipReason = "cluster_locked"
	SkipDisabled      SkipReason = "disabled"
)

type SkipError struct {
	Horizon teamsl.Horizon
	Reason  SkipReason
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("sync %s skipped: %s", e.Horizon, e.Reason)
}

func (e *SkipError) Is(target error) bool {
	return target == ErrSkipped
}

type Runner interface {
	RunCycle(ctx context.Context, horizon teamsl.Horizon, trigger service.Trigger) (service.CycleResult, error)
}

// Switches gates scheduled ticks. Manual runs ignore it.
type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// Notifier forwards run summaries to the operator log.
type Notifier interface {
	Notify(ctx context.Context, action, level string, details map[string]any)
}

type RunReport struct {
	RunID      string               `json:"run_id"`
	Horizon    teamsl.Horizon       `json:"horizon"`
	Trigger    service.Trigger      `json:"trigger"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	DurationMs int64                `json:"duration_ms"`
	OK         bool                 `json:"ok"`
	Error      string               `json:"error,omitempty"`
	Result     *service.CycleResult `json:"result,omitempty"`
}

type JobStatus struct {
	Horizon teamsl.Horizon `json:"horizon"`
	Spec    string         `json:"spec,omitempty"`
	Running bool           `json:"running"`
	NextRun *time.Time     `json:"next_run,omitempty"`
	LastRun *RunReport     `json:"last_run,omitempty"`
}

type Status struct {
	FamilyBusy bool        `json:"family_busy"`
	Jobs       []JobStatus `json:"jobs"`
}

type job struct {
	horizon teamsl.Horizon
	running atomic.Bool

	mu    sync.Mutex
	spec  string
	entry cron.EntryID
	last  *RunReport
}

type Scheduler struct {
	Runner     Runner
	Switches   Switches
	Guard      Guard
	Notifier   Notifier
	Logger     *zap.Logger
	RunTimeout time.Duration
	// BaseContext parents runs started with Launch.
	BaseContext context.Context

	family     sync.Mutex
	familyBusy atomic.Bool
	jobs       map[teamsl.Horizon]*job
	cron       *cronrunner.Runner
	inflight   sync.WaitGroup
}

func New(runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		Runner: runner,
		Logger: logger,
		jobs:   map[teamsl.Horizon]*job{},
	}
	for _, h := range teamsl.Horizons() {
		s.jobs[h] = &job{horizon: h}
	}
	return s
}

// Schedule registers one cron entry per horizon token in specs.
func (s *Scheduler) Schedule(cr *cronrunner.Runner, specs map[string]string) error {
	s.cron = cr
	tokens := make([]string, 0, len(specs))
	for token := range specs {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		h, err := teamsl.ParseHorizon(token)
		if err != nil {
			return fmt.Errorf("cron spec %q: %w", token, err)
		}
		spec := specs[token]
		id, err := cr.Add(spec, func(ctx context.Context) { s.tick(ctx, h) })
		if err != nil {
			return fmt.Errorf("register %s job: %w", h, err)
		}
		j := s.jobs[h]
		j.mu.Lock()
		j.spec, j.entry = spec, id
		j.mu.Unlock()
		s.Logger.Info("sync job scheduled", zap.String("horizon", h.String()), zap.String("spec", spec))
	}
	return nil
}

func (s *Scheduler) tick(ctx context.Context, h teamsl.Horizon) {
	if s.Switches != nil && !s.Switches.IsEnabled(ctx, service.FeatureKeyForHorizon(h), true) {
		s.skipped(h, SkipDisabled)
		return
	}
	_, err := s.Run(ctx, h, service.TriggerSchedule)
	if err != nil && !errors.Is(err, ErrSkipped) {
		// Already logged by the run; the next tick tries again.
		return
	}
}

// Run executes one cycle in the calling goroutine, or returns a *SkipError
// without touching the network when the job or its family is busy.
func (s *Scheduler) Run(ctx context.Context, h teamsl.Horizon, trigger service.Trigger) (RunReport, error) {
	release, err := s.acquire(ctx, h)
	if err != nil {
		return RunReport{}, err
	}
	defer release()
	return s.execute(ctx, h, trigger)
}

// Launch acquires the job like Run but executes the cycle in the background
// on BaseContext.
func (s *Scheduler) Launch(ctx context.Context, h teamsl.Horizon, trigger service.Trigger) error {
	release, err := s.acquire(ctx, h)
	if err != nil {
		return err
	}
	base := s.BaseContext
	if base == nil {
		base = context.Background()
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer release()
		_, _ = s.execute(base, h, trigger)
	}()
	return nil
}

// Wait blocks until runs started with Launch have returned.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// acquire takes the job flag, the family slot and, if configured, the
// cluster lock, in that order. The returned func releases all three.
func (s *Scheduler) acquire(ctx context.Context, h teamsl.Horizon) (func(), error) {
	j, ok := s.jobs[h]
	if !ok {
		return nil, fmt.Errorf("%w: %q", teamsl.ErrUnknownHorizon, h)
	}
	if !j.running.CompareAndSwap(false, true) {
		return nil, s.skipped(h, SkipJobRunning)
	}
	if !s.family.TryLock() {
		j.running.Store(false)
		return nil, s.skipped(h, SkipFamilyBusy)
	}
	s.familyBusy.Store(true)
	unlockLocal := func() {
		s.familyBusy.Store(false)
		s.family.Unlock()
		j.running.Store(false)
	}

	releaseGuard := func() {}
	if s.Guard != nil {
		rel, err := s.Guard.Acquire(ctx, "sync")
		if err != nil {
			unlockLocal()
			if errors.Is(err, ErrGuardHeld) {
				return nil, s.skipped(h, SkipClusterLocked)
			}
			return nil, fmt.Errorf("cluster guard: %w", err)
		}
		releaseGuard = rel
	}
	metrics.SchedulerRunning.WithLabelValues(h.String()).Set(1)
	return func() {
		metrics.SchedulerRunning.WithLabelValues(h.String()).Set(0)
		releaseGuard()
		unlockLocal()
	}, nil
}

func (s *Scheduler) execute(ctx context.Context, h teamsl.Horizon, trigger service.Trigger) (RunReport, error) {
	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}
	log := s.Logger.With(zap.String("horizon", h.String()), zap.String("trigger", string(trigger)))
	log.Info("sync job started")

	res, err := s.runSafely(ctx, h, trigger)
	report := RunReport{
		RunID:      res.RunID,
		Horizon:    h,
		Trigger:    trigger,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		DurationMs: res.Duration().Milliseconds(),
		OK:         err == nil,
		Result:     &res,
	}
	if err != nil {
		report.Error = err.Error()
		log.Warn("sync job failed", zap.String("run_id", res.RunID), zap.Int64("duration_ms", report.DurationMs), zap.Error(err))
	} else {
		log.Info("sync job finished",
			zap.String("run_id", res.RunID),
			zap.Int64("duration_ms", report.DurationMs),
			zap.Int("collected", res.Collected),
			zap.Int("created", res.Reconcile.Created),
			zap.Int("updated", res.Reconcile.Updated),
			zap.Int("skipped", res.Reconcile.SkippedTotal()),
			zap.Int("purged", res.Purged),
		)
	}

	j := s.jobs[h]
	j.mu.Lock()
	j.last = &report
	j.mu.Unlock()
	s.notify(ctx, report)
	return report, err
}

// runSafely turns a panic inside the cycle into an error so the job flags
// are always released.
func (s *Scheduler) runSafely(ctx context.Context, h teamsl.Horizon, trigger service.Trigger) (res service.CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync %s panicked: %v", h, r)
		}
	}()
	return s.Runner.RunCycle(ctx, h, trigger)
}

func (s *Scheduler) notify(ctx context.Context, r RunReport) {
	if s.Notifier == nil {
		return
	}
	level := "info"
	action := "spielebasar_sync_ok"
	details := map[string]any{
		"run_id":      r.RunID,
		"horizon":     r.Horizon.String(),
		"trigger":     string(r.Trigger),
		"duration_ms": r.DurationMs,
	}
	if r.Result != nil {
		details["collected"] = r.Result.Collected
		details["created"] = r.Result.Reconcile.Created
		details["updated"] = r.Result.Reconcile.Updated
		details["skipped"] = r.Result.Reconcile.SkippedTotal()
		details["purged"] = r.Result.Purged
		details["mismatch"] = r.Result.Mismatch
	}
	if !r.OK {
		level = "warn"
		action = "spielebasar_sync_failed"
		details["error"] = r.Error
	}
	s.Notifier.Notify(ctx, action, level, details)
}

func (s *Scheduler) skipped(h teamsl.Horizon, reason SkipReason) error {
	metrics.SchedulerSkips.WithLabelValues(h.String(), string(reason)).Inc()
	s.Logger.Info("sync tick skipped", zap.String("horizon", h.String()), zap.String("reason", string(reason)))
	return &SkipError{Horizon: h, Reason: reason}
}

func (s *Scheduler) Status() Status {
	out := Status{FamilyBusy: s.familyBusy.Load()}
	for _, h := range teamsl.Horizons() {
		j := s.jobs[h]
		j.mu.Lock()
		st := JobStatus{Horizon: h, Spec: j.spec, Running: j.running.Load()}
		if j.last != nil {
			last := *j.last
			st.LastRun = &last
		}
		entry := j.entry
		j.mu.Unlock()
		if s.cron != nil && entry != 0 {
			if next := s.cron.Next(entry); !next.IsZero() {
				st.NextRun = &next
			}
		}
		out.Jobs = append(out.Jobs, st)
	}
	return out
}
