package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/service"
)

// blockingRunner holds every cycle until release is closed.
type blockingRunner struct {
	calls   atomic.Int32
	started chan teamsl.Horizon
	release chan struct{}
	err     error
	panics  bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan teamsl.Horizon, 8), release: make(chan struct{})}
}

func (r *blockingRunner) RunCycle(_ context.Context, h teamsl.Horizon, trigger service.Trigger) (service.CycleResult, error) {
	r.calls.Add(1)
	r.started <- h
	<-r.release
	if r.panics {
		panic("boom")
	}
	now := time.Now()
	return service.CycleResult{RunID: "run-" + h.String(), Horizon: h, Trigger: trigger, StartedAt: now, FinishedAt: now}, r.err
}

type staticSwitches map[string]bool

func (s staticSwitches) IsEnabled(_ context.Context, key string, fallback bool) bool {
	if v, ok := s[key]; ok {
		return v
	}
	return fallback
}

type fakeGuard struct {
	mu   sync.Mutex
	held bool
	err  error
}

func (g *fakeGuard) Acquire(context.Context, string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	if g.held {
		return nil, ErrGuardHeld
	}
	g.held = true
	return func() {
		g.mu.Lock()
		g.held = false
		g.mu.Unlock()
	}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (n *recordingNotifier) Notify(_ context.Context, action, _ string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}

func requireSkip(t *testing.T, err error, reason SkipReason) {
	t.Helper()
	require.ErrorIs(t, err, ErrSkipped)
	var se *SkipError
	require.True(t, errors.As(err, &se))
	require.Equal(t, reason, se.Reason)
}

func TestTickWhileRunningIsSkipped(t *testing.T) {
	runner := newBlockingRunner()
	s := New(runner, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx, teamsl.HorizonAll, service.TriggerSchedule)
		done <- err
	}()
	require.Equal(t, teamsl.HorizonAll, <-runner.started)

	_, err := s.Run(ctx, teamsl.HorizonAll, service.TriggerSchedule)
	requireSkip(t, err, SkipJobRunning)

	_, err = s.Run(ctx, teamsl.HorizonWeek, service.TriggerSchedule)
	requireSkip(t, err, SkipFamilyBusy)

	st := s.Status()
	require.True(t, st.FamilyBusy)
	require.True(t, st.Jobs[2].Running)
	require.False(t, st.Jobs[0].Running)

	close(runner.release)
	require.NoError(t, <-done)
	require.EqualValues(t, 1, runner.calls.Load())

	_, err = s.Run(ctx, teamsl.HorizonWeek, service.TriggerSchedule)
	require.NoError(t, err)
	require.EqualValues(t, 2, runner.calls.Load())
}

func TestFlagsClearedAfterFailure(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = errors.New("login rejected")
	close(runner.release)
	notes := &recordingNotifier{}
	s := New(runner, nil)
	s.Notifier = notes

	report, err := s.Run(context.Background(), teamsl.HorizonThreeWeek, service.TriggerManual)
	require.Error(t, err)
	require.False(t, report.OK)
	require.Equal(t, "login rejected", report.Error)
	<-runner.started

	st := s.Status()
	require.False(t, st.FamilyBusy)
	require.False(t, st.Jobs[1].Running)
	require.NotNil(t, st.Jobs[1].LastRun)
	require.Equal(t, []string{"spielebasar_sync_failed"}, notes.actions)

	runner.err = nil
	_, err = s.Run(context.Background(), teamsl.HorizonThreeWeek, service.TriggerManual)
	require.NoError(t, err)
}

func TestPanicReleasesFlags(t *testing.T) {
	runner := newBlockingRunner()
	runner.panics = true
	close(runner.release)
	s := New(runner, nil)

	_, err := s.Run(context.Background(), teamsl.HorizonWeek, service.TriggerCLI)
	require.ErrorContains(t, err, "panicked")
	require.False(t, s.Status().FamilyBusy)
}

func TestDisabledSwitchSkipsScheduledTick(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	s := New(runner, nil)
	s.Switches = staticSwitches{service.FeatureSyncAll: false}

	s.tick(context.Background(), teamsl.HorizonAll)
	require.Zero(t, runner.calls.Load())

	// Manual runs ignore the switch.
	_, err := s.Run(context.Background(), teamsl.HorizonAll, service.TriggerManual)
	require.NoError(t, err)
	require.EqualValues(t, 1, runner.calls.Load())
}

func TestClusterGuard(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	guard := &fakeGuard{held: true}
	s := New(runner, nil)
	s.Guard = guard

	_, err := s.Run(context.Background(), teamsl.HorizonWeek, service.TriggerSchedule)
	requireSkip(t, err, SkipClusterLocked)
	require.Zero(t, runner.calls.Load())
	require.False(t, s.Status().FamilyBusy)

	guard.held = false
	_, err = s.Run(context.Background(), teamsl.HorizonWeek, service.TriggerSchedule)
	require.NoError(t, err)
	require.False(t, guard.held)

	guard.err = errors.New("redis down")
	_, err = s.Run(context.Background(), teamsl.HorizonWeek, service.TriggerSchedule)
	require.ErrorContains(t, err, "redis down")
	require.NotErrorIs(t, err, ErrSkipped)
}

func TestLaunchRunsInBackground(t *testing.T) {
	runner := newBlockingRunner()
	s := New(runner, nil)

	require.NoError(t, s.Launch(context.Background(), teamsl.HorizonAll, service.TriggerManual))
	<-runner.started
	requireSkip(t, s.Launch(context.Background(), teamsl.HorizonAll, service.TriggerManual), SkipJobRunning)

	close(runner.release)
	s.Wait()
	st := s.Status()
	require.False(t, st.Jobs[2].Running)
	require.Equal(t, "run-all", st.Jobs[2].LastRun.RunID)
}

func TestUnknownHorizon(t *testing.T) {
	s := New(newBlockingRunner(), nil)
	_, err := s.Run(context.Background(), teamsl.Horizon("w2"), service.TriggerManual)
	require.ErrorIs(t, err, teamsl.ErrUnknownHorizon)
}
