package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorwatch/internal/compliance"
	"vendorwatch/pkg/testutil"
)

type fakeRunner struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{}, 8)}
}

func (f *fakeRunner) Run(ctx context.Context) (*compliance.RunReport, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if f.err != nil {
		return &compliance.RunReport{Error: f.err.Error()}, f.err
	}
	return &compliance.RunReport{DocumentsEvaluated: 3}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitStarted(t *testing.T, f *fakeRunner) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not start")
	}
}

func TestNextRun(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later the same local day",
			now:  time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC), // 06:30 IST
			want: time.Date(2026, 3, 10, 9, 0, 0, 0, kolkata),
		},
		{
			name: "exactly at the trigger time rolls to tomorrow",
			now:  time.Date(2026, 3, 10, 9, 0, 0, 0, kolkata),
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, kolkata),
		},
		{
			name: "after the trigger time rolls to tomorrow",
			now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), // 17:30 IST
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, kolkata),
		},
		{
			name: "UTC evening is already the next local day",
			now:  time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC), // 01:30 IST on the 11th
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, kolkata),
		},
		{
			name: "month rollover",
			now:  time.Date(2026, 3, 31, 10, 0, 0, 0, kolkata),
			want: time.Date(2026, 4, 1, 9, 0, 0, 0, kolkata),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, 9, 0, kolkata)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextRunAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks spring forward on 2026-03-08; the local hour is kept.
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, ny)
	got := NextRun(now, 9, 0, ny)
	assert.Equal(t, 9, got.In(ny).Hour())
	assert.Equal(t, 8, got.In(ny).Day())
	assert.Equal(t, 23*time.Hour-3*time.Hour, got.Sub(now))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Hour: 9, Location: time.UTC}.Validate())
	assert.Error(t, Config{Hour: 24, Location: time.UTC}.Validate())
	assert.Error(t, Config{Minute: 60, Location: time.UTC}.Validate())
	assert.Error(t, Config{Hour: 9}.Validate())
}

func TestScheduler(t *testing.T) {
	testutil.Given(t, "a scheduler that runs on start", func(t *testing.T) {
		runner := newFakeRunner()
		s, err := New(runner, Config{Hour: 9, Location: time.UTC, RunOnStart: true}, WithLogger(quietLogger()))
		require.NoError(t, err)

		testutil.When(t, "it starts", func(t *testing.T) {
			s.Start(context.Background())
			waitStarted(t, runner)
			s.Stop()

			testutil.Then(t, "one eager run happened and the next trigger is set", func(t *testing.T) {
				assert.Equal(t, int32(1), runner.calls.Load())
				st := s.Status()
				assert.False(t, st.Running)
				require.NotNil(t, st.LastRun)
				assert.Equal(t, TriggerStartup, st.LastRun.Trigger)
				assert.Equal(t, 3, st.LastRun.Report.DocumentsEvaluated)
				assert.False(t, st.NextRun.IsZero())
			})
		})
	})

	testutil.Given(t, "a scheduler that does not run on start", func(t *testing.T) {
		runner := newFakeRunner()
		s, err := New(runner, Config{Hour: 9, Location: time.UTC}, WithLogger(quietLogger()))
		require.NoError(t, err)

		testutil.When(t, "it starts and stops", func(t *testing.T) {
			s.Start(context.Background())
			s.Stop()

			testutil.Then(t, "no run happened", func(t *testing.T) {
				assert.Equal(t, int32(0), runner.calls.Load())
				assert.Nil(t, s.Status().LastRun)
			})
		})
	})
}

func TestTriggerRefusesOverlap(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	s, err := New(runner, Config{Hour: 9, Location: time.UTC}, WithLogger(quietLogger()))
	require.NoError(t, err)
	s.Start(context.Background())
	defer s.Stop()

	require.NoError(t, s.TriggerAsync(context.Background()))
	waitStarted(t, runner)
	assert.True(t, s.Status().Running)

	_, err = s.Trigger(context.Background())
	assert.ErrorIs(t, err, compliance.ErrRunInProgress)
	assert.ErrorIs(t, s.TriggerAsync(context.Background()), compliance.ErrRunInProgress)

	close(runner.release)
	assert.Eventually(t, func() bool { return !s.Status().Running }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Equal(t, TriggerManual, s.Status().LastRun.Trigger)
}

func TestTriggerAfterStop(t *testing.T) {
	runner := newFakeRunner()
	s, err := New(runner, Config{Hour: 9, Location: time.UTC}, WithLogger(quietLogger()))
	require.NoError(t, err)
	s.Start(context.Background())
	s.Stop()

	_, err = s.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, s.TriggerAsync(context.Background()), ErrStopped)
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestStopWaitsForTriggersRacingShutdown(t *testing.T) {
	runner := newFakeRunner()
	runner.started = make(chan struct{}, 64)
	s, err := New(runner, Config{Hour: 9, Location: time.UTC}, WithLogger(quietLogger()))
	require.NoError(t, err)
	s.Start(context.Background())

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.TriggerAsync(context.Background())
		}()
	}
	s.Stop()
	calls := runner.calls.Load()
	wg.Wait()

	// Nothing starts once Stop has returned.
	assert.Equal(t, calls, runner.calls.Load())
	assert.False(t, s.Status().Running)
}

func TestTriggerRecordsFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("fetch mandatory documents: connection refused")
	s, err := New(runner, Config{Hour: 9, Location: time.UTC}, WithLogger(quietLogger()))
	require.NoError(t, err)

	report, err := s.Trigger(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)

	last := s.Status().LastRun
	require.NotNil(t, last)
	assert.Contains(t, last.Error, "connection refused")

	// A failed run does not wedge the scheduler.
	runner.err = nil
	_, err = s.Trigger(context.Background())
	assert.NoError(t, err)
}

func TestStopCancelsRunInFlight(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	s, err := New(runner, Config{Hour: 9, Location: time.UTC, RunOnStart: true}, WithLogger(quietLogger()))
	require.NoError(t, err)

	s.Start(context.Background())
	waitStarted(t, runner)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
