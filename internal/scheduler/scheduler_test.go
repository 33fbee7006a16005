package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	mu        sync.Mutex
	sweeps    []time.Duration
	purges    int
	sweepErr  error
	purgeErr  error
	sweepHits int
}

func (f *fakeJobs) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps = append(f.sweeps, grace)
	return f.sweepHits, f.sweepErr
}

func (f *fakeJobs) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	return 0, f.purgeErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	jobs := &fakeJobs{}

	tests := []struct {
		name     string
		config   Config
		wantJobs []string
		wantErr  bool
	}{
		{
			name:     "both jobs",
			config:   Config{OrphanSweepSchedule: "*/30 * * * *", TokenPurgeSchedule: "15 3 * * *"},
			wantJobs: []string{"orphan_sweep", "token_purge"},
		},
		{
			name:     "sweep disabled",
			config:   Config{TokenPurgeSchedule: "@hourly"},
			wantJobs: []string{"token_purge"},
		},
		{
			name:    "bad schedule",
			config:  Config{OrphanSweepSchedule: "every tuesday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.config, jobs, jobs, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			got := s.Jobs()
			sort.Strings(got)
			assert.Equal(t, tt.wantJobs, got)
		})
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	jobs := &fakeJobs{sweepHits: 2}
	s, err := New(Config{
		OrphanSweepSchedule: "@every 1h",
		OrphanGracePeriod:   90 * time.Minute,
		TokenPurgeSchedule:  "@every 1h",
	}, jobs, jobs, discardLogger())
	require.NoError(t, err)

	s.cron.Entry(s.entries["orphan_sweep"]).WrappedJob.Run()
	s.cron.Entry(s.entries["token_purge"]).WrappedJob.Run()

	assert.Equal(t, []time.Duration{90 * time.Minute}, jobs.sweeps)
	assert.Equal(t, 1, jobs.purges)
}

func TestScheduler_JobErrorsAreContained(t *testing.T) {
	jobs := &fakeJobs{sweepErr: errors.New("disk gone"), purgeErr: errors.New("db gone")}
	s, err := New(Config{OrphanSweepSchedule: "@every 1h", TokenPurgeSchedule: "@every 1h"}, jobs, jobs, discardLogger())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		s.cron.Entry(s.entries["orphan_sweep"]).WrappedJob.Run()
		s.cron.Entry(s.entries["token_purge"]).WrappedJob.Run()
	})
}

func TestScheduler_StartStop(t *testing.T) {
	jobs := &fakeJobs{}
	s, err := New(Config{OrphanSweepSchedule: "@every 1h"}, jobs, jobs, discardLogger())
	require.NoError(t, err)

	s.Start()
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.Next("orphan_sweep"), 5*time.Second)
	assert.True(t, s.Next("token_purge").IsZero())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
