package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"hypewatch/internal/model"
	"hypewatch/internal/pipeline"
)

type fakeRunner struct {
	fetchAll   int64
	fetchKinds int64
	processes  int64
	syntheses  int64
}

func (f *fakeRunner) FetchAll(ctx context.Context) (*pipeline.FetchSummary, error) {
	atomic.AddInt64(&f.fetchAll, 1)
	return &pipeline.FetchSummary{}, nil
}

func (f *fakeRunner) FetchKind(ctx context.Context, kind model.SourceKind) (*pipeline.FetchSummary, error) {
	atomic.AddInt64(&f.fetchKinds, 1)
	return &pipeline.FetchSummary{}, nil
}

func (f *fakeRunner) Process(ctx context.Context) (*pipeline.ProcessSummary, error) {
	atomic.AddInt64(&f.processes, 1)
	return &pipeline.ProcessSummary{}, nil
}

func (f *fakeRunner) Synthesize(ctx context.Context, periodDays int, withDigest bool) (*model.SynthesisRun, error) {
	atomic.AddInt64(&f.syntheses, 1)
	return &model.SynthesisRun{}, nil
}

func TestNextWeekly(t *testing.T) {
	tests := []struct {
		name    string
		from    time.Time
		weekday time.Weekday
		hour    int
		want    time.Time
	}{
		{
			"midweek to sunday",
			time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), // Wednesday
			time.Sunday, 9,
			time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		},
		{
			"same day before slot",
			time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC), // Sunday 08:00
			time.Sunday, 9,
			time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		},
		{
			"same day after slot rolls a week",
			time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), // Sunday 10:00
			time.Sunday, 9,
			time.Date(2026, 9, 6, 9, 0, 0, 0, time.UTC),
		},
		{
			"exactly at slot rolls a week",
			time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			time.Sunday, 9,
			time.Date(2026, 9, 6, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeekly(tt.from, tt.weekday, tt.hour)
			if !got.Equal(tt.want) {
				t.Errorf("NextWeekly = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobTable(t *testing.T) {
	s := New(&fakeRunner{}, model.ScheduleConfig{
		TimelineHours:   4,
		GraphHours:      4,
		FeedHours:       6,
		TranscriptHours: 12,
		AcademicHours:   24,
		ProcessHours:    2,
		SynthesisHours:  24,
		DigestWeekday:   0,
		DigestHourUTC:   9,
	}, zap.NewNop())

	jobs := s.jobs()

	intervals := make(map[string]time.Duration, len(jobs))
	for _, j := range jobs {
		intervals[j.name] = j.interval
	}

	want := map[string]time.Duration{
		"fetch-timeline":   4 * time.Hour,
		"fetch-graph":      4 * time.Hour,
		"fetch-feed":       6 * time.Hour,
		"fetch-transcript": 12 * time.Hour,
		"fetch-academic":   24 * time.Hour,
		"process":          2 * time.Hour,
		"synthesize":       24 * time.Hour,
		"weekly-digest":    7 * 24 * time.Hour,
	}
	for name, interval := range want {
		if intervals[name] != interval {
			t.Errorf("job %s interval = %v, want %v", name, intervals[name], interval)
		}
	}
	if len(jobs) != len(want) {
		t.Errorf("job count = %d, want %d", len(jobs), len(want))
	}
}

func TestStartRunsImmediateCycle(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, model.ScheduleConfig{}, zap.NewNop())

	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt64(&runner.fetchAll) == 0 || atomic.LoadInt64(&runner.processes) == 0 {
		select {
		case <-deadline:
			t.Fatalf("startup cycle did not run: fetchAll=%d processes=%d",
				atomic.LoadInt64(&runner.fetchAll), atomic.LoadInt64(&runner.processes))
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()

	// No recurring job fires this quickly; only the startup pass ran.
	if got := atomic.LoadInt64(&runner.fetchKinds); got != 0 {
		t.Errorf("per-kind fetches = %d, want 0 immediately after start", got)
	}
}

func TestStopHaltsLoops(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, model.ScheduleConfig{}, zap.NewNop())

	s.Start(context.Background())
	s.Stop()

	before := atomic.LoadInt64(&runner.syntheses)
	time.Sleep(50 * time.Millisecond)
	if after := atomic.LoadInt64(&runner.syntheses); after != before {
		t.Errorf("synthesis ran after Stop: %d -> %d", before, after)
	}
}
