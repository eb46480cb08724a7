package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/metrics"
	"github.com/rs/zerolog"
)

func TestValidateSchedules(t *testing.T) {
	tests := []struct {
		name           string
		generation     string
		reconciliation string
		wantErr        bool
	}{
		{"defaults", "0 9 * * 1,3,5", "0 9 * * 2,4", false},
		{"named days", "0 9 * * MON,WED", "30 17 * * tue,thu", false},
		{"ranges", "0 9 * * 1-3", "0 9 * * 4-6", false},
		{"step", "0 9 * * */2", "0 9 * * 1,3,5", false},
		{"overlapping range", "0 9 * * 1-5", "0 18 * * 5", true},
		{"every day", "0 9 * * *", "0 9 * * 2", true},
		{"day of month", "0 9 1 * *", "0 9 * * 2", true},
		{"identical", "0 9 * * 1", "0 9 * * 1", true},
		{"invalid expression", "not a cron", "0 9 * * 2", true},
		{"seconds field", "0 0 9 * * 1", "0 9 * * 2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedules(tt.generation, tt.reconciliation)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error for %q / %q", tt.generation, tt.reconciliation)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestParseWeekdayField(t *testing.T) {
	tests := map[string][7]bool{
		"*":       {true, true, true, true, true, true, true},
		"1,3,5":   {false, true, false, true, false, true, false},
		"1-3":     {false, true, true, true, false, false, false},
		"*/3":     {true, false, false, true, false, false, true},
		"sat,SUN": {true, false, false, false, false, false, true},
		"5-7":     {true, false, false, false, false, true, true},
	}

	for field, want := range tests {
		got, err := parseWeekdayField(field)
		if err != nil {
			t.Errorf("parseWeekdayField(%q): unexpected error %v", field, err)
			continue
		}
		if got != want {
			t.Errorf("parseWeekdayField(%q): expected %v, got %v", field, want, got)
		}
	}

	if _, err := parseWeekdayField("8"); err == nil {
		t.Error("Expected error for out-of-range weekday")
	}
}

// blockingPipeline holds every scheduled run until release is closed
type blockingPipeline struct {
	PipelineService
	started chan string
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingPipeline) HandleScheduled(ctx context.Context, cronExpr string) error {
	b.calls.Add(1)
	b.started <- cronExpr
	<-b.release
	return nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		GenerationSchedule:     "0 9 * * 1,3,5",
		ReconciliationSchedule: "0 9 * * 2,4",
		TriggerTimeout:         time.Minute,
		ReconcileConcurrency:   2,
		RateLimitPerHour:       10,
	}
}

func TestScheduler_SkipsOverlappingFiring(t *testing.T) {
	pipeline := &blockingPipeline{started: make(chan string, 2), release: make(chan struct{})}
	cfg := testPipelineConfig()

	s, err := newScheduler(pipeline, nil, metrics.NewMetrics(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newScheduler failed: %v", err)
	}
	s.ctx, s.running = context.Background(), true

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.fire(TriggerGeneration, cfg.GenerationSchedule)
	}()
	<-pipeline.started

	// Same trigger while the first run is active: dropped
	s.fire(TriggerGeneration, cfg.GenerationSchedule)
	if got := pipeline.calls.Load(); got != 1 {
		t.Errorf("Expected overlapping firing to be skipped, got %d calls", got)
	}

	// Other trigger is independent
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.fire(TriggerReconciliation, cfg.ReconciliationSchedule)
	}()
	if expr := <-pipeline.started; expr != cfg.ReconciliationSchedule {
		t.Errorf("Expected reconciliation firing, got %q", expr)
	}

	close(pipeline.release)
	wg.Wait()

	if got := pipeline.calls.Load(); got != 2 {
		t.Errorf("Expected 2 runs, got %d", got)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	cfg := testPipelineConfig()
	store := kv.NewMemoryStore()

	s, err := newScheduler(&blockingPipeline{}, store, metrics.NewMetrics(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newScheduler failed: %v", err)
	}

	if err := s.StartScheduler(context.Background()); err != nil {
		t.Fatalf("StartScheduler failed: %v", err)
	}
	if err := s.StartScheduler(context.Background()); err != nil {
		t.Errorf("Second StartScheduler should be a no-op, got %v", err)
	}
	s.StopScheduler()
	s.StopScheduler()

	if s.running {
		t.Error("Scheduler should not be running after stop")
	}
}

func TestScheduler_DropsFiringsAfterStop(t *testing.T) {
	pipeline := &blockingPipeline{started: make(chan string, 1), release: make(chan struct{})}
	close(pipeline.release)
	cfg := testPipelineConfig()

	s, err := newScheduler(pipeline, kv.NewMemoryStore(), metrics.NewMetrics(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newScheduler failed: %v", err)
	}
	if err := s.StartScheduler(context.Background()); err != nil {
		t.Fatalf("StartScheduler failed: %v", err)
	}

	s.fire(TriggerGeneration, cfg.GenerationSchedule)
	if got := pipeline.calls.Load(); got != 1 {
		t.Fatalf("Expected firing while running, got %d calls", got)
	}
	<-pipeline.started

	s.StopScheduler()

	// A firing dispatched by cron just before Stop arrives late
	s.fire(TriggerGeneration, cfg.GenerationSchedule)
	s.purge()
	if got := pipeline.calls.Load(); got != 1 {
		t.Errorf("Expected firing after stop to be dropped, got %d calls", got)
	}
}

func TestScheduler_PurgesExpiredEntries(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	store := kv.NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Put(ctx, "rate_limit:a:2024-03-04-08", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	now = now.Add(2 * time.Minute)

	s, err := newScheduler(&blockingPipeline{}, store, metrics.NewMetrics(), testPipelineConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("newScheduler failed: %v", err)
	}
	s.ctx, s.running = ctx, true
	s.purge()

	n, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected scheduler purge to have removed the entry, %d left to purge", n)
	}
}

func TestNewScheduler_RejectsOverlappingSchedules(t *testing.T) {
	cfg := &config.Config{Pipeline: testPipelineConfig()}
	cfg.Pipeline.ReconciliationSchedule = "0 18 * * 5"

	if _, err := newScheduler(&blockingPipeline{}, nil, nil, cfg.Pipeline, zerolog.Nop()); err == nil {
		t.Error("Expected overlapping schedules to be rejected")
	}
}
