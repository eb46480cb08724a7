package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/metrics"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"
)

// purgeInterval is how often expired store entries are removed
const purgeInterval = time.Hour

// scheduler is the concrete implementation of SchedulerService
type scheduler struct {
	pipeline PipelineService
	purger   kv.Purger
	metrics  *metrics.Metrics
	cfg      config.PipelineConfig
	log      zerolog.Logger

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	// one guard per trigger, held while a firing runs
	active map[string]*sync.Mutex
}

func newScheduler(pipeline PipelineService, purger kv.Purger, m *metrics.Metrics, cfg config.PipelineConfig, log zerolog.Logger) (*scheduler, error) {
	if err := ValidateSchedules(cfg.GenerationSchedule, cfg.ReconciliationSchedule); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewMetrics()
	}

	return &scheduler{
		pipeline: pipeline,
		purger:   purger,
		metrics:  m,
		cfg:      cfg,
		log:      log.With().Str("service", "scheduler").Logger(),
		active: map[string]*sync.Mutex{
			TriggerGeneration:     {},
			TriggerReconciliation: {},
		},
	}, nil
}

// StartScheduler registers both triggers and starts the cron loop. It returns
// immediately; firings run on the cron goroutine until StopScheduler.
func (s *scheduler) StartScheduler(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	genSchedule, err := cron.ParseStandard(s.cfg.GenerationSchedule)
	if err != nil {
		return fmt.Errorf("invalid generation schedule: %w", err)
	}
	reconSchedule, err := cron.ParseStandard(s.cfg.ReconciliationSchedule)
	if err != nil {
		return fmt.Errorf("invalid reconciliation schedule: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.NewWithLocation(time.UTC)

	s.cron.Schedule(genSchedule, cron.FuncJob(func() {
		s.fire(TriggerGeneration, s.cfg.GenerationSchedule)
	}))
	s.cron.Schedule(reconSchedule, cron.FuncJob(func() {
		s.fire(TriggerReconciliation, s.cfg.ReconciliationSchedule)
	}))
	if s.purger != nil {
		s.cron.Schedule(cron.Every(purgeInterval), cron.FuncJob(s.purge))
	}

	s.cron.Start()
	s.running = true

	s.log.Info().
		Str("generation", s.cfg.GenerationSchedule).
		Str("reconciliation", s.cfg.ReconciliationSchedule).
		Bool("purge", s.purger != nil).
		Msg("Scheduler started")
	return nil
}

// StopScheduler stops the cron loop and waits for running firings
func (s *scheduler) StopScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	// Firings that reach begin after this point see running == false
	s.running = false
	s.cron.Stop()
	s.wg.Wait()
	s.cancel()
	s.log.Info().Msg("Scheduler stopped")
}

// begin registers a firing with the wait group, refusing once the
// scheduler is stopped or stopping
func (s *scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.wg.Add(1)
	return true
}

// fire runs one trigger unless its previous firing is still active
func (s *scheduler) fire(trigger, expr string) {
	if !s.begin() {
		s.log.Debug().Str("trigger", trigger).Msg("Scheduler stopped, dropping firing")
		return
	}
	defer s.wg.Done()

	guard := s.active[trigger]
	if !guard.TryLock() {
		s.metrics.RecordSkippedTrigger(trigger)
		s.log.Warn().Str("trigger", trigger).Msg("Previous run still active, skipping firing")
		return
	}
	defer guard.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Str("trigger", trigger).
				Msg("Scheduled run panicked - recovered")
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.TriggerTimeout)
	defer cancel()

	s.log.Info().Str("trigger", trigger).Str("cron", expr).Msg("Scheduled run starting")
	if err := s.pipeline.HandleScheduled(ctx, expr); err != nil {
		s.log.Error().Err(err).Str("trigger", trigger).Msg("Scheduled run failed")
		return
	}
	s.log.Info().Str("trigger", trigger).Msg("Scheduled run finished")
}

// purge drops expired entries from stores without native expiry
func (s *scheduler) purge() {
	if !s.begin() {
		return
	}
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to purge expired entries")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("Expired entries purged")
	}
}

// ValidateSchedules checks both expressions are standard 5-field cron
// expressions that never fire on the same weekday, so the two triggers
// cannot be confused when dispatching by expression.
func ValidateSchedules(generation, reconciliation string) error {
	if strings.TrimSpace(generation) == strings.TrimSpace(reconciliation) {
		return fmt.Errorf("generation and reconciliation schedules are identical: %q", generation)
	}

	genDays, err := scheduleWeekdays(generation)
	if err != nil {
		return fmt.Errorf("invalid generation schedule: %w", err)
	}
	reconDays, err := scheduleWeekdays(reconciliation)
	if err != nil {
		return fmt.Errorf("invalid reconciliation schedule: %w", err)
	}

	var overlap []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if genDays[d] && reconDays[d] {
			overlap = append(overlap, d.String())
		}
	}
	if len(overlap) > 0 {
		return fmt.Errorf("generation and reconciliation schedules overlap on %s", strings.Join(overlap, ", "))
	}
	return nil
}

var weekdayNames = map[string]int{
	"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6,
}

var allWeekdays = [7]bool{true, true, true, true, true, true, true}

// scheduleWeekdays returns the weekdays on which expr can fire
func scheduleWeekdays(expr string) ([7]bool, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return [7]bool{}, err
	}

	fields := strings.Fields(expr)
	if len(fields) == 1 && strings.HasPrefix(fields[0], "@") {
		if fields[0] == "@weekly" {
			return [7]bool{true}, nil
		}
		return allWeekdays, nil
	}
	if len(fields) != 5 {
		return [7]bool{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	// A restricted day-of-month can land on any weekday.
	if dom := fields[2]; dom != "*" && dom != "?" {
		return allWeekdays, nil
	}
	return parseWeekdayField(fields[4])
}

func parseWeekdayField(field string) ([7]bool, error) {
	var days [7]bool
	for _, part := range strings.Split(field, ",") {
		rangePart, step := part, 1
		if i := strings.Index(part, "/"); i >= 0 {
			n, err := strconv.Atoi(part[i+1:])
			if err != nil || n < 1 {
				return days, fmt.Errorf("invalid step in %q", part)
			}
			rangePart, step = part[:i], n
		}

		lo, hi := 0, 6
		switch {
		case rangePart == "*" || rangePart == "?":
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			var err error
			if lo, err = weekdayValue(bounds[0]); err != nil {
				return days, err
			}
			if hi, err = weekdayValue(bounds[1]); err != nil {
				return days, err
			}
			if hi == 0 && bounds[1] == "7" {
				hi = 7
			}
		default:
			v, err := weekdayValue(rangePart)
			if err != nil {
				return days, err
			}
			lo = v
			if step == 1 {
				hi = v
			}
		}

		for d := lo; d <= hi; d += step {
			days[d%7] = true
		}
	}
	return days, nil
}

func weekdayValue(s string) (int, error) {
	if v, ok := weekdayNames[strings.ToUpper(s)]; ok {
		return v, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 7 {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return n % 7, nil
}
