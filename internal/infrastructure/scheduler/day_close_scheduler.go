package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	reportapp "github.com/comedor/backend/internal/application/report"
	"github.com/comedor/backend/internal/infrastructure/cache"
	"github.com/comedor/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cronTickerInterval is the interval at which the scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

const dayCloseLockKey = "day-close"

// DayCloseSchedulerConfig holds configuration for the daily close
type DayCloseSchedulerConfig struct {
	// Enabled starts the daily ticker; manual runs work either way
	Enabled bool
	// CronHour is the hour (0-23) to close the previous day
	CronHour int
	// CronMinute is the minute (0-59) to close the previous day
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a single close can run
	JobTimeout time.Duration
	// LockTTL bounds how long a crashed instance can hold the close lock
	LockTTL time.Duration
	// Location is the business timezone the schedule is expressed in
	Location *time.Location
}

// DefaultDayCloseSchedulerConfig returns default scheduler configuration
// Defaults to running at 00:05 daily
func DefaultDayCloseSchedulerConfig() DayCloseSchedulerConfig {
	return DayCloseSchedulerConfig{
		Enabled:           true,
		CronHour:          0,
		CronMinute:        5,
		DailyCronSchedule: "5 0 * * *",
		JobTimeout:        5 * time.Minute,
		LockTTL:           10 * time.Minute,
		Location:          time.Local,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute.
// Returns the 00:05 default when the expression is empty or too short.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour, minute = 0, 5

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 5, fmt.Errorf("%w: minute %q", ErrInvalidConfig, parts[0])
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 5, fmt.Errorf("%w: hour %q", ErrInvalidConfig, parts[1])
		}
	}

	if minute < 0 || minute > 59 {
		return 0, 5, fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidConfig, minute)
	}
	if hour < 0 || hour > 23 {
		return 0, 5, fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidConfig, hour)
	}
	return hour, minute, nil
}

// DayCloser closes the previous calendar day
type DayCloser interface {
	CloseDay(ctx context.Context) reportapp.CloseResult
}

// DayCloseScheduler fires the day close once a day and records every run
type DayCloseScheduler struct {
	config DayCloseSchedulerConfig
	closer DayCloser
	locker cache.Locker
	runs   *DayCloseRunRepository
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt  *time.Time
	nextRunAt  *time.Time
	lastResult *reportapp.CloseResult
}

// NewDayCloseScheduler creates a new day-close scheduler. runs may be nil.
func NewDayCloseScheduler(
	config DayCloseSchedulerConfig,
	closer DayCloser,
	locker cache.Locker,
	runs *DayCloseRunRepository,
	logger *zap.Logger,
) *DayCloseScheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayCloseScheduler{
		config: config,
		closer: closer,
		locker: locker,
		runs:   runs,
		logger: logger,
		now:    time.Now,
	}
}

// Start starts the daily ticker
func (s *DayCloseScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Day close scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.GetNextRunAt()),
	)
	return nil
}

// Stop stops the ticker and waits for a running close
func (s *DayCloseScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Day close scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Day close scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *DayCloseScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.shouldRun(s.now()) {
				if _, err := s.run(ctx, TriggerSchedule); err != nil && !errors.Is(err, ErrRunInProgress) {
					s.logger.Error("Scheduled day close failed", zap.Error(err))
				}
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the close should run at the given time
func (s *DayCloseScheduler) shouldRun(now time.Time) bool {
	local := now.In(s.config.Location)
	return local.Hour() == s.config.CronHour && local.Minute() == s.config.CronMinute
}

func (s *DayCloseScheduler) calculateNextRunTime() {
	now := s.now().In(s.config.Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, s.config.Location)

	// already past today's slot
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// RunNow closes the previous day immediately. It does not require Start.
func (s *DayCloseScheduler) RunNow(ctx context.Context) (reportapp.CloseResult, error) {
	return s.run(ctx, TriggerManual)
}

func (s *DayCloseScheduler) run(ctx context.Context, trigger RunTrigger) (reportapp.CloseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "scheduler", "day_close")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTrigger, string(trigger))

	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	runID := s.recordStart(ctx, trigger)

	lock, err := s.locker.Obtain(ctx, dayCloseLockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotObtained) {
			s.logger.Info("Day close skipped, another run holds the lock", zap.String("trigger", string(trigger)))
			s.recordComplete(ctx, runID, RunStatusSkipped, reportapp.CloseResult{}, "")
			return reportapp.CloseResult{}, ErrRunInProgress
		}
		s.recordComplete(ctx, runID, RunStatusFailed, reportapp.CloseResult{}, err.Error())
		telemetry.RecordError(span, err)
		return reportapp.CloseResult{}, fmt.Errorf("day close lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release day close lock", zap.Error(err))
		}
	}()

	started := s.now()
	result := s.closer.CloseDay(ctx)

	s.mu.Lock()
	s.lastRunAt = &started
	s.lastResult = &result
	s.mu.Unlock()

	status, errMsg := RunStatusSuccess, ""
	if !result.Closed.Persisted {
		status = RunStatusFailed
		if result.Closed.Err != nil {
			errMsg = result.Closed.Err.Error()
			telemetry.RecordError(span, result.Closed.Err)
		}
	}
	s.recordComplete(ctx, runID, status, result, errMsg)

	s.logger.Info("Day close run finished",
		zap.String("trigger", string(trigger)),
		zap.String("date", result.Closed.Date),
		zap.String("status", string(status)),
		zap.Bool("seeded_today", result.SeededToday),
	)
	return result, nil
}

func (s *DayCloseScheduler) recordStart(ctx context.Context, trigger RunTrigger) uuid.UUID {
	if s.runs == nil {
		return uuid.Nil
	}
	id, err := s.runs.RecordRunStart(ctx, trigger)
	if err != nil {
		s.logger.Warn("Failed to record day close start", zap.Error(err))
		return uuid.Nil
	}
	return id
}

func (s *DayCloseScheduler) recordComplete(ctx context.Context, runID uuid.UUID, status RunStatus, result reportapp.CloseResult, errMsg string) {
	if s.runs == nil || runID == uuid.Nil {
		return
	}
	if err := s.runs.RecordRunComplete(context.WithoutCancel(ctx), runID, status, result.Closed.Date, result.SeededToday, errMsg); err != nil {
		s.logger.Warn("Failed to record day close completion", zap.String("run_id", runID.String()), zap.Error(err))
	}
}

// GetStatus returns the current status of the scheduler
func (s *DayCloseScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.isRunning,
		"cron_hour":     s.config.CronHour,
		"cron_minute":   s.config.CronMinute,
		"cron_schedule": s.config.DailyCronSchedule,
		"last_run_at":   s.lastRunAt,
		"next_run_at":   s.nextRunAt,
	}
	if s.lastResult != nil {
		status["last_closed_date"] = s.lastResult.Closed.Date
		status["last_persisted"] = s.lastResult.Closed.Persisted
	}
	return status
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *DayCloseScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *DayCloseScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
