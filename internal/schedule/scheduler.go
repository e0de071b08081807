package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RunFunc performs one orchestration run.
type RunFunc func(ctx context.Context) error

// Scheduler fires a single run on a cron expression. A tick that arrives
// while the previous run is still in flight is skipped.
type Scheduler struct {
	spec   string
	run    RunFunc
	logger zerolog.Logger

	mu     sync.Mutex
	lock   sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// Parser accepts standard 5-field expressions.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks a cron expression without scheduling anything.
func Validate(spec string) error {
	if _, err := Parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func NewScheduler(spec string, run RunFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		spec:   spec,
		run:    run,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins firing runs. It fails on an invalid expression or when
// already started.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := cron.New(cron.WithParser(Parser))
	if _, err := c.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.cron = c
	s.cancel = cancel
	c.Start()

	next := c.Entries()[0].Next
	s.logger.Info().Str("schedule", s.spec).Time("next", next).Msg("scheduler started")
	return nil
}

// tick runs once unless a previous run still holds the lock.
func (s *Scheduler) tick(ctx context.Context) bool {
	if !s.lock.TryLock() {
		s.logger.Warn().Msg("previous run still in progress, skipping tick")
		return false
	}
	defer s.lock.Unlock()

	s.logger.Debug().Msg("run triggered")
	if err := s.run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("run failed")
	}
	return true
}

// Stop cancels in-flight runs and waits for them to return, or for ctx to
// be done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	s.cancel()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	s.cron = nil
	return nil
}
