package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kosench/shortlinks/internal/repository"
)

const DefaultInterval = 24 * time.Hour

type Result struct {
	Deactivated int64
	Deleted     int64
}

// Sweeper periodically deactivates expired links and purges links that
// have been inactive longer than the retention window.
type Sweeper struct {
	store     repository.Reclaimer
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Sweeper)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

func New(store repository.Reclaimer, interval, retention time.Duration, logger zerolog.Logger, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &Sweeper{
		store:     store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		log:       logger.With().Str("component", "sweeper").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepOnce runs one deactivate+purge pass. Each step is a single statement,
// so it either applies to its whole row set or to none of it.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	var res Result
	now := s.now().UTC()

	deactivated, err := s.store.DeactivateExpired(ctx, now)
	if err != nil {
		return res, fmt.Errorf("deactivate expired links: %w", err)
	}
	res.Deactivated = deactivated

	deleted, err := s.store.PurgeInactive(ctx, now.Add(-s.retention))
	if err != nil {
		return res, fmt.Errorf("purge inactive links: %w", err)
	}
	res.Deleted = deleted

	return res, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A failed or panicking sweep is logged and never stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().
		Dur("interval", s.interval).
		Dur("retention", s.retention).
		Msg("sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runSafely(ctx)

		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runSafely(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Msg("sweep panicked")
		}
	}()

	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	res, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).
			Int64("deactivated", res.Deactivated).
			Msg("sweep failed")
		return
	}

	s.log.Info().
		Int64("deactivated", res.Deactivated).
		Int64("deleted", res.Deleted).
		Dur("duration", time.Since(start)).
		Msg("sweep completed")
}
