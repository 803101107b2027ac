package background

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the store-side half of session expiry: it periodically
// deactivates sessions whose window elapsed and clears out stale reset
// tokens, lockout entries, and pending login challenges.
type Sweeper struct {
	sessions  SessionSweepTarget
	resetRepo ResetTokenSweepTarget
	memory    []MemorySweepTarget
	logger    *slog.Logger
	interval  time.Duration
	stopCh    chan struct{}
}

// SessionSweepTarget deactivates expired session rows.
type SessionSweepTarget interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ResetTokenSweepTarget removes expired reset tokens.
type ResetTokenSweepTarget interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// MemorySweepTarget is an in-process store with its own expiry bookkeeping
// (lockout entries, OTP challenges, offline token mirror).
type MemorySweepTarget interface {
	Sweep() int
}

func NewSweeper(
	sessions SessionSweepTarget,
	resetRepo ResetTokenSweepTarget,
	memory []MemorySweepTarget,
	logger *slog.Logger,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		sessions:  sessions,
		resetRepo: resetRepo,
		memory:    memory,
		logger:    logger,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic sweep. Blocks until Stop is called or the context
// is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	closed, err := s.sessions.SweepExpired(sweepCtx)
	if err != nil {
		s.logger.Error("failed to sweep expired sessions", slog.Any("error", err))
	} else if closed > 0 {
		s.logger.Info("expired sessions deactivated", slog.Int("count", closed))
	}

	removed, err := s.resetRepo.DeleteExpired(sweepCtx)
	if err != nil {
		s.logger.Error("failed to sweep expired reset tokens", slog.Any("error", err))
	} else if removed > 0 {
		s.logger.Info("expired reset tokens removed", slog.Int("count", removed))
	}

	for _, target := range s.memory {
		target.Sweep()
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
