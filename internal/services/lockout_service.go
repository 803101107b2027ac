package services

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/config"
	pkglogger "github.com/RamiroHerreraX/lacteos-auth/pkg/logger"
)

// lockoutState tracks consecutive failures and block escalation for one email.
// failures counts consecutive bad attempts since the last success or block;
// cycles counts blocks served since the last escalation reset.
type lockoutState struct {
	failures     int
	cycles       int
	blockedUntil time.Time
	lastSeen     time.Time
}

// LockoutService enforces progressive lockout. After MaxFailures consecutive
// failures the email is blocked for BlockDuration and the failure counter
// resets; the EscalationCycles-th block in a row lasts EscalatedBlock and
// resets the cycle counter. A successful attempt zeroes both counters but
// never lifts a block already in force.
type LockoutService struct {
	mu     sync.Mutex
	states map[string]*lockoutState
	cfg    config.AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLockoutService(cfg config.AuthConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		states: make(map[string]*lockoutState),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// IsBlocked reports whether the email is currently blocked and, if so, how
// long until the block lifts.
func (s *LockoutService) IsBlocked(email string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[lockoutKey(email)]
	if !ok {
		return 0, false
	}

	now := s.now()
	state.lastSeen = now

	if remaining := state.blockedUntil.Sub(now); remaining > 0 {
		return remaining, true
	}
	return 0, false
}

// RecordFailure registers a failed attempt. When the failure crosses the
// threshold it returns the duration of the block just imposed; otherwise the
// second return is false.
func (s *LockoutService) RecordFailure(email string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lockoutKey(email)
	state, ok := s.states[key]
	if !ok {
		state = &lockoutState{}
		s.states[key] = state
	}

	now := s.now()
	state.lastSeen = now

	// Attempts made while a block is in force neither extend it nor count
	// toward the next one.
	if state.blockedUntil.After(now) {
		return state.blockedUntil.Sub(now), true
	}

	state.failures++
	if state.failures < s.cfg.MaxFailures {
		return 0, false
	}

	state.failures = 0
	state.cycles++

	block := s.cfg.BlockDuration
	if state.cycles >= s.cfg.EscalationCycles {
		block = s.cfg.EscalatedBlock
		state.cycles = 0
	}
	state.blockedUntil = now.Add(block)

	s.logger.Warn("account blocked after repeated failures",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Duration("block", block),
	)

	return block, true
}

// RecordSuccess clears the failure and cycle counters. An active block stays
// in force until it expires on its own.
func (s *LockoutService) RecordSuccess(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[lockoutKey(email)]
	if !ok {
		return
	}

	state.failures = 0
	state.cycles = 0
	state.lastSeen = s.now()

	if !state.blockedUntil.After(s.now()) {
		delete(s.states, lockoutKey(email))
	}
}

// Sweep evicts entries idle longer than the escalated block window; anything
// older can no longer influence an outcome.
func (s *LockoutService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, state := range s.states {
		if state.blockedUntil.After(now) {
			continue
		}
		if now.Sub(state.lastSeen) > s.cfg.EscalatedBlock {
			delete(s.states, key)
			removed++
		}
	}
	return removed
}

func lockoutKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
