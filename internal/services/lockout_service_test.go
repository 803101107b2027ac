package services

import (
	"testing"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLockout() (*LockoutService, *time.Time) {
	cfg := config.AuthConfig{
		MaxFailures:      5,
		BlockDuration:    1 * time.Minute,
		EscalationCycles: 3,
		EscalatedBlock:   24 * time.Hour,
	}
	svc := NewLockoutService(cfg, testLogger())

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func failTimes(svc *LockoutService, email string, n int) (time.Duration, bool) {
	var retryAfter time.Duration
	var blocked bool
	for i := 0; i < n; i++ {
		retryAfter, blocked = svc.RecordFailure(email)
	}
	return retryAfter, blocked
}

func TestLockoutService_BelowThreshold_NoBlock(t *testing.T) {
	svc, _ := newTestLockout()

	_, blocked := failTimes(svc, "user@example.com", 4)
	assert.False(t, blocked)

	_, isBlocked := svc.IsBlocked("user@example.com")
	assert.False(t, isBlocked)
}

func TestLockoutService_FifthFailure_Blocks(t *testing.T) {
	svc, _ := newTestLockout()

	retryAfter, blocked := failTimes(svc, "user@example.com", 5)
	require.True(t, blocked)
	assert.Equal(t, 1*time.Minute, retryAfter)

	remaining, isBlocked := svc.IsBlocked("user@example.com")
	assert.True(t, isBlocked)
	assert.Equal(t, 1*time.Minute, remaining)
}

func TestLockoutService_FailureDuringBlock_DoesNotExtend(t *testing.T) {
	svc, now := newTestLockout()

	failTimes(svc, "user@example.com", 5)

	*now = now.Add(30 * time.Second)
	retryAfter, blocked := svc.RecordFailure("user@example.com")
	require.True(t, blocked)
	assert.Equal(t, 30*time.Second, retryAfter)

	// The attempt inside the window must not count toward the next block:
	// after expiry it still takes five fresh failures.
	*now = now.Add(31 * time.Second)
	_, blocked = failTimes(svc, "user@example.com", 4)
	assert.False(t, blocked)
	_, blocked = svc.RecordFailure("user@example.com")
	assert.True(t, blocked)
}

func TestLockoutService_ThirdBlock_Escalates(t *testing.T) {
	svc, now := newTestLockout()

	retryAfter, blocked := failTimes(svc, "user@example.com", 5)
	require.True(t, blocked)
	require.Equal(t, 1*time.Minute, retryAfter)

	*now = now.Add(2 * time.Minute)
	retryAfter, blocked = failTimes(svc, "user@example.com", 5)
	require.True(t, blocked)
	require.Equal(t, 1*time.Minute, retryAfter)

	*now = now.Add(2 * time.Minute)
	retryAfter, blocked = failTimes(svc, "user@example.com", 5)
	require.True(t, blocked)
	assert.Equal(t, 24*time.Hour, retryAfter)
}

func TestLockoutService_EscalationResets_AfterLongBlock(t *testing.T) {
	svc, now := newTestLockout()

	for i := 0; i < 3; i++ {
		failTimes(svc, "user@example.com", 5)
		*now = now.Add(25 * time.Hour)
	}

	// Cycle counter reset with the escalated block; the next block is the
	// short one again.
	retryAfter, blocked := failTimes(svc, "user@example.com", 5)
	require.True(t, blocked)
	assert.Equal(t, 1*time.Minute, retryAfter)
}

func TestLockoutService_Success_ResetsCounters(t *testing.T) {
	svc, _ := newTestLockout()

	failTimes(svc, "user@example.com", 4)
	svc.RecordSuccess("user@example.com")

	_, blocked := failTimes(svc, "user@example.com", 4)
	assert.False(t, blocked)
}

func TestLockoutService_Success_DoesNotLiftActiveBlock(t *testing.T) {
	svc, _ := newTestLockout()

	failTimes(svc, "user@example.com", 5)
	svc.RecordSuccess("user@example.com")

	_, isBlocked := svc.IsBlocked("user@example.com")
	assert.True(t, isBlocked)
}

func TestLockoutService_EmailsTrackedIndependently(t *testing.T) {
	svc, _ := newTestLockout()

	failTimes(svc, "first@example.com", 5)

	_, isBlocked := svc.IsBlocked("second@example.com")
	assert.False(t, isBlocked)
}

func TestLockoutService_KeyNormalization(t *testing.T) {
	svc, _ := newTestLockout()

	failTimes(svc, "User@Example.com", 5)

	_, isBlocked := svc.IsBlocked("  user@example.com ")
	assert.True(t, isBlocked)
}

func TestLockoutService_Sweep_EvictsIdleEntries(t *testing.T) {
	svc, now := newTestLockout()

	failTimes(svc, "user@example.com", 2)

	*now = now.Add(25 * time.Hour)
	removed := svc.Sweep()
	assert.Equal(t, 1, removed)

	// Fresh slate after eviction.
	_, blocked := failTimes(svc, "user@example.com", 4)
	assert.False(t, blocked)
}

func TestLockoutService_Sweep_KeepsActiveBlocks(t *testing.T) {
	svc, now := newTestLockout()

	failTimes(svc, "user@example.com", 5) // 1-minute block

	*now = now.Add(30 * time.Second)
	removed := svc.Sweep()
	assert.Zero(t, removed)

	_, isBlocked := svc.IsBlocked("user@example.com")
	assert.True(t, isBlocked)
}
