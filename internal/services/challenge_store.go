package services

import (
	"strings"
	"sync"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
)

// ChallengeStore holds pending login OTP challenges in memory, one per email.
// Issuing a new challenge replaces any earlier one for the same address.
type ChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*models.OTPChallenge
	now        func() time.Time
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		challenges: make(map[string]*models.OTPChallenge),
		now:        time.Now,
	}
}

func (s *ChallengeStore) Put(challenge *models.OTPChallenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challengeKey(challenge.Email)] = challenge
}

// Get returns the pending challenge for the email, expired or not. Expiry is
// the caller's check: a stale challenge must be reported distinctly from a
// missing one, and deleting it is part of that report.
func (s *ChallengeStore) Get(email string) (*models.OTPChallenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[challengeKey(email)]
	return challenge, ok
}

func (s *ChallengeStore) Delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeKey(email))
}

// Sweep drops expired challenges. Returns the number removed.
func (s *ChallengeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, challenge := range s.challenges {
		if challenge.Expired(now) {
			delete(s.challenges, key)
			removed++
		}
	}
	return removed
}

func challengeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
