package offline

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
)

// TokenStore mirrors issued password-reset tokens so a consumed or expired
// token can still be honored or invalidated while the relational store is
// unreachable. It is written alongside every database write, not instead of
// one.
type TokenStore struct {
	journal *log
	logger  *slog.Logger
}

func NewTokenStore(dir string, logger *slog.Logger) (*TokenStore, error) {
	journal, err := openLog(filepath.Join(dir, "reset_tokens.jsonl"))
	if err != nil {
		return nil, err
	}
	return &TokenStore{journal: journal, logger: logger}, nil
}

// Save mirrors the token. Best-effort; errors are logged and swallowed.
func (s *TokenStore) Save(token *models.ResetToken) {
	if err := s.journal.put(token.Token, token); err != nil {
		s.logger.Warn("failed to mirror reset token offline",
			slog.String("error", err.Error()),
		)
	}
}

// Get returns the mirrored token, or ErrNotFound.
func (s *TokenStore) Get(token string) (*models.ResetToken, error) {
	var rec models.ResetToken
	ok, err := s.journal.get(token, &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return &rec, nil
}

// Delete removes a consumed or superseded token from the mirror.
func (s *TokenStore) Delete(token string) {
	if err := s.journal.delete(token); err != nil {
		s.logger.Warn("failed to remove mirrored reset token",
			slog.String("error", err.Error()),
		)
	}
}

// Sweep drops every mirrored token that expired before now.
func (s *TokenStore) Sweep(now time.Time) int {
	removed := 0
	for _, key := range s.journal.keys() {
		var rec models.ResetToken
		ok, err := s.journal.get(key, &rec)
		if err != nil || !ok {
			continue
		}
		if rec.Expired(now) {
			s.Delete(key)
			removed++
		}
	}
	return removed
}

func (s *TokenStore) Close() error {
	return s.journal.close()
}
