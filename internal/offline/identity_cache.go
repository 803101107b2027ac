package offline

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
)

// IdentityCache keeps the last known credential record per email so login and
// password-reset verification can proceed when the relational store is down.
// Entries are refreshed on every successful lookup, so staleness is bounded
// by how recently the account authenticated.
type IdentityCache struct {
	journal *log
	logger  *slog.Logger
}

func NewIdentityCache(dir string, logger *slog.Logger) (*IdentityCache, error) {
	journal, err := openLog(filepath.Join(dir, "identities.jsonl"))
	if err != nil {
		return nil, err
	}
	return &IdentityCache{journal: journal, logger: logger}, nil
}

// Remember records the user's current credential state. Failures are logged
// and swallowed; the cache is best-effort and must never fail a login.
func (c *IdentityCache) Remember(user *models.User) {
	if err := c.journal.put(normalizeEmail(user.Email), user); err != nil {
		c.logger.Warn("failed to update offline identity cache",
			slog.String("error", err.Error()),
		)
	}
}

// Lookup returns the cached record for the email, or ErrNotFound when the
// account has never authenticated on this host.
func (c *IdentityCache) Lookup(email string) (*models.User, error) {
	var user models.User
	ok, err := c.journal.get(normalizeEmail(email), &user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return &user, nil
}

func (c *IdentityCache) Close() error {
	return c.journal.close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
