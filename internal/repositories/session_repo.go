package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/database"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var session models.Session
	var location []byte
	var durationSecs int64

	err := scanner.Scan(
		&session.ID, &session.UserID, &session.Name, &session.Email,
		&session.IP, &location, &session.Token, &session.State,
		&session.CreatedAt, &session.LastActivity, &session.ExpiresAt,
		&durationSecs,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if len(location) > 0 {
		var geo models.GeoLocation
		if err := json.Unmarshal(location, &geo); err == nil {
			session.Location = &geo
		}
	}
	session.Duration = time.Duration(durationSecs) * time.Second

	return &session, nil
}

func scanSessionRows(rows pgx.Rows) ([]*models.Session, error) {
	defer rows.Close()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return sessions, nil
}

// Create records a new active session for the user. Any session still marked
// active for the same user is deactivated in the same transaction, so the
// single-active-session invariant holds even when two logins race.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session, lifetime time.Duration) (*models.Session, error) {
	session.ID = uuid.New().String()
	session.State = models.SessionActive

	now := time.Now()
	session.CreatedAt = now
	session.LastActivity = now
	session.ExpiresAt = now.Add(lifetime)

	var location []byte
	if session.Location != nil {
		var err error
		location, err = json.Marshal(session.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session location: %w", err)
		}
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Serialize concurrent creates for the same user; under read
		// committed, two racing transactions would otherwise both miss each
		// other's uncommitted insert and leave two active rows.
		_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, session.UserID)
		if err != nil {
			return database.MapPostgresError(err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE sessions SET state = $1, duration = EXTRACT(EPOCH FROM (NOW() - created_at))::bigint
			WHERE user_id = $2 AND state = $3
		`, models.SessionDeactivated, session.UserID, models.SessionActive)
		if err != nil {
			return database.MapPostgresError(err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, name, email, ip, location, token, state, created_at, last_activity, expires_at, duration)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		`,
			session.ID, session.UserID, session.Name, session.Email,
			session.IP, location, session.Token, session.State,
			session.CreatedAt, session.LastActivity, session.ExpiresAt,
		)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// ListHistory reconciles the user's session state and returns their history,
// newest first. Reconciliation deactivates sessions whose window elapsed and
// any active session older than the user's newest one, so a read never
// observes two concurrent actives.
func (r *SessionRepository) ListHistory(ctx context.Context, userID string) ([]*models.Session, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE sessions SET state = $1, duration = EXTRACT(EPOCH FROM (expires_at - created_at))::bigint
			WHERE user_id = $2 AND state = $3 AND expires_at <= NOW()
		`, models.SessionDeactivated, userID, models.SessionActive)
		if err != nil {
			return database.MapPostgresError(err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE sessions s SET state = $1, duration = EXTRACT(EPOCH FROM (NOW() - s.created_at))::bigint
			WHERE s.user_id = $2 AND s.state = $3 AND EXISTS (
				SELECT 1 FROM sessions newer
				WHERE newer.user_id = s.user_id AND newer.state = s.state
				  AND newer.created_at > s.created_at
			)
		`, models.SessionDeactivated, userID, models.SessionActive)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, name, email, ip, location, token, state, created_at, last_activity, expires_at, duration
		FROM sessions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	return scanSessionRows(rows)
}

// ListByUser returns the user's sessions, newest first, without reconciling.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, name, email, ip, location, token, state, created_at, last_activity, expires_at, duration
		FROM sessions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	return scanSessionRows(rows)
}

// Touch extends the session window after authenticated activity.
func (r *SessionRepository) Touch(ctx context.Context, token string, lifetime time.Duration) error {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE sessions SET last_activity = NOW(), expires_at = NOW() + $1
		WHERE token = $2 AND state = $3
	`, lifetime, token, models.SessionActive)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Deactivate ends the session identified by token, recording its final
// duration.
func (r *SessionRepository) Deactivate(ctx context.Context, token string) error {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE sessions SET state = $1, duration = EXTRACT(EPOCH FROM (NOW() - created_at))::bigint
		WHERE token = $2 AND state = $3
	`, models.SessionDeactivated, token, models.SessionActive)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SweepExpired deactivates every session whose window elapsed. Returns the
// number of sessions closed.
func (r *SessionRepository) SweepExpired(ctx context.Context) (int, error) {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE sessions SET state = $1, duration = EXTRACT(EPOCH FROM (expires_at - created_at))::bigint
		WHERE state = $2 AND expires_at <= NOW()
	`, models.SessionDeactivated, models.SessionActive)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return int(result.RowsAffected()), nil
}
