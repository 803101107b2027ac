package repositories

import (
	"context"
	"time"

	"github.com/RamiroHerreraX/lacteos-auth/internal/database"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
)

type ResetTokenRepository struct {
	db *database.DB
}

func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func scanResetTokenRow(scanner rowScanner) (*models.ResetToken, error) {
	var token models.ResetToken

	err := scanner.Scan(
		&token.Token, &token.Email, &token.OTP,
		&token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}

// Create stores a freshly issued token. Any earlier token for the same email
// is replaced first; an account holds at most one live reset token.
func (r *ResetTokenRepository) Create(ctx context.Context, token *models.ResetToken) error {
	token.CreatedAt = time.Now()

	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM reset_tokens WHERE LOWER(email) = LOWER($1)
	`, token.Email)
	if err != nil {
		return database.MapPostgresError(err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO reset_tokens (token, email, otp, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.Token, token.Email, token.OTP, token.ExpiresAt, token.CreatedAt)

	return database.MapPostgresError(err)
}

func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (*models.ResetToken, error) {
	return scanResetTokenRow(r.db.Pool.QueryRow(ctx, `
		SELECT token, email, otp, expires_at, created_at
		FROM reset_tokens WHERE token = $1
	`, token))
}

func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM reset_tokens WHERE token = $1`, token)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteExpired removes tokens whose window elapsed. Returns the number
// removed.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM reset_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return int(result.RowsAffected()), nil
}
