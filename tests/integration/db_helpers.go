package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RamiroHerreraX/lacteos-auth/internal/database"
	"github.com/RamiroHerreraX/lacteos-auth/internal/models"
	"github.com/RamiroHerreraX/lacteos-auth/internal/repositories"
	"github.com/RamiroHerreraX/lacteos-auth/pkg/auth"
)

// TestDB holds a throwaway Postgres container with the schema applied.
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase starts a Postgres container, applies the goose
// migrations and hands back a ready-to-use pool.
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("lacteos"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	fail := func(err error) (*TestDB, error) {
		_ = container.Terminate(ctx)
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(fmt.Errorf("container connection string: %w", err))
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fail(fmt.Errorf("create pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fail(fmt.Errorf("ping database: %w", err))
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		return fail(fmt.Errorf("apply migrations: %w", err))
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, nil
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return err
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql handle; borrow pgx's stdlib adapter.
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	return goose.UpContext(ctx, sqlDB, migrationsDir)
}

func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates everything between tests. One statement so the
// foreign keys do not dictate ordering.
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := strings.Join([]string{"reset_tokens", "sessions", "users"}, ", ")
	if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE "+tables+" CASCADE"); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// SeedUser inserts a user with a real bcrypt hash through the repository.
func SeedUser(ctx context.Context, db *database.DB, name, email, password, role string) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	users := repositories.NewUserRepository(db)
	return users.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	})
}
