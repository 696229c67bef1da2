// Package pgtest starts a throwaway Postgres for repository tests.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"coursepay/internal/infrastructure/database"
	"coursepay/migrations"
)

// New starts a migrated Postgres container and returns a connection to it.
// The test is skipped in -short mode.
func New(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("coursepay"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.DBConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "coursepay",
		SSLMode:  "disable",
	}
	db, err := database.NewPostgresDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrationURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
	require.NoError(t, database.RunMigrations(migrations.FS, migrationURL, zap.NewNop()))
	return db
}

func SeedUser(t *testing.T, db *sql.DB, email, fullName, role string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`INSERT INTO users (email, full_name, role) VALUES ($1, $2, $3) RETURNING id`, email, fullName, role).Scan(&id)
	require.NoError(t, err)
	return id
}

func SeedCourse(t *testing.T, db *sql.DB, instructorID int64, title, price string, approved bool) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO courses (title, instructor_id, price, is_approved) VALUES ($1, $2, $3, $4) RETURNING id`,
		title, instructorID, decimal.RequireFromString(price), approved,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
