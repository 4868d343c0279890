package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/pkg/config"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if testing.Short() || url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := New(context.Background(), testConfig(url))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNewWithInvalidURL(t *testing.T) {
	_, err := New(context.Background(), testConfig("invalid://url"))
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.NotZero(t, status.Stats.MaxConns)
}

func TestEnsureSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	stmt := `CREATE TEMP TABLE IF NOT EXISTS schema_check (id INT)`
	require.NoError(t, db.EnsureSchema(ctx, stmt, stmt))
	assert.Error(t, db.EnsureSchema(ctx, `CREATE TABLE`))
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	// Double close should not panic
	db.Close()
	db.Close()
}
