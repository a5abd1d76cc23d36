package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roach88/crosscheck/internal/config"
)

// startPostgres runs a throwaway Postgres container. Requires Docker, so it
// only runs when CROSSCHECK_DOCKER_TESTS=1.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if os.Getenv("CROSSCHECK_DOCKER_TESTS") != "1" {
		t.Skip("CROSSCHECK_DOCKER_TESTS not set; skipping postgres integration test")
	}

	ctx := context.Background()
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "crosscheck",
				"POSTGRES_PASSWORD": "crosscheck",
				"POSTGRES_DB":       "items",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	}
	container, err := testcontainers.GenericContainer(ctx, req)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		URL:      fmt.Sprintf("postgres://%s:%s/items?sslmode=disable", host, port.Port()),
		User:     "crosscheck",
		Password: "crosscheck",
	}
}

func TestPostgres_Integration(t *testing.T) {
	cfg := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Exec(ctx, `CREATE TABLE items (id BIGINT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = s.Exec(ctx, `INSERT INTO items (id, value) VALUES ($1, $2), ($3, $4)`, 1, "hello", 2, "world")
	require.NoError(t, err)

	got, err := s.QueryValue(ctx, Selector{Table: "items", Where: map[string]any{"id": 2}}, "value")
	require.NoError(t, err)
	assert.Equal(t, "world", got)

	n, err := s.CountRows(ctx, Selector{Table: "items"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
