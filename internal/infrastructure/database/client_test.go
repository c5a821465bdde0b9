package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/socialab/internal/infrastructure/config"
)

func TestDSN(t *testing.T) {
	remote, err := DSN(config.Database{URL: "libsql://db.turso.io", AuthToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "libsql://db.turso.io?authToken=tok", remote)

	path := filepath.Join(t.TempDir(), "nested", "socialab.db")
	local, err := DSN(config.Database{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "file:"+path, local)
	assert.DirExists(t, filepath.Dir(path))

	_, err = DSN(config.Database{})
	assert.Error(t, err)
}

func TestNew_LocalFile(t *testing.T) {
	client, err := New(config.Database{Path: filepath.Join(t.TempDir(), "socialab.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var one int
	require.NoError(t, client.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestIsStreamError(t *testing.T) {
	assert.False(t, IsStreamError(nil))
	assert.False(t, IsStreamError(errors.New("syntax error")))
	assert.True(t, IsStreamError(errors.New("hrana: stream not found")))
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries stream errors", func(t *testing.T) {
		calls := 0
		got, err := WithRetry(ctx, 2, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("stream not found")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns other errors immediately", func(t *testing.T) {
		calls := 0
		_, err := WithRetry(ctx, 5, func() (int, error) {
			calls++
			return 0, errors.New("constraint failed")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := WithRetry(ctx, 1, func() (string, error) {
			calls++
			return "", errors.New("stream not found")
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
	})
}
