package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository/sqlite"
)

// run executes the root command with args against a throwaway database
// and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(io.Discard)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--config", ""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useTempDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "codewizard.db")
	t.Setenv("DB_PATH", path)
	return path
}

func TestMigrateCommand(t *testing.T) {
	useTempDB(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "1 migration(s) applied")

	out, err = run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "0 migration(s) applied")
}

func TestPromoteCommand(t *testing.T) {
	path := useTempDB(t)
	require.NoError(t, ensureDBDir(path))

	db, err := sqlite.New(path)
	require.NoError(t, err)
	u := &model.User{Email: "first@example.com", PasswordHash: "$2a$04$hash", Name: "First"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	require.NoError(t, db.Close())

	out, err := run(t, "promote", "first@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "is now an admin")

	db, err = sqlite.New(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = run(t, "promote", "ghost@example.com")
	assert.Error(t, err)

	_, err = run(t, "promote")
	assert.Error(t, err, "email argument is required")
}

func TestSweepCommand(t *testing.T) {
	path := useTempDB(t)
	require.NoError(t, ensureDBDir(path))

	db, err := sqlite.New(path)
	require.NoError(t, err)
	u := &model.User{
		Email:          "stale@example.com",
		PasswordHash:   "$2a$04$hash",
		Token:          "stale-token",
		TokenExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	require.NoError(t, db.Close())

	out, err := run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "1 expired session(s) cleared")
}

func TestInvalidConfigFails(t *testing.T) {
	useTempDB(t)
	t.Setenv("USER_TOKEN_LENGTH", "8")

	_, err := run(t, "migrate")
	assert.Error(t, err)
}
