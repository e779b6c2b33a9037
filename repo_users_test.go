package brewy_test

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

// setupRepoDB opens an in-memory sqlite database and applies the embedded
// migrations so repository tests run against the real schema.
func setupRepoDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	migrations, err := fs.Sub(brewy.GetMigrationsFS(), "data/sql/migrations/sqlite")
	require.NoError(t, err)

	entries, err := fs.ReadDir(migrations, ".")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		_, err = bunDB.Exec(string(content))
		require.NoError(t, err)
	}

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return bunDB, cleanup
}

func setupUsersRepo(t *testing.T) (brewy.Users, uuid.UUID, func()) {
	t.Helper()

	bunDB, cleanup := setupRepoDB(t)
	repo := brewy.NewUsersRepository(bunDB)

	user, err := repo.CreateUser(context.Background(), &brewy.User{
		Role:         brewy.RoleAgent,
		FullName:     "Casey Ruiz",
		Username:     "casey",
		Email:        "casey@example.com",
		PasswordHash: "not-a-real-hash",
	})
	require.NoError(t, err)

	return repo, user.ID, cleanup
}

func TestUsersRepositoryIncrementFailedAttempts(t *testing.T) {
	repo, userID, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	lockedUntil := time.Now().Add(30 * time.Minute).UTC()

	for attempt := 1; attempt < 5; attempt++ {
		updated, err := repo.IncrementFailedAttempts(ctx, userID, 5, lockedUntil)
		require.NoError(t, err)
		assert.Equal(t, attempt, updated.FailedAttempts)
		assert.Nil(t, updated.LockedUntil, "lock must not engage before the threshold")
		require.NotNil(t, updated.LastFailedLogin)
	}

	locked, err := repo.IncrementFailedAttempts(ctx, userID, 5, lockedUntil)
	require.NoError(t, err)
	assert.Equal(t, 5, locked.FailedAttempts)
	require.NotNil(t, locked.LockedUntil)
	assert.WithinDuration(t, lockedUntil, *locked.LockedUntil, time.Second)
}

func TestUsersRepositoryIncrementFailedAttemptsUnknownUser(t *testing.T) {
	repo, _, cleanup := setupUsersRepo(t)
	defer cleanup()

	_, err := repo.IncrementFailedAttempts(context.Background(), uuid.New(), 5, time.Now())
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersRepositoryResetLockout(t *testing.T) {
	repo, userID, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	lockedUntil := time.Now().Add(30 * time.Minute).UTC()

	for attempt := 0; attempt < 5; attempt++ {
		_, err := repo.IncrementFailedAttempts(ctx, userID, 5, lockedUntil)
		require.NoError(t, err)
	}

	require.NoError(t, repo.ResetLockout(ctx, userID))

	fresh, err := repo.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, fresh.FailedAttempts)
	assert.Nil(t, fresh.LockedUntil)
	assert.Nil(t, fresh.LastFailedLogin)
}

func TestUsersRepositoryTrackSuccessfulLogin(t *testing.T) {
	repo, userID, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.TrackSuccessfulLogin(ctx, userID))

	fresh, err := repo.FindByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, fresh.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *fresh.LastLoginAt, 5*time.Second)
}
