package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"powersim/domain/core"
	"powersim/internal/testkit"
	"powersim/ports"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "postgres", DriverFor("postgres://user:pw@localhost/powersim?sslmode=disable"))
	assert.Equal(t, "postgres", DriverFor("postgresql://localhost/powersim"))
	assert.Equal(t, "sqlite", DriverFor("file:powersim.db"))
	assert.Equal(t, "sqlite", DriverFor(":memory:"))
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "file:a.db?_pragma=foreign_keys(1)", withForeignKeys("file:a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)", withForeignKeys("file:a.db?mode=rwc"))
	assert.Equal(t, "file:a.db?_pragma=foreign_keys(0)", withForeignKeys("file:a.db?_pragma=foreign_keys(0)"))
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), " ", nil)
	require.Error(t, err)
}

func TestConnectLeavesSchemaAlone(t *testing.T) {
	db, err := Connect(context.Background(), "file:"+filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	status, err := NewMigrator(db, nil).Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, 2)
	for _, s := range status {
		assert.False(t, s.Applied)
	}
}

func TestMigratorIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, nil)

	require.NoError(t, m.Up(context.Background()))
	status, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, 2)
	for _, s := range status {
		assert.True(t, s.Applied, "migration %s not applied", s.Version)
	}
	assert.Equal(t, "001", status[0].Version)
}

func TestMigratorDetectsModifiedMigration(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("UPDATE schema_migrations SET checksum = 'tampered' WHERE version = '001'")
	require.NoError(t, err)

	err = NewMigrator(db, nil).Up(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modified")
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestRunRepository_SaveAndGet(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	ctx := context.Background()

	run := testkit.SampleRun("biologically_important")
	run.CreatedAt = time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
	run.RuntimeMs = 42
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Scenario, got.Scenario)
	assert.Equal(t, run.Params, got.Params)
	assert.Equal(t, run.Range, got.Range)
	assert.Equal(t, run.Seed, got.Seed)
	assert.Equal(t, run.Target, got.Target)
	assert.Equal(t, run.Fingerprint, got.Fingerprint)
	assert.Equal(t, int64(42), got.RuntimeMs)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.MinimumN)
	assert.Equal(t, 21, *got.MinimumN)
	assert.Equal(t, run.Curve, got.Curve)
}

func TestRunRepository_NullMinimum(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	ctx := context.Background()

	run := testkit.SampleRun("minimum_detectable")
	run.MinimumN = nil
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MinimumN)
	assert.False(t, got.Reached())
}

func TestRunRepository_GetUnknown(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	_, err := repo.Get(context.Background(), core.NewRunID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRunNotFound))
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepository_DuplicateSaveFails(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	run := testkit.SampleRun("custom")
	require.NoError(t, repo.Save(context.Background(), run))
	assert.Error(t, repo.Save(context.Background(), run))

	// the failed transaction must not leave partial points behind
	got, err := repo.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Curve.Points, 4)
}

func TestRunRepository_List(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))
	ctx := context.Background()

	var ids []core.RunID
	for _, name := range []string{"a", "b", "a"} {
		run := testkit.SampleRun(name)
		run.CreatedAt = time.Now().UTC()
		require.NoError(t, repo.Save(ctx, run))
		ids = append(ids, run.ID)
	}

	all, err := repo.List(ctx, ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	onlyA, err := repo.List(ctx, ports.RunFilters{Scenario: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	page, err := repo.List(ctx, ports.RunFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
	require.NotNil(t, page[0].MinimumN)
	assert.Equal(t, 21, *page[0].MinimumN)
}
