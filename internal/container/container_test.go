package container

import (
	"context"
	"path/filepath"
	"testing"

	"powersim/internal/config"
	"powersim/internal/testkit"
	"powersim/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	cfg.Storage.DatabaseURL = "file:" + filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestContainer_WithoutDatabase(t *testing.T) {
	c, err := New(testConfig(t), nil)
	require.NoError(t, err)
	assert.Nil(t, c.RunRepo)

	runs, err := c.PowerService().ListRuns(context.Background(), ports.RunFilters{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestContainer_InitWithDatabase(t *testing.T) {
	ctx := context.Background()
	c, err := New(testConfig(t), nil)
	require.NoError(t, err)

	require.NoError(t, c.InitWithDatabase(ctx))
	require.NoError(t, c.InitWithDatabase(ctx))
	require.NotNil(t, c.RunRepo)

	run := testkit.SampleRun("biologically_important")
	require.NoError(t, c.RunRepo.Save(ctx, run))

	got, err := c.PowerService().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	assert.NotNil(t, c.APIServer())
	require.NoError(t, c.Shutdown(ctx))
	assert.Nil(t, c.DB)
}
