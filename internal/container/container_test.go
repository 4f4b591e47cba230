package container

import (
	"context"
	"path/filepath"
	"testing"

	"gocalc/domain/core"
	"gocalc/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Logging.Level = "ERROR"
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "test.db")

	c, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	require.NotNil(t, c.Calculator)
	require.NotNil(t, c.Reports)
	require.NotNil(t, c.Exporter)

	snap, err := c.Calculator.SetExpression(ctx, "default", "1+2")
	require.NoError(t, err)
	assert.Equal(t, 3.0, snap.Statistics.Total)

	ids, err := c.StateRepo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.WorkspaceID{"default"}, ids)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
