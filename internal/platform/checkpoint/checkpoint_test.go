package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MichalMitros/evend-publisher/internal/platform/checkpoint"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*checkpoint.Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()

	return checkpoint.New(dir, &logger), dir
}

func TestUnitCheckpointLoadDefault(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	pos, err := store.Load(context.Background(), "job", "digest")
	require.NoError(t, err, "should not fail without checkpoint")
	assert.Equal(t, models.Position{Batch: 0, Row: -1}, pos, "should return start position")
}

func TestUnitCheckpointSaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, dir := newStore(t)

	require.NoError(t, store.Save(ctx, "job", "digest", models.Position{Batch: 0, Row: 19}))
	require.NoError(t, store.Save(ctx, "job", "digest", models.Position{Batch: 1, Row: 0}))
	require.NoError(t, store.Save(ctx, "job", "digest", models.Position{Batch: 1, Row: 0}), "should accept same position")

	pos, err := store.Load(ctx, "job", "digest")
	require.NoError(t, err, "should load checkpoint")
	assert.Equal(t, models.Position{Batch: 1, Row: 0}, pos, "should return last saved position")

	data, err := os.ReadFile(filepath.Join(dir, "progress_job.txt"))
	require.NoError(t, err, "should read checkpoint file")
	assert.Equal(t, "1,0,digest\n", string(data), "should store single line")
}

func TestUnitCheckpointRegression(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.Save(ctx, "job", "digest", models.Position{Batch: 2, Row: 3}))

	err := store.Save(ctx, "job", "digest", models.Position{Batch: 2, Row: 2})
	require.ErrorIs(t, err, checkpoint.ErrRegression, "should reject earlier row")

	err = store.Save(ctx, "job", "digest", models.Position{Batch: 1, Row: 19})
	require.ErrorIs(t, err, checkpoint.ErrRegression, "should reject earlier batch")

	pos, err := store.Load(ctx, "job", "digest")
	require.NoError(t, err)
	assert.Equal(t, models.Position{Batch: 2, Row: 3}, pos, "should keep stored position")
}

func TestUnitCheckpointOtherFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.Save(ctx, "job", "old-file", models.Position{Batch: 2, Row: 4}))

	pos, err := store.Load(ctx, "job", "new-file")
	require.NoError(t, err)
	assert.Equal(t, models.StartPosition, pos, "should start new file from the beginning")

	require.NoError(t, store.Save(ctx, "job", "new-file", models.Position{Batch: 0, Row: 0}), "should overwrite checkpoint of another file")

	pos, err = store.Load(ctx, "job", "new-file")
	require.NoError(t, err)
	assert.Equal(t, models.Position{Batch: 0, Row: 0}, pos, "should return new file position")
}

func TestUnitCheckpointCorrupted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "progress_job.txt"), []byte("garbage"), 0o644))

	pos, err := store.Load(ctx, "job", "digest")
	require.ErrorIs(t, err, checkpoint.ErrCorrupted, "should report corrupted checkpoint")
	assert.Equal(t, models.StartPosition, pos, "should fall back to start position")

	require.NoError(t, store.Save(ctx, "job", "digest", models.Position{Batch: 0, Row: 0}), "should overwrite corrupted checkpoint")

	pos, err = store.Load(ctx, "job", "digest")
	require.NoError(t, err, "should load overwritten checkpoint")
	assert.Equal(t, models.Position{Batch: 0, Row: 0}, pos, "should return saved position")
}
