package system

import (
	"context"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)
	require.NoError(t, EnsureDir(dir))
}

func TestEnsureDirOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	assert.Error(t, EnsureDir(file))
}

func TestFreeSpace(t *testing.T) {
	free, err := FreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, CheckFreeSpace(dir, 1))
	assert.ErrorIs(t, CheckFreeSpace(dir, math.MaxUint64), ErrLowDiskSpace)
}

func TestEstimateRunBytes(t *testing.T) {
	assert.Equal(t, uint64(100*50*4*3*2), EstimateRunBytes(image.Rect(0, 0, 100, 50), 3))
	assert.Zero(t, EstimateRunBytes(image.Rect(0, 0, 100, 50), 0))
	assert.Zero(t, EstimateRunBytes(image.Rectangle{}, 5))
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, NoSleep(context.Background(), time.Hour))
}
