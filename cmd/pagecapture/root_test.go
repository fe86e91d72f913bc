package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/pagecapture/internal/capture"
	"github.com/ivlev/pagecapture/internal/config"
	"github.com/ivlev/pagecapture/internal/selector"
)

func parseOptions(t *testing.T, args ...string) (*options, bool) {
	t.Helper()
	opts := &options{}
	cmd := newCommand(opts)
	require.NoError(t, cmd.ParseFlags(args))
	return opts, cmd.Flags().Changed("count")
}

func TestBuildRunConfig(t *testing.T) {
	opts, countSet := parseOptions(t, "-c", "3", "-d", "out", "-r", "--append", "--warmup", "2s")
	require.True(t, countSet)

	cfg, err := buildRunConfig(opts, countSet, config.Default(), &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Repeat)
	assert.Equal(t, "out", cfg.SaveDir)
	assert.Equal(t, config.ModeRegion, cfg.Mode)
	assert.True(t, cfg.Append)
	assert.Equal(t, 2*time.Second, cfg.Warmup)
	assert.Equal(t, config.DefaultDelayBefore, cfg.DelayBefore)
	assert.Equal(t, config.DefaultOutputName, cfg.OutputName)
	assert.Equal(t, config.DefaultKeyConfigPath, cfg.KeyConfigPath)
}

func TestBuildRunConfigCountFromKeyConfig(t *testing.T) {
	opts, countSet := parseOptions(t, "--dir", "out")
	require.False(t, countSet)
	out := &bytes.Buffer{}

	cfg, err := buildRunConfig(opts, countSet, config.KeyConfig{Key: "pagedown", Repeat: 7}, out)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Repeat)
	assert.Equal(t, config.ModeFullscreen, cfg.Mode)
	assert.Contains(t, out.String(), "No count given")
}

func TestBuildRunConfigRejectsBlankDir(t *testing.T) {
	for _, args := range [][]string{
		{"-c", "1"},
		{"-c", "1", "-d", "   "},
	} {
		opts, countSet := parseOptions(t, args...)
		_, err := buildRunConfig(opts, countSet, config.Default(), &bytes.Buffer{})
		assert.ErrorIs(t, err, config.ErrInvalidRunConfig, "args %v", args)
	}
}

func TestBuildRunConfigBlankDirPrintsNoNotice(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"-d", "  "},
	} {
		opts, countSet := parseOptions(t, args...)
		require.False(t, countSet)
		out := &bytes.Buffer{}

		_, err := buildRunConfig(opts, countSet, config.KeyConfig{Key: "pagedown", Repeat: 2}, out)

		assert.ErrorIs(t, err, config.ErrInvalidRunConfig, "args %v", args)
		assert.Empty(t, out.String(), "args %v", args)
	}
}

func TestMalformedFlags(t *testing.T) {
	cmd := newRootCmd()
	assert.Error(t, cmd.ParseFlags([]string{"-c", "three"}))
}

func TestSelectRegionFlagIsHidden(t *testing.T) {
	flag := newRootCmd().Flags().Lookup(selector.Flag)
	require.NotNil(t, flag)
	assert.True(t, flag.Hidden)
}

func TestUsableRegion(t *testing.T) {
	tests := []struct {
		name   string
		region *capture.Region
		want   *capture.Region
	}{
		{name: "none", region: nil, want: nil},
		{name: "zero area", region: &capture.Region{Left: 400, Top: 300, Right: 400, Bottom: 300}, want: nil},
		{name: "selected", region: &capture.Region{Left: 1, Top: 2, Right: 30, Bottom: 40}, want: &capture.Region{Left: 1, Top: 2, Right: 30, Bottom: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			assert.Equal(t, tt.want, usableRegion(out, tt.region))
			if tt.want == nil {
				assert.Contains(t, out.String(), "No region selected")
			}
		})
	}
}
