package selector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/pagecapture/internal/capture"
)

const helperEnv = "PAGECAPTURE_SELECTOR_HELPER"

// TestMain lets the test binary stand in for the selector child.
func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "region":
		fmt.Println("starting overlay")
		_ = WriteResult(os.Stdout, &capture.Region{Left: 1, Top: 2, Right: 30, Bottom: 40})
		os.Exit(0)
	case "cancel":
		_ = WriteResult(os.Stdout, nil)
		os.Exit(0)
	case "silent":
		os.Exit(0)
	case "fail":
		os.Exit(3)
	}
	os.Exit(m.Run())
}

func TestEncodeDecodeResult(t *testing.T) {
	r := &capture.Region{Left: 10, Top: 20, Right: 110, Bottom: 220}

	line, err := EncodeResult(r)
	require.NoError(t, err)
	assert.Equal(t, `region: {"left":10,"top":20,"right":110,"bottom":220}`, line)

	got, ok, err := DecodeResult(line + "\n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r, got)
}

func TestDecodeResultNull(t *testing.T) {
	line, err := EncodeResult(nil)
	require.NoError(t, err)
	assert.Equal(t, "region: null", line)

	got, ok, err := DecodeResult(line)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, got)
}

func TestDecodeResultOtherLines(t *testing.T) {
	_, ok, err := DecodeResult("Fyne error: something")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = DecodeResult("region: {broken")
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrBadResult)
}

func TestReadResult(t *testing.T) {
	out := strings.Join([]string{
		"some log line",
		`region: {"left":1,"top":1,"right":5,"bottom":5}`,
		"",
	}, "\n")

	got, err := ReadResult(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, &capture.Region{Left: 1, Top: 1, Right: 5, Bottom: 5}, got)

	_, err = ReadResult(strings.NewReader("nothing here\n"))
	assert.ErrorIs(t, err, ErrNoResult)
}

func runHelper(t *testing.T, mode string) (*capture.Region, error) {
	t.Helper()
	t.Setenv(helperEnv, mode)
	exe, err := os.Executable()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return RunIsolated(context.Background(), exe, nil, logger)
}

func TestRunIsolated(t *testing.T) {
	got, err := runHelper(t, "region")
	require.NoError(t, err)
	assert.Equal(t, &capture.Region{Left: 1, Top: 2, Right: 30, Bottom: 40}, got)
}

func TestRunIsolatedCancelled(t *testing.T) {
	got, err := runHelper(t, "cancel")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunIsolatedNoOutput(t *testing.T) {
	_, err := runHelper(t, "silent")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestRunIsolatedChildFails(t *testing.T) {
	_, err := runHelper(t, "fail")
	assert.Error(t, err)
}
