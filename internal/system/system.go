package system

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
)

var (
	ErrNotDir       = errors.New("not a directory")
	ErrLowDiskSpace = errors.New("not enough free disk space")
)

// EnsureDir creates dir with its parents when missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create %s: %w", dir, err)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDir, dir)
	}
	return nil
}

// FreeSpace reports the bytes available to unprivileged users on the filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("unable to read disk usage of %s: %w", path, err)
	}
	return usage.Free, nil
}

// EstimateRunBytes is an upper bound for count screenshots of area plus the
// PDF that embeds them again.
func EstimateRunBytes(area image.Rectangle, count int) uint64 {
	if count <= 0 || area.Empty() {
		return 0
	}
	perImage := uint64(area.Dx()) * uint64(area.Dy()) * 4
	return perImage * uint64(count) * 2
}

// CheckFreeSpace fails with ErrLowDiskSpace when path has less than need bytes free.
func CheckFreeSpace(path string, need uint64) error {
	free, err := FreeSpace(path)
	if err != nil {
		return err
	}
	if free < need {
		return fmt.Errorf("%w in %s: %s free, about %s needed",
			ErrLowDiskSpace, path, humanize.Bytes(free), humanize.Bytes(need))
	}
	return nil
}
