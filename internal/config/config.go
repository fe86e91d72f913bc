package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultKeyConfigPath = "resources/single_key.json"
	DefaultOutputName    = "output.pdf"

	DefaultDelayBefore = time.Second
	DefaultDelayAfter  = time.Second
	DefaultWarmup      = 10 * time.Second
	DefaultCountdown   = 5
)

var ErrInvalidRunConfig = errors.New("invalid run configuration")

// CaptureMode selects what every iteration of the loop grabs.
type CaptureMode int

const (
	ModeFullscreen CaptureMode = iota
	ModeRegion
)

func (m CaptureMode) String() string {
	switch m {
	case ModeRegion:
		return "region"
	default:
		return "fullscreen"
	}
}

// KeyConfig is the whitelisted subset of the key configuration file.
type KeyConfig struct {
	Key         string
	DelayBefore time.Duration
	DelayAfter  time.Duration
	WaitEvent   string
	Repeat      int
}

// Default is what an empty or unreadable configuration file yields.
func Default() KeyConfig {
	return KeyConfig{Repeat: 1}
}

// RunConfig is everything the capture pipeline needs for one run.
type RunConfig struct {
	Repeat      int
	SaveDir     string
	Mode        CaptureMode
	AllDisplays bool

	DelayBefore time.Duration
	DelayAfter  time.Duration
	Warmup      time.Duration
	Countdown   int

	KeyConfigPath string
	OutputName    string
	Append        bool
}

// NewRunConfig returns a RunConfig with the stock delays filled in.
func NewRunConfig(saveDir string, repeat int) RunConfig {
	return RunConfig{
		Repeat:        repeat,
		SaveDir:       saveDir,
		DelayBefore:   DefaultDelayBefore,
		DelayAfter:    DefaultDelayAfter,
		Warmup:        DefaultWarmup,
		Countdown:     DefaultCountdown,
		KeyConfigPath: DefaultKeyConfigPath,
		OutputName:    DefaultOutputName,
	}
}

func (c RunConfig) Validate() error {
	if strings.TrimSpace(c.SaveDir) == "" {
		return fmt.Errorf("%w: save directory must be provided and cannot be blank", ErrInvalidRunConfig)
	}
	if c.Repeat < 0 {
		return fmt.Errorf("%w: repeat count must not be negative, got %d", ErrInvalidRunConfig, c.Repeat)
	}
	if c.DelayBefore < 0 || c.DelayAfter < 0 || c.Warmup < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidRunConfig)
	}
	if c.Countdown < 0 {
		return fmt.Errorf("%w: countdown must not be negative, got %d", ErrInvalidRunConfig, c.Countdown)
	}
	if strings.TrimSpace(c.OutputName) == "" {
		return fmt.Errorf("%w: output name cannot be blank", ErrInvalidRunConfig)
	}
	return nil
}

// ApplyTo overwrites the per-press delays of kc with the run's capture delays.
func (c RunConfig) ApplyTo(kc KeyConfig) KeyConfig {
	kc.DelayBefore = c.DelayBefore
	kc.DelayAfter = c.DelayAfter
	return kc
}
