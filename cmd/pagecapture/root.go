package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ivlev/pagecapture/internal/capture"
	"github.com/ivlev/pagecapture/internal/config"
	"github.com/ivlev/pagecapture/internal/engine"
	"github.com/ivlev/pagecapture/internal/keys"
	"github.com/ivlev/pagecapture/internal/logging"
	"github.com/ivlev/pagecapture/internal/pdf"
	"github.com/ivlev/pagecapture/internal/selector"
	"github.com/ivlev/pagecapture/internal/storage"
	"github.com/ivlev/pagecapture/internal/system"
)

type options struct {
	count        int
	dir          string
	region       bool
	configPath   string
	output       string
	delayBefore  time.Duration
	delayAfter   time.Duration
	warmup       time.Duration
	countdown    int
	appendPDF    bool
	allDisplays  bool
	logLevel     string
	selectRegion bool
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagecapture",
		Short: "Capture a screenshot per page and bind them into a PDF",
		Long: `pagecapture presses a key, takes a screenshot and repeats, then assembles
every screenshot of the save directory into one PDF, oldest first.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.count, "count", "c", 0, "number of screenshots (default: repeat from the key configuration)")
	f.StringVarP(&opts.dir, "dir", "d", "", "directory the screenshots and the PDF are saved to")
	f.BoolVarP(&opts.region, "region", "r", false, "select a screen region before capturing")
	f.StringVar(&opts.configPath, "config", config.DefaultKeyConfigPath, "key configuration file")
	f.StringVar(&opts.output, "output", config.DefaultOutputName, "PDF file name inside the save directory")
	f.DurationVar(&opts.delayBefore, "delay-before", config.DefaultDelayBefore, "wait before every screenshot")
	f.DurationVar(&opts.delayAfter, "delay-after", config.DefaultDelayAfter, "wait after every key press")
	f.DurationVar(&opts.warmup, "warmup", config.DefaultWarmup, "wait before the countdown starts")
	f.IntVar(&opts.countdown, "countdown", config.DefaultCountdown, "seconds to count down before the first screenshot")
	f.BoolVar(&opts.appendPDF, "append", false, "append to an existing PDF instead of replacing it")
	f.BoolVar(&opts.allDisplays, "all-displays", false, "capture the union of all displays instead of the primary one")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.BoolVar(&opts.selectRegion, selector.Flag, false, "run the region selection overlay and print the result")
	_ = f.MarkHidden(selector.Flag)

	return cmd
}

func runCapture(cmd *cobra.Command, opts *options) error {
	log := logging.New(opts.logLevel)

	if opts.selectRegion {
		return runSelector(cmd.OutOrStdout(), opts, log)
	}

	kc := config.LoadOrDefault(opts.configPath, log)
	cfg, err := buildRunConfig(opts, cmd.Flags().Changed("count"), kc, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := system.EnsureDir(cfg.SaveDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var region *capture.Region
	if cfg.Mode == config.ModeRegion {
		region = selectRegion(ctx, cmd.OutOrStdout(), opts, log)
	}

	screen := capture.Screen{AllDisplays: cfg.AllDisplays}
	pipeline := engine.NewPipeline(
		cfg,
		cfg.ApplyTo(kc),
		screen,
		keys.NewSimulator(keys.Robotgo{}, log),
		storage.NewPersister(),
		pdf.NewAssembler(log),
		log,
	).WithRegion(region).WithOutput(cmd.OutOrStdout())

	report, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if report.Failures != nil {
		log.WithError(report.Failures).Warn("some iterations failed")
	}
	return nil
}

// buildRunConfig turns the flags into a validated RunConfig. Without an
// explicit count the repeat of the key configuration is used.
func buildRunConfig(opts *options, countSet bool, kc config.KeyConfig, out io.Writer) (config.RunConfig, error) {
	repeat := opts.count
	if !countSet {
		repeat = kc.Repeat
	}

	cfg := config.NewRunConfig(opts.dir, repeat)
	cfg.DelayBefore = opts.delayBefore
	cfg.DelayAfter = opts.delayAfter
	cfg.Warmup = opts.warmup
	cfg.Countdown = opts.countdown
	cfg.KeyConfigPath = opts.configPath
	cfg.OutputName = opts.output
	cfg.Append = opts.appendPDF
	cfg.AllDisplays = opts.allDisplays
	if opts.region {
		cfg.Mode = config.ModeRegion
	}

	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, err
	}
	if !countSet {
		fmt.Fprintf(out, "[*] No count given, taking %d screenshot(s) as configured in %s\n", repeat, opts.configPath)
	}
	return cfg, nil
}

// selectRegion asks a child process for the region. Any failure falls back to the full screen.
func selectRegion(ctx context.Context, out io.Writer, opts *options, log logrus.FieldLogger) *capture.Region {
	exe, err := os.Executable()
	if err != nil {
		log.WithError(err).Error("unable to find own executable, capturing the full screen")
		return nil
	}

	args := []string{"--log-level", opts.logLevel}
	if opts.allDisplays {
		args = append(args, "--all-displays")
	}
	r, err := selector.RunIsolated(ctx, exe, args, log)
	if err != nil {
		log.WithError(err).Error("region selection failed, capturing the full screen")
		return nil
	}
	return usableRegion(out, r)
}

// usableRegion turns a missing or zero-area selection into nil, the full screen.
func usableRegion(out io.Writer, r *capture.Region) *capture.Region {
	if r == nil || r.Empty() {
		fmt.Fprintln(out, "[!] No region selected, capturing the full screen")
		return nil
	}
	fmt.Fprintf(out, "[*] Selected region: %s\n", r)
	return r
}

// runSelector is the child side of selectRegion. Its stdout carries only the result line.
func runSelector(out io.Writer, opts *options, log logrus.FieldLogger) error {
	overlay := selector.NewOverlay(capture.Screen{AllDisplays: opts.allDisplays}, log)
	r, err := overlay.Select()
	if err != nil {
		log.WithError(err).Error("region selection failed")
		r = nil
	}
	return selector.WriteResult(out, r)
}
