// Package engine runs the capture loop: warm-up, capture, save, turn the
// page, and finally assemble the PDF.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/pagecapture/internal/capture"
	"github.com/ivlev/pagecapture/internal/config"
	"github.com/ivlev/pagecapture/internal/keys"
	"github.com/ivlev/pagecapture/internal/pdf"
	"github.com/ivlev/pagecapture/internal/system"
)

// KeySimulator turns the page between two captures.
type KeySimulator interface {
	Simulate(ctx context.Context, kc config.KeyConfig) error
}

// Persister stores one screenshot.
type Persister interface {
	Save(img image.Image, path string) (string, error)
}

// Assembler turns the save directory into a PDF.
type Assembler interface {
	Create(dir, output string) (string, error)
	Append(dir, existing string) (string, error)
}

type bounded interface {
	Bounds() (image.Rectangle, error)
}

// Report is the outcome of one run.
type Report struct {
	Screenshots []string
	Output      string
	Failures    *multierror.Error
	Elapsed     time.Duration
}

// Err is nil when every iteration succeeded.
func (r Report) Err() error {
	return r.Failures.ErrorOrNil()
}

type Pipeline struct {
	cfg       config.RunConfig
	key       config.KeyConfig
	capturer  capture.Capturer
	keys      KeySimulator
	persister Persister
	assembler Assembler
	log       logrus.FieldLogger

	region     *capture.Region
	sleep      system.SleepFunc
	out        io.Writer
	checkSpace func(path string, need uint64) error
}

func NewPipeline(
	cfg config.RunConfig,
	key config.KeyConfig,
	capturer capture.Capturer,
	keySim KeySimulator,
	persister Persister,
	assembler Assembler,
	log logrus.FieldLogger,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		key:        key,
		capturer:   capturer,
		keys:       keySim,
		persister:  persister,
		assembler:  assembler,
		log:        log,
		sleep:      system.Sleep,
		out:        os.Stdout,
		checkSpace: system.CheckFreeSpace,
	}
}

// WithRegion restricts every capture to r. A nil r captures the full screen.
func (p *Pipeline) WithRegion(r *capture.Region) *Pipeline {
	p.region = r
	return p
}

func (p *Pipeline) WithSleep(fn system.SleepFunc) *Pipeline {
	p.sleep = fn
	return p
}

// WithOutput redirects the console progress lines.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.out = w
	return p
}

func (p *Pipeline) WithSpaceCheck(fn func(path string, need uint64) error) *Pipeline {
	p.checkSpace = fn
	return p
}

// ScreenshotPath is where iteration i (1-based) is saved.
func ScreenshotPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("screenshot_%d.png", i))
}

// Run executes the whole capture session. Capture, save and key failures are
// collected in the report and do not stop the loop. Cancelling ctx does.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report

	if err := p.cfg.Validate(); err != nil {
		return report, err
	}
	if err := system.EnsureDir(p.cfg.SaveDir); err != nil {
		return report, err
	}

	p.printHeader()
	if p.key.WaitEvent != "" {
		p.log.WithField("wait_event", p.key.WaitEvent).Warn("wait_event is not supported and is ignored")
	}
	p.probeDiskSpace()

	if err := p.warmUp(ctx); err != nil {
		return report, err
	}

	pressKeys := true
	for i := 1; i <= p.cfg.Repeat; i++ {
		log := p.log.WithField("iteration", i)

		if err := p.sleep(ctx, p.cfg.DelayBefore); err != nil {
			return report, err
		}

		fmt.Fprintf(p.out, "Take screenshot %d/%d\n", i, p.cfg.Repeat)
		if path, err := p.captureOne(i); err != nil {
			log.WithError(err).Error("screenshot failed")
			report.Failures = multierror.Append(report.Failures, fmt.Errorf("iteration %d: %w", i, err))
		} else {
			log.WithField("path", path).Debug("screenshot saved")
			report.Screenshots = append(report.Screenshots, path)
		}

		if pressKeys {
			err := p.keys.Simulate(ctx, config.KeyConfig{Key: p.key.Key, Repeat: 1})
			switch {
			case errors.Is(err, keys.ErrMissingKey):
				pressKeys = false
				report.Failures = multierror.Append(report.Failures, err)
			case ctx.Err() != nil:
				return report, ctx.Err()
			case err != nil:
				report.Failures = multierror.Append(report.Failures, fmt.Errorf("iteration %d: %w", i, err))
			}
		}

		if err := p.sleep(ctx, p.cfg.DelayAfter); err != nil {
			return report, err
		}
	}

	output, err := p.assemble()
	if err != nil {
		return report, err
	}
	report.Output = output
	report.Elapsed = time.Since(start)

	p.printSummary(report)
	return report, nil
}

func (p *Pipeline) captureOne(i int) (string, error) {
	img, err := capture.Capture(p.capturer, p.region)
	if err != nil {
		return "", err
	}
	return p.persister.Save(img, ScreenshotPath(p.cfg.SaveDir, i))
}

func (p *Pipeline) warmUp(ctx context.Context) error {
	if p.cfg.Warmup > 0 {
		fmt.Fprintf(p.out, "[*] Starting in %s, switch to the target window\n", p.cfg.Warmup)
		if err := p.sleep(ctx, p.cfg.Warmup); err != nil {
			return err
		}
	}
	for i := p.cfg.Countdown; i > 0; i-- {
		fmt.Fprintf(p.out, "%d...\n", i)
		if err := p.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return nil
}

// probeDiskSpace only warns, a run that fills the disk still keeps what it saved.
func (p *Pipeline) probeDiskSpace() {
	area, ok := p.captureArea()
	if !ok {
		return
	}
	need := system.EstimateRunBytes(area, p.cfg.Repeat)
	if need == 0 {
		return
	}
	if err := p.checkSpace(p.cfg.SaveDir, need); err != nil {
		p.log.WithError(err).Warn("disk space check")
	}
}

func (p *Pipeline) captureArea() (image.Rectangle, bool) {
	if p.region != nil {
		return p.region.Rect(), true
	}
	b, ok := p.capturer.(bounded)
	if !ok {
		return image.Rectangle{}, false
	}
	area, err := b.Bounds()
	if err != nil {
		p.log.WithError(err).Debug("unable to read screen bounds")
		return image.Rectangle{}, false
	}
	return area, true
}

func (p *Pipeline) assemble() (string, error) {
	target := filepath.Join(p.cfg.SaveDir, p.cfg.OutputName)

	var (
		output string
		err    error
	)
	if p.cfg.Append {
		output, err = p.assembler.Append(p.cfg.SaveDir, target)
	} else {
		output, err = p.assembler.Create(p.cfg.SaveDir, target)
	}
	if errors.Is(err, pdf.ErrNoImages) {
		p.log.WithField("dir", p.cfg.SaveDir).Info("nothing to assemble")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("unable to assemble %s: %w", target, err)
	}
	return output, nil
}

func (p *Pipeline) printHeader() {
	region := "full screen"
	if p.region != nil {
		region = p.region.String()
	}
	fmt.Fprintln(p.out, "--- [PAGECAPTURE] ---")
	fmt.Fprintf(p.out, "[*] Mode: %s | Region: %s | Screenshots: %d\n", p.cfg.Mode, region, p.cfg.Repeat)
	fmt.Fprintf(p.out, "[*] Save dir: %s\n", p.cfg.SaveDir)
	fmt.Fprintln(p.out, "---------------------")
}

func (p *Pipeline) printSummary(r Report) {
	fmt.Fprintf(p.out, "[*] Screenshots saved: %d/%d in %.2fs\n", len(r.Screenshots), p.cfg.Repeat, r.Elapsed.Seconds())
	if r.Failures != nil {
		fmt.Fprintf(p.out, "[!] Failures: %d\n", r.Failures.Len())
	}
	if r.Output != "" {
		fmt.Fprintf(p.out, "[*] PDF: %s\n", r.Output)
	} else {
		fmt.Fprintln(p.out, "[!] No images found, PDF not created")
	}
}
