// Package capture grabs the screen, or a rectangle of it, as an in-memory image.
package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

var (
	ErrCapture     = errors.New("unable to take screenshot")
	ErrNoDisplay   = errors.New("no active display")
	ErrEmptyRegion = errors.New("empty capture region")
)

// Capturer is what the capture loop needs from the screen.
type Capturer interface {
	Full() (image.Image, error)
	Region(r Region) (image.Image, error)
}

// Capture grabs r, or the full screen when r is nil.
func Capture(c Capturer, r *Region) (image.Image, error) {
	if r == nil {
		return c.Full()
	}
	return c.Region(*r)
}

// Screen captures through the OS screen-capture primitive.
type Screen struct {
	// AllDisplays makes Full cover the union of every active display instead of the primary one.
	AllDisplays bool
}

// Bounds is the rectangle Full captures.
func (s Screen) Bounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	if !s.AllDisplays {
		return screenshot.GetDisplayBounds(0), nil
	}

	var all image.Rectangle
	for i := 0; i < n; i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all, nil
}

func (s Screen) Full() (image.Image, error) {
	bounds, err := s.Bounds()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	return s.capture(bounds)
}

func (s Screen) Region(r Region) (image.Image, error) {
	if r.Empty() {
		return nil, fmt.Errorf("%w: %w %s", ErrCapture, ErrEmptyRegion, r)
	}
	return s.capture(r.Rect())
}

func (s Screen) capture(bounds image.Rectangle) (img image.Image, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			img, err = nil, fmt.Errorf("%w: bounds %v: panic: %v", ErrCapture, bounds, rec)
		}
	}()

	rgba, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: bounds %v: %w", ErrCapture, bounds, err)
	}
	return rgba, nil
}
