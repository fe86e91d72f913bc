// Package selector lets the user drag a rectangle over a frozen screenshot
// to choose the capture region.
package selector

import (
	"image"

	"github.com/ivlev/pagecapture/internal/capture"
)

// Tracker follows one press, drag and release gesture in screen pixels.
// The end point starts at (0,0) and a gesture that never moved it away
// from there yields no region, as does a gesture enclosing no area.
type Tracker struct {
	start    image.Point
	end      image.Point
	dragging bool
	done     bool
}

func (t *Tracker) Press(p image.Point) {
	t.start = p
	t.end = image.Point{}
	t.dragging = true
	t.done = false
}

func (t *Tracker) Drag(p image.Point) {
	if !t.dragging {
		return
	}
	t.end = p
}

// Release ends the gesture at p. It is a no-op when nothing was pressed.
func (t *Tracker) Release(p image.Point) {
	if !t.dragging {
		return
	}
	t.end = p
	t.dragging = false
	t.done = true
}

// Cancel drops the gesture, Result is nil afterwards.
func (t *Tracker) Cancel() {
	*t = Tracker{}
}

func (t *Tracker) Dragging() bool {
	return t.dragging
}

func (t *Tracker) Done() bool {
	return t.done
}

// Current is the rectangle under the pointer while dragging.
func (t *Tracker) Current() (capture.Region, bool) {
	if !t.dragging {
		return capture.Region{}, false
	}
	return capture.NewRegion(t.start, t.end), true
}

func (t *Tracker) Result() *capture.Region {
	if !t.done || t.end == (image.Point{}) {
		return nil
	}
	r := capture.NewRegion(t.start, t.end)
	if r.Empty() {
		return nil
	}
	return &r
}
