package selector

import (
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	fynetest "fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"

	"github.com/ivlev/pagecapture/internal/capture"
)

type testArea struct {
	area     *selectionArea
	tracker  *Tracker
	finished int
}

// newTestArea shows a 200x100 pixel screen in a 100x50 widget.
func newTestArea(t *testing.T) *testArea {
	t.Helper()
	a := fynetest.NewApp()
	t.Cleanup(a.Quit)

	ta := &testArea{tracker: &Tracker{}}
	ta.area = newSelectionArea(image.Rect(0, 0, 200, 100), ta.tracker, func() { ta.finished++ })
	ta.area.Resize(fyne.NewSize(100, 50))
	return ta
}

func mouseAt(x, y float32, button desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     button,
	}
}

func dragTo(x, y float32) *fyne.DragEvent {
	return &fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}}
}

func TestSelectionAreaDrag(t *testing.T) {
	ta := newTestArea(t)

	ta.area.MouseDown(mouseAt(10, 5, desktop.MouseButtonPrimary))
	ta.area.Dragged(dragTo(40, 25))

	assert.True(t, ta.tracker.Dragging())
	assert.Equal(t, fyne.NewPos(10, 5), ta.area.rect.Position())
	assert.Equal(t, fyne.NewSize(30, 20), ta.area.rect.Size())
	assert.Zero(t, ta.finished)

	ta.area.DragEnd()
	ta.area.MouseUp(mouseAt(40, 25, desktop.MouseButtonPrimary))

	assert.Equal(t, 1, ta.finished)
	assert.Equal(t, &capture.Region{Left: 20, Top: 10, Right: 80, Bottom: 50}, ta.tracker.Result())
}

func TestSelectionAreaDragUpAndLeft(t *testing.T) {
	ta := newTestArea(t)

	ta.area.MouseDown(mouseAt(50, 40, desktop.MouseButtonPrimary))
	ta.area.Dragged(dragTo(20, 10))

	assert.Equal(t, fyne.NewPos(20, 10), ta.area.rect.Position())
	assert.Equal(t, fyne.NewSize(30, 30), ta.area.rect.Size())

	ta.area.MouseUp(mouseAt(20, 10, desktop.MouseButtonPrimary))
	ta.area.DragEnd()

	assert.Equal(t, 1, ta.finished)
	assert.Equal(t, &capture.Region{Left: 40, Top: 20, Right: 100, Bottom: 80}, ta.tracker.Result())
}

func TestSelectionAreaClickWithoutDrag(t *testing.T) {
	ta := newTestArea(t)

	ta.area.MouseDown(mouseAt(10, 5, desktop.MouseButtonPrimary))
	ta.area.MouseUp(mouseAt(10, 5, desktop.MouseButtonPrimary))

	assert.Equal(t, 1, ta.finished)
	assert.Nil(t, ta.tracker.Result())
}

func TestSelectionAreaIgnoresSecondaryButton(t *testing.T) {
	ta := newTestArea(t)

	ta.area.MouseDown(mouseAt(10, 5, desktop.MouseButtonSecondary))
	ta.area.Dragged(dragTo(40, 25))
	ta.area.MouseUp(mouseAt(40, 25, desktop.MouseButtonSecondary))
	ta.area.DragEnd()

	assert.False(t, ta.tracker.Dragging())
	assert.Zero(t, ta.finished)
	assert.Nil(t, ta.tracker.Result())
}
