package selector

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/pagecapture/internal/capture"
	"github.com/ivlev/pagecapture/internal/storage"
)

var strokeColor = color.NRGBA{R: 255, A: 255}

const strokeWidth = 2

// Overlay freezes the screen and shows it full screen so a region can be
// dragged on it.
type Overlay struct {
	screen capture.Screen
	log    logrus.FieldLogger
}

func NewOverlay(screen capture.Screen, log logrus.FieldLogger) *Overlay {
	return &Overlay{screen: screen, log: log}
}

// Select blocks until the user releases the pointer or presses Escape.
// A nil region means the selection was cancelled or never dragged.
func (o *Overlay) Select() (*capture.Region, error) {
	bounds, err := o.screen.Bounds()
	if err != nil {
		return nil, err
	}
	frame, err := o.screen.Full()
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "pagecapture-select-")
	if err != nil {
		return nil, fmt.Errorf("unable to create a directory for the frozen frame: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	framePath, err := storage.NewPersister().Save(frame, filepath.Join(tmpDir, "frame.png"))
	if err != nil {
		return nil, err
	}
	o.log.WithField("path", framePath).Debug("frozen frame written")

	a := app.New()
	w := a.NewWindow("pagecapture")
	w.SetPadded(false)

	background := canvas.NewImageFromFile(framePath)
	background.FillMode = canvas.ImageFillStretch

	var tracker Tracker
	var once sync.Once
	quit := func() {
		once.Do(a.Quit)
	}

	area := newSelectionArea(bounds, &tracker, quit)
	w.SetContent(container.NewStack(background, area))
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			o.log.Info("region selection cancelled")
			tracker.Cancel()
			quit()
		}
	})
	w.SetFullScreen(true)
	w.ShowAndRun()

	r := tracker.Result()
	if r != nil {
		o.log.WithField("region", r.String()).Info("region selected")
	}
	return r, nil
}

// toPixel maps a position inside a widget of size onto the screen rectangle it shows.
func toPixel(pos fyne.Position, size fyne.Size, screen image.Rectangle) image.Point {
	if size.Width <= 0 || size.Height <= 0 {
		return screen.Min
	}
	x := float64(pos.X) / float64(size.Width) * float64(screen.Dx())
	y := float64(pos.Y) / float64(size.Height) * float64(screen.Dy())
	return image.Point{X: int(x) + screen.Min.X, Y: int(y) + screen.Min.Y}
}

type selectionArea struct {
	widget.BaseWidget

	screen  image.Rectangle
	tracker *Tracker
	finish  func()

	rect      *canvas.Rectangle
	anchor    fyne.Position
	lastPoint fyne.Position
}

var (
	_ fyne.Draggable    = (*selectionArea)(nil)
	_ desktop.Mouseable = (*selectionArea)(nil)
)

func newSelectionArea(screen image.Rectangle, tracker *Tracker, finish func()) *selectionArea {
	rect := canvas.NewRectangle(color.Transparent)
	rect.StrokeColor = strokeColor
	rect.StrokeWidth = strokeWidth
	rect.Hide()

	s := &selectionArea{
		screen:  screen,
		tracker: tracker,
		finish:  finish,
		rect:    rect,
	}
	s.ExtendBaseWidget(s)
	return s
}

func (s *selectionArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewWithoutLayout(s.rect))
}

func (s *selectionArea) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s.anchor = ev.Position
	s.lastPoint = ev.Position
	s.tracker.Press(toPixel(ev.Position, s.Size(), s.screen))
	s.rect.Move(ev.Position)
	s.rect.Resize(fyne.NewSize(0, 0))
	s.rect.Show()
}

func (s *selectionArea) MouseUp(ev *desktop.MouseEvent) {
	s.release(ev.Position)
}

func (s *selectionArea) Dragged(ev *fyne.DragEvent) {
	if !s.tracker.Dragging() {
		return
	}
	s.lastPoint = ev.Position
	s.tracker.Drag(toPixel(ev.Position, s.Size(), s.screen))

	minX, maxX := order(s.anchor.X, ev.Position.X)
	minY, maxY := order(s.anchor.Y, ev.Position.Y)
	s.rect.Move(fyne.NewPos(minX, minY))
	s.rect.Resize(fyne.NewSize(maxX-minX, maxY-minY))
	s.rect.Refresh()
}

func (s *selectionArea) DragEnd() {
	s.release(s.lastPoint)
}

func (s *selectionArea) release(pos fyne.Position) {
	if !s.tracker.Dragging() {
		return
	}
	s.tracker.Release(toPixel(pos, s.Size(), s.screen))
	s.finish()
}

func order(a, b float32) (float32, float32) {
	if a > b {
		return b, a
	}
	return a, b
}
