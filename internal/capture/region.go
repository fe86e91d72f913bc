package capture

import (
	"fmt"
	"image"
)

// Region is a rectangle of the screen in pixel coordinates.
// A nil *Region stands for the whole screen.
type Region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// NewRegion builds a Region from two opposite corners in any order.
func NewRegion(a, b image.Point) Region {
	r := image.Rectangle{Min: a, Max: b}.Canon()
	return Region{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

func (r Region) Width() int  { return r.Right - r.Left }
func (r Region) Height() int { return r.Bottom - r.Top }

func (r Region) Empty() bool {
	return r.Rect().Empty()
}

func (r Region) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", r.Left, r.Top, r.Right, r.Bottom)
}
