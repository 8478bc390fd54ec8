package overlay

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Shape selects the overlay geometry. The set is closed: Draw switches on it.
type Shape uint8

const (
	Rectangle Shape = iota
	Circle
)

var ErrUnknownShape = errors.New("overlay: unknown shape")

func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rectangle", "rect":
		return Rectangle, nil
	case "circle":
		return Circle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}

func (s Shape) String() string {
	switch s {
	case Rectangle:
		return "rectangle"
	case Circle:
		return "circle"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// Draw fills the shape centered on b with c and returns b. The shape spans
// fraction of the frame; fractions <= 0 draw nothing and fractions above 1
// are treated as 1.
func (s Shape) Draw(b *Buffer, c Color, fraction float64) *Buffer {
	if b == nil || b.Width <= 0 || b.Height <= 0 || math.IsNaN(fraction) || fraction <= 0 {
		return b
	}
	if fraction > 1 {
		fraction = 1
	}
	switch s {
	case Rectangle:
		drawRectangle(b, c, fraction)
	case Circle:
		drawCircle(b, c, fraction)
	}
	return b
}

func drawRectangle(b *Buffer, c Color, fraction float64) {
	w := int(float64(b.Width) * fraction)
	h := int(float64(b.Height) * fraction)
	if w <= 0 || h <= 0 {
		return
	}
	x0 := (b.Width - w) / 2
	y0 := (b.Height - h) / 2
	for y := y0; y < y0+h; y++ {
		b.fillRow(y, x0, x0+w, c)
	}
}

func drawCircle(b *Buffer, c Color, fraction float64) {
	r := int(float64(min(b.Width, b.Height)) * fraction / 2)
	if r <= 0 {
		return
	}
	cx, cy := b.Width/2, b.Height/2
	x0, x1 := max(cx-r, 0), min(cx+r, b.Width-1)
	y0, y1 := max(cy-r, 0), min(cy+r, b.Height-1)
	for y := y0; y <= y1; y++ {
		dy := y - cy
		for x := x0; x <= x1; x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r*r {
				b.Set(x, y, c)
			}
		}
	}
}
