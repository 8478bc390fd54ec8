package overlay

import (
	"errors"
	"math"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

var black = Color{}

func countColor(b *Buffer, c Color) (n int) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) == c {
				n++
			}
		}
	}
	return
}

func TestRectangleCentered(t *testing.T) {
	b := NewBuffer(100, 100, BGR)
	c := Color{R: 10, G: 20, B: 30}
	cfg := try.To1(NewConfig(Rectangle, 0.3))
	assert.That(cfg.Draw(b, c) == b)

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			inside := x >= 35 && x < 65 && y >= 35 && y < 65
			if inside {
				assert.Equal(b.At(x, y), c)
			} else {
				assert.Equal(b.At(x, y), black)
			}
		}
	}
	assert.Equal(countColor(b, c), 30*30)
	// BGR layout stores blue first
	off := b.offset(35, 35)
	assert.Equal(b.Pix[off], uint8(30))
	assert.Equal(b.Pix[off+2], uint8(10))
}

func TestRectangleFullFrame(t *testing.T) {
	b := NewBuffer(7, 3, RGBA)
	c := Color{R: 1, G: 2, B: 3}
	Rectangle.Draw(b, c, 1)
	assert.Equal(countColor(b, c), 7*3)
}

func TestCircleInscribed(t *testing.T) {
	b := NewBuffer(40, 20, RGB)
	c := Color{R: 200}
	Circle.Draw(b, c, 1)
	// radius 10 centered at (20,10)
	assert.Equal(b.At(20, 10), c)
	assert.Equal(b.At(20, 0), c)
	assert.Equal(b.At(10, 10), c)
	assert.Equal(b.At(29, 10), c)
	assert.Equal(b.At(0, 0), black)
	assert.Equal(b.At(39, 19), black)
	assert.Equal(b.At(9, 10), black)
	n := countColor(b, c)
	assert.That(n > 250 && n < 380)
}

func TestDegenerateFractions(t *testing.T) {
	c := Color{G: 255}
	for _, shape := range []Shape{Rectangle, Circle} {
		b := NewBuffer(10, 10, RGB)
		shape.Draw(b, c, 0.01)
		assert.Equal(countColor(b, c), 0)
		shape.Draw(b, c, math.NaN())
		assert.Equal(countColor(b, c), 0)
		shape.Draw(b, c, -1)
		assert.Equal(countColor(b, c), 0)
	}
}

func TestTinyBuffers(t *testing.T) {
	c := Color{R: 9, G: 9, B: 9}
	for _, shape := range []Shape{Rectangle, Circle} {
		for w := 1; w <= 5; w++ {
			for h := 1; h <= 5; h++ {
				for _, f := range []float64{0.001, 0.1, 0.5, 0.99, 1} {
					b := NewBuffer(w, h, BGRA)
					pix := len(b.Pix)
					shape.Draw(b, c, f)
					assert.Equal(len(b.Pix), pix)
				}
			}
		}
	}
	b := NewBuffer(1, 1, RGB)
	Rectangle.Draw(b, c, 1)
	assert.Equal(b.At(0, 0), c)
}

// Buffers with padded rows must only be touched inside each row's pixels.
func TestNeverWritesPadding(t *testing.T) {
	for _, shape := range []Shape{Rectangle, Circle} {
		for _, f := range []float64{0.2, 0.5, 0.75, 1} {
			b := &Buffer{Width: 9, Height: 5, Stride: 9*3 + 4, Order: RGB}
			b.Pix = make([]byte, b.Stride*b.Height)
			for i := range b.Pix {
				b.Pix[i] = 0xAA
			}
			shape.Draw(b, Color{R: 1, G: 2, B: 3}, f)
			for y := 0; y < b.Height; y++ {
				for i := 9 * 3; i < b.Stride; i++ {
					assert.Equal(b.Pix[y*b.Stride+i], uint8(0xAA))
				}
			}
		}
	}
}

func TestNewConfig(t *testing.T) {
	for _, f := range []float64{0, -0.1, 1.0001, math.NaN(), math.Inf(1)} {
		_, err := NewConfig(Rectangle, f)
		assert.That(errors.Is(err, ErrInvalidFraction))
	}
	_, err := NewConfig(Shape(7), 0.5)
	assert.That(errors.Is(err, ErrUnknownShape))

	cfg := try.To1(NewConfig(Circle, 1))
	assert.Equal(cfg.Shape(), Circle)
	assert.Equal(cfg.SizeFraction(), 1.0)
}

func TestParseShape(t *testing.T) {
	assert.Equal(try.To1(ParseShape("Rectangle")), Rectangle)
	assert.Equal(try.To1(ParseShape(" circle ")), Circle)
	_, err := ParseShape("triangle")
	assert.That(errors.Is(err, ErrUnknownShape))
}

func TestParseColor(t *testing.T) {
	c := try.To1(ParseColor([]byte(`{"r":255,"g":0,"b":12}`)))
	assert.Equal(c, Color{R: 255, B: 12})

	c = try.To1(ParseColor([]byte(`{"r":12.9,"g":0.2,"b":254.99}`)))
	assert.Equal(c, Color{R: 12, G: 0, B: 254})

	for _, bad := range []string{
		``,
		`null`,
		`[1,2,3]`,
		`{"r":1,"g":2}`,
		`{"r":256,"g":0,"b":0}`,
		`{"r":-1,"g":0,"b":0}`,
		`{"r":"1","g":0,"b":0}`,
		`not json`,
	} {
		_, err := ParseColor([]byte(bad))
		assert.That(errors.Is(err, ErrMalformedColor), bad)
	}
}

func TestParseColorList(t *testing.T) {
	assert.Equal(try.To1(ParseColorList("1,2,3")), Color{R: 1, G: 2, B: 3})
	_, err := ParseColorList("1,2,300")
	assert.That(errors.Is(err, ErrMalformedColor))
	_, err = ParseColorList("red")
	assert.That(errors.Is(err, ErrMalformedColor))
}
