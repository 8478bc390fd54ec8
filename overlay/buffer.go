package overlay

// ChannelOrder is the byte layout of one pixel in a Buffer.
type ChannelOrder uint8

const (
	RGB ChannelOrder = iota
	BGR
	RGBA
	BGRA
)

func (o ChannelOrder) BytesPerPixel() int {
	switch o {
	case RGBA, BGRA:
		return 4
	default:
		return 3
	}
}

func (o ChannelOrder) String() string {
	switch o {
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	case RGBA:
		return "rgba"
	case BGRA:
		return "bgra"
	}
	return "unknown"
}

// Buffer is a raw pixel grid. Row y starts at Pix[y*Stride].
type Buffer struct {
	Width, Height int
	Stride        int
	Order         ChannelOrder
	Pix           []byte
}

func NewBuffer(width, height int, order ChannelOrder) *Buffer {
	stride := width * order.BytesPerPixel()
	return &Buffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Order:  order,
		Pix:    make([]byte, stride*height),
	}
}

func (b *Buffer) offset(x, y int) int {
	return y*b.Stride + x*b.Order.BytesPerPixel()
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Set writes c at (x, y). Out-of-bounds coordinates are ignored. Alpha, if
// the layout has one, is left untouched.
func (b *Buffer) Set(x, y int, c Color) {
	if !b.inBounds(x, y) {
		return
	}
	p := b.Pix[b.offset(x, y):]
	switch b.Order {
	case BGR, BGRA:
		p[0], p[1], p[2] = c.B, c.G, c.R
	default:
		p[0], p[1], p[2] = c.R, c.G, c.B
	}
}

// At returns the color at (x, y), or black when out of bounds.
func (b *Buffer) At(x, y int) Color {
	if !b.inBounds(x, y) {
		return Color{}
	}
	p := b.Pix[b.offset(x, y):]
	switch b.Order {
	case BGR, BGRA:
		return Color{R: p[2], G: p[1], B: p[0]}
	default:
		return Color{R: p[0], G: p[1], B: p[2]}
	}
}

// fillRow fills pixels [x0, x1) of row y.
func (b *Buffer) fillRow(y, x0, x1 int, c Color) {
	for x := x0; x < x1; x++ {
		b.Set(x, y, c)
	}
}
