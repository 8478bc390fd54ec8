// Package codec holds the still image codec used by the single-frame path and
// the interfaces a video codec implementation has to satisfy to serve the
// real-time path.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/shynome/colorcast/overlay"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrDecode = errors.New("codec: cannot decode frame")

const DefaultJPEGQuality = 90

// Image decodes any registered still image format (jpeg, png, gif, bmp,
// webp) and encodes back to JPEG.
type Image struct {
	Quality int
}

func (c Image) Decode(data []byte) (*overlay.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return FromRGBA(rgba), nil
}

func (c Image) Encode(b *overlay.Buffer) ([]byte, error) {
	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, ToImage(b), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// FromRGBA wraps img's pixels without copying.
func FromRGBA(img *image.RGBA) *overlay.Buffer {
	return &overlay.Buffer{
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Stride: img.Stride,
		Order:  overlay.RGBA,
		Pix:    img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y):],
	}
}

// ToImage returns an image.Image view of b. RGBA buffers are shared, other
// layouts are converted.
func ToImage(b *overlay.Buffer) image.Image {
	if b.Order == overlay.RGBA {
		return &image.RGBA{Pix: b.Pix, Stride: b.Stride, Rect: image.Rect(0, 0, b.Width, b.Height)}
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := b.At(x, y)
			i := dst.PixOffset(x, y)
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, 0xff
		}
	}
	return dst
}
