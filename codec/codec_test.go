package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/shynome/colorcast/overlay"
	"golang.org/x/image/bmp"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestDecodeFormats(t *testing.T) {
	img := testImage(8, 6)
	var pngBuf, bmpBuf bytes.Buffer
	try.To(png.Encode(&pngBuf, img))
	try.To(bmp.Encode(&bmpBuf, img))

	for _, data := range [][]byte{pngBuf.Bytes(), bmpBuf.Bytes()} {
		b := try.To1(Image{}.Decode(data))
		assert.Equal(b.Width, 8)
		assert.Equal(b.Height, 6)
		assert.Equal(b.Order, overlay.RGBA)
		assert.Equal(b.At(3, 3), overlay.Color{R: 200, G: 100, B: 50})
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, data := range [][]byte{nil, {}, []byte("not an image"), {0xff, 0xd8, 0xff, 0x00}} {
		_, err := Image{}.Decode(data)
		assert.That(errors.Is(err, ErrDecode))
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	b := overlay.NewBuffer(16, 16, overlay.BGR)
	overlay.Rectangle.Draw(b, overlay.Color{R: 255}, 1)
	data := try.To1(Image{Quality: 100}.Encode(b))

	img := try.To1(jpeg.Decode(bytes.NewReader(data)))
	assert.Equal(img.Bounds().Dx(), 16)
	r, g, bl, _ := img.At(8, 8).RGBA()
	assert.That(r>>8 > 240 && g>>8 < 20 && bl>>8 < 20)
}

func TestToImageSharesRGBA(t *testing.T) {
	b := overlay.NewBuffer(2, 2, overlay.RGBA)
	img := ToImage(b).(*image.RGBA)
	b.Set(1, 1, overlay.Color{G: 7})
	assert.Equal(img.RGBAAt(1, 1).G, uint8(7))
}

type fakeVideo string

func (f fakeVideo) MimeType() string                { return string(f) }
func (fakeVideo) NewDecoder() (VideoDecoder, error) { return nil, nil }
func (fakeVideo) NewEncoder() (VideoEncoder, error) { return nil, nil }

func TestVideoSet(t *testing.T) {
	s := NewVideoSet(fakeVideo("video/VP8"), fakeVideo("video/H264"), fakeVideo("video/vp8"))
	assert.Equal(s.Len(), 2)
	v, ok := s.Lookup("VIDEO/vp8")
	assert.That(ok)
	assert.Equal(v.MimeType(), "video/vp8")
	_, ok = s.Lookup("video/AV1")
	assert.That(!ok)
	assert.Equal(s.MimeTypes()[0], "video/vp8")

	var empty *VideoSet
	assert.Equal(empty.Len(), 0)
	_, ok = empty.Lookup("video/VP8")
	assert.That(!ok)

	assert.That(SameMime(" Video/VP8", "video/vp8"))
	assert.That(!SameMime("video/VP8", "video/VP9"))
}
