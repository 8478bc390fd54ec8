// Package still applies the overlay to one encoded image at a time.
package still

import (
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/overlay"
)

// Codec is the still image codec the processor drives.
type Codec interface {
	Decode(data []byte) (*overlay.Buffer, error)
	Encode(b *overlay.Buffer) ([]byte, error)
}

var _ Codec = codec.Image{}

type Processor struct {
	codec   Codec
	overlay overlay.Config
}

func NewProcessor(cfg overlay.Config, c Codec) *Processor {
	if c == nil {
		c = codec.Image{}
	}
	return &Processor{codec: c, overlay: cfg}
}

// Result is the re-encoded image and the color it was drawn with.
type Result struct {
	Image []byte
	Color overlay.Color
}

// Process decodes encoded, draws the configured shape with c and re-encodes.
// Decoding failures wrap codec.ErrDecode.
func (p *Processor) Process(encoded []byte, c overlay.Color) (r Result, err error) {
	b, err := p.codec.Decode(encoded)
	if err != nil {
		return
	}
	p.overlay.Draw(b, c)
	if r.Image, err = p.codec.Encode(b); err != nil {
		return
	}
	r.Color = c
	return
}
