package session

import (
	"context"

	"github.com/shynome/colorcast/overlay"
)

// TimeBase is the unit of Frame.PTS, in seconds: Num/Den.
type TimeBase struct {
	Num, Den uint32
}

// Frame is one decoded video frame and its timing.
type Frame struct {
	*overlay.Buffer
	PTS      int64
	TimeBase TimeBase
}

// Source yields frames in arrival order. It returns io.EOF when the track
// ended and an error wrapping codec.ErrDecode for a single undecodable
// sample.
type Source interface {
	ReadFrame(ctx context.Context) (*Frame, error)
	Close() error
}

// Sink receives transformed frames for the remote peer.
type Sink interface {
	WriteFrame(f *Frame) error
	Close() error
}
