package endpoint

import (
	"context"
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/samplebuilder"
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/session"
)

// maxLate is how many packets the sample builder holds back waiting for
// reordered packets.
const maxLate = 64

// RTPReader is the read side of an inbound track; *webrtc.TrackRemote
// implements it.
type RTPReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// TrackSource reassembles samples from an inbound track and decodes them
// into frames stamped with the sample's RTP timestamp.
type TrackSource struct {
	r         RTPReader
	builder   *samplebuilder.SampleBuilder
	dec       codec.VideoDecoder
	clockRate uint32

	started bool
	lastTS  uint32
	pts     int64
}

var _ session.Source = (*TrackSource)(nil)

func NewTrackSource(r RTPReader, mime string, clockRate uint32, dec codec.VideoDecoder) (*TrackSource, error) {
	depacketizer, ok := depacketizer(mime)
	if !ok {
		return nil, fmt.Errorf("%w: %s", codec.ErrNoVideoCodec, mime)
	}
	if clockRate == 0 {
		clockRate = videoClockRate
	}
	return &TrackSource{
		r:         r,
		builder:   samplebuilder.New(maxLate, depacketizer, clockRate),
		dec:       dec,
		clockRate: clockRate,
	}, nil
}

// ReadFrame blocks until the next complete sample arrived and decodes it.
// ctx is checked between packets; the track itself unblocks on close.
func (s *TrackSource) ReadFrame(ctx context.Context) (*session.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sample := s.builder.Pop(); sample != nil {
			pts := s.unwrap(sample.PacketTimestamp)
			buf, err := s.dec.Decode(sample.Data)
			if err != nil {
				return nil, err
			}
			return &session.Frame{
				Buffer:   buf,
				PTS:      pts,
				TimeBase: session.TimeBase{Num: 1, Den: s.clockRate},
			}, nil
		}
		pkt, _, err := s.r.ReadRTP()
		if err != nil {
			return nil, err
		}
		s.builder.Push(pkt)
	}
}

// unwrap extends 32-bit RTP timestamps into a monotonic 64-bit PTS.
func (s *TrackSource) unwrap(ts uint32) int64 {
	if !s.started {
		s.started = true
		s.lastTS = ts
		s.pts = int64(ts)
		return s.pts
	}
	s.pts += int64(int32(ts - s.lastTS))
	s.lastTS = ts
	return s.pts
}

func (s *TrackSource) Close() error {
	return s.dec.Close()
}
