package endpoint

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/session"
)

const mtu = 1200

// RTPWriter is the write side of an outbound track;
// *webrtc.TrackLocalStaticRTP implements it.
type RTPWriter interface {
	WriteRTP(p *rtp.Packet) error
}

// TrackSink encodes frames and writes them as RTP. Each packet carries the
// frame's own PTS as its timestamp, so the remote peer sees the inbound
// timing unchanged.
type TrackSink struct {
	w          RTPWriter
	enc        codec.VideoEncoder
	packetizer rtp.Packetizer

	mu     sync.Mutex
	closed bool
}

var _ session.Sink = (*TrackSink)(nil)

func NewTrackSink(w RTPWriter, mime string, enc codec.VideoEncoder) (*TrackSink, error) {
	payloader, ok := payloader(mime)
	if !ok {
		return nil, fmt.Errorf("%w: %s", codec.ErrNoVideoCodec, mime)
	}
	// payload type and ssrc are rewritten per binding by the track
	p := rtp.NewPacketizer(mtu, 0, 0, payloader, rtp.NewRandomSequencer(), videoClockRate)
	return &TrackSink{w: w, enc: enc, packetizer: p}, nil
}

func (s *TrackSink) WriteFrame(f *session.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.ErrClosed
	}
	data, err := s.enc.Encode(f.Buffer)
	if err != nil {
		return err
	}
	ts := rtpTimestamp(f)
	for _, pkt := range s.packetizer.Packetize(data, 0) {
		pkt.Timestamp = ts
		if err := s.w.WriteRTP(pkt); err != nil {
			return err
		}
	}
	return nil
}

func (s *TrackSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.enc.Close()
}

func rtpTimestamp(f *session.Frame) uint32 {
	tb := f.TimeBase
	if tb.Den == 0 || (tb.Num == 1 && tb.Den == videoClockRate) {
		return uint32(f.PTS)
	}
	return uint32(f.PTS * int64(tb.Num) * videoClockRate / int64(tb.Den))
}
