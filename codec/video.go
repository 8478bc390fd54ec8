package codec

import (
	"errors"
	"sort"

	"github.com/shynome/colorcast/overlay"
)

// VideoDecoder turns one depacketized sample into a frame. A sample that
// cannot be decoded yields an error wrapping ErrDecode.
type VideoDecoder interface {
	Decode(sample []byte) (*overlay.Buffer, error)
	Close() error
}

// VideoEncoder turns a frame back into one sample of the same codec.
type VideoEncoder interface {
	Encode(b *overlay.Buffer) ([]byte, error)
	Close() error
}

// Video is a video codec implementation, keyed by its RTP mime type
// (e.g. "video/VP8").
type Video interface {
	MimeType() string
	NewDecoder() (VideoDecoder, error)
	NewEncoder() (VideoEncoder, error)
}

var ErrNoVideoCodec = errors.New("codec: no video codec")

// VideoSet is the set of video codecs available to the real-time path. It is
// built at startup and read-only afterwards.
type VideoSet struct {
	byMime map[string]Video
	order  []string
}

func NewVideoSet(codecs ...Video) *VideoSet {
	s := &VideoSet{byMime: make(map[string]Video)}
	for _, c := range codecs {
		mime := normalizeMime(c.MimeType())
		if _, ok := s.byMime[mime]; !ok {
			s.order = append(s.order, mime)
		}
		s.byMime[mime] = c
	}
	return s
}

func (s *VideoSet) Lookup(mime string) (Video, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.byMime[normalizeMime(mime)]
	return c, ok
}

// MimeTypes lists codecs in registration order.
func (s *VideoSet) MimeTypes() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

func (s *VideoSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Sorted is MimeTypes in lexical order, for logs.
func (s *VideoSet) Sorted() []string {
	m := s.MimeTypes()
	sort.Strings(m)
	return m
}
