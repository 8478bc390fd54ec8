package endpoint

import (
	"strings"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
	"github.com/shynome/colorcast/codec"
)

const videoClockRate = 90000

var videoFeedback = []webrtc.RTCPFeedback{
	{Type: "goog-remb"},
	{Type: "ccm", Parameter: "fir"},
	{Type: "nack"},
	{Type: "nack", Parameter: "pli"},
}

var knownVideo = []webrtc.RTPCodecParameters{
	{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: videoClockRate, RTCPFeedback: videoFeedback},
		PayloadType:        96,
	},
	{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP9, ClockRate: videoClockRate, SDPFmtpLine: "profile-id=0", RTCPFeedback: videoFeedback},
		PayloadType:        98,
	},
	{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: videoClockRate, SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f", RTCPFeedback: videoFeedback},
		PayloadType:        102,
	},
}

// Parameters returns the RTP parameters the server registers for mime.
func Parameters(mime string) (webrtc.RTPCodecParameters, bool) {
	for _, p := range knownVideo {
		if codec.SameMime(p.MimeType, mime) {
			return p, true
		}
	}
	return webrtc.RTPCodecParameters{}, false
}

func depacketizer(mime string) (rtp.Depacketizer, bool) {
	switch strings.ToLower(mime) {
	case strings.ToLower(webrtc.MimeTypeVP8):
		return &codecs.VP8Packet{}, true
	case strings.ToLower(webrtc.MimeTypeVP9):
		return &codecs.VP9Packet{}, true
	case strings.ToLower(webrtc.MimeTypeH264):
		return &codecs.H264Packet{}, true
	}
	return nil, false
}

func payloader(mime string) (rtp.Payloader, bool) {
	switch strings.ToLower(mime) {
	case strings.ToLower(webrtc.MimeTypeVP8):
		return &codecs.VP8Payloader{EnablePictureID: true}, true
	case strings.ToLower(webrtc.MimeTypeVP9):
		return &codecs.VP9Payloader{}, true
	case strings.ToLower(webrtc.MimeTypeH264):
		return &codecs.H264Payloader{}, true
	}
	return nil, false
}
