package endpoint

import (
	"context"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
)

// Answer applies offer to pc and returns the local answer once ICE
// gathering finished, so the answer carries every candidate.
func Answer(ctx context.Context, pc *webrtc.PeerConnection, offer webrtc.SessionDescription) (answer *webrtc.SessionDescription, err error) {
	defer err2.Handle(&err)

	try.To(pc.SetRemoteDescription(offer))
	local := try.To1(pc.CreateAnswer(nil))
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	try.To(pc.SetLocalDescription(local))

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
	return pc.LocalDescription(), nil
}

// DrainRTCP reads and discards RTCP for sender until it is stopped; pion
// only runs its interceptors while someone reads.
func DrainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// RequestKeyFrame asks the remote sender of ssrc for a key frame.
func RequestKeyFrame(pc *webrtc.PeerConnection, ssrc webrtc.SSRC) error {
	return pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(ssrc)},
	})
}
