// Package endpoint adapts pion peer connections and tracks to the session
// package: inbound tracks become frame sources, frame sinks become outbound
// tracks.
package endpoint

import (
	"fmt"
	"net"

	"github.com/pion/webrtc/v3"
)

// RemoteAddr returns the selected remote ICE candidate as host:port, or ""
// while no pair is selected.
func RemoteAddr(pc *webrtc.PeerConnection) (addr string) {
	if pc == nil {
		return
	}
	sctp := pc.SCTP()
	if sctp == nil {
		return
	}
	dtls := sctp.Transport()
	if dtls == nil {
		return
	}
	ice := dtls.ICETransport()
	if ice == nil {
		return
	}
	pair, err := ice.GetSelectedCandidatePair()
	if err != nil || pair == nil || pair.Remote == nil {
		return
	}
	remote := pair.Remote
	return net.JoinHostPort(remote.Address, fmt.Sprint(remote.Port))
}
