//go:build !(js || wasip1)

package mux

import (
	"fmt"

	"github.com/pion/ice/v2"
	"github.com/pion/webrtc/v3"
)

func init() {
	WithUDPMux = listen
}

// listen binds port on every usable local address.
func listen(engine *webrtc.SettingEngine, port uint16) (ice.UDPMux, error) {
	m, err := ice.NewMultiUDPMuxFromPort(int(port))
	if err != nil {
		return nil, fmt.Errorf("udp mux on port %d: %w", port, err)
	}
	engine.SetICEUDPMux(m)
	return m, nil
}
