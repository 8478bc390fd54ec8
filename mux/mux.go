// Package mux shares one UDP port between every peer connection.
package mux

import (
	"github.com/pion/ice/v2"
	"github.com/pion/webrtc/v3"
)

// WithUDPMux binds port and routes the engine's ICE traffic through it.
// It is nil on platforms without UDP sockets; callers then let ICE choose
// ephemeral ports per connection.
var WithUDPMux func(engine *webrtc.SettingEngine, port uint16) (ice.UDPMux, error)
