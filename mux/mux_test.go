package mux

import (
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/pion/webrtc/v3"
)

func TestWithUDPMux(t *testing.T) {
	if WithUDPMux == nil {
		t.Skip("udp mux unavailable")
	}
	var engine webrtc.SettingEngine
	m := try.To1(WithUDPMux(&engine, 0))
	assert.That(m != nil)
	try.To(m.Close())
}
