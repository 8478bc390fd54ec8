package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/overlay"
)

var (
	ErrTransportClosed = errors.New("api: transport closed")

	errBadMessage = errors.New("bad message")
)

const (
	typeFrame     = "frame"
	typeProcessed = "processed"
	typeError     = "error"

	jpegDataURI = "data:image/jpeg;base64,"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type framePayload struct {
	Data     *string         `json:"data"`
	AvgColor json.RawMessage `json:"avgColor"`
}

type reply struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type processedPayload struct {
	Data     string          `json:"data"`
	AvgColor json.RawMessage `json:"avgColor"`
}

// serveSocket runs the still-frame message loop for one connection. A
// message that fails is answered with an error message and the loop goes on;
// it ends when the peer goes away or a reply cannot be sent.
func (h *Handler) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.maxMessageBytes)

	log := h.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("socket opened")
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if err = transportErr(err); errors.Is(err, ErrTransportClosed) {
				log.Debug().Err(err).Msg("socket closed")
			} else {
				log.Warn().Err(err).Msg("socket read")
			}
			return
		}

		out, err := h.handleMessage(raw)
		if err != nil {
			log.Debug().Err(err).Msg("frame failed")
			if err := conn.WriteJSON(reply{Type: typeError, Payload: err.Error()}); err != nil {
				return
			}
			continue
		}
		if out == nil {
			continue
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Debug().Err(transportErr(err)).Msg("socket write")
			return
		}
	}
}

// handleMessage returns the reply to raw, or nil for message types the
// socket does not handle.
func (h *Handler) handleMessage(raw []byte) (*reply, error) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadMessage, err)
	}
	if msg.Type != typeFrame {
		return nil, nil
	}

	var p framePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", errBadMessage, err)
	}
	if p.Data == nil {
		return nil, fmt.Errorf("%w: missing data", errBadMessage)
	}
	if len(p.AvgColor) == 0 {
		return nil, fmt.Errorf("%w: missing avgColor", errBadMessage)
	}
	color, err := overlay.ParseColor(p.AvgColor)
	if err != nil {
		return nil, err
	}

	data := *p.Data
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", codec.ErrDecode, err)
	}

	res, err := h.processor.Process(img, color)
	if err != nil {
		return nil, err
	}
	return &reply{
		Type: typeProcessed,
		Payload: processedPayload{
			Data:     jpegDataURI + base64.StdEncoding.EncodeToString(res.Image),
			AvgColor: p.AvgColor,
		},
	}, nil
}

func transportErr(err error) error {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %w", ErrTransportClosed, err)
	}
	return err
}
