// Package lens2 receives offers from a remote signaling server. Offers arrive
// as Server-Sent Events on topic id; answers go back as a DELETE on the same
// topic, tagged with the offer's event id.
package lens2

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/donovanhide/eventsource"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/rs/zerolog"
	impl "github.com/shynome/colorcast/signaler"
)

type Signaler struct {
	id     string
	client *client
	log    zerolog.Logger

	streamL          sync.Mutex
	connectionStream *eventsource.Stream
}

var _ impl.Channel = (*Signaler)(nil)

func NewSignaler(id string, endpoint string, log zerolog.Logger) (*Signaler, error) {
	c, err := newClient(endpoint)
	if err != nil {
		return nil, err
	}
	return &Signaler{
		id:     id,
		client: c,
		log:    log.With().Str("component", "lens2").Str("topic", id).Logger(),
	}, nil
}

func (s *Signaler) Accept() (ch <-chan impl.Session, err error) {
	defer err2.Handle(&err)

	offerCh := make(chan impl.Session)
	req := try.To1(s.client.newReq(http.MethodGet, s.id, http.NoBody))
	stream := try.To1(eventsource.SubscribeWithRequest("", req))

	s.streamL.Lock()
	s.connectionStream = stream
	s.streamL.Unlock()

	go func() {
		for err := range stream.Errors {
			s.log.Warn().Err(err).Msg("event stream")
		}
	}()
	go func() {
		defer close(offerCh)
		for ev := range stream.Events {
			sess := s.newSession(ev)
			if sess == nil {
				s.log.Warn().Str("event", ev.Id()).Msg("dropping event without a valid offer")
				continue
			}
			offerCh <- sess
		}
	}()
	return offerCh, nil
}

func (s *Signaler) Close() (err error) {
	s.streamL.Lock()
	defer s.streamL.Unlock()
	if stream := s.connectionStream; stream != nil {
		stream.Close()
		s.connectionStream = nil
	}
	return
}

type Session struct {
	root  *Signaler
	ev    eventsource.Event
	offer impl.SDP
}

var _ impl.Session = (*Session)(nil)

func (s *Signaler) newSession(ev eventsource.Event) *Session {
	var offer impl.SDP
	if err := json.Unmarshal([]byte(ev.Data()), &offer); err != nil {
		return nil
	}
	return &Session{
		root:  s,
		ev:    ev,
		offer: offer,
	}
}

func (s *Session) Description() (offer impl.SDP) { return s.offer }

func (s *Session) Resolve(answer *impl.SDP) (err error) {
	defer err2.Handle(&err)
	b := s.root
	body := try.To1(json.Marshal(answer))
	req := try.To1(b.client.newReq(http.MethodDelete, b.id, bytes.NewReader(body)))
	req.Header.Set("X-Event-Id", s.ev.Id())
	res := try.To1(b.client.doReq(req))
	res.Body.Close()
	return
}

// Reject leaves the offer unanswered; the remote side times out.
func (s *Session) Reject(err error) {
	s.root.log.Warn().Err(err).Str("event", s.ev.Id()).Msg("offer rejected")
}
