package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/donovanhide/eventsource"
	"github.com/shynome/colorcast/session"
)

const eventsChannel = "sessions"

// Feed publishes session state changes as Server-Sent Events.
type Feed struct {
	srv *eventsource.Server
	seq atomic.Uint64

	closeL sync.RWMutex
	closed bool
}

func NewFeed() *Feed {
	return &Feed{srv: eventsource.NewServer()}
}

type stateEvent struct {
	id   string
	data []byte
}

func (e stateEvent) Id() string    { return e.id }
func (e stateEvent) Event() string { return "state" }
func (e stateEvent) Data() string  { return string(e.data) }

type stateData struct {
	Session string        `json:"session"`
	State   session.State `json:"state"`
	Error   string        `json:"error,omitempty"`
	At      time.Time     `json:"at"`
}

// Observe publishes ev. It is a session observer and is a no-op after Close.
func (f *Feed) Observe(ev session.Event) {
	d := stateData{Session: ev.SessionID, State: ev.State, At: ev.At}
	if ev.Err != nil {
		d.Error = ev.Err.Error()
	}
	data, err := json.Marshal(d)
	if err != nil {
		return
	}

	f.closeL.RLock()
	defer f.closeL.RUnlock()
	if f.closed {
		return
	}
	id := strconv.FormatUint(f.seq.Add(1), 10)
	f.srv.Publish([]string{eventsChannel}, stateEvent{id: id, data: data})
}

func (f *Feed) handler() http.Handler { return f.srv.Handler(eventsChannel) }

func (f *Feed) Close() {
	f.closeL.Lock()
	defer f.closeL.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.srv.Close()
}
