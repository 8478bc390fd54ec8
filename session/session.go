// Package session implements one live peer's real-time overlay session: the
// per-frame transform loop, the color control handler and the connection
// lifecycle, plus the registry that owns every live session.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/overlay"
)

var (
	ErrClosed = errors.New("session: closed")
	ErrNoSink = errors.New("session: no outbound sink")

	errStaleBinding = errors.New("session: binding replaced")
)

// Event reports a state change.
type Event struct {
	SessionID string    `json:"id"`
	State     State     `json:"state"`
	Err       error     `json:"-"`
	At        time.Time `json:"at"`
}

type Option func(*Session)

func WithID(id string) Option            { return func(s *Session) { s.id = id } }
func WithLogger(l zerolog.Logger) Option { return func(s *Session) { s.log = l } }
func WithColor(c overlay.Color) Option   { return func(s *Session) { s.color.Store(&c) } }
func WithObserver(fn func(Event)) Option { return func(s *Session) { s.observer = fn } }

type Session struct {
	id       string
	overlay  overlay.Config
	log      zerolog.Logger
	observer func(Event)

	// the only field shared between the frame loop and the control handler
	color atomic.Pointer[overlay.Color]

	mu          sync.Mutex
	state       State
	transport   io.Closer
	sink        Sink
	binding     *binding
	onTerminate []func(*Session)

	// frame loops still running, replaced ones included
	loops sync.WaitGroup

	emitMu sync.Mutex

	finish   sync.Once
	done     chan struct{}
	closeErr error
	cause    error

	frames         atomic.Uint64
	skipped        atomic.Uint64
	controlApplied atomic.Uint64
	controlDropped atomic.Uint64
}

func New(cfg overlay.Config, opts ...Option) *Session {
	s := &Session{
		overlay: cfg,
		log:     zerolog.Nop(),
		state:   StateNew,
		done:    make(chan struct{}),
	}
	s.color.Store(&overlay.Color{})
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reached a terminal state, its frame loop
// returned and its resources were released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is the failure cause, nil unless the session failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

func (s *Session) Color() overlay.Color { return *s.color.Load() }

func (s *Session) SetColor(c overlay.Color) { s.color.Store(&c) }

// Attach hands the negotiated transport to the session; it is closed when
// the session terminates. Attaching to a terminated session closes t.
func (s *Session) Attach(t io.Closer) error {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		t.Close()
		return ErrClosed
	}
	s.transport = t
	s.mu.Unlock()
	return nil
}

// SetSink installs the outbound frame sink.
func (s *Session) SetSink(sink Sink) error {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		sink.Close()
		return ErrClosed
	}
	old := s.sink
	s.sink = sink
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// addTerminateHook registers fn to run once on termination. It reports false
// if the session already terminated, in which case fn is not kept.
func (s *Session) addTerminateHook(fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.onTerminate = append(s.onTerminate, fn)
	return true
}

// Transition moves the session to a non-terminal state. Re-entering the
// current state is a no-op. Terminal states go through Fail and Close.
func (s *Session) Transition(to State) error {
	if to.Terminal() {
		if to == StateFailed {
			return s.Fail(nil)
		}
		return s.Close()
	}
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return nil
	}
	if !canTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.state = to
	s.mu.Unlock()

	s.log.Debug().Stringer("from", from).Stringer("to", to).Msg("state change")
	s.notify(Event{SessionID: s.id, State: to, At: time.Now()})
	return nil
}

// Fail terminates the session as failed. Only the first terminal call
// releases resources and it returns after the frame loop stopped; later
// calls return the same result.
func (s *Session) Fail(cause error) error {
	return s.terminate(StateFailed, cause)
}

// Close terminates the session as closed.
func (s *Session) Close() error {
	return s.terminate(StateClosed, nil)
}

func (s *Session) terminate(final State, cause error) error {
	s.finish.Do(func() {
		s.mu.Lock()
		from := s.state
		s.state = final
		s.cause = cause
		b := s.binding
		s.binding = nil
		transport, sink := s.transport, s.sink
		hooks := s.onTerminate
		s.onTerminate = nil
		s.mu.Unlock()

		if b != nil {
			b.cancel()
		}
		var errs []error
		if transport != nil {
			if err := transport.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if sink != nil {
			if err := sink.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		// the closed transport unblocks a pending track read
		s.loops.Wait()
		for _, fn := range hooks {
			fn(s)
		}
		s.closeErr = errors.Join(errs...)

		ev := s.log.Info()
		if final == StateFailed {
			ev = s.log.Warn().AnErr("cause", cause)
		}
		ev.Stringer("from", from).Stringer("state", final).
			Uint64("frames", s.frames.Load()).
			Msg("session terminated")

		close(s.done)
		s.notify(Event{SessionID: s.id, State: final, Err: cause, At: time.Now()})
	})
	return s.closeErr
}

func (s *Session) notify(ev Event) {
	if s.observer != nil {
		s.observer(ev)
	}
}

// HandleControl applies a color update message. Malformed payloads are
// dropped and leave the current color untouched.
func (s *Session) HandleControl(payload []byte) error {
	c, err := overlay.ParseColor(payload)
	if err != nil {
		s.controlDropped.Add(1)
		s.log.Warn().Err(err).Int("bytes", len(payload)).Msg("dropping control message")
		return err
	}
	s.SetColor(c)
	s.controlApplied.Add(1)
	s.log.Debug().Stringer("color", c).Msg("color updated")
	return nil
}

// Transform draws the overlay on f in place with one color snapshot. PTS and
// TimeBase are left as received.
func (s *Session) Transform(f *Frame) *Frame {
	c := s.Color()
	s.overlay.Draw(f.Buffer, c)
	s.frames.Add(1)
	return f
}

type binding struct {
	src    Source
	ctx    context.Context
	cancel context.CancelFunc
}

// Bind starts transforming frames from src, replacing any earlier source.
// The replaced loop stops before it can emit another frame.
func (s *Session) Bind(src Source) error {
	ctx, cancel := context.WithCancel(context.Background())
	b := &binding{src: src, ctx: ctx, cancel: cancel}

	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		cancel()
		src.Close()
		return ErrClosed
	}
	old := s.binding
	s.binding = b
	s.loops.Add(1)
	s.mu.Unlock()

	if old != nil {
		old.cancel()
		s.log.Info().Msg("replacing inbound track")
	}
	go s.run(b)
	return nil
}

func (s *Session) run(b *binding) {
	defer s.loops.Done()
	defer b.src.Close()
	for {
		f, err := b.src.ReadFrame(b.ctx)
		switch {
		case err == nil:
		case b.ctx.Err() != nil:
			return
		case errors.Is(err, codec.ErrDecode):
			s.skipped.Add(1)
			s.log.Debug().Err(err).Msg("skipping frame")
			continue
		case errors.Is(err, io.EOF):
			s.log.Debug().Msg("inbound track ended")
			return
		default:
			s.log.Warn().Err(err).Msg("inbound track failed")
			return
		}

		if err := s.emit(b, s.Transform(f)); err != nil {
			if errors.Is(err, errStaleBinding) || errors.Is(err, ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			s.log.Warn().Err(err).Msg("write frame")
		}
	}
}

func (s *Session) emit(b *binding, f *Frame) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	current, sink := s.binding == b, s.sink
	s.mu.Unlock()
	if !current {
		return errStaleBinding
	}
	if sink == nil {
		return ErrNoSink
	}
	return sink.WriteFrame(f)
}

// Stats counts frames and control messages seen by the session.
type Stats struct {
	Frames         uint64 `json:"frames"`
	SkippedFrames  uint64 `json:"skippedFrames"`
	ControlApplied uint64 `json:"controlApplied"`
	ControlDropped uint64 `json:"controlDropped"`
}

func (s *Session) Stats() Stats {
	return Stats{
		Frames:         s.frames.Load(),
		SkippedFrames:  s.skipped.Load(),
		ControlApplied: s.controlApplied.Load(),
		ControlDropped: s.controlDropped.Load(),
	}
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID    string        `json:"id"`
	State State         `json:"state"`
	Color overlay.Color `json:"color"`
	Stats Stats         `json:"stats"`
}

func (s *Session) Info() Info {
	return Info{ID: s.id, State: s.State(), Color: s.Color(), Stats: s.Stats()}
}
