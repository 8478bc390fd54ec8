package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/overlay"
)

type fakeSource struct {
	ch     chan any
	closed atomic.Int32
}

func newFakeSource() *fakeSource { return &fakeSource{ch: make(chan any, 16)} }

func (s *fakeSource) ReadFrame(ctx context.Context) (*Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		if err, ok := v.(error); ok {
			return nil, err
		}
		return v.(*Frame), nil
	}
}

func (s *fakeSource) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeSink struct {
	got    chan *Frame
	closed atomic.Int32
}

func newFakeSink() *fakeSink { return &fakeSink{got: make(chan *Frame, 16)} }

func (s *fakeSink) WriteFrame(f *Frame) error {
	s.got <- f
	return nil
}

func (s *fakeSink) Close() error {
	s.closed.Add(1)
	return nil
}

func (s *fakeSink) next(t *testing.T) *Frame {
	t.Helper()
	select {
	case f := <-s.got:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func (s *fakeSink) none(t *testing.T) {
	t.Helper()
	select {
	case f := <-s.got:
		t.Fatalf("unexpected frame pts=%d", f.PTS)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeTransport struct {
	closed atomic.Int32
	delay  time.Duration
}

func (t *fakeTransport) Close() error {
	time.Sleep(t.delay)
	t.closed.Add(1)
	return nil
}

func testConfig() overlay.Config {
	return try.To1(overlay.NewConfig(overlay.Rectangle, 0.3))
}

func blackFrame(pts int64) *Frame {
	return &Frame{
		Buffer:   overlay.NewBuffer(100, 100, overlay.BGR),
		PTS:      pts,
		TimeBase: TimeBase{Num: 1, Den: 90000},
	}
}

func newBound(t *testing.T, opts ...Option) (*Session, *fakeSource, *fakeSink) {
	t.Helper()
	s := New(testConfig(), opts...)
	sink := newFakeSink()
	try.To(s.SetSink(sink))
	src := newFakeSource()
	try.To(s.Bind(src))
	return s, src, sink
}

func TestTransformKeepsTiming(t *testing.T) {
	s := New(testConfig(), WithColor(overlay.Color{R: 10, G: 20, B: 30}))
	f := blackFrame(123456)
	out := s.Transform(f)
	assert.Equal(out.PTS, int64(123456))
	assert.Equal(out.TimeBase, TimeBase{Num: 1, Den: 90000})
	assert.Equal(out.At(50, 50), overlay.Color{R: 10, G: 20, B: 30})
	assert.Equal(out.At(34, 34), overlay.Color{})
	assert.Equal(out.At(64, 64), overlay.Color{R: 10, G: 20, B: 30})
	assert.Equal(out.At(65, 65), overlay.Color{})
	assert.Equal(s.Stats().Frames, uint64(1))
}

func TestLastColorWins(t *testing.T) {
	s, src, sink := newBound(t)
	defer s.Close()

	try.To(s.HandleControl([]byte(`{"r":255,"g":0,"b":0}`)))
	try.To(s.HandleControl([]byte(`{"r":0,"g":255,"b":0}`)))
	src.ch <- blackFrame(1)

	f := sink.next(t)
	assert.Equal(f.At(50, 50), overlay.Color{G: 255})
}

func TestMalformedControlKeepsColor(t *testing.T) {
	start := overlay.Color{R: 1, G: 2, B: 3}
	s, src, sink := newBound(t, WithColor(start))
	defer s.Close()

	for _, bad := range []string{`{"r":1}`, `garbage`, `{"r":300,"g":0,"b":0}`} {
		err := s.HandleControl([]byte(bad))
		assert.That(errors.Is(err, overlay.ErrMalformedColor))
	}
	assert.Equal(s.Color(), start)
	assert.Equal(s.Stats().ControlDropped, uint64(3))

	src.ch <- blackFrame(1)
	assert.Equal(sink.next(t).At(50, 50), start)
}

func TestLoopOrderAndSkips(t *testing.T) {
	s, src, sink := newBound(t)
	defer s.Close()

	src.ch <- blackFrame(1)
	src.ch <- fmt.Errorf("%w: broken sample", codec.ErrDecode)
	src.ch <- blackFrame(2)
	src.ch <- blackFrame(3)

	for _, pts := range []int64{1, 2, 3} {
		assert.Equal(sink.next(t).PTS, pts)
	}
	assert.Equal(s.Stats().SkippedFrames, uint64(1))
	assert.Equal(s.State(), StateNew)

	close(src.ch)
	sink.none(t)
	// the session outlives its track
	assert.Equal(s.State(), StateNew)
}

func TestRebindReplacesSource(t *testing.T) {
	s, first, sink := newBound(t)
	defer s.Close()

	first.ch <- blackFrame(1)
	assert.Equal(sink.next(t).PTS, int64(1))

	second := newFakeSource()
	try.To(s.Bind(second))
	first.ch <- blackFrame(2)
	sink.none(t)

	second.ch <- blackFrame(3)
	assert.Equal(sink.next(t).PTS, int64(3))

	deadline := time.Now().Add(time.Second)
	for first.closed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(first.closed.Load(), int32(1))
}

func TestStateMachine(t *testing.T) {
	tr := &fakeTransport{}
	var events []State
	var mu sync.Mutex
	s := New(testConfig(), WithObserver(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.State)
	}))
	try.To(s.Attach(tr))

	assert.That(errors.Is(s.Transition(StateConnected), ErrInvalidTransition))
	try.To(s.Transition(StateConnecting))
	try.To(s.Transition(StateConnecting))
	assert.That(errors.Is(s.Transition(StateNew), ErrInvalidTransition))
	try.To(s.Transition(StateConnected))
	assert.That(errors.Is(s.Transition(StateConnecting), ErrInvalidTransition))

	cause := errors.New("ice failed")
	try.To(s.Fail(cause))
	try.To(s.Close())
	assert.Equal(s.State(), StateFailed)
	assert.That(errors.Is(s.Err(), cause))
	assert.Equal(tr.closed.Load(), int32(1))
	assert.That(errors.Is(s.Transition(StateConnected), ErrInvalidTransition))

	<-s.Done()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(len(events), 3)
	assert.Equal(events[2], StateFailed)
}

func TestTerminatedSessionRefusesResources(t *testing.T) {
	s := New(testConfig())
	try.To(s.Close())

	tr := &fakeTransport{}
	assert.That(errors.Is(s.Attach(tr), ErrClosed))
	assert.Equal(tr.closed.Load(), int32(1))

	sink := newFakeSink()
	assert.That(errors.Is(s.SetSink(sink), ErrClosed))
	assert.Equal(sink.closed.Load(), int32(1))

	src := newFakeSource()
	assert.That(errors.Is(s.Bind(src), ErrClosed))
	assert.Equal(src.closed.Load(), int32(1))
}

func TestCloseReleasesEverything(t *testing.T) {
	tr := &fakeTransport{}
	s, src, sink := newBound(t)
	try.To(s.Attach(tr))
	try.To(s.Close())

	assert.Equal(tr.closed.Load(), int32(1))
	assert.Equal(sink.closed.Load(), int32(1))
	// the frame loop has returned and released its decoder
	assert.Equal(src.closed.Load(), int32(1))
	<-s.Done()
	src.ch <- blackFrame(1)
	sink.none(t)
}

// trackLike blocks in ReadFrame until its transport is closed, ignoring ctx
// the way a remote track read does.
type trackLike struct {
	unblock chan struct{}
	closed  atomic.Int32
}

func (s *trackLike) ReadFrame(context.Context) (*Frame, error) {
	<-s.unblock
	time.Sleep(20 * time.Millisecond)
	return nil, io.ErrClosedPipe
}

func (s *trackLike) Close() error {
	s.closed.Add(1)
	return nil
}

type closeFunc func() error

func (fn closeFunc) Close() error { return fn() }

func TestCloseWaitsForFrameLoop(t *testing.T) {
	src := &trackLike{unblock: make(chan struct{})}
	s := New(testConfig())
	try.To(s.Attach(closeFunc(func() error {
		close(src.unblock)
		return nil
	})))
	try.To(s.SetSink(newFakeSink()))
	try.To(s.Bind(src))

	try.To(s.Close())
	assert.Equal(src.closed.Load(), int32(1))
}

func TestCloseWaitsForReplacedLoop(t *testing.T) {
	first := &trackLike{unblock: make(chan struct{})}
	s := New(testConfig())
	try.To(s.Attach(closeFunc(func() error {
		close(first.unblock)
		return nil
	})))
	try.To(s.SetSink(newFakeSink()))
	try.To(s.Bind(first))
	second := newFakeSource()
	try.To(s.Bind(second))

	try.To(s.Close())
	assert.Equal(first.closed.Load(), int32(1))
	assert.Equal(second.closed.Load(), int32(1))
}
