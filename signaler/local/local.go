// Package local is an in-process signaling channel: callers hand an offer to
// Handshake and block until the accepting server resolves or rejects it.
package local

import (
	"context"
	"errors"
	"sync"

	"github.com/shynome/colorcast/signaler"
)

var ErrClosed = errors.New("local signaler: closed")

type Server struct {
	ch     chan signaler.Session
	done   chan struct{}
	closeL sync.Once
}

var _ signaler.Channel = (*Server)(nil)

func NewServer() *Server {
	return &Server{
		ch:   make(chan signaler.Session),
		done: make(chan struct{}),
	}
}

// Handshake delivers offer to the accepting side and waits for its answer.
func (s *Server) Handshake(ctx context.Context, offer signaler.SDP) (answer *signaler.SDP, err error) {
	session := NewSession(ctx, offer)
	select {
	case s.ch <- session:
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
	return session.Result()
}

func (s *Server) Accept() (ch <-chan signaler.Session, err error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	return s.ch, nil
}

// Close stops delivering offers. The accept channel is left open: a
// pending Handshake may still be selecting on it.
func (s *Server) Close() (err error) {
	s.closeL.Do(func() { close(s.done) })
	return
}

// Done is closed by Close.
func (s *Server) Done() <-chan struct{} { return s.done }

type Session struct {
	context.Context
	reject context.CancelCauseFunc

	offer signaler.SDP

	answer *signaler.SDP
}

var _ signaler.Session = (*Session)(nil)

func NewSession(ctx context.Context, sdp signaler.SDP) *Session {
	ctx, reject := context.WithCancelCause(ctx)
	return &Session{
		Context: ctx,
		reject:  reject,

		offer: sdp,
	}
}

func (sess *Session) Description() signaler.SDP { return sess.offer }
func (sess *Session) Reject(err error) {
	if err == nil {
		err = errors.New("offer rejected")
	}
	sess.reject(err)
}
func (sess *Session) Resolve(answer *signaler.SDP) (err error) {
	defer sess.reject(nil)
	sess.answer = answer
	return
}

// Result waits for Resolve or Reject.
func (sess *Session) Result() (answer *signaler.SDP, err error) {
	<-sess.Done()
	switch err = context.Cause(sess); err {
	case context.Canceled:
		return sess.answer, nil
	}
	return
}
