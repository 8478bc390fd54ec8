package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRegistryClosed   = errors.New("session: registry is shut down")
	ErrDuplicateSession = errors.New("session: duplicate session id")
)

// Registry is the set of live sessions. A session added to it is removed
// when it terminates.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	log zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      log.With().Str("component", "registry").Logger(),
	}
}

func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if _, ok := r.sessions[s.ID()]; ok {
		r.mu.Unlock()
		return ErrDuplicateSession
	}
	r.sessions[s.ID()] = s
	n := len(r.sessions)
	r.mu.Unlock()

	if !s.addTerminateHook(r.deregister) {
		// terminated before the hook was in place
		r.Remove(s.ID())
		return ErrClosed
	}
	r.log.Debug().Str("session", s.ID()).Int("sessions", n).Msg("session added")
	return nil
}

func (r *Registry) deregister(s *Session) {
	r.Remove(s.ID())
}

// Remove drops id from the registry. It is safe to call for ids that were
// already removed and reports whether this call removed it.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if ok {
		r.log.Debug().Str("session", id).Int("sessions", n).Msg("session removed")
	}
	return ok
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns a snapshot of every live session ordered by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	members := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		members = append(members, s)
	}
	r.mu.RUnlock()

	infos := make([]Info, len(members))
	for i, s := range members {
		infos[i] = s.Info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Shutdown refuses new sessions, closes every member concurrently and
// returns after all of them finished closing.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	r.closed = true
	members := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		members = append(members, s)
	}
	r.mu.Unlock()

	r.log.Info().Int("sessions", len(members)).Msg("closing sessions")
	var g errgroup.Group
	for _, s := range members {
		s := s
		g.Go(func() error {
			if err := s.Close(); err != nil {
				r.log.Warn().Err(err).Str("session", s.ID()).Msg("close session")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
