package session

import (
	"context"
	"log/slog"
	"sync"
)

// Registry hands out at most one live session per meeting ID. Sessions are
// created lazily on first use and evicted once they are neither recording
// nor subscribed to.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the live session for id, opening one from the store
// when none exists.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	s, err := Open(ctx, id, r.deps)
	if err != nil {
		return nil, err
	}
	r.sessions[id] = s
	return s, nil
}

// Get returns the live session for id or nil when none is loaded.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Release detaches one subscriber and evicts the session if nothing else
// holds it.
func (r *Registry) Release(s *Session, sub Subscriber) {
	s.Unsubscribe(sub)
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[s.ID()]; ok && current == s && s.CanEvict() {
		delete(r.sessions, s.ID())
		s.Close()
		slog.Debug("session evicted", "meeting_id", s.ID())
	}
}

// Drop force-closes and removes the session for id, winding down any live
// recording first. Used when the meeting itself is deleted.
func (r *Registry) Drop(ctx context.Context, id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	s.StopStreaming(ctx)
	s.Close()
}

// StopAll winds down every live session. Called on process shutdown.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.StopStreaming(ctx)
		s.Close()
	}
	if len(sessions) > 0 {
		slog.Info("all sessions stopped", "count", len(sessions))
	}
}
