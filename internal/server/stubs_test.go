package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/gijirokun/internal/meeting"
	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/session"
	"github.com/foxseedlab/gijirokun/internal/transcriber"
)

type memoryRepo struct {
	mu       sync.Mutex
	meetings map[string]*repository.Meeting
	order    []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{meetings: make(map[string]*repository.Meeting)}
}

func (r *memoryRepo) CreateMeeting(_ context.Context, input repository.CreateMeetingInput) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	title := input.Title
	if title == "" {
		title = "Untitled Meeting"
	}
	m := &repository.Meeting{ID: input.ID, Title: title, Agenda: input.Agenda, CreatedAt: time.Now()}
	r.meetings[input.ID] = m
	r.order = append(r.order, input.ID)
	return m, nil
}

func (r *memoryRepo) GetMeeting(_ context.Context, id string) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *memoryRepo) UpdateMeeting(_ context.Context, m *repository.Meeting) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *m
	r.meetings[m.ID] = &copied
	return m, nil
}

func (r *memoryRepo) SetMeetingActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[id]; ok {
		m.IsActive = active
	}
	return nil
}

func (r *memoryRepo) ListMeetings(_ context.Context, limit, offset int) ([]*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*repository.Meeting
	for i := offset; i < len(r.order) && len(out) < limit; i++ {
		copied := *r.meetings[r.order[i]]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryRepo) DeleteMeeting(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.meetings[id]
	delete(r.meetings, id)
	return ok, nil
}

type nullTranscriber struct{}

type nullStream struct{}

func (nullStream) Write([]byte) error { return nil }
func (nullStream) Close() error       { return nil }

func (nullTranscriber) StartStreaming(context.Context, string, transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	return nullStream{}, nil
}

type nullSummarizer struct{}

func (nullSummarizer) Summarize(context.Context, []meeting.Utterance, string) (meeting.StructuredNotes, bool) {
	return meeting.StructuredNotes{}, true
}

func newTestServer(t *testing.T) (*Server, *memoryRepo, *session.Registry) {
	t.Helper()
	repo := newMemoryRepo()
	registry := session.NewRegistry(session.Deps{
		Repo:              repo,
		Transcriber:       nullTranscriber{},
		Summarizer:        nullSummarizer{},
		SummarizeInterval: time.Hour,
	})
	t.Cleanup(func() { registry.StopAll(context.Background()) })
	return NewServer(registry, repo), repo, registry
}
