package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/gijirokun/internal/meeting"
	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/transcriber"
	"github.com/foxseedlab/gijirokun/internal/webhook"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

type stubRepo struct {
	mu       sync.Mutex
	meetings map[string]*repository.Meeting
	updates  int
	active   map[string]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		meetings: make(map[string]*repository.Meeting),
		active:   make(map[string]bool),
	}
}

func (r *stubRepo) CreateMeeting(_ context.Context, input repository.CreateMeetingInput) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	title := input.Title
	if title == "" {
		title = "Untitled Meeting"
	}
	m := &repository.Meeting{ID: input.ID, Title: title, Agenda: input.Agenda, CreatedAt: time.Now()}
	r.meetings[input.ID] = m
	return m, nil
}

func (r *stubRepo) GetMeeting(_ context.Context, id string) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *stubRepo) UpdateMeeting(_ context.Context, m *repository.Meeting) (*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	copied := *m
	r.meetings[m.ID] = &copied
	return m, nil
}

func (r *stubRepo) SetMeetingActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[id] = active
	return nil
}

func (r *stubRepo) ListMeetings(_ context.Context, _, _ int) ([]*repository.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*repository.Meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *stubRepo) DeleteMeeting(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.meetings[id]
	delete(r.meetings, id)
	return ok, nil
}

func (r *stubRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func (r *stubRepo) isActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[id]
}

// stubSummarizer answers each call with the next scripted result, or a
// degraded result when the script runs out.
type stubSummarizer struct {
	mu       sync.Mutex
	script   []scriptedNotes
	batches  [][]meeting.Utterance
	contexts []string
}

type scriptedNotes struct {
	notes    meeting.StructuredNotes
	degraded bool
}

func (s *stubSummarizer) Summarize(_ context.Context, batch []meeting.Utterance, previousContext string) (meeting.StructuredNotes, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	s.contexts = append(s.contexts, previousContext)
	if len(s.script) == 0 {
		return meeting.StructuredNotes{}, true
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next.notes, next.degraded
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type stubTranscriber struct {
	mu        sync.Mutex
	receivers []transcriber.ResultReceiver
	streams   []*stubStream
	startErr  error
}

type stubStream struct {
	mu       sync.Mutex
	writes   [][]byte
	closed   bool
	writeErr error
}

func (s *stubStream) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, pcm)
	return nil
}

func (s *stubStream) setWriteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *stubStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubStream) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *stubStream) write(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.writes) {
		return nil
	}
	return s.writes[i]
}

func (t *stubTranscriber) StartStreaming(_ context.Context, _ string, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return nil, t.startErr
	}
	stream := &stubStream{}
	t.receivers = append(t.receivers, receiver)
	t.streams = append(t.streams, stream)
	return stream, nil
}

func (t *stubTranscriber) receiver(i int) transcriber.ResultReceiver {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.receivers) {
		return nil
	}
	return t.receivers[i]
}

func (t *stubTranscriber) stream(i int) *stubStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.streams) {
		return nil
	}
	return t.streams[i]
}

func (t *stubTranscriber) streamCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

type stubWebhook struct {
	mu       sync.Mutex
	payloads []webhook.NotesPayload
}

func (w *stubWebhook) SendNotes(_ context.Context, payload webhook.NotesPayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload)
	return nil
}

func (w *stubWebhook) sent() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.payloads)
}

// recordingSubscriber collects every event it receives.
type recordingSubscriber struct {
	mu     sync.Mutex
	events [][]byte
	fail   bool
}

func (s *recordingSubscriber) Send(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("subscriber gone")
	}
	s.events = append(s.events, append([]byte(nil), data...))
	return nil
}

func (s *recordingSubscriber) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *recordingSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *recordingSubscriber) event(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.events) {
		return nil
	}
	return s.events[i]
}

func newTestSession(t *testing.T, id string) (*Session, *stubRepo, *stubSummarizer, *stubTranscriber, *stubWebhook) {
	t.Helper()
	repo := newStubRepo()
	sum := &stubSummarizer{}
	stt := &stubTranscriber{}
	hook := &stubWebhook{}
	s, err := Open(context.Background(), id, Deps{
		Repo:              repo,
		Transcriber:       stt,
		Summarizer:        sum,
		Webhook:           hook,
		SummarizeInterval: time.Hour, // ticks driven manually in tests
	})
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	t.Cleanup(s.Close)
	return s, repo, sum, stt, hook
}
