package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/foxseedlab/gijirokun/internal/meeting"
	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/summarizer"
	"github.com/foxseedlab/gijirokun/internal/transcriber"
	"github.com/foxseedlab/gijirokun/internal/webhook"
)

// Phase is the recording lifecycle of a session.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseStopping
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStreaming:
		return "streaming"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	}
	return "unknown"
}

// Deps are the external services one session coordinates.
type Deps struct {
	Repo              repository.Repository
	Transcriber       transcriber.Transcriber
	Summarizer        summarizer.Summarizer
	Webhook           webhook.Sender
	SummarizeInterval time.Duration
}

// Session is the live coordinator for one meeting. The meeting state is
// owned by a single run-loop goroutine; every mutation is a thunk posted to
// the calls channel, so no lock ever guards the state itself. Audio flows
// through the ingest bridge, final utterances land on the run loop, and the
// interval scheduler drains the pending batch through the summarizer.
type Session struct {
	id   string
	deps Deps

	calls chan func()
	quit  chan struct{}

	// Run-loop owned. phase is atomic only so control-plane readers can
	// observe it without a round trip; all writes happen on the run loop.
	state *meeting.State
	phase atomic.Int32

	buffer      *meeting.Buffer
	broadcaster *Broadcaster
	scheduler   *intervalScheduler

	mu        sync.Mutex
	bridge    *ingestBridge
	closeOnce sync.Once
}

// Open loads the meeting record for id, creating it when absent, and starts
// the session run loop. The returned session is idle; audio is ignored until
// StartStreaming.
func Open(ctx context.Context, id string, deps Deps) (*Session, error) {
	record, err := deps.Repo.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	var state *meeting.State
	if record != nil {
		state = record.State()
	} else {
		created, err := deps.Repo.CreateMeeting(ctx, repository.CreateMeetingInput{ID: id})
		if err != nil {
			return nil, err
		}
		state = created.State()
	}

	s := &Session{
		id:          id,
		deps:        deps,
		calls:       make(chan func(), 16),
		quit:        make(chan struct{}),
		state:       state,
		buffer:      meeting.NewBuffer(),
		broadcaster: NewBroadcaster(),
	}
	s.scheduler = newIntervalScheduler(deps.SummarizeInterval, s.processBatch)
	go s.runLoop()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Session) runLoop() {
	for {
		select {
		case fn := <-s.calls:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do posts fn to the run loop without waiting for it.
func (s *Session) do(fn func()) {
	select {
	case s.calls <- fn:
	case <-s.quit:
	}
}

// doWait posts fn to the run loop and blocks until it has run, or until the
// session is closed.
func (s *Session) doWait(fn func()) {
	done := make(chan struct{})
	select {
	case s.calls <- func() {
		fn()
		close(done)
	}:
	case <-s.quit:
		return
	}
	select {
	case <-done:
	case <-s.quit:
	}
}

// StartStreaming transitions the session into the streaming phase and opens
// the audio pipeline. Returns false when the session is already streaming or
// winding down, in which case nothing changes.
func (s *Session) StartStreaming(ctx context.Context) bool {
	started := false
	s.doWait(func() {
		switch Phase(s.phase.Load()) {
		case PhaseStreaming, PhaseStopping:
			return
		}
		s.phase.Store(int32(PhaseStreaming))
		started = true
	})
	if !started {
		return false
	}

	slog.Info("recording started", "meeting_id", s.id)
	if err := s.deps.Repo.SetMeetingActive(ctx, s.id, true); err != nil {
		slog.Error("failed to mark meeting active", "error", err, "meeting_id", s.id)
	}

	bridge := newIngestBridge(s.id, s.deps.Transcriber, &resultReceiver{session: s},
		func() bool { return s.Phase() == PhaseStreaming },
		s.failSession,
	)
	s.mu.Lock()
	s.bridge = bridge
	s.mu.Unlock()

	bridge.start(context.Background())
	s.scheduler.start()
	return true
}

// StopStreaming winds the pipeline down: intake closes, queued audio drains
// into the stream, the scheduler performs one final summarization pass over
// whatever is pending, and the final state is persisted and broadcast.
// Returns false when the session was not streaming.
func (s *Session) StopStreaming(ctx context.Context) bool {
	stopping := false
	s.doWait(func() {
		if Phase(s.phase.Load()) == PhaseStreaming {
			s.phase.Store(int32(PhaseStopping))
			stopping = true
		}
	})
	if !stopping {
		return false
	}

	slog.Info("recording stopping", "meeting_id", s.id)

	s.mu.Lock()
	bridge := s.bridge
	s.bridge = nil
	s.mu.Unlock()
	if bridge != nil {
		bridge.stop()
	}
	s.scheduler.stop()

	s.doWait(func() {
		s.phase.Store(int32(PhaseStopped))
		s.notifyStateChanged()
	})

	if err := s.deps.Repo.SetMeetingActive(ctx, s.id, false); err != nil {
		slog.Error("failed to mark meeting inactive", "error", err, "meeting_id", s.id)
	}
	s.sendNotesWebhook(ctx)
	slog.Info("recording stopped", "meeting_id", s.id, "utterances", len(s.StateSnapshot().Transcript))
	return true
}

// PushAudio hands one PCM chunk to the ingest bridge. Chunks received while
// not streaming are dropped.
func (s *Session) PushAudio(chunk []byte) {
	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()
	if bridge != nil {
		bridge.push(chunk)
	}
}

// UpdateTitle renames the meeting and notifies subscribers.
func (s *Session) UpdateTitle(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	s.doWait(func() {
		s.state.Title = title
		s.notifyStateChanged()
	})
}

// AddAgendaItem appends a new agenda entry and returns its generated ID.
func (s *Session) AddAgendaItem(text string) string {
	item := meeting.AgendaItem{ID: uuid.NewString(), Text: text}
	s.doWait(func() {
		s.state.Agenda = append(s.state.Agenda, item)
		s.notifyStateChanged()
	})
	return item.ID
}

// SetAgendaItemCompleted marks one agenda entry done or not done. Returns
// false when no entry has the given ID.
func (s *Session) SetAgendaItemCompleted(itemID string, completed bool) bool {
	found := false
	s.doWait(func() {
		for i := range s.state.Agenda {
			if s.state.Agenda[i].ID == itemID {
				s.state.Agenda[i].Completed = completed
				found = true
				break
			}
		}
		if found {
			s.notifyStateChanged()
		}
	})
	return found
}

// Subscribe sends the current state snapshot to sub and joins it to the
// broadcast set, reporting whether the join happened. Running on the run
// loop guarantees no state update can slip between the snapshot and the
// join. Returns false when the session has been closed (the caller holds an
// evicted instance and must fetch a fresh one) or when sub rejected its
// snapshot.
func (s *Session) Subscribe(sub Subscriber) bool {
	joined := false
	s.doWait(func() {
		snapshot := marshalEvent(stateEvent{Type: EventStateSync, Meeting: s.state})
		joined = s.broadcaster.Subscribe(sub, snapshot)
	})
	return joined
}

func (s *Session) Unsubscribe(sub Subscriber) {
	s.broadcaster.Remove(sub)
}

func (s *Session) SubscriberCount() int {
	return s.broadcaster.Count()
}

// StateSnapshot returns a copy of the current meeting state.
func (s *Session) StateSnapshot() meeting.State {
	var snapshot meeting.State
	s.doWait(func() {
		snapshot = *s.state
	})
	return snapshot
}

// StateEventJSON builds one subscriber event of the given type carrying the
// current state.
func (s *Session) StateEventJSON(eventType string) []byte {
	var data []byte
	s.doWait(func() {
		data = marshalEvent(stateEvent{Type: eventType, Meeting: s.state})
	})
	return data
}

// CanEvict reports whether the session holds no live recording and no
// subscribers, making it safe to drop from the registry.
func (s *Session) CanEvict() bool {
	switch s.Phase() {
	case PhaseStreaming, PhaseStopping:
		return false
	}
	return s.broadcaster.Count() == 0
}

// Close terminates the run loop. The caller must have stopped streaming
// first; thunks posted after Close are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

// processBatch is the scheduler callback: drain whatever utterances are
// pending, summarize them with the previous summary as context, and merge
// the result into the state. A degraded summarizer result consumes the
// batch without merging; those utterances remain in the full transcript and
// are never re-sent.
func (s *Session) processBatch(ctx context.Context) {
	batch := s.buffer.DrainBatch()
	if len(batch) == 0 {
		return
	}

	var previous string
	s.doWait(func() { previous = s.state.PreviousSummary })

	slog.Info("summarizing transcript batch", "meeting_id", s.id, "batch_size", len(batch))
	notes, degraded := s.deps.Summarizer.Summarize(ctx, batch, previous)
	if degraded {
		slog.Warn("summarizer degraded; batch consumed without merge", "meeting_id", s.id, "batch_size", len(batch))
		return
	}

	s.doWait(func() {
		merged := meeting.Merge(*s.state, notes)
		s.state = &merged
		s.notifyStateChanged()
	})
}

// notifyStateChanged persists the current state and broadcasts a
// state_update. Run-loop only. A store failure is logged and subscribers are
// still served from memory.
func (s *Session) notifyStateChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.deps.Repo.UpdateMeeting(ctx, repository.MeetingFromState(s.state)); err != nil {
		slog.Error("failed to persist meeting state", "error", err, "meeting_id", s.id)
	}
	s.broadcaster.Publish(marshalEvent(stateEvent{Type: EventStateUpdate, Meeting: s.state}))
}

func (s *Session) handleFinalResult(text, speaker string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	u := meeting.Utterance{Speaker: speaker, Text: text, Timestamp: time.Now()}
	s.do(func() {
		if Phase(s.phase.Load()) == PhaseStopped {
			return
		}
		s.state.AppendUtterance(u)
		s.buffer.Append(u)
		s.notifyStateChanged()
	})
}

func (s *Session) handleInterimResult(text, speaker string) {
	if text == "" {
		return
	}
	// Interims are ephemeral: straight to subscribers, never into state.
	s.broadcaster.Publish(marshalEvent(interimEvent{Type: EventInterim, Text: text, Speaker: speaker}))
}

// failSession is the bridge's escalation path for unrecoverable pipeline
// conditions. Subscribers are told before the session winds down.
func (s *Session) failSession(reason string) {
	slog.Error("session pipeline failure", "meeting_id", s.id, "reason", reason)
	s.broadcaster.Publish(marshalEvent(errorEvent{Type: EventError, Message: reason}))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.StopStreaming(ctx)
}

func (s *Session) sendNotesWebhook(ctx context.Context) {
	if s.deps.Webhook == nil {
		return
	}
	snapshot := s.StateSnapshot()
	if snapshot.Summary == "" && len(snapshot.Transcript) == 0 {
		return
	}
	if err := s.deps.Webhook.SendNotes(ctx, webhook.PayloadFromState(&snapshot)); err != nil {
		slog.Error("failed to deliver meeting notes webhook", "error", err, "meeting_id", s.id)
	}
}

// resultReceiver bridges recognition callbacks into the session. Interim
// results bypass the run loop; finals are marshaled onto it.
type resultReceiver struct {
	session *Session
}

func (r *resultReceiver) OnResult(text, speaker string, isFinal bool) {
	if isFinal {
		r.session.handleFinalResult(text, speaker)
		return
	}
	r.session.handleInterimResult(text, speaker)
}

func (r *resultReceiver) OnError(err error) {
	slog.Warn("transcription stream receive error", "error", err, "meeting_id", r.session.id)
	r.session.mu.Lock()
	bridge := r.session.bridge
	r.session.mu.Unlock()
	if bridge != nil {
		bridge.signalRestart()
	}
}
