package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/gijirokun/internal/transcriber"
)

const (
	audioQueueCapacity = 256
	overflowEscalation = 3 * time.Second
	bridgeJoinTimeout  = 5 * time.Second
	initialRetryDelay  = 500 * time.Millisecond
	maxRetryDelay      = 8 * time.Second
)

// ingestBridge owns the blocking streaming-recognition call for one
// recording. It runs on a dedicated goroutine fed by a bounded audio queue;
// a nil chunk is the end sentinel. Session-ceiling rotations happen inside
// the stream writer and are invisible here; any other stream error tears the
// call down and the bridge reopens it with bounded backoff for as long as
// the session stays in the streaming phase.
type ingestBridge struct {
	meetingID string
	stt       transcriber.Transcriber
	receiver  transcriber.ResultReceiver
	streaming func() bool
	onFatal   func(reason string)

	audio   chan []byte
	restart chan struct{}
	stopped chan struct{}

	mu         sync.Mutex
	accepting  bool
	firstDrop  time.Time
	fatalFired bool
}

func newIngestBridge(meetingID string, stt transcriber.Transcriber, receiver transcriber.ResultReceiver, streaming func() bool, onFatal func(reason string)) *ingestBridge {
	return &ingestBridge{
		meetingID: meetingID,
		stt:       stt,
		receiver:  receiver,
		streaming: streaming,
		onFatal:   onFatal,
		audio:     make(chan []byte, audioQueueCapacity),
		restart:   make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
}

func (b *ingestBridge) start(ctx context.Context) {
	b.mu.Lock()
	b.accepting = true
	b.mu.Unlock()
	go b.run(ctx)
}

// push enqueues one audio chunk without blocking the caller. When the queue
// is full the chunk is dropped; sustained drops escalate to a fatal session
// error exactly once.
func (b *ingestBridge) push(chunk []byte) {
	if len(chunk) == 0 || !b.isAccepting() {
		return
	}
	select {
	case b.audio <- chunk:
		b.mu.Lock()
		b.firstDrop = time.Time{}
		b.mu.Unlock()
	default:
		b.noteOverflow()
	}
}

func (b *ingestBridge) noteOverflow() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	if b.firstDrop.IsZero() {
		b.firstDrop = now
		slog.Warn("audio queue full; dropping chunk", "meeting_id", b.meetingID)
		return
	}
	if now.Sub(b.firstDrop) >= overflowEscalation && !b.fatalFired {
		b.fatalFired = true
		go b.onFatal("audio arriving faster than the transcription stream can accept it")
	}
}

// signalRestart asks the pump to rotate the current stream. Used when the
// receive side of the stream dies while writes still succeed.
func (b *ingestBridge) signalRestart() {
	select {
	case b.restart <- struct{}{}:
	default:
	}
}

// stop closes the intake, sentinels the queue and joins the worker with a
// bounded timeout. Exceeding the timeout is logged but never blocks the
// caller.
func (b *ingestBridge) stop() {
	b.mu.Lock()
	if !b.accepting {
		b.mu.Unlock()
		<-b.stopped
		return
	}
	b.accepting = false
	b.mu.Unlock()

	select {
	case b.audio <- nil:
	case <-b.stopped:
		return
	case <-time.After(bridgeJoinTimeout):
		slog.Warn("audio queue refused end sentinel", "meeting_id", b.meetingID)
	}

	select {
	case <-b.stopped:
	case <-time.After(bridgeJoinTimeout):
		slog.Warn("ingest bridge did not exit within join timeout", "meeting_id", b.meetingID)
	}
}

func (b *ingestBridge) isAccepting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepting
}

func (b *ingestBridge) run(ctx context.Context) {
	defer close(b.stopped)
	delay := initialRetryDelay
	for {
		if ctx.Err() != nil || !b.streaming() {
			return
		}
		writer, err := b.stt.StartStreaming(ctx, b.meetingID, b.receiver)
		if err != nil {
			slog.Error("failed to open transcription stream; retrying", "error", err, "meeting_id", b.meetingID, "retry_in", delay)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = min(delay*2, maxRetryDelay)
			continue
		}
		delay = initialRetryDelay
		if done := b.pump(ctx, writer); done {
			return
		}
		// Pump ended on a stream error: reopen with the same queue. Chunks
		// that arrived meanwhile are still buffered, not dropped.
	}
}

// pump feeds queued audio into the stream until the end sentinel arrives
// (returns true) or the stream fails and needs reopening (returns false).
func (b *ingestBridge) pump(ctx context.Context, writer transcriber.StreamWriter) bool {
	for {
		select {
		case <-ctx.Done():
			_ = writer.Close()
			return true
		case <-b.restart:
			slog.Warn("transcription stream restart requested", "meeting_id", b.meetingID)
			_ = writer.Close()
			return false
		case chunk := <-b.audio:
			if chunk == nil {
				_ = writer.Close()
				return true
			}
			if err := writer.Write(chunk); err != nil {
				slog.Error("transcription stream write failed", "error", err, "meeting_id", b.meetingID)
				_ = writer.Close()
				return false
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
