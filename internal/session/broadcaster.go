package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const subscriberSendTimeout = 5 * time.Second

// Subscriber is one output channel of a session, typically a websocket
// connection. Send must return a non-nil error when the subscriber is gone;
// the broadcaster then drops it silently.
type Subscriber interface {
	Send(ctx context.Context, data []byte) error
}

// Broadcaster fans session events out to every current subscriber.
// Publishing is sequential and best-effort: a failed send removes the
// subscriber, and a slow subscriber delays others by at most its own send
// timeout.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[Subscriber]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[Subscriber]struct{})}
}

// Subscribe delivers the snapshot to the new subscriber and then joins it to
// the broadcast set, reporting whether the join happened. The lock is held
// across the snapshot send so a publish racing with a subscribe cannot slip
// between snapshot and join: a late joiner sees every event after its
// snapshot.
func (b *Broadcaster) Subscribe(sub Subscriber, snapshot []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.send(sub, snapshot); err != nil {
		slog.Warn("subscriber rejected state snapshot; not joining", "error", err)
		return false
	}
	b.subs[sub] = struct{}{}
	return true
}

func (b *Broadcaster) Remove(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// Publish sends data to every current subscriber, pruning any whose send
// fails.
func (b *Broadcaster) Publish(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if err := b.send(sub, data); err != nil {
			slog.Info("dropping failed subscriber", "error", err)
			delete(b.subs, sub)
		}
	}
}

func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) send(sub Subscriber, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), subscriberSendTimeout)
	defer cancel()
	return sub.Send(ctx, data)
}
