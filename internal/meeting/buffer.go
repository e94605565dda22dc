package meeting

import "sync"

// Buffer accumulates finalized utterances between processing ticks.
// Append and DrainBatch are safe for concurrent use: an utterance appended
// while a drain is in progress lands in the next batch, and no utterance
// ever appears in two drained batches.
type Buffer struct {
	mu      sync.Mutex
	pending []Utterance
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Append(u Utterance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, u)
}

// DrainBatch atomically takes the current pending batch and resets it.
func (b *Buffer) DrainBatch() []Utterance {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.pending
	b.pending = nil
	return batch
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
