package engine

import (
	"sync"

	"github.com/seantiz/batchgate/internal/model"
)

// subscriberBufferSize is the channel buffer for each outcome subscriber.
// Outcomes are dropped if a subscriber falls this far behind; the full list
// stays available from the store.
const subscriberBufferSize = 64

// Broker fans out outcomes of running batches to live subscribers.
// It is safe for concurrent use.
//
// Finished batches are retained as closed markers so a subscriber arriving
// after the run gets a closed channel instead of waiting forever.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs   map[int]chan model.Outcome
	nextID int
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
	}
}

// Subscribe returns a channel of outcomes for batchID and an unsubscribe
// function. The channel is closed when the batch finishes.
func (b *Broker) Subscribe(batchID string) (<-chan model.Outcome, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[batchID]
	if !ok {
		t = &topic{subs: make(map[int]chan model.Outcome)}
		b.topics[batchID] = t
	}

	ch := make(chan model.Outcome, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish delivers o to every subscriber of batchID without blocking.
func (b *Broker) Publish(batchID string, o model.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[batchID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- o:
		default:
		}
	}
}

// Close marks batchID finished and closes every subscriber channel.
func (b *Broker) Close(batchID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[batchID]
	if !ok {
		b.topics[batchID] = &topic{subs: make(map[int]chan model.Outcome), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
