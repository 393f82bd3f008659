package engine

import (
	"sync"

	"github.com/roach88/querystate/internal/ir"
)

// broadcaster fans published states out to subscribers.
//
// Each subscriber channel holds at most one state. A slow subscriber skips
// intermediate states and always observes the latest one; a new subscriber
// receives the latest state immediately.
type broadcaster struct {
	mu     sync.Mutex
	latest ir.State
	has    bool
	subs   map[int]chan ir.State
	nextID int
	closed bool
	done   chan struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[int]chan ir.State),
		done: make(chan struct{}),
	}
}

// subscribe registers a new subscriber. The returned channel is closed
// by unsubscribe or close.
func (b *broadcaster) subscribe() (int, <-chan ir.State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ir.State, 1)
	if b.closed {
		close(ch)
		return -1, ch
	}
	if b.has {
		ch <- b.latest
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return id, ch
}

func (b *broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *broadcaster) publish(s ir.State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest, b.has = s, true
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
			// Replace the unread state. Only publish sends, under b.mu,
			// so the second send cannot block.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	close(b.done)
}
