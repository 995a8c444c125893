package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type State string

const (
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// LoadEvent reports progress of a dataset load for one row limit.
type LoadEvent struct {
	MaxRows int       `json:"max_rows"`
	State   State     `json:"state"`
	Rows    int       `json:"rows,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

const subscriberBuffer = 100

// Broadcaster fans load events out to subscribers. It remembers the latest
// event per row limit and replays those to each new subscriber, so a page
// that connects mid-load still learns the current state.
type Broadcaster struct {
	subscribers map[uint64]chan LoadEvent
	latest      map[int]LoadEvent
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan LoadEvent),
		latest:      make(map[int]LoadEvent),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan LoadEvent) {
	id := b.nextID.Add(1)
	ch := make(chan LoadEvent, subscriberBuffer)

	b.mu.Lock()
	for _, ev := range b.latestLocked() {
		select {
		case ch <- ev:
		default:
		}
	}
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Latest returns the most recent event for each row limit, ordered by row limit.
func (b *Broadcaster) Latest() []LoadEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latestLocked()
}

func (b *Broadcaster) latestLocked() []LoadEvent {
	out := make([]LoadEvent, 0, len(b.latest))
	for _, ev := range b.latest {
		out = append(out, ev)
	}
	slices.SortFunc(out, func(a, b LoadEvent) int { return a.MaxRows - b.MaxRows })
	return out
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(ev LoadEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[ev.MaxRows] = ev

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, ending open event streams.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
