package session

import (
	"sync"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
)

// Snapshot is what listeners of a session key receive on every change.
type Snapshot struct {
	State    State            `json:"state"`
	Identity *access.Identity `json:"identity,omitempty"`
}

// Hub fans session snapshots out to subscribers keyed by session id. A new
// subscriber receives the latest snapshot immediately. Slow subscribers only
// ever see the newest snapshot. A key's latest snapshot is kept only while
// the key has subscribers.
type Hub struct {
	mu     sync.Mutex
	next   uint64
	subs   map[string]map[uint64]chan Snapshot
	latest map[string]Snapshot
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[uint64]chan Snapshot{}, latest: map[string]Snapshot{}}
}

// Latest returns the last snapshot published for key, or an anonymous one.
func (h *Hub) Latest(key string) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latestLocked(key)
}

func (h *Hub) latestLocked(key string) Snapshot {
	if s, ok := h.latest[key]; ok {
		return s
	}
	return Snapshot{State: Anonymous}
}

func (h *Hub) Publish(key string, s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs[key]) == 0 {
		return
	}
	h.latest[key] = s
	for _, ch := range h.subs[key] {
		offer(ch, s)
	}
}

// Subscribe returns a channel of snapshots for key and a func that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe(key string) (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	n := h.next
	ch := make(chan Snapshot, 1)
	ch <- h.latestLocked(key)
	if h.subs[key] == nil {
		h.subs[key] = map[uint64]chan Snapshot{}
	}
	h.subs[key][n] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], n)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
				delete(h.latest, key)
			}
			close(ch)
		})
	}
}

// Subscribers reports how many listeners key has.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// offer replaces any undelivered snapshot with s. Callers hold h.mu, so
// after draining the slot the send cannot block.
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- s
}
