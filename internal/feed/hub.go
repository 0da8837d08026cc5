package feed

import "sync"

// Hub fans forwarded events out to per-round subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[string]map[int]chan Event), buffer: buffer}
}

// Subscribe returns a channel of events for the tenant's round and a
// cancel func that closes it.
func (h *Hub) Subscribe(tenantID, roundID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := tenantID + "/" + roundID
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan Event)
	}
	h.subs[key][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			close(ch)
		})
	}
}

// Dispatch delivers evt to the round's subscribers. Slow subscribers
// miss events rather than block the feed.
func (h *Hub) Dispatch(evt Event) {
	if evt.RoundID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[evt.TenantID+"/"+evt.RoundID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
