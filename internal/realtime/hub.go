package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Event is a change notification fanned out to subscribers of a
// tournament's topic. It mirrors what a hosted change feed would push:
// which table changed, how, and the row payload.
type Event struct {
	Table        string    `json:"table"`
	Action       string    `json:"action"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Payload      any       `json:"payload,omitempty"`
}

const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// subscriber buffer; a subscriber that falls this far behind misses events
// and is expected to re-fetch state, the same contract a remote change
// feed gives reconnecting clients.
const subscriberBuffer = 32

// Hub is an in-process publish/subscribe fan-out keyed by tournament id.
// Publishing never blocks.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for one tournament and a cancel
// function that must be called when the subscriber goes away.
func (h *Hub) Subscribe(tournamentID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[tournamentID] == nil {
		h.subs[tournamentID] = make(map[chan Event]struct{})
	}
	h.subs[tournamentID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[tournamentID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, tournamentID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every live subscriber of its tournament.
// Full subscriber buffers are skipped.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[e.TournamentID] {
		select {
		case ch <- e:
		default:
		}
	}
}
