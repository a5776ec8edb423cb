package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Presence tracks which users are live on a channel (for example a draft
// room). Entries are ephemeral: nothing is persisted, and a user whose
// heartbeat is older than the TTL counts as offline.
type Presence struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	channels map[string]map[uuid.UUID]time.Time
}

const DefaultPresenceTTL = 30 * time.Second

func NewPresence(ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Presence{
		ttl:      ttl,
		now:      time.Now,
		channels: make(map[string]map[uuid.UUID]time.Time),
	}
}

// Heartbeat marks the user live on the channel. Joining is just the first
// heartbeat.
func (p *Presence) Heartbeat(channel string, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channels[channel] == nil {
		p.channels[channel] = make(map[uuid.UUID]time.Time)
	}
	p.channels[channel][userID] = p.now()
}

// Leave removes the user immediately instead of waiting for the TTL.
func (p *Presence) Leave(channel string, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if set, ok := p.channels[channel]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(p.channels, channel)
		}
	}
}

// Online returns the users whose heartbeat is within the TTL.
func (p *Presence) Online(channel string) []uuid.UUID {
	cutoff := p.now().Add(-p.ttl)

	p.mu.RLock()
	defer p.mu.RUnlock()
	var online []uuid.UUID
	for id, seen := range p.channels[channel] {
		if seen.After(cutoff) {
			online = append(online, id)
		}
	}
	return online
}

// AllOnline reports whether every given user is live on the channel.
func (p *Presence) AllOnline(channel string, userIDs []uuid.UUID) bool {
	online := make(map[uuid.UUID]bool)
	for _, id := range p.Online(channel) {
		online[id] = true
	}
	for _, id := range userIDs {
		if !online[id] {
			return false
		}
	}
	return true
}

// DraftChannel is the presence channel key for a tournament's draft room.
func DraftChannel(tournamentID uuid.UUID) string {
	return "draft:" + tournamentID.String()
}
