package trigger

import (
	"sync"
	"time"
)

// cooldownGate rate-limits wake-ups per (agent, channel) pair. A pair that
// fired within the window is silently skipped. Entries live in memory only;
// the map is rebuildable and never persisted.
type cooldownGate struct {
	window time.Duration

	mu       sync.Mutex
	lastFire map[cooldownKey]int64 // unix millis
}

type cooldownKey struct {
	agentID   string
	channelID string
}

func newCooldownGate(window time.Duration) *cooldownGate {
	return &cooldownGate{
		window:   window,
		lastFire: make(map[cooldownKey]int64),
	}
}

// allow reports whether the pair may fire now, recording the fire time when
// it may. Check and record are one atomic step so concurrent posts to the
// same pair cannot both pass the gate.
func (g *cooldownGate) allow(agentID, channelID string, now int64) bool {
	key := cooldownKey{agentID: agentID, channelID: channelID}

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.lastFire[key]; ok && now-last < g.window.Milliseconds() {
		return false
	}
	g.lastFire[key] = now
	return true
}

// prune evicts entries older than 2x the window.
func (g *cooldownGate) prune(now int64) {
	cutoff := now - 2*g.window.Milliseconds()

	g.mu.Lock()
	defer g.mu.Unlock()

	for key, last := range g.lastFire {
		if last < cutoff {
			delete(g.lastFire, key)
		}
	}
}

func (g *cooldownGate) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lastFire)
}
