package resilience

import (
	"sync"
	"time"
)

// DefaultIdleTTL is how long a key may go unused before its breaker is dropped.
const DefaultIdleTTL = 10 * time.Minute

type member struct {
	breaker  *Breaker
	lastUsed time.Time
}

// Group hands out one breaker per key, created on first use with shared
// settings. A failing key never affects the others. Keys unused for the
// idle TTL are forgotten.
type Group struct {
	settings Settings
	idleTTL  time.Duration
	onEvict  func(key string)
	now      func() time.Time

	mu        sync.Mutex
	members   map[string]*member
	lastSweep time.Time
}

// NewGroup creates an empty group
func NewGroup(settings Settings) *Group {
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	return &Group{
		settings:  settings,
		idleTTL:   DefaultIdleTTL,
		now:       now,
		members:   make(map[string]*member),
		lastSweep: now(),
	}
}

// WithIdleTTL sets how long an unused key is kept. Non-positive values keep
// the default.
func (g *Group) WithIdleTTL(ttl time.Duration) *Group {
	if ttl > 0 {
		g.idleTTL = ttl
	}
	return g
}

// OnEvict registers fn to run, outside the group lock, for each dropped key.
func (g *Group) OnEvict(fn func(key string)) *Group {
	g.onEvict = fn
	return g
}

// Get returns the breaker for key, creating it if needed
func (g *Group) Get(key string) *Breaker {
	g.mu.Lock()
	now := g.now()
	var evicted []string
	if now.Sub(g.lastSweep) >= g.idleTTL {
		evicted = g.sweep(now)
	}

	m, ok := g.members[key]
	if !ok {
		m = &member{breaker: New(key, g.settings)}
		g.members[key] = m
	}
	m.lastUsed = now
	g.mu.Unlock()

	if g.onEvict != nil {
		for _, k := range evicted {
			if k != key {
				g.onEvict(k)
			}
		}
	}
	return m.breaker
}

func (g *Group) sweep(now time.Time) []string {
	var evicted []string
	for key, m := range g.members {
		if now.Sub(m.lastUsed) >= g.idleTTL {
			delete(g.members, key)
			evicted = append(evicted, key)
		}
	}
	g.lastSweep = now
	return evicted
}

// States reports the current state of every known breaker
func (g *Group) States() map[string]State {
	g.mu.Lock()
	breakers := make([]*Breaker, 0, len(g.members))
	for _, m := range g.members {
		breakers = append(breakers, m.breaker)
	}
	g.mu.Unlock()

	states := make(map[string]State, len(breakers))
	for _, b := range breakers {
		states[b.Name()] = b.State()
	}
	return states
}

// Len returns the number of tracked keys
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}
