package breaker

import (
	"sync"

	"github.com/rs/zerolog"
)

// Group lazily creates and owns one breaker per tool. The map lock guards
// lookup only; each breaker synchronizes itself.
type Group struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      Config
	logger   zerolog.Logger
}

// NewGroup creates an empty group sharing one configuration
func NewGroup(cfg Config, logger zerolog.Logger) *Group {
	return &Group{
		breakers: make(map[string]*Breaker),
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Get returns the breaker for a tool, creating it on first use
func (g *Group) Get(tool string) *Breaker {
	g.mu.RLock()
	b, ok := g.breakers[tool]
	g.mu.RUnlock()
	if ok {
		return b
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok = g.breakers[tool]; ok {
		return b
	}
	b = New(tool, g.cfg, g.logger)
	g.breakers[tool] = b
	return b
}

// Health returns a snapshot of every breaker in the group
func (g *Group) Health() map[string]Health {
	g.mu.RLock()
	defer g.mu.RUnlock()

	health := make(map[string]Health, len(g.breakers))
	for tool, b := range g.breakers {
		health[tool] = b.Health()
	}
	return health
}
