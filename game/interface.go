package game

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// Module defines the interface that all game implementations must satisfy.
// A module knows its game's board shape and how to read it off the wire; it
// never decides outcomes.
//
// Example implementation:
//
//	type Module struct {
//		game.BaseModule
//	}
//
//	func (m *Module) DecodeState(p providers.Payload) (Hand, error) {
//		var h Hand
//		err := game.Decode(p, &h)
//		return h, err
//	}
//
//	func (m *Module) DecodeSettlement(s *providers.Settlement) (*game.Settlement[Hand], error) {
//		return game.DecodeSettlement(s, m.DecodeState, nil)
//	}
type Module[B Board[B]] interface {
	// GetConfig returns the game configuration (must implement ConfigNormalizer)
	GetConfig(ctx context.Context) (ConfigNormalizer, error)

	// GetGameCode returns the unique identifier for this game
	GetGameCode() string

	// Actions lists the action names the remote service accepts for this game
	Actions() []string

	// DecodeState converts a wire payload into the game's board
	DecodeState(p providers.Payload) (B, error)

	// DecodeSettlement converts a terminal response into a typed settlement
	DecodeSettlement(s *providers.Settlement) (*Settlement[B], error)
}

// Observer is implemented by modules that track presentation state across
// rounds. Applied is called with every board that reaches the renderer.
type Observer[B any] interface {
	Applied(board B)
}

// Registry holds factories keyed by game code
type Registry[F any] struct {
	mu        sync.RWMutex
	factories map[string]F
}

// NewRegistry creates a new registry
func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{
		factories: make(map[string]F),
	}
}

// Register registers a factory for a game code
func (r *Registry[F]) Register(gameCode string, factory F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[gameCode] = factory
}

// Get returns the factory for a game code
func (r *Registry[F]) Get(gameCode string) (F, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[gameCode]
	return factory, ok
}

// GetAll returns all registered game codes, sorted
func (r *Registry[F]) GetAll() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := lo.Keys(r.factories)
	sort.Strings(codes)
	return codes
}
