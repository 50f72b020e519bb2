package game

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// BaseModule provides a base implementation that game modules can embed
//
// Usage:
//
//	type Module struct {
//		game.BaseModule
//	}
//
//	func New(cfg *game.Config) *Module {
//		return &Module{BaseModule: *game.NewBaseModule("poker", cfg, "draw")}
//	}
type BaseModule struct {
	// GameCode is the unique identifier for this game
	GameCode string

	// Config holds the game configuration
	Config ConfigNormalizer

	actions []string
}

// NewBaseModule creates a new BaseModule
func NewBaseModule(gameCode string, cfg *Config, actions ...string) *BaseModule {
	if cfg == nil {
		cfg = &Config{GameCode: gameCode}
	}
	return &BaseModule{
		GameCode: gameCode,
		Config:   cfg,
		actions:  actions,
	}
}

// GetConfig returns the game configuration
func (b *BaseModule) GetConfig(ctx context.Context) (ConfigNormalizer, error) {
	if b.Config == nil {
		return nil, fmt.Errorf("config not set")
	}
	return b.Config, nil
}

// GetGameCode returns the unique identifier for this game
func (b *BaseModule) GetGameCode() string {
	return b.GameCode
}

// Actions lists the action names this game accepts
func (b *BaseModule) Actions() []string {
	return b.actions
}

// Allows reports whether action is one of the game's actions
func (b *BaseModule) Allows(action string) bool {
	return lo.Contains(b.actions, action)
}

// GameConfig returns the base *Config, or an empty one when a custom
// normalizer was installed
func (b *BaseModule) GameConfig() *Config {
	if cfg, err := GetConfigFromNormalizer(b.Config); err == nil {
		return cfg
	}
	return &Config{GameCode: b.GameCode}
}
