// Package poker decodes five-card draw hands
package poker

import (
	"slices"

	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// GameCode identifies poker
const GameCode = "poker"

// ActionDraw replaces every card not listed in the "hold" param
const ActionDraw = "draw"

// Hand is the poker board
type Hand struct {
	Cards []game.Card `mapstructure:"cards" json:"cards"`
	Held  []bool      `mapstructure:"held" json:"held,omitempty"`
	Rank  string      `mapstructure:"rank" json:"rank,omitempty"`
}

func (h Hand) Equal(o Hand) bool {
	return h.Rank == o.Rank &&
		game.CardsEqual(h.Cards, o.Cards) &&
		slices.Equal(h.Held, o.Held)
}

// Module is the poker game module
type Module struct {
	game.BaseModule
}

// New creates the poker module
func New(cfg *game.Config) *Module {
	return &Module{BaseModule: *game.NewBaseModule(GameCode, cfg, ActionDraw)}
}

func (m *Module) DecodeState(p providers.Payload) (Hand, error) {
	var h Hand
	err := game.Decode(p, &h)
	return h, err
}

// DecodeSettlement decodes the replaced-card reveals. The hand rank doubles
// as the round label when the server sends none.
func (m *Module) DecodeSettlement(raw *providers.Settlement) (*game.Settlement[Hand], error) {
	s, err := game.DecodeSettlement(raw, m.DecodeState)
	if err != nil {
		return nil, err
	}
	if s.Label == "" {
		s.Label = s.Final.Rank
	}
	s.Metrics["replaced"] = float64(len(s.Steps))
	return s, nil
}
