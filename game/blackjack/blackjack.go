// Package blackjack decodes blackjack tables: the player's hand against a
// dealer whose hole card is revealed card by card on settlement.
package blackjack

import (
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// GameCode identifies blackjack
const GameCode = "blackjack"

// Actions
const (
	ActionHit    = "hit"
	ActionStand  = "stand"
	ActionDouble = "double"
)

// Table is the blackjack board
type Table struct {
	Player      []game.Card `mapstructure:"player" json:"player"`
	Dealer      []game.Card `mapstructure:"dealer" json:"dealer"`
	PlayerTotal int         `mapstructure:"playerTotal" json:"playerTotal"`
	DealerTotal int         `mapstructure:"dealerTotal" json:"dealerTotal"`
}

func (t Table) Equal(o Table) bool {
	return t.PlayerTotal == o.PlayerTotal &&
		t.DealerTotal == o.DealerTotal &&
		game.CardsEqual(t.Player, o.Player) &&
		game.CardsEqual(t.Dealer, o.Dealer)
}

// Module is the blackjack game module
type Module struct {
	game.BaseModule
}

// New creates the blackjack module
func New(cfg *game.Config) *Module {
	return &Module{BaseModule: *game.NewBaseModule(GameCode, cfg, ActionHit, ActionStand, ActionDouble)}
}

func (m *Module) DecodeState(p providers.Payload) (Table, error) {
	var t Table
	err := game.Decode(p, &t)
	return t, err
}

// DecodeSettlement decodes the dealer's reveal sequence
func (m *Module) DecodeSettlement(raw *providers.Settlement) (*game.Settlement[Table], error) {
	s, err := game.DecodeSettlement(raw, m.DecodeState)
	if err != nil {
		return nil, err
	}
	s.Metrics["player_total"] = float64(s.Final.PlayerTotal)
	s.Metrics["dealer_total"] = float64(s.Final.DealerTotal)
	s.Metrics["dealer_cards"] = float64(len(s.Final.Dealer))
	return s, nil
}
