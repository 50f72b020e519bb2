// Package minas decodes mine-field boards. Mines stay hidden while the
// session is open and are revealed one by one on settlement.
package minas

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// GameCode identifies minas
const GameCode = "minas"

// Actions
const (
	ActionReveal  = "reveal"
	ActionCashout = "cashout"
)

// Grid is the minas board. Cells are numbered row-major.
type Grid struct {
	Size       int             `mapstructure:"size" json:"size"`
	Mines      int             `mapstructure:"mines" json:"mines"`
	Revealed   []int           `mapstructure:"revealed" json:"revealed"`
	MineCells  []int           `mapstructure:"mineCells" json:"mineCells,omitempty"`
	Exploded   *int            `mapstructure:"exploded" json:"exploded,omitempty"`
	Multiplier decimal.Decimal `mapstructure:"multiplier" json:"multiplier"`
}

func (g Grid) Equal(o Grid) bool {
	if (g.Exploded == nil) != (o.Exploded == nil) {
		return false
	}
	if g.Exploded != nil && *g.Exploded != *o.Exploded {
		return false
	}
	return g.Size == o.Size &&
		g.Mines == o.Mines &&
		slices.Equal(g.Revealed, o.Revealed) &&
		slices.Equal(g.MineCells, o.MineCells) &&
		g.Multiplier.Equal(o.Multiplier)
}

// Safe reports whether cell has been revealed as safe
func (g Grid) Safe(cell int) bool {
	return slices.Contains(g.Revealed, cell)
}

// Module is the minas game module
type Module struct {
	game.BaseModule
}

// New creates the minas module
func New(cfg *game.Config) *Module {
	return &Module{BaseModule: *game.NewBaseModule(GameCode, cfg, ActionReveal, ActionCashout)}
}

func (m *Module) DecodeState(p providers.Payload) (Grid, error) {
	var g Grid
	err := game.Decode(p, &g)
	return g, err
}

func (m *Module) DecodeSettlement(raw *providers.Settlement) (*game.Settlement[Grid], error) {
	s, err := game.DecodeSettlement(raw, m.DecodeState)
	if err != nil {
		return nil, err
	}
	s.Metrics["revealed"] = float64(len(s.Final.Revealed))
	s.Metrics["multiplier"] = s.Final.Multiplier.InexactFloat64()
	if s.Final.Exploded != nil {
		s.Metrics["exploded"] = 1
	}
	return s, nil
}
