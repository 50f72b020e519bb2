// Package cascadas decodes cascading-match boards. Each settlement step is
// one cascade level: matched cells are cleared, symbols fall and refill.
package cascadas

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// GameCode identifies cascadas
const GameCode = "cascadas"

// ActionSpin drops a new board
const ActionSpin = "spin"

// Matrix is the cascadas board, cells stored row-major
type Matrix struct {
	Rows  int   `mapstructure:"rows" json:"rows"`
	Cols  int   `mapstructure:"cols" json:"cols"`
	Cells []int `mapstructure:"cells" json:"cells"`
}

func (m Matrix) Equal(o Matrix) bool {
	return m.Rows == o.Rows && m.Cols == o.Cols && slices.Equal(m.Cells, o.Cells)
}

// At returns the symbol at row r, column c
func (m Matrix) At(r, c int) int {
	return m.Cells[r*m.Cols+c]
}

func (m Matrix) String() string {
	var b strings.Builder
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%2d", m.At(r, c))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Module is the cascadas game module
type Module struct {
	game.BaseModule
}

// New creates the cascadas module
func New(cfg *game.Config) *Module {
	return &Module{BaseModule: *game.NewBaseModule(GameCode, cfg, ActionSpin)}
}

func (m *Module) DecodeState(p providers.Payload) (Matrix, error) {
	var mx Matrix
	if err := game.Decode(p, &mx); err != nil {
		return mx, err
	}
	if len(mx.Cells) != mx.Rows*mx.Cols {
		return mx, errors.NewWithDebug(errors.ErrPayload, "matrix size mismatch",
			fmt.Sprintf("%dx%d with %d cells", mx.Rows, mx.Cols, len(mx.Cells)))
	}
	return mx, nil
}

// DecodeSettlement decodes the cascade levels. Marks outside the board are
// rejected since they cannot be highlighted.
func (m *Module) DecodeSettlement(raw *providers.Settlement) (*game.Settlement[Matrix], error) {
	s, err := game.DecodeSettlement(raw, m.DecodeState)
	if err != nil {
		return nil, err
	}
	cleared := 0
	for _, step := range s.Steps {
		for _, cell := range step.Marks {
			if cell < 0 || cell >= len(step.Result.Cells) {
				return nil, errors.NewWithDebug(errors.ErrPayload, "cascade mark outside board", fmt.Sprint(cell))
			}
		}
		cleared += len(step.Marks)
	}
	s.Metrics["cascade_depth"] = float64(len(s.Steps))
	s.Metrics["cleared"] = float64(cleared)
	return s, nil
}
