// Package roulette decodes wheel outcomes and turns the server's winning
// sector into a single target-seeking spin.
package roulette

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/replay"
)

// GameCode identifies roulette
const GameCode = "roulette"

// ActionSpin spins the wheel; params carry the bet selection
const ActionSpin = "spin"

const (
	defaultSectors  = 37
	defaultMinTurns = 4
	defaultMaxTurns = 6
	defaultDuration = 4 * time.Second
)

// Wheel is the roulette board. Angle is where the wheel rests and is not
// part of the outcome.
type Wheel struct {
	Sector int     `mapstructure:"sector" json:"sector"`
	Number int     `mapstructure:"number" json:"number"`
	Color  string  `mapstructure:"color" json:"color,omitempty"`
	Angle  float64 `mapstructure:"-" json:"angle"`
}

func (w Wheel) Equal(o Wheel) bool {
	return w.Sector == o.Sector && w.Number == o.Number && w.Color == o.Color
}

// Module is the roulette game module. It remembers where the last applied
// wheel came to rest so the next spin starts from there.
type Module struct {
	game.BaseModule

	sectors  int
	minTurns int
	maxTurns int
	duration time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	angle float64
}

// New creates the roulette module
func New(cfg *game.Config) *Module {
	return NewWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates the roulette module drawing extra turns from rng
func NewWithRand(cfg *game.Config, rng *rand.Rand) *Module {
	m := &Module{
		BaseModule: *game.NewBaseModule(GameCode, cfg, ActionSpin),
		sectors:    defaultSectors,
		minTurns:   defaultMinTurns,
		maxTurns:   defaultMaxTurns,
		duration:   defaultDuration,
		rng:        rng,
	}
	c := m.GameConfig()
	if c.Sectors > 0 {
		m.sectors = c.Sectors
	}
	if c.MinTurns > 0 {
		m.minTurns = c.MinTurns
	}
	if c.MaxTurns > 0 {
		m.maxTurns = c.MaxTurns
	}
	if m.maxTurns < m.minTurns {
		m.maxTurns = m.minTurns
	}
	if c.SpinDuration > 0 {
		m.duration = c.SpinDuration
	}
	return m
}

// Angle returns where the wheel currently rests, in [0, 360)
func (m *Module) Angle() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.angle
}

// Applied records where a rendered wheel rests. A spin that is decoded but
// never applied leaves the wheel where it was.
func (m *Module) Applied(w Wheel) {
	m.mu.Lock()
	m.angle = math.Mod(w.Angle, 360)
	m.mu.Unlock()
}

func (m *Module) DecodeState(p providers.Payload) (Wheel, error) {
	var w Wheel
	if err := game.Decode(p, &w); err != nil {
		return w, err
	}
	if w.Sector < 0 || w.Sector >= m.sectors {
		return w, errors.NewWithDebug(errors.ErrPayload, "sector out of range", "")
	}
	w.Angle = m.Angle()
	return w, nil
}

// DecodeSettlement replaces whatever steps the server sent with one spin
// step landing on the final sector
func (m *Module) DecodeSettlement(raw *providers.Settlement) (*game.Settlement[Wheel], error) {
	s, err := game.DecodeSettlement(raw, m.DecodeState)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	turns := m.minTurns
	if m.maxTurns > m.minTurns {
		turns += m.rng.Intn(m.maxTurns - m.minTurns + 1)
	}
	motion, err := replay.Spin(m.angle, m.sectors, s.Final.Sector, turns, m.duration)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	s.Final.Angle = motion.To
	s.Steps = []game.Step[Wheel]{{
		Index:  0,
		Kind:   game.StepSpin,
		Marks:  []int{s.Final.Sector},
		Result: s.Final,
		Motion: motion,
	}}
	s.Metrics["sector"] = float64(s.Final.Sector)
	s.Metrics["number"] = float64(s.Final.Number)
	s.Metrics["turns"] = float64(turns)
	return s, nil
}
