package game

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Board is a game's renderable state. Equal reports whether two boards are
// identical for reconciliation purposes.
type Board[B any] interface {
	Equal(other B) bool
}

// Step kinds
const (
	StepCascade = "cascade"
	StepReveal  = "reveal"
	StepSpin    = "spin"
)

// Outcomes
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomePush = "push"
)

// Motion describes a target-seeking animation, e.g. a wheel spinning from
// one angle to another
type Motion struct {
	From     float64       `json:"from"`
	To       float64       `json:"to"`
	Duration time.Duration `json:"duration"`
}

// Step is one ordered sub-event of a round outcome
type Step[B any] struct {
	Index  int           `json:"index"`
	Kind   string        `json:"kind"`
	Marks  []int         `json:"marks,omitempty"`
	Result B             `json:"result"`
	Settle time.Duration `json:"settle,omitempty"`
	Motion *Motion       `json:"motion,omitempty"`
}

// Delta is the balance effect of a settlement. BalanceAfter is set when the
// server confirmed the absolute balance.
type Delta struct {
	Net          decimal.Decimal  `json:"net"`
	Payout       decimal.Decimal  `json:"payout"`
	BalanceAfter *decimal.Decimal `json:"balanceAfter,omitempty"`
	Outcome      string           `json:"outcome,omitempty"`
}

// Settlement is the authoritative outcome of a round
type Settlement[B any] struct {
	Final   B                  `json:"final"`
	Steps   []Step[B]          `json:"steps"`
	Delta   Delta              `json:"delta"`
	Free    bool               `json:"free"`
	Label   string             `json:"label,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Card is a playing card. Hidden cards have no rank or suit yet.
type Card struct {
	Rank   string `mapstructure:"rank" json:"rank,omitempty"`
	Suit   string `mapstructure:"suit" json:"suit,omitempty"`
	Hidden bool   `mapstructure:"hidden" json:"hidden,omitempty"`
}

func (c Card) String() string {
	if c.Hidden {
		return "??"
	}
	return c.Rank + c.Suit
}

// CardsEqual compares two card sequences element by element
func CardsEqual(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Config holds game configuration
type Config struct {
	GameCode     string        `mapstructure:"game_code" json:"gameCode"`
	GameName     string        `mapstructure:"game_name" json:"gameName"`
	Settle       time.Duration `mapstructure:"settle" json:"settle"`
	Pause        time.Duration `mapstructure:"pause" json:"pause"`
	SpinDuration time.Duration `mapstructure:"spin_duration" json:"spinDuration,omitempty"`
	MinTurns     int           `mapstructure:"min_turns" json:"minTurns,omitempty"`
	MaxTurns     int           `mapstructure:"max_turns" json:"maxTurns,omitempty"`
	Sectors      int           `mapstructure:"sectors" json:"sectors,omitempty"`
	Rows         int           `mapstructure:"rows" json:"rows,omitempty"`
	Cols         int           `mapstructure:"cols" json:"cols,omitempty"`
}

// ConfigNormalizer exposes normalized config for responses.
type ConfigNormalizer interface {
	Normalize() map[string]interface{}
}

// Normalize converts Config to a response-friendly map.
func (c *Config) Normalize() map[string]interface{} {
	out := map[string]interface{}{
		"gameCode": c.GameCode,
		"gameName": c.GameName,
		"settleMs": c.Settle.Milliseconds(),
		"pauseMs":  c.Pause.Milliseconds(),
	}
	if c.Sectors > 0 {
		out["sectors"] = c.Sectors
	}
	if c.Rows > 0 && c.Cols > 0 {
		out["rows"] = c.Rows
		out["cols"] = c.Cols
	}
	return out
}

// GetConfigFromNormalizer extracts *Config from a ConfigNormalizer.
func GetConfigFromNormalizer(normalizer ConfigNormalizer) (*Config, error) {
	cfg, ok := normalizer.(*Config)
	if !ok {
		return nil, fmt.Errorf("ConfigNormalizer is not *Config, got %T", normalizer)
	}
	return cfg, nil
}
