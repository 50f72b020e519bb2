// Package guard holds the pure pre-flight checks run before a wager is sent.
package guard

import (
	"sync"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
)

// Validate checks a proposed stake against the server-supplied allowed set
// and the last known balance. A nil result means the stake may be sent.
func Validate(stake decimal.Decimal, allowed []decimal.Decimal, balance decimal.Decimal) error {
	if err := Positive(stake); err != nil {
		return err
	}
	if !lo.ContainsBy(allowed, stake.Equal) {
		return errors.NewWithReason(errors.ErrValidation, errors.ReasonStakeNotAllowed,
			"stake "+stake.String()+" is not offered at this table")
	}
	if stake.GreaterThan(balance) {
		return errors.NewWithReason(errors.ErrValidation, errors.ReasonInsufficientBalance,
			"stake "+stake.String()+" exceeds balance "+balance.String())
	}
	return nil
}

// Positive rejects zero and negative stakes
func Positive(stake decimal.Decimal) error {
	if !stake.IsPositive() {
		return errors.NewWithReason(errors.ErrValidation, errors.ReasonStakeNotAllowed, "stake must be positive")
	}
	return nil
}

// RequireIdle rejects a start while another session is open
func RequireIdle(idle bool) error {
	if !idle {
		return errors.NewWithReason(errors.ErrValidation, errors.ReasonSessionActive, "a session is already in progress")
	}
	return nil
}

// Stakes is the allowed-stake set of a table, refreshed once per load
type Stakes struct {
	mu      sync.RWMutex
	allowed []decimal.Decimal
}

// Set replaces the allowed set
func (s *Stakes) Set(allowed []decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed = lo.UniqBy(allowed, func(d decimal.Decimal) string { return d.String() })
}

// List returns a copy of the allowed set
func (s *Stakes) List() []decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]decimal.Decimal(nil), s.allowed...)
}

// Validate runs Validate against the current set
func (s *Stakes) Validate(stake, balance decimal.Decimal) error {
	return Validate(stake, s.List(), balance)
}
