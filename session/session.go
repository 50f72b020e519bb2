// Package session drives one game's wager lifecycle against the remote game
// service and hands terminal outcomes to the replay engine.
package session

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/stats"
)

// Phase is a session lifecycle state
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseStarting       Phase = "starting"
	PhaseActive         Phase = "active"
	PhaseAwaitingAction Phase = "awaiting_action"
	PhaseResolving      Phase = "resolving"
	PhaseSettled        Phase = "settled"
	PhaseFailed         Phase = "failed"
)

// Session is the client's view of one wager
type Session struct {
	ID               string          `json:"sessionId,omitempty"`
	GameCode         string          `json:"gameCode"`
	Stake            decimal.Decimal `json:"stake"`
	Phase            Phase           `json:"phase"`
	LastKnownBalance decimal.Decimal `json:"lastKnownBalance"`
}

// Outcome summarises the most recent settlement
type Outcome struct {
	Label     string          `json:"label,omitempty"`
	Result    string          `json:"outcome,omitempty"`
	Net       decimal.Decimal `json:"net"`
	Payout    decimal.Decimal `json:"payout"`
	Free      bool            `json:"free,omitempty"`
	Steps     int             `json:"steps"`
	Corrected bool            `json:"corrected,omitempty"`
}

// Snapshot is a copy of a machine's observable state
type Snapshot struct {
	Session
	AllowedStakes []decimal.Decimal `json:"allowedStakes"`
	Actions       []string          `json:"actions"`
	Board         any               `json:"board,omitempty"`
	Replaying     bool              `json:"replaying"`
	LastError     string            `json:"lastError,omitempty"`
	LastOutcome   *Outcome          `json:"lastOutcome,omitempty"`
}

// Controller is the game-agnostic view of a session machine
type Controller interface {
	GameCode() string
	Load(ctx context.Context) error
	Start(ctx context.Context, stake decimal.Decimal, options map[string]any) error
	Act(ctx context.Context, action string, params map[string]any) error
	Acknowledge() error
	Retry() error
	Forfeit(ctx context.Context) error
	Cancel(ctx context.Context) error
	Reconcile(ctx context.Context) error
	Abandon()
	WaitSettled(ctx context.Context) error
	Snapshot() Snapshot
	Ledger() *stats.Ledger
	Close() error
}

// ErrDiscarded is returned when a server response arrives after the session
// it belongs to was abandoned or failed
var ErrDiscarded = errors.New(errors.ErrInvalidTransition, "response discarded, session no longer current")

func invalidTransition(op string, from Phase) error {
	return errors.NewWithDebug(errors.ErrInvalidTransition, "cannot "+op+" while "+string(from), string(from))
}
