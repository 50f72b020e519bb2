package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is a game-specific state object as it arrives on the wire.
// Game modules decode it into their own board types.
type Payload map[string]any

// Table holds the per-load table parameters for a game
type Table struct {
	GameCode      string            `json:"gameCode"`
	AllowedStakes []decimal.Decimal `json:"allowedStakes"`
	Balance       decimal.Decimal   `json:"balance"`
}

// StartResult is the remote service's answer to a session start
type StartResult struct {
	SessionID         string          `json:"sessionId"`
	InitialState      Payload         `json:"initialState"`
	BalanceAfterDebit decimal.Decimal `json:"balanceAfterDebit"`
}

// ActionResult is the remote service's answer to a player action.
// Settlement is set only when Terminal is true.
type ActionResult struct {
	Terminal   bool             `json:"terminal"`
	State      Payload          `json:"state,omitempty"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	Settlement *Settlement      `json:"settlement,omitempty"`
}

// Session statuses reported by GetSessionState
const (
	StatusActive  = "active"
	StatusSettled = "settled"
	StatusClosed  = "closed"
)

// SessionState is the server's current view of a session, used for recovery
type SessionState struct {
	SessionID  string           `json:"sessionId"`
	Status     string           `json:"status"`
	State      Payload          `json:"state,omitempty"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	Settlement *Settlement      `json:"settlement,omitempty"`
}

// ForfeitResult carries the partial refund granted for a forfeited session
type ForfeitResult struct {
	Refund       decimal.Decimal  `json:"refund"`
	BalanceAfter *decimal.Decimal `json:"balanceAfter,omitempty"`
}

// Settlement is the wire form of a round's authoritative outcome
type Settlement struct {
	Final   Payload            `json:"finalState"`
	Steps   []Step             `json:"steps"`
	Delta   Delta              `json:"delta"`
	Free    bool               `json:"free"`
	Label   string             `json:"label,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Step is one ordered sub-event of a settlement
type Step struct {
	Kind     string  `json:"kind"`
	Marks    []int   `json:"marks,omitempty"`
	State    Payload `json:"state"`
	SettleMs int64   `json:"settleMs,omitempty"`
}

// Delta is the balance effect of a settlement
type Delta struct {
	Net          decimal.Decimal  `json:"net"`
	Payout       decimal.Decimal  `json:"payout"`
	BalanceAfter *decimal.Decimal `json:"balanceAfter,omitempty"`
	Outcome      string           `json:"outcome,omitempty"`
}

// GameService is the remote, authoritative game service
type GameService interface {
	GetTable(ctx context.Context, gameCode string) (*Table, error)
	StartSession(ctx context.Context, gameCode string, stake decimal.Decimal, options map[string]any) (*StartResult, error)
	SubmitAction(ctx context.Context, sessionID, action string, params map[string]any) (*ActionResult, error)
	GetSessionState(ctx context.Context, sessionID string) (*SessionState, error)
	ForfeitSession(ctx context.Context, sessionID string) (*ForfeitResult, error)
	CancelSession(ctx context.Context, sessionID string) error
}

// Credentials supplies the bearer token for remote calls and receives the
// hand-off when the service reports the token invalid
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

// Store is a string key/value store for locally persisted state
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SettlementEvent describes one settled round for operators
type SettlementEvent struct {
	RecordID  string             `json:"recordId"`
	GameCode  string             `json:"gameCode"`
	SessionID string             `json:"sessionId"`
	Label     string             `json:"label,omitempty"`
	Outcome   string             `json:"outcome,omitempty"`
	Stake     decimal.Decimal    `json:"stake"`
	Payout    decimal.Decimal    `json:"payout"`
	Gain      decimal.Decimal    `json:"gain"`
	Free      bool               `json:"free"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Violation describes a replay whose last step disagreed with the final state
type Violation struct {
	GameCode  string    `json:"gameCode"`
	SessionID string    `json:"sessionId"`
	Steps     int       `json:"steps"`
	Expected  any       `json:"expected"`
	Got       any       `json:"got"`
	Timestamp time.Time `json:"timestamp"`
}

// Reporter publishes operator-facing events. Failures never affect play.
type Reporter interface {
	ReportSettlement(ctx context.Context, event *SettlementEvent) error
	ReportViolation(ctx context.Context, violation *Violation) error
}
