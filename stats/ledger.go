// Package stats keeps per-game round statistics: a resettable visible
// aggregate, a monotonic permanent aggregate and a short recent history.
package stats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// HistoryLimit is the number of records kept in the recent history
const HistoryLimit = 10

// Record is one settled round
type Record struct {
	ID        string             `json:"id" yaml:"id"`
	GameCode  string             `json:"gameCode" yaml:"game_code"`
	SessionID string             `json:"sessionId,omitempty" yaml:"session_id,omitempty"`
	Label     string             `json:"label,omitempty" yaml:"label,omitempty"`
	Outcome   string             `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Stake     decimal.Decimal    `json:"stake" yaml:"stake"`
	Payout    decimal.Decimal    `json:"payout" yaml:"payout"`
	Gain      decimal.Decimal    `json:"gain" yaml:"gain"`
	Free      bool               `json:"free,omitempty" yaml:"free,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	At        time.Time          `json:"at" yaml:"at"`
}

// Totals is one aggregate of settled rounds
type Totals struct {
	Rounds   int64           `json:"rounds" yaml:"rounds"`
	Wins     int64           `json:"wins" yaml:"wins"`
	Wagered  decimal.Decimal `json:"wagered" yaml:"wagered"`
	Won      decimal.Decimal `json:"won" yaml:"won"`
	BestGain decimal.Decimal `json:"bestGain" yaml:"best_gain"`
}

// Add folds a record into the totals. Free rounds only count as a round.
func (t Totals) Add(r Record) Totals {
	t.Rounds++
	if r.Free {
		return t
	}
	t.Wagered = t.Wagered.Add(r.Stake)
	t.Won = t.Won.Add(r.Payout)
	if r.Gain.IsPositive() {
		t.Wins++
		if r.Gain.GreaterThan(t.BestGain) {
			t.BestGain = r.Gain
		}
	}
	return t
}

// Equal compares two aggregates by value
func (t Totals) Equal(o Totals) bool {
	return t.Rounds == o.Rounds &&
		t.Wins == o.Wins &&
		t.Wagered.Equal(o.Wagered) &&
		t.Won.Equal(o.Won) &&
		t.BestGain.Equal(o.BestGain)
}

// Snapshot is a copy of a ledger's state
type Snapshot struct {
	GameCode  string   `json:"gameCode" yaml:"game_code"`
	Visible   Totals   `json:"visible" yaml:"visible"`
	Permanent Totals   `json:"permanent" yaml:"permanent"`
	History   []Record `json:"history" yaml:"history"`
}

// Ledger owns a game's statistics. Persistence is best-effort and happens in
// the background; the in-memory state is always updated first.
type Ledger struct {
	gameCode string
	store    providers.Store
	logger   zerolog.Logger

	mu        sync.Mutex
	visible   Totals
	permanent Totals
	history   []Record

	dirty     chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLedger creates a ledger for gameCode. A nil store keeps stats in memory only.
func NewLedger(gameCode string, store providers.Store, logger zerolog.Logger) *Ledger {
	l := &Ledger{
		gameCode: gameCode,
		store:    store,
		logger:   logger.With().Str("component", "stats").Str("game_code", gameCode).Logger(),
		dirty:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if store != nil {
		go l.flusher()
	} else {
		close(l.done)
	}
	return l
}

// HistoryKey is the store key of a game's recent history
func HistoryKey(gameCode string) string { return "stats:" + gameCode + ":history" }

// PermanentKey is the store key of a game's permanent totals
func PermanentKey(gameCode string) string { return "stats:" + gameCode + ":permanent" }

// Load restores permanent totals and history from the store
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	var permanent Totals
	var history []Record
	if err := l.read(ctx, PermanentKey(l.gameCode), &permanent); err != nil {
		return err
	}
	if err := l.read(ctx, HistoryKey(l.gameCode), &history); err != nil {
		return err
	}
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}

	l.mu.Lock()
	l.permanent = permanent
	l.history = history
	l.mu.Unlock()
	return nil
}

func (l *Ledger) read(ctx context.Context, key string, out interface{}) error {
	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to read "+key)
	}
	if !found || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "corrupt stats entry "+key)
	}
	return nil
}

// Record folds a settled round into both aggregates and the history. Missing
// ID and timestamp are filled in; the stored record is returned.
func (l *Ledger) Record(r Record) Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	if r.GameCode == "" {
		r.GameCode = l.gameCode
	}
	if r.Free {
		r.Stake = decimal.Zero
		r.Gain = decimal.Zero
	}

	l.mu.Lock()
	l.permanent = l.permanent.Add(r)
	l.visible = l.visible.Add(r)
	l.history = append([]Record{r}, l.history...)
	if len(l.history) > HistoryLimit {
		l.history = l.history[:HistoryLimit]
	}
	l.mu.Unlock()

	l.markDirty()
	return r
}

// ResetVisible makes the visible aggregate mirror the permanent one and
// clears the recent history
func (l *Ledger) ResetVisible() {
	l.mu.Lock()
	l.visible = l.permanent
	l.history = nil
	l.mu.Unlock()
	l.markDirty()
}

// ResetAll zeroes both aggregates and clears the history
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	l.visible = Totals{}
	l.permanent = Totals{}
	l.history = nil
	l.mu.Unlock()
	l.markDirty()
}

// Visible returns the visible aggregate
func (l *Ledger) Visible() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// Permanent returns the permanent aggregate
func (l *Ledger) Permanent() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.permanent
}

// History returns the recent history, newest first
func (l *Ledger) History() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.history...)
}

// Snapshot returns a copy of the full ledger state
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		GameCode:  l.gameCode,
		Visible:   l.visible,
		Permanent: l.permanent,
		History:   append([]Record(nil), l.history...),
	}
}

// Close flushes pending state and stops the background writer
func (l *Ledger) Close() error {
	l.closeOnce.Do(func() {
		if l.store != nil {
			close(l.stop)
		}
	})
	<-l.done
	return nil
}

func (l *Ledger) markDirty() {
	if l.store == nil {
		return
	}
	select {
	case l.dirty <- struct{}{}:
	default:
	}
}

// flusher coalesces writes: any number of updates between two writes
// produce a single write of the latest state
func (l *Ledger) flusher() {
	defer close(l.done)
	for {
		select {
		case <-l.dirty:
			l.flush()
		case <-l.stop:
			select {
			case <-l.dirty:
				l.flush()
			default:
			}
			return
		}
	}
}

func (l *Ledger) flush() {
	snap := l.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.write(ctx, PermanentKey(l.gameCode), snap.Permanent); err != nil {
		l.logger.Error().Err(err).Msg("Failed to persist permanent stats")
	}
	if len(snap.History) == 0 {
		if err := l.store.Remove(ctx, HistoryKey(l.gameCode)); err != nil {
			l.logger.Error().Err(err).Msg("Failed to clear stats history")
		}
		return
	}
	if err := l.write(ctx, HistoryKey(l.gameCode), snap.History); err != nil {
		l.logger.Error().Err(err).Msg("Failed to persist stats history")
	}
}

func (l *Ledger) write(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to encode "+key)
	}
	if err := l.store.Set(ctx, key, string(data)); err != nil {
		return errors.Wrap(err, errors.ErrStorage, "failed to write "+key)
	}
	return nil
}
