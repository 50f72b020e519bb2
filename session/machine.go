package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/guard"
	"github.com/Digital-Creators-Team/arcade-client/logging"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/replay"
	"github.com/Digital-Creators-Team/arcade-client/stats"
)

// Deps holds a machine's collaborators
type Deps[B game.Board[B]] struct {
	Module      game.Module[B]
	Service     providers.GameService
	Credentials providers.Credentials
	Renderer    replay.Renderer[B]
	Ledger      *stats.Ledger
	Reporter    providers.Reporter
	Replay      replay.Config
	Logger      zerolog.Logger
	// CallTimeout bounds each game service call. Calls are detached from
	// the caller's context so a dropped caller never aborts a wager in flight.
	CallTimeout time.Duration
}

// Machine is the session state machine for one game. Every state change is
// driven by a server response or a local validation; network calls are made
// without holding the lock and their results are dropped when the session
// has moved on in the meantime.
type Machine[B game.Board[B]] struct {
	module   game.Module[B]
	service  providers.GameService
	creds    providers.Credentials
	ledger   *stats.Ledger
	reporter providers.Reporter
	engine   *replay.Engine[B]
	view     *view[B]
	logger   zerolog.Logger
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session Session
	stakes  guard.Stakes
	epoch   uint64
	lastErr error
	outcome *Outcome
	running *replay.Replay[B]
	settled chan struct{}
}

// New creates an idle machine
func New[B game.Board[B]](deps Deps[B]) *Machine[B] {
	code := deps.Module.GetGameCode()
	logger := logging.WithGameCode(logging.WithComponent(deps.Logger, "session"), code)

	v := &view[B]{next: deps.Renderer}
	if o, ok := deps.Module.(game.Observer[B]); ok {
		v.observer = o
	}
	rcfg := deps.Replay
	rcfg.Logger = logger
	if rcfg.Reporter == nil {
		rcfg.Reporter = deps.Reporter
	}

	ledger := deps.Ledger
	if ledger == nil {
		ledger = stats.NewLedger(code, nil, deps.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Machine[B]{
		module:   deps.Module,
		service:  deps.Service,
		creds:    deps.Credentials,
		ledger:   ledger,
		reporter: deps.Reporter,
		engine:   replay.NewEngine[B](v, rcfg),
		view:     v,
		logger:   logger,
		timeout:  deps.CallTimeout,
		ctx:      ctx,
		cancel:   cancel,
		session:  Session{GameCode: code, Phase: PhaseIdle},
	}
}

// GameCode returns the game this machine plays
func (m *Machine[B]) GameCode() string { return m.module.GetGameCode() }

// Ledger returns the game's statistics ledger
func (m *Machine[B]) Ledger() *stats.Ledger { return m.ledger }

// Load refreshes the allowed stakes and the balance from the table
func (m *Machine[B]) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.session.Phase != PhaseIdle {
		defer m.mu.Unlock()
		return invalidTransition("load", m.session.Phase)
	}
	epoch := m.epoch
	m.mu.Unlock()

	cctx, cancel := m.callContext(ctx)
	table, err := m.service.GetTable(cctx, m.GameCode())
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrDiscarded
	}
	if err != nil {
		if errors.IsUnauthorized(err) {
			m.invalidateLocked(ctx, err)
		}
		return err
	}
	m.stakes.Set(table.AllowedStakes)
	m.session.LastKnownBalance = table.Balance
	m.logger.Info().
		Int("stakes", len(table.AllowedStakes)).
		Str("balance", table.Balance.String()).
		Msg("Table loaded")
	return nil
}

// Start opens a session with stake after the guard accepts it
func (m *Machine[B]) Start(ctx context.Context, stake decimal.Decimal, options map[string]any) error {
	m.mu.Lock()
	if err := guard.RequireIdle(m.session.Phase == PhaseIdle); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.stakes.Validate(stake, m.session.LastKnownBalance); err != nil {
		m.mu.Unlock()
		return err
	}
	m.session.Phase = PhaseStarting
	m.session.Stake = stake
	m.lastErr = nil
	m.outcome = nil
	epoch := m.epoch
	m.mu.Unlock()

	cctx, cancel := m.callContext(ctx)
	res, err := m.service.StartSession(cctx, m.GameCode(), stake, options)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrDiscarded
	}
	if err != nil {
		if errors.IsServiceRejection(err) {
			m.session.Phase = PhaseIdle
			m.session.Stake = decimal.Zero
			m.lastErr = err
			return err
		}
		return m.failLocked(ctx, err)
	}

	board, err := m.module.DecodeState(res.InitialState)
	if err != nil {
		return m.failLocked(ctx, err)
	}

	m.session.ID = res.SessionID
	m.session.Phase = PhaseActive
	m.session.LastKnownBalance = res.BalanceAfterDebit
	m.view.Apply(board)

	m.logger.Info().
		Str("session_id", res.SessionID).
		Str("stake", stake.String()).
		Str("balance", res.BalanceAfterDebit.String()).
		Msg("Session started")
	return nil
}

// Act submits a player action. Only one action may be pending at a time.
func (m *Machine[B]) Act(ctx context.Context, action string, params map[string]any) error {
	m.mu.Lock()
	if m.session.Phase != PhaseActive {
		defer m.mu.Unlock()
		return invalidTransition("act", m.session.Phase)
	}
	if !lo.Contains(m.module.Actions(), action) {
		m.mu.Unlock()
		return errors.NewWithReason(errors.ErrValidation, errors.ReasonActionNotAllowed,
			"action "+action+" is not available in "+m.GameCode())
	}
	m.session.Phase = PhaseAwaitingAction
	sessionID := m.session.ID
	epoch := m.epoch
	m.mu.Unlock()

	cctx, cancel := m.callContext(ctx)
	res, err := m.service.SubmitAction(cctx, sessionID, action, params)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrDiscarded
	}
	if err != nil {
		if errors.IsServiceRejection(err) {
			m.session.Phase = PhaseActive
			m.lastErr = err
			return err
		}
		return m.failLocked(ctx, err)
	}

	if !res.Terminal {
		board, err := m.module.DecodeState(res.State)
		if err != nil {
			return m.failLocked(ctx, err)
		}
		if res.Balance != nil {
			m.session.LastKnownBalance = *res.Balance
		}
		m.session.Phase = PhaseActive
		m.view.Apply(board)
		return nil
	}
	return m.resolveLocked(ctx, res.Settlement)
}

// Acknowledge returns a settled session to idle
func (m *Machine[B]) Acknowledge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Phase != PhaseSettled {
		return invalidTransition("acknowledge", m.session.Phase)
	}
	m.resetLocked(PhaseIdle)
	return nil
}

// Retry returns a failed session to idle
func (m *Machine[B]) Retry() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Phase != PhaseFailed {
		return invalidTransition("retry", m.session.Phase)
	}
	m.session.Phase = PhaseIdle
	m.lastErr = nil
	return nil
}

// Forfeit gives up an active session for the server's partial refund
func (m *Machine[B]) Forfeit(ctx context.Context) error {
	sessionID, epoch, err := m.beginCall("forfeit")
	if err != nil {
		return err
	}

	cctx, cancel := m.callContext(ctx)
	res, err := m.service.ForfeitSession(cctx, sessionID)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrDiscarded
	}
	if err != nil {
		if errors.IsServiceRejection(err) {
			m.session.Phase = PhaseActive
			m.lastErr = err
			return err
		}
		return m.failLocked(ctx, err)
	}

	switch {
	case res.BalanceAfter != nil:
		m.session.LastKnownBalance = *res.BalanceAfter
	case res.Refund.IsPositive():
		m.session.LastKnownBalance = m.session.LastKnownBalance.Add(res.Refund)
	}
	m.logger.Info().Str("session_id", sessionID).Str("refund", res.Refund.String()).Msg("Session forfeited")
	m.resetLocked(PhaseIdle)
	return nil
}

// Cancel closes an active session without refund
func (m *Machine[B]) Cancel(ctx context.Context) error {
	sessionID, epoch, err := m.beginCall("cancel")
	if err != nil {
		return err
	}

	cctx, cancel := m.callContext(ctx)
	err = m.service.CancelSession(cctx, sessionID)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrDiscarded
	}
	if err != nil {
		if errors.IsServiceRejection(err) {
			m.session.Phase = PhaseActive
			m.lastErr = err
			return err
		}
		return m.failLocked(ctx, err)
	}
	m.logger.Info().Str("session_id", sessionID).Msg("Session cancelled")
	m.resetLocked(PhaseIdle)
	return nil
}

// Reconcile re-reads an active session from the server and adopts its view.
// A session the server already settled is replayed.
func (m *Machine[B]) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	if m.session.Phase == PhaseIdle {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	sessionID, epoch, err := m.beginCall("reconcile")
	if err != nil {
		return err
	}

	cctx, cancel := m.callContext(ctx)
	st, err := m.service.GetSessionState(cctx, sessionID)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrDiscarded
	}
	if err != nil {
		return m.failLocked(ctx, err)
	}

	if st.Balance != nil {
		m.session.LastKnownBalance = *st.Balance
	}
	switch st.Status {
	case providers.StatusSettled:
		return m.resolveLocked(ctx, st.Settlement)
	case providers.StatusClosed:
		m.logger.Info().Str("session_id", sessionID).Msg("Session closed by server")
		m.resetLocked(PhaseIdle)
		return nil
	default:
		board, err := m.module.DecodeState(st.State)
		if err != nil {
			return m.failLocked(ctx, err)
		}
		m.session.Phase = PhaseActive
		m.view.Apply(board)
		return nil
	}
}

// Abandon drops the session: the replay is cancelled and in-flight
// responses are discarded. No balance or statistics change follows.
func (m *Machine[B]) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Phase == PhaseIdle && m.running == nil {
		return
	}
	m.logger.Info().Str("session_id", m.session.ID).Str("phase", string(m.session.Phase)).Msg("Session abandoned")
	m.resetLocked(PhaseIdle)
}

// WaitSettled blocks while the machine is resolving
func (m *Machine[B]) WaitSettled(ctx context.Context) error {
	m.mu.Lock()
	ch := m.settled
	m.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the machine's state
func (m *Machine[B]) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Session:       m.session,
		AllowedStakes: m.stakes.List(),
		Actions:       append([]string(nil), m.module.Actions()...),
		Replaying:     m.engine.Running(),
	}
	if b, ok := m.view.Board(); ok {
		snap.Board = b
	}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	if m.outcome != nil {
		o := *m.outcome
		snap.LastOutcome = &o
	}
	return snap
}

// Close abandons any session and stops the machine's ledger writer
func (m *Machine[B]) Close() error {
	m.Abandon()
	m.cancel()
	return m.ledger.Close()
}

// beginCall moves an active session to awaiting_action for a session-level call
func (m *Machine[B]) beginCall(op string) (string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Phase != PhaseActive {
		return "", 0, invalidTransition(op, m.session.Phase)
	}
	m.session.Phase = PhaseAwaitingAction
	return m.session.ID, m.epoch, nil
}

// resolveLocked applies the settlement's balance effect once and starts the replay
func (m *Machine[B]) resolveLocked(ctx context.Context, raw *providers.Settlement) error {
	s, err := m.module.DecodeSettlement(raw)
	if err != nil {
		return m.failLocked(ctx, err)
	}

	epoch := m.epoch
	sessionID := m.session.ID
	stake := m.session.Stake
	payout := effectivePayout(stake, s.Delta)

	m.session.Phase = PhaseResolving
	if s.Delta.BalanceAfter != nil {
		m.session.LastKnownBalance = *s.Delta.BalanceAfter
	} else {
		m.session.LastKnownBalance = m.session.LastKnownBalance.Add(payout)
	}
	m.settled = make(chan struct{})

	r, err := m.engine.Start(m.ctx, replay.Run[B]{
		GameCode:   m.GameCode(),
		SessionID:  sessionID,
		Settlement: s,
		OnComplete: func(res replay.Result[B]) {
			m.settle(epoch, sessionID, stake, payout, s, res)
		},
	})
	if err != nil {
		return m.failLocked(ctx, err)
	}
	m.running = r

	m.logger.Info().
		Str("session_id", sessionID).
		Int("steps", len(s.Steps)).
		Str("net", s.Delta.Net.String()).
		Str("balance", m.session.LastKnownBalance.String()).
		Msg("Session resolving")
	return nil
}

// settle is the replay completion callback, the only way into settled.
// The round is recorded before waiters are released.
func (m *Machine[B]) settle(epoch uint64, sessionID string, stake, payout decimal.Decimal, s *game.Settlement[B], res replay.Result[B]) {
	m.mu.Lock()
	if m.epoch != epoch || m.session.Phase != PhaseResolving {
		m.mu.Unlock()
		return
	}
	m.session.Phase = PhaseSettled
	m.running = nil
	m.outcome = &Outcome{
		Label:     s.Label,
		Result:    s.Delta.Outcome,
		Net:       s.Delta.Net,
		Payout:    payout,
		Free:      s.Free,
		Steps:     res.Steps,
		Corrected: res.Corrected,
	}
	rec := m.ledger.Record(stats.Record{
		GameCode:  m.GameCode(),
		SessionID: sessionID,
		Label:     s.Label,
		Outcome:   s.Delta.Outcome,
		Stake:     stake,
		Payout:    payout,
		Gain:      s.Delta.Net,
		Free:      s.Free,
		Metrics:   lo.Assign(map[string]float64{}, s.Metrics),
	})
	done := m.settled
	m.settled = nil
	m.mu.Unlock()

	if !payout.Sub(stake).Equal(s.Delta.Net) && !s.Free {
		m.logger.Warn().
			Str("session_id", sessionID).
			Str("payout", payout.String()).
			Str("stake", stake.String()).
			Str("net", s.Delta.Net.String()).
			Msg("Settlement delta does not reconcile with stake")
	}
	m.report(rec)
	m.logger.Info().Str("session_id", sessionID).Str("record_id", rec.ID).Msg("Session settled")

	if done != nil {
		close(done)
	}
}

// effectivePayout is the amount credited back by a settlement. A delta that
// carries only the net change pays back the stake plus net.
func effectivePayout(stake decimal.Decimal, d game.Delta) decimal.Decimal {
	if d.Payout.IsZero() && !d.Net.IsZero() {
		return stake.Add(d.Net)
	}
	return d.Payout
}

// callContext detaches a service call from ctx's cancellation, keeping its
// values, and bounds it by the call timeout
func (m *Machine[B]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Machine[B]) report(rec stats.Record) {
	if m.reporter == nil {
		return
	}
	event := &providers.SettlementEvent{
		RecordID:  rec.ID,
		GameCode:  rec.GameCode,
		SessionID: rec.SessionID,
		Label:     rec.Label,
		Outcome:   rec.Outcome,
		Stake:     rec.Stake,
		Payout:    rec.Payout,
		Gain:      rec.Gain,
		Free:      rec.Free,
		Metrics:   rec.Metrics,
		Timestamp: rec.At,
	}
	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()
	if err := m.reporter.ReportSettlement(ctx, event); err != nil {
		m.logger.Error().Err(err).Str("record_id", rec.ID).Msg("Failed to report settlement")
	}
}

// failLocked ends the session after a failed call. Unauthorized responses
// hand off to the credentials collaborator and return to idle; everything
// else lands in failed.
func (m *Machine[B]) failLocked(ctx context.Context, err error) error {
	if errors.IsUnauthorized(err) {
		m.invalidateLocked(ctx, err)
		return err
	}
	if !errors.IsAppError(err) {
		err = errors.Wrap(err, errors.ErrNetworkFailure, "game service call failed")
	}

	m.logger.Error().Err(err).Str("session_id", m.session.ID).Str("phase", string(m.session.Phase)).Msg("Session failed")
	m.resetLocked(PhaseFailed)
	m.lastErr = err
	return err
}

func (m *Machine[B]) invalidateLocked(ctx context.Context, err error) {
	m.logger.Warn().Err(err).Str("session_id", m.session.ID).Msg("Credentials rejected, session invalidated")
	m.resetLocked(PhaseIdle)
	m.lastErr = err
	if m.creds == nil {
		return
	}
	if ierr := m.creds.Invalidate(context.WithoutCancel(ctx)); ierr != nil {
		m.logger.Error().Err(ierr).Msg("Failed to hand off to credentials")
	}
}

// resetLocked clears the session, cancels any replay and bumps the epoch so
// in-flight responses are discarded
func (m *Machine[B]) resetLocked(phase Phase) {
	m.epoch++
	if m.running != nil {
		m.running.Cancel()
		m.running = nil
	}
	if m.settled != nil {
		close(m.settled)
		m.settled = nil
	}
	m.session.ID = ""
	m.session.Stake = decimal.Zero
	m.session.Phase = phase
	m.lastErr = nil
}

// view tracks the last applied board and forwards presentation calls
type view[B any] struct {
	mu       sync.Mutex
	board    B
	set      bool
	next     replay.Renderer[B]
	observer game.Observer[B]
}

func (v *view[B]) Highlight(step game.Step[B]) {
	if v.next != nil {
		v.next.Highlight(step)
	}
}

func (v *view[B]) Apply(board B) {
	v.mu.Lock()
	v.board = board
	v.set = true
	v.mu.Unlock()
	if v.observer != nil {
		v.observer.Applied(board)
	}
	if v.next != nil {
		v.next.Apply(board)
	}
}

func (v *view[B]) Finish(res replay.Result[B]) {
	if f, ok := v.next.(replay.Finisher[B]); ok {
		f.Finish(res)
	}
}

func (v *view[B]) Board() (B, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board, v.set
}
