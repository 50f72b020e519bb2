// Package replay plays a server-supplied settlement back as an ordered,
// timed sequence of highlight and apply calls ending on the final state.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// ErrReplayInProgress is returned when a replay is started while another
// one is still running on the same engine
var ErrReplayInProgress = errors.New(errors.ErrInvalidTransition, "a replay is already running")

// ErrCancelled is returned by Wait when the replay was cancelled
var ErrCancelled = errors.New(errors.ErrInvalidTransition, "replay cancelled")

// Renderer receives the replay's presentation calls, strictly in order
type Renderer[B any] interface {
	Highlight(step game.Step[B])
	Apply(board B)
}

// Finisher is implemented by renderers that want to know when a replay has
// reached its final state
type Finisher[B any] interface {
	Finish(result Result[B])
}

// Clock schedules timed waits
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by the time package
func RealClock() Clock { return realClock{} }

// Timing holds the default waits between presentation calls
type Timing struct {
	// Settle is the wait between a step's highlight and its apply
	Settle time.Duration
	// Pause is the wait between consecutive steps
	Pause time.Duration
}

// Config holds the engine's collaborators
type Config struct {
	Timing   Timing
	Clock    Clock
	Reporter providers.Reporter
	Logger   zerolog.Logger
}

// Run describes one replay
type Run[B any] struct {
	GameCode   string
	SessionID  string
	Settlement *game.Settlement[B]
	// OnComplete is invoked exactly once after the final state is applied,
	// never after cancellation
	OnComplete func(Result[B])
}

// Result is the outcome of a completed replay
type Result[B any] struct {
	Final B
	Steps int
	// Corrected is set when the last step disagreed with the final state
	// and the final state was force-applied
	Corrected bool
}

// Engine replays settlements for one game. It runs at most one replay at a time.
type Engine[B game.Board[B]] struct {
	renderer Renderer[B]
	clock    Clock
	timing   Timing
	reporter providers.Reporter
	logger   zerolog.Logger

	mu      sync.Mutex
	current *Replay[B]
}

// NewEngine creates a replay engine drawing on renderer
func NewEngine[B game.Board[B]](renderer Renderer[B], cfg Config) *Engine[B] {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	return &Engine[B]{
		renderer: renderer,
		clock:    cfg.Clock,
		timing:   cfg.Timing,
		reporter: cfg.Reporter,
		logger:   cfg.Logger.With().Str("component", "replay").Logger(),
	}
}

// Start launches a replay in the background
func (e *Engine[B]) Start(ctx context.Context, run Run[B]) (*Replay[B], error) {
	if run.Settlement == nil {
		return nil, errors.New(errors.ErrPayload, "nothing to replay")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && !e.current.finished() {
		return nil, ErrReplayInProgress
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &Replay[B]{
		ctx:        rctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		onComplete: run.OnComplete,
	}
	e.current = r

	go e.play(r, run)
	return r, nil
}

// Play runs a replay and blocks until it completes or ctx is cancelled
func (e *Engine[B]) Play(ctx context.Context, run Run[B]) (Result[B], error) {
	r, err := e.Start(ctx, run)
	if err != nil {
		var zero Result[B]
		return zero, err
	}
	return r.Wait(ctx)
}

// Running reports whether a replay is in progress
func (e *Engine[B]) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && !e.current.finished()
}

// Cancel stops the running replay, if any
func (e *Engine[B]) Cancel() {
	e.mu.Lock()
	r := e.current
	e.mu.Unlock()
	if r != nil {
		r.Cancel()
	}
}

func (e *Engine[B]) play(r *Replay[B], run Run[B]) {
	defer close(r.done)
	defer r.cancel()

	s := run.Settlement
	steps := append([]game.Step[B](nil), s.Steps...)

	if len(steps) == 0 {
		if !r.emit(func() { e.renderer.Apply(s.Final) }) {
			return
		}
		e.finish(r, Result[B]{Final: s.Final})
		return
	}

	for i, step := range steps {
		if !r.emit(func() { e.renderer.Highlight(step) }) {
			return
		}
		if !e.wait(r.ctx, e.settleFor(step)) {
			return
		}
		if !r.emit(func() { e.renderer.Apply(step.Result) }) {
			return
		}
		if i < len(steps)-1 && !e.wait(r.ctx, e.timing.Pause) {
			return
		}
	}

	res := Result[B]{Final: s.Final, Steps: len(steps)}
	last := steps[len(steps)-1].Result
	if !last.Equal(s.Final) {
		res.Corrected = true
		e.violation(r.ctx, run, last)
		if !r.emit(func() { e.renderer.Apply(s.Final) }) {
			return
		}
	}
	e.finish(r, res)
}

func (e *Engine[B]) finish(r *Replay[B], res Result[B]) {
	if f, ok := e.renderer.(Finisher[B]); ok {
		if !r.emit(func() { f.Finish(res) }) {
			return
		}
	}
	r.complete(res)
}

func (e *Engine[B]) settleFor(step game.Step[B]) time.Duration {
	switch {
	case step.Motion != nil && step.Motion.Duration > 0:
		return step.Motion.Duration
	case step.Settle > 0:
		return step.Settle
	default:
		return e.timing.Settle
	}
}

func (e *Engine[B]) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-e.clock.After(d):
		return ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}

func (e *Engine[B]) violation(ctx context.Context, run Run[B], got B) {
	err := errors.NewWithDebug(errors.ErrConsistencyViolation,
		"replayed state differs from final state", run.SessionID)
	e.logger.Warn().
		Err(err).
		Str("game_code", run.GameCode).
		Str("session_id", run.SessionID).
		Int("steps", len(run.Settlement.Steps)).
		Msg("Forcing final state after replay")

	if e.reporter == nil {
		return
	}
	v := &providers.Violation{
		GameCode:  run.GameCode,
		SessionID: run.SessionID,
		Steps:     len(run.Settlement.Steps),
		Expected:  run.Settlement.Final,
		Got:       got,
		Timestamp: time.Now().UTC(),
	}
	if rerr := e.reporter.ReportViolation(context.WithoutCancel(ctx), v); rerr != nil {
		e.logger.Error().Err(rerr).Str("session_id", run.SessionID).Msg("Failed to report consistency violation")
	}
}

// Replay is a handle on one running or finished replay
type Replay[B any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	cancelled  bool
	completed  bool
	result     Result[B]
	onComplete func(Result[B])
}

// Done is closed when the replay goroutine has stopped
func (r *Replay[B]) Done() <-chan struct{} { return r.done }

// Cancel stops the replay. No renderer call starts after Cancel returns and
// the completion callback will not run.
func (r *Replay[B]) Cancel() {
	r.mu.Lock()
	if !r.completed {
		r.cancelled = true
	}
	r.mu.Unlock()
	r.cancel()
}

// Completed reports whether the replay reached its final state
func (r *Replay[B]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Wait blocks until the replay stops and returns its result
func (r *Replay[B]) Wait(ctx context.Context) (Result[B], error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		var zero Result[B]
		return zero, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.completed {
		var zero Result[B]
		return zero, ErrCancelled
	}
	return r.result, nil
}

// finished reports whether the replay can make no further renderer calls
func (r *Replay[B]) finished() bool {
	select {
	case <-r.done:
		return true
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed || r.cancelled
}

// emit runs fn unless the replay has been cancelled
func (r *Replay[B]) emit(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.ctx.Err() != nil {
		r.cancelled = true
		return false
	}
	fn()
	return true
}

// complete marks the replay done and fires the callback; repeated calls are no-ops
func (r *Replay[B]) complete(res Result[B]) {
	r.mu.Lock()
	if r.cancelled || r.completed {
		r.mu.Unlock()
		return
	}
	r.completed = true
	r.result = res
	cb := r.onComplete
	r.mu.Unlock()

	if cb != nil {
		cb(res)
	}
}
