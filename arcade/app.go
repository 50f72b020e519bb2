// Package arcade assembles the per-game session controllers over shared
// service, storage and reporting collaborators.
package arcade

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/replay"
	"github.com/Digital-Creators-Team/arcade-client/session"
	"github.com/Digital-Creators-Team/arcade-client/stats"
)

// Options holds the application's collaborators
type Options struct {
	Config      *config.Config
	Registry    *game.Registry[Factory]
	Service     providers.GameService
	Credentials providers.Credentials
	Store       providers.Store
	Reporter    providers.Reporter
	Sink        replay.Sink
	Clock       replay.Clock
	Logger      zerolog.Logger
}

// GameInfo describes a playable game
type GameInfo struct {
	Code string `json:"gameCode" yaml:"game_code"`
	Name string `json:"gameName" yaml:"game_name"`
}

// App owns one controller per game, created on first use
type App struct {
	opts   Options
	logger zerolog.Logger

	mu          sync.Mutex
	controllers map[string]session.Controller
	onClose     []func() error
}

// New creates an application
func New(opts Options) *App {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	return &App{
		opts:        opts,
		logger:      opts.Logger.With().Str("component", "arcade").Logger(),
		controllers: make(map[string]session.Controller),
	}
}

// Games lists the registered games, sorted by code
func (a *App) Games() []GameInfo {
	codes := a.opts.Registry.GetAll()
	out := make([]GameInfo, 0, len(codes))
	for _, code := range codes {
		out = append(out, GameInfo{Code: code, Name: a.opts.Config.GameConfig(code).GameName})
	}
	return out
}

// Controller returns the controller for gameCode, creating it and loading
// its statistics on first use. A statistics load failure is logged and the
// game starts from empty totals.
func (a *App) Controller(ctx context.Context, gameCode string) (session.Controller, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.controllers[gameCode]; ok {
		return c, nil
	}
	factory, ok := a.opts.Registry.Get(gameCode)
	if !ok {
		return nil, errors.NewWithDebug(errors.ErrGameNotFound, "unknown game", gameCode)
	}

	ledger := stats.NewLedger(gameCode, a.opts.Store, a.opts.Logger)
	if err := ledger.Load(ctx); err != nil {
		a.logger.Warn().Err(err).Str("game_code", gameCode).Msg("Failed to load statistics, starting empty")
	}

	c := factory(a.opts.Config.GameConfig(gameCode), Deps{
		Service:     a.opts.Service,
		Credentials: a.opts.Credentials,
		Reporter:    a.opts.Reporter,
		Ledger:      ledger,
		Sink:        a.opts.Sink,
		Clock:       a.opts.Clock,
		Logger:      a.opts.Logger,
		CallTimeout: a.opts.Config.Service.Timeout,
	})
	a.controllers[gameCode] = c
	a.logger.Info().Str("game_code", gameCode).Msg("Game controller created")
	return c, nil
}

// Stats returns a game's statistics snapshot
func (a *App) Stats(ctx context.Context, gameCode string) (stats.Snapshot, error) {
	c, err := a.Controller(ctx, gameCode)
	if err != nil {
		return stats.Snapshot{}, err
	}
	return c.Ledger().Snapshot(), nil
}

// OnClose registers a function run after the controllers are closed
func (a *App) OnClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onClose = append(a.onClose, fn)
}

// Close abandons every session, flushes statistics and runs close hooks
func (a *App) Close() error {
	a.mu.Lock()
	controllers := a.controllers
	a.controllers = make(map[string]session.Controller)
	hooks := a.onClose
	a.onClose = nil
	a.mu.Unlock()

	var errs []error
	for code, c := range controllers {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Str("game_code", code).Msg("Failed to close controller")
			errs = append(errs, err)
		}
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
