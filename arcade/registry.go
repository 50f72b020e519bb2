package arcade

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/game/blackjack"
	"github.com/Digital-Creators-Team/arcade-client/game/cascadas"
	"github.com/Digital-Creators-Team/arcade-client/game/minas"
	"github.com/Digital-Creators-Team/arcade-client/game/poker"
	"github.com/Digital-Creators-Team/arcade-client/game/roulette"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/replay"
	"github.com/Digital-Creators-Team/arcade-client/session"
	"github.com/Digital-Creators-Team/arcade-client/stats"
)

// Deps are the collaborators shared by every game's controller
type Deps struct {
	Service     providers.GameService
	Credentials providers.Credentials
	Reporter    providers.Reporter
	Ledger      *stats.Ledger
	Sink        replay.Sink
	Clock       replay.Clock
	Logger      zerolog.Logger
	CallTimeout time.Duration
}

// Factory builds a game's session controller
type Factory func(cfg *game.Config, deps Deps) session.Controller

// Build wires a typed game module into a session controller whose replay
// frames go to deps.Sink
func Build[B game.Board[B]](module game.Module[B], cfg *game.Config, deps Deps) session.Controller {
	return session.New[B](session.Deps[B]{
		Module:      module,
		Service:     deps.Service,
		Credentials: deps.Credentials,
		Renderer:    replay.NewFrameRenderer[B](module.GetGameCode(), deps.Sink),
		Ledger:      deps.Ledger,
		Reporter:    deps.Reporter,
		Replay: replay.Config{
			Timing: replay.Timing{Settle: cfg.Settle, Pause: cfg.Pause},
			Clock:  deps.Clock,
		},
		Logger:      deps.Logger,
		CallTimeout: deps.CallTimeout,
	})
}

// DefaultRegistry registers the five bundled games
func DefaultRegistry() *game.Registry[Factory] {
	r := game.NewRegistry[Factory]()
	r.Register(blackjack.GameCode, func(cfg *game.Config, d Deps) session.Controller {
		return Build[blackjack.Table](blackjack.New(cfg), cfg, d)
	})
	r.Register(minas.GameCode, func(cfg *game.Config, d Deps) session.Controller {
		return Build[minas.Grid](minas.New(cfg), cfg, d)
	})
	r.Register(poker.GameCode, func(cfg *game.Config, d Deps) session.Controller {
		return Build[poker.Hand](poker.New(cfg), cfg, d)
	})
	r.Register(roulette.GameCode, func(cfg *game.Config, d Deps) session.Controller {
		return Build[roulette.Wheel](roulette.New(cfg), cfg, d)
	})
	r.Register(cascadas.GameCode, func(cfg *game.Config, d Deps) session.Controller {
		return Build[cascadas.Matrix](cascadas.New(cfg), cfg, d)
	})
	return r
}
