package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/arcade"
	"github.com/Digital-Creators-Team/arcade-client/session"
)

// GameHandler exposes the session controllers over HTTP
//
// Flow: HTTP Request -> GameHandler -> session.Controller -> remote game service
//
// Mutating routes answer with the controller's snapshot after the call.
type GameHandler struct {
	arcade *arcade.App
	logger zerolog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(app *arcade.App, logger zerolog.Logger) *GameHandler {
	return &GameHandler{
		arcade: app,
		logger: logger.With().Str("handler", "game").Logger(),
	}
}

// StartRequest opens a session
type StartRequest struct {
	Stake   decimal.Decimal `json:"stake"`
	Options map[string]any  `json:"options"`
}

// ActionRequest submits a player action
type ActionRequest struct {
	Action string         `json:"action" binding:"required"`
	Params map[string]any `json:"params"`
}

// ListGames returns the playable games
func (h *GameHandler) ListGames(c *gin.Context) {
	OK(c, h.arcade.Games())
}

// GetSession returns the game's current snapshot
func (h *GameHandler) GetSession(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	OK(c, ctrl.Snapshot())
}

// Load refreshes allowed stakes and balance
func (h *GameHandler) Load(c *gin.Context) {
	h.run(c, func(ctx context.Context, ctrl session.Controller) error {
		return ctrl.Load(ctx)
	})
}

// Start opens a session
func (h *GameHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	h.run(c, func(ctx context.Context, ctrl session.Controller) error {
		return ctrl.Start(ctx, req.Stake, req.Options)
	})
}

// Act submits a player action
func (h *GameHandler) Act(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	h.run(c, func(ctx context.Context, ctrl session.Controller) error {
		return ctrl.Act(ctx, req.Action, req.Params)
	})
}

// Acknowledge returns a settled session to idle
func (h *GameHandler) Acknowledge(c *gin.Context) {
	h.run(c, func(_ context.Context, ctrl session.Controller) error {
		return ctrl.Acknowledge()
	})
}

// Retry returns a failed session to idle
func (h *GameHandler) Retry(c *gin.Context) {
	h.run(c, func(_ context.Context, ctrl session.Controller) error {
		return ctrl.Retry()
	})
}

// Forfeit abandons the session for a partial refund
func (h *GameHandler) Forfeit(c *gin.Context) {
	h.run(c, func(ctx context.Context, ctrl session.Controller) error {
		return ctrl.Forfeit(ctx)
	})
}

// Cancel closes the session without a settlement
func (h *GameHandler) Cancel(c *gin.Context) {
	h.run(c, func(ctx context.Context, ctrl session.Controller) error {
		return ctrl.Cancel(ctx)
	})
}

// Reconcile adopts the server's view of the session
func (h *GameHandler) Reconcile(c *gin.Context) {
	h.run(c, func(ctx context.Context, ctrl session.Controller) error {
		return ctrl.Reconcile(ctx)
	})
}

// Abandon drops the session locally
func (h *GameHandler) Abandon(c *gin.Context) {
	h.run(c, func(_ context.Context, ctrl session.Controller) error {
		ctrl.Abandon()
		return nil
	})
}

// GetStats returns the game's statistics
func (h *GameHandler) GetStats(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	OK(c, ctrl.Ledger().Snapshot())
}

// ResetVisibleStats clears the visible totals and history
func (h *GameHandler) ResetVisibleStats(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctrl.Ledger().ResetVisible()
	OK(c, ctrl.Ledger().Snapshot())
}

// ResetAllStats clears every total and the history
func (h *GameHandler) ResetAllStats(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctrl.Ledger().ResetAll()
	OK(c, ctrl.Ledger().Snapshot())
}

func (h *GameHandler) controller(c *gin.Context) (session.Controller, bool) {
	ctrl, err := h.arcade.Controller(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleAppError(c, err)
		return nil, false
	}
	return ctrl, true
}

// run calls op on the route's controller and answers with its snapshot
func (h *GameHandler) run(c *gin.Context, op func(context.Context, session.Controller) error) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	if err := op(c.Request.Context(), ctrl); err != nil {
		h.logger.Debug().Err(err).Str("game_code", ctrl.GameCode()).Str("path", c.FullPath()).Msg("Session call failed")
		HandleAppError(c, err)
		return
	}
	OK(c, ctrl.Snapshot())
}
