package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/httpclient"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

// GameServiceProvider implements providers.GameService over the remote
// service's HTTP/JSON API
type GameServiceProvider struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewGameServiceProvider creates a new game service provider
func NewGameServiceProvider(cfg *config.Config, creds providers.Credentials, logger zerolog.Logger) *GameServiceProvider {
	return &GameServiceProvider{
		client: httpclient.New(httpclient.Config{
			BaseURL:     cfg.Service.BaseURL,
			Timeout:     cfg.Service.Timeout,
			Logger:      logger,
			Credentials: creds,
		}),
		logger: logger.With().Str("component", "game_service_provider").Logger(),
	}
}

type startRequest struct {
	Stake   decimal.Decimal `json:"stake"`
	Options map[string]any  `json:"options,omitempty"`
}

type actionRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// GetTable fetches the allowed stakes and balance for a game
func (p *GameServiceProvider) GetTable(ctx context.Context, gameCode string) (*providers.Table, error) {
	var out providers.Table
	if err := p.client.GetJSON(ctx, fmt.Sprintf("/games/%s/table", url.PathEscape(gameCode)), &out); err != nil {
		return nil, err
	}
	if out.GameCode == "" {
		out.GameCode = gameCode
	}
	return &out, nil
}

// StartSession debits the stake and opens a session
func (p *GameServiceProvider) StartSession(ctx context.Context, gameCode string, stake decimal.Decimal, options map[string]any) (*providers.StartResult, error) {
	var out providers.StartResult
	path := fmt.Sprintf("/games/%s/sessions", url.PathEscape(gameCode))
	if err := p.client.PostJSON(ctx, path, startRequest{Stake: stake, Options: options}, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, errors.New(errors.ErrPayload, "start response carries no session id")
	}
	p.logger.Debug().
		Str("game_code", gameCode).
		Str("session_id", out.SessionID).
		Str("stake", stake.String()).
		Msg("Session started")
	return &out, nil
}

// SubmitAction sends one player action
func (p *GameServiceProvider) SubmitAction(ctx context.Context, sessionID, action string, params map[string]any) (*providers.ActionResult, error) {
	var out providers.ActionResult
	path := fmt.Sprintf("/sessions/%s/actions", url.PathEscape(sessionID))
	if err := p.client.PostJSON(ctx, path, actionRequest{Action: action, Params: params}, &out); err != nil {
		return nil, err
	}
	if out.Terminal && out.Settlement == nil {
		return nil, errors.NewWithDebug(errors.ErrPayload, "terminal response carries no settlement", sessionID)
	}
	return &out, nil
}

// GetSessionState fetches the server's view of a session
func (p *GameServiceProvider) GetSessionState(ctx context.Context, sessionID string) (*providers.SessionState, error) {
	var out providers.SessionState
	if err := p.client.GetJSON(ctx, fmt.Sprintf("/sessions/%s", url.PathEscape(sessionID)), &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	return &out, nil
}

// ForfeitSession abandons an active session for a partial refund
func (p *GameServiceProvider) ForfeitSession(ctx context.Context, sessionID string) (*providers.ForfeitResult, error) {
	var out providers.ForfeitResult
	if err := p.client.PostJSON(ctx, fmt.Sprintf("/sessions/%s/forfeit", url.PathEscape(sessionID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSession closes a session without a settlement
func (p *GameServiceProvider) CancelSession(ctx context.Context, sessionID string) error {
	return p.client.PostJSON(ctx, fmt.Sprintf("/sessions/%s/cancel", url.PathEscape(sessionID)), nil, nil)
}
