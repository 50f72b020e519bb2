package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/arcade"
	"github.com/Digital-Creators-Team/arcade-client/auth"
	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/feed"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/replay"
	"github.com/Digital-Creators-Team/arcade-client/session"
	"github.com/Digital-Creators-Team/arcade-client/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type minasService struct{}

func (minasService) GetTable(context.Context, string) (*providers.Table, error) {
	return &providers.Table{
		AllowedStakes: []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(500)},
		Balance:       decimal.NewFromInt(1000),
	}, nil
}

func (minasService) StartSession(context.Context, string, decimal.Decimal, map[string]any) (*providers.StartResult, error) {
	return &providers.StartResult{
		SessionID:         "s-1",
		InitialState:      providers.Payload{"size": 25, "mines": 3, "multiplier": "1"},
		BalanceAfterDebit: decimal.NewFromInt(500),
	}, nil
}

func (minasService) SubmitAction(context.Context, string, string, map[string]any) (*providers.ActionResult, error) {
	final := providers.Payload{"size": 25, "mines": 3, "revealed": []int{4}, "mineCells": []int{1}, "multiplier": "2"}
	return &providers.ActionResult{Terminal: true, Settlement: &providers.Settlement{
		Final: final,
		Steps: []providers.Step{{Kind: "reveal", Marks: []int{1}, State: final}},
		Delta: providers.Delta{Net: decimal.NewFromInt(500), Payout: decimal.NewFromInt(1000), Outcome: "win"},
	}}, nil
}

func (minasService) GetSessionState(context.Context, string) (*providers.SessionState, error) {
	return &providers.SessionState{Status: providers.StatusActive}, nil
}

func (minasService) ForfeitSession(context.Context, string) (*providers.ForfeitResult, error) {
	return &providers.ForfeitResult{}, nil
}

func (minasService) CancelSession(context.Context, string) error { return nil }

func newTestServer(t *testing.T, secret string) (*Server, *arcade.App) {
	t.Helper()
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.Replay.Settle = time.Millisecond
	cfg.Replay.Pause = time.Millisecond
	cfg.Bridge.JWTSecret = secret

	f := feed.New(16, zerolog.Nop())
	app := arcade.New(arcade.Options{
		Config:  cfg,
		Service: minasService{},
		Sink:    f,
		Logger:  zerolog.Nop(),
	})
	t.Cleanup(func() { app.Close() })

	return New(Options{Config: cfg, Arcade: app, Feed: f, Logger: zerolog.Nop()}), app
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var resp types.SuccessResponse[session.Snapshot]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorDetail {
	t.Helper()
	var resp types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return resp.Error
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, "")
	w := do(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestServer_ListGames(t *testing.T) {
	s, _ := newTestServer(t, "")
	w := do(t, s, http.MethodGet, "/api/games", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp types.SuccessResponse[[]arcade.GameInfo]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 5 || resp.Data[0].Code != "blackjack" {
		t.Errorf("unexpected games %+v", resp.Data)
	}
}

func TestServer_PlaysRound(t *testing.T) {
	s, app := newTestServer(t, "")

	if w := do(t, s, http.MethodPost, "/api/games/minas/load", nil); w.Code != http.StatusOK {
		t.Fatalf("load: %d %s", w.Code, w.Body.String())
	}

	w := do(t, s, http.MethodPost, "/api/games/minas/start", map[string]any{"stake": 500})
	if w.Code != http.StatusOK {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Phase != session.PhaseActive || snap.ID != "s-1" || !snap.LastKnownBalance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected snapshot after start %+v", snap)
	}

	if w := do(t, s, http.MethodPost, "/api/games/minas/actions", map[string]any{"action": "cashout"}); w.Code != http.StatusOK {
		t.Fatalf("action: %d %s", w.Code, w.Body.String())
	}

	ctrl, err := app.Controller(context.Background(), "minas")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctrl.WaitSettled(ctx); err != nil {
		t.Fatal(err)
	}

	snap = decodeSnapshot(t, do(t, s, http.MethodGet, "/api/games/minas/session", nil))
	if snap.Phase != session.PhaseSettled || !snap.LastKnownBalance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected settled snapshot %+v", snap)
	}

	snap = decodeSnapshot(t, do(t, s, http.MethodPost, "/api/games/minas/ack", nil))
	if snap.Phase != session.PhaseIdle {
		t.Errorf("expected idle after ack, got %s", snap.Phase)
	}

	w = do(t, s, http.MethodGet, "/api/games/minas/stats", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"rounds":1`) {
		t.Errorf("unexpected stats %s", w.Body.String())
	}

	w = do(t, s, http.MethodDelete, "/api/games/minas/stats/visible", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset visible: %d", w.Code)
	}
	if st := ctrl.Ledger().Snapshot(); st.Permanent.Rounds != 1 || !st.Visible.Equal(st.Permanent) || len(st.History) != 0 {
		t.Errorf("visible reset must mirror permanent totals and clear history, got %+v", st)
	}

	if w := do(t, s, http.MethodDelete, "/api/games/minas/stats", nil); w.Code != http.StatusOK {
		t.Fatalf("reset all: %d", w.Code)
	}
	if st := ctrl.Ledger().Snapshot(); st.Permanent.Rounds != 0 || len(st.History) != 0 {
		t.Errorf("unexpected stats after full reset %+v", st)
	}
}

func TestServer_Errors(t *testing.T) {
	s, _ := newTestServer(t, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   int
	}{
		{"unknown game", http.MethodGet, "/api/games/slots/session", nil, http.StatusNotFound, errors.ErrGameNotFound},
		{"ack while idle", http.MethodPost, "/api/games/minas/ack", nil, http.StatusConflict, errors.ErrInvalidTransition},
		{"missing stake", http.MethodPost, "/api/games/poker/start", map[string]any{}, http.StatusUnprocessableEntity, errors.ErrValidation},
		{"malformed body", http.MethodPost, "/api/games/poker/start", "stake", http.StatusBadRequest, errors.ErrInvalidRequest},
		{"stake not loaded", http.MethodPost, "/api/games/roulette/start", map[string]any{"stake": 100}, http.StatusUnprocessableEntity, errors.ErrValidation},
		{"missing action", http.MethodPost, "/api/games/blackjack/actions", map[string]any{}, http.StatusBadRequest, errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if detail := decodeError(t, w); detail.Code != tt.wantCode {
				t.Errorf("expected code %d, got %+v", tt.wantCode, detail)
			}
		})
	}
}

func TestServer_RequiresTokenWhenSecretSet(t *testing.T) {
	s, _ := newTestServer(t, "bridge-secret")

	if w := do(t, s, http.MethodGet, "/api/games", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	token, err := auth.GenerateToken("bridge-secret", "p-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}

	if w := do(t, s, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("expected health to skip auth, got %d", w.Code)
	}
}

func TestServer_StreamsFrames(t *testing.T) {
	s, app := newTestServer(t, "")
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/games/minas/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()
	ctrl, err := app.Controller(ctx, "minas")
	if err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Start(ctx, decimal.NewFromInt(500), nil); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Act(ctx, "cashout", nil); err != nil {
		t.Fatal(err)
	}

	want := []string{replay.FrameApply, replay.FrameHighlight, replay.FrameApply, replay.FrameFinish}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i, kind := range want {
		var fr replay.Frame
		if err := conn.ReadJSON(&fr); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if fr.Kind != kind || fr.GameCode != "minas" {
			t.Errorf("frame %d: expected %s for minas, got %s for %s", i, kind, fr.Kind, fr.GameCode)
		}
	}
}
