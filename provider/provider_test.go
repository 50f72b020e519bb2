package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/types"
)

type staticCreds struct{}

func (staticCreds) Token(context.Context) (string, error) { return "tok", nil }
func (staticCreds) Invalidate(context.Context) error      { return nil }

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.SuccessResponse[any]{StatusCode: 200, IsSuccess: true, Data: data})
}

func newTestService(t *testing.T, h http.Handler) *GameServiceProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.Service.BaseURL = srv.URL
	return NewGameServiceProvider(cfg, staticCreds{}, zerolog.Nop())
}

func TestGameServiceProvider_Flow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/games/minas/table", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"allowedStakes": []string{"100", "500"}, "balance": "1000"})
	})
	mux.HandleFunc("/games/minas/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stake.Equal(decimal.NewFromInt(500)) {
			t.Errorf("unexpected stake %s", req.Stake)
		}
		ok(w, map[string]any{"sessionId": "s-1", "initialState": map[string]any{"size": 25}, "balanceAfterDebit": 500})
	})
	mux.HandleFunc("/sessions/s-1/actions", func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Action != "cashout" {
			t.Errorf("unexpected action %q", req.Action)
		}
		ok(w, map[string]any{
			"terminal": true,
			"settlement": map[string]any{
				"finalState": map[string]any{"size": 25},
				"delta":      map[string]any{"net": "750", "payout": "1250", "balanceAfter": "1750"},
			},
		})
	})
	mux.HandleFunc("/sessions/s-1", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"status": "active"})
	})
	mux.HandleFunc("/sessions/s-1/forfeit", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"refund": "200"})
	})
	mux.HandleFunc("/sessions/s-1/cancel", func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil)
	})
	svc := newTestService(t, mux)
	ctx := context.Background()

	table, err := svc.GetTable(ctx, "minas")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if table.GameCode != "minas" || len(table.AllowedStakes) != 2 || !table.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("unexpected table %+v", table)
	}

	start, err := svc.StartSession(ctx, "minas", decimal.NewFromInt(500), nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.SessionID != "s-1" || !start.BalanceAfterDebit.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected start %+v", start)
	}

	act, err := svc.SubmitAction(ctx, "s-1", "cashout", nil)
	if err != nil {
		t.Fatalf("action: %v", err)
	}
	if !act.Terminal || act.Settlement == nil || !act.Settlement.Delta.BalanceAfter.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("unexpected action result %+v", act)
	}

	state, err := svc.GetSessionState(ctx, "s-1")
	if err != nil || state.Status != providers.StatusActive || state.SessionID != "s-1" {
		t.Errorf("unexpected state %+v, %v", state, err)
	}

	refund, err := svc.ForfeitSession(ctx, "s-1")
	if err != nil || !refund.Refund.Equal(decimal.NewFromInt(200)) {
		t.Errorf("unexpected forfeit %+v, %v", refund, err)
	}

	if err := svc.CancelSession(ctx, "s-1"); err != nil {
		t.Errorf("cancel: %v", err)
	}
}

func TestGameServiceProvider_TerminalWithoutSettlement(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"terminal": true})
	}))
	_, err := svc.SubmitAction(context.Background(), "s-1", "stand", nil)
	if errors.GetCode(err) != errors.ErrPayload {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestGameServiceProvider_Rejection(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{StatusCode: 409, Error: types.ErrorDetail{
			Reason: errors.ReasonInsufficientBalance, ErrorMessage: "balance too low",
		}})
	}))
	_, err := svc.StartSession(context.Background(), "poker", decimal.NewFromInt(100), nil)
	if !errors.IsServiceRejection(err) || errors.ReasonOf(err) != errors.ReasonInsufficientBalance {
		t.Fatalf("expected rejection with reason, got %v", err)
	}
}

func testStore(t *testing.T, s providers.Store) {
	t.Helper()
	ctx := context.Background()
	if _, found, err := s.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, found, err := s.Get(ctx, "k"); err != nil || !found || v != "v" {
		t.Fatalf("expected v, got %q found=%v err=%v", v, found, err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatal("expected key removed")
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestNewStore_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.StorageSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "stats.db")

	s, closeFn, err := NewStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer closeFn()
	testStore(t, s)
}

func TestNewStore_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "etcd"
	if _, _, err := NewStore(cfg, zerolog.Nop()); errors.GetCode(err) != errors.ErrConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

type recordingSender struct {
	mu     sync.Mutex
	topics []string
	keys   []string
}

func (s *recordingSender) SendMessage(_ context.Context, topic, key string, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.keys = append(s.keys, key)
	return nil
}

func (s *recordingSender) SendMessageSync(ctx context.Context, topic, key string, value interface{}) error {
	return s.SendMessage(ctx, topic, key, value)
}

func TestAuditProvider_Topics(t *testing.T) {
	cfg := config.Default()
	sender := &recordingSender{}
	p := &AuditProvider{
		producer:         sender,
		settlementTopic:  cfg.Kafka.Topic("settlements"),
		consistencyTopic: cfg.Kafka.Topic("consistency"),
		logger:           zerolog.Nop(),
	}
	ctx := context.Background()
	_ = p.ReportSettlement(ctx, &providers.SettlementEvent{SessionID: "s-1"})
	_ = p.ReportViolation(ctx, &providers.Violation{SessionID: "s-2"})

	if len(sender.topics) != 2 || sender.topics[0] != "arcade.settlements" || sender.topics[1] != "arcade.consistency" {
		t.Errorf("unexpected topics %v", sender.topics)
	}
	if sender.keys[0] != "s-1" || sender.keys[1] != "s-2" {
		t.Errorf("unexpected keys %v", sender.keys)
	}
}

func TestNewAuditProvider_NoProducer(t *testing.T) {
	r := NewAuditProvider(config.Default(), nil, zerolog.Nop())
	if _, ok := r.(*LogReporter); !ok {
		t.Fatalf("expected log reporter fallback, got %T", r)
	}
}
