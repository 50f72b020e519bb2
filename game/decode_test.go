package game

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

type counter struct {
	Value int             `mapstructure:"value"`
	Bonus decimal.Decimal `mapstructure:"bonus"`
}

func (c counter) Equal(o counter) bool { return c.Value == o.Value && c.Bonus.Equal(o.Bonus) }

func decodeCounter(p providers.Payload) (counter, error) {
	var c counter
	err := Decode(p, &c)
	return c, err
}

func TestDecode_Decimals(t *testing.T) {
	tests := []struct {
		name string
		in   providers.Payload
		want counter
	}{
		{"json number", providers.Payload{"value": float64(3), "bonus": 1.5}, counter{3, decimal.RequireFromString("1.5")}},
		{"numeric string", providers.Payload{"value": "4", "bonus": "0.25"}, counter{4, decimal.RequireFromString("0.25")}},
		{"missing fields", providers.Payload{}, counter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeCounter(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := decodeCounter(providers.Payload{"value": []int{1, 2}})
	if errors.GetCode(err) != errors.ErrPayload {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestDecodeSettlement_PreservesOrder(t *testing.T) {
	after := decimal.NewFromInt(1750)
	raw := &providers.Settlement{
		Final: providers.Payload{"value": 3},
		Steps: []providers.Step{
			{Kind: StepCascade, Marks: []int{0, 1}, State: providers.Payload{"value": 1}, SettleMs: 200},
			{Kind: StepCascade, Marks: []int{2}, State: providers.Payload{"value": 2}},
			{Kind: StepCascade, State: providers.Payload{"value": 3}},
		},
		Delta: providers.Delta{
			Net:          decimal.NewFromInt(750),
			Payout:       decimal.NewFromInt(1250),
			BalanceAfter: &after,
			Outcome:      OutcomeWin,
		},
		Label:   "triple",
		Metrics: map[string]float64{"depth": 3},
	}

	s, err := DecodeSettlement(raw, decodeCounter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(s.Steps))
	}
	for i, step := range s.Steps {
		if step.Index != i || step.Result.Value != i+1 {
			t.Errorf("step %d out of order: %+v", i, step)
		}
	}
	if s.Steps[0].Settle.Milliseconds() != 200 {
		t.Errorf("expected 200ms settle, got %s", s.Steps[0].Settle)
	}
	if !s.Final.Equal(s.Steps[2].Result) {
		t.Errorf("final %+v does not match last step %+v", s.Final, s.Steps[2].Result)
	}
	if !s.Delta.BalanceAfter.Equal(after) || s.Label != "triple" || s.Metrics["depth"] != 3 {
		t.Errorf("settlement fields not carried over: %+v", s)
	}

	raw.Metrics["depth"] = 9
	if s.Metrics["depth"] != 3 {
		t.Error("metrics must be copied, not shared")
	}
}

func TestDecodeSettlement_Missing(t *testing.T) {
	if _, err := DecodeSettlement[counter](nil, decodeCounter); errors.GetCode(err) != errors.ErrPayload {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[func() string]()
	r.Register("poker", func() string { return "poker" })
	r.Register("blackjack", func() string { return "blackjack" })

	if got := r.GetAll(); len(got) != 2 || got[0] != "blackjack" {
		t.Errorf("expected sorted codes, got %v", got)
	}
	f, ok := r.Get("poker")
	if !ok || f() != "poker" {
		t.Error("expected poker factory")
	}
	if _, ok := r.Get("slots"); ok {
		t.Error("unexpected factory for unknown code")
	}
}
