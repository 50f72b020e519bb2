package guard

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestValidate(t *testing.T) {
	allowed := []decimal.Decimal{d(100), d(250), d(500)}

	tests := []struct {
		name    string
		stake   decimal.Decimal
		balance decimal.Decimal
		reason  string
	}{
		{"allowed and covered", d(500), d(1000), ""},
		{"exactly the balance", d(250), d(250), ""},
		{"scale does not matter", decimal.RequireFromString("100.00"), d(100), ""},
		{"not offered", d(300), d(1000), errors.ReasonStakeNotAllowed},
		{"insufficient balance", d(500), d(499), errors.ReasonInsufficientBalance},
		{"zero", d(0), d(1000), errors.ReasonStakeNotAllowed},
		{"negative", d(-100), d(1000), errors.ReasonStakeNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.stake, allowed, tt.balance)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("expected Ok, got %v", err)
				}
				return
			}
			if !errors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := errors.ReasonOf(err); got != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, got)
			}
		})
	}
}

func TestValidate_EmptyAllowedSet(t *testing.T) {
	if err := Validate(d(100), nil, d(1000)); errors.ReasonOf(err) != errors.ReasonStakeNotAllowed {
		t.Fatalf("expected STAKE_NOT_ALLOWED, got %v", err)
	}
}

func TestRequireIdle(t *testing.T) {
	if err := RequireIdle(true); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := RequireIdle(false); errors.ReasonOf(err) != errors.ReasonSessionActive {
		t.Fatalf("expected SESSION_ACTIVE, got %v", err)
	}
}

func TestStakes(t *testing.T) {
	var s Stakes
	s.Set([]decimal.Decimal{d(100), decimal.RequireFromString("100"), d(200)})
	if got := len(s.List()); got != 2 {
		t.Errorf("expected duplicates removed, got %d stakes", got)
	}
	if err := s.Validate(d(200), d(200)); err != nil {
		t.Errorf("expected Ok, got %v", err)
	}

	list := s.List()
	list[0] = d(999)
	if err := s.Validate(d(999), d(1000)); err == nil {
		t.Error("List must return a copy")
	}
}
