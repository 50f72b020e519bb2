package cascadas

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

func matrix(cells ...int) providers.Payload {
	vals := make([]any, len(cells))
	for i, c := range cells {
		vals[i] = float64(c)
	}
	return providers.Payload{"rows": 2, "cols": 3, "cells": vals}
}

func TestDecodeSettlement_ThreeCascades(t *testing.T) {
	m := New(nil)
	after := decimal.NewFromInt(1750)
	raw := &providers.Settlement{
		Final: matrix(4, 5, 6, 1, 2, 3),
		Steps: []providers.Step{
			{Kind: game.StepCascade, Marks: []int{0, 1, 2}, State: matrix(7, 7, 7, 1, 2, 3)},
			{Kind: game.StepCascade, Marks: []int{0, 1, 2}, State: matrix(8, 8, 8, 1, 2, 3)},
			{Kind: game.StepCascade, Marks: []int{0, 1, 2}, State: matrix(4, 5, 6, 1, 2, 3)},
		},
		Delta: providers.Delta{Net: decimal.NewFromInt(750), Payout: decimal.NewFromInt(1250), BalanceAfter: &after, Outcome: game.OutcomeWin},
	}

	s, err := m.DecodeSettlement(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Steps) != 3 || s.Steps[0].Result.At(0, 0) != 7 || s.Steps[1].Result.At(0, 0) != 8 {
		t.Errorf("cascade levels decoded out of order: %+v", s.Steps)
	}
	if !s.Steps[2].Result.Equal(s.Final) {
		t.Error("last cascade must equal the final matrix")
	}
	if s.Metrics["cascade_depth"] != 3 || s.Metrics["cleared"] != 9 {
		t.Errorf("unexpected metrics %v", s.Metrics)
	}
	if s.Final.String() != " 4  5  6\n 1  2  3\n" {
		t.Errorf("unexpected rendering %q", s.Final.String())
	}
}

func TestDecodeState_SizeMismatch(t *testing.T) {
	m := New(nil)
	_, err := m.DecodeState(providers.Payload{"rows": 2, "cols": 2, "cells": []any{1, 2, 3}})
	if errors.GetCode(err) != errors.ErrPayload {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestDecodeSettlement_MarkOutsideBoard(t *testing.T) {
	m := New(nil)
	_, err := m.DecodeSettlement(&providers.Settlement{
		Final: matrix(1, 2, 3, 4, 5, 6),
		Steps: []providers.Step{{Kind: game.StepCascade, Marks: []int{6}, State: matrix(1, 2, 3, 4, 5, 6)}},
	})
	if errors.GetCode(err) != errors.ErrPayload {
		t.Fatalf("expected payload error, got %v", err)
	}
}
