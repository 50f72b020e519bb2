package poker

import (
	"testing"

	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
)

func cards(codes ...string) []any {
	out := make([]any, 0, len(codes))
	for _, c := range codes {
		out = append(out, map[string]any{"rank": c[:len(c)-1], "suit": c[len(c)-1:]})
	}
	return out
}

func TestDecodeSettlement_RankBecomesLabel(t *testing.T) {
	m := New(nil)
	raw := &providers.Settlement{
		Final: providers.Payload{"cards": cards("KS", "KH", "KD", "4C", "4S"), "held": []any{true, true, true, false, false}, "rank": "Full House"},
		Steps: []providers.Step{
			{Kind: game.StepReveal, Marks: []int{3}, State: providers.Payload{"cards": cards("KS", "KH", "KD", "4C", "2S"), "held": []any{true, true, true, false, false}}},
			{Kind: game.StepReveal, Marks: []int{4}, State: providers.Payload{"cards": cards("KS", "KH", "KD", "4C", "4S"), "held": []any{true, true, true, false, false}, "rank": "Full House"}},
		},
	}

	s, err := m.DecodeSettlement(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Label != "Full House" {
		t.Errorf("expected rank as label, got %q", s.Label)
	}
	if s.Final.Cards[3].String() != "4C" || s.Final.Cards[0].Rank != "K" {
		t.Errorf("unexpected cards %+v", s.Final.Cards)
	}
	if !s.Steps[1].Result.Equal(s.Final) || s.Steps[0].Result.Equal(s.Final) {
		t.Error("reveal steps decoded incorrectly")
	}
	if s.Metrics["replaced"] != 2 {
		t.Errorf("expected 2 replaced cards, got %v", s.Metrics["replaced"])
	}
}

func TestDecodeSettlement_ServerLabelWins(t *testing.T) {
	m := New(nil)
	s, err := m.DecodeSettlement(&providers.Settlement{
		Final: providers.Payload{"cards": cards("2S", "5H", "9D", "JC", "AS"), "rank": "High Card"},
		Label: "No win",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Label != "No win" {
		t.Errorf("expected server label, got %q", s.Label)
	}
}
