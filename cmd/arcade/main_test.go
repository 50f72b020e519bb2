package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Digital-Creators-Team/arcade-client/events/kafka"
	"github.com/Digital-Creators-Team/arcade-client/game"
	"github.com/Digital-Creators-Team/arcade-client/game/cascadas"
	"github.com/Digital-Creators-Team/arcade-client/replay"
	"github.com/Digital-Creators-Team/arcade-client/stats"
)

func init() {
	pterm.DisableStyling()
}

func TestFrameLine(t *testing.T) {
	tests := []struct {
		name  string
		frame replay.Frame
		want  string
	}{
		{"highlight with marks", replay.Frame{Kind: replay.FrameHighlight, Step: 0, StepKind: "reveal", Marks: []int{3, 4}}, "step 1 reveal [3 4]"},
		{"highlight with motion", replay.Frame{Kind: replay.FrameHighlight, Step: 1, StepKind: "spin", Motion: &game.Motion{From: 10, To: 370}}, "step 2 spin 10.0 -> 370.0"},
		{"apply stringer", replay.Frame{Kind: replay.FrameApply, Board: cascadas.Matrix{Rows: 1, Cols: 2, Cells: []int{1, 2}}}, " 1  2"},
		{"finish", replay.Frame{Kind: replay.FrameFinish}, "final state"},
		{"finish corrected", replay.Frame{Kind: replay.FrameFinish, Corrected: true}, "final state (corrected)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frameLine(tt.frame); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func testSnapshot() stats.Snapshot {
	return stats.Snapshot{
		GameCode: "poker",
		Visible:  stats.Totals{Rounds: 2, Wins: 1, Wagered: decimal.NewFromInt(200), Won: decimal.NewFromInt(300), BestGain: decimal.NewFromInt(200)},
		Permanent: stats.Totals{Rounds: 5, Wins: 2, Wagered: decimal.NewFromInt(500), Won: decimal.NewFromInt(600),
			BestGain: decimal.NewFromInt(200)},
	}
}

func TestWriteStats(t *testing.T) {
	snap := testSnapshot()

	var buf bytes.Buffer
	if err := writeStats(&buf, snap, formatJSON); err != nil {
		t.Fatal(err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if fromJSON["gameCode"] != "poker" {
		t.Errorf("unexpected json %s", buf.String())
	}

	buf.Reset()
	if err := writeStats(&buf, snap, formatYAML); err != nil {
		t.Fatal(err)
	}
	var fromYAML struct {
		GameCode  string `yaml:"game_code"`
		Permanent struct {
			Rounds int `yaml:"rounds"`
		} `yaml:"permanent"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if fromYAML.GameCode != "poker" || fromYAML.Permanent.Rounds != 5 {
		t.Errorf("unexpected yaml %s", buf.String())
	}

	buf.Reset()
	if err := writeStats(&buf, snap, formatTable); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Rounds", "session", "all time", "500"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected table to contain %q:\n%s", want, buf.String())
		}
	}

	if err := writeStats(&buf, snap, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteTallies(t *testing.T) {
	var buf bytes.Buffer
	err := writeTallies(&buf, map[string]kafka.GameTally{
		"roulette": {Settlements: 3},
		"minas":    {Settlements: 1, Violations: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "minas") > strings.Index(out, "roulette") {
		t.Errorf("expected games sorted:\n%s", out)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ARCADE_TEST_TOKEN=abc\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARCADE_TEST_TOKEN", "")
	os.Unsetenv("ARCADE_TEST_TOKEN")
	if err := loadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("ARCADE_TEST_TOKEN"); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "logging:\n  level: error\nstorage:\n  driver: sqlite\n  path: " + filepath.Join(dir, "arcade.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"stats", "roulette", "--config", cfgPath, "--env-file", "", "--format", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode %s: %v", out.String(), err)
	}
	if snap.GameCode != "roulette" || snap.Permanent.Rounds != 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"stats", "roulette", "--config", cfgPath, "--env-file", "", "--reset", "everything"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown reset scope")
	}
}
