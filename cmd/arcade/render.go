package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/Digital-Creators-Team/arcade-client/events/kafka"
	"github.com/Digital-Creators-Team/arcade-client/replay"
	"github.com/Digital-Creators-Team/arcade-client/session"
	"github.com/Digital-Creators-Team/arcade-client/stats"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// boardText renders a board for the terminal
func boardText(board any) string {
	if s, ok := board.(fmt.Stringer); ok {
		return strings.TrimRight(s.String(), "\n")
	}
	return fmt.Sprintf("%+v", board)
}

// frameLine renders one replay frame as a single status line
func frameLine(fr replay.Frame) string {
	switch fr.Kind {
	case replay.FrameHighlight:
		line := fmt.Sprintf("step %d %s", fr.Step+1, fr.StepKind)
		if len(fr.Marks) > 0 {
			line += fmt.Sprintf(" %v", fr.Marks)
		}
		if fr.Motion != nil {
			line += fmt.Sprintf(" %.1f -> %.1f", fr.Motion.From, fr.Motion.To)
		}
		return line
	case replay.FrameApply:
		return boardText(fr.Board)
	case replay.FrameFinish:
		if fr.Corrected {
			return "final state (corrected)"
		}
		return "final state"
	default:
		return fr.Kind
	}
}

// printFrame writes a frame with pterm styling
func printFrame(fr replay.Frame) {
	switch fr.Kind {
	case replay.FrameHighlight:
		pterm.Info.Println(frameLine(fr))
	case replay.FrameApply:
		pterm.Println(frameLine(fr))
	case replay.FrameFinish:
		if fr.Corrected {
			pterm.Warning.Println(frameLine(fr))
			return
		}
		pterm.Success.Println(frameLine(fr))
	}
}

// printOutcome summarises a settled session
func printOutcome(snap session.Snapshot) {
	o := snap.LastOutcome
	if o == nil {
		return
	}
	label := o.Label
	if label == "" {
		label = o.Result
	}
	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)
	text := pterm.Sprintfln("%s\nnet %s  payout %s\nbalance %s", label, o.Net, o.Payout, snap.LastKnownBalance)
	title := pterm.LightGreen("|SETTLED|")
	if o.Net.IsNegative() {
		title = pterm.LightRed("|SETTLED|")
	}
	pbox.WithTitle(title).WithTitleTopCenter().Println(text)
}

// writeStats renders a statistics snapshot in the requested format
func writeStats(w io.Writer, snap stats.Snapshot, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(statsTable(snap)).Render()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func statsTable(snap stats.Snapshot) pterm.TableData {
	row := func(name string, t stats.Totals) []string {
		return []string{
			name,
			fmt.Sprint(t.Rounds),
			fmt.Sprint(t.Wins),
			t.Wagered.String(),
			t.Won.String(),
			t.BestGain.String(),
		}
	}
	return pterm.TableData{
		{"Totals", "Rounds", "Wins", "Wagered", "Won", "Best gain"},
		row("session", snap.Visible),
		row("all time", snap.Permanent),
	}
}

// writeTallies renders the monitor's per-game event counts
func writeTallies(w io.Writer, tallies map[string]kafka.GameTally) error {
	data := pterm.TableData{{"Game", "Settlements", "Violations"}}
	codes := lo.Keys(tallies)
	slices.Sort(codes)
	for _, code := range codes {
		t := tallies[code]
		data = append(data, []string{code, fmt.Sprint(t.Settlements), fmt.Sprint(t.Violations)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
