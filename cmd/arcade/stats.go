package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Reset scopes
const (
	resetVisible = "visible"
	resetAll     = "all"
)

func newStatsCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		reset  string
	)

	cmd := &cobra.Command{
		Use:   "stats <game>",
		Short: "Show or reset a game's statistics",
		Long: `Show the session and all-time totals and the history of a game.

Examples:
  arcade stats poker
  arcade stats minas --format yaml
  arcade stats cascadas --reset visible`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := flags.runtime()
			if err != nil {
				return err
			}
			defer cleanup()

			ctrl, err := rt.Arcade.Controller(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ledger := ctrl.Ledger()
			switch reset {
			case "":
			case resetVisible:
				ledger.ResetVisible()
			case resetAll:
				ledger.ResetAll()
			default:
				return fmt.Errorf("unknown reset scope %q, want %s or %s", reset, resetVisible, resetAll)
			}
			return writeStats(cmd.OutOrStdout(), ledger.Snapshot(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	cmd.Flags().StringVar(&reset, "reset", "", "Reset totals first: visible or all")
	return cmd
}
