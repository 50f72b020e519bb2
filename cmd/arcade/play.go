package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/session"
)

// Menu entries offered next to the game's own actions
const (
	choiceForfeit = "[forfeit]"
	choiceCancel  = "[cancel]"
	choiceQuit    = "[quit]"
)

func newPlayCmd(flags *globalFlags) *cobra.Command {
	var stake string

	cmd := &cobra.Command{
		Use:   "play <game>",
		Short: "Play a game interactively in the terminal",
		Long: `Play rounds of a game against the remote service. Replays of each
settlement are rendered step by step.

Examples:
  arcade play blackjack
  arcade play roulette --stake 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, flags, args[0], stake)
		},
	}
	cmd.Flags().StringVarP(&stake, "stake", "s", "", "Stake for every round (asked when empty)")
	return cmd
}

func runPlay(ctx context.Context, flags *globalFlags, gameCode, stakeFlag string) error {
	rt, cleanup, err := flags.runtime(quietStdout)
	if err != nil {
		return err
	}
	defer cleanup()

	frames, cancel := rt.Feed.Listen(ctx, gameCode)
	defer cancel()
	go func() {
		for fr := range frames {
			printFrame(fr)
		}
	}()

	ctrl, err := rt.Arcade.Controller(ctx, gameCode)
	if err != nil {
		return err
	}
	spinner, _ := pterm.DefaultSpinner.Start("Loading table...")
	if err := ctrl.Load(ctx); err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success("Table loaded")

	for ctx.Err() == nil {
		snap := ctrl.Snapshot()
		pterm.Info.Printfln("Balance: %s", snap.LastKnownBalance)

		stake, ok, err := chooseStake(stakeFlag, snap.AllowedStakes)
		if err != nil || !ok {
			return err
		}
		if err := ctrl.Start(ctx, stake, nil); err != nil {
			if !handlePlayError(ctx, ctrl, err) {
				return err
			}
			continue
		}

		if quit := playRound(ctx, ctrl); quit {
			ctrl.Abandon()
			return nil
		}
	}
	return nil
}

// quietStdout keeps log lines out of the interactive terminal
func quietStdout(cfg *config.Config) {
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "discard"
	}
}

// playRound prompts for actions until the session settles; it reports
// whether the player asked to quit
func playRound(ctx context.Context, ctrl session.Controller) bool {
	for ctx.Err() == nil {
		snap := ctrl.Snapshot()
		switch snap.Phase {
		case session.PhaseResolving, session.PhaseSettled:
			if err := ctrl.WaitSettled(ctx); err != nil {
				pterm.Error.Println(err.Error())
				return true
			}
			printOutcome(ctrl.Snapshot())
			if err := ctrl.Acknowledge(); err != nil {
				pterm.Error.Println(err.Error())
			}
			return false
		case session.PhaseIdle:
			return false
		}

		options := append(append([]string(nil), snap.Actions...), choiceForfeit, choiceCancel, choiceQuit)
		choice, err := pterm.DefaultInteractiveSelect.WithOptions(options).WithDefaultText("Action").Show()
		if err != nil {
			return true
		}

		switch choice {
		case choiceQuit:
			return true
		case choiceForfeit:
			err = ctrl.Forfeit(ctx)
		case choiceCancel:
			err = ctrl.Cancel(ctx)
		default:
			err = ctrl.Act(ctx, choice, nil)
		}
		if err != nil && !handlePlayError(ctx, ctrl, err) {
			return true
		}
	}
	return true
}

// chooseStake returns the flag's stake or asks for one
func chooseStake(flag string, allowed []decimal.Decimal) (decimal.Decimal, bool, error) {
	if flag != "" {
		stake, err := decimal.NewFromString(flag)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("invalid stake %q: %w", flag, err)
		}
		return stake, true, nil
	}

	options := make([]string, 0, len(allowed)+1)
	for _, s := range allowed {
		options = append(options, s.String())
	}
	options = append(options, choiceQuit)
	choice, err := pterm.DefaultInteractiveSelect.WithOptions(options).WithDefaultText("Stake").Show()
	if err != nil || choice == choiceQuit {
		return decimal.Zero, false, nil
	}
	stake, err := decimal.NewFromString(choice)
	return stake, err == nil, err
}

// handlePlayError prints err and recovers the session where possible; it
// reports whether play can continue
func handlePlayError(ctx context.Context, ctrl session.Controller, err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrValidation, errors.ErrServiceRejection, errors.ErrInvalidTransition:
		pterm.Warning.Println(err.Error())
		return true
	case errors.ErrNetworkFailure, errors.ErrPayload:
		pterm.Error.Println(err.Error())
		switch ctrl.Snapshot().Phase {
		case session.PhaseFailed:
			return ctrl.Retry() == nil
		case session.PhaseActive:
			if rerr := ctrl.Reconcile(ctx); rerr != nil {
				pterm.Warning.Printfln("Reconcile failed: %s", rerr)
			}
		}
		return true
	case errors.ErrUnauthorized:
		pterm.Error.Println("Credentials rejected, sign in again and restart")
		return false
	default:
		pterm.Error.Println(err.Error())
		return false
	}
}
