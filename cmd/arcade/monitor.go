package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/events/kafka"
	"github.com/Digital-Creators-Team/arcade-client/logging"
	"github.com/Digital-Creators-Team/arcade-client/wire"
)

func newMonitorCmd(flags *globalFlags) *cobra.Command {
	var gameCode string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Follow settlement and consistency events from Kafka",
		Long: `Consume the operator topics and print each settlement and consistency
violation as it arrives. Per-game tallies are printed on exit.

Examples:
  arcade monitor
  arcade monitor --game roulette`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New(errors.ErrConfig, "kafka.brokers is empty, nothing to monitor")
			}

			logger := logging.WithComponent(wire.ProvideLogger(cfg), "monitor")
			consumer := wire.ProvideConsumer(cfg, logger)
			if err := consumer.Start(); err != nil {
				return err
			}
			defer consumer.Stop() //nolint:errcheck

			var sub *kafka.Subscription
			if gameCode == "" {
				sub = consumer.SubscribeAll()
			} else {
				sub = consumer.Subscribe(gameCode)
			}
			defer consumer.Unsubscribe(sub)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pterm.Info.Printfln("Listening on %v", cfg.Kafka.Brokers)
			for {
				select {
				case <-ctx.Done():
					pterm.Println()
					return writeTallies(cmd.OutOrStdout(), consumer.Tallies())
				case ev, ok := <-sub.Channel:
					if !ok {
						return nil
					}
					printEvent(ev)
				}
			}
		},
	}
	cmd.Flags().StringVarP(&gameCode, "game", "g", "", "Only show events for this game")
	return cmd
}

func printEvent(ev kafka.Event) {
	switch ev.Kind {
	case kafka.EventSettlement:
		s := ev.Settlement
		pterm.Success.Printfln("%s %s stake %s payout %s gain %s", s.GameCode, s.SessionID, s.Stake, s.Payout, s.Gain)
	case kafka.EventViolation:
		v := ev.Violation
		pterm.Warning.Printfln("%s %s replay of %d steps disagreed with the final state", v.GameCode, v.SessionID, v.Steps)
	}
}
