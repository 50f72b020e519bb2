package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP bridge",
		Long: `Expose the game controllers over HTTP and stream replay frames over
WebSocket for browser front ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := flags.runtime()
			if err != nil {
				return err
			}
			defer cleanup()
			return rt.Server.Run()
		},
	}
}
