package main

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/wire"
)

var version = getVersion()

// getVersion returns the module version from build info
func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

// globalFlags are shared by every command
type globalFlags struct {
	configFile string
	configDir  string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "arcade",
		Short: "Arcade client - play server-authoritative casino games",
		Long: `Arcade client for the remote game service.

Every outcome is decided by the service; the client guards stakes, drives the
session lifecycle, replays settlements step by step and keeps statistics.

Example:
  arcade play minas --config config/config.yaml
  arcade stats roulette --format yaml
  arcade serve --config-dir config
  arcade monitor`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(flags.envFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "Directory holding config-<env>.yaml, env from ENV or APP_ENV")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before the config")

	rootCmd.AddCommand(newPlayCmd(flags))
	rootCmd.AddCommand(newStatsCmd(flags))
	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newMonitorCmd(flags))
	return rootCmd
}

// loadEnvFile loads a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves the configuration from the global flags
func (f *globalFlags) loadConfig() (*config.Config, error) {
	switch {
	case f.configFile != "":
		return config.Load(f.configFile)
	case f.configDir != "":
		return config.LoadByEnv(f.configDir)
	default:
		return config.Default(), nil
	}
}

// runtime loads the configuration, applies the overrides and assembles the client
func (f *globalFlags) runtime(overrides ...func(*config.Config)) (*wire.Runtime, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	return wire.InitializeRuntime(cfg)
}
