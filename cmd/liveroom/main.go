// Package main is the liveroom terminal client.
//
// It joins a session topic on a relay and drives the shared whiteboard, code
// buffer, chat and media toggles from line commands:
//
//	liveroom token --user alice --topic match-1 --save
//	liveroom join match-1
//
// Configuration comes from ~/.liveroom/config.yaml, LIVEROOM_* environment
// variables and the persistent flags, in that order.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piyushdolas8/skillswap/internal/config"
	"github.com/piyushdolas8/skillswap/shared/logger"
)

var (
	version = "dev"

	flagConfig    string
	flagServer    string
	flagToken     string
	flagTransport string
	flagDebug     bool
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "liveroom",
		Short:        "Live peer-learning sessions from the terminal",
		Version:      version,
		SilenceUsage: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to config file (or set LIVEROOM_CONFIG)")
	flags.StringVar(&flagServer, "server", "", "Relay URL")
	flags.StringVar(&flagToken, "token", "", "Relay access token")
	flags.StringVar(&flagTransport, "transport", "", "Realtime transport: socketio or ws")
	flags.BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		buildJoinCmd(),
		buildTokenCmd(),
		buildQRCmd(),
		buildDiscoverCmd(),
		buildExplainCmd(),
		buildRoadmapCmd(),
		buildProfileCmd(),
		buildExportCmd(),
	)
	return rootCmd
}

// loadConfig applies the flags the user set on top of file and env config.
func loadConfig(cmd *cobra.Command) (*config.ClientConfig, error) {
	overrides := config.ClientOverrides{}
	flags := cmd.Flags()
	if flags.Changed("config") {
		overrides.ConfigPath = &flagConfig
	}
	if flags.Changed("server") {
		overrides.ServerURL = &flagServer
	}
	if flags.Changed("token") {
		overrides.Token = &flagToken
	}
	if flags.Changed("transport") {
		overrides.Transport = &flagTransport
	}
	if flags.Changed("debug") {
		overrides.Debug = &flagDebug
	}

	cfg, err := config.LoadClient(overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}
	return cfg, nil
}
