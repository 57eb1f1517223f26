// Command reachy runs and supervises the Reachy Mini voice stack.
//
//	reachy start            # daemon, bridge, relay and agent, in order
//	reachy status           # one health probe per service
//	reachy stop             # reverse order, robot goes to sleep
//	reachy agent            # the voice loop with its dashboard
//	reachy relay            # Telegram and Spotify relay
//	reachy bridge           # audio and motion bridge, runs on the robot
//	reachy deploy --restart # push .env and files to the robot
//	reachy say "hello"      # synthesize and play one phrase
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/reachy-brain/internal/config"
	"github.com/teslashibe/reachy-brain/internal/log"
)

type globalFlags struct {
	envFile  string
	logLevel string
	robotIP  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "reachy",
		Short:         "Reachy Mini voice assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.envFile, "env", config.DefaultEnvFile, "env file with credentials and endpoints")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&g.robotIP, "robot", "", "robot address (overrides REACHY_IP)")

	root.AddCommand(
		newStartCmd(g),
		newStopCmd(g),
		newStatusCmd(g),
		newAgentCmd(g),
		newRelayCmd(g),
		newBridgeCmd(g),
		newDeployCmd(g),
		newSayCmd(g),
	)
	return root
}

// load reads the env file and initializes logging.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if g.robotIP != "" {
		cfg = cfg.WithRobotIP(g.robotIP)
	}
	level := cfg.LogLevel
	if g.logLevel != "" {
		level = g.logLevel
	}
	log.Init(level)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
