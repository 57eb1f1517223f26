package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/reachy-brain/internal/config"
	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/pkg/remote"
	"github.com/teslashibe/reachy-brain/pkg/robot"
	"github.com/teslashibe/reachy-brain/pkg/supervisor"
)

// errFailed makes the process exit non-zero after the report was printed.
var errFailed = errors.New("one or more services failed")

func newStartCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon, bridge, relay and agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return supervise(cmd.Context(), g, func(ctx context.Context, s *supervisor.Supervisor) supervisor.Report {
				fmt.Println("🚀 Starting Reachy services...")
				return s.Start(ctx)
			})
		},
	}
}

func newStopCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop every service and put the robot to sleep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return supervise(cmd.Context(), g, func(ctx context.Context, s *supervisor.Supervisor) supervisor.Report {
				fmt.Println("🛑 Stopping Reachy services...")
				return s.Stop(ctx)
			})
		},
	}
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe each service once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return supervise(cmd.Context(), g, func(ctx context.Context, s *supervisor.Supervisor) supervisor.Report {
				return s.Status(ctx)
			})
		},
	}
}

func supervise(parent context.Context, g *globalFlags, op func(context.Context, *supervisor.Supervisor) supervisor.Report) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(parent)
	defer cancel()

	ssh := remote.NewLazy(remote.Config{Addr: cfg.SSHAddr(), User: cfg.SSHUser, Password: cfg.SSHPass})
	defer ssh.Close()

	s, err := newSupervisor(cfg, g.envFile, ssh, nil)
	if err != nil {
		return err
	}
	rep := op(ctx, s)
	printReport(rep)
	if !rep.OK {
		return errFailed
	}
	return nil
}

// newSupervisor builds the services from the default manifest and the
// optional overlay. keep, when non-nil, selects the services to manage.
func newSupervisor(cfg config.Config, envFile string, ssh remote.Runner, keep func(supervisor.ServiceDescriptor) bool) (*supervisor.Supervisor, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	m, err := supervisor.LoadManifest(cfg.ManifestPath, supervisor.DefaultManifest(cfg, exe, envFile))
	if err != nil {
		return nil, err
	}
	descs, err := m.Build(supervisor.Deps{
		Robot:  robot.NewClient(cfg.RobotAPIURL()),
		Remote: ssh,
		HTTP:   httpc.New(),
	})
	if err != nil {
		return nil, err
	}
	if keep != nil {
		var kept []supervisor.ServiceDescriptor
		for _, d := range descs {
			if keep(d) {
				kept = append(kept, d)
			}
		}
		descs = kept
	}
	return supervisor.New(descs, supervisor.WithPolicy(m.Attempts, m.Interval))
}

func printReport(rep supervisor.Report) {
	for _, s := range rep.Services {
		fmt.Printf("   %s %-7s %s\n", stateIcon(s.State), s.Name, describe(s))
	}
	switch {
	case rep.OK && rep.Op == "status":
		fmt.Println("✅ All services healthy")
	case rep.OK:
		fmt.Printf("✅ %s complete in %s\n", rep.Op, rep.Elapsed.Round(100*time.Millisecond))
	default:
		fmt.Printf("⚠️  %s: %s failed\n", rep.Op, strings.Join(rep.Failed(), ", "))
	}
}

func describe(s supervisor.ServiceStatus) string {
	if s.Err == nil {
		return string(s.State)
	}
	return fmt.Sprintf("%s: %v", s.State, s.Err)
}

func stateIcon(s supervisor.State) string {
	switch s {
	case supervisor.StateHealthy:
		return "🟢"
	case supervisor.StateStopped:
		return "⚪"
	case supervisor.StateUnreachable:
		return "🔌"
	default:
		return "🔴"
	}
}
