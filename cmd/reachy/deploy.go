package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/reachy-brain/internal/config"
	"github.com/teslashibe/reachy-brain/pkg/remote"
	"github.com/teslashibe/reachy-brain/pkg/supervisor"
)

// upload is one local file and its destination relative to the remote dir.
type upload struct {
	local  string
	remote string
}

// parseUpload accepts "local" or "local:remote".
func parseUpload(arg string) (upload, error) {
	local, dest, ok := strings.Cut(arg, ":")
	if local == "" {
		return upload{}, fmt.Errorf("invalid --file %q", arg)
	}
	if !ok || dest == "" {
		dest = filepath.Base(local)
	}
	return upload{local: local, remote: dest}, nil
}

func (u upload) target(dir string) string {
	if path.IsAbs(u.remote) {
		return u.remote
	}
	return path.Join(dir, u.remote)
}

func newDeployCmd(g *globalFlags) *cobra.Command {
	var (
		files   []string
		restart bool
	)
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload the env file and optional files to the robot",
		Long: "Deploy writes the current configuration to the robot as .env, with\n" +
			"REACHY_IP pointed at the loopback interface, uploads each --file and\n" +
			"optionally restarts the services that run on the robot.",
		Example: "  reachy deploy --file dist/reachy-linux-arm64:reachy --restart",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			var uploads []upload
			for _, f := range files {
				u, err := parseUpload(f)
				if err != nil {
					return err
				}
				uploads = append(uploads, u)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			fmt.Printf("📦 Deploying to %s@%s:%s\n", cfg.SSHUser, cfg.SSHAddr(), cfg.RemoteDir)
			sess, err := remote.Dial(ctx, remote.Config{Addr: cfg.SSHAddr(), User: cfg.SSHUser, Password: cfg.SSHPass})
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := deploy(ctx, sess, cfg, uploads); err != nil {
				return err
			}
			if !restart {
				return nil
			}

			fmt.Println("🔄 Restarting robot services...")
			s, err := newSupervisor(cfg, g.envFile, sess, func(d supervisor.ServiceDescriptor) bool {
				return d.Kind == supervisor.KindRemote
			})
			if err != nil {
				return err
			}
			rep := s.Start(ctx)
			printReport(rep)
			if !rep.OK {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&files, "file", nil, "extra file to upload as local[:remote], repeatable")
	cmd.Flags().BoolVar(&restart, "restart", false, "restart the robot-side services after uploading")
	return cmd
}

// uploader is the subset of *remote.Session deploy needs.
type uploader interface {
	Upload(ctx context.Context, data []byte, remotePath string, mode os.FileMode) error
}

func deploy(ctx context.Context, u uploader, cfg config.Config, uploads []upload) error {
	env, err := config.Marshal(cfg.WithRobotIP("127.0.0.1"))
	if err != nil {
		return err
	}
	envPath := path.Join(cfg.RemoteDir, ".env")
	if err := u.Upload(ctx, []byte(env), envPath, 0o600); err != nil {
		return fmt.Errorf("upload .env: %w", err)
	}
	fmt.Printf("   ✅ %s\n", envPath)

	for _, f := range uploads {
		data, err := os.ReadFile(f.local)
		if err != nil {
			return err
		}
		info, err := os.Stat(f.local)
		if err != nil {
			return err
		}
		dest := f.target(cfg.RemoteDir)
		start := time.Now()
		if err := u.Upload(ctx, data, dest, info.Mode().Perm()); err != nil {
			return fmt.Errorf("upload %s: %w", f.local, err)
		}
		fmt.Printf("   ✅ %s (%d KB, %s)\n", dest, len(data)/1024, time.Since(start).Round(time.Millisecond))
	}
	return nil
}
