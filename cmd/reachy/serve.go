package main

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/pkg/bridge"
	"github.com/teslashibe/reachy-brain/pkg/relay"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

func newRelayCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the Telegram and Spotify relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			logger := log.Component("relay")
			if cfg.TelegramToken == "" {
				logger.Warn("TELEGRAM_BOT_TOKEN not set, messages will be rejected")
			}
			srv := relay.NewServer(
				relay.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID),
				relay.NewSpotify(cfg.SpotifyCommand),
				logger,
			)

			apps := map[int]*fiber.App{
				cfg.RelayPort: srv.NewApp("Reachy Relay", false),
			}
			if cfg.SpotifyRelayPort != cfg.RelayPort {
				apps[cfg.SpotifyRelayPort] = srv.NewApp("Reachy Spotify Relay", true)
			}

			errc := make(chan error, len(apps))
			for port, app := range apps {
				logger.Info("relay listening", "port", port)
				go func(app *fiber.App, port int) { errc <- relay.Listen(app, port) }(app, port)
			}

			select {
			case err = <-errc:
			case <-ctx.Done():
			}
			for _, app := range apps {
				app.Shutdown()
			}
			return err
		},
	}
}

func newBridgeCmd(g *globalFlags) *cobra.Command {
	var recordings string
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Run the audio and motion bridge next to the robot daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			srv := bridge.NewServer(
				robot.NewClient(cfg.RobotAPIURL()),
				bridge.WithPort(cfg.BridgePort),
				bridge.WithRecordingsDir(recordings),
			)
			go func() {
				<-ctx.Done()
				srv.Shutdown()
			}()
			if err := srv.Start(); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordings, "recordings", bridge.DefaultRecordingsDir, "directory shared with the daemon audio API")
	return cmd
}
