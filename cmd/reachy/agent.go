package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/reachy-brain/internal/config"
	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/pkg/bridge"
	"github.com/teslashibe/reachy-brain/pkg/conversation"
	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/memory"
	"github.com/teslashibe/reachy-brain/pkg/relay"
	"github.com/teslashibe/reachy-brain/pkg/robot"
	"github.com/teslashibe/reachy-brain/pkg/stt"
	"github.com/teslashibe/reachy-brain/pkg/tools"
	"github.com/teslashibe/reachy-brain/pkg/tts"
	"github.com/teslashibe/reachy-brain/pkg/vad"
	"github.com/teslashibe/reachy-brain/pkg/voice"
	"github.com/teslashibe/reachy-brain/pkg/web"
)

func newAgentCmd(g *globalFlags) *cobra.Command {
	var noGreet bool
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the voice loop and its dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runAgent(ctx, cfg, !noGreet)
		},
	}
	cmd.Flags().BoolVar(&noGreet, "no-greet", false, "start listening without a greeting")
	return cmd
}

func runAgent(ctx context.Context, cfg config.Config, greet bool) error {
	logger := log.Component("main")

	mem, err := memory.Open(ctx, memory.Settings{
		Backend:   cfg.MemoryBackend,
		HonchoKey: cfg.HonchoKey,
		HonchoURL: cfg.HonchoURL,
		Workspace: cfg.Workspace,
		RedisAddr: cfg.RedisAddr,
		File:      cfg.MemoryFile,
	})
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	defer mem.Close()
	writer := memory.NewWriter(mem)
	defer func() {
		drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := writer.Close(drain); err != nil {
			logger.Warn("memory writer did not drain", "err", err)
		}
	}()

	speech, err := tts.Build(tts.Settings{
		Primary:       cfg.TTSProvider,
		Fallback:      cfg.TTSFallback,
		ElevenLabsKey: cfg.ElevenLabsKey,
		OpenAIKey:     cfg.OpenAIKey,
		Voice:         cfg.VoiceID,
		CacheDir:      cfg.CacheDir(),
	})
	if err != nil {
		return err
	}
	whisper, err := stt.NewWhisper(
		stt.WithAPIKey(cfg.OpenAIKey),
		stt.WithModel(cfg.WhisperModel),
		stt.WithLanguage(cfg.WhisperLanguage),
	)
	if err != nil {
		return err
	}
	llm, err := newLLM(cfg)
	if err != nil {
		return err
	}

	robotBridge := bridge.NewClient(cfg.BridgeURL())
	services := relay.NewClient(cfg.RelayURL(), cfg.SpotifyRelayURL())
	conv := conversation.New(cfg.UserName, cfg.Workspace)

	dispatcher := tools.New(
		tools.WithRobot(robot.NewClient(cfg.RobotAPIURL())),
		tools.WithAnimator(robotBridge),
		tools.WithMemory(mem, conv.Session),
		tools.WithServices(services),
	)

	pipeline, err := voice.New(voice.DefaultConfig(),
		voice.WithTranscriber(whisper),
		voice.WithInference(llm),
		voice.WithSynthesizer(speech),
		voice.WithTools(dispatcher),
		voice.WithMemory(mem, writer),
		voice.WithPlayer(robotBridge),
		voice.WithConversation(conv),
	)
	if err != nil {
		return err
	}

	vcfg := vad.DefaultConfig()
	vcfg.Threshold = cfg.VADThreshold
	vcfg.Debounce = cfg.VADDebounce
	vcfg.Hangover = cfg.VADHangover
	vcfg.MaxDuration = cfg.VADMaxLength
	seg, err := vad.New(vcfg)
	if err != nil {
		return err
	}

	dashboard := web.NewServer(
		web.WithConversation(conv),
		web.WithMetrics(pipeline.Metrics()),
		web.WithTools(dispatcher),
		web.WithSay(pipeline.Say),
	)
	dashErr := make(chan error, 1)
	go func() {
		err := dashboard.Run(ctx, cfg.DashboardPort)
		if err != nil {
			logger.Error("dashboard stopped", "err", err)
		}
		dashErr <- err
	}()

	acfg := voice.DefaultAgentConfig()
	acfg.Window = cfg.ListenWindow
	acfg.Greet = greet
	agent := voice.NewAgent(pipeline, robotBridge, seg,
		voice.WithAgentConfig(acfg),
		voice.WithEventSink(dashboard),
		voice.WithNotifier(services),
	)

	logger.Info("agent ready",
		"robot", cfg.RobotIP,
		"memory", mem.Name(),
		"tts", speech.Name(),
		"dashboard", cfg.DashboardURL(),
	)
	if err := agent.Run(ctx); err != nil {
		return err
	}
	select {
	case <-dashErr:
	case <-time.After(5 * time.Second):
		logger.Warn("dashboard did not shut down")
	}
	return nil
}

// newLLM returns the gateway client, chained with the optional backup.
func newLLM(cfg config.Config) (*inference.Chain, error) {
	gateway, err := inference.NewClient(
		inference.WithBaseURL(cfg.GatewayURL),
		inference.WithAPIKey(cfg.GatewayToken),
		inference.WithModel(cfg.GatewayModel),
	)
	if err != nil {
		return nil, fmt.Errorf("llm gateway: %w", err)
	}
	var backup inference.Provider
	if cfg.FallbackURL != "" {
		token := cfg.FallbackToken
		if token == "" {
			token = cfg.OpenAIKey
		}
		c, err := inference.NewClient(
			inference.WithBaseURL(cfg.FallbackURL),
			inference.WithAPIKey(token),
			inference.WithModel(cfg.FallbackModel),
		)
		if err != nil {
			return nil, fmt.Errorf("llm fallback: %w", err)
		}
		backup = c
	}
	return inference.NewChain(gateway, backup)
}
