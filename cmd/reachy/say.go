package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/reachy-brain/pkg/bridge"
	"github.com/teslashibe/reachy-brain/pkg/tts"
	"github.com/teslashibe/reachy-brain/pkg/voice"
)

func newSayCmd(g *globalFlags) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Synthesize one phrase and play it on the robot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			text := voice.CleanSpeech(strings.Join(args, " "), voice.DefaultConfig().MaxSpeechChars)
			if text == "" {
				return tts.ErrEmptyText
			}
			settings := tts.Settings{
				Primary:       cfg.TTSProvider,
				Fallback:      cfg.TTSFallback,
				ElevenLabsKey: cfg.ElevenLabsKey,
				OpenAIKey:     cfg.OpenAIKey,
				Voice:         cfg.VoiceID,
				CacheDir:      cfg.CacheDir(),
			}
			if provider != "" {
				settings.Primary, settings.Fallback = provider, ""
			}
			synth, err := tts.Build(settings)
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := synth.Synthesize(ctx, text)
			if err != nil {
				return err
			}
			wav, err := res.WAV()
			if err != nil {
				return err
			}
			fmt.Printf("🔊 %s: %d bytes in %s (cached: %v)\n", res.Provider, len(wav), time.Since(start).Round(time.Millisecond), res.Cached)

			if err := bridge.NewClient(cfg.BridgeURL()).Play(ctx, wav); err != nil {
				return err
			}
			fmt.Println("✅ Played")
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "TTS provider to use instead of TTS_PROVIDER")
	return cmd
}
