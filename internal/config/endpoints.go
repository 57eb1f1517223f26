package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// RobotAPIURL returns the robot daemon REST base URL.
func (c Config) RobotAPIURL() string {
	return fmt.Sprintf("http://%s:%d", c.RobotIP, c.RobotPort)
}

// BridgeURL returns the bridge service base URL.
func (c Config) BridgeURL() string {
	return fmt.Sprintf("http://%s:%d", c.RobotIP, c.BridgePort)
}

// RelayURL returns the message relay base URL.
func (c Config) RelayURL() string {
	return fmt.Sprintf("http://%s:%d", c.RelayHost, c.RelayPort)
}

// SpotifyRelayURL returns the Spotify relay base URL.
func (c Config) SpotifyRelayURL() string {
	return fmt.Sprintf("http://%s:%d", c.RelayHost, c.SpotifyRelayPort)
}

// DashboardURL returns the local agent dashboard URL.
func (c Config) DashboardURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.DashboardPort)
}

// SSHAddr returns host:port for the robot SSH server.
func (c Config) SSHAddr() string {
	return c.RobotIP + ":22"
}

// CacheDir expands a leading ~ in TTSCacheDir.
func (c Config) CacheDir() string {
	return expandHome(c.TTSCacheDir)
}

// Env renders c back into env-file keys.
func (c Config) Env() map[string]string {
	return map[string]string{
		"REACHY_IP":           c.RobotIP,
		"REACHY_PORT":         strconv.Itoa(c.RobotPort),
		"REACHY_SSH_USER":     c.SSHUser,
		"REACHY_SSH_PASS":     c.SSHPass,
		"REACHY_REMOTE_DIR":   c.RemoteDir,
		"BRIDGE_PORT":         strconv.Itoa(c.BridgePort),
		"RELAY_HOST":          c.RelayHost,
		"RELAY_PORT":          strconv.Itoa(c.RelayPort),
		"SPOTIFY_RELAY_PORT":  strconv.Itoa(c.SpotifyRelayPort),
		"DASHBOARD_PORT":      strconv.Itoa(c.DashboardPort),
		"SERVICES_MANIFEST":   c.ManifestPath,
		"CLAWDBOT_ENDPOINT":   c.GatewayURL,
		"CLAWDBOT_TOKEN":      c.GatewayToken,
		"CLAWDBOT_MODEL":      c.GatewayModel,
		"LLM_FALLBACK_URL":    c.FallbackURL,
		"LLM_FALLBACK_TOKEN":  c.FallbackToken,
		"LLM_FALLBACK_MODEL":  c.FallbackModel,
		"OPENAI_API_KEY":      c.OpenAIKey,
		"WHISPER_MODEL":       c.WhisperModel,
		"WHISPER_LANGUAGE":    c.WhisperLanguage,
		"ELEVENLABS_API_KEY":  c.ElevenLabsKey,
		"ELEVENLABS_VOICE_ID": c.VoiceID,
		"TTS_PROVIDER":        c.TTSProvider,
		"TTS_FALLBACK":        c.TTSFallback,
		"TTS_CACHE_DIR":       c.TTSCacheDir,
		"MEMORY_BACKEND":      c.MemoryBackend,
		"HONCHO_API_KEY":      c.HonchoKey,
		"HONCHO_BASE_URL":     c.HonchoURL,
		"HONCHO_WORKSPACE_ID": c.Workspace,
		"REDIS_ADDR":          c.RedisAddr,
		"MEMORY_FILE":         c.MemoryFile,
		"USER_NAME":           c.UserName,
		"TELEGRAM_BOT_TOKEN":  c.TelegramToken,
		"TELEGRAM_CHAT_ID":    c.TelegramChatID,
		"SPOTIFY_COMMAND":     c.SpotifyCommand,
		"VAD_THRESHOLD":       strconv.FormatFloat(c.VADThreshold, 'f', -1, 64),
		"VAD_DEBOUNCE":        strconv.Itoa(c.VADDebounce),
		"VAD_HANGOVER":        strconv.Itoa(c.VADHangover),
		"VAD_MAX_SECONDS":     strconv.FormatFloat(c.VADMaxLength.Seconds(), 'f', -1, 64),
		"LISTEN_WINDOW":       strconv.FormatFloat(c.ListenWindow.Seconds(), 'f', -1, 64),
		"LOG_LEVEL":           c.LogLevel,
	}
}

// Write stores c as an env file at path, omitting empty values.
func Write(path string, c Config) error {
	env := c.Env()
	for k, v := range env {
		if v == "" {
			delete(env, k)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Marshal renders c as env-file text.
func Marshal(c Config) (string, error) {
	env := c.Env()
	for k, v := range env {
		if v == "" {
			delete(env, k)
		}
	}
	return godotenv.Marshal(env)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
