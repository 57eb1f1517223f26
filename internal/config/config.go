// Package config loads the reachy-brain configuration from a flat env file.
//
// The file is read once at startup into an immutable Config value that is
// passed to every component. Real environment variables with the same key
// take precedence over the file so a single value can be overridden for one run.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultEnvFile          = ".env"
	DefaultRobotIP          = "reachy-mini.local"
	DefaultRobotPort        = 8000
	DefaultSSHUser          = "pollen"
	DefaultSSHPass          = "root"
	DefaultBridgePort       = 9000
	DefaultRelayHost        = "127.0.0.1"
	DefaultRelayPort        = 18800
	DefaultSpotifyRelayPort = 18801
	DefaultDashboardPort    = 8181
	DefaultGatewayURL       = "http://localhost:18789/v1"
	DefaultGatewayModel     = "claude-sonnet-4-20250514"
	DefaultFallbackModel    = "gpt-4o-mini"
	DefaultWhisperModel     = "whisper-1"
	DefaultVoiceID          = "21m00Tcm4TlvDq8ikWAM" // Rachel
	DefaultHonchoURL        = "https://api.honcho.dev"
	DefaultWorkspace        = "reachy-mini"
	DefaultUserName         = "user"
	DefaultTTSCacheDir      = "~/.cache/reachy-tts"
	DefaultMemoryFile       = "reachy-memory.json"
	DefaultRemoteDir        = "/home/pollen/reachy-brain"
)

// Config holds every credential and endpoint the system needs.
// Treat it as immutable: copy-returning helpers such as WithRobotIP
// are the only way to derive a modified value.
type Config struct {
	// Robot
	RobotIP   string
	RobotPort int
	SSHUser   string
	SSHPass   string
	RemoteDir string

	// Cooperating services
	BridgePort       int
	RelayHost        string
	RelayPort        int
	SpotifyRelayPort int
	DashboardPort    int
	ManifestPath     string

	// LLM gateway
	GatewayURL   string
	GatewayToken string
	GatewayModel string

	// Optional OpenAI-compatible backup used when the gateway is down.
	FallbackURL   string
	FallbackToken string
	FallbackModel string

	// Speech
	OpenAIKey       string
	WhisperModel    string
	WhisperLanguage string
	ElevenLabsKey   string
	VoiceID         string
	TTSProvider     string // "elevenlabs" or "openai"
	TTSFallback     string // optional secondary provider
	TTSCacheDir     string

	// Memory
	MemoryBackend string // "honcho", "redis" or "file"
	HonchoKey     string
	HonchoURL     string
	Workspace     string
	RedisAddr     string
	MemoryFile    string
	UserName      string

	// Relay
	TelegramToken  string
	TelegramChatID string
	SpotifyCommand string

	// Voice activity
	VADThreshold float64
	VADDebounce  int
	VADHangover  int
	VADMaxLength time.Duration
	ListenWindow time.Duration

	LogLevel string
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return fromSource(source{})
}

// Load reads the env file at path. A missing file is not an error:
// defaults and process environment still apply.
func Load(path string) (Config, error) {
	values := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if m != nil {
			values = m
		}
	}
	cfg := fromSource(source(values))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromSource(s source) Config {
	return Config{
		RobotIP:   s.str("REACHY_IP", DefaultRobotIP),
		RobotPort: s.int("REACHY_PORT", DefaultRobotPort),
		SSHUser:   s.str("REACHY_SSH_USER", DefaultSSHUser),
		SSHPass:   s.str("REACHY_SSH_PASS", DefaultSSHPass),
		RemoteDir: s.str("REACHY_REMOTE_DIR", DefaultRemoteDir),

		BridgePort:       s.int("BRIDGE_PORT", DefaultBridgePort),
		RelayHost:        s.str("RELAY_HOST", DefaultRelayHost),
		RelayPort:        s.int("RELAY_PORT", DefaultRelayPort),
		SpotifyRelayPort: s.int("SPOTIFY_RELAY_PORT", DefaultSpotifyRelayPort),
		DashboardPort:    s.int("DASHBOARD_PORT", DefaultDashboardPort),
		ManifestPath:     s.str("SERVICES_MANIFEST", ""),

		GatewayURL:   s.str("CLAWDBOT_ENDPOINT", DefaultGatewayURL),
		GatewayToken: s.str("CLAWDBOT_TOKEN", ""),
		GatewayModel: s.str("CLAWDBOT_MODEL", DefaultGatewayModel),

		FallbackURL:   s.str("LLM_FALLBACK_URL", ""),
		FallbackToken: s.str("LLM_FALLBACK_TOKEN", ""),
		FallbackModel: s.str("LLM_FALLBACK_MODEL", DefaultFallbackModel),

		OpenAIKey:       s.str("OPENAI_API_KEY", ""),
		WhisperModel:    s.str("WHISPER_MODEL", DefaultWhisperModel),
		WhisperLanguage: s.str("WHISPER_LANGUAGE", "en"),
		ElevenLabsKey:   s.str("ELEVENLABS_API_KEY", ""),
		VoiceID:         s.str("ELEVENLABS_VOICE_ID", DefaultVoiceID),
		TTSProvider:     s.str("TTS_PROVIDER", "elevenlabs"),
		TTSFallback:     s.str("TTS_FALLBACK", ""),
		TTSCacheDir:     s.str("TTS_CACHE_DIR", DefaultTTSCacheDir),

		MemoryBackend: s.str("MEMORY_BACKEND", "honcho"),
		HonchoKey:     s.str("HONCHO_API_KEY", ""),
		HonchoURL:     s.str("HONCHO_BASE_URL", DefaultHonchoURL),
		Workspace:     s.str("HONCHO_WORKSPACE_ID", DefaultWorkspace),
		RedisAddr:     s.str("REDIS_ADDR", "127.0.0.1:6379"),
		MemoryFile:    s.str("MEMORY_FILE", DefaultMemoryFile),
		UserName:      s.str("USER_NAME", DefaultUserName),

		TelegramToken:  s.str("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: s.str("TELEGRAM_CHAT_ID", ""),
		SpotifyCommand: s.str("SPOTIFY_COMMAND", "spotify_player"),

		VADThreshold: s.float("VAD_THRESHOLD", 0.02),
		VADDebounce:  s.int("VAD_DEBOUNCE", 2),
		VADHangover:  s.int("VAD_HANGOVER", 3),
		VADMaxLength: s.seconds("VAD_MAX_SECONDS", 15*time.Second),
		ListenWindow: s.seconds("LISTEN_WINDOW", 500*time.Millisecond),

		LogLevel: s.str("LOG_LEVEL", "info"),
	}
}

// Validate checks values that would make every component fail.
// Missing API keys are reported by the component that needs them.
func (c Config) Validate() error {
	if c.RobotIP == "" {
		return &Error{Field: "REACHY_IP", Message: "robot address is required"}
	}
	for key, port := range map[string]int{
		"REACHY_PORT":        c.RobotPort,
		"BRIDGE_PORT":        c.BridgePort,
		"RELAY_PORT":         c.RelayPort,
		"SPOTIFY_RELAY_PORT": c.SpotifyRelayPort,
		"DASHBOARD_PORT":     c.DashboardPort,
	} {
		if port <= 0 || port > 65535 {
			return &Error{Field: key, Message: fmt.Sprintf("port %d out of range", port)}
		}
	}
	switch c.MemoryBackend {
	case "honcho", "redis", "file", "none":
	default:
		return &Error{Field: "MEMORY_BACKEND", Message: fmt.Sprintf("unknown memory backend %q", c.MemoryBackend)}
	}
	if c.VADThreshold <= 0 || c.VADThreshold >= 1 {
		return &Error{Field: "VAD_THRESHOLD", Message: "must be between 0 and 1"}
	}
	if c.VADDebounce < 1 || c.VADHangover < 1 {
		return &Error{Field: "VAD_DEBOUNCE", Message: "debounce and hangover must be at least 1"}
	}
	if c.ListenWindow <= 0 {
		return &Error{Field: "LISTEN_WINDOW", Message: "must be positive"}
	}
	return nil
}

// WithRobotIP returns a copy of c addressed at ip. Deployment uses it to
// point the copy shipped to the robot at the loopback interface, and the
// --robot flag to override the env file for one run.
func (c Config) WithRobotIP(ip string) Config {
	c.RobotIP = ip
	return c
}

// Error represents a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config: " + e.Field + ": " + e.Message
}

// source resolves a key against the process environment first, then the file.
type source map[string]string

func (s source) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v), true
	}
	v, ok := s[key]
	return strings.TrimSpace(v), ok
}

func (s source) str(key, fallback string) string {
	if v, ok := s.lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func (s source) int(key string, fallback int) int {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) float(key string, fallback float64) float64 {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) seconds(key string, fallback time.Duration) time.Duration {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}
