package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/reachy-brain/internal/log"
)

// Cache wraps a Provider and stores synthesized audio on disk keyed by
// provider, voice and text. A hit skips the network entirely.
type Cache struct {
	next   Provider
	dir    string
	voice  string
	logger *slog.Logger
}

type cacheMeta struct {
	Encoding   Encoding `json:"encoding"`
	SampleRate int      `json:"sample_rate"`
	Provider   string   `json:"provider"`
}

// NewCache creates the cache directory and returns the decorator.
// voice distinguishes entries when the same provider is used with several voices.
func NewCache(next Provider, dir, voice string) (*Cache, error) {
	if next == nil {
		return nil, ErrProviderUnavailable
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tts cache: %w", err)
	}
	return &Cache{
		next:   next,
		dir:    dir,
		voice:  voice,
		logger: log.Component("tts.cache"),
	}, nil
}

// Name returns the wrapped provider's name.
func (c *Cache) Name() string { return c.next.Name() }

// Key returns the cache key for text.
func (c *Cache) Key(text string) string {
	sum := sha256.Sum256([]byte(c.next.Name() + "|" + c.voice + "|" + strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:16])
}

// Synthesize returns cached audio when present, otherwise synthesizes and stores it.
func (c *Cache) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	key := c.Key(text)
	if res, ok := c.load(key, text); ok {
		c.logger.Debug("cache hit", "key", key, "chars", len(text))
		return res, nil
	}

	res, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.store(key, res); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return res, nil
}

// Health delegates to the wrapped provider.
func (c *Cache) Health(ctx context.Context) error { return c.next.Health(ctx) }

// Close closes the wrapped provider.
func (c *Cache) Close() error { return c.next.Close() }

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".audio") || strings.HasSuffix(e.Name(), ".json") {
			os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

func (c *Cache) load(key, text string) (*AudioResult, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, key+".audio"))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	metaBytes, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, false
	}
	return &AudioResult{
		Audio:     data,
		Format:    AudioFormat{Encoding: meta.Encoding, SampleRate: meta.SampleRate, Channels: 1},
		Provider:  meta.Provider,
		Cached:    true,
		CharCount: len(text),
	}, true
}

func (c *Cache) store(key string, res *AudioResult) error {
	meta, err := json.Marshal(cacheMeta{
		Encoding:   res.Format.Encoding,
		SampleRate: res.Format.SampleRate,
		Provider:   res.Provider,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, key+".json"), meta, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key+".audio"), res.Audio, 0o644)
}

var _ Provider = (*Cache)(nil)
