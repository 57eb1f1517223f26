package memory

import (
	"context"
	"fmt"
)

// Settings selects a backend.
type Settings struct {
	Backend   string // honcho, redis, file or none
	HonchoKey string
	HonchoURL string
	Workspace string
	RedisAddr string
	File      string
}

// Open returns the configured backend. A honcho backend without a key
// falls back to the file backend, the way the robot runs offline.
func Open(ctx context.Context, s Settings) (Memory, error) {
	switch s.Backend {
	case "honcho", "":
		if s.HonchoKey == "" {
			if s.File == "" {
				return Noop{}, nil
			}
			return NewFile(s.File)
		}
		var opts []HonchoOption
		if s.HonchoURL != "" {
			opts = append(opts, WithHonchoURL(s.HonchoURL))
		}
		return NewHoncho(s.HonchoKey, s.Workspace, opts...)
	case "redis":
		return NewRedis(ctx, s.RedisAddr, "", 0)
	case "file":
		return NewFile(s.File)
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}
