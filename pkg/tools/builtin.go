package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/teslashibe/reachy-brain/pkg/bridge"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// Limits for move_head.
const (
	MaxMoveDuration     = 10.0
	DefaultMoveDuration = 1.0
	lookDuration        = 500 * time.Millisecond
)

// Spotify actions accepted by query_external_service.
var (
	spotifyActions = []string{"play", "status", "next", "previous", "pause", "resume", "shuffle", "volume"}
	searchTypes    = []string{"track", "artist", "album", "playlist"}
)

func (d *Dispatcher) builtins() []Tool {
	return []Tool{
		{
			Name:        MoveHead,
			Description: "Move head position. Angles in degrees.",
			Parameters: object(map[string]any{
				"pitch":    map[string]any{"type": "number", "description": "Up/down (-40 to 40)"},
				"yaw":      map[string]any{"type": "number", "description": "Left/right (-180 to 180)"},
				"roll":     map[string]any{"type": "number", "description": "Tilt (-40 to 40)"},
				"duration": map[string]any{"type": "number", "description": "Seconds (default 1)"},
			}),
			Handler: d.moveHead,
		},
		{
			Name:        LookAt,
			Description: "Look in a direction.",
			Parameters: object(map[string]any{
				"direction": map[string]any{"type": "string", "enum": robot.Directions},
			}, "direction"),
			Handler: d.lookAt,
		},
		{
			Name:        PlayEmotion,
			Description: "Express an emotion physically.",
			Parameters: object(map[string]any{
				"emotion": map[string]any{"type": "string", "enum": robot.Emotions},
			}, "emotion"),
			Handler: d.playEmotion,
		},
		{
			Name:        Dance,
			Description: "Play a dance move when asked to dance or celebrate.",
			Parameters: object(map[string]any{
				"move": map[string]any{"type": "string", "description": "Dance name or 'random'", "enum": append([]string{"random"}, robot.Dances...)},
			}, "move"),
			Handler: d.dance,
		},
		{
			Name:        Animate,
			Description: "Quick animation: nod, wave, think, look, wiggle.",
			Parameters: object(map[string]any{
				"name": map[string]any{"type": "string", "enum": bridge.AnimationNames()},
			}, "name"),
			Handler: d.animate,
		},
		{
			Name:        RecallMemory,
			Description: "Search memory about the user.",
			Parameters: object(map[string]any{
				"query": map[string]any{"type": "string", "description": "What to remember"},
			}, "query"),
			Feedback: true,
			Handler:  d.recall,
		},
		{
			Name:        Remember,
			Description: "Save a fact about the user.",
			Parameters: object(map[string]any{
				"fact": map[string]any{"type": "string", "description": "Fact to save"},
			}, "fact"),
			Handler: d.remember,
		},
		{
			Name:        QueryExternalService,
			Description: "Use an outside service: spotify (play, status, next, previous, pause, resume, shuffle, volume) or telegram (send).",
			Parameters: object(map[string]any{
				"service": map[string]any{"type": "string", "enum": []string{"spotify", "telegram"}},
				"action":  map[string]any{"type": "string"},
				"args": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{"type": "string"},
						"type":  map[string]any{"type": "string", "enum": searchTypes},
						"value": map[string]any{"type": "integer"},
						"text":  map[string]any{"type": "string"},
					},
				},
			}, "service", "action"),
			Feedback: true,
			Handler:  d.external,
		},
	}
}

func (d *Dispatcher) moveHead(ctx context.Context, args Args) (any, error) {
	pitch, err := args.Range(MoveHead, "pitch", 0, -robot.MaxPitchDeg, robot.MaxPitchDeg)
	if err != nil {
		return nil, err
	}
	yaw, err := args.Range(MoveHead, "yaw", 0, -robot.MaxYawDeg, robot.MaxYawDeg)
	if err != nil {
		return nil, err
	}
	roll, err := args.Range(MoveHead, "roll", 0, -robot.MaxRollDeg, robot.MaxRollDeg)
	if err != nil {
		return nil, err
	}
	duration, err := args.Number(MoveHead, "duration", DefaultMoveDuration)
	if err != nil {
		return nil, err
	}
	if duration <= 0 || duration > MaxMoveDuration {
		return nil, invalid(MoveHead, "duration", "must be in (0, %g], got %g", MaxMoveDuration, duration)
	}
	if d.robot == nil {
		return nil, fmt.Errorf("%w: robot", ErrUnavailable)
	}

	req := robot.NewGoto(robot.Degrees(pitch, yaw, roll), time.Duration(duration*float64(time.Second)))
	if err := d.robot.Goto(ctx, req); err != nil {
		return nil, err
	}
	return map[string]any{"status": "moved", "pitch": pitch, "yaw": yaw, "roll": roll}, nil
}

func (d *Dispatcher) lookAt(ctx context.Context, args Args) (any, error) {
	dir, err := args.OneOf(LookAt, "direction", robot.Directions)
	if err != nil {
		return nil, err
	}
	pose, _ := robot.Look(dir)
	if d.robot == nil {
		return nil, fmt.Errorf("%w: robot", ErrUnavailable)
	}
	if err := d.robot.Goto(ctx, robot.NewGoto(pose, lookDuration)); err != nil {
		return nil, err
	}
	return map[string]any{"status": "looking", "direction": dir}, nil
}

func (d *Dispatcher) playEmotion(ctx context.Context, args Args) (any, error) {
	emotion, err := args.OneOf(PlayEmotion, "emotion", robot.Emotions)
	if err != nil {
		return nil, err
	}
	if d.robot == nil {
		return nil, fmt.Errorf("%w: robot", ErrUnavailable)
	}
	if _, err := d.robot.PlayMove(ctx, robot.EmotionsDataset, emotion); err != nil {
		return nil, err
	}
	return map[string]any{"status": "expressing", "emotion": emotion}, nil
}

func (d *Dispatcher) dance(ctx context.Context, args Args) (any, error) {
	move, err := args.OneOf(Dance, "move", append([]string{"random"}, robot.Dances...))
	if err != nil {
		return nil, err
	}
	if move == "random" {
		move = robot.Dances[rand.IntN(len(robot.Dances))]
	}
	if d.robot == nil {
		return nil, fmt.Errorf("%w: robot", ErrUnavailable)
	}
	if _, err := d.robot.PlayMove(ctx, robot.DancesDataset, move); err != nil {
		return nil, err
	}
	return map[string]any{"status": "dancing", "move": move}, nil
}

func (d *Dispatcher) animate(ctx context.Context, args Args) (any, error) {
	if _, ok := args["name"]; !ok {
		// Older prompts used "animation".
		if v, ok := args["animation"]; ok {
			args["name"] = v
		}
	}
	name, err := args.OneOf(Animate, "name", bridge.AnimationNames())
	if err != nil {
		return nil, err
	}
	if d.animator == nil {
		return nil, fmt.Errorf("%w: bridge", ErrUnavailable)
	}
	if err := d.animator.Animate(ctx, name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "animating", "animation": name}, nil
}

func (d *Dispatcher) recall(ctx context.Context, args Args) (any, error) {
	query, err := args.Required(RecallMemory, "query")
	if err != nil {
		return nil, err
	}
	if d.memory == nil {
		return map[string]any{"memory": "I don't have access to my memory right now."}, nil
	}
	answer, err := d.memory.Ask(ctx, d.currentSession(), query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"memory": answer}, nil
}

func (d *Dispatcher) remember(ctx context.Context, args Args) (any, error) {
	fact, err := args.Required(Remember, "fact")
	if err != nil {
		return nil, err
	}
	if d.memory == nil {
		return nil, fmt.Errorf("%w: memory", ErrUnavailable)
	}
	if err := d.memory.Remember(ctx, d.currentSession(), fact); err != nil {
		return nil, err
	}
	return map[string]any{"saved": true, "fact": fact}, nil
}

func (d *Dispatcher) external(ctx context.Context, args Args) (any, error) {
	service, err := args.OneOf(QueryExternalService, "service", []string{"spotify", "telegram"})
	if err != nil {
		return nil, err
	}
	params, err := args.Object(QueryExternalService, "args")
	if err != nil {
		return nil, err
	}

	switch service {
	case "telegram":
		if _, err := args.OneOf(QueryExternalService, "action", []string{"send"}); err != nil {
			return nil, err
		}
		text, err := params.Required(QueryExternalService, "text")
		if err != nil {
			return nil, err
		}
		if d.services == nil {
			return nil, fmt.Errorf("%w: relay", ErrUnavailable)
		}
		if err := d.services.Notify(ctx, "system", text); err != nil {
			return nil, err
		}
		return map[string]any{"sent": true}, nil

	default:
		action, err := args.OneOf(QueryExternalService, "action", spotifyActions)
		if err != nil {
			return nil, err
		}
		return d.spotify(ctx, action, params)
	}
}

func (d *Dispatcher) spotify(ctx context.Context, action string, params Args) (any, error) {
	const tool = QueryExternalService
	var (
		query, kind string
		value       *int
		err         error
	)
	switch action {
	case "play":
		if query, err = params.Required(tool, "query"); err != nil {
			return nil, err
		}
		if kind, err = params.String(tool, "type"); err != nil {
			return nil, err
		}
		if kind != "" && !slices.Contains(searchTypes, strings.ToLower(kind)) {
			return nil, invalid(tool, "type", "must be one of %s, got %q", strings.Join(searchTypes, ", "), kind)
		}
	case "volume":
		if _, ok := params["value"]; !ok {
			return nil, invalid(tool, "value", "is required for volume")
		}
		n, err := params.Range(tool, "value", 0, 0, 100)
		if err != nil {
			return nil, err
		}
		v := int(n)
		value = &v
	}
	if d.services == nil {
		return nil, fmt.Errorf("%w: relay", ErrUnavailable)
	}

	switch action {
	case "play":
		return d.services.SpotifyPlay(ctx, query, kind)
	case "status":
		return d.services.SpotifyStatus(ctx)
	case "resume":
		return d.services.SpotifyControl(ctx, "play", nil)
	default:
		return d.services.SpotifyControl(ctx, action, value)
	}
}
