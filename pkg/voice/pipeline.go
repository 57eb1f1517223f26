package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/pkg/audio"
	"github.com/teslashibe/reachy-brain/pkg/conversation"
	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/memory"
	"github.com/teslashibe/reachy-brain/pkg/stt"
	"github.com/teslashibe/reachy-brain/pkg/tools"
	"github.com/teslashibe/reachy-brain/pkg/tts"
)

// MemoryContextHeader prefixes recalled memory in the system message.
const MemoryContextHeader = "[User Context from Memory]\n"

// Skip reasons reported in TurnResult.Skipped.
const (
	SkipTooShort        = "too short"
	SkipEmptyTranscript = "empty transcript"
	SkipEmptyResponse   = "empty response"
)

// Common errors returned by the pipeline.
var (
	ErrMissingTranscriber = errors.New("voice: transcriber required")
	ErrMissingInference   = errors.New("voice: inference provider required")
	ErrMissingSynthesizer = errors.New("voice: TTS provider required")
	ErrMissingPlayer      = errors.New("voice: player required")
)

// Player plays synthesized audio on the robot and returns once playback
// has finished. *bridge.Client implements it.
type Player interface {
	Play(ctx context.Context, data []byte) error
}

// Persister stores conversation messages without blocking.
// *memory.Writer implements it.
type Persister interface {
	Enqueue(s memory.Session, msgs ...memory.Message) bool
}

// TurnResult describes one completed turn.
type TurnResult struct {
	ID         string
	Transcript string
	Response   string // text sent to TTS, empty when nothing was spoken
	Tools      []tools.Result

	// Fallback is set when a fixed phrase replaced the model's answer.
	Fallback bool

	// Spoken is set when audio reached the player without error.
	Spoken bool

	// Skipped explains a no-op turn.
	Skipped string

	Metrics Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTranscriber sets the speech-to-text provider.
func WithTranscriber(t stt.Transcriber) Option {
	return func(p *Pipeline) { p.stt = t }
}

// WithInference sets the LLM gateway.
func WithInference(llm inference.Provider) Option {
	return func(p *Pipeline) { p.llm = llm }
}

// WithSynthesizer sets the TTS provider, usually a tts.Chain.
func WithSynthesizer(t tts.Provider) Option {
	return func(p *Pipeline) { p.tts = t }
}

// WithTools sets the tool runner. Without one, tool calls are ignored.
func WithTools(r ToolRunner) Option {
	return func(p *Pipeline) { p.tools = r }
}

// WithMemory sets the memory backend and the writer used to persist turns.
func WithMemory(m memory.Memory, w Persister) Option {
	return func(p *Pipeline) {
		p.memory = m
		p.persister = w
	}
}

// WithPlayer sets the audio player.
func WithPlayer(pl Player) Option {
	return func(p *Pipeline) { p.player = pl }
}

// WithConversation sets the conversation context shared with the dashboard.
func WithConversation(c *conversation.Context) Option {
	return func(p *Pipeline) { p.conv = c }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *MetricsCollector) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline runs conversation turns. It is driven by one goroutine; a turn
// is complete, playback included, before the next may start.
type Pipeline struct {
	cfg Config

	stt       stt.Transcriber
	llm       inference.Provider
	tts       tts.Provider
	tools     ToolRunner
	memory    memory.Memory
	persister Persister
	player    Player

	conv    *conversation.Context
	metrics *MetricsCollector
	logger  *slog.Logger
}

// New creates a Pipeline. Transcriber, inference, synthesizer and player
// are required.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:     cfg,
		memory:  memory.Noop{},
		metrics: NewMetricsCollector(),
		logger:  log.Component("voice"),
	}
	for _, opt := range opts {
		opt(p)
	}
	switch {
	case p.stt == nil:
		return nil, ErrMissingTranscriber
	case p.llm == nil:
		return nil, ErrMissingInference
	case p.tts == nil:
		return nil, ErrMissingSynthesizer
	case p.player == nil:
		return nil, ErrMissingPlayer
	}
	if p.memory == nil {
		p.memory = memory.Noop{}
	}
	if p.conv == nil {
		p.conv = conversation.New("", "")
	}
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Conversation returns the conversation context.
func (p *Pipeline) Conversation() *conversation.Context { return p.conv }

// Metrics returns the metrics collector.
func (p *Pipeline) Metrics() *MetricsCollector { return p.metrics }

// Memory returns the memory backend.
func (p *Pipeline) Memory() memory.Memory { return p.memory }

// RunTurn processes one utterance. The returned result is never nil. The
// error is the stage failure that cut the turn short, after any fallback
// phrase has been spoken; skipped turns return a nil error.
func (p *Pipeline) RunTurn(ctx context.Context, u *audio.Utterance) (*TurnResult, error) {
	res := &TurnResult{ID: uuid.NewString()}
	var speechEnd time.Time
	if u != nil {
		speechEnd = u.End
	}
	p.metrics.Begin(speechEnd)
	defer func() { res.Metrics = p.metrics.Finish() }()

	logger := p.logger.With("turn", res.ID)

	// Guard
	if u == nil || u.Empty() || u.Duration() < p.cfg.MinUtterance {
		res.Skipped = SkipTooShort
		logger.Debug("utterance too short, skipping")
		return res, nil
	}

	// Transcribe
	start := time.Now()
	transcript, err := p.stt.Transcribe(ctx, u)
	p.metrics.Observe(StageTranscribe, time.Since(start))
	if err != nil {
		err = stt.WrapError(p.stt.Name(), err)
		logger.Warn("transcription failed", "stage", StageTranscribe, "err", err)
		p.speakFallback(ctx, res, PhraseNotHeard)
		return res, err
	}
	transcript = stt.Clean(transcript)
	if transcript == "" {
		res.Skipped = SkipEmptyTranscript
		logger.Info("empty transcript")
		return res, nil
	}
	res.Transcript = transcript
	logger.Info("user said", "text", transcript)

	session := p.conv.Session()

	// Recall
	start = time.Now()
	memCtx, err := p.memory.Recall(ctx, session, transcript)
	p.metrics.Observe(StageRecall, time.Since(start))
	if err != nil {
		logger.Warn("memory recall failed", "stage", StageRecall, "backend", p.memory.Name(), "err", err)
		memCtx = ""
	}

	// Complete
	msgs := p.messages(memCtx, transcript)
	var defs []inference.Tool
	if p.tools != nil {
		defs = p.tools.Definitions()
	}
	resp, err := p.complete(ctx, msgs, defs, session.UserID)
	if err != nil {
		logger.Warn("completion failed", "stage", StageComplete, "err", err)
		p.persist(session, transcript, "")
		p.speakFallback(ctx, res, FallbackFor(err))
		return res, err
	}
	text := resp.Text()

	// Dispatch
	fedBack := false
	if resp.HasToolCalls() {
		if p.tools == nil {
			logger.Warn("model requested tools but no runner is configured", "calls", len(resp.Message.ToolCalls))
		} else {
			start = time.Now()
			res.Tools = p.tools.DispatchInference(ctx, resp.Message.ToolCalls)
			p.metrics.Observe(StageDispatch, time.Since(start))
			p.metrics.CountTools(len(res.Tools))
			for _, r := range res.Tools {
				if !r.OK() {
					logger.Warn("tool failed", "stage", StageDispatch, "tool", r.Name, "err", r.Err)
				}
			}

			if needsFeedback(res.Tools) {
				fedBack = true
				msgs = append(msgs, feedbackMessages(resp.Message, res.Tools)...)
				second, err := p.complete(ctx, msgs, nil, session.UserID)
				if err != nil {
					logger.Warn("completion failed", "stage", StageComplete, "round", 2, "err", err)
					p.persist(session, transcript, "")
					p.speakFallback(ctx, res, FallbackFor(err))
					return res, err
				}
				text = second.Text()
			}
		}
	}
	if strings.TrimSpace(text) == "" {
		logger.Debug("empty response, acknowledging", "fed_back", fedBack)
		text = p.cfg.Acknowledgement
	}

	speech := CleanSpeech(text, p.cfg.MaxSpeechChars)
	res.Response = speech

	// Synthesize
	start = time.Now()
	wav, err := p.synthesize(ctx, speech)
	p.metrics.Observe(StageSynthesize, time.Since(start))

	// Persist
	p.persist(session, transcript, speech)
	p.conv.Append(transcript, speech)

	if err != nil {
		logger.Error("synthesis failed, text only", "stage", StageSynthesize, "text", speech, "err", err)
		return res, err
	}

	// Play
	if err := p.play(ctx, wav); err != nil {
		logger.Error("playback failed", "stage", StagePlay, "err", err)
		return res, err
	}
	res.Spoken = true
	logger.Info("robot said", "text", speech)
	return res, nil
}

// Greet opens a conversation with a greeting informed by the memory briefing.
func (p *Pipeline) Greet(ctx context.Context) (*TurnResult, error) {
	res := &TurnResult{ID: uuid.NewString()}
	p.metrics.Begin(time.Time{})
	defer func() { res.Metrics = p.metrics.Finish() }()

	session := p.conv.Session()
	briefing, err := p.memory.Briefing(ctx, session)
	if err != nil {
		p.logger.Warn("memory briefing failed", "backend", p.memory.Name(), "err", err)
		briefing = ""
	}

	resp, err := p.complete(ctx, p.briefMessages(briefing, GreetingPrompt), nil, session.UserID)
	if err != nil {
		p.logger.Warn("greeting failed", "err", err)
		return res, err
	}
	speech := CleanSpeech(resp.Text(), p.cfg.MaxSpeechChars)
	if speech == "" {
		res.Skipped = SkipEmptyResponse
		return res, nil
	}
	res.Response = speech

	wav, err := p.synthesize(ctx, speech)
	if err != nil {
		p.logger.Error("greeting synthesis failed, text only", "text", speech, "err", err)
		return res, err
	}
	p.enqueue(session, memory.RobotMessage(speech))
	if err := p.play(ctx, wav); err != nil {
		return res, err
	}
	res.Spoken = true
	return res, nil
}

// Say synthesizes and plays text as is.
func (p *Pipeline) Say(ctx context.Context, text string) error {
	speech := CleanSpeech(text, p.cfg.MaxSpeechChars)
	if speech == "" {
		return tts.ErrEmptyText
	}
	wav, err := p.synthesize(ctx, speech)
	if err != nil {
		return err
	}
	return p.play(ctx, wav)
}

// messages builds the first-round request: system prompt, recalled memory,
// bounded history, then the new user message.
func (p *Pipeline) messages(memCtx, transcript string) []inference.Message {
	msgs := make([]inference.Message, 0, p.cfg.HistoryMessages+3)
	msgs = append(msgs, inference.NewSystemMessage(p.cfg.SystemPrompt))
	if strings.TrimSpace(memCtx) != "" {
		msgs = append(msgs, inference.NewSystemMessage(MemoryContextHeader+memCtx))
	}
	msgs = append(msgs, p.conv.History(p.cfg.HistoryMessages)...)
	return append(msgs, inference.NewUserMessage(transcript))
}

// briefMessages builds a one-shot request with no history.
func (p *Pipeline) briefMessages(memCtx, prompt string) []inference.Message {
	msgs := []inference.Message{inference.NewSystemMessage(p.cfg.SystemPrompt)}
	if strings.TrimSpace(memCtx) != "" {
		msgs = append(msgs, inference.NewSystemMessage(MemoryContextHeader+memCtx))
	}
	return append(msgs, inference.NewUserMessage(prompt))
}

func (p *Pipeline) complete(ctx context.Context, msgs []inference.Message, defs []inference.Tool, user string) (*inference.ChatResponse, error) {
	req := &inference.ChatRequest{
		Messages:    msgs,
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Tools:       defs,
		User:        user,
	}
	if len(defs) > 0 {
		req.ToolChoice = "auto"
	}
	start := time.Now()
	resp, err := p.llm.Chat(ctx, req)
	p.metrics.Observe(StageComplete, time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// synthesize returns WAV audio for text or a *tts.SynthesisError.
func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	result, err := p.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, tts.WrapError(p.tts.Name(), err)
	}
	wav, err := result.WAV()
	if err != nil {
		return nil, tts.WrapError(result.Provider, err)
	}
	return wav, nil
}

func (p *Pipeline) play(ctx context.Context, wav []byte) error {
	start := time.Now()
	err := p.player.Play(ctx, wav)
	p.metrics.Observe(StagePlay, time.Since(start))
	if err != nil {
		return fmt.Errorf("voice: play: %w", err)
	}
	return nil
}

// speakFallback speaks a fixed phrase. Failures are only logged.
func (p *Pipeline) speakFallback(ctx context.Context, res *TurnResult, phrase string) {
	res.Fallback = true
	res.Response = phrase
	wav, err := p.synthesize(ctx, phrase)
	if err != nil {
		p.logger.Error("fallback synthesis failed, text only", "text", phrase, "err", err)
		return
	}
	if err := p.play(ctx, wav); err != nil {
		p.logger.Error("fallback playback failed", "err", err)
		return
	}
	res.Spoken = true
}

// persist queues the exchange for long-term memory.
func (p *Pipeline) persist(s memory.Session, transcript, response string) {
	msgs := []memory.Message{memory.UserMessage(transcript)}
	if response != "" {
		msgs = append(msgs, memory.RobotMessage(response))
	}
	p.enqueue(s, msgs...)
}

func (p *Pipeline) enqueue(s memory.Session, msgs ...memory.Message) {
	if p.persister == nil {
		return
	}
	if !p.persister.Enqueue(s, msgs...) {
		p.logger.Warn("memory writer rejected messages", "user", s.UserID, "count", len(msgs))
	}
}
