package voice

import (
	"sync"
	"time"
)

// Stage names a step of the turn pipeline.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageRecall     Stage = "recall"
	StageComplete   Stage = "complete"
	StageDispatch   Stage = "dispatch"
	StageSynthesize Stage = "synthesize"
	StagePlay       Stage = "play"
)

// Metrics tracks latency at each stage of one turn.
// Durations are measured from the moment the utterance ended.
type Metrics struct {
	// SpeechEnd is when the segmenter closed the utterance.
	SpeechEnd time.Time

	Transcribe time.Duration
	Recall     time.Duration
	Complete   time.Duration // both rounds when tool results are fed back
	Dispatch   time.Duration
	Synthesize time.Duration
	Play       time.Duration
	Total      time.Duration

	// Rounds is the number of completion requests made.
	Rounds    int
	ToolCalls int
}

// MetricsCollector collects latency metrics across turns.
// It is goroutine-safe so the dashboard can read while a turn runs.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
	started time.Time
	history []Metrics // recent turns for averaging

	onUpdate func(Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]Metrics, 0, 100),
	}
}

// OnUpdate sets a callback that fires when a turn finishes.
func (m *MetricsCollector) OnUpdate(fn func(Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Begin starts a new turn. speechEnd may be zero when unknown.
func (m *MetricsCollector) Begin(speechEnd time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = time.Now()
	if speechEnd.IsZero() || speechEnd.After(m.started) {
		speechEnd = m.started
	}
	m.current = Metrics{SpeechEnd: speechEnd}
}

// Observe adds d to the stage's latency.
func (m *MetricsCollector) Observe(stage Stage, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch stage {
	case StageTranscribe:
		m.current.Transcribe += d
	case StageRecall:
		m.current.Recall += d
	case StageComplete:
		m.current.Complete += d
		m.current.Rounds++
	case StageDispatch:
		m.current.Dispatch += d
	case StageSynthesize:
		m.current.Synthesize += d
	case StagePlay:
		m.current.Play += d
	}
}

// CountTools records executed tool calls.
func (m *MetricsCollector) CountTools(n int) {
	m.mu.Lock()
	m.current.ToolCalls += n
	m.mu.Unlock()
}

// Finish closes the turn, archives it and returns the snapshot.
func (m *MetricsCollector) Finish() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Total = time.Since(m.current.SpeechEnd)
	m.history = append(m.history, m.current)
	if len(m.history) > 100 {
		m.history = m.history[1:]
	}
	snapshot := m.current
	if m.onUpdate != nil {
		go m.onUpdate(snapshot)
	}
	return snapshot
}

// Current returns the in-progress metrics snapshot.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Turns returns how many turns have been archived.
func (m *MetricsCollector) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Average returns average metrics over recent turns.
func (m *MetricsCollector) Average() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return Metrics{}
	}

	var avg Metrics
	for _, h := range m.history {
		avg.Transcribe += h.Transcribe
		avg.Recall += h.Recall
		avg.Complete += h.Complete
		avg.Dispatch += h.Dispatch
		avg.Synthesize += h.Synthesize
		avg.Play += h.Play
		avg.Total += h.Total
	}

	n := time.Duration(len(m.history))
	avg.Transcribe /= n
	avg.Recall /= n
	avg.Complete /= n
	avg.Dispatch /= n
	avg.Synthesize /= n
	avg.Play /= n
	avg.Total /= n

	return avg
}

// FormatLatency returns a one-line latency breakdown.
func (m *Metrics) FormatLatency() string {
	return formatDuration(m.Transcribe) + " STT | " +
		formatDuration(m.Recall) + " MEM | " +
		formatDuration(m.Complete) + " LLM | " +
		formatDuration(m.Dispatch) + " TOOLS | " +
		formatDuration(m.Synthesize) + " TTS | " +
		formatDuration(m.Play) + " PLAY | " +
		formatDuration(m.Total) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
