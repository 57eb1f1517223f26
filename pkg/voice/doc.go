// Package voice runs the robot's conversation turns.
//
// A turn starts from one captured utterance and runs these stages in order:
//
//	guard → transcribe → recall → complete → dispatch → synthesize → persist → play
//
// Each stage is a pluggable collaborator: stt.Transcriber, memory.Memory,
// inference.Provider, a tool runner (tools.Dispatcher), tts.Provider and a
// Player (the bridge). A failing stage never leaves the user in silence: the
// pipeline speaks a fixed fallback phrase or logs a text-only line.
//
// # Usage
//
//	p, err := voice.New(voice.DefaultConfig(),
//	    voice.WithTranscriber(whisper),
//	    voice.WithInference(gateway),
//	    voice.WithSynthesizer(chain),
//	    voice.WithTools(dispatcher),
//	    voice.WithMemory(mem, writer),
//	    voice.WithPlayer(bridgeClient),
//	)
//	result, err := p.RunTurn(ctx, utterance)
//
// Agent drives RunTurn from a live audio source through the vad segmenter,
// one utterance at a time.
//
// # Latency Metrics
//
// Every turn records per-stage latency:
//
//	fmt.Println(result.Metrics.FormatLatency())
//	// 412ms STT | 35ms MEM | 1.2s LLM | 0s TOOLS | 640ms TTS | 2.1s PLAY | 4.4s TOTAL
package voice
