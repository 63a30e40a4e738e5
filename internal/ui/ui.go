// Package ui defines what the engine pushes to frontends.
package ui

import "sync"

// Level is the severity of a log line shown in a frontend.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Sink receives engine notifications. Implementations must not block for long:
// calls are made from the engine goroutine (and from the logger for Log).
type Sink interface {
	JobStarted(text, voice string, iterations int)
	Output(text string)
	InputText(text string)
	Error(msg string)
	Canceled()
	VoiceChanged(voice string)
	AudioChanged(enabled bool)
	FileSaved(path string)
	RecordingChanged(recording bool)
	StateChanged(busy bool)
	Log(level Level, text string)
}

// Nop discards everything. Embed it to implement only part of Sink.
type Nop struct{}

func (Nop) JobStarted(string, string, int) {}
func (Nop) Output(string)                  {}
func (Nop) InputText(string)               {}
func (Nop) Error(string)                   {}
func (Nop) Canceled()                      {}
func (Nop) VoiceChanged(string)            {}
func (Nop) AudioChanged(bool)              {}
func (Nop) FileSaved(string)               {}
func (Nop) RecordingChanged(bool)          {}
func (Nop) StateChanged(bool)              {}
func (Nop) Log(Level, string)              {}

// Multi fans every call out to all sinks in order.
type Multi []Sink

func (m Multi) JobStarted(text, voice string, iterations int) {
	for _, s := range m {
		s.JobStarted(text, voice, iterations)
	}
}

func (m Multi) Output(text string) {
	for _, s := range m {
		s.Output(text)
	}
}

func (m Multi) InputText(text string) {
	for _, s := range m {
		s.InputText(text)
	}
}

func (m Multi) Error(msg string) {
	for _, s := range m {
		s.Error(msg)
	}
}

func (m Multi) Canceled() {
	for _, s := range m {
		s.Canceled()
	}
}

func (m Multi) VoiceChanged(voice string) {
	for _, s := range m {
		s.VoiceChanged(voice)
	}
}

func (m Multi) AudioChanged(enabled bool) {
	for _, s := range m {
		s.AudioChanged(enabled)
	}
}

func (m Multi) FileSaved(path string) {
	for _, s := range m {
		s.FileSaved(path)
	}
}

func (m Multi) RecordingChanged(recording bool) {
	for _, s := range m {
		s.RecordingChanged(recording)
	}
}

func (m Multi) StateChanged(busy bool) {
	for _, s := range m {
		s.StateChanged(busy)
	}
}

func (m Multi) Log(level Level, text string) {
	for _, s := range m {
		s.Log(level, text)
	}
}

// Handle is a non-owning reference to a Sink. After Close every call is a
// silent no-op, so the logger and engine may outlive the frontend.
type Handle struct {
	mu   sync.RWMutex
	sink Sink
}

// NewHandle wraps sink.
func NewHandle(sink Sink) *Handle {
	return &Handle{sink: sink}
}

// Close detaches the sink. Calls in flight finish before Close returns.
func (h *Handle) Close() {
	h.mu.Lock()
	h.sink = nil
	h.mu.Unlock()
}

// Alive reports whether the sink is still attached.
func (h *Handle) Alive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sink != nil
}

func (h *Handle) with(fn func(Sink)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.sink != nil {
		fn(h.sink)
	}
}

func (h *Handle) JobStarted(text, voice string, iterations int) {
	h.with(func(s Sink) { s.JobStarted(text, voice, iterations) })
}

func (h *Handle) Output(text string) { h.with(func(s Sink) { s.Output(text) }) }

func (h *Handle) InputText(text string) { h.with(func(s Sink) { s.InputText(text) }) }

func (h *Handle) Error(msg string) { h.with(func(s Sink) { s.Error(msg) }) }

func (h *Handle) Canceled() { h.with(func(s Sink) { s.Canceled() }) }

func (h *Handle) VoiceChanged(voice string) { h.with(func(s Sink) { s.VoiceChanged(voice) }) }

func (h *Handle) AudioChanged(enabled bool) { h.with(func(s Sink) { s.AudioChanged(enabled) }) }

func (h *Handle) FileSaved(path string) { h.with(func(s Sink) { s.FileSaved(path) }) }

func (h *Handle) RecordingChanged(recording bool) {
	h.with(func(s Sink) { s.RecordingChanged(recording) })
}

func (h *Handle) StateChanged(busy bool) { h.with(func(s Sink) { s.StateChanged(busy) }) }

func (h *Handle) Log(level Level, text string) { h.with(func(s Sink) { s.Log(level, text) }) }
