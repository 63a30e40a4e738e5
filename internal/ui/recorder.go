package ui

import (
	"fmt"
	"sync"
)

// Recorder is a Sink that stores every call as a line of text.
// Used in tests of packages that push to frontends.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) JobStarted(text, voice string, iterations int) {
	r.add("start %q voice=%s iterations=%d", text, voice, iterations)
}
func (r *Recorder) Output(text string)              { r.add("output %q", text) }
func (r *Recorder) InputText(text string)           { r.add("input %q", text) }
func (r *Recorder) Error(msg string)                { r.add("error %s", msg) }
func (r *Recorder) Canceled()                       { r.add("canceled") }
func (r *Recorder) VoiceChanged(voice string)       { r.add("voice %s", voice) }
func (r *Recorder) AudioChanged(enabled bool)       { r.add("audio %t", enabled) }
func (r *Recorder) FileSaved(path string)           { r.add("saved %s", path) }
func (r *Recorder) RecordingChanged(recording bool) { r.add("recording %t", recording) }
func (r *Recorder) StateChanged(busy bool)          { r.add("busy %t", busy) }

// Log is not recorded: log lines depend on wording, tests assert on events.
func (r *Recorder) Log(Level, string) {}
