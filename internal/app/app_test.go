package app

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttsloop/internal/audio"
	"ttsloop/internal/channel"
	"ttsloop/internal/loop"
	"ttsloop/internal/metrics"
	"ttsloop/internal/ui"
	"ttsloop/internal/wav"
)

type fakeSynth struct {
	size   int
	err    error
	voices []string
}

func (f *fakeSynth) Synthesize(text, voice string) ([]int16, error) {
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return nil, f.err
	}
	return make([]int16, f.size), nil
}

type fakePlayer struct {
	played [][]int16
	rates  []int
}

func (f *fakePlayer) PlayBlocking(samples []int16, sampleRate int) error {
	f.played = append(f.played, samples)
	f.rates = append(f.rates, sampleRate)
	return nil
}

type fakeRecognizer struct {
	texts  []string
	calls  int
	onCall func(n int)
}

func (f *fakeRecognizer) Transcribe(samples []int16) (string, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if f.calls <= len(f.texts) {
		return f.texts[f.calls-1], nil
	}
	return "", nil
}

type fakeHandle struct{}

func (fakeHandle) Close() error { return nil }

type fakeSource struct {
	mu      sync.Mutex
	onChunk func([]int16)
}

func (f *fakeSource) OpenCapture(sampleRate int, onChunk func([]int16)) (audio.CaptureHandle, error) {
	f.mu.Lock()
	f.onChunk = onChunk
	f.mu.Unlock()
	return fakeHandle{}, nil
}

func (f *fakeSource) emit(chunk []int16) {
	f.mu.Lock()
	fn := f.onChunk
	f.mu.Unlock()
	fn(chunk)
}

type fixture struct {
	engine *Engine
	synth  *fakeSynth
	player *fakePlayer
	recog  *fakeRecognizer
	source *fakeSource
	events *ui.Recorder
}

func newFixture(t *testing.T, set loop.Settings) *fixture {
	t.Helper()
	f := &fixture{
		synth:  &fakeSynth{size: 1600},
		player: &fakePlayer{},
		recog:  &fakeRecognizer{},
		source: &fakeSource{},
		events: &ui.Recorder{},
	}

	e, err := New(Options{
		Synth:      f.synth,
		Player:     f.player,
		Recognizer: f.recog,
		Source:     f.source,
		UI:         f.events,
		Logger:     zerolog.Nop(),
		Metrics:    metrics.NewCollector("test"),
		SampleRate: 16000,
		Settings:   set,
	})
	require.NoError(t, err)
	f.engine = e
	return f
}

func (f *fixture) send(t *testing.T, reqs ...channel.Request) {
	t.Helper()
	for _, req := range reqs {
		require.NoError(t, f.engine.Sender().Send(req))
	}
}

// settle крутит движок, пока есть активная задача или запросы.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if !f.engine.state.Active() && f.engine.rx.Len() == 0 {
			return
		}
		require.True(t, f.engine.tick())
	}
	t.Fatal("движок не остановился")
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Options{Synth: &fakeSynth{}, Player: &fakePlayer{}})
	assert.Error(t, err)
}

func TestJob_TwoIterationsAudioOff(t *testing.T) {
	f := newFixture(t, loop.Settings{Voice: "kal"})
	f.recog.texts = []string{"first", "second"}

	f.send(t, channel.StartJob{Text: "hello", Iterations: 2})
	f.settle(t)

	assert.Equal(t, []string{
		`start "hello" voice=kal iterations=2`,
		"busy true",
		`output "first"`,
		`output "second"`,
		"busy false",
	}, f.events.Events())
	assert.Empty(t, f.player.played)
	assert.Equal(t, 2, f.recog.calls)
	assert.Len(t, f.engine.state.Samples, 3200)
	assert.Equal(t, []string{"kal", "kal"}, f.synth.voices)
}

func TestJob_AudioEnabledPlaysEachSegment(t *testing.T) {
	f := newFixture(t, loop.Settings{AudioEnabled: true})
	f.recog.texts = []string{"a", "b", "c"}

	f.send(t, channel.StartJob{Text: "x", Iterations: 3})
	f.settle(t)

	require.Len(t, f.player.played, 3)
	for i, seg := range f.player.played {
		assert.Len(t, seg, 1600)
		assert.Equal(t, 16000, f.player.rates[i])
	}
}

func TestJob_CancelDuringRecognition(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.recog.texts = []string{"one", "two", "three"}
	f.recog.onCall = func(n int) {
		if n == 2 {
			require.NoError(t, f.engine.Sender().Send(channel.Cancel{}))
		}
	}

	f.send(t, channel.StartJob{Text: "go", Iterations: 5})
	f.settle(t)

	assert.Equal(t, []string{
		`start "go" voice= iterations=5`,
		"busy true",
		`output "one"`,
		"canceled",
		"busy false",
	}, f.events.Events())
	assert.Equal(t, 2, f.recog.calls)
	assert.False(t, f.engine.state.Active())
}

func TestJob_CancelDuringLastRecognition(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	var logs bytes.Buffer
	f.engine.log = zerolog.New(&logs)
	f.recog.texts = []string{"one", "two"}
	f.recog.onCall = func(n int) {
		if n == 2 {
			require.NoError(t, f.engine.Sender().Send(channel.Cancel{}))
		}
	}

	f.send(t, channel.StartJob{Text: "go", Iterations: 2})
	f.settle(t)

	assert.Equal(t, []string{
		`start "go" voice= iterations=2`,
		"busy true",
		`output "one"`,
		"canceled",
		"busy false",
	}, f.events.Events())
	assert.Contains(t, logs.String(), ErrCanceled.Error())

	body := scrapeMetrics(t, f.engine.metrics)
	assert.Contains(t, body, `test_jobs_total{outcome="canceled"} 1`)
	assert.NotContains(t, body, `test_jobs_total{outcome="done"}`)
}

func scrapeMetrics(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCancel_DiscardsQueuedJobs(t *testing.T) {
	f := newFixture(t, loop.Settings{})

	f.send(t,
		channel.StartJob{Text: "a", Iterations: 1},
		channel.StartJob{Text: "b", Iterations: 1},
		channel.Cancel{},
		channel.StartJob{Text: "c", Iterations: 1},
	)
	f.settle(t)

	events := f.events.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "canceled", events[0])
	assert.Contains(t, events, `start "c" voice= iterations=1`)
	assert.NotContains(t, events, `start "a" voice= iterations=1`)
	assert.NotContains(t, events, `start "b" voice= iterations=1`)
}

func TestCancel_NothingToCancel(t *testing.T) {
	f := newFixture(t, loop.Settings{})

	f.send(t, channel.Cancel{})
	f.settle(t)

	assert.Empty(t, f.events.Events())
}

func TestStartJob_BusyRejected(t *testing.T) {
	f := newFixture(t, loop.Settings{})

	f.send(t, channel.StartJob{Text: "first", Iterations: 3})
	require.True(t, f.engine.tick())
	require.True(t, f.engine.tick())

	for i := 0; i < 3; i++ {
		err := f.engine.handle(channel.StartJob{Text: "second", Iterations: 1})
		var busy *loop.BusyError
		require.ErrorAs(t, err, &busy)
	}
	assert.Equal(t, "first", f.engine.state.Text)
	assert.True(t, f.engine.state.Active())

	f.send(t, channel.StartJob{Text: "third", Iterations: 1})
	require.True(t, f.engine.tick())

	var errs int
	for _, ev := range f.events.Events() {
		if strings.HasPrefix(ev, "error движок занят") {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestStartJob_InvalidIterations(t *testing.T) {
	f := newFixture(t, loop.Settings{})

	err := f.engine.handle(channel.StartJob{Text: "x", Iterations: 0})
	assert.ErrorIs(t, err, loop.ErrInvalidIterations)
	assert.False(t, f.engine.state.Active())
}

func TestStepError_AbortsJob(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.synth.err = errors.New("no voice data")

	f.send(t, channel.StartJob{Text: "x", Iterations: 2})
	f.settle(t)

	assert.Equal(t, []string{
		`start "x" voice= iterations=2`,
		"busy true",
		"error no voice data",
		"busy false",
	}, f.events.Events())
	assert.Zero(t, f.recog.calls)
}

func TestSetVoice(t *testing.T) {
	f := newFixture(t, loop.Settings{Voice: "kal"})

	var changed []loop.Settings
	f.engine.onSettings = func(s loop.Settings) { changed = append(changed, s) }

	f.send(t, channel.SetVoice{Voice: "slt"}, channel.EnableAudio{Enable: true})
	f.settle(t)

	assert.Equal(t, loop.Settings{Voice: "slt", AudioEnabled: true}, f.engine.Settings())
	assert.Equal(t, []string{"voice slt", "audio true"}, f.events.Events())
	require.Len(t, changed, 2)
	assert.Equal(t, "slt", changed[0].Voice)
	assert.True(t, changed[1].AudioEnabled)
}

func TestSetVoice_TakesEffectMidJob(t *testing.T) {
	f := newFixture(t, loop.Settings{Voice: "kal"})
	f.recog.onCall = func(n int) {
		if n == 1 {
			require.NoError(t, f.engine.Sender().Send(channel.SetVoice{Voice: "slt"}))
		}
	}

	f.send(t, channel.StartJob{Text: "x", Iterations: 2})
	f.settle(t)

	assert.Equal(t, []string{"kal", "slt"}, f.synth.voices)
}

func TestSave(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.synth.size = 3200

	f.send(t, channel.StartJob{Text: "x", Iterations: 1})
	f.settle(t)

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, f.engine.handle(channel.Save{Path: path}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	decoded, err := wav.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 16000, decoded.SampleRate)
	assert.Len(t, decoded.Samples, 3200)
	assert.Equal(t, "200ms", decoded.Duration().String())

	assert.Contains(t, f.events.Events(), "saved "+path)
}

func TestSave_Errors(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	dir := t.TempDir()

	err := f.engine.handle(channel.Save{Path: filepath.Join(dir, "none.wav")})
	assert.ErrorIs(t, err, ErrNoData)

	f.send(t, channel.StartJob{Text: "x", Iterations: 1})
	require.True(t, f.engine.tick())
	require.True(t, f.engine.tick())

	var busy *loop.BusyError
	err = f.engine.handle(channel.Save{Path: filepath.Join(dir, "busy.wav")})
	assert.ErrorAs(t, err, &busy)

	f.settle(t)

	err = f.engine.handle(channel.Save{Path: filepath.Join(dir, "missing", "out.wav")})
	assert.ErrorIs(t, err, ErrPersistence)

	_, statErr := os.Stat(filepath.Join(dir, "busy.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRecording(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.recog.texts = []string{"heard you"}

	f.send(t, channel.StartRecording{})
	f.settle(t)

	f.source.emit(make([]int16, 1600))
	f.source.emit(make([]int16, 1600))

	f.send(t, channel.EndRecording{})
	f.settle(t)

	assert.Equal(t, []string{
		"recording true",
		"recording false",
		`input "heard you"`,
	}, f.events.Events())
}

func TestRecording_TooShort(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.engine.minRecording = audio.Duration(16000, 16000)

	require.NoError(t, f.engine.handle(channel.StartRecording{}))
	f.source.emit(make([]int16, 800))
	require.NoError(t, f.engine.handle(channel.EndRecording{}))

	assert.Zero(t, f.recog.calls)
	assert.Equal(t, []string{"recording true", "recording false"}, f.events.Events())
}

func TestRecognizeRecording_States(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.recog.texts = []string{"later"}

	assert.ErrorIs(t, f.engine.recognizeRecording(), audio.ErrNoRecording)

	require.NoError(t, f.engine.handle(channel.StartRecording{}))
	f.source.emit(make([]int16, 16000))
	assert.ErrorIs(t, f.engine.recognizeRecording(), audio.ErrCurrentlyRecording)
	assert.Zero(t, f.recog.calls)

	require.NoError(t, f.engine.handle(channel.EndRecording{}))
	assert.Equal(t, 1, f.recog.calls)
	assert.Contains(t, f.events.Events(), `input "later"`)
}

func TestRecording_EndWithoutStart(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	require.NoError(t, f.engine.handle(channel.EndRecording{}))
	assert.Empty(t, f.events.Events())
}

func TestRecording_NoSource(t *testing.T) {
	e, err := New(Options{
		Synth:      &fakeSynth{},
		Player:     &fakePlayer{},
		Recognizer: &fakeRecognizer{},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, e.handle(channel.StartRecording{}), audio.ErrAudio)
}

func TestRun_Shutdown(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.recog.texts = []string{"done"}

	done := make(chan error, 1)
	go func() { done <- f.engine.Run() }()

	f.send(t, channel.StartJob{Text: "x", Iterations: 1})
	require.Eventually(t, func() bool {
		return len(f.events.Events()) >= 4
	}, time.Second, 10*time.Millisecond)

	f.send(t, channel.Shutdown{})
	require.NoError(t, <-done)

	assert.ErrorIs(t, f.engine.Sender().Send(channel.StartJob{Text: "late", Iterations: 1}), channel.ErrReceiverGone)
}

func TestRun_ShutdownAbortsActiveJob(t *testing.T) {
	f := newFixture(t, loop.Settings{})
	f.recog.onCall = func(n int) {
		if n == 1 {
			require.NoError(t, f.engine.Sender().Send(channel.Shutdown{}))
		}
	}

	f.send(t, channel.StartJob{Text: "x", Iterations: 10})
	require.NoError(t, f.engine.Run())

	assert.Equal(t, 1, f.recog.calls)
	assert.False(t, f.engine.state.Active())
	events := f.events.Events()
	assert.Equal(t, "busy false", events[len(events)-1])
}
