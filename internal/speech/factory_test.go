package speech

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttsloop/internal/models"
)

type fakeRecognizer struct {
	mu     sync.Mutex
	name   string
	text   string
	err    error
	closed bool
}

func (f *fakeRecognizer) Transcribe(samples []int16) (string, error) {
	return f.text, f.err
}

func (f *fakeRecognizer) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeRecognizer) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeRecognizer) Name() string { return f.name }

func newFactory(t *testing.T, open Opener, installed ...string) *Factory {
	t.Helper()
	m, err := models.NewManager(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	for _, id := range installed {
		info, ok := models.GetModel(id)
		require.True(t, ok)
		require.NoError(t, os.MkdirAll(m.ModelPath(info), 0o755))
	}
	return NewFactory(m, open, 16000, zerolog.Nop())
}

func TestFactory_NotLoaded(t *testing.T) {
	f := newFactory(t, nil)
	assert.False(t, f.IsLoaded())

	_, err := f.Transcribe([]int16{1})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestFactory_Swap(t *testing.T) {
	var opened []string
	recs := map[string]*fakeRecognizer{}
	open := func(path string, rate int) (Recognizer, error) {
		opened = append(opened, path)
		r := &fakeRecognizer{name: "fake", text: path}
		recs[path] = r
		return r, nil
	}
	f := newFactory(t, open, "vosk-en-small", "vosk-ru-small")

	require.NoError(t, f.Swap("vosk-en-small"))
	assert.Equal(t, "vosk-en-small", f.CurrentModelID())
	first := recs[opened[0]]

	text, err := f.Transcribe([]int16{1, 2})
	require.NoError(t, err)
	assert.Equal(t, opened[0], text)

	require.NoError(t, f.Swap("vosk-ru-small"))
	assert.Equal(t, "vosk-ru-small", f.CurrentModelID())
	assert.Eventually(t, first.isClosed, time.Second, 10*time.Millisecond)

	f.Close()
	assert.False(t, f.IsLoaded())
	assert.True(t, recs[opened[1]].isClosed())
}

func TestFactory_CreateErrors(t *testing.T) {
	f := newFactory(t, func(string, int) (Recognizer, error) {
		return nil, errors.New("broken model")
	}, "vosk-en-small")

	_, err := f.Create("no-such-model")
	assert.ErrorIs(t, err, models.ErrUnknownModel)

	_, err = f.Create("vosk-ru")
	assert.ErrorIs(t, err, ErrNotLoaded)

	err = f.Swap("vosk-en-small")
	assert.ErrorContains(t, err, "broken model")
	assert.False(t, f.IsLoaded())
}

func TestFactory_TranscribeError(t *testing.T) {
	f := newFactory(t, func(string, int) (Recognizer, error) {
		return &fakeRecognizer{err: errors.New("decoder failed")}, nil
	}, "vosk-en-small")
	require.NoError(t, f.Swap("vosk-en-small"))

	_, err := f.Transcribe([]int16{1})
	assert.ErrorIs(t, err, ErrRecognition)
}

func TestParseResult(t *testing.T) {
	text, err := ParseResult(`{"text" : " hello world "}`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	text, err = ParseResult(`{"text" : ""}`)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = ParseResult("not json")
	assert.ErrorIs(t, err, ErrRecognition)
}

func TestPCMBytes(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80}, PCM16LE([]int16{1, -1, -32768}))
}
