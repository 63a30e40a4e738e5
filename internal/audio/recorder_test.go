package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	closed int
	err    error
}

func (h *fakeHandle) Close() error {
	h.closed++
	return h.err
}

type fakeSource struct {
	mu       sync.Mutex
	opened   int
	handles  []*fakeHandle
	onChunk  func([]int16)
	openErr  error
	closeErr error
}

func (s *fakeSource) OpenCapture(sampleRate int, onChunk func([]int16)) (CaptureHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	h := &fakeHandle{err: s.closeErr}
	s.handles = append(s.handles, h)
	s.onChunk = onChunk
	return h, nil
}

func (s *fakeSource) emit(chunk []int16) {
	s.mu.Lock()
	cb := s.onChunk
	s.mu.Unlock()
	cb(chunk)
}

func TestRecorder_InitialState(t *testing.T) {
	r := NewRecorder(&fakeSource{}, SampleRate)
	assert.Equal(t, RecorderIdle, r.State())

	_, err := r.Samples()
	assert.ErrorIs(t, err, ErrNoRecording)
}

func TestRecorder_StartEnd(t *testing.T) {
	src := &fakeSource{}
	r := NewRecorder(src, SampleRate)

	require.NoError(t, r.Start())
	assert.True(t, r.IsRecording())

	src.emit([]int16{1, 2, 3})
	src.emit([]int16{4, 5})

	samples, err := r.End()
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, 3, 4, 5}, samples)
	assert.Equal(t, RecorderFinished, r.State())
	assert.Equal(t, 1, src.handles[0].closed)

	got, err := r.Samples()
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestRecorder_EndWithoutChunks(t *testing.T) {
	r := NewRecorder(&fakeSource{}, SampleRate)
	require.NoError(t, r.Start())

	samples, err := r.End()
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.Equal(t, RecorderFinished, r.State())
}

func TestRecorder_StartTwiceKeepsHandle(t *testing.T) {
	src := &fakeSource{}
	r := NewRecorder(src, SampleRate)

	require.NoError(t, r.Start())
	src.emit([]int16{7})
	require.NoError(t, r.Start())

	assert.Equal(t, 1, src.opened)

	samples, err := r.End()
	require.NoError(t, err)
	assert.Equal(t, []int16{7}, samples)
}

func TestRecorder_SamplesWhileRecording(t *testing.T) {
	r := NewRecorder(&fakeSource{}, SampleRate)
	require.NoError(t, r.Start())

	_, err := r.Samples()
	assert.ErrorIs(t, err, ErrCurrentlyRecording)
}

func TestRecorder_EndWhenIdle(t *testing.T) {
	r := NewRecorder(&fakeSource{}, SampleRate)

	samples, err := r.End()
	require.NoError(t, err)
	assert.Nil(t, samples)
	assert.Equal(t, RecorderIdle, r.State())
}

func TestRecorder_ChunkIsCopied(t *testing.T) {
	src := &fakeSource{}
	r := NewRecorder(src, SampleRate)
	require.NoError(t, r.Start())

	buf := []int16{1, 2}
	src.emit(buf)
	buf[0] = 99

	samples, err := r.End()
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, samples)
}

func TestRecorder_ChunksAfterEndIgnored(t *testing.T) {
	src := &fakeSource{}
	r := NewRecorder(src, SampleRate)
	require.NoError(t, r.Start())
	src.emit([]int16{1})

	_, err := r.End()
	require.NoError(t, err)

	src.emit([]int16{2})
	samples, err := r.Samples()
	require.NoError(t, err)
	assert.Equal(t, []int16{1}, samples)
}

func TestRecorder_RestartDiscardsPrevious(t *testing.T) {
	src := &fakeSource{}
	r := NewRecorder(src, SampleRate)

	require.NoError(t, r.Start())
	src.emit([]int16{1, 1})
	_, err := r.End()
	require.NoError(t, err)

	require.NoError(t, r.Start())
	src.emit([]int16{2})
	samples, err := r.End()
	require.NoError(t, err)
	assert.Equal(t, []int16{2}, samples)
	assert.Equal(t, 2, src.opened)
}

func TestRecorder_OpenError(t *testing.T) {
	src := &fakeSource{openErr: errors.New("no device")}
	r := NewRecorder(src, SampleRate)

	err := r.Start()
	assert.ErrorIs(t, err, ErrAudio)
	assert.Equal(t, RecorderIdle, r.State())
}

func TestRecorder_CloseErrorStillFinishes(t *testing.T) {
	src := &fakeSource{closeErr: errors.New("stop failed")}
	r := NewRecorder(src, SampleRate)
	require.NoError(t, r.Start())
	src.emit([]int16{3})

	samples, err := r.End()
	assert.ErrorIs(t, err, ErrAudio)
	assert.Equal(t, []int16{3}, samples)
	assert.Equal(t, RecorderFinished, r.State())
}

func TestRecorder_ConcurrentChunks(t *testing.T) {
	src := &fakeSource{}
	r := NewRecorder(src, SampleRate)
	require.NoError(t, r.Start())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				src.emit([]int16{1, 2})
			}
		}()
	}
	wg.Wait()

	samples, err := r.End()
	require.NoError(t, err)
	assert.Len(t, samples, 8*50*2)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, Duration(3200, 16000))
	assert.Equal(t, time.Second, Duration(22050, 22050))
	assert.Zero(t, Duration(100, 0))
}
