package audio

import (
	"fmt"
	"sync"
)

// RecorderState - состояние записи.
type RecorderState int

const (
	RecorderIdle RecorderState = iota
	RecorderOngoing
	RecorderFinished
)

func (s RecorderState) String() string {
	switch s {
	case RecorderIdle:
		return "idle"
	case RecorderOngoing:
		return "ongoing"
	case RecorderFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// chunkBuffer принимает буферы из потока аудиоподсистемы.
// Это единственная структура Recorder, разделяемая между потоками.
type chunkBuffer struct {
	mu     sync.Mutex
	chunks [][]int16
	closed bool
}

// push копирует буфер: PortAudio переиспользует его после возврата из callback.
func (b *chunkBuffer) push(chunk []int16) {
	c := make([]int16, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	if !b.closed {
		b.chunks = append(b.chunks, c)
	}
	b.mu.Unlock()
}

// drain забирает всё, что пришло к моменту вызова, и закрывает буфер.
func (b *chunkBuffer) drain() []int16 {
	b.mu.Lock()
	chunks := b.chunks
	b.chunks = nil
	b.closed = true
	b.mu.Unlock()

	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	samples := make([]int16, 0, n)
	for _, c := range chunks {
		samples = append(samples, c...)
	}
	return samples
}

// Recorder записывает аудио с микрофона независимо от цикла задачи.
// Методы вызываются только из потока движка.
type Recorder struct {
	source     Source
	sampleRate int

	state   RecorderState
	handle  CaptureHandle
	inbound *chunkBuffer
	samples []int16
}

// NewRecorder создаёт Recorder поверх источника захвата.
func NewRecorder(source Source, sampleRate int) *Recorder {
	return &Recorder{
		source:     source,
		sampleRate: sampleRate,
	}
}

// Start начинает запись. Повторный вызов во время записи ничего не делает.
func (r *Recorder) Start() error {
	if r.state == RecorderOngoing {
		return nil
	}

	inbound := &chunkBuffer{}
	handle, err := r.source.OpenCapture(r.sampleRate, inbound.push)
	if err != nil {
		return fmt.Errorf("%w: начало записи: %v", ErrAudio, err)
	}

	r.handle = handle
	r.inbound = inbound
	r.samples = nil
	r.state = RecorderOngoing
	return nil
}

// End останавливает запись и возвращает накопленные сэмплы.
// Забирается только то, что пришло к моменту вызова, ожидания новых данных нет.
// Вне записи ничего не делает и возвращает nil.
func (r *Recorder) End() ([]int16, error) {
	if r.state != RecorderOngoing {
		return nil, nil
	}

	samples := r.inbound.drain()
	err := r.handle.Close()

	r.handle = nil
	r.inbound = nil
	r.samples = samples
	r.state = RecorderFinished

	if err != nil {
		return samples, fmt.Errorf("%w: остановка записи: %v", ErrAudio, err)
	}
	return samples, nil
}

// Samples возвращает законченную запись для распознавания.
func (r *Recorder) Samples() ([]int16, error) {
	switch r.state {
	case RecorderOngoing:
		return nil, ErrCurrentlyRecording
	case RecorderFinished:
		return r.samples, nil
	default:
		return nil, ErrNoRecording
	}
}

// State возвращает текущее состояние.
func (r *Recorder) State() RecorderState {
	return r.state
}

// IsRecording возвращает true если идёт запись.
func (r *Recorder) IsRecording() bool {
	return r.state == RecorderOngoing
}

// Close останавливает незаконченную запись.
func (r *Recorder) Close() error {
	_, err := r.End()
	return err
}
