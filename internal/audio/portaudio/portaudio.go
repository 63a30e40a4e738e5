// Package portaudio реализует захват и воспроизведение через PortAudio.
package portaudio

import (
	"fmt"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"ttsloop/internal/audio"
)

var (
	_ audio.Source = (*Device)(nil)
	_ audio.Sink   = (*Device)(nil)
)

// Device реализует audio.Source и audio.Sink поверх устройств по умолчанию.
type Device struct {
	mu     sync.Mutex
	frames int
	closed bool
}

// Open инициализирует PortAudio. Close обязателен.
func Open() (*Device, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: инициализация portaudio: %v", audio.ErrAudio, err)
	}
	return &Device{frames: audio.FramesPerBuffer}, nil
}

// OpenCapture открывает входной поток с callback-обработчиком.
// Callback выполняется в потоке PortAudio и не должен блокироваться.
func (p *Device) OpenCapture(sampleRate int, onChunk func(chunk []int16)) (audio.CaptureHandle, error) {
	if err := p.check(sampleRate); err != nil {
		return nil, err
	}

	stream, err := pa.OpenDefaultStream(
		audio.Channels, // input channels
		0,              // output channels
		float64(sampleRate),
		p.frames,
		func(in []int16) {
			onChunk(in)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: открытие входного потока: %v", audio.ErrAudio, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: запуск входного потока: %v", audio.ErrAudio, err)
	}

	return &captureStream{stream: stream}, nil
}

// PlayBlocking воспроизводит сэмплы и ждёт окончания.
func (p *Device) PlayBlocking(samples []int16, sampleRate int) error {
	if err := p.check(sampleRate); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	buf := make([]int16, p.frames)
	stream, err := pa.OpenDefaultStream(
		0,              // input channels
		audio.Channels, // output channels
		float64(sampleRate),
		len(buf),
		buf,
	)
	if err != nil {
		return fmt.Errorf("%w: открытие выходного потока: %v", audio.ErrAudio, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("%w: запуск выходного потока: %v", audio.ErrAudio, err)
	}

	for pos := 0; pos < len(samples); pos += len(buf) {
		n := copy(buf, samples[pos:])
		// Хвост последнего буфера заполняем тишиной
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			stream.Stop()
			return fmt.Errorf("%w: запись в выходной поток: %v", audio.ErrAudio, err)
		}
	}

	// Stop дожидается проигрывания буферов
	if err := stream.Stop(); err != nil {
		return fmt.Errorf("%w: остановка выходного потока: %v", audio.ErrAudio, err)
	}
	return nil
}

// Close освобождает PortAudio.
func (p *Device) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return pa.Terminate()
}

func (p *Device) check(sampleRate int) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return fmt.Errorf("%w: portaudio закрыт", audio.ErrAudio)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: некорректная частота дискретизации %d", audio.ErrAudio, sampleRate)
	}
	return nil
}

type captureStream struct {
	once   sync.Once
	stream *pa.Stream
	err    error
}

func (c *captureStream) Close() error {
	c.once.Do(func() {
		if err := c.stream.Stop(); err != nil {
			c.err = err
		}
		if err := c.stream.Close(); err != nil && c.err == nil {
			c.err = err
		}
	})
	return c.err
}
