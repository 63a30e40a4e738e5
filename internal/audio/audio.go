// Package audio предоставляет запись с микрофона и воспроизведение.
package audio

import (
	"errors"
	"time"
)

const (
	// SampleRate - частота дискретизации конвейера по умолчанию (требование распознавателя).
	SampleRate = 16000
	// Channels - количество каналов (mono).
	Channels = 1
	// FramesPerBuffer - размер буфера портаудио.
	FramesPerBuffer = 1024
)

var (
	// ErrAudio - ошибка аудиоустройства или формата.
	ErrAudio = errors.New("ошибка аудио")
	// ErrCurrentlyRecording - распознавание запрошено во время записи.
	ErrCurrentlyRecording = errors.New("идёт запись")
	// ErrNoRecording - запись ещё не производилась.
	ErrNoRecording = errors.New("нет записи")
)

// CaptureHandle - открытый поток захвата. Close останавливает захват.
type CaptureHandle interface {
	Close() error
}

// Source открывает захват звука. onChunk вызывается в потоке аудиоподсистемы
// на каждый буфер; слайс действителен только во время вызова.
type Source interface {
	OpenCapture(sampleRate int, onChunk func(chunk []int16)) (CaptureHandle, error)
}

// Sink воспроизводит сэмплы и возвращается только после окончания.
type Sink interface {
	PlayBlocking(samples []int16, sampleRate int) error
}

// Duration возвращает длительность сэмплов при заданной частоте.
func Duration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
