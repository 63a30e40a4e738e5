// Package speech предоставляет абстракцию для движков распознавания речи.
package speech

import "errors"

var (
	// ErrRecognition - движок не смог распознать аудио.
	ErrRecognition = errors.New("ошибка распознавания")
	// ErrNotLoaded - модель распознавания не загружена.
	ErrNotLoaded = errors.New("модель распознавания не загружена")
)

// Recognizer - интерфейс для движков распознавания речи.
type Recognizer interface {
	// Transcribe распознаёт речь из 16-битных моно сэмплов с частотой SampleRate движка.
	// Пустой вход даёт пустой текст.
	Transcribe(samples []int16) (string, error)

	// Close освобождает ресурсы движка.
	Close()

	// Name возвращает название движка (для логирования).
	Name() string
}
