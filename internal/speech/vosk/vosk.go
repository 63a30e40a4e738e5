// Package vosk реализует speech.Recognizer через Vosk.
package vosk

import (
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"ttsloop/internal/speech"
)

var _ speech.Recognizer = (*Recognizer)(nil)

// Recognizer распознаёт речь моделью Vosk.
type Recognizer struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

// New создаёт Recognizer из пути к модели.
func New(modelPath string, sampleRate int) (*Recognizer, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("модель Vosk не найдена: %s", modelPath)
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки модели Vosk: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("ошибка создания распознавателя Vosk: %w", err)
	}

	return &Recognizer{
		model:      model,
		recognizer: rec,
	}, nil
}

// Open - speech.Opener для Vosk.
func Open(modelPath string, sampleRate int) (speech.Recognizer, error) {
	return New(modelPath, sampleRate)
}

// Name возвращает название движка.
func (v *Recognizer) Name() string {
	return "vosk"
}

// Transcribe распознаёт речь. Vosk принимает PCM16 little-endian байты.
func (v *Recognizer) Transcribe(samples []int16) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer == nil {
		return "", speech.ErrNotLoaded
	}
	if len(samples) == 0 {
		return "", nil
	}

	v.recognizer.AcceptWaveform(speech.PCM16LE(samples))
	resultJSON := v.recognizer.FinalResult()

	// Сбрасываем распознаватель для следующего использования
	v.recognizer.Reset()

	return speech.ParseResult(resultJSON)
}

// Close освобождает ресурсы.
func (v *Recognizer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
}
