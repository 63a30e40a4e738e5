package speech

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"ttsloop/internal/models"
)

// Opener создаёт распознаватель из распакованной модели.
type Opener func(modelPath string, sampleRate int) (Recognizer, error)

// Factory управляет созданием и переключением распознавателей.
// Сама фабрика распознаёт текущим распознавателем.
type Factory struct {
	manager    *models.Manager
	open       Opener
	sampleRate int
	log        zerolog.Logger

	mu      sync.RWMutex
	current Recognizer
	modelID string
}

// NewFactory создаёт фабрику распознавателей.
func NewFactory(manager *models.Manager, open Opener, sampleRate int, logger zerolog.Logger) *Factory {
	return &Factory{
		manager:    manager,
		open:       open,
		sampleRate: sampleRate,
		log:        logger.With().Str("component", "speech").Logger(),
	}
}

// Create создаёт распознаватель для указанной модели.
func (f *Factory) Create(modelID string) (Recognizer, error) {
	info, ok := models.GetModel(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownModel, modelID)
	}

	if !f.manager.IsDownloaded(info) {
		return nil, fmt.Errorf("%w: модель не скачана: %s", ErrNotLoaded, info.Name)
	}

	rec, err := f.open(f.manager.ModelPath(info), f.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания распознавателя: %w", err)
	}
	return rec, nil
}

// Swap атомарно меняет текущий распознаватель на новый (hot-swap).
// Старый закрывается в фоне; его Close ждёт незавершённый Transcribe.
func (f *Factory) Swap(modelID string) error {
	rec, err := f.Create(modelID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	old := f.current
	f.current = rec
	f.modelID = modelID
	f.mu.Unlock()

	f.log.Info().Str("model", modelID).Str("engine", rec.Name()).Msg("Модель распознавания загружена")

	if old != nil {
		go old.Close()
	}
	return nil
}

// Transcribe распознаёт сэмплы текущим распознавателем.
func (f *Factory) Transcribe(samples []int16) (string, error) {
	rec := f.Current()
	if rec == nil {
		return "", ErrNotLoaded
	}

	text, err := rec.Transcribe(samples)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	return text, nil
}

// Current возвращает текущий распознаватель.
func (f *Factory) Current() Recognizer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// CurrentModelID возвращает ID текущей модели.
func (f *Factory) CurrentModelID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.modelID
}

// IsLoaded проверяет, загружена ли модель.
func (f *Factory) IsLoaded() bool {
	return f.Current() != nil
}

// Close закрывает текущий распознаватель.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil {
		f.current.Close()
		f.current = nil
		f.modelID = ""
	}
}
