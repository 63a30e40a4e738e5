package synth

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config - параметры бэкенда.
type Config struct {
	// Bin - путь к исполняемому файлу синтезатора; пустой означает имя по умолчанию.
	Bin        string
	SampleRate int
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Factory создаёт бэкенд по конфигурации.
type Factory func(cfg Config) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register регистрирует бэкенд. Повторная регистрация имени - ошибка программиста.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("synth: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("synth: Register called twice for " + name)
	}
	registry[name] = factory
}

// New создаёт бэкенд name и оборачивает его в Synth.
func New(ctx context.Context, name string, cfg Config) (*Synth, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: неизвестный бэкенд %q (доступны: %v)", ErrSynthesis, name, Backends())
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	return NewSynth(ctx, backend, cfg)
}

// Backends возвращает отсортированные имена зарегистрированных бэкендов.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
