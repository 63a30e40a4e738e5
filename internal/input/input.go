// Package input вводит итоговый текст цикла в активное поле ввода.
package input

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ttsloop/internal/ui"
)

// ErrUnavailable - на платформе нет способа ввести текст.
var ErrUnavailable = errors.New("ввод текста недоступен")

// Typer вводит текст в текущее активное поле.
type Typer interface {
	Type(text string) error
}

// New создаёт платформо-специфичный Typer.
func New() (Typer, error) {
	return newTyper()
}

var _ ui.Sink = (*Sink)(nil)

// Sink запоминает последний распознанный текст задачи и вводит его,
// когда задача завершается. Отменённые задачи не вводятся.
type Sink struct {
	ui.Nop

	typer Typer
	log   zerolog.Logger

	mu   sync.Mutex
	last string
}

// NewSink создаёт Sink поверх typer.
func NewSink(typer Typer) *Sink {
	return &Sink{typer: typer, log: zerolog.Nop()}
}

// SetLogger задаёт логгер. Вызывается до запуска движка.
func (s *Sink) SetLogger(logger zerolog.Logger) {
	s.mu.Lock()
	s.log = logger.With().Str("component", "input").Logger()
	s.mu.Unlock()
}

func (s *Sink) JobStarted(string, string, int) { s.reset() }
func (s *Sink) Error(string)                   { s.reset() }
func (s *Sink) Canceled()                      { s.reset() }

func (s *Sink) Output(text string) {
	s.mu.Lock()
	s.last = text
	s.mu.Unlock()
}

func (s *Sink) StateChanged(busy bool) {
	if busy {
		return
	}

	s.mu.Lock()
	text := strings.TrimSpace(s.last)
	s.last = ""
	log := s.log
	s.mu.Unlock()

	if text == "" {
		return
	}
	if err := s.typer.Type(text); err != nil {
		log.Warn().Err(err).Msg("Текст не введён")
	}
}

func (s *Sink) reset() {
	s.mu.Lock()
	s.last = ""
	s.mu.Unlock()
}
