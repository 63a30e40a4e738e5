// Package synth превращает текст в 16-битные сэмплы через внешний синтезатор.
package synth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"ttsloop/internal/wav"
)

var (
	// ErrSynthesis - синтез не удался.
	ErrSynthesis = errors.New("ошибка синтеза")
	// ErrInvalidText - текст нельзя передать синтезатору (встроенный NUL).
	ErrInvalidText = fmt.Errorf("%w: недопустимый текст", ErrSynthesis)
	// ErrUnknownVoice - голос не поддерживается бэкендом.
	ErrUnknownVoice = fmt.Errorf("%w: неизвестный голос", ErrSynthesis)
)

// DefaultTimeout ограничивает один вызов синтезатора.
const DefaultTimeout = 30 * time.Second

// Backend - конкретный внешний синтезатор.
type Backend interface {
	Name() string
	// Voices перечисляет голоса в порядке предпочтения.
	Voices(ctx context.Context) ([]string, error)
	// Render синтезирует текст голосом voice в исходной частоте бэкенда.
	Render(ctx context.Context, text, voice string) (*wav.Audio, error)
}

// Synth - синтезатор с проверкой текста и голоса и приведением к частоте конвейера.
type Synth struct {
	backend    Backend
	sampleRate int
	timeout    time.Duration
	voices     []string
	log        zerolog.Logger
}

// NewSynth оборачивает бэкенд. Список голосов запрашивается один раз.
func NewSynth(ctx context.Context, backend Backend, cfg Config) (*Synth, error) {
	voices, err := backend.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: список голосов %s: %v", ErrSynthesis, backend.Name(), err)
	}
	if len(voices) == 0 {
		return nil, fmt.Errorf("%w: у бэкенда %s нет голосов", ErrSynthesis, backend.Name())
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Synth{
		backend:    backend,
		sampleRate: cfg.SampleRate,
		timeout:    timeout,
		voices:     voices,
		log:        cfg.Logger.With().Str("component", "synth").Str("backend", backend.Name()).Logger(),
	}, nil
}

// Name возвращает имя бэкенда.
func (s *Synth) Name() string {
	return s.backend.Name()
}

// Voices возвращает копию списка голосов.
func (s *Synth) Voices() []string {
	return slices.Clone(s.voices)
}

// DefaultVoice - первый голос бэкенда.
func (s *Synth) DefaultVoice() string {
	return s.voices[0]
}

// HasVoice проверяет, поддерживается ли голос.
func (s *Synth) HasVoice(voice string) bool {
	return slices.Contains(s.voices, voice)
}

// Synthesize синтезирует текст. Пустой voice означает голос по умолчанию.
func (s *Synth) Synthesize(text, voice string) ([]int16, error) {
	if strings.ContainsRune(text, 0) {
		return nil, ErrInvalidText
	}
	if voice == "" {
		voice = s.DefaultVoice()
	}
	if !s.HasVoice(voice) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}

	text = Normalize(text)
	if text == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	audio, err := s.backend.Render(ctx, text, voice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	samples, err := Resample(audio.Samples, audio.SampleRate, s.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	s.log.Debug().
		Str("voice", voice).
		Int("chars", len(text)).
		Int("samples", len(samples)).
		Int("source_rate", audio.SampleRate).
		Dur("elapsed", time.Since(start)).
		Msg("Синтез завершён")

	return samples, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize приводит текст к NFC и схлопывает пробелы.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
