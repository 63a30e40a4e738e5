// Package logging настраивает zerolog и пересылает записи во фронтенды.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ttsloop/internal/ui"
)

// Options - параметры логирования.
type Options struct {
	// Level - debug, info, warn, error. Неизвестное значение означает info.
	Level string
	// File - JSON-лог в файл вместо консоли.
	File string
	// Console - вывод человекочитаемого лога, по умолчанию os.Stderr.
	Console io.Writer
	// UI получает сообщения уровня UILevel и выше; может быть nil.
	UI      *ui.Handle
	UILevel zerolog.Level
}

// Setup создаёт логгер. Возвращённый io.Closer закрывает файл лога.
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var (
		base   io.Writer
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("не удалось открыть файл лога: %w", err)
		}
		base, closer = f, f
	} else {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		base = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	w := base
	if opts.UI != nil {
		w = zerolog.MultiLevelWriter(base, &UIWriter{Handle: opts.UI, MinLevel: opts.UILevel})
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// UIWriter пересылает сообщение и уровень записи во фронтенд.
// После закрытия Handle запись молча пропускается.
type UIWriter struct {
	Handle   *ui.Handle
	MinLevel zerolog.Level
}

var _ zerolog.LevelWriter = (*UIWriter)(nil)

// Write вызывается для записей без уровня.
func (w *UIWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel извлекает message из JSON-записи zerolog.
func (w *UIWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.MinLevel || level == zerolog.Disabled || !w.Handle.Alive() {
		return len(p), nil
	}

	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		return len(p), nil
	}

	msg, _ := event[zerolog.MessageFieldName].(string)
	if errText, ok := event[zerolog.ErrorFieldName].(string); ok {
		if msg == "" {
			msg = errText
		} else {
			msg += ": " + errText
		}
	}
	if msg == "" {
		return len(p), nil
	}

	w.Handle.Log(Level(level), msg)
	return len(p), nil
}

// Level переводит уровень zerolog в уровень фронтенда.
func Level(level zerolog.Level) ui.Level {
	switch {
	case level <= zerolog.DebugLevel:
		return ui.LevelDebug
	case level == zerolog.InfoLevel || level == zerolog.NoLevel:
		return ui.LevelInfo
	case level == zerolog.WarnLevel:
		return ui.LevelWarn
	default:
		return ui.LevelError
	}
}
