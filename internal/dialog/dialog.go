// Package dialog предоставляет GUI диалоги для трея: запуск цикла, сохранение, выбор голоса.
package dialog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ncruces/zenity"

	"ttsloop/internal/i18n"
)

// ErrCanceled возвращается, если пользователь закрыл диалог.
var ErrCanceled = zenity.ErrCanceled

// ErrInvalidIterations - введено не число или число меньше 1.
var ErrInvalidIterations = errors.New("invalid iterations")

// Job - параметры нового цикла.
type Job struct {
	Text       string
	Iterations int
}

// AskJob спрашивает текст и число итераций.
func AskJob(lastText string, lastIterations int) (Job, error) {
	text, err := zenity.Entry(
		i18n.T("dialog_start_text"),
		zenity.Title(i18n.T("dialog_start_title")),
		zenity.EntryText(lastText),
	)
	if err != nil {
		return Job{}, err // Пользователь отменил
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Job{}, ErrCanceled
	}

	if lastIterations < 1 {
		lastIterations = 1
	}
	countStr, err := zenity.Entry(
		i18n.T("dialog_iterations"),
		zenity.Title(i18n.T("dialog_start_title")),
		zenity.EntryText(strconv.Itoa(lastIterations)),
	)
	if err != nil {
		return Job{}, err
	}

	n, err := ParseIterations(countStr)
	if err != nil {
		ShowError(i18n.T("dialog_error_title"), i18n.T("dialog_iterations_invalid"))
		return Job{}, err
	}
	return Job{Text: text, Iterations: n}, nil
}

// ParseIterations разбирает число итераций из поля ввода.
func ParseIterations(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIterations, s)
	}
	return n, nil
}

// AskSavePath открывает диалог сохранения WAV.
func AskSavePath(defaultPath string) (string, error) {
	path, err := zenity.SelectFileSave(
		zenity.Title(i18n.T("dialog_save_title")),
		zenity.Filename(defaultPath),
		zenity.ConfirmOverwrite(),
		zenity.FileFilters{{Name: "WAV", Patterns: []string{"*.wav"}}},
	)
	if err != nil {
		return "", err
	}
	return WithWavExt(path), nil
}

// WithWavExt добавляет расширение .wav, если его нет.
func WithWavExt(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".wav") {
		return path
	}
	return path + ".wav"
}

// SelectVoice открывает список голосов.
func SelectVoice(voices []string, current string) (string, error) {
	return zenity.List(
		i18n.T("tray_voice")+":",
		voices,
		zenity.Title(i18n.T("tray_voice")),
		zenity.DefaultItems(current),
	)
}

// ShowInfo показывает информационное сообщение.
func ShowInfo(title, message string) {
	zenity.Info(message, zenity.Title(title))
}

// ShowError показывает сообщение об ошибке.
func ShowError(title, message string) {
	zenity.Error(message, zenity.Title(title))
}
