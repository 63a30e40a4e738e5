// Package notify показывает события движка системными уведомлениями.
package notify

import (
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"ttsloop/internal/i18n"
	"ttsloop/internal/ui"
)

const maxMessage = 100

var _ ui.Sink = (*Notifier)(nil)

// Notifier отправляет системные уведомления. Реализует ui.Sink.
type Notifier struct {
	enabled atomic.Bool
	send    func(title, message string) error
}

// New создаёт новый Notifier.
func New(enabled bool) *Notifier {
	n := &Notifier{
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled включает/выключает уведомления.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Enabled возвращает true, если уведомления включены.
func (n *Notifier) Enabled() bool {
	return n.enabled.Load()
}

func (n *Notifier) JobStarted(text, voice string, iterations int) {
	n.notify(i18n.T("notify_started"), text)
}

func (n *Notifier) Output(text string) {
	n.notify(i18n.T("notify_output"), text)
}

func (n *Notifier) InputText(text string) {
	n.notify(i18n.T("notify_input"), text)
}

func (n *Notifier) Error(msg string) {
	n.notify(i18n.T("notify_error"), msg)
}

func (n *Notifier) Canceled() {
	n.notify(i18n.T("notify_canceled"), "")
}

func (n *Notifier) VoiceChanged(voice string) {
	n.notify(i18n.T("notify_voice"), voice)
}

func (n *Notifier) FileSaved(path string) {
	n.notify(i18n.T("notify_saved"), path)
}

// AudioChanged, RecordingChanged, StateChanged и Log видны в трее и консоли,
// уведомления не нужны.
func (n *Notifier) AudioChanged(bool)     {}
func (n *Notifier) RecordingChanged(bool) {}
func (n *Notifier) StateChanged(bool)     {}
func (n *Notifier) Log(ui.Level, string)  {}

func (n *Notifier) notify(title, message string) {
	if !n.enabled.Load() {
		return
	}
	if r := []rune(message); len(r) > maxMessage {
		message = string(r[:maxMessage]) + "..."
	}
	// Игнорируем ошибки уведомлений - они не критичны
	_ = n.send(i18n.T("app_name")+": "+title, message)
}
