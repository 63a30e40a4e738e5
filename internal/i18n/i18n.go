// Package i18n provides internationalization support.
package i18n

import (
	"fmt"
	"sync"
)

// Language represents a UI language.
type Language string

const (
	RU Language = "ru"
	EN Language = "en"
)

var (
	mu      sync.RWMutex
	current = RU // Default language
)

// Translations for all supported languages.
var translations = map[Language]map[string]string{
	RU: {
		// App
		"app_name":    "TTS Loop",
		"app_tooltip": "TTS Loop - синтез и распознавание по кругу",

		// Tray menu
		"tray_idle":        "Готов к работе",
		"tray_busy":        "Выполняется цикл...",
		"tray_recording":   "Запись...",
		"tray_start":       "Запустить...",
		"tray_start_hint":  "Ввести текст и число итераций",
		"tray_cancel":      "Отменить",
		"tray_cancel_hint": "Остановить текущий цикл и очередь",
		"tray_audio":       "Звук",
		"tray_audio_hint":  "Воспроизводить синтезированную речь",
		"tray_voice":       "Голос",
		"tray_record":      "Записать",
		"tray_record_stop": "Остановить запись",
		"tray_record_hint": "Записать текст с микрофона",
		"tray_save":        "Сохранить...",
		"tray_save_hint":   "Сохранить аудио последнего цикла в WAV",
		"tray_quit":        "Выход",
		"tray_quit_hint":   "Закрыть приложение",

		// Notifications
		"notify_started":  "Запуск",
		"notify_output":   "Распознано",
		"notify_input":    "Записано",
		"notify_error":    "Ошибка",
		"notify_canceled": "Отменено",
		"notify_saved":    "Файл сохранён",
		"notify_voice":    "Голос изменён",

		// Dialogs
		"dialog_start_title":        "Новый цикл",
		"dialog_start_text":         "Текст для синтеза:",
		"dialog_iterations":         "Число итераций:",
		"dialog_iterations_invalid": "Число итераций должно быть целым числом не меньше 1",
		"dialog_save_title":         "Сохранить WAV",
		"dialog_error_title":        "Ошибка",

		// Console
		"console_help": "Команды:\n" +
			"  say N текст   запустить цикл из N итераций\n" +
			"  voice ИМЯ     сменить голос\n" +
			"  voices        список голосов\n" +
			"  audio on|off  включить/выключить звук\n" +
			"  cancel        отменить цикл и очередь\n" +
			"  save [путь]   сохранить аудио в WAV\n" +
			"  rec / stop    начать/остановить запись\n" +
			"  help          эта справка\n" +
			"  quit          выход",
		"console_unknown":       "неизвестная команда: %s (help - список команд)",
		"console_say_usage":     "использование: say N текст",
		"console_audio_usage":   "использование: audio on|off",
		"console_voice_usage":   "использование: voice ИМЯ",
		"console_started":       "запуск: %q, голос %s, итераций %d",
		"console_output":        "> %s",
		"console_input":         "записано: %s",
		"console_error":         "ошибка: %s",
		"console_canceled":      "отменено",
		"console_voice":         "голос: %s",
		"console_default_voice": "по умолчанию",
		"console_saved":         "сохранено: %s",
		"console_recording_on":  "запись...",
		"console_audio_on":      "воспроизведение включено",
		"console_audio_off":     "воспроизведение выключено",
		"console_recording_off": "запись остановлена",
		"console_busy":          "занят",
		"console_idle":          "готов",
		"console_voices":        "голоса: %s",
		"console_send_failed":   "движок остановлен",
	},
	EN: {
		// App
		"app_name":    "TTS Loop",
		"app_tooltip": "TTS Loop - speak and listen in a loop",

		// Tray menu
		"tray_idle":        "Ready",
		"tray_busy":        "Loop running...",
		"tray_recording":   "Recording...",
		"tray_start":       "Start...",
		"tray_start_hint":  "Enter text and iteration count",
		"tray_cancel":      "Cancel",
		"tray_cancel_hint": "Stop the current loop and the queue",
		"tray_audio":       "Audio",
		"tray_audio_hint":  "Play synthesized speech",
		"tray_voice":       "Voice",
		"tray_record":      "Record",
		"tray_record_stop": "Stop recording",
		"tray_record_hint": "Record text from the microphone",
		"tray_save":        "Save...",
		"tray_save_hint":   "Save audio of the last loop as WAV",
		"tray_quit":        "Quit",
		"tray_quit_hint":   "Close the application",

		// Notifications
		"notify_started":  "Started",
		"notify_output":   "Recognized",
		"notify_input":    "Recorded",
		"notify_error":    "Error",
		"notify_canceled": "Canceled",
		"notify_saved":    "File saved",
		"notify_voice":    "Voice changed",

		// Dialogs
		"dialog_start_title":        "New loop",
		"dialog_start_text":         "Text to synthesize:",
		"dialog_iterations":         "Iterations:",
		"dialog_iterations_invalid": "Iterations must be a whole number of at least 1",
		"dialog_save_title":         "Save WAV",
		"dialog_error_title":        "Error",

		// Console
		"console_help": "Commands:\n" +
			"  say N text    run a loop of N iterations\n" +
			"  voice NAME    change voice\n" +
			"  voices        list voices\n" +
			"  audio on|off  toggle playback\n" +
			"  cancel        cancel the loop and the queue\n" +
			"  save [path]   save audio as WAV\n" +
			"  rec / stop    start/stop recording\n" +
			"  help          this help\n" +
			"  quit          exit",
		"console_unknown":       "unknown command: %s (help lists commands)",
		"console_say_usage":     "usage: say N text",
		"console_audio_usage":   "usage: audio on|off",
		"console_voice_usage":   "usage: voice NAME",
		"console_started":       "started: %q, voice %s, %d iterations",
		"console_output":        "> %s",
		"console_input":         "recorded: %s",
		"console_error":         "error: %s",
		"console_canceled":      "canceled",
		"console_voice":         "voice: %s",
		"console_default_voice": "default",
		"console_saved":         "saved: %s",
		"console_recording_on":  "recording...",
		"console_audio_on":      "playback on",
		"console_audio_off":     "playback off",
		"console_recording_off": "recording stopped",
		"console_busy":          "busy",
		"console_idle":          "ready",
		"console_voices":        "voices: %s",
		"console_send_failed":   "engine stopped",
	},
}

// T returns the translation for the given key.
func T(key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if strings, ok := translations[current]; ok {
		if s, ok := strings[key]; ok {
			return s
		}
	}
	// Fallback to key itself
	return key
}

// Tf formats the translation for the given key.
func Tf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}

// SetLanguage sets the current UI language. Unknown languages are ignored.
func SetLanguage(lang Language) {
	if _, ok := translations[lang]; !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	current = lang
}

// GetLanguage returns the current UI language.
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// AvailableLanguages returns list of supported languages.
func AvailableLanguages() []Language {
	return []Language{RU, EN}
}

// LanguageName returns display name for a language.
func LanguageName(lang Language) string {
	switch lang {
	case RU:
		return "Русский"
	case EN:
		return "English"
	default:
		return string(lang)
	}
}
