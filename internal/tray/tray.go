// Package tray предоставляет системный трей с меню управления циклом.
package tray

import (
	"errors"
	"sync"

	"github.com/getlantern/systray"

	"ttsloop/embedded"
	"ttsloop/internal/channel"
	"ttsloop/internal/dialog"
	"ttsloop/internal/i18n"
	"ttsloop/internal/ui"
)

// State представляет состояние движка для отображения в трее.
type State int

const (
	StateIdle State = iota
	StateBusy
	StateRecording
)

// Icon возвращает иконку состояния.
func (s State) Icon() []byte {
	switch s {
	case StateBusy:
		return embedded.IconBusy
	case StateRecording:
		return embedded.IconRecording
	default:
		return embedded.IconIdle
	}
}

func (s State) statusKey() string {
	switch s {
	case StateBusy:
		return "tray_busy"
	case StateRecording:
		return "tray_recording"
	default:
		return "tray_idle"
	}
}

// Sender отправляет запросы движку.
type Sender interface {
	Send(req channel.Request) error
}

// Options - зависимости трея.
type Options struct {
	Sender       Sender
	Voices       []string
	Voice        string
	AudioEnabled bool
	SavePath     string

	// Диалоги; по умолчанию zenity из пакета dialog.
	AskJob      func(lastText string, lastIterations int) (dialog.Job, error)
	AskSavePath func(defaultPath string) (string, error)
	ShowError   func(title, message string)
}

var _ ui.Sink = (*Tray)(nil)

// Tray управляет иконкой в системном трее. Реализует ui.Sink.
type Tray struct {
	ui.Nop

	tx          Sender
	voices      []string
	askJob      func(string, int) (dialog.Job, error)
	askSavePath func(string) (string, error)
	showError   func(string, string)

	mu        sync.Mutex
	busy      bool
	recording bool
	audio     bool
	voice     string
	lastText  string
	lastIters int
	savePath  string
	menu      *menu
}

type menu struct {
	status    *systray.MenuItem
	start     *systray.MenuItem
	cancel    *systray.MenuItem
	audio     *systray.MenuItem
	voice     *systray.MenuItem
	voiceItem map[string]*systray.MenuItem
	record    *systray.MenuItem
	save      *systray.MenuItem
	quit      *systray.MenuItem
}

// New создаёт новый Tray.
func New(opts Options) *Tray {
	t := &Tray{
		tx:          opts.Sender,
		voices:      opts.Voices,
		askJob:      opts.AskJob,
		askSavePath: opts.AskSavePath,
		showError:   opts.ShowError,
		audio:       opts.AudioEnabled,
		voice:       opts.Voice,
		lastIters:   1,
		savePath:    opts.SavePath,
	}
	if t.askJob == nil {
		t.askJob = dialog.AskJob
	}
	if t.askSavePath == nil {
		t.askSavePath = dialog.AskSavePath
	}
	if t.showError == nil {
		t.showError = dialog.ShowError
	}
	if t.savePath == "" {
		t.savePath = "output.wav"
	}
	return t
}

// SetVoices задаёт список голосов для меню. Вызывается до Run.
func (t *Tray) SetVoices(voices []string) {
	t.mu.Lock()
	t.voices = append([]string(nil), voices...)
	t.mu.Unlock()
}

// Run запускает системный трей. Блокирующая функция, вызывается из главного потока.
func (t *Tray) Run(onReady func(), onExit func()) {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, onExit)
}

// Quit закрывает системный трей.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(StateIdle.Icon())
	systray.SetTitle(i18n.T("app_name"))
	systray.SetTooltip(i18n.T("app_tooltip"))

	m := &menu{voiceItem: make(map[string]*systray.MenuItem)}

	// Статус
	m.status = systray.AddMenuItem(i18n.T("tray_idle"), "")
	m.status.Disable()

	systray.AddSeparator()

	m.start = systray.AddMenuItem(i18n.T("tray_start"), i18n.T("tray_start_hint"))
	m.cancel = systray.AddMenuItem(i18n.T("tray_cancel"), i18n.T("tray_cancel_hint"))
	m.record = systray.AddMenuItem(i18n.T("tray_record"), i18n.T("tray_record_hint"))
	m.save = systray.AddMenuItem(i18n.T("tray_save"), i18n.T("tray_save_hint"))

	systray.AddSeparator()

	t.mu.Lock()
	m.audio = systray.AddMenuItemCheckbox(i18n.T("tray_audio"), i18n.T("tray_audio_hint"), t.audio)
	m.voice = systray.AddMenuItem(i18n.T("tray_voice"), "")
	for _, v := range t.voices {
		item := m.voice.AddSubMenuItemCheckbox(v, "", v == t.voice)
		m.voiceItem[v] = item
		go t.listenVoice(v, item)
	}
	t.menu = m
	t.mu.Unlock()

	systray.AddSeparator()

	// Выход
	m.quit = systray.AddMenuItem(i18n.T("tray_quit"), i18n.T("tray_quit_hint"))

	t.refresh()

	// Обработка событий меню
	go t.handleMenuEvents(m)
}

func (t *Tray) handleMenuEvents(m *menu) {
	for {
		select {
		case <-m.start.ClickedCh:
			t.start()
		case <-m.cancel.ClickedCh:
			t.send(channel.Cancel{})
		case <-m.record.ClickedCh:
			t.toggleRecording()
		case <-m.save.ClickedCh:
			t.save()
		case <-m.audio.ClickedCh:
			t.toggleAudio()
		case <-m.quit.ClickedCh:
			t.quit()
			return
		}
	}
}

func (t *Tray) listenVoice(voice string, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.send(channel.SetVoice{Voice: voice})
	}
}

func (t *Tray) send(req channel.Request) {
	if err := t.tx.Send(req); err != nil {
		t.showError(i18n.T("dialog_error_title"), err.Error())
	}
}

// start спрашивает текст и число итераций и отправляет StartJob.
func (t *Tray) start() {
	t.mu.Lock()
	lastText, lastIters := t.lastText, t.lastIters
	t.mu.Unlock()

	job, err := t.askJob(lastText, lastIters)
	if err != nil {
		return // Отменено или ошибка ввода уже показана
	}

	t.mu.Lock()
	t.lastText, t.lastIters = job.Text, job.Iterations
	t.mu.Unlock()

	t.send(channel.StartJob{Text: job.Text, Iterations: job.Iterations})
}

func (t *Tray) save() {
	t.mu.Lock()
	def := t.savePath
	t.mu.Unlock()

	path, err := t.askSavePath(def)
	if err != nil {
		if !errors.Is(err, dialog.ErrCanceled) {
			t.showError(i18n.T("dialog_error_title"), err.Error())
		}
		return
	}

	t.mu.Lock()
	t.savePath = path
	t.mu.Unlock()

	t.send(channel.Save{Path: path})
}

func (t *Tray) toggleRecording() {
	t.mu.Lock()
	recording := t.recording
	t.mu.Unlock()

	if recording {
		t.send(channel.EndRecording{})
	} else {
		t.send(channel.StartRecording{})
	}
}

// toggleAudio просит движок переключить звук; флажок меняется по AudioChanged.
func (t *Tray) toggleAudio() {
	t.mu.Lock()
	enable := !t.audio
	t.mu.Unlock()

	t.send(channel.EnableAudio{Enable: enable})
	t.refresh()
}

func (t *Tray) quit() {
	t.send(channel.Shutdown{})
	systray.Quit()
}

// State возвращает текущее состояние иконки.
func (t *Tray) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state()
}

func (t *Tray) state() State {
	switch {
	case t.recording:
		return StateRecording
	case t.busy:
		return StateBusy
	default:
		return StateIdle
	}
}

// refresh приводит иконку и меню к текущему состоянию.
func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.menu
	if m == nil {
		return
	}

	state := t.state()
	systray.SetIcon(state.Icon())
	systray.SetTooltip(i18n.T("app_name") + " - " + i18n.T(state.statusKey()))
	m.status.SetTitle(i18n.T(state.statusKey()))

	if t.busy {
		m.cancel.Enable()
		m.save.Disable()
	} else {
		m.cancel.Disable()
		m.save.Enable()
	}

	if t.recording {
		m.record.SetTitle(i18n.T("tray_record_stop"))
	} else {
		m.record.SetTitle(i18n.T("tray_record"))
	}

	if t.audio {
		m.audio.Check()
	} else {
		m.audio.Uncheck()
	}

	for v, item := range m.voiceItem {
		if v == t.voice {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (t *Tray) StateChanged(busy bool) {
	t.mu.Lock()
	t.busy = busy
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) RecordingChanged(recording bool) {
	t.mu.Lock()
	t.recording = recording
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) AudioChanged(enabled bool) {
	t.mu.Lock()
	t.audio = enabled
	t.mu.Unlock()
	t.refresh()
}

func (t *Tray) VoiceChanged(voice string) {
	t.mu.Lock()
	t.voice = voice
	t.mu.Unlock()
	t.refresh()
}
