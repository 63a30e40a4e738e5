// Package hotkey предоставляет глобальную горячую клавишу записи.
package hotkey

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"

	"ttsloop/internal/channel"
	"ttsloop/internal/config"
	"ttsloop/internal/ui"
)

// Защита от key repeat.
const debounceInterval = 300 * time.Millisecond

// Sender отправляет запросы движку.
type Sender interface {
	Send(req channel.Request) error
}

var _ ui.Sink = (*Handler)(nil)

// Handler переключает запись по нажатию: StartRecording, затем EndRecording.
// Состояние записи узнаёт от движка через ui.Sink.
type Handler struct {
	ui.Nop

	tx  Sender
	log zerolog.Logger

	mu        sync.Mutex
	hk        *hotkey.Hotkey
	current   config.HotkeyConfig
	stopCh    chan struct{}
	recording bool
}

// New создаёт обработчик горячей клавиши.
func New(tx Sender) *Handler {
	return &Handler{tx: tx, log: zerolog.Nop()}
}

// SetLogger задаёт логгер. Вызывается до Register.
func (h *Handler) SetLogger(logger zerolog.Logger) {
	h.mu.Lock()
	h.log = logger.With().Str("component", "hotkey").Logger()
	h.mu.Unlock()
}

// Register регистрирует горячую клавишу, заменяя предыдущую.
func (h *Handler) Register(cfg config.HotkeyConfig) error {
	mods := make([]hotkey.Modifier, 0, len(cfg.Modifiers))
	for _, m := range cfg.Modifiers {
		mod, ok := modifierMap[m]
		if !ok {
			return fmt.Errorf("неизвестный модификатор %q", m)
		}
		mods = append(mods, mod)
	}
	key, ok := keyMap[cfg.Key]
	if !ok {
		return fmt.Errorf("неизвестная клавиша %q", cfg.Key)
	}

	if err := h.Unregister(); err != nil {
		h.log.Warn().Err(err).Msg("Ошибка отмены предыдущей регистрации")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("ошибка регистрации %s: %w", cfg.String(), err)
	}

	h.hk = hk
	h.current = cfg
	h.stopCh = make(chan struct{})
	go h.listen(hk, h.stopCh)

	h.log.Info().Str("hotkey", cfg.String()).Msg("Горячая клавиша зарегистрирована")
	return nil
}

func (h *Handler) listen(hk *hotkey.Hotkey, stopCh chan struct{}) {
	var lastKeydown time.Time

	for {
		select {
		case <-stopCh:
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			now := time.Now()
			if now.Sub(lastKeydown) < debounceInterval {
				continue
			}
			lastKeydown = now
			h.toggle()
		case _, ok := <-hk.Keyup():
			if !ok {
				return
			}
			// В toggle режиме игнорируем keyup
		}
	}
}

func (h *Handler) toggle() {
	h.mu.Lock()
	recording := h.recording
	h.mu.Unlock()

	var req channel.Request = channel.StartRecording{}
	if recording {
		req = channel.EndRecording{}
	}
	if err := h.tx.Send(req); err != nil {
		h.log.Warn().Err(err).Str("request", channel.Kind(req)).Msg("Запрос не отправлен")
	}
}

// RecordingChanged запоминает состояние записи для следующего нажатия.
func (h *Handler) RecordingChanged(recording bool) {
	h.mu.Lock()
	h.recording = recording
	h.mu.Unlock()
}

// Unregister отменяет регистрацию горячей клавиши.
func (h *Handler) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopCh != nil {
		close(h.stopCh)
		h.stopCh = nil
	}

	if h.hk != nil {
		err := h.hk.Unregister()
		h.hk = nil
		return err
	}
	return nil
}

// Current возвращает текущую зарегистрированную горячую клавишу.
func (h *Handler) Current() config.HotkeyConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// RunOnMainThread запускает функцию в главном потоке (требование для macOS).
func RunOnMainThread(fn func()) {
	mainthread.Init(fn)
}

// keyMap маппинг config.Key -> hotkey.Key
var keyMap = map[config.Key]hotkey.Key{
	config.KeySpace:  hotkey.KeySpace,
	config.KeyReturn: hotkey.KeyReturn,
	config.KeyTab:    hotkey.KeyTab,
	config.KeyR:      hotkey.KeyR,
	config.KeyS:      hotkey.KeyS,
	config.KeyT:      hotkey.KeyT,
	config.KeyF1:     hotkey.KeyF1,
	config.KeyF2:     hotkey.KeyF2,
	config.KeyF3:     hotkey.KeyF3,
	config.KeyF4:     hotkey.KeyF4,
	config.KeyF5:     hotkey.KeyF5,
	config.KeyF6:     hotkey.KeyF6,
	config.KeyF7:     hotkey.KeyF7,
	config.KeyF8:     hotkey.KeyF8,
	config.KeyF9:     hotkey.KeyF9,
	config.KeyF10:    hotkey.KeyF10,
	config.KeyF11:    hotkey.KeyF11,
	config.KeyF12:    hotkey.KeyF12,
}
