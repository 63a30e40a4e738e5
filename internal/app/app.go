// Package app содержит движок: цикл обработки запросов и этапов задачи.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ttsloop/internal/audio"
	"ttsloop/internal/channel"
	"ttsloop/internal/loop"
	"ttsloop/internal/metrics"
	"ttsloop/internal/storage"
	"ttsloop/internal/ui"
	"ttsloop/internal/wav"
)

var (
	// ErrPersistence - не удалось сохранить файл.
	ErrPersistence = errors.New("ошибка сохранения")
	// ErrNoData - сохранять нечего: задача ещё не запускалась.
	ErrNoData = errors.New("нет синтезированного аудио")
	// ErrCanceled - причина прерывания задачи по Cancel или Shutdown.
	ErrCanceled = errors.New("задача отменена")
)

// SaveTimeout ограничивает загрузку файла при Save.
const SaveTimeout = time.Minute

// Store сохраняет готовый WAV и возвращает итоговое расположение.
type Store interface {
	Put(ctx context.Context, dest string, data []byte, contentType string) (string, error)
}

// VoiceChecker проверяет голос до синтеза. Реализуется синтезатором по желанию.
type VoiceChecker interface {
	HasVoice(voice string) bool
}

// Options - зависимости движка.
type Options struct {
	Synth      loop.Synthesizer
	Player     audio.Sink
	Recognizer loop.Recognizer
	// Source - микрофон для StartRecording; nil отключает запись.
	Source audio.Source
	// Store - куда сохранять Save; по умолчанию локальные файлы.
	Store Store
	// UI получает уведомления; nil означает ui.Nop.
	UI      ui.Sink
	Logger  zerolog.Logger
	Metrics *metrics.Collector

	// SampleRate общая для синтеза, воспроизведения и распознавания.
	SampleRate int
	// Settings - начальные настройки.
	Settings loop.Settings
	// MinRecording - более короткие записи не распознаются.
	MinRecording time.Duration

	// OnSettingsChange вызывается из горутины движка после SetVoice и EnableAudio.
	OnSettingsChange func(loop.Settings)

	// Sender и Receiver - заранее созданная пара channel.New, чтобы фронтенды
	// получили отправителя до создания движка. Если nil, пара создаётся здесь.
	Sender   *channel.Sender
	Receiver *channel.Receiver
}

// Engine - единственный владелец состояния задачи, настроек и записи.
// Все методы, кроме Sender и Settings, вызываются только из Run.
type Engine struct {
	tx *channel.Sender
	rx *channel.Receiver

	deps     loop.Deps
	state    loop.State
	recorder *audio.Recorder

	store        Store
	ui           ui.Sink
	log          zerolog.Logger
	metrics      *metrics.Collector
	minRecording time.Duration
	onSettings   func(loop.Settings)

	settingsMu sync.RWMutex
	settings   loop.Settings

	busy bool
}

// New создаёт движок.
func New(opts Options) (*Engine, error) {
	if opts.Synth == nil || opts.Player == nil || opts.Recognizer == nil {
		return nil, errors.New("движку нужны синтезатор, плеер и распознаватель")
	}

	rate := opts.SampleRate
	if rate <= 0 {
		rate = audio.SampleRate
	}

	sink := opts.UI
	if sink == nil {
		sink = ui.Nop{}
	}

	store := opts.Store
	if store == nil {
		store = storage.New(nil)
	}

	tx, rx := opts.Sender, opts.Receiver
	if tx == nil || rx == nil {
		tx, rx = channel.New()
	}

	e := &Engine{
		tx: tx,
		rx: rx,
		deps: loop.Deps{
			Synth:      opts.Synth,
			Player:     opts.Player,
			Recognizer: opts.Recognizer,
			SampleRate: rate,
		},
		store:        store,
		ui:           sink,
		log:          opts.Logger.With().Str("component", "engine").Logger(),
		metrics:      opts.Metrics,
		minRecording: opts.MinRecording,
		onSettings:   opts.OnSettingsChange,
		settings:     opts.Settings,
	}

	if opts.Source != nil {
		e.recorder = audio.NewRecorder(opts.Source, rate)
	}

	return e, nil
}

// Sender возвращает отправителя запросов для фронтендов.
func (e *Engine) Sender() *channel.Sender {
	return e.tx
}

// Settings возвращает снимок текущих настроек.
func (e *Engine) Settings() loop.Settings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return e.settings
}

// SampleRate возвращает частоту конвейера.
func (e *Engine) SampleRate() int {
	return e.deps.SampleRate
}

// Run обрабатывает запросы до Shutdown. Ошибки этапов не останавливают движок.
func (e *Engine) Run() error {
	e.log.Info().Int("sample_rate", e.deps.SampleRate).Msg("Движок запущен")
	defer e.shutdown()

	for e.tick() {
	}
	return nil
}

// tick обрабатывает один запрос или выполняет один этап активной задачи.
// Возвращает false, когда движок должен завершиться.
func (e *Engine) tick() bool {
	var (
		req channel.Request
		ok  bool
	)

	if e.state.Active() {
		req, ok = e.rx.TryRecv()
		if !ok {
			e.step()
			return true
		}
	} else {
		req, ok = e.rx.Recv()
		if !ok {
			return false
		}
	}

	if _, stop := req.(channel.Shutdown); stop {
		e.metrics.RecordRequest(channel.Kind(req))
		return false
	}

	if err := e.handle(req); err != nil {
		e.report(req, err)
	}
	return true
}

func (e *Engine) handle(req channel.Request) error {
	e.metrics.RecordRequest(channel.Kind(req))

	switch r := req.(type) {
	case channel.StartJob:
		return e.startJob(r)
	case channel.SetVoice:
		return e.setVoice(r.Voice)
	case channel.EnableAudio:
		e.updateSettings(func(s *loop.Settings) { s.AudioEnabled = r.Enable })
		e.log.Info().Bool("audio_enabled", r.Enable).Msg("Воспроизведение переключено")
		e.ui.AudioChanged(r.Enable)
		return nil
	case channel.Cancel:
		e.cancel()
		return nil
	case channel.Save:
		return e.save(r.Path)
	case channel.StartRecording:
		return e.startRecording()
	case channel.EndRecording:
		return e.endRecording()
	default:
		return fmt.Errorf("неизвестный запрос %T", req)
	}
}

// report сообщает об ошибке обработчика в лог и фронтенд.
func (e *Engine) report(req channel.Request, err error) {
	var busy *loop.BusyError
	if errors.As(err, &busy) {
		e.metrics.RecordBusy()
		e.log.Warn().Err(err).Str("request", channel.Kind(req)).Msg("Запрос отклонён")
	} else {
		e.log.Error().Err(err).Str("request", channel.Kind(req)).Msg("Ошибка обработки запроса")
	}
	e.ui.Error(err.Error())
}

func (e *Engine) startJob(r channel.StartJob) error {
	if err := e.state.Begin(r.Text, r.Iterations); err != nil {
		return err
	}

	set := e.Settings()
	e.log.Info().
		Str("job", e.state.JobID.String()).
		Int("iterations", r.Iterations).
		Str("voice", set.Voice).
		Bool("audio_enabled", set.AudioEnabled).
		Msg("Задача запущена")

	e.ui.JobStarted(r.Text, set.Voice, r.Iterations)
	e.setBusy(true)
	return nil
}

func (e *Engine) setVoice(voice string) error {
	if checker, ok := e.deps.Synth.(VoiceChecker); ok && voice != "" && !checker.HasVoice(voice) {
		e.log.Warn().Str("voice", voice).Msg("Голос не поддерживается синтезатором")
	}

	e.updateSettings(func(s *loop.Settings) { s.Voice = voice })
	e.log.Info().Str("voice", voice).Msg("Голос изменён")
	e.ui.VoiceChanged(voice)
	return nil
}

func (e *Engine) updateSettings(fn func(*loop.Settings)) {
	e.settingsMu.Lock()
	fn(&e.settings)
	set := e.settings
	e.settingsMu.Unlock()

	if e.onSettings != nil {
		e.onSettings(set)
	}
}

// cancel снимает с очереди ожидающие задачи и прерывает активную.
// Уведомление отправляется, только если что-то было отменено.
func (e *Engine) cancel() {
	discarded := e.rx.ExecuteCancel()
	aborted := e.state.Active()

	if discarded {
		e.metrics.RecordCancelDiscard()
	}

	switch {
	case aborted:
		e.abort(ErrCanceled)
	case discarded:
		e.ui.Canceled()
	default:
		e.log.Debug().Msg("Отменять нечего")
	}
}

// abort прерывает активную задачу или задачу, только что закончившую
// последний этап, и сообщает об отмене.
func (e *Engine) abort(cause error) {
	e.log.Info().
		Err(cause).
		Str("job", e.state.JobID.String()).
		Str("phase", e.state.Phase.String()).
		Int("iteration", e.state.Iteration).
		Msg("Задача прервана")
	e.state.Abort()
	e.metrics.RecordJob(metrics.OutcomeCanceled)
	e.ui.Canceled()
	e.setBusy(false)
}

// step выполняет один этап задачи.
func (e *Engine) step() {
	phase := e.state.Phase
	job := e.state.JobID.String()

	start := time.Now()
	ev, err := e.state.Step(e.deps, e.Settings())
	e.metrics.RecordStep(phase.String(), time.Since(start))

	if err != nil {
		e.log.Error().Err(err).Str("job", job).Str("phase", phase.String()).Msg("Этап завершился ошибкой, задача прервана")
		e.ui.Error(err.Error())
		e.metrics.RecordJob(metrics.OutcomeFailed)
		e.setBusy(false)
		return
	}

	if phase == loop.PhaseSynthesize {
		e.metrics.RecordSamples(e.state.LastSegment)
	}

	if ev.Recognized {
		// Результат распознавания, завершившегося уже после Cancel, отбрасывается,
		// а задача считается отменённой, даже если это была последняя итерация
		if e.rx.CancelPending() {
			e.log.Debug().Str("job", job).Msg("Результат распознавания отброшен: ожидает отмена")
			e.abort(ErrCanceled)
			return
		}
		e.log.Debug().Str("job", job).Str("text", ev.Text).Msg("Распознано")
		e.ui.Output(ev.Text)
	}

	if ev.Done {
		e.log.Info().Str("job", job).Int("samples", len(e.state.Samples)).Msg("Задача завершена")
		e.metrics.RecordJob(metrics.OutcomeDone)
		e.setBusy(false)
	}
}

// save пишет накопленные сэмплы последней задачи в WAV.
func (e *Engine) save(path string) error {
	if e.state.Active() {
		return e.state.Busy()
	}
	if path == "" {
		return fmt.Errorf("%w: не указан путь", ErrPersistence)
	}
	if len(e.state.Samples) == 0 {
		return ErrNoData
	}

	data, err := wav.Bytes(e.state.Samples, e.deps.SampleRate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
	defer cancel()

	location, err := e.store.Put(ctx, path, data, "audio/wav")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	e.log.Info().
		Str("path", location).
		Dur("duration", audio.Duration(len(e.state.Samples), e.deps.SampleRate)).
		Msg("Файл сохранён")
	e.ui.FileSaved(location)
	return nil
}

func (e *Engine) startRecording() error {
	if e.recorder == nil {
		return fmt.Errorf("%w: микрофон не настроен", audio.ErrAudio)
	}
	if e.recorder.IsRecording() {
		return nil
	}

	if err := e.recorder.Start(); err != nil {
		return err
	}

	e.log.Info().Msg("Запись начата")
	e.ui.RecordingChanged(true)
	return nil
}

// endRecording останавливает запись и отправляет распознанный текст как входной.
func (e *Engine) endRecording() error {
	if e.recorder == nil || !e.recorder.IsRecording() {
		return nil
	}

	if _, err := e.recorder.End(); err != nil {
		e.log.Warn().Err(err).Msg("Ошибка остановки записи")
	}
	e.ui.RecordingChanged(false)

	return e.recognizeRecording()
}

// recognizeRecording распознаёт законченную запись и отправляет текст как входной.
// Во время записи возвращает audio.ErrCurrentlyRecording.
func (e *Engine) recognizeRecording() error {
	samples, err := e.recorder.Samples()
	if err != nil {
		return err
	}

	elapsed := audio.Duration(len(samples), e.deps.SampleRate)
	e.log.Info().Dur("duration", elapsed).Msg("Запись готова к распознаванию")

	if len(samples) == 0 || elapsed < e.minRecording {
		e.log.Info().Dur("duration", elapsed).Msg("Запись слишком короткая, распознавание пропущено")
		return nil
	}

	text, err := e.deps.Recognizer.Transcribe(samples)
	if err != nil {
		return err
	}
	if text == "" {
		e.log.Info().Msg("В записи не распознано речи")
		return nil
	}

	e.ui.InputText(text)
	return nil
}

func (e *Engine) setBusy(busy bool) {
	if e.busy == busy {
		return
	}
	e.busy = busy
	e.ui.StateChanged(busy)
}

// shutdown освобождает ресурсы на любом пути выхода из Run.
func (e *Engine) shutdown() {
	if e.state.Active() {
		e.abort(ErrCanceled)
	}
	if e.recorder != nil {
		if err := e.recorder.Close(); err != nil {
			e.log.Warn().Err(err).Msg("Ошибка остановки записи")
		}
	}
	e.rx.Close()
	e.log.Info().Msg("Движок остановлен")
}
