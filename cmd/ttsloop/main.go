// TTS Loop - синтезирует текст, проигрывает его, распознаёт услышанное и
// повторяет цикл с распознанным текстом заданное число раз.
//
// Управляется командами в терминале, а также из трея и горячей клавишей записи.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"ttsloop/internal/app"
	"ttsloop/internal/audio/portaudio"
	"ttsloop/internal/channel"
	"ttsloop/internal/config"
	"ttsloop/internal/console"
	"ttsloop/internal/hotkey"
	"ttsloop/internal/i18n"
	"ttsloop/internal/input"
	"ttsloop/internal/logging"
	"ttsloop/internal/loop"
	"ttsloop/internal/metrics"
	"ttsloop/internal/models"
	"ttsloop/internal/notify"
	"ttsloop/internal/speech"
	"ttsloop/internal/speech/vosk"
	"ttsloop/internal/storage"
	"ttsloop/internal/synth"
	"ttsloop/internal/tray"
	"ttsloop/internal/ui"
)

// Version устанавливается при сборке через -ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(os.Stderr, config.Usage())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n\n%s", err, config.Usage())
		os.Exit(2)
	}

	code := 0
	// Запускаем в главном потоке (требование для macOS и трея)
	hotkey.RunOnMainThread(func() {
		code = run(cfg)
	})
	os.Exit(code)
}

func run(cfg *config.Config) int {
	i18n.SetLanguage(i18n.Language(cfg.UILanguage))

	if cfg.DownloadModel != "" {
		return downloadModel(cfg)
	}

	tx, rx := channel.New()

	// Фронтенды создаются до логгера: он пишет в них через ui.Handle
	var synthesizer *synth.Synth
	term := console.New(console.Options{
		In:  os.Stdin,
		Out: os.Stdout,
		Voices: func() []string {
			if synthesizer == nil {
				return nil
			}
			return synthesizer.Voices()
		},
		MinLevel: ui.LevelDebug,
	})
	sinks := ui.Multi{term}

	if cfg.Notifications {
		sinks = append(sinks, notify.New(true))
	}

	keys := hotkey.New(tx)
	sinks = append(sinks, keys)

	var trayUI *tray.Tray
	if cfg.Tray {
		trayUI = tray.New(tray.Options{
			Sender:       tx,
			Voice:        cfg.Voice,
			AudioEnabled: cfg.AudioEnabled,
		})
		sinks = append(sinks, trayUI)
	}

	var (
		typing  *input.Sink
		typeErr error
	)
	if cfg.TypeOutput {
		var typer input.Typer
		if typer, typeErr = input.New(); typeErr == nil {
			typing = input.NewSink(typer)
			sinks = append(sinks, typing)
		}
	}

	handle := ui.NewHandle(sinks)
	defer handle.Close()

	logger, logCloser, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: io.Discard,
		UI:      handle,
		UILevel: parseLevel(cfg.LogLevel),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка логирования: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	logger.Info().Str("version", Version).Msg("TTS Loop запускается")
	keys.SetLogger(logger)
	if typeErr != nil {
		logger.Warn().Err(typeErr).Msg("Ввод текста в активное поле отключён")
	}
	if typing != nil {
		typing.SetLogger(logger)
	}

	ctx := context.Background()

	synthesizer, err = synth.New(ctx, cfg.Backend, synth.Config{
		Bin:        cfg.SynthBin,
		SampleRate: cfg.SampleRate,
		Logger:     logger,
	})
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.Backend).Msg("Синтезатор недоступен")
		return 1
	}

	if cfg.ListVoices {
		for _, v := range synthesizer.Voices() {
			fmt.Println(v)
		}
		return 0
	}

	if trayUI != nil {
		trayUI.SetVoices(synthesizer.Voices())
	}

	if cfg.Voice != "" && !synthesizer.HasVoice(cfg.Voice) {
		logger.Warn().Str("voice", cfg.Voice).Str("default", synthesizer.DefaultVoice()).Msg("Голос не найден, используется голос по умолчанию")
		cfg.Voice = ""
	}

	device, err := portaudio.Open()
	if err != nil {
		logger.Error().Err(err).Msg("Аудиоустройство недоступно")
		return 1
	}
	defer device.Close()

	manager, err := models.NewManager(cfg.ModelsDir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка менеджера моделей")
		return 1
	}

	recognizers := speech.NewFactory(manager, vosk.Open, cfg.SampleRate, logger)
	defer recognizers.Close()
	if err := recognizers.Swap(cfg.ModelID); err != nil {
		logger.Error().Err(err).Str("model", cfg.ModelID).
			Msgf("Модель распознавания не загружена, скачайте её: ttsloop --download-model %s", cfg.ModelID)
		return 1
	}

	store, err := newStore(ctx, cfg.S3, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка хранилища")
		return 1
	}

	collector := metrics.NewCollector("ttsloop")
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, collector, logger)
		defer stop()
	}

	engine, err := app.New(app.Options{
		Synth:        synthesizer,
		Player:       device,
		Recognizer:   recognizers,
		Source:       device,
		Store:        store,
		UI:           handle,
		Logger:       logger,
		Metrics:      collector,
		SampleRate:   cfg.SampleRate,
		MinRecording: cfg.MinRecording,
		Settings:     loop.Settings{Voice: cfg.Voice, AudioEnabled: cfg.AudioEnabled},
		OnSettingsChange: func(s loop.Settings) {
			if err := cfg.Persist(s.Voice, s.AudioEnabled); err != nil {
				logger.Warn().Err(err).Msg("Настройки не сохранены")
			}
		},
		Sender:   tx,
		Receiver: rx,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации движка")
		return 1
	}

	if err := keys.Register(cfg.Hotkey); err != nil {
		logger.Warn().Err(err).Msg("Горячая клавиша недоступна")
	}
	defer keys.Unregister()

	var runErr error
	stopped := make(chan struct{})
	start := func() {
		go func() {
			runErr = engine.Run()
			close(stopped)
		}()
		// Без терминала в режиме трея консоль сразу получила бы EOF и остановила движок
		if trayUI == nil || isTerminal(os.Stdin) {
			go func() {
				if err := term.Run(tx); err != nil {
					logger.Warn().Err(err).Msg("Ошибка чтения команд")
				}
			}()
		}
	}

	if trayUI != nil {
		trayUI.Run(func() {
			start()
			go func() {
				<-stopped
				trayUI.Quit()
			}()
		}, nil)
		// Трей мог закрыться раньше движка
		_ = tx.Send(channel.Shutdown{})
	} else {
		start()
	}
	<-stopped

	if runErr != nil {
		logger.Error().Err(runErr).Msg("Движок завершился с ошибкой")
		return 1
	}
	logger.Info().Msg("TTS Loop остановлен")
	return 0
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

func newStore(ctx context.Context, cfg config.S3Config, logger zerolog.Logger) (*storage.Store, error) {
	if !cfg.Enabled() {
		return storage.New(nil), nil
	}

	remote, err := storage.NewS3(storage.S3Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Secure:    cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := remote.Check(checkCtx); err != nil {
		logger.Warn().Err(err).Str("endpoint", cfg.Endpoint).Msg("Хранилище S3 недоступно, сохранение в s3:// может не работать")
	}
	return storage.New(remote), nil
}

func serveMetrics(addr string, collector *metrics.Collector, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("Метрики доступны на /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Сервер метрик остановлен")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func downloadModel(cfg *config.Config) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	info, ok := models.GetModel(cfg.DownloadModel)
	if !ok {
		var ids []string
		for _, m := range models.Registry {
			ids = append(ids, m.ID)
		}
		logger.Error().Str("model", cfg.DownloadModel).Strs("available", ids).Msg("Модель не найдена")
		return 1
	}

	manager, err := models.NewManager(cfg.ModelsDir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка менеджера моделей")
		return 1
	}

	progress := make(chan models.Progress, 16)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		lastPercent := -1
		for p := range progress {
			if p.Total <= 0 {
				continue
			}
			percent := int(p.Downloaded * 100 / p.Total)
			if percent/10 != lastPercent/10 || p.Done {
				logger.Info().Str("model", p.ModelID).Int("percent", percent).Msg("Загрузка")
				lastPercent = percent
			}
		}
	}()

	err = manager.Download(context.Background(), info, progress)
	close(progress)
	<-finished
	if err != nil {
		logger.Error().Err(err).Str("model", info.ID).Msg("Ошибка загрузки модели")
		return 1
	}
	logger.Info().Str("path", manager.ModelPath(info)).Msg("Модель готова")
	return 0
}
