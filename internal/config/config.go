// Package config загружает конфигурацию: значения по умолчанию, файл, окружение, флаги.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Modifier представляет модификатор клавиши.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
	ModAlt   Modifier = "alt"
	ModSuper Modifier = "super" // Win/Cmd
)

// Key представляет клавишу.
type Key string

const (
	KeySpace  Key = "space"
	KeyReturn Key = "return"
	KeyTab    Key = "tab"
	KeyR      Key = "r"
	KeyS      Key = "s"
	KeyT      Key = "t"
	KeyF1     Key = "f1"
	KeyF2     Key = "f2"
	KeyF3     Key = "f3"
	KeyF4     Key = "f4"
	KeyF5     Key = "f5"
	KeyF6     Key = "f6"
	KeyF7     Key = "f7"
	KeyF8     Key = "f8"
	KeyF9     Key = "f9"
	KeyF10    Key = "f10"
	KeyF11    Key = "f11"
	KeyF12    Key = "f12"
)

// HotkeyConfig хранит настройки горячей клавиши записи.
type HotkeyConfig struct {
	Modifiers []Modifier `mapstructure:"modifiers"`
	Key       Key        `mapstructure:"key"`
}

// String возвращает строковое представление горячей клавиши.
func (h HotkeyConfig) String() string {
	parts := make([]string, 0, len(h.Modifiers)+1)
	for _, m := range h.Modifiers {
		parts = append(parts, string(m))
	}
	parts = append(parts, string(h.Key))
	return strings.Join(parts, "+")
}

// S3Config - удалённое хранилище для Save с путями s3://.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

// Enabled сообщает, настроено ли хранилище.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// Config хранит настройки приложения.
type Config struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	Backend       string        `mapstructure:"backend"`
	SynthBin      string        `mapstructure:"synth_bin"`
	Voice         string        `mapstructure:"voice"`
	AudioEnabled  bool          `mapstructure:"audio_enabled"`
	ModelID       string        `mapstructure:"model_id"`
	ModelsDir     string        `mapstructure:"models_dir"`
	MinRecording  time.Duration `mapstructure:"min_recording"`
	UILanguage    string        `mapstructure:"ui_language"`
	Notifications bool          `mapstructure:"notifications"`
	Tray          bool          `mapstructure:"tray"`
	TypeOutput    bool          `mapstructure:"type_output"`
	Hotkey        HotkeyConfig  `mapstructure:"hotkey"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFile       string        `mapstructure:"log_file"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	S3            S3Config      `mapstructure:"s3"`

	DownloadModel string `mapstructure:"download_model"`
	ListVoices    bool   `mapstructure:"list_voices"`

	// path - файл, куда сохраняются изменения настроек во время работы.
	path string
	mu   sync.Mutex
}

const (
	configName = "ttsloop"
	configType = "toml"
	envPrefix  = "TTSLOOP"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("sample_rate", 16000)
	v.SetDefault("backend", "flite")
	v.SetDefault("synth_bin", "")
	v.SetDefault("voice", "")
	v.SetDefault("audio_enabled", true)
	v.SetDefault("model_id", "vosk-en-small")
	v.SetDefault("models_dir", "")
	v.SetDefault("min_recording", 300*time.Millisecond)
	v.SetDefault("ui_language", "ru")
	v.SetDefault("notifications", true)
	v.SetDefault("tray", false)
	v.SetDefault("type_output", false)
	v.SetDefault("hotkey.modifiers", []string{string(ModCtrl), string(ModShift)})
	v.SetDefault("hotkey.key", string(KeySpace))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.secure", true)
	v.SetDefault("download_model", "")
	v.SetDefault("list_voices", false)
}

// flagKeys связывает имена флагов с ключами конфигурации.
var flagKeys = map[string]string{
	"sample-rate":    "sample_rate",
	"backend":        "backend",
	"synth-bin":      "synth_bin",
	"voice":          "voice",
	"audio":          "audio_enabled",
	"model":          "model_id",
	"models-dir":     "models_dir",
	"min-recording":  "min_recording",
	"ui-language":    "ui_language",
	"notifications":  "notifications",
	"tray":           "tray",
	"type-output":    "type_output",
	"log-level":      "log_level",
	"log-file":       "log_file",
	"metrics-addr":   "metrics_addr",
	"download-model": "download_model",
	"list-voices":    "list_voices",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Путь к файлу конфигурации")
	fs.Int("sample-rate", 16000, "Частота дискретизации конвейера")
	fs.StringP("backend", "b", "flite", "Движок синтеза (flite, espeak)")
	fs.String("synth-bin", "", "Путь к бинарнику движка синтеза")
	fs.StringP("voice", "v", "", "Голос синтеза")
	fs.Bool("audio", true, "Воспроизводить синтезированную речь")
	fs.StringP("model", "m", "vosk-en-small", "ID модели распознавания")
	fs.String("models-dir", "", "Директория моделей")
	fs.Duration("min-recording", 300*time.Millisecond, "Минимальная длительность записи для распознавания")
	fs.String("ui-language", "ru", "Язык интерфейса (ru, en)")
	fs.Bool("notifications", true, "Показывать уведомления")
	fs.Bool("tray", false, "Показывать иконку в трее")
	fs.Bool("type-output", false, "Вводить итоговый текст задачи в активное поле")
	fs.StringP("log-level", "l", "info", "Уровень логирования (debug, info, warn, error)")
	fs.String("log-file", "", "Файл лога (JSON)")
	fs.String("metrics-addr", "", "Адрес HTTP для метрик Prometheus")
	fs.String("download-model", "", "Скачать модель и выйти")
	fs.Bool("list-voices", false, "Показать голоса синтеза и выйти")
	return fs
}

// Usage печатает справку по флагам.
func Usage() string {
	return "Использование: ttsloop [флаги]\n\n" + newFlagSet().FlagUsages()
}

// Load разбирает args (без имени программы) и собирает конфигурацию.
// Для -h/--help возвращает pflag.ErrHelp.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка разбора флагов: %w", err)
	}

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	configFile, _ := fs.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if dir, err := userConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	cfg.path = v.ConfigFileUsed()
	if cfg.path == "" {
		if dir, err := userConfigDir(); err == nil {
			cfg.path = filepath.Join(dir, configName+"."+configType)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", configName), nil
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate должен быть положительным: %d", c.SampleRate)
	}
	if c.Backend == "" {
		return errors.New("не указан движок синтеза")
	}
	switch c.UILanguage {
	case "ru", "en":
	default:
		return fmt.Errorf("неподдерживаемый язык интерфейса: %q", c.UILanguage)
	}
	if c.Hotkey.Key == "" {
		return errors.New("не указана клавиша hotkey.key")
	}
	if c.MinRecording < 0 {
		return fmt.Errorf("min_recording не может быть отрицательным: %s", c.MinRecording)
	}
	return nil
}

// Path возвращает файл, в который сохраняются изменения.
func (c *Config) Path() string {
	return c.path
}

// Persist сохраняет голос и переключатель звука в файл конфигурации.
// Остальные ключи файла не меняются; значения из окружения и флагов в файл не попадают.
func (c *Config) Persist(voice string, audioEnabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Voice = voice
	c.AudioEnabled = audioEnabled

	if c.path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(c.path)
	if _, err := os.Stat(c.path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
	}

	v.Set("voice", voice)
	v.Set("audio_enabled", audioEnabled)

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("не удалось создать директорию конфигурации: %w", err)
	}
	if err := v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("ошибка сохранения конфигурации: %w", err)
	}
	return nil
}

// SetPath меняет файл для Persist.
func (c *Config) SetPath(path string) {
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
}
