// Package console is the terminal frontend: a line-based command prompt that
// turns commands into engine requests and prints what the engine pushes back.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"ttsloop/internal/channel"
	"ttsloop/internal/i18n"
	"ttsloop/internal/ui"
)

// DefaultSavePath is used by "save" without an argument.
const DefaultSavePath = "output.wav"

// Sender delivers requests to the engine.
type Sender interface {
	Send(req channel.Request) error
}

// Styles colors console lines.
type Styles struct {
	Debug  lipgloss.Style
	Info   lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
	Output lipgloss.Style
	Dim    lipgloss.Style
}

// DefaultStyles returns the console palette.
func DefaultStyles() Styles {
	return Styles{
		Debug:  lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950")),
		Info:   lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff")),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#d29922")),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f85149")),
		Output: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
	}
}

func (s Styles) level(l ui.Level) lipgloss.Style {
	switch l {
	case ui.LevelDebug:
		return s.Debug
	case ui.LevelWarn:
		return s.Warn
	case ui.LevelError:
		return s.Error
	default:
		return s.Info
	}
}

// Options configures a Console.
type Options struct {
	In  io.Reader
	Out io.Writer
	// Voices lists voices for the "voices" command. May be nil.
	Voices func() []string
	// MinLevel hides log lines below it.
	MinLevel ui.Level
	Styles   *Styles
}

var _ ui.Sink = (*Console)(nil)

// Console reads commands and implements ui.Sink for printing.
type Console struct {
	in       io.Reader
	voices   func() []string
	minLevel ui.Level
	styles   Styles

	mu  sync.Mutex
	out io.Writer
}

// New creates a Console.
func New(opts Options) *Console {
	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	return &Console{
		in:       opts.In,
		out:      opts.Out,
		voices:   opts.Voices,
		minLevel: opts.MinLevel,
		styles:   styles,
	}
}

// Run reads commands until "quit" or end of input, then sends Shutdown.
// It returns the read error, if any.
func (c *Console) Run(tx Sender) error {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	c.println(c.styles.Dim, i18n.T("console_help"))

	for scanner.Scan() {
		if !c.execute(tx, scanner.Text()) {
			break
		}
	}

	// Shutdown may fail if the engine is already gone.
	_ = tx.Send(channel.Shutdown{})
	return scanner.Err()
}

// execute runs one command line. Returns false on quit.
func (c *Console) execute(tx Sender, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	cmd, _, _ := strings.Cut(line, " ")

	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return false
	case "help", "?":
		c.println(c.styles.Dim, i18n.T("console_help"))
		return true
	case "voices":
		var voices []string
		if c.voices != nil {
			voices = c.voices()
		}
		c.println(c.styles.Info, i18n.Tf("console_voices", strings.Join(voices, ", ")))
		return true
	}

	req, err := Parse(line)
	if err != nil {
		c.println(c.styles.Warn, err.Error())
		return true
	}
	if err := tx.Send(req); err != nil {
		c.println(c.styles.Error, i18n.T("console_send_failed"))
		return false
	}
	return true
}

// ErrUsage is returned by Parse for malformed commands.
var ErrUsage = errors.New("usage")

type usageError struct{ msg string }

func (e *usageError) Error() string        { return e.msg }
func (e *usageError) Is(target error) bool { return target == ErrUsage }

func usage(key string, args ...any) error {
	return &usageError{msg: i18n.Tf(key, args...)}
}

// Parse turns a command line into a request.
func Parse(line string) (channel.Request, error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "say":
		countStr, text, ok := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if !ok || text == "" {
			return nil, usage("console_say_usage")
		}
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 1 {
			return nil, usage("console_say_usage")
		}
		return channel.StartJob{Text: text, Iterations: n}, nil

	case "voice":
		if rest == "" {
			return nil, usage("console_voice_usage")
		}
		return channel.SetVoice{Voice: rest}, nil

	case "audio":
		switch strings.ToLower(rest) {
		case "on":
			return channel.EnableAudio{Enable: true}, nil
		case "off":
			return channel.EnableAudio{Enable: false}, nil
		}
		return nil, usage("console_audio_usage")

	case "cancel":
		return channel.Cancel{}, nil

	case "save":
		path := rest
		if path == "" {
			path = DefaultSavePath
		}
		return channel.Save{Path: path}, nil

	case "rec":
		return channel.StartRecording{}, nil

	case "stop":
		return channel.EndRecording{}, nil
	}

	return nil, usage("console_unknown", cmd)
}

func (c *Console) println(style lipgloss.Style, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, style.Render(text))
}

func (c *Console) JobStarted(text, voice string, iterations int) {
	if voice == "" {
		voice = i18n.T("console_default_voice")
	}
	c.println(c.styles.Info, i18n.Tf("console_started", text, voice, iterations))
}

func (c *Console) Output(text string) {
	c.println(c.styles.Output, i18n.Tf("console_output", text))
}

func (c *Console) InputText(text string) {
	c.println(c.styles.Output, i18n.Tf("console_input", text))
}

func (c *Console) Error(msg string) {
	c.println(c.styles.Error, i18n.Tf("console_error", msg))
}

func (c *Console) Canceled() {
	c.println(c.styles.Warn, i18n.T("console_canceled"))
}

func (c *Console) VoiceChanged(voice string) {
	if voice == "" {
		voice = i18n.T("console_default_voice")
	}
	c.println(c.styles.Info, i18n.Tf("console_voice", voice))
}

func (c *Console) AudioChanged(enabled bool) {
	if enabled {
		c.println(c.styles.Info, i18n.T("console_audio_on"))
	} else {
		c.println(c.styles.Info, i18n.T("console_audio_off"))
	}
}

func (c *Console) FileSaved(path string) {
	c.println(c.styles.Info, i18n.Tf("console_saved", path))
}

func (c *Console) RecordingChanged(recording bool) {
	if recording {
		c.println(c.styles.Warn, i18n.T("console_recording_on"))
	} else {
		c.println(c.styles.Info, i18n.T("console_recording_off"))
	}
}

func (c *Console) StateChanged(busy bool) {
	if busy {
		c.println(c.styles.Dim, i18n.T("console_busy"))
	} else {
		c.println(c.styles.Dim, i18n.T("console_idle"))
	}
}

// Log prints a level-tagged line if the level is at least MinLevel.
func (c *Console) Log(level ui.Level, text string) {
	if level < c.minLevel {
		return
	}
	tag := "[" + strings.ToUpper(level.String()) + "]"
	c.println(c.styles.level(level), tag+" "+text)
}
