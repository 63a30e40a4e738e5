//go:build linux

package input

import (
	"fmt"
	"os"
	"os/exec"
)

// commandTyper вводит текст внешней утилитой: wtype под Wayland, xdotool под X11.
type commandTyper struct {
	bin  string
	args []string
}

func newTyper() (Typer, error) {
	t := &commandTyper{bin: "xdotool", args: []string{"type", "--clearmodifiers", "--"}}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		t = &commandTyper{bin: "wtype", args: []string{"--"}}
	}

	path, err := exec.LookPath(t.bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s не найден", ErrUnavailable, t.bin)
	}
	t.bin = path
	return t, nil
}

func (t *commandTyper) Type(text string) error {
	args := append(append([]string(nil), t.args...), text)
	out, err := exec.Command(t.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", t.bin, err, out)
	}
	return nil
}
