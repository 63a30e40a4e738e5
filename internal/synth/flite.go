package synth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ttsloop/internal/wav"
)

func init() {
	Register("flite", func(cfg Config) (Backend, error) {
		bin := cfg.Bin
		if bin == "" {
			bin = "flite"
		}
		return &flite{bin: bin, run: runCommand}, nil
	})
}

// flite вызывает CMU Flite. Голоса встроены в бинарник.
type flite struct {
	bin string
	run runner
}

func (f *flite) Name() string { return "flite" }

// Voices разбирает вывод `flite -lv`: "Voices available: kal awb rms slt".
func (f *flite) Voices(ctx context.Context) ([]string, error) {
	out, err := f.run(ctx, f.bin, []string{"-lv"}, nil)
	if err != nil {
		return nil, err
	}
	_, list, ok := strings.Cut(string(out), ":")
	if !ok {
		return nil, fmt.Errorf("неожиданный вывод %s -lv: %q", f.bin, out)
	}
	return strings.Fields(list), nil
}

// Render пишет WAV во временный файл: flite не умеет писать в stdout.
func (f *flite) Render(ctx context.Context, text, voice string) (*wav.Audio, error) {
	tmp, err := os.CreateTemp("", "ttsloop-flite-*.wav")
	if err != nil {
		return nil, fmt.Errorf("временный файл: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	args := []string{"-voice", voice, "-t", text, "-o", path}
	if _, err := f.run(ctx, f.bin, args, nil); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("чтение результата flite: %w", err)
	}
	defer file.Close()

	return wav.Decode(file)
}
