package synth

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"ttsloop/internal/wav"
)

func init() {
	Register("espeak", func(cfg Config) (Backend, error) {
		bin := cfg.Bin
		if bin == "" {
			bin = "espeak-ng"
		}
		return &espeak{bin: bin, run: runCommand}, nil
	})
}

// espeak вызывает eSpeak NG. Текст передаётся через stdin, WAV читается из stdout.
type espeak struct {
	bin string
	run runner
}

func (e *espeak) Name() string { return "espeak" }

// Voices разбирает таблицу `espeak-ng --voices`; голос - колонка Language.
func (e *espeak) Voices(ctx context.Context) ([]string, error) {
	out, err := e.run(ctx, e.bin, []string{"--voices"}, nil)
	if err != nil {
		return nil, err
	}

	var voices []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, fields[1])
	}
	return voices, sc.Err()
}

func (e *espeak) Render(ctx context.Context, text, voice string) (*wav.Audio, error) {
	args := []string{"-v", voice, "--stdin", "--stdout"}
	out, err := e.run(ctx, e.bin, args, strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	return wav.Decode(bytes.NewReader(out))
}
