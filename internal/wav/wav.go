// Package wav читает и пишет 16-битный PCM в контейнере RIFF/WAVE.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	formatPCM     = 1
	bitsPerSample = 16
	headerSize    = 44
)

// ErrFormat - данные не являются поддерживаемым WAV.
var ErrFormat = errors.New("неподдерживаемый формат wav")

// Audio - декодированный моно-сигнал.
type Audio struct {
	Samples    []int16
	SampleRate int
}

// Duration возвращает длительность сигнала.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// Encode пишет моно 16-bit PCM WAV.
func Encode(w io.Writer, samples []int16, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: частота дискретизации %d", ErrFormat, sampleRate)
	}

	dataSize := len(samples) * 2
	blockAlign := bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	hdr := make([]byte, headerSize)
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+dataSize))
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], formatPCM)
	binary.LittleEndian.PutUint16(hdr[22:], 1)
	binary.LittleEndian.PutUint32(hdr[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:], bitsPerSample)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(dataSize))

	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("запись заголовка: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("запись сэмплов: %w", err)
	}
	return nil
}

// Bytes кодирует сэмплы в WAV в памяти.
func Bytes(samples []int16, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(samples)*2)
	if err := Encode(&buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode читает 16-bit PCM WAV. Многоканальный сигнал сводится в моно.
// Неизвестные чанки (LIST и т.п.) пропускаются.
func Decode(r io.Reader) (*Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: заголовок RIFF: %v", ErrFormat, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: нет сигнатуры RIFF/WAVE", ErrFormat)
	}

	var (
		channels   int
		sampleRate int
		haveFmt    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, fmt.Errorf("%w: нет чанка data: %v", ErrFormat, err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: короткий чанк fmt", ErrFormat)
			}
			body, err := io.ReadAll(io.LimitReader(r, size))
			if err == nil && int64(len(body)) < size {
				err = io.ErrUnexpectedEOF
			}
			if err != nil {
				return nil, fmt.Errorf("%w: чанк fmt: %v", ErrFormat, err)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != formatPCM || bits != bitsPerSample {
				return nil, fmt.Errorf("%w: формат %d, %d бит", ErrFormat, format, bits)
			}
			if channels < 1 || sampleRate <= 0 {
				return nil, fmt.Errorf("%w: каналов %d, частота %d", ErrFormat, channels, sampleRate)
			}
			haveFmt = true
			if size%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrFormat, err)
				}
			}

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data перед fmt", ErrFormat)
			}
			return readData(r, size, channels, sampleRate)

		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("%w: чанк %q: %v", ErrFormat, id, err)
			}
		}
	}
}

func readData(r io.Reader, size int64, channels, sampleRate int) (*Audio, error) {
	// В pipe размер бывает заглушкой: 0, 0xFFFFFFFF, 0x7FFFF000 у espeak-ng.
	if size != 0 && size != 0xFFFFFFFF {
		r = io.LimitReader(r, size)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: чанк data: %v", ErrFormat, err)
	}

	frames := len(body) / (2 * channels)
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(body[off:])))
		}
		samples[i] = int16(sum / int32(channels))
	}

	return &Audio{Samples: samples, SampleRate: sampleRate}, nil
}
