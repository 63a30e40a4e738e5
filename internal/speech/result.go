package speech

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
)

// PCM16LE кодирует сэмплы в байты little-endian.
func PCM16LE(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

// ParseResult извлекает текст из JSON-ответа движка: {"text": "..."}.
func ParseResult(resultJSON string) (string, error) {
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return "", fmt.Errorf("%w: разбор ответа: %v", ErrRecognition, err)
	}
	return strings.TrimSpace(result.Text), nil
}
