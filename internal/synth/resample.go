package synth

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample приводит моно-сигнал к частоте dstRate.
func Resample(samples []int16, srcRate, dstRate int) ([]int16, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("некорректные частоты %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("создание ресемплера: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("ресемплинг: %w", err)
	}
	// Хвост, оставшийся в фильтре
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("ресемплинг: %w", err)
	}
	output = append(output, tail...)

	result := make([]int16, len(output))
	for i, s := range output {
		switch {
		case s > 1.0:
			result[i] = 32767
		case s < -1.0:
			result[i] = -32768
		default:
			result[i] = int16(s * 32767.0)
		}
	}
	return result, nil
}
