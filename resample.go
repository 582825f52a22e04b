package cassette

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resampleTail is the silence appended to the input so that the filter delay
// does not swallow the end of the signal.
const resampleTail = 0.05

// Resample converts mono samples in [-1, 1] from one rate to another.
func Resample(samples []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid resampling rates %d -> %d", from, to)
	}

	if from == to || len(samples) == 0 {
		return append([]float64(nil), samples...), nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples), len(samples)+int(resampleTail*float64(from)))
	copy(input, samples)

	last := samples[len(samples)-1]
	for len(input) < cap(input) {
		input = append(input, last)
	}

	out, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	return out, nil
}
