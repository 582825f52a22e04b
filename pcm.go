package cassette

import (
	"math"
	"time"

	"github.com/go-audio/audio"
)

const (
	// DefaultSampleRate is the rate audio is synthesized at.
	DefaultSampleRate = 44100
	// DefaultAmplitude is the peak deviation of the square wave from Bias.
	DefaultAmplitude = 100
	// DefaultSilence is the quiet stretch written before and after the signal.
	DefaultSilence = 250 * time.Millisecond
	// Bias is the centre level of unsigned 8-bit PCM.
	Bias = 128

	pcm8Center = 127.5
	pcm8Scale  = 127.5
)

// PCMStream maps between pulse widths and 8-bit unsigned mono PCM.
type PCMStream struct {
	SampleRate int
	Amplitude  int
	Silence    time.Duration
}

// DefaultPCMStream returns the stream settings used when none are given.
func DefaultPCMStream() PCMStream {
	return PCMStream{SampleRate: DefaultSampleRate, Amplitude: DefaultAmplitude, Silence: DefaultSilence}
}

func (s PCMStream) withDefaults() PCMStream {
	if s.SampleRate <= 0 {
		s.SampleRate = DefaultSampleRate
	}

	if s.Amplitude <= 0 || s.Amplitude > Bias-1 {
		s.Amplitude = DefaultAmplitude
	}

	if s.Silence < 0 {
		s.Silence = 0
	}

	return s
}

// Format returns the buffer format of the stream.
func (s PCMStream) Format() *audio.Format {
	return &audio.Format{NumChannels: 1, SampleRate: s.withDefaults().SampleRate}
}

// Synthesize renders pulse widths as a square wave starting with a high
// pulse. Edge positions are rounded from the exact cumulative time so that
// rounding errors never add up across pulses.
func (s PCMStream) Synthesize(widths []float64) *audio.IntBuffer {
	s = s.withDefaults()

	rate := float64(s.SampleRate)
	quiet := int(s.Silence.Seconds() * rate)

	var total float64
	for _, w := range widths {
		total += w
	}

	data := make([]int, 0, 2*quiet+int(math.Ceil(total*rate))+1)
	for range quiet {
		data = append(data, Bias)
	}

	var t float64

	high := true
	for _, w := range widths {
		t += w

		end := quiet + int(math.Round(t*rate))

		level := Bias - s.Amplitude
		if high {
			level = Bias + s.Amplitude
		}

		for len(data) < end {
			data = append(data, level)
		}

		high = !high
	}

	for range quiet {
		data = append(data, Bias)
	}

	return &audio.IntBuffer{Data: data, Format: s.Format(), SourceBitDepth: 8}
}

// Samples converts 8-bit unsigned PCM to amplitudes in [-1, 1].
func Samples(buf *audio.IntBuffer) []float64 {
	if buf == nil {
		return nil
	}

	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = normalizePCM8(v)
	}

	return out
}

func normalizePCM8(sample int) float64 {
	return (float64(sample) - pcm8Center) / pcm8Scale
}
