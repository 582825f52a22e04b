package cassette

import (
	"fmt"

	"github.com/go-audio/audio"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// checkPCM rejects anything but 8-bit mono audio.
func checkPCM(op string, channels, bitDepth, sampleRate int) error {
	if channels != 1 {
		return tapeerr.StreamFormat(op, "%d channels, want mono", channels)
	}

	if bitDepth != 8 {
		return tapeerr.StreamFormat(op, "%d-bit samples, want 8-bit", bitDepth)
	}

	if sampleRate <= 0 {
		return tapeerr.StreamFormat(op, "invalid sample rate %d", sampleRate)
	}

	return nil
}

// Edges detects the edges of a captured signal with the detector of the
// platform, resampling to the analysis rate first when one is configured.
// Only 8-bit mono buffers are accepted.
func (c *Codec) Edges(platform string, buf *audio.IntBuffer) ([]pulse.Edge, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return nil, err
	}

	const op = "edges"

	if buf == nil || buf.Format == nil {
		return nil, tapeerr.StreamFormat(platform+": "+op, "buffer without format")
	}

	// SourceBitDepth must be set: an unset depth cannot be told apart from
	// wider samples.
	if err := checkPCM(platform+": "+op, buf.Format.NumChannels, buf.SourceBitDepth, buf.Format.SampleRate); err != nil {
		return nil, err
	}

	samples := Samples(buf)
	rate := buf.Format.SampleRate

	if c.opts.AnalysisRate > 0 && c.opts.AnalysisRate != rate {
		samples, err = Resample(samples, rate, c.opts.AnalysisRate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", platform, err)
		}

		c.opts.Logger.Debug().Int("from", rate).Int("to", c.opts.AnalysisRate).Msg("resampled capture")
		rate = c.opts.AnalysisRate
	}

	edges := pulse.DetectEdges(samples, float64(rate), p.Detector())
	c.opts.Logger.Debug().Str("platform", platform).Int("samples", len(samples)).Int("edges", len(edges)).Msg("edges detected")

	return edges, nil
}

// BlocksFromPCM decodes a save from an 8-bit mono capture.
func (c *Codec) BlocksFromPCM(platform string, buf *audio.IntBuffer) ([]block.Block, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return nil, err
	}

	edges, err := c.Edges(platform, buf)
	if err != nil {
		return nil, err
	}

	blocks, err := p.DecodePulses(edges, c.opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("%s: blocks from audio: %w", platform, err)
	}

	return blocks, nil
}

// PCMFromBlocks synthesizes the 8-bit mono signal of a block sequence.
func (c *Codec) PCMFromBlocks(platform string, blocks []block.Block) (*audio.IntBuffer, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return nil, err
	}

	widths, err := p.EncodePulses(blocks)
	if err != nil {
		return nil, fmt.Errorf("%s: audio from blocks: %w", platform, err)
	}

	buf := c.opts.Stream.Synthesize(widths)
	c.opts.Logger.Debug().Str("platform", platform).Int("pulses", len(widths)).Int("samples", len(buf.Data)).Msg("signal synthesized")

	return buf, nil
}
