package cassette

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

// AIFF stores 8-bit samples signed. The low byte of a decoded sample is
// taken as two's complement so either sign convention of the codec reads
// back the same level.
func aiffToUnsigned(v int) int {
	return int(int8(byte(v))) + Bias
}

func unsignedToAiff(v int) int {
	return max(0, min(0xFF, v)) - Bias
}

// BlocksFromAiff decodes a save from an 8-bit mono AIFF capture.
func (c *Codec) BlocksFromAiff(platform string, r io.ReadSeeker) ([]block.Block, error) {
	if _, err := c.protocol(platform); err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, tapeerr.StreamFormat(platform+": aiff decode", "invalid AIFF file")
	}

	if err := checkPCM(platform+": aiff decode", int(dec.NumChans), int(dec.BitDepth), int(dec.SampleRate)); err != nil {
		return nil, err
	}

	src, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read AIFF samples: %w", platform, err)
	}

	buf := &audio.IntBuffer{
		Data:           make([]int, len(src.Data)),
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(dec.SampleRate)},
		SourceBitDepth: 8,
	}

	for i, v := range src.Data {
		buf.Data[i] = aiffToUnsigned(v)
	}

	return c.BlocksFromPCM(platform, buf)
}

// AiffFromBlocks writes the signal of a block sequence as an 8-bit mono AIFF
// file.
func (c *Codec) AiffFromBlocks(platform string, blocks []block.Block, w io.WriteSeeker) error {
	buf, err := c.PCMFromBlocks(platform, blocks)
	if err != nil {
		return err
	}

	out := &audio.IntBuffer{
		Data:           make([]int, len(buf.Data)),
		Format:         buf.Format,
		SourceBitDepth: 8,
	}

	for i, v := range buf.Data {
		out.Data[i] = unsignedToAiff(v)
	}

	enc := aiff.NewEncoder(w, buf.Format.SampleRate, 8, 1)
	if err := enc.Write(out); err != nil {
		return fmt.Errorf("%s: failed to write AIFF samples: %w", platform, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("%s: failed to close AIFF encoder: %w", platform, err)
	}

	return nil
}
