package fm7

import (
	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
)

// Config is the FM-7 bit encoding: a one is four 2400 Hz half cycles, a zero
// two 1200 Hz half cycles, 1200 baud either way.
var Config = pulse.Config{
	MarkFreq:    2400,
	MarkPulses:  4,
	SpaceFreq:   1200,
	SpacePulses: 2,
	Order:       pulse.LSBFirst,
	StartBits:   []uint8{0},
	StopBits:    []uint8{1, 1},
}

const (
	leaderByte = 0xFF
	// syncRun is the number of idle pulses required before a block, a little
	// less than one leader byte.
	syncRun = 32
)

var decoder = pulse.MustDecoder(Config)

// FileReader decodes a complete file from edges.
type FileReader struct {
	log zerolog.Logger
}

// NewFileReader returns a FileReader logging to log.
func NewFileReader(log zerolog.Logger) *FileReader {
	return &FileReader{log: log}
}

// Read syncs to each block in turn until the EOF block has been read.
func (fr *FileReader) Read(edges []pulse.Edge) ([]block.Block, error) {
	r := pulse.NewReader(decoder, edges, 0)

	return block.ReadFile(func(i int) (block.Block, error) {
		if _, err := r.Sync(syncRun, leaderByte, magic[0]); err != nil {
			return nil, err
		}

		fr.log.Debug().Int("block", i).Int("edge", r.Pos()).Msg("fm7: block sync")

		return readBlock(r)
	})
}

// FileEncoder renders blocks as pulse widths.
type FileEncoder struct {
	// Leader is the number of 0xFF bytes before the first block.
	Leader int
	// Gap is the number of 0xFF bytes before every following block.
	Gap int
	// Trailer is the number of idle bits after the EOF block.
	Trailer int
}

// NewFileEncoder returns an encoder with the usual leader lengths.
func NewFileEncoder() *FileEncoder {
	return &FileEncoder{Leader: 32, Gap: 8, Trailer: 16}
}

// Encode renders a terminated block sequence.
func (fe *FileEncoder) Encode(blocks []block.Block) ([]float64, error) {
	blocks, err := block.Terminated("fm7: encode", blocks)
	if err != nil {
		return nil, err
	}

	enc := decoder.Encoder()

	var widths []float64
	for i, b := range blocks {
		n := fe.Gap
		if i == 0 {
			n = fe.Leader
		}

		for range n {
			widths = enc.Byte(widths, leaderByte)
		}

		widths = enc.Bytes(widths, b.Bytes())
	}

	return enc.Leader(widths, fe.Trailer), nil
}
