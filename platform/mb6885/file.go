package mb6885

import (
	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

const (
	markFreq  = 2400
	spaceFreq = 1200
	// syncBits is the number of idle bits required before a block.
	syncBits = 16
)

// Config returns the bit encoding at baud: one symbol lasts 1/baud seconds
// and is filled with 2400 Hz (one) or 1200 Hz (zero) half cycles.
func Config(baud int) (pulse.Config, error) {
	switch baud {
	case 300, 600, 1200:
	default:
		return pulse.Config{}, tapeerr.Unsupported("mb6885: config", "baud %d", baud)
	}

	return pulse.Config{
		MarkFreq:    markFreq,
		MarkPulses:  2 * markFreq / baud,
		SpaceFreq:   spaceFreq,
		SpacePulses: 2 * spaceFreq / baud,
		Order:       pulse.LSBFirst,
		StartBits:   []uint8{0},
		StopBits:    []uint8{1, 1},
	}, nil
}

// addrCheck tracks the address the next data block must load at.
type addrCheck struct {
	next  uint16
	known bool
}

// check rejects a data block that does not continue where the previous one
// ended. The header sets the starting point.
func (c *addrCheck) check(op string, i int, b Block) error {
	switch b.typ {
	case TypeHeader:
		c.next, c.known = b.addr, true
	case TypeData:
		if c.known && b.addr != c.next {
			return tapeerr.Framing(op, i, 0, "data block at 0x%04X, want 0x%04X", b.addr, c.next)
		}

		c.next, c.known = b.addr+uint16(len(b.data)), true
	}

	return nil
}

// FileReader decodes a complete file from edges.
type FileReader struct {
	dec *pulse.Decoder
	log zerolog.Logger
}

// NewFileReader returns a FileReader for recordings made with dec.
func NewFileReader(dec *pulse.Decoder, log zerolog.Logger) *FileReader {
	return &FileReader{dec: dec, log: log}
}

// Read syncs to each block in turn until the EOF block has been read.
func (fr *FileReader) Read(edges []pulse.Edge) ([]block.Block, error) {
	r := pulse.NewReader(fr.dec, edges, 0)
	run := syncBits * fr.dec.Config().MarkPulses

	var addrs addrCheck

	return block.ReadFile(func(i int) (block.Block, error) {
		if _, err := r.Sync(run, 0xFF, magic[0]); err != nil {
			return nil, err
		}

		fr.log.Debug().Int("block", i).Int("edge", r.Pos()).Msg("mb6885: block sync")

		b, err := readBlock(r)
		if err != nil {
			return nil, err
		}

		return b, addrs.check("mb6885: read file", i, b)
	})
}

// FileEncoder renders blocks as pulse widths. Leader lengths are in idle bits.
type FileEncoder struct {
	enc     *pulse.Encoder
	Leader  int
	Gap     int
	Trailer int
}

// NewFileEncoder returns an encoder for dec with the usual leader lengths.
func NewFileEncoder(dec *pulse.Decoder) *FileEncoder {
	return &FileEncoder{enc: dec.Encoder(), Leader: 200, Gap: 40, Trailer: 16}
}

// Encode renders a terminated block sequence.
func (fe *FileEncoder) Encode(blocks []block.Block) ([]float64, error) {
	blocks, err := block.Terminated("mb6885: encode", blocks)
	if err != nil {
		return nil, err
	}

	var widths []float64
	for i, b := range blocks {
		n := fe.Gap
		if i == 0 {
			n = fe.Leader
		}

		widths = fe.enc.Leader(widths, n)
		widths = fe.enc.Bytes(widths, b.Bytes())
	}

	return fe.enc.Leader(widths, fe.Trailer), nil
}
