package jr200

import (
	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

func config(markPulses, spacePulses int) pulse.Config {
	return pulse.Config{
		MarkFreq:    2400,
		MarkPulses:  markPulses,
		SpaceFreq:   1200,
		SpacePulses: spacePulses,
		Order:       pulse.LSBFirst,
		StartBits:   []uint8{0},
		StopBits:    []uint8{1, 1},
	}
}

// Decoders per supported baud rate.
var decoders = map[int]*pulse.Decoder{
	600:  pulse.MustDecoder(config(8, 4)),
	2400: pulse.MustDecoder(config(2, 1)),
}

// syncBits is the number of idle bits required before a block.
const syncBits = 16

func decoderFor(op string, baud int) (*pulse.Decoder, error) {
	d, ok := decoders[baud]
	if !ok {
		return nil, tapeerr.Unsupported(op, "baud %d", baud)
	}

	return d, nil
}

// checkOrder rejects a block out of sequence: the file header only comes
// first and data blocks are numbered from 1 in recording order.
func checkOrder(op string, i int, b Block) error {
	switch {
	case b.num == headerNum && i != 0:
		return tapeerr.Framing(op, i, 0, "file header at block %d", i)
	case b.Kind() == block.KindData && int(b.num) != i:
		return tapeerr.Framing(op, i, 0, "data block %d at block %d", b.num, i)
	}

	return nil
}

// FileReader decodes a complete file from edges.
type FileReader struct {
	log zerolog.Logger
}

// NewFileReader returns a FileReader logging to log.
func NewFileReader(log zerolog.Logger) *FileReader {
	return &FileReader{log: log}
}

func sync(r *pulse.Reader) error {
	run := syncBits * r.Decoder().Config().MarkPulses

	_, err := r.Sync(run, 0xFF, magic[0])

	return err
}

// Read decodes the 600 baud file header, then switches to the baud it
// declares for the remaining blocks.
func (fr *FileReader) Read(edges []pulse.Edge) ([]block.Block, error) {
	const op = "jr200: read file"

	r := pulse.NewReader(decoders[600], edges, 0)

	return block.ReadFile(func(i int) (block.Block, error) {
		if err := sync(r); err != nil {
			return nil, err
		}

		fr.log.Debug().Int("block", i).Int("edge", r.Pos()).Msg("jr200: block sync")

		b, err := readBlock(r)
		if err != nil {
			return nil, err
		}

		if err := checkOrder(op, i, b); err != nil {
			return nil, err
		}

		if i > 0 {
			return b, nil
		}

		h, ok := b.Header()
		if !ok {
			return nil, tapeerr.Unsupported(op, "file starts with block %d instead of the file header", b.num)
		}

		dec, err := decoderFor(op, h.Baud)
		if err != nil {
			return nil, err
		}

		fr.log.Debug().Str("name", h.Name).Int("baud", h.Baud).Msg("jr200: file header")

		r = pulse.NewReader(dec, edges, r.Pos())

		return b, nil
	})
}

// FileEncoder renders blocks as pulse widths. Leader lengths are in idle bits.
type FileEncoder struct {
	Leader  int
	Gap     int
	Trailer int
}

// NewFileEncoder returns an encoder with the usual leader lengths.
func NewFileEncoder() *FileEncoder {
	return &FileEncoder{Leader: 256, Gap: 64, Trailer: 16}
}

// Encode renders a terminated block sequence whose first block is the file
// header.
func (fe *FileEncoder) Encode(blocks []block.Block) ([]float64, error) {
	const op = "jr200: encode"

	blocks, err := block.Terminated(op, blocks)
	if err != nil {
		return nil, err
	}

	first, ok := blocks[0].(Block)
	if !ok {
		return nil, tapeerr.Unsupported(op, "foreign block %T", blocks[0])
	}

	h, ok := first.Header()
	if !ok {
		return nil, tapeerr.Unsupported(op, "first block is not the file header")
	}

	dec, err := decoderFor(op, h.Baud)
	if err != nil {
		return nil, err
	}

	enc := decoders[600].Encoder()

	widths := enc.Leader(nil, fe.Leader)
	widths = enc.Bytes(widths, first.Bytes())

	enc = dec.Encoder()
	for _, b := range blocks[1:] {
		widths = enc.Leader(widths, fe.Gap)
		widths = enc.Bytes(widths, b.Bytes())
	}

	return enc.Leader(widths, fe.Trailer), nil
}
