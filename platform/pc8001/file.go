package pc8001

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Config is the PC-8001 bit encoding at 600 baud: a one is eight 2400 Hz half
// cycles, a zero four 1200 Hz half cycles.
var Config = pulse.Config{
	MarkFreq:    2400,
	MarkPulses:  8,
	SpaceFreq:   1200,
	SpacePulses: 4,
	Order:       pulse.LSBFirst,
	StartBits:   []uint8{0},
	StopBits:    []uint8{1, 1},
}

// syncRun is the number of idle pulses required before a block: 16 bits.
const syncRun = 16 * 8

var decoder = pulse.MustDecoder(Config)

// reader is the source a save is parsed from. next moves to the following
// block: a no-op for cas images, a leader search for audio.
type reader struct {
	src  block.Source
	next func(syncs ...byte) error
}

// readFile parses a save of either framing. The stream carries no tag telling
// them apart, so the BASIC layout is tried first and a magic mismatch on its
// header falls back to the binary layout from the same position.
func readFile(rd reader, log zerolog.Logger) ([]block.Block, error) {
	if err := rd.next(basicMagic, binaryMagic); err != nil {
		return nil, err
	}

	start := rd.src.Pos()

	header, err := readBasicHeader(rd.src)
	if err == nil {
		log.Debug().Str("name", header.Name()).Msg("pc8001: basic save")

		if err := rd.next(); err != nil {
			return nil, err
		}

		text, err := readBasicText(rd.src)
		if err != nil {
			return nil, err
		}

		return []block.Block{header, text}, nil
	}

	if !errors.Is(err, tapeerr.ErrMagicMismatch) {
		return nil, err
	}

	log.Debug().Int("pos", start).Msg("pc8001: no basic header, trying binary save")
	rd.src.Seek(start)

	return block.ReadFile(func(i int) (block.Block, error) {
		if i == 0 {
			return readAddress(rd.src)
		}

		if err := rd.next(binaryMagic); err != nil {
			return nil, err
		}

		return readData(rd.src)
	})
}

// FileReader decodes a complete file from edges.
type FileReader struct {
	log zerolog.Logger
}

// NewFileReader returns a FileReader logging to log.
func NewFileReader(log zerolog.Logger) *FileReader {
	return &FileReader{log: log}
}

// Read decodes a BASIC or binary save.
func (fr *FileReader) Read(edges []pulse.Edge) ([]block.Block, error) {
	r := pulse.NewReader(decoder, edges, 0)

	next := func(syncs ...byte) error {
		if len(syncs) == 0 {
			return r.Align(syncRun)
		}

		_, err := r.Sync(syncRun, 0xFF, syncs...)
		if err == nil {
			fr.log.Debug().Int("edge", r.Pos()).Msg("pc8001: block sync")
		}

		return err
	}

	return readFile(reader{src: r, next: next}, fr.log)
}

// FileEncoder renders blocks as pulse widths. Leader lengths are in idle bits.
type FileEncoder struct {
	Leader  int
	Gap     int
	Trailer int
}

// NewFileEncoder returns an encoder with the usual leader lengths.
func NewFileEncoder() *FileEncoder {
	return &FileEncoder{Leader: 200, Gap: 40, Trailer: 16}
}

// Encode renders a terminated block sequence.
func (fe *FileEncoder) Encode(blocks []block.Block) ([]float64, error) {
	blocks, err := block.Terminated("pc8001: encode", blocks)
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

		widths = enc.Leader(widths, n)
		widths = enc.Bytes(widths, b.Bytes())
	}

	return enc.Leader(widths, fe.Trailer), nil
}
