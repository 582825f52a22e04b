package pc8001

import (
	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Name is the registry key of the platform.
const Name = "pc8001"

// Baud is the PC-8001 data rate.
const Baud = 600

// Protocol implements block.Protocol for the PC-8001.
type Protocol struct {
	enc *FileEncoder
}

var _ block.Protocol = (*Protocol)(nil)

// New returns the PC-8001 protocol.
func New() *Protocol {
	return &Protocol{enc: NewFileEncoder()}
}

// Name implements block.Protocol.
func (p *Protocol) Name() string { return Name }

// FromBin implements block.Protocol. block.TypeBasic produces a BASIC save
// and data must be N-BASIC program text ending with a zero link; any other
// type produces a monitor save at opts.LoadAddr.
func (p *Protocol) FromBin(data []byte, opts block.Options) ([]block.Block, error) {
	if opts.Type == block.TypeBasic {
		text, err := NewBasicText(data)
		if err != nil {
			return nil, err
		}

		return []block.Block{NewBasicHeader(opts.Name), text}, nil
	}

	if int(opts.LoadAddr)+len(data) > 0x10000 {
		return nil, tapeerr.Unsupported("pc8001: from bin", "%d bytes at 0x%04X overflow the address space", len(data), opts.LoadAddr)
	}

	blocks := []block.Block{NewAddress(opts.LoadAddr)}

	for _, chunk := range block.Chunk(data, MaxData) {
		b, err := NewData(chunk)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, b)
	}

	return append(blocks, NewEOF()), nil
}

func pcBlocks(op string, blocks []block.Block) ([]Block, error) {
	blocks, err := block.Terminated(op, blocks)
	if err != nil {
		return nil, err
	}

	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		pb, ok := b.(Block)
		if !ok {
			return nil, tapeerr.Unsupported(op, "foreign block %T", b)
		}

		out = append(out, pb)
	}

	return out, nil
}

// ToBin implements block.Protocol. BASIC saves yield the program text.
func (p *Protocol) ToBin(blocks []block.Block) ([]byte, error) {
	pbs, err := pcBlocks("pc8001: to bin", blocks)
	if err != nil {
		return nil, err
	}

	var buf block.Builder
	for _, b := range pbs {
		if b.form == formData || b.form == formBasicText {
			buf.Append(b.data...)
		}
	}

	return buf.Seal(), nil
}

// ParseCas implements block.Protocol.
func (p *Protocol) ParseCas(data []byte) ([]block.Block, error) {
	rd := reader{
		src:  block.NewByteReader("pc8001: cas", data),
		next: func(...byte) error { return nil },
	}

	return readFile(rd, zerolog.Nop())
}

// EncodePulses implements block.Protocol.
func (p *Protocol) EncodePulses(blocks []block.Block) ([]float64, error) {
	return p.enc.Encode(blocks)
}

// DecodePulses implements block.Protocol.
func (p *Protocol) DecodePulses(edges []pulse.Edge, log zerolog.Logger) ([]block.Block, error) {
	return NewFileReader(log).Read(edges)
}

// Detector implements block.Protocol.
func (p *Protocol) Detector() pulse.Detector {
	return pulse.ThresholdDetector{K: 0.45}
}

// Describe implements block.Protocol.
func (p *Protocol) Describe(blocks []block.Block) (block.File, error) {
	pbs, err := pcBlocks("pc8001: describe", blocks)
	if err != nil {
		return block.File{}, err
	}

	f := block.File{Platform: Name, Baud: Baud, Type: block.TypeBinary}

	for _, b := range pbs {
		f.Blocks = append(f.Blocks, block.Info{Kind: b.Kind().String(), Length: len(b.data), Checksum: b.sum})

		switch b.form {
		case formBasicHeader:
			f.Name, f.Type = b.Name(), block.TypeBasic
		case formAddress:
			f.LoadAddr, _ = b.Address()
			f.ExecAddr = f.LoadAddr
		case formData, formBasicText:
			f.Size += len(b.data)
		}
	}

	f.TypeName = f.Type.String()

	return f, nil
}
