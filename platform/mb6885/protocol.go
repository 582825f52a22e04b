package mb6885

import (
	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Name is the registry key of the platform.
const Name = "mb6885"

// DefaultBaud is the rate of the registered protocol.
const DefaultBaud = 600

// Protocol implements block.Protocol for the MB-6885 at one baud rate.
type Protocol struct {
	baud int
	dec  *pulse.Decoder
	enc  *FileEncoder
}

var _ block.Protocol = (*Protocol)(nil)

// New returns the protocol for 300, 600 or 1200 baud recordings.
func New(baud int) (*Protocol, error) {
	cfg, err := Config(baud)
	if err != nil {
		return nil, err
	}

	dec, err := pulse.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	return &Protocol{baud: baud, dec: dec, enc: NewFileEncoder(dec)}, nil
}

// Name implements block.Protocol.
func (p *Protocol) Name() string { return Name }

// Baud returns the data rate of p.
func (p *Protocol) Baud() int { return p.baud }

func attribute(t block.FileType) byte {
	switch t {
	case block.TypeBasic:
		return AttrBasic
	case block.TypeData:
		return AttrData
	default:
		return AttrBinary
	}
}

// FromBin implements block.Protocol. Data is split into 256 byte pages at
// increasing addresses; the EOF block carries the execution address.
func (p *Protocol) FromBin(data []byte, opts block.Options) ([]block.Block, error) {
	if int(opts.LoadAddr)+len(data) > 0x10000 {
		return nil, tapeerr.Unsupported("mb6885: from bin", "%d bytes at 0x%04X overflow the address space", len(data), opts.LoadAddr)
	}

	blocks := []block.Block{NewHeader(opts.Name, attribute(opts.Type), opts.LoadAddr)}

	addr := opts.LoadAddr
	for _, chunk := range block.Chunk(data, PageSize) {
		b, err := NewData(addr, chunk)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, b)
		addr += uint16(len(chunk))
	}

	return append(blocks, NewEOF(opts.ExecAddr)), nil
}

func mbBlocks(op string, blocks []block.Block) ([]Block, error) {
	blocks, err := block.Terminated(op, blocks)
	if err != nil {
		return nil, err
	}

	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		mb, ok := b.(Block)
		if !ok {
			return nil, tapeerr.Unsupported(op, "foreign block %T", b)
		}

		out = append(out, mb)
	}

	return out, nil
}

// ToBin implements block.Protocol.
func (p *Protocol) ToBin(blocks []block.Block) ([]byte, error) {
	mbs, err := mbBlocks("mb6885: to bin", blocks)
	if err != nil {
		return nil, err
	}

	var buf block.Builder
	for _, b := range mbs {
		if b.typ == TypeData {
			buf.Append(b.data...)
		}
	}

	return buf.Seal(), nil
}

// ParseCas implements block.Protocol.
func (p *Protocol) ParseCas(data []byte) ([]block.Block, error) {
	r := block.NewByteReader("mb6885: cas", data)

	var addrs addrCheck

	return block.ReadFile(func(i int) (block.Block, error) {
		b, err := readBlock(r)
		if err != nil {
			return nil, err
		}

		return b, addrs.check("mb6885: cas", i, b)
	})
}

// EncodePulses implements block.Protocol.
func (p *Protocol) EncodePulses(blocks []block.Block) ([]float64, error) {
	return p.enc.Encode(blocks)
}

// DecodePulses implements block.Protocol.
func (p *Protocol) DecodePulses(edges []pulse.Edge, log zerolog.Logger) ([]block.Block, error) {
	return NewFileReader(p.dec, log).Read(edges)
}

// Detector implements block.Protocol. Recordings of this machine often fade
// in, which a fixed threshold does not survive.
func (p *Protocol) Detector() pulse.Detector {
	return pulse.GradientDetector{Factor: 0.3}
}

// Describe implements block.Protocol.
func (p *Protocol) Describe(blocks []block.Block) (block.File, error) {
	mbs, err := mbBlocks("mb6885: describe", blocks)
	if err != nil {
		return block.File{}, err
	}

	f := block.File{Platform: Name, Baud: p.baud, Type: block.TypeBinary}

	for _, b := range mbs {
		f.Blocks = append(f.Blocks, block.Info{Kind: b.Kind().String(), Length: len(b.data), Checksum: b.sum})

		switch b.typ {
		case TypeHeader:
			name, attr, _ := b.Name()
			f.Name, f.LoadAddr = name, b.addr

			switch attr {
			case AttrBasic:
				f.Type = block.TypeBasic
			case AttrData:
				f.Type = block.TypeData
			}
		case TypeData:
			f.Size += len(b.data)
		case TypeEOF:
			f.ExecAddr = b.addr
		}
	}

	f.TypeName = f.Type.String()

	return f, nil
}
