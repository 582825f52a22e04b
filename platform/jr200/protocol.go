package jr200

import (
	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Name is the registry key of the platform.
const Name = "jr200"

// DefaultBaud is the data block rate used when Options.Baud is 0.
const DefaultBaud = 2400

// Protocol implements block.Protocol for the JR-200.
type Protocol struct {
	enc *FileEncoder
}

var _ block.Protocol = (*Protocol)(nil)

// New returns the JR-200 protocol.
func New() *Protocol {
	return &Protocol{enc: NewFileEncoder()}
}

// Name implements block.Protocol.
func (p *Protocol) Name() string { return Name }

// FromBin implements block.Protocol. Data is split into 256 byte pages
// numbered from 1 at increasing addresses.
func (p *Protocol) FromBin(data []byte, opts block.Options) ([]block.Block, error) {
	const op = "jr200: from bin"

	baud := opts.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	attr := AttrBinary
	if opts.Type == block.TypeBasic {
		attr = AttrBasic
	}

	if int(opts.LoadAddr)+len(data) > 0x10000 {
		return nil, tapeerr.Unsupported(op, "%d bytes at 0x%04X overflow the address space", len(data), opts.LoadAddr)
	}

	chunks := block.Chunk(data, PageSize)
	if len(chunks) > MaxBlocks {
		return nil, tapeerr.Unsupported(op, "%d bytes need %d blocks, at most %d allowed", len(data), len(chunks), MaxBlocks)
	}

	header, err := NewHeader(Header{Name: opts.Name, Attr: attr, Baud: baud})
	if err != nil {
		return nil, err
	}

	blocks := []block.Block{header}

	addr := opts.LoadAddr
	for i, chunk := range chunks {
		b, err := NewData(byte(i+1), addr, chunk)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, b)
		addr += uint16(len(chunk))
	}

	return append(blocks, NewEOF(addr)), nil
}

func jrBlocks(op string, blocks []block.Block) ([]Block, error) {
	blocks, err := block.Terminated(op, blocks)
	if err != nil {
		return nil, err
	}

	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		jb, ok := b.(Block)
		if !ok {
			return nil, tapeerr.Unsupported(op, "foreign block %T", b)
		}

		out = append(out, jb)
	}

	return out, nil
}

// ToBin implements block.Protocol.
func (p *Protocol) ToBin(blocks []block.Block) ([]byte, error) {
	jbs, err := jrBlocks("jr200: to bin", blocks)
	if err != nil {
		return nil, err
	}

	var buf block.Builder
	for _, b := range jbs {
		if b.Kind() == block.KindData {
			buf.Append(b.data...)
		}
	}

	return buf.Seal(), nil
}

// ParseCas implements block.Protocol.
func (p *Protocol) ParseCas(data []byte) ([]block.Block, error) {
	r := block.NewByteReader("jr200: cas", data)

	return block.ReadFile(func(i int) (block.Block, error) {
		b, err := readBlock(r)
		if err != nil {
			return nil, err
		}

		return b, checkOrder("jr200: cas", i, b)
	})
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
	return pulse.ThresholdDetector{K: 0.55}
}

// Describe implements block.Protocol.
func (p *Protocol) Describe(blocks []block.Block) (block.File, error) {
	jbs, err := jrBlocks("jr200: describe", blocks)
	if err != nil {
		return block.File{}, err
	}

	f := block.File{Platform: Name, Type: block.TypeBinary}

	loaded := false
	for _, b := range jbs {
		f.Blocks = append(f.Blocks, block.Info{Kind: b.Kind().String(), Length: len(b.data), Checksum: b.sum})

		switch b.Kind() {
		case block.KindHeader:
			if h, ok := b.Header(); ok {
				f.Name, f.Baud = h.Name, h.Baud
				if h.Attr == AttrBasic {
					f.Type = block.TypeBasic
				}
			}
		case block.KindData:
			if !loaded {
				f.LoadAddr, loaded = b.addr, true
			}

			f.Size += len(b.data)
		case block.KindEOF:
			if !loaded {
				f.LoadAddr = b.addr
			}
		}
	}

	f.TypeName = f.Type.String()

	return f, nil
}
