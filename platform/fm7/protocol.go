package fm7

import (
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Name is the registry key of the platform.
const Name = "fm7"

// Baud is the FM-7 data rate.
const Baud = 1200

// Protocol implements block.Protocol for the FM-7.
type Protocol struct {
	enc *FileEncoder
}

var _ block.Protocol = (*Protocol)(nil)

// New returns the FM-7 protocol.
func New() *Protocol {
	return &Protocol{enc: NewFileEncoder()}
}

// Name implements block.Protocol.
func (p *Protocol) Name() string { return Name }

func fileType(t block.FileType) byte {
	switch t {
	case block.TypeBasic:
		return FileBasic
	case block.TypeData:
		return FileData
	default:
		return FileMachine
	}
}

// wrapMachine adds the loader frame F-BASIC's LOADM expects around a
// machine language image.
func wrapMachine(image []byte, load, exec uint16) ([]byte, error) {
	if len(image) > 0xFFFF {
		return nil, tapeerr.Unsupported("fm7: from bin", "image of %d bytes does not fit a machine file", len(image))
	}

	var b block.Builder
	b.Append(0x00)
	b.Append(binary.BigEndian.AppendUint16(nil, uint16(len(image)))...)
	b.Append(binary.BigEndian.AppendUint16(nil, load)...)
	b.Append(image...)
	b.Append(0xFF, 0x00, 0x00)
	b.Append(binary.BigEndian.AppendUint16(nil, exec)...)

	return b.Seal(), nil
}

type machine struct {
	load, exec uint16
	image      []byte
}

func unwrapMachine(payload []byte) (machine, error) {
	const op = "fm7: machine image"

	if len(payload) < 10 || payload[0] != 0x00 {
		return machine{}, tapeerr.Unsupported(op, "missing loader frame")
	}

	n := int(binary.BigEndian.Uint16(payload[1:3]))
	if len(payload) < 5+n+5 {
		return machine{}, tapeerr.Unsupported(op, "frame declares %d bytes, only %d present", n, len(payload)-10)
	}

	tail := payload[5+n:]
	if tail[0] != 0xFF {
		return machine{}, tapeerr.Unsupported(op, "missing end marker after image")
	}

	return machine{
		load:  binary.BigEndian.Uint16(payload[3:5]),
		exec:  binary.BigEndian.Uint16(tail[3:5]),
		image: append([]byte(nil), payload[5:5+n]...),
	}, nil
}

// FromBin implements block.Protocol. Machine files get the loader frame; BASIC
// and data files are stored as is.
func (p *Protocol) FromBin(data []byte, opts block.Options) ([]block.Block, error) {
	ft := fileType(opts.Type)

	payload := data
	if ft == FileMachine {
		var err error
		if payload, err = wrapMachine(data, opts.LoadAddr, opts.ExecAddr); err != nil {
			return nil, err
		}
	}

	blocks := []block.Block{NewHeader(Header{Name: opts.Name, FileType: ft, ASCII: opts.ASCII})}

	for _, chunk := range block.Chunk(payload, MaxData) {
		b, err := NewBlock(TypeData, chunk)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, b)
	}

	return append(blocks, NewEOF()), nil
}

type contents struct {
	header  Header
	payload []byte
}

func collect(blocks []block.Block) (contents, error) {
	blocks, err := block.Terminated("fm7: to bin", blocks)
	if err != nil {
		return contents{}, err
	}

	var (
		c   contents
		buf block.Builder
	)

	for _, b := range blocks {
		fb, ok := b.(Block)
		if !ok {
			return contents{}, tapeerr.Unsupported("fm7: to bin", "foreign block %T", b)
		}

		switch fb.typ {
		case TypeHeader:
			c.header, _ = fb.Header()
		case TypeData:
			buf.Append(fb.data...)
		}
	}

	c.payload = buf.Seal()

	return c, nil
}

// ToBin implements block.Protocol.
func (p *Protocol) ToBin(blocks []block.Block) ([]byte, error) {
	c, err := collect(blocks)
	if err != nil {
		return nil, err
	}

	if c.header.FileType != FileMachine {
		return c.payload, nil
	}

	m, err := unwrapMachine(c.payload)
	if err != nil {
		return nil, err
	}

	return m.image, nil
}

// ParseCas implements block.Protocol.
func (p *Protocol) ParseCas(data []byte) ([]block.Block, error) {
	r := block.NewByteReader("fm7: cas", data)

	return block.ReadFile(func(int) (block.Block, error) {
		return readBlock(r)
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
	return pulse.ThresholdDetector{K: 0.5}
}

// Describe implements block.Protocol.
func (p *Protocol) Describe(blocks []block.Block) (block.File, error) {
	c, err := collect(blocks)
	if err != nil {
		return block.File{}, err
	}

	blocks, _ = block.Terminated("fm7: describe", blocks)

	f := block.File{
		Platform: Name,
		Name:     c.header.Name,
		Baud:     Baud,
		Size:     len(c.payload),
		Blocks:   block.Describe(blocks),
	}

	switch c.header.FileType {
	case FileBasic:
		f.Type = block.TypeBasic
	case FileData:
		f.Type = block.TypeData
	default:
		f.Type = block.TypeBinary

		if m, err := unwrapMachine(c.payload); err == nil {
			f.LoadAddr, f.ExecAddr, f.Size = m.load, m.exec, len(m.image)
		}
	}

	f.TypeName = f.Type.String()

	return f, nil
}
