// Package block holds the platform neutral side of tape blocks: the Block
// interface every platform implements, the append-only Builder used to
// assemble payloads, byte sources shared by the cas and audio paths and the
// Protocol interface the orchestration layer dispatches on.
package block

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Kind classifies a block independently of the platform.
type Kind uint8

const (
	KindHeader Kind = iota
	KindData
	KindEOF
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindData:
		return "data"
	case KindEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Block is a checksummed unit of tape data. Implementations are immutable;
// Data and Bytes return copies.
type Block interface {
	Kind() Kind
	// Data returns the payload.
	Data() []byte
	// Checksum returns the stored checksum. Platforms without a checksum for a
	// block type return 0.
	Checksum() byte
	IsEOF() bool
	// Bytes returns the exact tape serialization: magic, header, payload and
	// checksum.
	Bytes() []byte
}

// FileType is the kind of program carried by a file.
type FileType uint8

const (
	TypeBinary FileType = iota
	TypeBasic
	TypeData
)

func (t FileType) String() string {
	switch t {
	case TypeBasic:
		return "basic"
	case TypeData:
		return "data"
	default:
		return "binary"
	}
}

// Options carries the metadata raw bytes lack when they are turned into
// blocks.
type Options struct {
	Name     string
	Type     FileType
	LoadAddr uint16
	ExecAddr uint16
	// Baud selects the data rate on platforms offering more than one; 0 picks
	// the platform default.
	Baud int
	// ASCII marks FM-7 files saved as text.
	ASCII bool
}

// File is the metadata view of a block sequence.
type File struct {
	Platform string   `json:"platform" yaml:"platform"`
	Name     string   `json:"name" yaml:"name"`
	Type     FileType `json:"-" yaml:"-"`
	TypeName string   `json:"type" yaml:"type"`
	LoadAddr uint16   `json:"load_addr" yaml:"load_addr"`
	ExecAddr uint16   `json:"exec_addr" yaml:"exec_addr"`
	Baud     int      `json:"baud,omitempty" yaml:"baud,omitempty"`
	Size     int      `json:"size" yaml:"size"`
	Blocks   []Info   `json:"blocks" yaml:"blocks"`
}

// Info summarizes one block.
type Info struct {
	Kind     string `json:"kind" yaml:"kind"`
	Length   int    `json:"length" yaml:"length"`
	Checksum byte   `json:"checksum" yaml:"checksum"`
}

// Describe lists the blocks of a sequence.
func Describe(blocks []Block) []Info {
	infos := make([]Info, 0, len(blocks))
	for _, b := range blocks {
		infos = append(infos, Info{Kind: b.Kind().String(), Length: len(b.Data()), Checksum: b.Checksum()})
	}

	return infos
}

// Protocol is implemented once per platform.
type Protocol interface {
	// Name is the registry key, e.g. "fm7".
	Name() string
	// FromBin chunks raw program bytes into a complete block sequence.
	FromBin(data []byte, opts Options) ([]Block, error)
	// ToBin concatenates the payload of a block sequence into the program
	// image, dropping any platform wrapper.
	ToBin(blocks []Block) ([]byte, error)
	// ParseCas reads the exact block bytes of a cas image.
	ParseCas(data []byte) ([]Block, error)
	// EncodePulses renders a block sequence as pulse widths in seconds.
	EncodePulses(blocks []Block) ([]float64, error)
	// DecodePulses reads a block sequence from detected edges.
	DecodePulses(edges []pulse.Edge, log zerolog.Logger) ([]Block, error)
	// Detector returns the level detector suited to recordings of the
	// platform.
	Detector() pulse.Detector
	// Describe returns the file metadata of a block sequence.
	Describe(blocks []Block) (File, error)
}

// Terminated returns blocks up to and including the first EOF block.
func Terminated(op string, blocks []Block) ([]Block, error) {
	for i, b := range blocks {
		if b.IsEOF() {
			return blocks[:i+1], nil
		}
	}

	return nil, tapeerr.Unsupported(op, "block sequence has no EOF block")
}

// Cas serializes a terminated block sequence.
func Cas(op string, blocks []Block) ([]byte, error) {
	blocks, err := Terminated(op, blocks)
	if err != nil {
		return nil, err
	}

	var b Builder
	for _, blk := range blocks {
		b.Append(blk.Bytes()...)
	}

	return b.Seal(), nil
}

// ReadFile calls next with increasing block numbers until it yields an EOF
// block. Errors are returned with the failing block number attached.
func ReadFile(next func(i int) (Block, error)) ([]Block, error) {
	var blocks []Block
	for i := 0; ; i++ {
		b, err := next(i)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}

		blocks = append(blocks, b)
		if b.IsEOF() {
			return blocks, nil
		}
	}
}

// Sum returns the byte sum of all parts modulo 256.
func Sum(parts ...[]byte) byte {
	var s byte
	for _, p := range parts {
		for _, v := range p {
			s += v
		}
	}

	return s
}

// Chunk splits data into pieces of at most size bytes. Empty data yields no
// chunks.
func Chunk(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, append([]byte(nil), data[:n]...))
		data = data[n:]
	}

	return chunks
}

// PadName returns name truncated or padded with pad to n bytes.
func PadName(name string, n int, pad byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = pad
	}

	copy(out, name)

	return out
}

// TrimName strips trailing pad and zero bytes from a fixed width name field.
func TrimName(field []byte, pad byte) string {
	end := len(field)
	for end > 0 && (field[end-1] == pad || field[end-1] == 0) {
		end--
	}

	return string(field[:end])
}
