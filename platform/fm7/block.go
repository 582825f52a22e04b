// Package fm7 implements the Fujitsu FM-7 tape format: 1200 baud FSK with
// framed bytes, 0xFF byte leaders and blocks of the form
//
//	01 3C type len data[len] sum
//
// where sum is the byte sum of type, len and data.
package fm7

import (
	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

// Block types.
const (
	TypeHeader byte = 0x00
	TypeData   byte = 0x01
	TypeEOF    byte = 0xFF
)

// File types stored in the header block.
const (
	FileBasic   byte = 0x00
	FileData    byte = 0x01
	FileMachine byte = 0x02
)

const (
	headerLen = 20
	nameLen   = 8

	// MaxData is the largest payload of a data block.
	MaxData = 0xFF
)

var magic = []byte{0x01, 0x3C}

// Block is one FM-7 tape block.
type Block struct {
	typ  byte
	data []byte
	sum  byte
}

var _ block.Block = Block{}

// Checksum computes the FM-7 checksum of a block.
func Checksum(typ byte, data []byte) byte {
	return typ + byte(len(data)) + block.Sum(data)
}

// NewBlock builds a block and computes its checksum. Payloads longer than
// MaxData are rejected.
func NewBlock(typ byte, data []byte) (Block, error) {
	if len(data) > MaxData {
		return Block{}, tapeerr.Unsupported("fm7: new block", "payload of %d bytes exceeds %d", len(data), MaxData)
	}

	var b block.Builder
	b.Append(data...)
	payload := b.Seal()

	return Block{typ: typ, data: payload, sum: Checksum(typ, payload)}, nil
}

// Header describes the file carried by a header block.
type Header struct {
	Name     string
	FileType byte
	ASCII    bool
}

// NewHeader builds the 20 byte header block.
func NewHeader(h Header) Block {
	var b block.Builder
	b.Append(block.PadName(h.Name, nameLen, ' ')...)
	b.Append(h.FileType)

	if h.ASCII {
		b.Append(0xFF)
	} else {
		b.Append(0x00)
	}

	b.Append(make([]byte, headerLen-nameLen-2)...)

	blk, _ := NewBlock(TypeHeader, b.Seal())

	return blk
}

// NewEOF returns the end of file block.
func NewEOF() Block {
	blk, _ := NewBlock(TypeEOF, nil)
	return blk
}

// Type returns the block type byte.
func (b Block) Type() byte { return b.typ }

// Kind implements block.Block.
func (b Block) Kind() block.Kind {
	switch b.typ {
	case TypeHeader:
		return block.KindHeader
	case TypeEOF:
		return block.KindEOF
	default:
		return block.KindData
	}
}

// Data implements block.Block.
func (b Block) Data() []byte { return append([]byte(nil), b.data...) }

// Checksum implements block.Block.
func (b Block) Checksum() byte { return b.sum }

// IsEOF implements block.Block.
func (b Block) IsEOF() bool { return b.typ == TypeEOF }

// Bytes implements block.Block.
func (b Block) Bytes() []byte {
	var out block.Builder
	out.Append(magic...)
	out.Append(b.typ, byte(len(b.data)))
	out.Append(b.data...)
	out.Append(b.sum)

	return out.Seal()
}

// Header decodes the payload of a header block.
func (b Block) Header() (Header, bool) {
	if b.typ != TypeHeader || len(b.data) < nameLen+2 {
		return Header{}, false
	}

	return Header{
		Name:     block.TrimName(b.data[:nameLen], ' '),
		FileType: b.data[nameLen],
		ASCII:    b.data[nameLen+1] != 0,
	}, true
}

// readBlock parses one block from src, which must be positioned on the magic.
func readBlock(src block.Source) (Block, error) {
	const op = "fm7: read block"

	if err := block.Expect(op, src, magic); err != nil {
		return Block{}, err
	}

	head, err := block.ReadN(src, 2)
	if err != nil {
		return Block{}, err
	}

	typ, n := head[0], int(head[1])
	switch typ {
	case TypeHeader, TypeData, TypeEOF:
	default:
		return Block{}, tapeerr.Unsupported(op, "unknown block type 0x%02X", typ)
	}

	data, err := block.ReadN(src, n)
	if err != nil {
		return Block{}, err
	}

	at := src.Pos()

	sum, err := src.ReadByte()
	if err != nil {
		return Block{}, err
	}

	if err := block.Verify(op, at, Checksum(typ, data), sum); err != nil {
		return Block{}, err
	}

	return Block{typ: typ, data: data, sum: sum}, nil
}
