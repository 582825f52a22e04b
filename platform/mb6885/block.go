// Package mb6885 implements the Hitachi MB-6885 (basic master jr.) tape
// format. Blocks are
//
//	42 4A type len addrHi addrLo data sum
//
// with sum the two's complement of the byte sum of type, len, addr and data.
package mb6885

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

// Attributes stored in the name header.
const (
	AttrBinary byte = 0x00
	AttrBasic  byte = 0x01
	AttrData   byte = 0x02
)

const (
	nameLen = 16

	// PageSize is the payload of a full data block, stored with length 0.
	PageSize = 256
)

var magic = []byte{0x42, 0x4A}

// Block is one MB-6885 tape block.
type Block struct {
	typ  byte
	len  byte
	addr uint16
	data []byte
	sum  byte
}

var _ block.Block = Block{}

// Checksum computes the MB-6885 checksum.
func Checksum(typ, length byte, addr uint16, data []byte) byte {
	s := block.Sum([]byte{typ, length, byte(addr >> 8), byte(addr)}, data)
	return (s ^ 0xFF) + 1
}

func seal(typ byte, addr uint16, data []byte) Block {
	var buf block.Builder
	buf.Append(data...)
	payload := buf.Seal()

	length := byte(len(payload))

	return Block{typ: typ, len: length, addr: addr, data: payload, sum: Checksum(typ, length, addr, payload)}
}

// NewHeader builds the name header; load is the load address of the file.
func NewHeader(name string, attr byte, load uint16) Block {
	var b block.Builder
	b.Append(block.PadName(name, nameLen, ' ')...)
	b.Append(attr)

	return seal(TypeHeader, load, b.Seal())
}

// NewData builds a data block of 1 to 256 bytes loaded at addr.
func NewData(addr uint16, data []byte) (Block, error) {
	if len(data) == 0 || len(data) > PageSize {
		return Block{}, tapeerr.Unsupported("mb6885: new block", "data block of %d bytes", len(data))
	}

	return seal(TypeData, addr, data), nil
}

// NewEOF returns the end block carrying the execution address.
func NewEOF(exec uint16) Block {
	return seal(TypeEOF, exec, nil)
}

// Type returns the block type byte.
func (b Block) Type() byte { return b.typ }

// Addr returns the block address: load address for header and data blocks,
// execution address for the EOF block.
func (b Block) Addr() uint16 { return b.addr }

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
	out.Append(b.typ, b.len, byte(b.addr>>8), byte(b.addr))
	out.Append(b.data...)
	out.Append(b.sum)

	return out.Seal()
}

// Name returns the file name and attribute of a header block.
func (b Block) Name() (string, byte, bool) {
	if b.typ != TypeHeader || len(b.data) < nameLen+1 {
		return "", 0, false
	}

	return block.TrimName(b.data[:nameLen], ' '), b.data[nameLen], true
}

// readBlock parses one block from src, which must be positioned on the magic.
func readBlock(src block.Source) (Block, error) {
	const op = "mb6885: read block"

	if err := block.Expect(op, src, magic); err != nil {
		return Block{}, err
	}

	head, err := block.ReadN(src, 4)
	if err != nil {
		return Block{}, err
	}

	typ, length := head[0], head[1]
	addr := uint16(head[2])<<8 | uint16(head[3])

	n := int(length)
	switch typ {
	case TypeHeader:
	case TypeData:
		if n == 0 {
			n = PageSize
		}
	case TypeEOF:
		n = 0
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

	if err := block.Verify(op, at, Checksum(typ, length, addr, data), sum); err != nil {
		return Block{}, err
	}

	return Block{typ: typ, len: length, addr: addr, data: data, sum: sum}, nil
}
