// Package jr200 implements the National JR-200 tape format. Every block is
//
//	02 2A num len addrHi addrLo data sum
//
// and sum covers every byte before it, magic included. Block 0 is the file
// header and is always recorded at 600 baud; the header names the rate of the
// data blocks that follow. The EOF block carries num and len 0xFF, no data and
// the end address of the file.
package jr200

import (
	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

// Attributes stored in the file header.
const (
	AttrBasic  byte = 0x00
	AttrBinary byte = 0x01
)

// Baud codes stored in the file header.
const (
	Code2400 byte = 0x00
	Code600  byte = 0x01
)

const (
	headerNum = 0x00
	eofNum    = 0xFF
	nameLen   = 16
	headerLen = 0x1A

	// MaxBlocks is the highest data block number.
	MaxBlocks = 254

	// PageSize is the payload of a full data block.
	PageSize = 256
)

var magic = []byte{0x02, 0x2A}

// Block is one JR-200 tape block.
type Block struct {
	num  byte
	len  byte
	addr uint16
	data []byte
	sum  byte
}

var _ block.Block = Block{}

func (b Block) head() []byte {
	var out block.Builder
	out.Append(magic...)
	out.Append(b.num, b.len, byte(b.addr>>8), byte(b.addr))

	return out.Seal()
}

// Checksum computes the JR-200 checksum: the sum of magic, block header and
// data.
func Checksum(num, length byte, addr uint16, data []byte) byte {
	return block.Sum(magic, []byte{num, length, byte(addr >> 8), byte(addr)}, data)
}

func seal(num, length byte, addr uint16, data []byte) Block {
	var buf block.Builder
	buf.Append(data...)
	payload := buf.Seal()

	return Block{num: num, len: length, addr: addr, data: payload, sum: Checksum(num, length, addr, payload)}
}

// NewData builds data block num loaded at addr. A full page is stored with a
// length byte of 0.
func NewData(num byte, addr uint16, data []byte) (Block, error) {
	const op = "jr200: new block"

	if num == headerNum || num > MaxBlocks {
		return Block{}, tapeerr.Unsupported(op, "data block number %d out of range 1..%d", num, MaxBlocks)
	}

	if len(data) == 0 || len(data) > PageSize {
		return Block{}, tapeerr.Unsupported(op, "data block of %d bytes", len(data))
	}

	return seal(num, byte(len(data)), addr, data), nil
}

// Header describes the file carried by block 0.
type Header struct {
	Name string
	Attr byte
	Baud int
}

// NewHeader builds the file header block.
func NewHeader(h Header) (Block, error) {
	code := Code600
	switch h.Baud {
	case 600:
	case 2400:
		code = Code2400
	default:
		return Block{}, tapeerr.Unsupported("jr200: new header", "baud %d", h.Baud)
	}

	var b block.Builder
	b.Append(block.PadName(h.Name, nameLen, 0x00)...)
	b.Append(h.Attr, code)

	for range headerLen - nameLen - 2 {
		b.Append(0xFF)
	}

	return seal(headerNum, headerLen, 0xFFFF, b.Seal()), nil
}

// NewEOF returns the end block; end is the address following the last byte.
func NewEOF(end uint16) Block {
	return seal(eofNum, eofNum, end, nil)
}

// Num returns the block number.
func (b Block) Num() byte { return b.num }

// Addr returns the load address, or the end address for the EOF block.
func (b Block) Addr() uint16 { return b.addr }

// Kind implements block.Block.
func (b Block) Kind() block.Kind {
	switch b.num {
	case headerNum:
		return block.KindHeader
	case eofNum:
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
func (b Block) IsEOF() bool { return b.num == eofNum }

// Bytes implements block.Block.
func (b Block) Bytes() []byte {
	var out block.Builder
	out.Append(b.head()...)
	out.Append(b.data...)
	out.Append(b.sum)

	return out.Seal()
}

// Header decodes block 0.
func (b Block) Header() (Header, bool) {
	if b.num != headerNum || len(b.data) < nameLen+2 {
		return Header{}, false
	}

	h := Header{
		Name: block.TrimName(b.data[:nameLen], 0x00),
		Attr: b.data[nameLen],
		Baud: 600,
	}

	if b.data[nameLen+1] == Code2400 {
		h.Baud = 2400
	}

	return h, true
}

func payloadLen(num, length byte) int {
	switch {
	case num == eofNum:
		return 0
	case num != headerNum && length == 0:
		return PageSize
	default:
		return int(length)
	}
}

// readBlock parses one block from src, which must be positioned on the magic.
func readBlock(src block.Source) (Block, error) {
	const op = "jr200: read block"

	if err := block.Expect(op, src, magic); err != nil {
		return Block{}, err
	}

	head, err := block.ReadN(src, 4)
	if err != nil {
		return Block{}, err
	}

	num, length := head[0], head[1]
	addr := uint16(head[2])<<8 | uint16(head[3])

	if num == headerNum && length != headerLen {
		return Block{}, tapeerr.Unsupported(op, "file header of %d bytes", length)
	}

	data, err := block.ReadN(src, payloadLen(num, length))
	if err != nil {
		return Block{}, err
	}

	at := src.Pos()

	sum, err := src.ReadByte()
	if err != nil {
		return Block{}, err
	}

	if err := block.Verify(op, at, Checksum(num, length, addr, data), sum); err != nil {
		return Block{}, err
	}

	return Block{num: num, len: length, addr: addr, data: data, sum: sum}, nil
}
