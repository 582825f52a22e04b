// Package pc8001 implements the NEC PC-8001 tape formats. BASIC saves are a
// name header of ten 0xD3 bytes and a six byte name, followed by the N-BASIC
// program text and nine zero bytes. Monitor (binary) saves are
//
//	3A addrHi addrLo sum
//	3A len data sum        (repeated, len 1..255)
//	3A 00 00
//
// where sum is the two's complement of the byte sum it covers.
package pc8001

import (
	"encoding/binary"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

type form uint8

const (
	formBasicHeader form = iota
	formBasicText
	formAddress
	formData
	formEOF
)

const (
	basicMagic  = 0xD3
	basicMagics = 10
	nameLen     = 6
	textTrailer = 9
	binaryMagic = 0x3A

	// MaxData is the largest payload of a binary data block.
	MaxData = 0xFF
)

// Block is one PC-8001 tape block of either framing.
type Block struct {
	form form
	data []byte
	sum  byte
}

var _ block.Block = Block{}

// Checksum computes the binary framing checksum over the covered bytes.
func Checksum(parts ...[]byte) byte {
	return -block.Sum(parts...)
}

func seal(f form, data []byte, sum byte) Block {
	var b block.Builder
	b.Append(data...)

	return Block{form: f, data: b.Seal(), sum: sum}
}

// NewBasicHeader builds the BASIC name header.
func NewBasicHeader(name string) Block {
	return seal(formBasicHeader, block.PadName(name, nameLen, 0x00), 0)
}

// NewBasicText builds the program block of a BASIC save. text must end with
// the zero link of the last line; it is the final block of the file.
func NewBasicText(text []byte) (Block, error) {
	r := block.NewByteReader("pc8001: basic text", text)
	if _, err := readLines(r); err != nil {
		return Block{}, tapeerr.Unsupported("pc8001: basic text", "not N-BASIC program text: %v", err)
	}

	if r.Remaining() > 0 {
		return Block{}, tapeerr.Unsupported("pc8001: basic text", "%d bytes after the end of the program", r.Remaining())
	}

	return seal(formBasicText, text, 0), nil
}

// NewAddress builds the load address header of a binary save.
func NewAddress(addr uint16) Block {
	a := binary.BigEndian.AppendUint16(nil, addr)
	return seal(formAddress, a, Checksum(a))
}

// NewData builds a binary data block of 1 to 255 bytes.
func NewData(data []byte) (Block, error) {
	if len(data) == 0 || len(data) > MaxData {
		return Block{}, tapeerr.Unsupported("pc8001: new block", "data block of %d bytes", len(data))
	}

	return seal(formData, data, Checksum([]byte{byte(len(data))}, data)), nil
}

// NewEOF returns the binary end block.
func NewEOF() Block {
	return seal(formEOF, nil, 0)
}

// IsBasic reports whether b belongs to a BASIC save.
func (b Block) IsBasic() bool {
	return b.form == formBasicHeader || b.form == formBasicText
}

// Kind implements block.Block.
func (b Block) Kind() block.Kind {
	switch b.form {
	case formBasicHeader, formAddress:
		return block.KindHeader
	case formEOF:
		return block.KindEOF
	default:
		return block.KindData
	}
}

// Data implements block.Block.
func (b Block) Data() []byte { return append([]byte(nil), b.data...) }

// Checksum implements block.Block. BASIC blocks carry none.
func (b Block) Checksum() byte { return b.sum }

// IsEOF implements block.Block. The program text ends a BASIC save.
func (b Block) IsEOF() bool {
	return b.form == formEOF || b.form == formBasicText
}

// Bytes implements block.Block.
func (b Block) Bytes() []byte {
	var out block.Builder

	switch b.form {
	case formBasicHeader:
		for range basicMagics {
			out.Append(basicMagic)
		}

		out.Append(b.data...)
	case formBasicText:
		out.Append(b.data...)
		out.Append(make([]byte, textTrailer)...)
	case formAddress:
		out.Append(binaryMagic)
		out.Append(b.data...)
		out.Append(b.sum)
	default:
		out.Append(binaryMagic, byte(len(b.data)))
		out.Append(b.data...)
		out.Append(b.sum)
	}

	return out.Seal()
}

// Name returns the file name of a BASIC header.
func (b Block) Name() string {
	if b.form != formBasicHeader {
		return ""
	}

	return block.TrimName(b.data, 0x00)
}

// Address returns the load address of a binary address header.
func (b Block) Address() (uint16, bool) {
	if b.form != formAddress {
		return 0, false
	}

	return binary.BigEndian.Uint16(b.data), true
}

func readBasicHeader(src block.Source) (Block, error) {
	const op = "pc8001: basic header"

	magic := make([]byte, basicMagics)
	for i := range magic {
		magic[i] = basicMagic
	}

	if err := block.Expect(op, src, magic); err != nil {
		return Block{}, err
	}

	name, err := block.ReadN(src, nameLen)
	if err != nil {
		return Block{}, err
	}

	return Block{form: formBasicHeader, data: name}, nil
}

// readLines reads line-linked program text up to and including the zero link
// of the last line. Each line is a two byte link, a two byte line number and
// a zero terminated body.
func readLines(src block.Source) ([]byte, error) {
	var b block.Builder

	for {
		link, err := block.ReadN(src, 2)
		if err != nil {
			return nil, err
		}

		b.Append(link...)

		if link[0] == 0 && link[1] == 0 {
			return b.Seal(), nil
		}

		number, err := block.ReadN(src, 2)
		if err != nil {
			return nil, err
		}

		b.Append(number...)

		for {
			c, err := src.ReadByte()
			if err != nil {
				return nil, err
			}

			b.Append(c)

			if c == 0 {
				break
			}
		}
	}
}

func readBasicText(src block.Source) (Block, error) {
	const op = "pc8001: basic text"

	text, err := readLines(src)
	if err != nil {
		return Block{}, err
	}

	for range textTrailer {
		at := src.Pos()

		c, err := src.ReadByte()
		if err != nil {
			return Block{}, err
		}

		if c != 0 {
			return Block{}, tapeerr.Framing(op, at, 0, "expected zero padding after the program, got 0x%02X", c)
		}
	}

	return Block{form: formBasicText, data: text}, nil
}

func readAddress(src block.Source) (Block, error) {
	const op = "pc8001: address header"

	if err := block.Expect(op, src, []byte{binaryMagic}); err != nil {
		return Block{}, err
	}

	addr, err := block.ReadN(src, 2)
	if err != nil {
		return Block{}, err
	}

	at := src.Pos()

	sum, err := src.ReadByte()
	if err != nil {
		return Block{}, err
	}

	if err := block.Verify(op, at, Checksum(addr), sum); err != nil {
		return Block{}, err
	}

	return Block{form: formAddress, data: addr, sum: sum}, nil
}

// readData reads a data block or, for a zero length, the EOF block.
func readData(src block.Source) (Block, error) {
	const op = "pc8001: data block"

	if err := block.Expect(op, src, []byte{binaryMagic}); err != nil {
		return Block{}, err
	}

	n, err := src.ReadByte()
	if err != nil {
		return Block{}, err
	}

	data, err := block.ReadN(src, int(n))
	if err != nil {
		return Block{}, err
	}

	at := src.Pos()

	sum, err := src.ReadByte()
	if err != nil {
		return Block{}, err
	}

	if err := block.Verify(op, at, Checksum([]byte{n}, data), sum); err != nil {
		return Block{}, err
	}

	f := formData
	if n == 0 {
		f = formEOF
	}

	return Block{form: f, data: data, sum: sum}, nil
}
