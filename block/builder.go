package block

import (
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

// Builder accumulates bytes for a block under construction. It only grows;
// Seal hands out the final bytes and further appends start a new buffer so a
// sealed slice is never written to again.
type Builder struct {
	buf []byte
}

// Append adds p to the builder.
func (b *Builder) Append(p ...byte) {
	b.buf = append(b.buf, p...)
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.Append(p...)
	return len(p), nil
}

// Len returns the number of bytes appended so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Sum returns the modulo 256 sum of the bytes appended so far.
func (b *Builder) Sum() byte {
	return Sum(b.buf)
}

// Seal returns the accumulated bytes and resets the builder.
func (b *Builder) Seal() []byte {
	out := b.buf
	b.buf = nil

	if out == nil {
		return []byte{}
	}

	return out[:len(out):len(out)]
}

// Source is a sequential byte input: a cas image or a pulse.Reader.
type Source interface {
	ReadByte() (byte, error)
	Pos() int
	Seek(pos int)
}

var _ Source = (*pulse.Reader)(nil)

// ByteReader reads a cas image. Running out of bytes is a framing error at the
// offset where the byte was expected.
type ByteReader struct {
	op   string
	data []byte
	pos  int
}

// NewByteReader returns a Source over data. op prefixes errors.
func NewByteReader(op string, data []byte) *ByteReader {
	return &ByteReader{op: op, data: data}
}

// ReadByte implements Source.
func (r *ByteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, tapeerr.Framing(r.op, r.pos, 0, "unexpected end of data")
	}

	b := r.data[r.pos]
	r.pos++

	return b, nil
}

// Pos implements Source.
func (r *ByteReader) Pos() int {
	return r.pos
}

// Seek implements Source.
func (r *ByteReader) Seek(pos int) {
	r.pos = pos
}

// Remaining returns the number of unread bytes.
func (r *ByteReader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadN reads n bytes from src.
func ReadN(src Source, n int) ([]byte, error) {
	var b Builder
	for range n {
		v, err := src.ReadByte()
		if err != nil {
			return nil, err
		}

		b.Append(v)
	}

	return b.Seal(), nil
}

// Expect reads len(magic) bytes and fails with a MagicMismatch on the first
// difference.
func Expect(op string, src Source, magic []byte) error {
	for _, want := range magic {
		at := src.Pos()

		got, err := src.ReadByte()
		if err != nil {
			return err
		}

		if got != want {
			return tapeerr.Magic(op, at, want, got)
		}
	}

	return nil
}

// Verify compares a stored checksum with the computed one.
func Verify(op string, index int, expected, actual byte) error {
	if expected != actual {
		return tapeerr.Checksum(op, index, expected, actual)
	}

	return nil
}
