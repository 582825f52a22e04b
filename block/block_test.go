package block

import (
	"errors"
	"testing"

	"github.com/cwbudde/cassette/tapeerr"
)

type fakeBlock struct {
	kind Kind
	data []byte
}

func (b fakeBlock) Kind() Kind     { return b.kind }
func (b fakeBlock) Data() []byte   { return append([]byte(nil), b.data...) }
func (b fakeBlock) Checksum() byte { return Sum(b.data) }
func (b fakeBlock) IsEOF() bool    { return b.kind == KindEOF }
func (b fakeBlock) Bytes() []byte  { return append(b.Data(), b.Checksum()) }

func TestBuilderSealIsolatesBlocks(t *testing.T) {
	var b Builder

	b.Append(1, 2)
	if _, err := b.Write([]byte{3}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if b.Len() != 3 || b.Sum() != 6 {
		t.Fatalf("len=%d sum=%d", b.Len(), b.Sum())
	}

	first := b.Seal()
	if b.Len() != 0 {
		t.Fatalf("builder not reset after Seal")
	}

	b.Append(9)
	second := b.Seal()

	first = append(first, 7)
	if len(second) != 1 || second[0] != 9 {
		t.Fatalf("second block changed: % X", second)
	}

	if len(first) != 4 {
		t.Fatalf("unexpected first block % X", first)
	}

	if empty := b.Seal(); empty == nil || len(empty) != 0 {
		t.Fatalf("empty Seal should return a non-nil empty slice")
	}
}

func TestByteReaderEndOfData(t *testing.T) {
	r := NewByteReader("test", []byte{0xAA})

	if v, err := r.ReadByte(); err != nil || v != 0xAA {
		t.Fatalf("ReadByte=%#x, %v", v, err)
	}

	_, err := r.ReadByte()
	if !errors.Is(err, tapeerr.ErrFraming) {
		t.Fatalf("expected framing error, got %v", err)
	}

	var terr *tapeerr.Error
	if !errors.As(err, &terr) || terr.Index != 1 {
		t.Fatalf("expected error at offset 1, got %v", err)
	}

	r.Seek(0)
	if r.Remaining() != 1 {
		t.Fatalf("Remaining=%d after Seek", r.Remaining())
	}
}

func TestExpectReportsMismatch(t *testing.T) {
	r := NewByteReader("test", []byte{0x02, 0x2B})

	err := Expect("test", r, []byte{0x02, 0x2A})
	if !errors.Is(err, tapeerr.ErrMagicMismatch) {
		t.Fatalf("expected magic mismatch, got %v", err)
	}

	var terr *tapeerr.Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *tapeerr.Error")
	}

	if terr.Index != 1 || terr.Expected != 0x2A || terr.Actual != 0x2B {
		t.Fatalf("unexpected error fields %+v", terr)
	}
}

func TestVerify(t *testing.T) {
	if err := Verify("test", 0, 5, 5); err != nil {
		t.Fatalf("Verify equal: %v", err)
	}

	err := Verify("test", 3, 5, 6)

	var terr *tapeerr.Error
	if !errors.As(err, &terr) || terr.Kind != tapeerr.KindChecksum || terr.Expected != 5 || terr.Actual != 6 {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTerminatedStopsAtFirstEOF(t *testing.T) {
	blocks := []Block{
		fakeBlock{kind: KindHeader, data: []byte{1}},
		fakeBlock{kind: KindEOF},
		fakeBlock{kind: KindData, data: []byte{2}},
	}

	got, err := Terminated("test", blocks)
	if err != nil {
		t.Fatalf("Terminated: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2", len(got))
	}

	cas, err := Cas("test", blocks)
	if err != nil {
		t.Fatalf("Cas: %v", err)
	}

	if string(cas) != string([]byte{1, 1, 0}) {
		t.Fatalf("cas % X", cas)
	}

	_, err = Terminated("test", blocks[:1])
	if !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestReadFileStopsAtEOF(t *testing.T) {
	seq := []Block{
		fakeBlock{kind: KindHeader},
		fakeBlock{kind: KindEOF},
	}

	calls := 0

	blocks, err := ReadFile(func(i int) (Block, error) {
		calls++
		return seq[i], nil
	})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if len(blocks) != 2 || calls != 2 {
		t.Fatalf("read %d blocks in %d calls", len(blocks), calls)
	}

	boom := errors.New("boom")

	_, err = ReadFile(func(int) (Block, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestChunk(t *testing.T) {
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}

	chunks := Chunk(data, 256)
	if len(chunks) != 3 || len(chunks[2]) != 88 {
		t.Fatalf("unexpected chunking %d", len(chunks))
	}

	chunks[0][0] = 0xFF
	if data[0] != 0 {
		t.Fatalf("chunks must not alias the input")
	}

	if Chunk(nil, 256) != nil {
		t.Fatalf("empty input should produce no chunks")
	}
}

func TestNames(t *testing.T) {
	field := PadName("HELLO", 8, ' ')
	if string(field) != "HELLO   " {
		t.Fatalf("PadName=%q", field)
	}

	if got := TrimName(field, ' '); got != "HELLO" {
		t.Fatalf("TrimName=%q", got)
	}

	if got := string(PadName("TOOLONGNAME", 4, 0)); got != "TOOL" {
		t.Fatalf("PadName truncation=%q", got)
	}
}
