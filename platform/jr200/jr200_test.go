package jr200

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

func TestHelloRoundTrip(t *testing.T) {
	header, err := NewHeader(Header{Name: "HELLO", Attr: AttrBinary, Baud: 2400})
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}

	data, err := NewData(1, 0x1000, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if err != nil {
		t.Fatalf("NewData: %v", err)
	}

	blocks := []block.Block{header, data, NewEOF(0x1004)}

	p := New()

	widths, err := p.EncodePulses(blocks)
	if err != nil {
		t.Fatalf("EncodePulses: %v", err)
	}

	got, err := p.DecodePulses(pulse.EdgesFromWidths(widths), zerolog.Nop())
	if err != nil {
		t.Fatalf("DecodePulses: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("decoded %d blocks, want 3", len(got))
	}

	h, ok := got[0].(Block).Header()
	if !ok || h.Name != "HELLO" || h.Attr != AttrBinary || h.Baud != 2400 {
		t.Fatalf("unexpected header %+v", h)
	}

	d := got[1].(Block)
	if d.Addr() != 0x1000 || !bytes.Equal(d.Data(), []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("unexpected data block at 0x%04X: % X", d.Addr(), d.Data())
	}

	if d.Checksum() != Checksum(d.Num(), 4, d.Addr(), d.Data()) {
		t.Fatalf("checksum does not validate")
	}

	eof := got[2].(Block)
	if !eof.IsEOF() || eof.Addr() != 0x1004 {
		t.Fatalf("unexpected EOF block %+v", eof)
	}

	for i := range blocks {
		if !bytes.Equal(got[i].Bytes(), blocks[i].Bytes()) {
			t.Fatalf("block %d differs after round trip", i)
		}
	}
}

func TestHeaderLayout(t *testing.T) {
	header, err := NewHeader(Header{Name: "HELLO", Attr: AttrBasic, Baud: 600})
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}

	raw := header.Bytes()
	if len(raw) != 2+4+26+1 {
		t.Fatalf("header is %d bytes", len(raw))
	}

	if !bytes.Equal(raw[:6], []byte{0x02, 0x2A, 0x00, 0x1A, 0xFF, 0xFF}) {
		t.Fatalf("unexpected prefix % X", raw[:6])
	}

	if raw[6+16] != AttrBasic || raw[6+17] != Code600 || raw[6+18] != 0xFF {
		t.Fatalf("unexpected attribute bytes % X", raw[22:26])
	}

	if raw[len(raw)-1] != block.Sum(raw[:len(raw)-1]) {
		t.Fatalf("checksum is not the sum of all preceding bytes")
	}

	if _, err := NewHeader(Header{Baud: 1200}); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported baud, got %v", err)
	}
}

func TestFromBinPaging(t *testing.T) {
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}

	p := New()

	blocks, err := p.FromBin(data, block.Options{Name: "PAGES", LoadAddr: 0x8000})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	if len(blocks) != 5 {
		t.Fatalf("got %d blocks, want 5", len(blocks))
	}

	full := blocks[1].(Block)
	if full.Bytes()[3] != 0 || len(full.Data()) != 256 {
		t.Fatalf("a full page must be stored with length byte 0")
	}

	for i, want := range []uint16{0x8000, 0x8100, 0x8200, 0x8258} {
		if got := blocks[i+1].(Block).Addr(); got != want {
			t.Fatalf("block %d at 0x%04X, want 0x%04X", i+1, got, want)
		}
	}

	cas, err := block.Cas("test", blocks)
	if err != nil {
		t.Fatalf("Cas: %v", err)
	}

	parsed, err := p.ParseCas(cas)
	if err != nil {
		t.Fatalf("ParseCas: %v", err)
	}

	bin, err := p.ToBin(parsed)
	if err != nil {
		t.Fatalf("ToBin: %v", err)
	}

	if !bytes.Equal(bin, data) {
		t.Fatalf("bin mismatch")
	}

	f, err := p.Describe(parsed)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	if f.Name != "PAGES" || f.LoadAddr != 0x8000 || f.Size != 600 || f.Baud != DefaultBaud {
		t.Fatalf("unexpected file %+v", f)
	}
}

func TestFromBinLimits(t *testing.T) {
	p := New()

	if _, err := p.FromBin(make([]byte, MaxBlocks*PageSize+1), block.Options{}); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected too many blocks to be rejected, got %v", err)
	}

	if _, err := p.FromBin(make([]byte, 16), block.Options{LoadAddr: 0xFFF8}); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected address overflow to be rejected, got %v", err)
	}
}

func TestPulseRoundTrip600(t *testing.T) {
	p := New()

	blocks, err := p.FromBin([]byte("10 PRINT\x00"), block.Options{Name: "SLOW", Type: block.TypeBasic, Baud: 600, LoadAddr: 0x0801})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	widths, err := p.EncodePulses(blocks)
	if err != nil {
		t.Fatalf("EncodePulses: %v", err)
	}

	got, err := p.DecodePulses(pulse.EdgesFromWidths(widths), zerolog.Nop())
	if err != nil {
		t.Fatalf("DecodePulses: %v", err)
	}

	for i := range blocks {
		if !bytes.Equal(got[i].Bytes(), blocks[i].Bytes()) {
			t.Fatalf("block %d differs after round trip", i)
		}
	}
}

func TestParseCasChecksumError(t *testing.T) {
	p := New()

	blocks, err := p.FromBin([]byte{1, 2, 3}, block.Options{LoadAddr: 0x1000})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	cas, err := block.Cas("test", blocks)
	if err != nil {
		t.Fatalf("Cas: %v", err)
	}

	cas[len(cas)-1]++

	_, err = p.ParseCas(cas)
	if !errors.Is(err, tapeerr.ErrChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
}

// damaged serializes a block with its first magic byte replaced.
type damaged struct {
	block.Block
	first byte
}

func (d damaged) Bytes() []byte {
	raw := d.Block.Bytes()
	raw[0] = d.first

	return raw
}

func pages(t *testing.T) []block.Block {
	t.Helper()

	blocks, err := New().FromBin(bytes.Repeat([]byte{0x55}, 3*PageSize), block.Options{Name: "PAGES", LoadAddr: 0x1000})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	if len(blocks) != 5 {
		t.Fatalf("got %d blocks, want 5", len(blocks))
	}

	return blocks
}

func TestDecodeRejectsDamagedMagic(t *testing.T) {
	p := New()

	blocks := pages(t)
	blocks[2] = damaged{Block: blocks[2], first: 0x06}

	widths, err := p.EncodePulses(blocks)
	if err != nil {
		t.Fatalf("EncodePulses: %v", err)
	}

	_, err = p.DecodePulses(pulse.EdgesFromWidths(widths), zerolog.Nop())
	if !errors.Is(err, tapeerr.ErrMagicMismatch) {
		t.Fatalf("expected magic mismatch, got %v", err)
	}
}

func TestMissingDataBlock(t *testing.T) {
	p := New()

	all := pages(t)
	blocks := []block.Block{all[0], all[1], all[3], all[4]}

	widths, err := p.EncodePulses(blocks)
	if err != nil {
		t.Fatalf("EncodePulses: %v", err)
	}

	if _, err := p.DecodePulses(pulse.EdgesFromWidths(widths), zerolog.Nop()); !errors.Is(err, tapeerr.ErrFraming) {
		t.Fatalf("audio: expected framing error, got %v", err)
	}

	cas, err := block.Cas("test", blocks)
	if err != nil {
		t.Fatalf("Cas: %v", err)
	}

	if _, err := p.ParseCas(cas); !errors.Is(err, tapeerr.ErrFraming) {
		t.Fatalf("cas: expected framing error, got %v", err)
	}
}
