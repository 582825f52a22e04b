package mb6885

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/pulse"
	"github.com/cwbudde/cassette/tapeerr"
)

func mustNew(t *testing.T, baud int) *Protocol {
	t.Helper()

	p, err := New(baud)
	if err != nil {
		t.Fatalf("New(%d): %v", baud, err)
	}

	return p
}

func TestChecksumIsTwosComplement(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30}

	b, err := NewData(0x2000, data)
	if err != nil {
		t.Fatalf("NewData: %v", err)
	}

	raw := b.Bytes()
	if block.Sum(raw[2:]) != 0 {
		t.Fatalf("type..sum should add up to zero: % X", raw)
	}

	s := block.Sum([]byte{TypeData, 3, 0x20, 0x00}, data)
	if want := byte((int(s&0xFF^0xFF) + 1) % 256); b.Checksum() != want {
		t.Fatalf("checksum %#x, want %#x", b.Checksum(), want)
	}
}

func TestCorruptedChecksum(t *testing.T) {
	p := mustNew(t, DefaultBaud)

	blocks, err := p.FromBin([]byte{0xC3, 0x00, 0x10}, block.Options{Name: "GAME", LoadAddr: 0x1000, ExecAddr: 0x1000})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	cas, err := block.Cas("test", blocks)
	if err != nil {
		t.Fatalf("Cas: %v", err)
	}

	// Last byte of the data block: header block is 6+17+1 bytes, data block
	// 6+3+1.
	at := 24 + 9
	stored := cas[at]
	cas[at] = stored + 1

	_, err = p.ParseCas(cas)
	if !errors.Is(err, tapeerr.ErrChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}

	var terr *tapeerr.Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *tapeerr.Error")
	}

	if terr.Expected != int(stored) || terr.Actual != int(stored+1) || terr.Index != at {
		t.Fatalf("unexpected error fields %+v", terr)
	}
}

func TestCasRoundTrip(t *testing.T) {
	p := mustNew(t, DefaultBaud)

	data := make([]byte, 700)
	for i := range data {
		data[i] = byte(i ^ 0x5A)
	}

	blocks, err := p.FromBin(data, block.Options{Name: "LONGNAME", Type: block.TypeBasic, LoadAddr: 0x0400, ExecAddr: 0x0420})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	if len(blocks) != 5 || blocks[1].Bytes()[3] != 0 {
		t.Fatalf("expected header, two full pages, a partial page and EOF")
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

	if f.Name != "LONGNAME" || f.Type != block.TypeBasic || f.LoadAddr != 0x0400 || f.ExecAddr != 0x0420 || f.Size != 700 {
		t.Fatalf("unexpected file %+v", f)
	}
}

func TestPulseRoundTripAllBauds(t *testing.T) {
	for _, baud := range []int{300, 600, 1200} {
		p := mustNew(t, baud)

		blocks, err := p.FromBin([]byte{0x86, 0x41, 0xBD, 0xF0, 0x00}, block.Options{Name: "A", LoadAddr: 0x3000, ExecAddr: 0x3000})
		if err != nil {
			t.Fatalf("FromBin: %v", err)
		}

		widths, err := p.EncodePulses(blocks)
		if err != nil {
			t.Fatalf("EncodePulses: %v", err)
		}

		got, err := p.DecodePulses(pulse.EdgesFromWidths(widths), zerolog.Nop())
		if err != nil {
			t.Fatalf("%d baud: DecodePulses: %v", baud, err)
		}

		if len(got) != len(blocks) {
			t.Fatalf("%d baud: decoded %d blocks, want %d", baud, len(got), len(blocks))
		}

		for i := range blocks {
			if !bytes.Equal(got[i].Bytes(), blocks[i].Bytes()) {
				t.Fatalf("%d baud: block %d differs", baud, i)
			}
		}
	}
}

func TestNewRejectsUnknownBaud(t *testing.T) {
	if _, err := New(2400); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
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

func pages(t *testing.T, p *Protocol) []block.Block {
	t.Helper()

	blocks, err := p.FromBin(bytes.Repeat([]byte{0x55}, 3*PageSize), block.Options{Name: "PAGES", LoadAddr: 0x2000, ExecAddr: 0x2000})
	if err != nil {
		t.Fatalf("FromBin: %v", err)
	}

	if len(blocks) != 5 {
		t.Fatalf("got %d blocks, want 5", len(blocks))
	}

	return blocks
}

func TestDecodeRejectsDamagedMagic(t *testing.T) {
	p := mustNew(t, DefaultBaud)

	blocks := pages(t, p)
	blocks[2] = damaged{Block: blocks[2], first: 0x43}

	widths, err := p.EncodePulses(blocks)
	if err != nil {
		t.Fatalf("EncodePulses: %v", err)
	}

	_, err = p.DecodePulses(pulse.EdgesFromWidths(widths), zerolog.Nop())
	if !errors.Is(err, tapeerr.ErrMagicMismatch) {
		t.Fatalf("expected magic mismatch, got %v", err)
	}
}

func TestAddressGap(t *testing.T) {
	p := mustNew(t, DefaultBaud)

	all := pages(t, p)
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
