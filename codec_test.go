package cassette

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-audio/audio"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

type sample struct {
	platform string
	data     []byte
	meta     block.Options
}

func samples() []sample {
	image := make([]byte, 300)
	for i := range image {
		image[i] = byte(i * 7)
	}

	return []sample{
		{platform: "fm7", data: image, meta: block.Options{Name: "GAME", LoadAddr: 0x2000, ExecAddr: 0x2010}},
		{platform: "jr200", data: image, meta: block.Options{Name: "GAME", LoadAddr: 0x1000}},
		{platform: "mb6885", data: image, meta: block.Options{Name: "GAME", LoadAddr: 0x0400, ExecAddr: 0x0400}},
		{platform: "pc8001", data: image, meta: block.Options{LoadAddr: 0xC000}},
	}
}

func sameBlocks(t *testing.T, got, want []block.Block) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d blocks, want %d", len(got), len(want))
	}

	for i := range want {
		if !bytes.Equal(got[i].Bytes(), want[i].Bytes()) {
			t.Fatalf("block %d: got % X, want % X", i, got[i].Bytes(), want[i].Bytes())
		}
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	if got, want := r.Names(), []string{"fm7", "jr200", "mb6885", "pc8001"}; !slices.Equal(got, want) {
		t.Fatalf("names %v, want %v", got, want)
	}

	if _, err := r.Lookup("msx"); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}

	p, err := r.Lookup("jr200")
	if err != nil || p.Name() != "jr200" {
		t.Fatalf("lookup jr200: %v, %v", p, err)
	}
}

func TestCasRoundTrip(t *testing.T) {
	c := New(DefaultOptions())

	for _, s := range samples() {
		t.Run(s.platform, func(t *testing.T) {
			blocks, err := c.BlocksFromBin(s.platform, s.data, s.meta)
			if err != nil {
				t.Fatalf("BlocksFromBin: %v", err)
			}

			var cas bytes.Buffer
			if err := c.CasFromBlocks(s.platform, blocks, &cas); err != nil {
				t.Fatalf("CasFromBlocks: %v", err)
			}

			parsed, err := c.BlocksFromCas(s.platform, &cas)
			if err != nil {
				t.Fatalf("BlocksFromCas: %v", err)
			}

			sameBlocks(t, parsed, blocks)

			bin, err := c.BinFromBlocks(s.platform, parsed)
			if err != nil {
				t.Fatalf("BinFromBlocks: %v", err)
			}

			if !bytes.Equal(bin, s.data) {
				t.Fatalf("bin mismatch")
			}
		})
	}
}

func TestWavRoundTrip(t *testing.T) {
	c := New(DefaultOptions())
	dir := t.TempDir()

	for _, s := range samples() {
		t.Run(s.platform, func(t *testing.T) {
			blocks, err := c.BlocksFromBin(s.platform, s.data, s.meta)
			if err != nil {
				t.Fatalf("BlocksFromBin: %v", err)
			}

			path := filepath.Join(dir, s.platform+".wav")

			out, err := os.Create(path)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			if err := c.WavFromBlocks(s.platform, blocks, out); err != nil {
				t.Fatalf("WavFromBlocks: %v", err)
			}

			out.Close()

			in, err := os.Open(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer in.Close()

			decoded, err := c.BlocksFromWav(s.platform, in)
			if err != nil {
				t.Fatalf("BlocksFromWav: %v", err)
			}

			sameBlocks(t, decoded, blocks)
		})
	}
}

func TestAiffRoundTrip(t *testing.T) {
	c := New(DefaultOptions())
	dir := t.TempDir()

	for _, s := range samples()[:2] {
		t.Run(s.platform, func(t *testing.T) {
			blocks, err := c.BlocksFromBin(s.platform, s.data, s.meta)
			if err != nil {
				t.Fatalf("BlocksFromBin: %v", err)
			}

			path := filepath.Join(dir, s.platform+".aif")

			out, err := os.Create(path)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			if err := c.AiffFromBlocks(s.platform, blocks, out); err != nil {
				t.Fatalf("AiffFromBlocks: %v", err)
			}

			out.Close()

			in, err := os.Open(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer in.Close()

			decoded, err := c.BlocksFromAiff(s.platform, in)
			if err != nil {
				t.Fatalf("BlocksFromAiff: %v", err)
			}

			sameBlocks(t, decoded, blocks)
		})
	}
}

func TestResampledAnalysis(t *testing.T) {
	opts := DefaultOptions()
	opts.Stream.SampleRate = 22050
	opts.AnalysisRate = 48000

	c := New(opts)

	blocks, err := c.BlocksFromBin("fm7", []byte("RESAMPLED"), block.Options{Name: "RS", Type: block.TypeData})
	if err != nil {
		t.Fatalf("BlocksFromBin: %v", err)
	}

	buf, err := c.PCMFromBlocks("fm7", blocks)
	if err != nil {
		t.Fatalf("PCMFromBlocks: %v", err)
	}

	if buf.Format.SampleRate != 22050 {
		t.Fatalf("sample rate %d", buf.Format.SampleRate)
	}

	decoded, err := c.BlocksFromPCM("fm7", buf)
	if err != nil {
		t.Fatalf("BlocksFromPCM: %v", err)
	}

	sameBlocks(t, decoded, blocks)
}

// wavHeader returns a RIFF/WAVE header with an empty data chunk.
func wavHeader(channels, bits uint16) []byte {
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, fmtChunk{
		FormatTag:      wavFormatPCM,
		NumChannels:    channels,
		SampleRate:     44100,
		AvgBytesPerSec: 44100 * uint32(channels) * uint32(bits) / 8,
		BlockAlign:     channels * bits / 8,
		BitsPerSample:  bits,
	})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	return buf.Bytes()
}

func TestWavRejectsStreamFormat(t *testing.T) {
	c := New(DefaultOptions())

	for _, tc := range []struct {
		name     string
		channels uint16
		bits     uint16
	}{
		{"stereo", 2, 8},
		{"16-bit", 1, 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.BlocksFromWav("fm7", bytes.NewReader(wavHeader(tc.channels, tc.bits)))
			if !errors.Is(err, tapeerr.ErrStreamFormat) {
				t.Fatalf("expected stream format error, got %v", err)
			}
		})
	}
}

func TestBlocksFromPCMRejectsStreamFormat(t *testing.T) {
	c := New(DefaultOptions())

	blocks, err := c.BlocksFromBin("fm7", []byte("STEREO"), block.Options{Name: "ST", Type: block.TypeData})
	if err != nil {
		t.Fatalf("BlocksFromBin: %v", err)
	}

	for _, tc := range []struct {
		name     string
		channels int
		bits     int
	}{
		{"stereo", 2, 8},
		{"16-bit", 1, 16},
		{"stereo 16-bit", 2, 16},
		{"unset depth", 1, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := c.PCMFromBlocks("fm7", blocks)
			if err != nil {
				t.Fatalf("PCMFromBlocks: %v", err)
			}

			buf.Format.NumChannels = tc.channels
			buf.SourceBitDepth = tc.bits

			got, err := c.BlocksFromPCM("fm7", buf)
			if !errors.Is(err, tapeerr.ErrStreamFormat) {
				t.Fatalf("expected stream format error, got %d blocks and %v", len(got), err)
			}
		})
	}
}

func TestFadeInCapture(t *testing.T) {
	c := New(DefaultOptions())

	blocks, err := c.BlocksFromBin("mb6885", []byte{0x86, 0x41, 0xBD, 0xF0, 0x00, 0x39}, block.Options{Name: "FADE", LoadAddr: 0x2000, ExecAddr: 0x2000})
	if err != nil {
		t.Fatalf("BlocksFromBin: %v", err)
	}

	buf, err := c.PCMFromBlocks("mb6885", blocks)
	if err != nil {
		t.Fatalf("PCMFromBlocks: %v", err)
	}

	// The gain climbs from a tenth to full over the silence and most of the
	// leader, well below the detector hysteresis at first.
	ramp := buf.Format.SampleRate * 4 / 10
	for i := range ramp {
		buf.Data[i] = Bias + (buf.Data[i]-Bias)*(ramp+9*i)/(10*ramp)
	}

	decoded, err := c.BlocksFromPCM("mb6885", buf)
	if err != nil {
		t.Fatalf("BlocksFromPCM: %v", err)
	}

	sameBlocks(t, decoded, blocks)
}

func TestWavWithoutData(t *testing.T) {
	header := wavHeader(1, 8)

	_, err := NewWavDecoder(bytes.NewReader(header[:len(header)-8])).FullPCMBuffer()
	if !errors.Is(err, ErrPCMDataNotFound) {
		t.Fatalf("expected missing data, got %v", err)
	}

	_, err = NewWavDecoder(bytes.NewReader([]byte("RIFX\x00\x00\x00\x00WAVE"))).FullPCMBuffer()
	if !errors.Is(err, tapeerr.ErrStreamFormat) {
		t.Fatalf("expected stream format error, got %v", err)
	}
}

func TestWavEncoderPadsOddData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.wav")

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	enc := NewWavEncoder(out, 8000)
	if err := enc.Write(&audio.IntBuffer{Data: []int{0, 128, 300}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(raw) != 44+4 {
		t.Fatalf("file size %d, want 48", len(raw))
	}

	if got := binary.LittleEndian.Uint32(raw[4:8]); got != 40 {
		t.Fatalf("riff size %d, want 40", got)
	}

	if got := binary.LittleEndian.Uint32(raw[40:44]); got != 3 {
		t.Fatalf("data size %d, want 3", got)
	}

	dec := NewWavDecoder(bytes.NewReader(raw))

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}

	if !slices.Equal(buf.Data, []int{0, 128, 255}) || buf.Format.SampleRate != 8000 {
		t.Fatalf("unexpected samples %v at %d Hz", buf.Data, buf.Format.SampleRate)
	}
}

type fixedObject struct {
	start uint16
	image []byte
}

func (o fixedObject) Parse(r io.Reader) (uint16, []byte, error) {
	if _, err := io.ReadAll(r); err != nil {
		return 0, nil, err
	}

	return o.start, o.image, nil
}

func TestBlocksFromObj(t *testing.T) {
	c := New(DefaultOptions())
	obj := fixedObject{start: 0x3000, image: []byte{0x86, 0x41, 0x39}}

	blocks, err := c.BlocksFromObj("mb6885", obj, bytes.NewReader(nil), block.Options{Name: "OBJ"})
	if err != nil {
		t.Fatalf("BlocksFromObj: %v", err)
	}

	f, err := c.Describe("mb6885", blocks)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	if f.LoadAddr != 0x3000 || f.ExecAddr != 0x3000 || f.Size != 3 || f.Name != "OBJ" {
		t.Fatalf("unexpected file %+v", f)
	}

	if _, err := c.BlocksFromObj("mb6885", nil, bytes.NewReader(nil), block.Options{}); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format without parser, got %v", err)
	}
}

func TestUnknownPlatform(t *testing.T) {
	c := New(DefaultOptions())

	if _, err := c.BlocksFromBin("x1", nil, block.Options{}); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}

	if err := c.CasFromBlocks("x1", nil, io.Discard); !errors.Is(err, tapeerr.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestCasStopsAtEOF(t *testing.T) {
	c := New(DefaultOptions())

	blocks, err := c.BlocksFromBin("jr200", []byte("HELLO"), block.Options{Name: "HELLO", LoadAddr: 0x1000})
	if err != nil {
		t.Fatalf("BlocksFromBin: %v", err)
	}

	var cas bytes.Buffer
	if err := c.CasFromBlocks("jr200", blocks, &cas); err != nil {
		t.Fatalf("CasFromBlocks: %v", err)
	}

	n := cas.Len()
	cas.WriteString("trailing garbage")

	parsed, err := c.BlocksFromCas("jr200", &cas)
	if err != nil {
		t.Fatalf("BlocksFromCas: %v", err)
	}

	sameBlocks(t, parsed, blocks)

	var again bytes.Buffer
	if err := c.CasFromBlocks("jr200", append(parsed, parsed...), &again); err != nil {
		t.Fatalf("CasFromBlocks: %v", err)
	}

	if again.Len() != n {
		t.Fatalf("wrote %d bytes past the EOF block", again.Len()-n)
	}
}

func ExampleCodec_Describe() {
	c := New(DefaultOptions())

	blocks, err := c.BlocksFromBin("jr200", []byte("HELLO"), block.Options{Name: "HELLO", LoadAddr: 0x1000})
	if err != nil {
		panic(err)
	}

	f, err := c.Describe("jr200", blocks)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s %s at 0x%04X, %d bytes, %d blocks\n", f.Name, f.TypeName, f.LoadAddr, f.Size, len(f.Blocks))
	// Output: HELLO binary at 0x1000, 5 bytes, 3 blocks
}
