package cassette

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

const wavFormatPCM = 1

var (
	// ErrPCMDataNotFound is returned when a WAV file has no data chunk.
	ErrPCMDataNotFound = errors.New("PCM data not found")
	errFmtChunkMissing = errors.New("data chunk before fmt chunk")
	errNilEncoder      = errors.New("nil encoder")
	errNilWriter       = errors.New("nil writer")
)

// fmtChunk is the PCM part of a WAVE fmt chunk.
type fmtChunk struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
}

// WavDecoder reads 8-bit unsigned mono PCM from a WAV container.
type WavDecoder struct {
	r      io.Reader
	parser *riff.Parser

	NumChans   uint16
	BitDepth   uint16
	SampleRate uint32
	FormatTag  uint16
	// PCMSize is the byte length of the data chunk, without padding.
	PCMSize int

	hasFmt bool
}

// NewWavDecoder creates a decoder for the passed wav reader.
func NewWavDecoder(r io.Reader) *WavDecoder {
	return &WavDecoder{r: r, parser: riff.New(r)}
}

func (d *WavDecoder) readHeader() error {
	id, size, err := d.parser.IDnSize()
	if err != nil {
		return fmt.Errorf("failed to read chunk ID and size: %w", err)
	}

	if id != riff.RiffID {
		return tapeerr.StreamFormat("wav: decode", "%s - %v", id, riff.ErrFmtNotSupported)
	}

	d.parser.ID, d.parser.Size = id, size

	if err := binary.Read(d.r, binary.BigEndian, &d.parser.Format); err != nil {
		return fmt.Errorf("failed to read format: %w", err)
	}

	if d.parser.Format != riff.WavFormatID {
		return tapeerr.StreamFormat("wav: decode", "%s - %v", d.parser.Format, riff.ErrFmtNotSupported)
	}

	return nil
}

// nextChunk returns the next chunk with its declared size. The pad byte of
// odd sized chunks is skipped by skipChunk.
func (d *WavDecoder) nextChunk() (*riff.Chunk, error) {
	id, size, err := d.parser.IDnSize()
	if err != nil {
		return nil, err
	}

	return &riff.Chunk{ID: id, Size: int(size), R: io.LimitReader(d.r, int64(size))}, nil
}

func (d *WavDecoder) skipChunk(chunk *riff.Chunk) error {
	if _, err := io.Copy(io.Discard, chunk.R); err != nil {
		return fmt.Errorf("failed to skip %s chunk: %w", chunk.ID, err)
	}

	if chunk.Size%2 == 1 {
		var pad [1]byte
		if _, err := io.ReadFull(d.r, pad[:]); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to skip pad byte: %w", err)
		}
	}

	return nil
}

func (d *WavDecoder) readFmt(chunk *riff.Chunk) error {
	var f fmtChunk
	if err := chunk.ReadLE(&f); err != nil {
		return fmt.Errorf("failed to read fmt chunk: %w", err)
	}

	d.FormatTag = f.FormatTag
	d.NumChans = f.NumChannels
	d.SampleRate = f.SampleRate
	d.BitDepth = f.BitsPerSample
	d.hasFmt = true

	return d.skipChunk(chunk)
}

// FwdToPCM reads the container up to the start of the data chunk and
// returns it. The fmt chunk must precede it.
func (d *WavDecoder) FwdToPCM() (*riff.Chunk, error) {
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	for {
		chunk, err := d.nextChunk()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrPCMDataNotFound
			}

			return nil, fmt.Errorf("error reading chunk header - %w", err)
		}

		switch chunk.ID {
		case riff.FmtID:
			if err := d.readFmt(chunk); err != nil {
				return nil, err
			}
		case riff.DataFormatID:
			if !d.hasFmt {
				return nil, tapeerr.StreamFormat("wav: decode", "%v", errFmtChunkMissing)
			}

			d.PCMSize = chunk.Size

			return chunk, nil
		default:
			if err := d.skipChunk(chunk); err != nil {
				return nil, err
			}
		}
	}
}

// FullPCMBuffer decodes the whole data chunk. Formats other than 8-bit mono
// PCM are rejected before any sample is read.
func (d *WavDecoder) FullPCMBuffer() (*audio.IntBuffer, error) {
	chunk, err := d.FwdToPCM()
	if err != nil {
		return nil, err
	}

	if d.FormatTag != wavFormatPCM {
		return nil, tapeerr.StreamFormat("wav: decode", "audio format %d, want PCM", d.FormatTag)
	}

	if err := checkPCM("wav: decode", int(d.NumChans), int(d.BitDepth), int(d.SampleRate)); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(chunk.R)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	data := make([]int, len(raw))
	for i, v := range raw {
		data[i] = int(v)
	}

	return &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(d.SampleRate)},
		SourceBitDepth: 8,
	}, nil
}

// WavEncoder writes 8-bit unsigned mono PCM to a WAV container. Sizes are
// patched on Close, so the writer must be seekable.
type WavEncoder struct {
	w          io.WriteSeeker
	SampleRate int

	// WrittenBytes is the number of bytes written to w.
	WrittenBytes    int
	frames          int
	pcmChunkSizePos int
	wroteHeader     bool
}

// NewWavEncoder creates an encoder writing to w.
func NewWavEncoder(w io.WriteSeeker, sampleRate int) *WavEncoder {
	return &WavEncoder{w: w, SampleRate: sampleRate}
}

// AddLE serializes and adds the passed value using little endian.
func (e *WavEncoder) AddLE(src any) error {
	e.WrittenBytes += binary.Size(src)

	if err := binary.Write(e.w, binary.LittleEndian, src); err != nil {
		return fmt.Errorf("failed to write little-endian data: %w", err)
	}

	return nil
}

func (e *WavEncoder) writeHeader() error {
	if e == nil {
		return errNilEncoder
	}

	if e.w == nil {
		return errNilWriter
	}

	e.wroteHeader = true

	f := fmtChunk{
		FormatTag:      wavFormatPCM,
		NumChannels:    1,
		SampleRate:     uint32(e.SampleRate),
		AvgBytesPerSec: uint32(e.SampleRate),
		BlockAlign:     1,
		BitsPerSample:  8,
	}

	for _, v := range []any{riff.RiffID, uint32(0), riff.WavFormatID, riff.FmtID, uint32(binary.Size(f)), f, riff.DataFormatID} {
		if err := e.AddLE(v); err != nil {
			return fmt.Errorf("error encoding header: %w", err)
		}
	}

	e.pcmChunkSizePos = e.WrittenBytes

	return e.AddLE(uint32(0))
}

// Write appends the samples of buf, clamped to 0..255.
func (e *WavEncoder) Write(buf *audio.IntBuffer) error {
	if !e.wroteHeader {
		if err := e.writeHeader(); err != nil {
			return err
		}
	}

	if buf == nil {
		return nil
	}

	raw := make([]byte, len(buf.Data))
	for i, v := range buf.Data {
		raw[i] = byte(max(0, min(0xFF, v)))
	}

	n, err := e.w.Write(raw)
	e.WrittenBytes += n
	e.frames += n

	if err != nil {
		return fmt.Errorf("failed to write PCM data: %w", err)
	}

	return nil
}

// Close pads the data chunk to an even length and patches the RIFF and data
// chunk sizes.
func (e *WavEncoder) Close() error {
	if e == nil || e.w == nil {
		return nil
	}

	if !e.wroteHeader {
		if err := e.writeHeader(); err != nil {
			return err
		}
	}

	if e.frames%2 == 1 {
		if err := e.AddLE(uint8(0)); err != nil {
			return err
		}
	}

	if _, err := e.w.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to file size position: %w", err)
	}

	if err := e.AddLE(uint32(e.WrittenBytes - 8)); err != nil {
		return fmt.Errorf("%w when writing the total written bytes", err)
	}

	if _, err := e.w.Seek(int64(e.pcmChunkSizePos), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to PCM chunk size position: %w", err)
	}

	if err := e.AddLE(uint32(e.frames)); err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	if _, err := e.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if f, ok := e.w.(*os.File); ok {
		return f.Sync()
	}

	return nil
}

// BlocksFromWav decodes a save from an 8-bit mono WAV capture.
func (c *Codec) BlocksFromWav(platform string, r io.Reader) ([]block.Block, error) {
	if _, err := c.protocol(platform); err != nil {
		return nil, err
	}

	dec := NewWavDecoder(r)

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", platform, err)
	}

	c.opts.Logger.Debug().Uint32("rate", dec.SampleRate).Int("bytes", dec.PCMSize).Msg("wav data chunk")

	return c.BlocksFromPCM(platform, buf)
}

// WavFromBlocks writes the signal of a block sequence as an 8-bit mono WAV
// file.
func (c *Codec) WavFromBlocks(platform string, blocks []block.Block, w io.WriteSeeker) error {
	buf, err := c.PCMFromBlocks(platform, blocks)
	if err != nil {
		return err
	}

	enc := NewWavEncoder(w, buf.Format.SampleRate)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("%s: %w", platform, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("%s: %w", platform, err)
	}

	return nil
}
