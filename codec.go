package cassette

import (
	"fmt"
	"io"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/tapeerr"
)

// Codec converts between raw program bytes, tape blocks and audio for the
// platforms of its registry. A Codec holds no per-file state and may be
// reused.
type Codec struct {
	opts Options
}

// New returns a Codec configured by opts.
func New(opts Options) *Codec {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}

	opts.Stream = opts.Stream.withDefaults()

	return &Codec{opts: opts}
}

// Options returns the configuration of the codec.
func (c *Codec) Options() Options {
	return c.opts
}

func (c *Codec) protocol(platform string) (block.Protocol, error) {
	return c.opts.Registry.Lookup(platform)
}

// BlocksFromBin chunks raw program bytes into the block sequence of a save.
func (c *Codec) BlocksFromBin(platform string, data []byte, meta block.Options) ([]block.Block, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return nil, err
	}

	blocks, err := p.FromBin(data, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: blocks from bin: %w", platform, err)
	}

	return blocks, nil
}

// BinFromBlocks concatenates the payload of a block sequence.
func (c *Codec) BinFromBlocks(platform string, blocks []block.Block) ([]byte, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return nil, err
	}

	data, err := p.ToBin(blocks)
	if err != nil {
		return nil, fmt.Errorf("%s: bin from blocks: %w", platform, err)
	}

	return data, nil
}

// BlocksFromCas reads the exact block bytes of a cas image.
func (c *Codec) BlocksFromCas(platform string, r io.Reader) ([]block.Block, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read cas image: %w", platform, err)
	}

	blocks, err := p.ParseCas(data)
	if err != nil {
		return nil, fmt.Errorf("%s: blocks from cas: %w", platform, err)
	}

	c.opts.Logger.Debug().Str("platform", platform).Int("blocks", len(blocks)).Msg("cas image parsed")

	return blocks, nil
}

// CasFromBlocks writes the exact bytes of a block sequence up to its EOF
// block.
func (c *Codec) CasFromBlocks(platform string, blocks []block.Block, w io.Writer) error {
	if _, err := c.protocol(platform); err != nil {
		return err
	}

	data, err := block.Cas(platform+": cas from blocks", blocks)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%s: failed to write cas image: %w", platform, err)
	}

	return nil
}

// ObjectParser reads an assembler object file into a contiguous image.
type ObjectParser interface {
	Parse(r io.Reader) (start uint16, image []byte, err error)
}

// BlocksFromObj builds the block sequence of a binary save from an object
// file. The image is loaded at the start address of the object; the
// execution address defaults to it as well.
func (c *Codec) BlocksFromObj(platform string, parser ObjectParser, r io.Reader, meta block.Options) ([]block.Block, error) {
	if parser == nil {
		return nil, tapeerr.Unsupported(platform+": blocks from obj", "no object parser")
	}

	start, image, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse object file: %w", platform, err)
	}

	meta.LoadAddr = start
	if meta.ExecAddr == 0 {
		meta.ExecAddr = start
	}

	return c.BlocksFromBin(platform, image, meta)
}

// Describe returns the file metadata of a block sequence.
func (c *Codec) Describe(platform string, blocks []block.Block) (block.File, error) {
	p, err := c.protocol(platform)
	if err != nil {
		return block.File{}, err
	}

	f, err := p.Describe(blocks)
	if err != nil {
		return block.File{}, fmt.Errorf("%s: describe: %w", platform, err)
	}

	return f, nil
}
