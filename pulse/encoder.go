package pulse

type pattern struct {
	width float64
	count int
}

// Encoder produces pulse widths for a Config. It is the exact inverse of a
// Decoder built from the same Config and, like it, immutable.
type Encoder struct {
	cfg Config
	// table is indexed by [inverted][bit].
	table [2][2]pattern
}

// NewEncoder validates cfg the same way NewDecoder does.
func NewEncoder(cfg Config) (*Encoder, error) {
	dec, err := NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	return dec.Encoder(), nil
}

// Encoder returns the encoder matching d.
func (d *Decoder) Encoder() *Encoder {
	mark := pattern{width: halfCycle(d.cfg.MarkFreq), count: d.cfg.MarkPulses}
	space := pattern{width: halfCycle(d.cfg.SpaceFreq), count: d.cfg.SpacePulses}

	return &Encoder{
		cfg: d.Config(),
		table: [2][2]pattern{
			{space, mark},
			{mark, space},
		},
	}
}

func (e *Encoder) pattern(b uint8) pattern {
	inv := 0
	if e.cfg.Invert {
		inv = 1
	}

	return e.table[inv][b&1]
}

// Bit appends the pulses of bit b to dst.
func (e *Encoder) Bit(dst []float64, b uint8) []float64 {
	p := e.pattern(b)
	for range p.count {
		dst = append(dst, p.width)
	}

	return dst
}

// Byte appends a framed byte to dst.
func (e *Encoder) Byte(dst []float64, v byte) []float64 {
	for _, b := range e.cfg.StartBits {
		dst = e.Bit(dst, b)
	}

	for i := range 8 {
		shift := i
		if e.cfg.Order == MSBFirst {
			shift = 7 - i
		}

		dst = e.Bit(dst, (v>>shift)&1)
	}

	for _, b := range e.cfg.StopBits {
		dst = e.Bit(dst, b)
	}

	return dst
}

// Bytes appends framed bytes to dst.
func (e *Encoder) Bytes(dst []float64, p []byte) []float64 {
	for _, v := range p {
		dst = e.Byte(dst, v)
	}

	return dst
}

// Leader appends n idle one bits.
func (e *Encoder) Leader(dst []float64, n int) []float64 {
	for range n {
		dst = e.Bit(dst, 1)
	}

	return dst
}
