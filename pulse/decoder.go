package pulse

import (
	"errors"
	"fmt"
)

// Symbol is the classification of a single pulse.
type Symbol uint8

const (
	// Other is a pulse that fits neither window; the edge width tells how
	// long it was.
	Other Symbol = iota
	Mark
	Space
)

func (s Symbol) String() string {
	switch s {
	case Mark:
		return "mark"
	case Space:
		return "space"
	default:
		return "other"
	}
}

// BitOrder selects the order data bits are sent in.
type BitOrder uint8

const (
	LSBFirst BitOrder = iota
	MSBFirst
)

// Tolerance describes the classification windows. Low and High are fractions
// of the nominal width of the short and long symbol respectively; Split places
// the boundary between both symbols as a fraction of the gap between their
// nominal widths.
//
// The short symbol owns [short*(1-Low), split) and the long symbol owns
// [split, long*(1+High)). A Split above 0.5 widens the short window.
type Tolerance struct {
	Low   float64
	Split float64
	High  float64
}

// DefaultTolerance favours the short symbol, which is the leader symbol on all
// supported machines.
var DefaultTolerance = Tolerance{Low: 0.5, Split: 0.55, High: 0.75}

// Config is the bit level description of a tape format. Frequencies are those
// of the square wave; one pulse is a half cycle of 1/(2*freq) seconds.
type Config struct {
	MarkFreq    float64
	MarkPulses  int
	SpaceFreq   float64
	SpacePulses int

	Order BitOrder
	// Invert maps bit 1 to Space instead of Mark.
	Invert bool

	StartBits []uint8
	StopBits  []uint8

	Tolerance Tolerance
}

var (
	errBadFrequency  = errors.New("pulse: frequencies must be positive and distinct")
	errBadPulseCount = errors.New("pulse: pulses per symbol must be positive")
	errBadTolerance  = errors.New("pulse: tolerance windows overlap or are empty")
	errBadBit        = errors.New("pulse: start/stop bits must be 0 or 1")
)

type window struct {
	lo, hi float64
}

func (w window) contains(width float64) bool {
	return width >= w.lo && width < w.hi
}

// Decoder classifies pulses for one Config. It is immutable and may be shared
// by any number of Readers.
type Decoder struct {
	cfg    Config
	mark   window
	space  window
	symbol [2]Symbol
}

// NewDecoder validates cfg and precomputes the classification windows.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.MarkFreq <= 0 || cfg.SpaceFreq <= 0 || cfg.MarkFreq == cfg.SpaceFreq {
		return nil, errBadFrequency
	}

	if cfg.MarkPulses <= 0 || cfg.SpacePulses <= 0 {
		return nil, errBadPulseCount
	}

	for _, b := range append(append([]uint8(nil), cfg.StartBits...), cfg.StopBits...) {
		if b > 1 {
			return nil, errBadBit
		}
	}

	if cfg.Tolerance == (Tolerance{}) {
		cfg.Tolerance = DefaultTolerance
	}

	cfg.StartBits = append([]uint8(nil), cfg.StartBits...)
	cfg.StopBits = append([]uint8(nil), cfg.StopBits...)

	markWidth := halfCycle(cfg.MarkFreq)
	spaceWidth := halfCycle(cfg.SpaceFreq)
	short, long := min(markWidth, spaceWidth), max(markWidth, spaceWidth)

	tol := cfg.Tolerance
	split := short + (long-short)*tol.Split
	shortWin := window{lo: short * (1 - tol.Low), hi: split}
	longWin := window{lo: split, hi: long * (1 + tol.High)}

	if shortWin.lo >= shortWin.hi || longWin.lo >= longWin.hi || tol.Split <= 0 || tol.Split >= 1 {
		return nil, fmt.Errorf("%w: %+v", errBadTolerance, tol)
	}

	d := &Decoder{cfg: cfg}
	if markWidth < spaceWidth {
		d.mark, d.space = shortWin, longWin
	} else {
		d.mark, d.space = longWin, shortWin
	}

	d.symbol = [2]Symbol{Space, Mark}
	if cfg.Invert {
		d.symbol = [2]Symbol{Mark, Space}
	}

	return d, nil
}

// MustDecoder is like NewDecoder but panics on an invalid Config. It is meant
// for package level platform tables.
func MustDecoder(cfg Config) *Decoder {
	d, err := NewDecoder(cfg)
	if err != nil {
		panic(err)
	}

	return d
}

// Config returns a copy of the decoder configuration.
func (d *Decoder) Config() Config {
	cfg := d.cfg
	cfg.StartBits = append([]uint8(nil), d.cfg.StartBits...)
	cfg.StopBits = append([]uint8(nil), d.cfg.StopBits...)

	return cfg
}

// Classify returns the symbol of the pulse ending at e.
func (d *Decoder) Classify(e Edge) Symbol {
	return d.ClassifyWidth(e.Width)
}

// ClassifyWidth classifies a pulse width in seconds.
func (d *Decoder) ClassifyWidth(width float64) Symbol {
	switch {
	case d.mark.contains(width):
		return Mark
	case d.space.contains(width):
		return Space
	default:
		return Other
	}
}

// Pulses returns the number of pulses making up one symbol.
func (d *Decoder) Pulses(s Symbol) int {
	switch s {
	case Mark:
		return d.cfg.MarkPulses
	case Space:
		return d.cfg.SpacePulses
	default:
		return 0
	}
}

// SymbolFor returns the symbol that carries bit b.
func (d *Decoder) SymbolFor(b uint8) Symbol {
	return d.symbol[b&1]
}

// BitFor returns the bit carried by s.
func (d *Decoder) BitFor(s Symbol) (uint8, bool) {
	switch s {
	case d.symbol[1]:
		return 1, true
	case d.symbol[0]:
		return 0, true
	default:
		return 0, false
	}
}

// Idle is the symbol of the one bits a leader is made of.
func (d *Decoder) Idle() Symbol {
	return d.SymbolFor(1)
}

func halfCycle(freq float64) float64 {
	return 1 / (2 * freq)
}

// ScanForRun returns the index of the first edge at or after start that begins
// a run of count consecutive pulses classified as sym. It fails with a
// retryable PatternNotFound error when edges are exhausted.
func ScanForRun(d *Decoder, edges []Edge, start int, sym Symbol, count int) (int, error) {
	run := 0
	for i := max(start, 0); i < len(edges); i++ {
		if d.Classify(edges[i]) != sym {
			run = 0
			continue
		}

		run++
		if run == count {
			return i - count + 1, nil
		}
	}

	return -1, notFound(start, "no run of %d %s pulses", count, sym)
}
