package pulse

import (
	"errors"

	"github.com/cwbudde/cassette/tapeerr"
)

const (
	opScan = "pulse: scan"
	opRead = "pulse: read"
)

func notFound(index int, format string, args ...any) error {
	return tapeerr.NotFound(opScan, index, format, args...)
}

// Reader walks an edge sequence with a Decoder. The edges are never modified,
// so several Readers (with different decoders, for formats that switch baud
// mid-file) can share them.
type Reader struct {
	dec   *Decoder
	edges []Edge
	pos   int
}

// NewReader returns a Reader positioned at edge index pos.
func NewReader(dec *Decoder, edges []Edge, pos int) *Reader {
	return &Reader{dec: dec, edges: edges, pos: pos}
}

// Decoder returns the decoder used by r.
func (r *Reader) Decoder() *Decoder {
	return r.dec
}

// Pos returns the index of the next edge to consume.
func (r *Reader) Pos() int {
	return r.pos
}

// Seek moves the reader to edge index pos.
func (r *Reader) Seek(pos int) {
	r.pos = pos
}

// Len returns the total number of edges.
func (r *Reader) Len() int {
	return len(r.edges)
}

func (r *Reader) framing(index int, format string, args ...any) error {
	var t float64
	if index >= 0 && index < len(r.edges) {
		t = r.edges[index].Time
	} else if len(r.edges) > 0 {
		t = r.edges[len(r.edges)-1].Time
	}

	return tapeerr.Framing(opRead, index, t, format, args...)
}

// ReadBit consumes one symbol worth of pulses.
func (r *Reader) ReadBit() (uint8, error) {
	if r.pos >= len(r.edges) {
		return 0, r.framing(r.pos, "unexpected end of pulses")
	}

	first := r.edges[r.pos]

	sym := r.dec.Classify(first)
	if sym == Other {
		return 0, r.framing(r.pos, "unrecognized pulse width %.1fus", first.Width*1e6)
	}

	n := r.dec.Pulses(sym)
	for k := 1; k < n; k++ {
		i := r.pos + k
		if i >= len(r.edges) {
			return 0, r.framing(i, "unexpected end of pulses inside %s symbol", sym)
		}

		if got := r.dec.Classify(r.edges[i]); got != sym {
			return 0, r.framing(i, "%s pulse inside %s symbol (%d of %d)", got, sym, k+1, n)
		}
	}

	bit, _ := r.dec.BitFor(sym)
	r.pos += n

	return bit, nil
}

// ReadBits consumes n symbols.
func (r *Reader) ReadBits(n int) ([]uint8, error) {
	bits := make([]uint8, 0, n)
	for range n {
		b, err := r.ReadBit()
		if err != nil {
			return bits, err
		}

		bits = append(bits, b)
	}

	return bits, nil
}

// ReadByte consumes the start pattern, eight data bits and the stop pattern.
func (r *Reader) ReadByte() (byte, error) {
	start := r.pos

	for i, want := range r.dec.cfg.StartBits {
		at := r.pos

		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}

		if b != want {
			return 0, r.framing(at, "start bit %d is %d, want %d (byte at %d)", i, b, want, start)
		}
	}

	bits, err := r.ReadBits(8)
	if err != nil {
		return 0, err
	}

	var v byte
	for i, b := range bits {
		if r.dec.cfg.Order == MSBFirst {
			v |= b << (7 - i)
		} else {
			v |= b << i
		}
	}

	for i, want := range r.dec.cfg.StopBits {
		at := r.pos

		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}

		if b != want {
			return 0, r.framing(at, "stop bit %d is %d, want %d (byte at %d)", i, b, want, start)
		}
	}

	return v, nil
}

// ReadBytes consumes n framed bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for range n {
		b, err := r.ReadByte()
		if err != nil {
			return out, err
		}

		out = append(out, b)
	}

	return out, nil
}

// Align searches for a leader of at least run idle pulses starting at the
// current position and leaves the reader on the first pulse of the following
// start bit. Pulses that are neither idle nor a start bit restart the search.
func (r *Reader) Align(run int) error {
	idle := r.dec.Idle()

	startSym := r.dec.SymbolFor(0)
	if len(r.dec.cfg.StartBits) > 0 {
		startSym = r.dec.SymbolFor(r.dec.cfg.StartBits[0])
	}

	from := r.pos
	for {
		i, err := ScanForRun(r.dec, r.edges, from, idle, run)
		if err != nil {
			return err
		}

		j := i + run
		for j < len(r.edges) && r.dec.Classify(r.edges[j]) == idle {
			j++
		}

		if j >= len(r.edges) {
			return notFound(i, "leader runs to the end of input")
		}

		if r.dec.Classify(r.edges[j]) == startSym {
			r.pos = j
			return nil
		}

		from = j + 1
	}
}

// Sync acquires a leader and reads bytes until one of syncs shows up. The sync
// byte is returned and the reader is left at its start bit, so the caller can
// parse the block from its first byte. Bytes equal to leader are skipped.
// A framing error inside the leader is noise and the search resumes past the
// failing position. Any other byte after the leader is a terminal
// MagicMismatch: the block is damaged and must not be skipped.
func (r *Reader) Sync(run int, leader byte, syncs ...byte) (byte, error) {
	want := leader
	if len(syncs) > 0 {
		want = syncs[0]
	}

	for {
		if err := r.Align(run); err != nil {
			return 0, err
		}

		begin := r.pos

		for {
			at := r.pos

			b, err := r.ReadByte()
			if err != nil {
				var terr *tapeerr.Error
				if !errors.As(err, &terr) || terr.Kind != tapeerr.KindFraming {
					return 0, err
				}

				r.pos = max(r.pos, begin+1)

				break
			}

			if contains(syncs, b) {
				r.pos = at
				return b, nil
			}

			if b != leader {
				return 0, tapeerr.Magic(opScan, at, want, b)
			}
		}
	}
}

func contains(set []byte, b byte) bool {
	for _, s := range set {
		if s == b {
			return true
		}
	}

	return false
}
