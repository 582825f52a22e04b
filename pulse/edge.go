package pulse

// Direction is the polarity change of an edge.
type Direction uint8

const (
	Falling Direction = iota
	Rising
)

func (d Direction) String() string {
	if d == Rising {
		return "rising"
	}

	return "falling"
}

// Edge is a polarity change. Width is the duration in seconds of the level run
// the edge terminates, i.e. the pulse that just ended.
type Edge struct {
	// Index is the sample index of the first sample at the new level.
	Index int
	// Time is the timestamp of the edge in seconds.
	Time  float64
	Dir   Direction
	Width float64
}

// Detector turns amplitude samples into a boolean level sequence.
type Detector interface {
	Levels(samples []float64) []bool
}

// ThresholdDetector classifies samples against a fixed cutoff placed at
// min + K*(max-min).
type ThresholdDetector struct {
	K float64
}

// Levels implements Detector.
func (d ThresholdDetector) Levels(samples []float64) []bool {
	levels := make([]bool, len(samples))
	if len(samples) == 0 {
		return levels
	}

	lo, hi := bounds(samples)
	if hi == lo {
		return levels
	}

	threshold := lo + d.K*(hi-lo)
	for i, s := range samples {
		levels[i] = s > threshold
	}

	return levels
}

// GradientDetector follows the signal with hysteresis: the level flips once the
// signal has moved more than Factor*(max-min) away from the extreme reached
// since the previous flip. Unlike a fixed cutoff it keeps working while the
// amplitude envelope fades in or drifts.
type GradientDetector struct {
	Factor float64
}

// Levels implements Detector.
func (d GradientDetector) Levels(samples []float64) []bool {
	levels := make([]bool, len(samples))
	if len(samples) == 0 {
		return levels
	}

	lo, hi := bounds(samples)
	delta := d.Factor * (hi - lo)
	if delta <= 0 {
		return levels
	}

	var high bool

	extreme := samples[0]
	for i, s := range samples {
		if high {
			if s > extreme {
				extreme = s
			} else if extreme-s > delta {
				high = false
				extreme = s
			}
		} else {
			if s < extreme {
				extreme = s
			} else if s-extreme > delta {
				high = true
				extreme = s
			}
		}

		levels[i] = high
	}

	return levels
}

// Edges converts a level sequence sampled at rate Hz into edges.
func Edges(levels []bool, rate float64) []Edge {
	if len(levels) < 2 || rate <= 0 {
		return nil
	}

	edges := make([]Edge, 0, len(levels)/8)

	var last float64
	for i := 1; i < len(levels); i++ {
		if levels[i] == levels[i-1] {
			continue
		}

		t := float64(i) / rate
		dir := Falling
		if levels[i] {
			dir = Rising
		}

		edges = append(edges, Edge{Index: i, Time: t, Dir: dir, Width: t - last})
		last = t
	}

	return edges
}

// DetectEdges runs det over samples and returns the resulting edges.
func DetectEdges(samples []float64, rate float64, det Detector) []Edge {
	return Edges(det.Levels(samples), rate)
}

// EdgesFromWidths builds the edge sequence an ideal detector would report for
// a train of pulses with the given widths, starting with a high pulse.
func EdgesFromWidths(widths []float64) []Edge {
	edges := make([]Edge, len(widths))

	var t float64
	for i, w := range widths {
		t += w

		dir := Falling
		if i%2 == 1 {
			dir = Rising
		}

		edges[i] = Edge{Index: i, Time: t, Dir: dir, Width: w}
	}

	return edges
}

func bounds(samples []float64) (lo, hi float64) {
	lo, hi = samples[0], samples[0]
	for _, s := range samples[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}

	return lo, hi
}
