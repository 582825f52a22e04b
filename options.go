package cassette

import "github.com/rs/zerolog"

// Options configures a Codec.
type Options struct {
	// Registry resolves platform identifiers. Nil means DefaultRegistry().
	Registry *Registry
	// Logger receives debug output of the decoders.
	Logger zerolog.Logger
	// Stream controls audio synthesis.
	Stream PCMStream
	// AnalysisRate resamples captured audio to this rate before edge
	// detection. 0 analyses the audio at its own rate.
	AnalysisRate int
}

// DefaultOptions returns the options used by New when none are given.
func DefaultOptions() Options {
	return Options{
		Registry: DefaultRegistry(),
		Logger:   zerolog.Nop(),
		Stream:   DefaultPCMStream(),
	}
}
