package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/cassette"
	"github.com/cwbudde/cassette/block"
)

// Config holds CLI configuration for castool.
type Config struct {
	Platform string

	Name     string
	Type     string
	LoadAddr string
	ExecAddr string
	Baud     int
	ASCII    bool

	SampleRate   int
	Amplitude    int
	Silence      time.Duration
	AnalysisRate int

	Output  string
	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Type:       block.TypeBinary.String(),
		LoadAddr:   "0",
		ExecAddr:   "0",
		SampleRate: cassette.DefaultSampleRate,
		Amplitude:  cassette.DefaultAmplitude,
		Silence:    cassette.DefaultSilence,
		Output:     "yaml",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}

	c.Platform = strings.ToLower(c.Platform)

	if _, err := fileType(c.Type); err != nil {
		return err
	}

	if _, err := parseAddr("load", c.LoadAddr); err != nil {
		return err
	}

	if _, err := parseAddr("exec", c.ExecAddr); err != nil {
		return err
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}

	if c.Amplitude <= 0 || c.Amplitude >= cassette.Bias {
		return fmt.Errorf("amplitude must be in 1..%d", cassette.Bias-1)
	}

	if c.AnalysisRate < 0 {
		return fmt.Errorf("analysis rate must not be negative")
	}

	switch c.Output {
	case "yaml", "json":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output)
	}

	return nil
}

func fileType(s string) (block.FileType, error) {
	for _, t := range []block.FileType{block.TypeBinary, block.TypeBasic, block.TypeData} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown file type %q", s)
}

func parseAddr(flag, s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s address: %w", flag, err)
	}

	return uint16(v), nil
}

// BlockOptions returns the metadata used when raw bytes become blocks. The
// config must have been validated.
func (c *Config) BlockOptions() block.Options {
	t, _ := fileType(c.Type)
	load, _ := parseAddr("load", c.LoadAddr)
	exec, _ := parseAddr("exec", c.ExecAddr)

	return block.Options{
		Name:     c.Name,
		Type:     t,
		LoadAddr: load,
		ExecAddr: exec,
		Baud:     c.Baud,
		ASCII:    c.ASCII,
	}
}

// CodecOptions returns the codec configuration logging to log.
func (c *Config) CodecOptions(log zerolog.Logger) cassette.Options {
	opts := cassette.DefaultOptions()
	opts.Logger = log
	opts.Stream = cassette.PCMStream{SampleRate: c.SampleRate, Amplitude: c.Amplitude, Silence: c.Silence}
	opts.AnalysisRate = c.AnalysisRate

	return opts
}

// configSetter applies configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a positive int from an environment value.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
