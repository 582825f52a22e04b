package cliconfig

import "os"

// ApplyEnvConfig applies CASTOOL_* environment variables. They override the
// config file and are overridden by flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("platform", os.Getenv("CASTOOL_PLATFORM"), &cfg.Platform)
	s.setBoolFromString("verbose", os.Getenv("CASTOOL_VERBOSE"), &cfg.Verbose)

	return s.setIntFromString("rate", os.Getenv("CASTOOL_SAMPLE_RATE"), &cfg.SampleRate)
}
