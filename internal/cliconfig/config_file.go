package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Platform     string `toml:"platform"`
	Name         string `toml:"name"`
	Type         string `toml:"type"`
	LoadAddr     string `toml:"load_addr"`
	ExecAddr     string `toml:"exec_addr"`
	Baud         int    `toml:"baud"`
	ASCII        *bool  `toml:"ascii"`
	SampleRate   int    `toml:"sample_rate"`
	Amplitude    int    `toml:"amplitude"`
	Silence      string `toml:"silence"`
	AnalysisRate int    `toml:"analysis_rate"`
	Output       string `toml:"output"`
	Verbose      *bool  `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.castool/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".castool", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("platform", fc.Platform, &cfg.Platform)
	s.setString("name", fc.Name, &cfg.Name)
	s.setString("type", fc.Type, &cfg.Type)
	s.setString("load", fc.LoadAddr, &cfg.LoadAddr)
	s.setString("exec", fc.ExecAddr, &cfg.ExecAddr)
	s.setString("output", fc.Output, &cfg.Output)

	if err := s.setDuration("silence", fc.Silence, &cfg.Silence); err != nil {
		return err
	}

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("rate", fc.SampleRate, &cfg.SampleRate)
	s.setInt("amplitude", fc.Amplitude, &cfg.Amplitude)
	s.setInt("analysis-rate", fc.AnalysisRate, &cfg.AnalysisRate)

	s.setBool("ascii", fc.ASCII, &cfg.ASCII)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
