package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for identifiers (so hex forms
// like "0x0CC" work) and for durations, to stay TOML friendly.
type FileConfig struct {
	Raw struct {
		TxID string `toml:"tx-id"`
	} `toml:"raw"`
	Echo struct {
		WatchID string `toml:"watch-id"`
		TxID    string `toml:"tx-id"`
	} `toml:"echo"`
	Cyclic struct {
		BaseID   string `toml:"base-id"`
		Frames   int    `toml:"frames"`
		Length   int    `toml:"length"`
		Interval string `toml:"interval"`
	} `toml:"cyclic"`
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

// DefaultConfigPath returns the default configuration file path,
// ~/.socketcan-demo/config.toml, if the home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".socketcan-demo", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setID("tx-id", fc.Raw.TxID, &cfg.RawTxID); err != nil {
		return err
	}
	if err := s.setID("watch-id", fc.Echo.WatchID, &cfg.WatchID); err != nil {
		return err
	}
	if err := s.setID("tx-id", fc.Echo.TxID, &cfg.EchoTxID); err != nil {
		return err
	}
	if err := s.setID("base-id", fc.Cyclic.BaseID, &cfg.CyclicBaseID); err != nil {
		return err
	}
	s.setInt("frames", fc.Cyclic.Frames, &cfg.CyclicFrames)
	s.setInt("length", fc.Cyclic.Length, &cfg.CyclicLength)
	if err := s.setDuration("interval", fc.Cyclic.Interval, &cfg.CyclicInterval); err != nil {
		return err
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
