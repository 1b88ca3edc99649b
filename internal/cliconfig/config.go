// Package cliconfig holds the configuration shared by the demo binaries:
// defaults matching the original constants, a TOML file layer, environment
// overrides, flag precedence, validation, and the process-wide logger.
package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jmcglad/socketcan-demo/internal/bcm"
	"github.com/jmcglad/socketcan-demo/internal/can"
)

// Defaults are the identifiers and timing of the original demo programs.
const (
	DefaultRawTxID      = 0x0CC
	DefaultWatchID      = 0x123
	DefaultEchoTxID     = 0x0BC
	DefaultCyclicBaseID = 0x0C0
	DefaultCyclicFrames = 4
	DefaultCyclicLength = 3
)

// DefaultCyclicInterval is the repeat interval of the cyclic task.
const DefaultCyclicInterval = 1200 * time.Millisecond

// Config holds CLI configuration for the demo binaries. Each binary uses
// its own slice of the fields; the interface name is always the positional
// argument.
type Config struct {
	Iface string

	RawTxID  uint32 // identifier stamped on raw-mode echoes
	WatchID  uint32 // identifier the BCM receive filter matches
	EchoTxID uint32 // identifier stamped on BCM-mode echoes

	CyclicBaseID   uint32
	CyclicFrames   int
	CyclicLength   int
	CyclicInterval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RawTxID:        DefaultRawTxID,
		WatchID:        DefaultWatchID,
		EchoTxID:       DefaultEchoTxID,
		CyclicBaseID:   DefaultCyclicBaseID,
		CyclicFrames:   DefaultCyclicFrames,
		CyclicLength:   DefaultCyclicLength,
		CyclicInterval: DefaultCyclicInterval,
	}
}

// Validate checks the merged configuration. Transmit and cyclic identifiers
// must fit the standard range (the demos emit standard frames); the watch
// identifier may use the extended range.
func (c *Config) Validate() error {
	if c.RawTxID > can.MaxStdID {
		return fmt.Errorf("raw tx-id 0x%X exceeds standard identifier range", c.RawTxID)
	}
	if c.EchoTxID > can.MaxStdID {
		return fmt.Errorf("echo tx-id 0x%X exceeds standard identifier range", c.EchoTxID)
	}
	if c.WatchID > can.MaxExtID {
		return fmt.Errorf("watch-id 0x%X exceeds extended identifier range", c.WatchID)
	}
	if c.CyclicFrames < 1 || c.CyclicFrames > bcm.MaxFrames {
		return fmt.Errorf("frames must be 1..%d, got %d", bcm.MaxFrames, c.CyclicFrames)
	}
	if c.CyclicLength < 0 || c.CyclicLength > 8 {
		return fmt.Errorf("length must be 0..8, got %d", c.CyclicLength)
	}
	if c.CyclicInterval < time.Microsecond {
		return fmt.Errorf("interval must be at least 1us, got %v", c.CyclicInterval)
	}
	if last := uint64(c.CyclicBaseID) + uint64(c.CyclicFrames) - 1; last > can.MaxStdID {
		return fmt.Errorf("base-id 0x%X plus %d frames exceeds standard identifier range",
			c.CyclicBaseID, c.CyclicFrames)
	}
	return nil
}

// ParseID parses an identifier from a string, accepting the 0x prefix or
// plain decimal.
func ParseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("parse identifier %q: %w", s, err)
	}
	return uint32(v), nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setID parses and sets an identifier from a string if non-empty and the
// flag is not changed.
func (s *configSetter) setID(flag, value string, dst *uint32) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	id, err := ParseID(value)
	if err != nil {
		return fmt.Errorf("%s: %w", flag, err)
	}
	*dst = id
	return nil
}

// setInt sets an int value if positive and the flag is not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses an int from a string and sets the destination if
// positive. Used for environment variables, which come as strings.
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

// setDuration parses and sets a duration from a string if valid and the
// flag is not changed.
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
