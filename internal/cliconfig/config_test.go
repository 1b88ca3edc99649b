package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RawTxID != 0x0CC {
		t.Errorf("RawTxID = %#X, want 0x0CC", cfg.RawTxID)
	}
	if cfg.WatchID != 0x123 {
		t.Errorf("WatchID = %#X, want 0x123", cfg.WatchID)
	}
	if cfg.EchoTxID != 0x0BC {
		t.Errorf("EchoTxID = %#X, want 0x0BC", cfg.EchoTxID)
	}
	if cfg.CyclicBaseID != 0x0C0 {
		t.Errorf("CyclicBaseID = %#X, want 0x0C0", cfg.CyclicBaseID)
	}
	if cfg.CyclicFrames != 4 {
		t.Errorf("CyclicFrames = %d, want 4", cfg.CyclicFrames)
	}
	if cfg.CyclicLength != 3 {
		t.Errorf("CyclicLength = %d, want 3", cfg.CyclicLength)
	}
	if cfg.CyclicInterval != 1200*time.Millisecond {
		t.Errorf("CyclicInterval = %v, want 1.2s", cfg.CyclicInterval)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(*Config) {}, false},
		{"raw tx id out of standard range", func(c *Config) { c.RawTxID = 0x800 }, true},
		{"echo tx id out of standard range", func(c *Config) { c.EchoTxID = 0x800 }, true},
		{"watch id extended ok", func(c *Config) { c.WatchID = 0x1FFFFFFF }, false},
		{"watch id out of extended range", func(c *Config) { c.WatchID = 0x20000000 }, true},
		{"zero frames", func(c *Config) { c.CyclicFrames = 0 }, true},
		{"too many frames", func(c *Config) { c.CyclicBaseID = 0; c.CyclicFrames = 257 }, true},
		{"length too large", func(c *Config) { c.CyclicLength = 9 }, true},
		{"zero length ok", func(c *Config) { c.CyclicLength = 0 }, false},
		{"interval below resolution", func(c *Config) { c.CyclicInterval = 0 }, true},
		{"base id overflows standard range", func(c *Config) { c.CyclicBaseID = 0x7FD }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0x0CC", 0x0CC, false},
		{"0X123", 0x123, false},
		{"291", 291, false},
		{"0o777", 0o777, false},
		{"", 0, true},
		{"garbage", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %#X, want %#X", tt.in, got, tt.want)
			}
		})
	}
}
