package cliconfig

import "fmt"

// Merge layers the config file (default path unless cfgPath overrides it)
// and environment variables onto cfg, respecting explicitly-set flags, then
// validates the result. A missing default config file is not an error; a
// malformed one is.
func Merge(cfg *Config, cfgPath string, changed map[string]bool) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = DefaultConfigPath()
	}
	if cfgFile != "" && (cfgPath != "" || FileExists(cfgFile)) {
		fc, err := LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}
