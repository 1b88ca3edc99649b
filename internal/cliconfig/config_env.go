package cliconfig

import "os"

// ApplyEnvConfig applies CANDEMO_* environment variables to the Config.
// Env values override file config but are overridden by flags (checked via
// the changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setID("tx-id", os.Getenv("CANDEMO_RAW_TX_ID"), &cfg.RawTxID); err != nil {
		return err
	}
	if err := s.setID("watch-id", os.Getenv("CANDEMO_ECHO_WATCH_ID"), &cfg.WatchID); err != nil {
		return err
	}
	if err := s.setID("tx-id", os.Getenv("CANDEMO_ECHO_TX_ID"), &cfg.EchoTxID); err != nil {
		return err
	}
	if err := s.setID("base-id", os.Getenv("CANDEMO_CYCLIC_BASE_ID"), &cfg.CyclicBaseID); err != nil {
		return err
	}
	if err := s.setIntFromString("frames", os.Getenv("CANDEMO_CYCLIC_FRAMES"), &cfg.CyclicFrames); err != nil {
		return err
	}
	if err := s.setIntFromString("length", os.Getenv("CANDEMO_CYCLIC_LENGTH"), &cfg.CyclicLength); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("CANDEMO_CYCLIC_INTERVAL"), &cfg.CyclicInterval); err != nil {
		return err
	}
	return nil
}
