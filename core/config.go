package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/flowmesh/flowmesh/logging"
)

// rawSessionConfig is the exhaustive externally recognized option surface.
type rawSessionConfig struct {
	SessionID    string         `mapstructure:"session_id"`
	Timeout      *time.Duration `mapstructure:"timeout"`
	Context      map[string]any `mapstructure:"context"`
	LoggingLevel string         `mapstructure:"logging_level"`
}

// ConfigFromMap decodes a loosely typed option map into a Config. Durations
// accept Go duration strings ("250ms") or numeric nanoseconds. Unrecognized
// keys fail with a *ConfigError rather than being silently ignored.
func ConfigFromMap(m map[string]any) (*Config, error) {
	var (
		raw rawSessionConfig
		md  mapstructure.Metadata
	)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &raw,
		Metadata:   &md,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("build session config decoder: %w", err)
	}

	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode session config: %w", err)
	}

	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return nil, &ConfigError{Option: md.Unused[0], Message: "unrecognized option"}
	}

	cfg := &Config{
		SessionID:    raw.SessionID,
		Timeout:      raw.Timeout,
		Context:      raw.Context,
		LoggingLevel: logging.LogLevelInfo,
	}

	if raw.LoggingLevel != "" {
		lvl, err := logging.ParseLevel(raw.LoggingLevel)
		if err != nil {
			return nil, &ConfigError{Option: "logging_level", Message: err.Error()}
		}
		cfg.LoggingLevel = lvl
		cfg.Logger = logging.NewLevelLogger(lvl)
	}

	return cfg, nil
}
