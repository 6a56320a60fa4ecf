// File: control/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide configuration, read once at startup and never mutated.

package control

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultRootPath is the zuf control-device mount point.
const DefaultRootPath = "/sys/fs/zuf"

// Memory-locking modes.
const (
	MlockNone    = "none"
	MlockCurrent = "current"
	MlockAll     = "all"
)

// Config is the daemon configuration. Zero values fall back to defaults
// via Normalize.
type Config struct {
	// RootPath overrides the zuf control-device location.
	RootPath string `yaml:"root_path"`

	// DebugMask gates the debug log channels, see debug.go.
	DebugMask uint64 `yaml:"debug_mask"`

	// Mlock selects which mappings get locked into RAM at startup.
	Mlock string `yaml:"mlock"`

	// LogLevel is an hclog level name.
	LogLevel string `yaml:"log_level"`

	// RealTime runs workers under round-robin real-time scheduling.
	RealTime   bool `yaml:"real_time"`
	RRPriority int  `yaml:"rr_priority"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		RootPath: DefaultRootPath,
		Mlock:    MlockCurrent,
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file and normalizes it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Normalize()
}

// Normalize fills defaults and rejects impossible values.
func (c *Config) Normalize() error {
	if c.RootPath == "" {
		c.RootPath = DefaultRootPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.Mlock {
	case "":
		c.Mlock = MlockCurrent
	case MlockNone, MlockCurrent, MlockAll:
	default:
		return errors.Errorf("bad mlock mode %q", c.Mlock)
	}
	if c.RRPriority < 0 || c.RRPriority > 99 {
		return errors.Errorf("bad rr_priority %d", c.RRPriority)
	}
	return nil
}
