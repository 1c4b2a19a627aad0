// Package config holds the immutable run configuration for memvis.
//
// A Config is built once at startup (defaults, then an optional TOML file,
// then command-line flags) and passed by value to the report builder.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/eunmann/memvis/internal/logctx"
	"github.com/eunmann/memvis/pkg/bargraph"
	"github.com/eunmann/memvis/pkg/meminfo"
	"github.com/eunmann/memvis/pkg/pidof"
	"github.com/eunmann/memvis/pkg/procmem"
)

// Config is the full set of run options.
type Config struct {
	// Program switches to per-program mode when non-empty.
	Program string `toml:"-"`

	// Length is the bar width in characters.
	Length int `toml:"length"`

	// HumanReadable renders sizes as KiB/MiB/GiB/TiB instead of raw kB.
	HumanReadable bool `toml:"human_readable"`

	// Resolver selects the PID lookup: auto, pidof or procfs.
	Resolver string `toml:"resolver"`

	MemInfoPath string `toml:"meminfo_path"`
	ProcRoot    string `toml:"proc_root"`

	Log Log `toml:"log"`
}

// Log configures diagnostics on stderr.
type Log struct {
	Debug  bool   `toml:"debug"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Length:      bargraph.DefaultLength,
		Resolver:    pidof.KindAuto,
		MemInfoPath: meminfo.DefaultPath,
		ProcRoot:    procmem.DefaultRoot,
		Log: Log{
			Format: logctx.FormatConsole,
		},
	}
}

// LoadFile decodes the TOML file at path over base. Keys absent from the
// file keep their value from base; unknown keys are rejected.
func LoadFile(path string, base Config) (Config, error) {
	cfg := base
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return base, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return base, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// Validate reports the first invalid option.
func (c Config) Validate() error {
	if c.Length <= 0 {
		return fmt.Errorf("length must be positive, got %d", c.Length)
	}
	switch c.Resolver {
	case pidof.KindAuto, pidof.KindPidof, pidof.KindProcfs:
	default:
		return fmt.Errorf("unknown resolver %q", c.Resolver)
	}
	switch c.Log.Format {
	case logctx.FormatConsole, logctx.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.MemInfoPath == "" {
		return errors.New("meminfo path must not be empty")
	}
	if c.ProcRoot == "" {
		return errors.New("proc root must not be empty")
	}
	return nil
}
