// Package cli implements the command-line interface for memvis.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/eunmann/memvis/internal/config"
	"github.com/eunmann/memvis/internal/logctx"
	"github.com/eunmann/memvis/pkg/meminfo"
	"github.com/eunmann/memvis/pkg/pidof"
	"github.com/eunmann/memvis/pkg/procmem"
	"github.com/eunmann/memvis/pkg/report"
)

const usageHeader = `usage: memvis [options] [program]

Memory Visualiser -- see memory usage as bar charts. With no program,
reports total system memory; with a program, reports the resident memory
of each of its processes against total system memory.

options:
`

// Run parses args, builds the configuration and prints the report to
// stdout. Diagnostics and usage go to stderr. A help request returns nil.
func Run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parse(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, err := logctx.New(stderr, cfg.Log.Debug, cfg.Log.Format)
	if err != nil {
		return err
	}
	ctx := logctx.WithLogger(context.Background(), logger)

	resolver, err := pidof.New(cfg.Resolver)
	if err != nil {
		return err
	}

	b := report.New(cfg,
		meminfo.NewReader(cfg.MemInfoPath),
		resolver,
		procmem.NewReader(cfg.ProcRoot),
		stdout,
	)
	return b.Run(ctx)
}

// parse layers defaults, the optional config file and explicitly set
// flags, in that order.
func parse(args []string, stderr io.Writer) (config.Config, error) {
	def := config.Default()

	fs := pflag.NewFlagSet("memvis", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		fs.PrintDefaults()
	}

	length := fs.IntP("length", "l", def.Length, "length of the bar graph")
	human := fs.BoolP("human-readable", "H", def.HumanReadable, "print sizes in human-readable units")
	configPath := fs.StringP("config", "c", "", "TOML file with default options")
	resolver := fs.String("resolver", def.Resolver, "PID lookup: auto, pidof or procfs")
	meminfoPath := fs.String("meminfo-path", def.MemInfoPath, "system memory counters file")
	procRoot := fs.String("proc-root", def.ProcRoot, "procfs mount point for per-process smaps")
	debug := fs.Bool("debug", def.Log.Debug, "enable debug diagnostics")
	logFormat := fs.String("log-format", def.Log.Format, "diagnostics format: console or json")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath, def); err != nil {
			return config.Config{}, err
		}
	}

	if fs.Changed("length") {
		cfg.Length = *length
	}
	if fs.Changed("human-readable") {
		cfg.HumanReadable = *human
	}
	if fs.Changed("resolver") {
		cfg.Resolver = *resolver
	}
	if fs.Changed("meminfo-path") {
		cfg.MemInfoPath = *meminfoPath
	}
	if fs.Changed("proc-root") {
		cfg.ProcRoot = *procRoot
	}
	if fs.Changed("debug") {
		cfg.Log.Debug = *debug
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = *logFormat
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.Program = rest[0]
	default:
		return config.Config{}, fmt.Errorf("expected at most one program, got %d: %v", len(rest), rest)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
