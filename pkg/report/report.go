// Package report renders the memvis memory-usage lines.
//
// System mode prints one bar for used/total memory. Program mode prints a
// bar per process and a summary bar for the program; every bar in that
// mode is measured against total system memory, not against the program's
// own total.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/eunmann/memvis/internal/config"
	"github.com/eunmann/memvis/internal/logctx"
	"github.com/eunmann/memvis/pkg/bargraph"
	"github.com/eunmann/memvis/pkg/humanfmt"
	"github.com/eunmann/memvis/pkg/meminfo"
	"github.com/eunmann/memvis/pkg/pidof"
)

// ErrProgramNotFound is returned when a program resolves to no processes.
// The "<name> not found." line has already been written when it is returned.
var ErrProgramNotFound = errors.New("program not found")

// systemLabel is the system-mode row label, padded to 15 columns.
const systemLabel = "Memory         "

// MemSource supplies the system memory snapshot.
type MemSource interface {
	Read(ctx context.Context) (meminfo.Snapshot, error)
}

// RSSSource supplies a process's resident memory in kibibytes. It returns
// 0 for processes it cannot read.
type RSSSource interface {
	ResidentKB(ctx context.Context, pid string) uint64
}

// Sample is one process's resident memory.
type Sample struct {
	PID        string
	ResidentKB uint64
}

// Builder produces reports for one configuration.
type Builder struct {
	cfg      config.Config
	mem      MemSource
	resolver pidof.Resolver
	rss      RSSSource
	out      io.Writer
}

// New returns a Builder writing to out.
func New(cfg config.Config, mem MemSource, resolver pidof.Resolver, rss RSSSource, out io.Writer) *Builder {
	return &Builder{
		cfg:      cfg,
		mem:      mem,
		resolver: resolver,
		rss:      rss,
		out:      out,
	}
}

// Run prints the program report when a program is configured and the
// system report otherwise.
func (b *Builder) Run(ctx context.Context) error {
	if b.cfg.Program != "" {
		return b.Program(ctx, b.cfg.Program)
	}
	return b.System(ctx)
}

// System prints the used/total line for the whole machine.
func (b *Builder) System(ctx context.Context) error {
	snap, err := b.mem.Read(ctx)
	if err != nil {
		return err
	}

	ratio := snap.UsedRatio()
	_, err = fmt.Fprintf(b.out, "%s%s %.0f%% %s/%s\n",
		systemLabel,
		bargraph.Render(ratio, b.cfg.Length),
		ratio*100,
		b.size(snap.UsedKB()),
		b.size(int64(snap.TotalKB)),
	)
	return err
}

// Program prints one line per process running name and a summary line.
func (b *Builder) Program(ctx context.Context, name string) error {
	ctx = logctx.WithStr(ctx, "program", name)

	pids := b.resolver.Resolve(ctx, name)
	if len(pids) == 0 {
		if _, err := fmt.Fprintf(b.out, "%s not found.\n", name); err != nil {
			return err
		}
		return fmt.Errorf("%s: %w", name, ErrProgramNotFound)
	}

	snap, err := b.mem.Read(ctx)
	if err != nil {
		return err
	}

	samples := b.collect(ctx, pids)
	var totalRSS uint64
	for _, s := range samples {
		totalRSS += s.ResidentKB
		if err := b.programLine(s.PID, s.ResidentKB, snap.TotalKB); err != nil {
			return err
		}
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Int("processes", len(samples)).
		Uint64("resident_kb", totalRSS).
		Msg("program memory collected")
	return b.programLine(name, totalRSS, snap.TotalKB)
}

// collect reads resident memory for each pid in resolver order.
func (b *Builder) collect(ctx context.Context, pids []string) []Sample {
	samples := make([]Sample, 0, len(pids))
	for _, pid := range pids {
		samples = append(samples, Sample{PID: pid, ResidentKB: b.rss.ResidentKB(ctx, pid)})
	}
	return samples
}

func (b *Builder) programLine(label string, residentKB, totalKB uint64) error {
	ratio := float64(residentKB) / float64(totalKB)
	_, err := fmt.Fprintf(b.out, "%-10s %s %s/%s\n",
		label,
		bargraph.Render(ratio, b.cfg.Length),
		b.size(int64(residentKB)),
		b.size(int64(totalKB)),
	)
	return err
}

func (b *Builder) size(kb int64) string {
	if b.cfg.HumanReadable {
		return humanfmt.KiBDefault(kb)
	}
	return humanfmt.KB(kb)
}
