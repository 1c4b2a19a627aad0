// Package pidof maps a program name to the PIDs currently running it.
//
// Resolution never fails: when the underlying facility is missing or
// errors, the resolver logs the cause and reports no matches.
package pidof

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eunmann/memvis/internal/logctx"
)

// Resolver kinds accepted by New.
const (
	KindAuto   = "auto"
	KindPidof  = "pidof"
	KindProcfs = "procfs"
)

// DefaultCommand is the OS utility used by Pidof.
const DefaultCommand = "pidof"

// Resolver returns the PIDs of processes running a program. An empty
// result means no match; order is whatever the facility yields.
type Resolver interface {
	Resolve(ctx context.Context, name string) []string
}

// New returns the resolver for kind. KindAuto picks Pidof when the pidof
// utility is on $PATH and Procfs otherwise.
func New(kind string) (Resolver, error) {
	switch kind {
	case KindPidof:
		return NewPidof(), nil
	case KindProcfs:
		return NewProcfs(), nil
	case KindAuto, "":
		if _, err := exec.LookPath(DefaultCommand); err == nil {
			return NewPidof(), nil
		}
		return NewProcfs(), nil
	default:
		return nil, fmt.Errorf("unknown resolver %q (want %s, %s or %s)", kind, KindAuto, KindPidof, KindProcfs)
	}
}

// Pidof shells out to the pidof(8) utility.
type Pidof struct {
	Command string
}

// NewPidof returns a Pidof that runs DefaultCommand.
func NewPidof() *Pidof {
	return &Pidof{Command: DefaultCommand}
}

// Resolve runs "<Command> <name>" and splits its output into PIDs.
func (p *Pidof) Resolve(ctx context.Context, name string) []string {
	log := logctx.FromContext(ctx)

	out, err := exec.CommandContext(ctx, p.Command, name).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			// pidof exits 1 when nothing matched.
			log.Debug().Str("program", name).Msg("pidof found no processes")
		} else {
			log.Warn().Err(err).Str("command", p.Command).Str("program", name).Msg("pidof failed")
		}
		return nil
	}
	return ParseOutput(out)
}

// ParseOutput splits pidof output into PIDs, dropping anything that is
// not a positive integer.
func ParseOutput(out []byte) []string {
	fields := strings.Fields(string(out))
	pids := make([]string, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err != nil || n <= 0 {
			continue
		}
		pids = append(pids, f)
	}
	return pids
}

// Procfs enumerates /proc through gopsutil and matches process names.
// It serves systems without a pidof binary, such as slim containers.
type Procfs struct{}

// NewProcfs returns a Procfs resolver.
func NewProcfs() *Procfs {
	return &Procfs{}
}

// Resolve returns the PIDs whose process name equals name.
func (p *Procfs) Resolve(ctx context.Context, name string) []string {
	log := logctx.FromContext(ctx)

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		log.Warn().Err(err).Str("program", name).Msg("cannot enumerate processes")
		return nil
	}

	var pids []string
	for _, proc := range procs {
		procName, err := proc.NameWithContext(ctx)
		if err != nil {
			// Exited mid-scan or not readable by us.
			continue
		}
		if procName == name {
			pids = append(pids, strconv.Itoa(int(proc.Pid)))
		}
	}
	log.Debug().Str("program", name).Int("matches", len(pids)).Msg("scanned process table")
	return pids
}
