// Package meminfo reads system-wide memory counters from /proc/meminfo.
package meminfo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/eunmann/memvis/internal/logctx"
)

// DefaultPath is the kernel's global memory counter file.
const DefaultPath = "/proc/meminfo"

// ErrNoTotal is returned when the source has no usable MemTotal line.
var ErrNoTotal = errors.New("meminfo: MemTotal missing or zero")

// Snapshot holds total and available memory in kibibytes.
type Snapshot struct {
	TotalKB     uint64
	AvailableKB uint64
}

// UsedKB returns total minus available. The result is negative when the
// source reports more available than total memory.
func (s Snapshot) UsedKB() int64 {
	return int64(s.TotalKB) - int64(s.AvailableKB)
}

// UsedRatio returns UsedKB as a fraction of TotalKB.
func (s Snapshot) UsedRatio() float64 {
	return float64(s.UsedKB()) / float64(s.TotalKB)
}

// counters accumulates the fields the rules care about during one pass.
type counters struct {
	total        uint64
	haveTotal    bool
	available    uint64
	hasAvailable bool
	memFree      uint64
	swapFree     uint64
}

type rule struct {
	key   string
	apply func(c *counters, kb uint64)
}

// rules are matched against the first field of each line, in order.
// MemAvailable wins over the MemFree+SwapFree approximation when present.
var rules = []rule{
	{"MemTotal:", func(c *counters, kb uint64) {
		if !c.haveTotal {
			c.total, c.haveTotal = kb, true
		}
	}},
	{"MemAvailable:", func(c *counters, kb uint64) {
		if !c.hasAvailable {
			c.available, c.hasAvailable = kb, true
		}
	}},
	{"MemFree:", func(c *counters, kb uint64) { c.memFree = kb }},
	{"SwapFree:", func(c *counters, kb uint64) { c.swapFree = kb }},
}

func (c *counters) snapshot() Snapshot {
	avail := c.available
	if !c.hasAvailable {
		avail = c.memFree + c.swapFree
	}
	return Snapshot{TotalKB: c.total, AvailableKB: avail}
}

// Reader parses a meminfo-formatted file.
type Reader struct {
	Path string
}

// NewReader returns a Reader for path, or for DefaultPath if path is empty.
func NewReader(path string) *Reader {
	if path == "" {
		path = DefaultPath
	}
	return &Reader{Path: path}
}

// Read opens the source and returns a fresh Snapshot.
func (r *Reader) Read(ctx context.Context) (Snapshot, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open memory info: %w", err)
	}
	defer f.Close()

	snap, err := Parse(f)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", r.Path, err)
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Str("path", r.Path).
		Uint64("total_kb", snap.TotalKB).
		Uint64("available_kb", snap.AvailableKB).
		Msg("read memory info")
	return snap, nil
}

// Parse scans meminfo lines from src in a single pass.
func Parse(src io.Reader) (Snapshot, error) {
	var c counters
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		for _, rl := range rules {
			if fields[0] != rl.key {
				continue
			}
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return Snapshot{}, fmt.Errorf("parse %s %q: %w", rl.key, fields[1], err)
			}
			rl.apply(&c, kb)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("scan memory info: %w", err)
	}
	if !c.haveTotal || c.total == 0 {
		return Snapshot{}, ErrNoTotal
	}
	return c.snapshot(), nil
}
