// Package procmem reads per-process resident memory from procfs.
//
// The resident size is the sum of the Rss: field over every mapping in
// /proc/<pid>/smaps, which attributes shared mappings consistently instead
// of relying on the single VmRSS counter.
package procmem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/eunmann/memvis/internal/logctx"
)

// DefaultRoot is the procfs mount point.
const DefaultRoot = "/proc"

const rssKey = "Rss:"

// Reader sums resident memory for processes under Root.
type Reader struct {
	Root string
}

// NewReader returns a Reader rooted at root, or DefaultRoot if root is empty.
func NewReader(root string) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	return &Reader{Root: root}
}

// SmapsPath returns the per-mapping accounting file for pid.
func (r *Reader) SmapsPath(pid string) string {
	return filepath.Join(r.Root, pid, "smaps")
}

// ResidentKB returns the resident memory of pid in kibibytes. A process
// that vanished before its smaps could be read, or any other read
// failure, yields 0 and a warning rather than an error.
func (r *Reader) ResidentKB(ctx context.Context, pid string) uint64 {
	path := r.SmapsPath(pid)
	kb, err := readSmaps(path)
	if err == nil {
		return kb
	}

	log := logctx.FromContext(ctx)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().
			Str("pid", pid).
			Str("path", path).
			Bool("alive", alive(pid)).
			Msg("smaps not found, counting process as 0 kB")
		return 0
	}
	log.Warn().
		Err(err).
		Str("pid", pid).
		Str("path", path).
		Msg("cannot read smaps, counting process as 0 kB")
	return 0
}

func readSmaps(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return SumRss(f)
}

// SumRss adds up every Rss: line in an smaps stream.
func SumRss(src io.Reader) (uint64, error) {
	var total uint64
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != rssKey {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s %q: %w", rssKey, fields[1], err)
		}
		total += kb
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan smaps: %w", err)
	}
	return total, nil
}

// alive reports whether a signal-0 probe finds pid. EPERM means the
// process exists but belongs to someone else.
func alive(pid string) bool {
	n, err := strconv.Atoi(pid)
	if err != nil || n <= 0 {
		return false
	}
	err = unix.Kill(n, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
