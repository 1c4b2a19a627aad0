package meminfo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eunmann/memvis/internal/logctx"
)

const fullMeminfo = `MemTotal:        8000000 kB
MemFree:          500000 kB
MemAvailable:    2000000 kB
Buffers:          100000 kB
Cached:          1200000 kB
SwapTotal:       2097148 kB
SwapFree:        2097148 kB
`

// No MemAvailable, as on some older kernels and WSL.
const legacyMeminfo = `MemTotal:        4000000 kB
MemFree:          300000 kB
Buffers:           10000 kB
SwapTotal:       1000000 kB
SwapFree:         700000 kB
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meminfo")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Snapshot
	}{
		{"mem available present", fullMeminfo, Snapshot{TotalKB: 8000000, AvailableKB: 2000000}},
		{"fallback to free plus swap", legacyMeminfo, Snapshot{TotalKB: 4000000, AvailableKB: 1000000}},
		{"available before free", "MemAvailable: 10 kB\nMemFree: 99 kB\nMemTotal: 100 kB\n", Snapshot{TotalKB: 100, AvailableKB: 10}},
		{"blank and short lines", "\nfoo\nMemTotal: 50 kB\n\nMemFree: 5 kB\n", Snapshot{TotalKB: 50, AvailableKB: 5}},
		{"prefix is not a match", "MemTotalX: 1 kB\nMemTotal: 64 kB\nMemAvailable: 32 kB\n", Snapshot{TotalKB: 64, AvailableKB: 32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		noTot bool
	}{
		{"empty", "", true},
		{"no total", "MemFree: 10 kB\nMemAvailable: 5 kB\n", true},
		{"zero total", "MemTotal: 0 kB\n", true},
		{"bad value", "MemTotal: lots kB\n", false},
		{"negative value", "MemTotal: 100 kB\nMemAvailable: -5 kB\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNoTotal); got != tt.noTot {
				t.Errorf("errors.Is(err, ErrNoTotal) = %v, want %v (err = %v)", got, tt.noTot, err)
			}
		})
	}
}

func TestReader_Read(t *testing.T) {
	path := writeFile(t, fullMeminfo)

	snap, err := NewReader(path).Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if snap.TotalKB != 8000000 || snap.AvailableKB != 2000000 {
		t.Errorf("Read() = %+v", snap)
	}
}

func TestReader_Read_LogsSnapshot(t *testing.T) {
	path := writeFile(t, fullMeminfo)
	var logs bytes.Buffer
	ctx := logctx.WithLogger(context.Background(), zerolog.New(&logs).Level(zerolog.DebugLevel))

	if _, err := NewReader(path).Read(ctx); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	out := logs.String()
	for _, want := range []string{`"total_kb":8000000`, `"available_kb":2000000`, "read memory info"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in debug output, got: %s", want, out)
		}
	}
}

func TestReader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := NewReader(path).Read(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestNewReader_DefaultPath(t *testing.T) {
	if got := NewReader("").Path; got != DefaultPath {
		t.Errorf("NewReader(\"\").Path = %q, want %q", got, DefaultPath)
	}
}

func TestSnapshot_Used(t *testing.T) {
	tests := []struct {
		snap      Snapshot
		wantUsed  int64
		wantRatio float64
	}{
		{Snapshot{TotalKB: 8000000, AvailableKB: 2000000}, 6000000, 0.75},
		{Snapshot{TotalKB: 100, AvailableKB: 100}, 0, 0},
		{Snapshot{TotalKB: 100, AvailableKB: 0}, 100, 1},
		// Skewed source: available above total yields negative usage.
		{Snapshot{TotalKB: 100, AvailableKB: 150}, -50, -0.5},
	}

	for _, tt := range tests {
		if got := tt.snap.UsedKB(); got != tt.wantUsed {
			t.Errorf("%+v.UsedKB() = %d, want %d", tt.snap, got, tt.wantUsed)
		}
		if got := tt.snap.UsedRatio(); got != tt.wantRatio {
			t.Errorf("%+v.UsedRatio() = %v, want %v", tt.snap, got, tt.wantRatio)
		}
	}
}

func TestSnapshot_UsedWithinTotal(t *testing.T) {
	// For total >= available > 0, used lies in [0, total].
	for _, total := range []uint64{1, 2, 1023, 1 << 20, 8000000, 1 << 40} {
		for _, avail := range []uint64{1, total / 3, total / 2, total} {
			if avail == 0 {
				continue
			}
			s := Snapshot{TotalKB: total, AvailableKB: avail}
			used := s.UsedKB()
			if used != int64(total-avail) {
				t.Errorf("%+v: used = %d, want %d", s, used, total-avail)
			}
			if used < 0 || used > int64(total) {
				t.Errorf("%+v: used %d out of [0, %d]", s, used, total)
			}
		}
	}
}
