// Command memvis prints memory usage as text bar graphs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/eunmann/memvis/internal/cli"
	"github.com/eunmann/memvis/pkg/report"
)

func main() {
	err := cli.Run(os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}
	// The not-found line is already on stdout.
	if !errors.Is(err, report.ErrProgramNotFound) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}
