// Package utils holds small shared helpers: pass timing accounting.
package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information accumulated across passes.
type TimingStats struct {
	TotalTime        time.Duration
	ForwardPassTime  time.Duration
	BackwardPassTime time.Duration
	ForwardSolves    int
	BackwardSolves   int
	CutsAdded        int
}

// PrintTimingStats prints detailed timing statistics for a run of the
// given number of outer iterations. Respects the Verbose flag - does
// nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, iterations int) {
	if !Verbose {
		return
	}
	if iterations <= 0 {
		iterations = 1
	}
	total := stats.TotalTime
	if total == 0 {
		total = stats.ForwardPassTime + stats.BackwardPassTime
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", total)
	fmt.Fprintf(Output, "Average time per iteration: %v\n", total/time.Duration(iterations))
	fmt.Fprintf(Output, "Iterations completed: %d\n", iterations)
	fmt.Fprintln(Output, "\nBreakdown by pass:")
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, percent(stats.ForwardPassTime, total))
	fmt.Fprintf(Output, "  Backward pass: %v (%.1f%%)\n", stats.BackwardPassTime, percent(stats.BackwardPassTime, total))
	fmt.Fprintln(Output, "\nSubproblem solves:")
	fmt.Fprintf(Output, "  Forward: %d\n", stats.ForwardSolves)
	fmt.Fprintf(Output, "  Backward: %d\n", stats.BackwardSolves)
	fmt.Fprintf(Output, "  Cuts added: %d\n", stats.CutsAdded)
	if stats.BackwardSolves > 0 {
		fmt.Fprintf(Output, "  Average backward solve: %v\n",
			stats.BackwardPassTime/time.Duration(stats.BackwardSolves))
	}
}

func percent(part, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
