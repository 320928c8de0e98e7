package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/py-flow-trace/internal/indexer"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	quiet    bool
	out      io.Writer
	graphBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to stdout.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   os.Stdout,
	}
}

var _ indexer.ProgressReporter = (*CLIProgressReporter)(nil)

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering Python files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	log.Printf("Analyzing %s Python files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnGraphBuildingStart(totalFiles int) {
	if c.quiet {
		return
	}
	// Finish any existing progress bar
	if c.graphBar != nil {
		c.graphBar.Finish()
	}
	c.graphBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting calls"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnGraphFileProcessed(processedFiles, totalFiles int, fileName string) {
	if c.quiet {
		return
	}
	if c.graphBar != nil {
		c.graphBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnGraphBuildingComplete(callerCount, edgeCount int, duration time.Duration) {
	if c.quiet {
		return
	}
	if c.graphBar != nil {
		c.graphBar.Finish()
		c.graphBar = nil
	}
	fmt.Fprintf(c.out, "✓ Call graph built: %s callers, %s edges (took %.1fs)\n",
		formatNumber(callerCount), formatNumber(edgeCount), duration.Seconds())
}

func (c *CLIProgressReporter) OnExported(name, path string) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "✓ Wrote %s: %s\n", name, path)
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.Stats) {
	if c.quiet {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Analysis complete: %s calls in %.1fs\n",
		formatNumber(stats.Calls), stats.Duration.Seconds())
	fmt.Fprintf(c.out, "  Files:   %s\n", formatNumber(stats.Files))
	fmt.Fprintf(c.out, "  Callers: %s\n", formatNumber(stats.Callers))
	fmt.Fprintf(c.out, "  Edges:   %s\n", formatNumber(stats.Edges))
	if stats.Failures > 0 {
		fmt.Fprintf(c.out, "  Skipped: %s files (see warnings above)\n", formatNumber(stats.Failures))
	}
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
