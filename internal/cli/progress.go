package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/codeanalyzer/internal/extract"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	quiet      bool
	out        io.Writer
	parseBar   *progressbar.ProgressBar
	extractBar *progressbar.ProgressBar
	parsed     int
	extracted  int
}

var _ extract.ProgressReporter = (*CLIProgressReporter)(nil)

// NewCLIProgressReporter creates a reporter drawing on out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   out,
	}
}

func (c *CLIProgressReporter) OnParseStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.parsed = 0
	c.parseBar = c.newBar(totalFiles, "Parsing files")
}

func (c *CLIProgressReporter) OnFileParsed(path string) {
	if c.quiet || c.parseBar == nil {
		return
	}
	c.parsed++
	_ = c.parseBar.Add(1)
}

func (c *CLIProgressReporter) OnExtractStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.extracted = 0
	c.extractBar = c.newBar(totalFiles, "Extracting symbols")
}

func (c *CLIProgressReporter) OnFileExtracted(path string) {
	if c.quiet || c.extractBar == nil {
		return
	}
	c.extracted++
	_ = c.extractBar.Add(1)
}

// Processed returns how many files were parsed and extracted.
func (c *CLIProgressReporter) Processed() (parsed, extracted int) {
	return c.parsed, c.extracted
}

func (c *CLIProgressReporter) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}
