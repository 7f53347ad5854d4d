package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Benny93/sweepy-go/internal/ingestion"
)

// progressReporter renders pipeline phases as progress bars, one bar per
// phase.
type progressReporter struct {
	w     io.Writer
	phase string
	bar   *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

// Callback adapts the reporter to the pipeline's progress hook.
func (p *progressReporter) Callback() ingestion.ProgressCallback {
	return p.update
}

func (p *progressReporter) update(phase string, pct float64) {
	if phase != p.phase {
		p.finish()
		p.phase = phase
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(phase),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.w)
			}),
		)
	}
	_ = p.bar.Set(int(pct * 100))
}

// finish completes the current bar, if any.
func (p *progressReporter) finish() {
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
	p.bar = nil
}
