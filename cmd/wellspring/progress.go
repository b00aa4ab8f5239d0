package main

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/wellspring/ingestion"
)

// progress reports ingestion progress on a single terminal line.
type progress struct {
	writer io.Writer
	total  int
	done   int
	failed int
	start  time.Time
	now    func() time.Time
}

func newProgress(writer io.Writer, total int) *progress {
	p := &progress{writer: writer, total: total, now: time.Now}
	p.start = p.now()
	return p
}

// record counts a finished job and redraws the line.
func (p *progress) record(status ingestion.JobStatus) {
	if p.done < p.total {
		p.done++
	}
	if status.State == ingestion.StateFailed {
		p.failed++
	}
	p.report()
}

// finish draws the final line and ends it.
func (p *progress) finish() {
	p.report()
	fmt.Fprintln(p.writer)
}

func (p *progress) elapsed() time.Duration {
	return p.now().Sub(p.start)
}

func (p *progress) report() {
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}
	rate := 0.0
	if secs := p.elapsed().Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.writer, "\rIngested: %d/%d (%.1f%%), %d failed - %.1f docs/s",
		p.done, p.total, percentage, p.failed, rate)
}
