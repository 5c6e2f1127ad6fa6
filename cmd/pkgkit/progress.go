package main

import (
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pkgkit/internal/transaction"
)

// progressReporter renders a live progress bar for one transaction. A nil
// reporter is safe to use everywhere and reports nothing.
type progressReporter struct {
	writer  progress.Writer
	tracker *progress.Tracker
}

// newProgressReporter returns a live reporter when out is a terminal and nil
// otherwise, so piped and scripted runs stay clean.
func newProgressReporter(out *os.File, message string) *progressReporter {
	if out == nil || !isTerminal(out) {
		return nil
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(25)
	pw.SetMessageWidth(24)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = false

	tracker := &progress.Tracker{Message: message, Total: 100}
	pw.AppendTracker(tracker)
	go pw.Render()

	return &progressReporter{writer: pw, tracker: tracker}
}

// Func adapts the reporter to a transaction progress callback.
func (p *progressReporter) Func() transaction.ProgressFunc {
	if p == nil {
		return nil
	}
	return func(snap transaction.Progress) bool {
		if snap.Status != "" {
			p.tracker.UpdateMessage(statusLabel(snap.Status))
		}
		// 101 is the daemon's marker for an unknown percentage.
		if snap.Percentage <= 100 {
			p.tracker.SetValue(int64(snap.Percentage))
		}
		return true
	}
}

// Finish paints the final frame and stops the renderer.
func (p *progressReporter) Finish(succeeded bool) {
	if p == nil {
		return
	}
	if succeeded {
		p.tracker.MarkAsDone()
	} else {
		p.tracker.MarkAsErrored()
	}
	for p.writer.IsRenderInProgress() && p.writer.LengthActive() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	p.writer.Stop()
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// statusLabel turns a daemon status enum ("dep-resolve", "refresh-cache")
// into display text.
func statusLabel(status string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(status, "-", " "))
}
