package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/jfdurocher/qdmboxsearch/internal/loader"
)

// CLIProgress renders live scan progress on a terminal. On a TTY it
// redraws a single progress-bar line in place; piped output falls back
// to occasional plain lines so logs stay readable.
type CLIProgress struct {
	w         io.Writer
	tty       bool
	startTime time.Time
	lastPrint time.Time
	rendered  bool
}

// NewCLIProgress builds a progress printer for w. TTY detection only
// applies when w is an *os.File (stderr in practice).
func NewCLIProgress(w io.Writer) *CLIProgress {
	p := &CLIProgress{w: w}
	if f, ok := w.(*os.File); ok {
		p.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *CLIProgress) OnStart() {
	now := time.Now()
	p.startTime = now
	p.lastPrint = now
	p.rendered = false
}

func (p *CLIProgress) OnProgress(pr loader.Progress) {
	if p.startTime.IsZero() {
		p.OnStart()
	}
	if p.tty {
		p.redraw(pr)
		return
	}
	// Throttle plain output to every 2 seconds
	if time.Since(p.lastPrint) < 2*time.Second {
		return
	}
	p.lastPrint = time.Now()
	fmt.Fprintf(p.w, "scanned %s of %s (%d messages)\n",
		formatSize(pr.BytesRead), formatSize(pr.TotalBytes), pr.Messages)
}

// OnDone clears the bar line so the summary starts on a clean line.
func (p *CLIProgress) OnDone() {
	if p.tty && p.rendered {
		fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", 78))
	}
}

func (p *CLIProgress) redraw(pr loader.Progress) {
	p.rendered = true
	elapsed := time.Since(p.startTime)
	rate := ""
	if elapsed.Seconds() >= 1 {
		rate = fmt.Sprintf(" | %s/s", formatSize(int64(float64(pr.BytesRead)/elapsed.Seconds())))
	}

	if pr.TotalBytes <= 0 {
		fmt.Fprintf(p.w, "\r  %s | %d messages%s    ", formatSize(pr.BytesRead), pr.Messages, rate)
		return
	}

	done := pr.BytesRead
	if done > pr.TotalBytes {
		done = pr.TotalBytes
	}
	pct := int(done * 100 / pr.TotalBytes)
	barWidth := 30
	filled := barWidth * pct / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(p.w, "\r  [%s] %3d%% | %d messages%s    ", bar, pct, pr.Messages, rate)
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1fG", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1fM", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1fK", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// formatDuration formats a duration as "Xm Ys" or "Xh Ym" for readability.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
