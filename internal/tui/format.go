package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// truncateRunes truncates s to maxWidth display cells, appending "..."
// when truncated. Newlines and tabs are flattened to spaces first so a
// multi-line value cannot break a table row.
func truncateRunes(s string, maxWidth int) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
	return runewidth.Truncate(s, maxWidth, "...")
}

// padRight pads s with spaces to exactly width display cells,
// truncating when it is wider. ANSI-aware on both sides.
func padRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w > width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-w)
}

// wrapText wraps text to the given display width. Long lines break at
// the last space in their latter half when one exists, otherwise hard
// at the width boundary.
func wrapText(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		runes := []rune(line)
		for len(runes) > 0 {
			w := 0
			i := 0
			for i < len(runes) {
				rw := runewidth.RuneWidth(runes[i])
				if w+rw > width {
					break
				}
				w += rw
				i++
			}
			if i >= len(runes) {
				out = append(out, string(runes))
				break
			}
			breakAt := i
			for j := i - 1; j > i/2; j-- {
				if runes[j] == ' ' {
					breakAt = j
					break
				}
			}
			out = append(out, string(runes[:breakAt]))
			runes = runes[breakAt:]
			if len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return out
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// highlightTerm wraps every occurrence of term in text with the
// highlight style. Matching is rune-based so multi-byte text keeps its
// boundaries intact.
func highlightTerm(text, term string, caseSensitive bool) string {
	if term == "" || text == "" {
		return text
	}
	textRunes := []rune(text)
	termRunes := []rune(term)
	if len(termRunes) > len(textRunes) {
		return text
	}

	fold := func(r rune) rune {
		if caseSensitive {
			return r
		}
		return unicode.ToLower(r)
	}
	hay := make([]rune, len(textRunes))
	for i, r := range textRunes {
		hay[i] = fold(r)
	}
	needle := make([]rune, len(termRunes))
	for i, r := range termRunes {
		needle[i] = fold(r)
	}

	var sb strings.Builder
	last := 0
	for i := 0; i+len(needle) <= len(hay); {
		match := true
		for j, r := range needle {
			if hay[i+j] != r {
				match = false
				break
			}
		}
		if !match {
			i++
			continue
		}
		sb.WriteString(string(textRunes[last:i]))
		sb.WriteString(highlightStyle.Render(string(textRunes[i : i+len(needle)])))
		i += len(needle)
		last = i
	}
	if last == 0 {
		return text
	}
	sb.WriteString(string(textRunes[last:]))
	return sb.String()
}
