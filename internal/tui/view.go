package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfdurocher/qdmboxsearch/internal/loader"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	// Title bar style - bold with visible background
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	// Separator line style for under headers
	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	// Cursor row: subtle lighter background
	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	// Normal rows need background to clear old content
	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	// Alternating rows: very subtle gray background
	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

// headerView renders the title bar and the status line under it.
func (m Model) headerView() string {
	titleText := "qdmboxsearch"
	if m.version != "" && m.version != "dev" {
		titleText = fmt.Sprintf("qdmboxsearch [%s]", m.version)
	}
	line1Content := fmt.Sprintf("%s - %s", titleText, filepath.Base(m.path))
	line1 := titleBarStyle.Render(padRight(line1Content, m.width-2)) // -2 for padding

	breadcrumb := m.buildBreadcrumb()
	statsStr := m.buildStatsString()

	breadcrumbStyled := statsStyle.Render(" " + breadcrumb + " ")
	statsStyled := statsStyle.Render(statsStr + " ")
	gap := m.width - lipgloss.Width(breadcrumbStyled) - lipgloss.Width(statsStyled)
	if gap < 0 {
		gap = 0
	}
	line2 := breadcrumbStyled + strings.Repeat(" ", gap) + statsStyled

	return line1 + "\n" + line2
}

// buildBreadcrumb builds the location text for the status line.
func (m Model) buildBreadcrumb() string {
	switch m.level {
	case levelLoading:
		return "Loading"
	case levelMessageList:
		if m.searchQuery != "" {
			return "Search Results"
		}
		return "All Messages"
	case levelMessageDetail:
		subject := ""
		if m.detailIndex < len(m.results) {
			subject = m.results[m.detailIndex].Subject
		}
		return fmt.Sprintf("Message: %s", truncateRunes(subject, 50))
	default:
		return ""
	}
}

// buildStatsString summarizes scan counters for the status line.
func (m Model) buildStatsString() string {
	p := m.progress
	s := fmt.Sprintf("%d msgs | %s", p.Messages, formatBytes(p.BytesRead))
	if p.Malformed > 0 {
		s += fmt.Sprintf(" | %d malformed", p.Malformed)
	}
	if !m.loadDone {
		s += " | scanning"
	} else if m.outcome == loader.OutcomeCancelled {
		s += " | partial"
	}
	return s
}

// loadingView renders the initial loading screen.
func (m Model) loadingView() string {
	if m.loadErr != nil {
		return m.fillScreen(errorStyle.Render(padRight(fmt.Sprintf("Error: %v", m.loadErr), m.width)), 1)
	}

	var sb strings.Builder
	sb.WriteString(loadingStyle.Render(padRight(fmt.Sprintf("%s Scanning %s...", m.spinnerIndicator(), filepath.Base(m.path)), m.width)))
	sb.WriteString("\n")
	sb.WriteString(normalRowStyle.Render(padRight("  "+m.progressBar(), m.width)))
	sb.WriteString("\n")
	counts := fmt.Sprintf("  %d messages | %s read", m.progress.Messages, formatBytes(m.progress.BytesRead))
	if m.progress.Malformed > 0 {
		counts += fmt.Sprintf(" | %d malformed", m.progress.Malformed)
	}
	sb.WriteString(normalRowStyle.Render(padRight(counts, m.width)))
	return m.fillScreen(sb.String(), 3)
}

// progressBar renders a fixed-width scan progress bar, or byte counts
// when the total is unknown.
func (m Model) progressBar() string {
	p := m.progress
	if p.TotalBytes <= 0 {
		return formatBytes(p.BytesRead)
	}
	done := p.BytesRead
	if done > p.TotalBytes {
		done = p.TotalBytes
	}
	pct := int(done * 100 / p.TotalBytes)
	barWidth := 30
	filled := barWidth * pct / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	return fmt.Sprintf("[%s] %3d%%", bar, pct)
}

// messageListView renders the results table.
func (m Model) messageListView() string {
	if m.loadErr != nil {
		return m.fillScreen(errorStyle.Render(padRight(fmt.Sprintf("Error: %v", m.loadErr), m.width)), 1)
	}

	if len(m.results) == 0 {
		// While a scan or refresh is still running an empty list is
		// transient; claim emptiness only once the picture is settled.
		empty := ""
		if m.loadDone && !m.searchLoading {
			empty = "No messages"
			if m.searchQuery != "" {
				empty = "No messages found"
			}
		}
		content := normalRowStyle.Render(padRight(empty, m.width))
		return m.tableFrame(content, 1)
	}

	var sb strings.Builder

	// Column widths (3 reserved for the cursor indicator)
	seqWidth := 5
	dateWidth := 10
	fromWidth := 25
	subjectWidth := m.width - seqWidth - dateWidth - fromWidth - 9
	if subjectWidth < 20 {
		subjectWidth = 20
	}

	for i := m.scrollOffset; i < len(m.results) && i < m.scrollOffset+m.pageSize; i++ {
		msg := m.results[i]
		isCursor := i == m.cursor

		var selIndicator string
		if isCursor {
			selIndicator = cursorRowStyle.Render("▶  ")
		} else {
			selIndicator = "   "
		}

		from := truncateRunes(msg.From, fromWidth)
		from = fmt.Sprintf("%-*s", fromWidth, from)
		from = m.highlightMatches(from)

		subject := truncateRunes(msg.Subject, subjectWidth)
		subject = fmt.Sprintf("%-*s", subjectWidth, subject)
		subject = m.highlightMatches(subject)

		line := fmt.Sprintf("%*d  %-*s  %s  %s",
			seqWidth, msg.Seq,
			dateWidth, formatDate(msg.Date),
			from,
			subject,
		)

		var style lipgloss.Style
		if isCursor {
			style = cursorRowStyle
		} else if i%2 == 0 {
			style = normalRowStyle
		} else {
			style = altRowStyle
		}

		sb.WriteString(selIndicator)
		sb.WriteString(style.Render(padRight(line, m.width-3)))
		sb.WriteString("\n")
	}

	rows := len(m.results) - m.scrollOffset
	if rows > m.pageSize {
		rows = m.pageSize
	}
	return m.tableFrame(strings.TrimRight(sb.String(), "\n"), rows)
}

// tableFrame wraps list content with the table header, separator, blank
// filler, and the info line.
func (m Model) tableFrame(content string, usedLines int) string {
	seqWidth := 5
	dateWidth := 10
	fromWidth := 25
	subjectWidth := m.width - seqWidth - dateWidth - fromWidth - 9
	if subjectWidth < 20 {
		subjectWidth = 20
	}

	headerRow := fmt.Sprintf("   %*s  %-*s  %-*s  %-*s",
		seqWidth, "Seq",
		dateWidth, "Date",
		fromWidth, "From",
		subjectWidth, "Subject",
	)

	var sb strings.Builder
	sb.WriteString(tableHeaderStyle.Render(padRight(headerRow, m.width)))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	for i := usedLines; i < m.pageSize; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}
	sb.WriteString(m.listInfoLine())
	return sb.String()
}

// listInfoLine renders the line under the table: the search bar when
// open, otherwise the active query or scan status.
func (m Model) listInfoLine() string {
	isLoading := m.searchLoading || !m.loadDone

	if m.searchActive {
		return m.renderInfoLine(m.fieldTag()+"/"+m.searchInput.View(), isLoading)
	}
	if m.searchErr != nil {
		return m.renderInfoLine(fmt.Sprintf(" Search error: %v", m.searchErr), isLoading)
	}

	var info string
	if m.searchQuery != "" {
		info = fmt.Sprintf(" Search: %q (%d results) %s", m.searchQuery, len(m.results), m.fieldTag())
		if m.caseSensitive {
			info += " [case]"
		}
	}
	return m.renderInfoLine(info, isLoading)
}

// fieldTag is the short indicator for the active search field.
func (m Model) fieldTag() string {
	return "[" + m.searchField.String() + "]"
}

// messageDetailView renders one message.
func (m Model) messageDetailView() string {
	if m.bodyErr != nil {
		return m.fillScreenDetail(errorStyle.Render(padRight(fmt.Sprintf("Error loading message: %v", m.bodyErr), m.width)), 1)
	}

	if m.body == nil {
		return m.fillScreenDetail(loadingStyle.Render(padRight(m.spinnerIndicator()+" Loading message...", m.width)), 1)
	}

	lines := m.detailLines()

	detailPageSize := m.detailPageSize()
	startLine := m.detailScroll
	if startLine >= len(lines) {
		startLine = len(lines) - 1
	}
	if startLine < 0 {
		startLine = 0
	}
	endLine := startLine + detailPageSize
	if endLine > len(lines) {
		endLine = len(lines)
	}
	visibleLines := lines[startLine:endLine]

	var sb strings.Builder
	for _, line := range visibleLines {
		if m.searchQuery != "" && !m.showHTML {
			line = m.highlightMatches(line)
		}
		sb.WriteString(normalRowStyle.Render(padRight(line, m.width)))
		sb.WriteString("\n")
	}

	for i := len(visibleLines); i < detailPageSize; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}

	var info string
	if m.showHTML {
		info = " Raw HTML (o for text)"
	} else if m.body.HTML != "" {
		info = " o to view HTML part"
	}
	if len(lines) > detailPageSize {
		info += fmt.Sprintf("  [%d-%d/%d]", startLine+1, endLine, len(lines))
	}
	sb.WriteString(m.renderInfoLine(info, false))

	return sb.String()
}

// detailLines builds the rendered lines for the detail view: decoded
// headers, a separator, then the wrapped body text (or the raw HTML
// part when toggled).
func (m Model) detailLines() []string {
	if m.body == nil || m.detailIndex >= len(m.results) {
		return nil
	}
	msg := m.results[m.detailIndex]

	width := m.width
	if width <= 0 {
		width = 80
	}

	var lines []string
	if msg.From != "" {
		lines = append(lines, "From:    "+msg.From)
	}
	lines = append(lines, "Subject: "+msg.Subject)
	if !msg.Date.IsZero() {
		lines = append(lines, "Date:    "+msg.Date.Format(time.RFC1123))
	}
	lines = append(lines, strings.Repeat("─", width))

	text := m.body.DisplayText()
	if m.showHTML {
		text = m.body.HTML
	}
	if text == "" {
		lines = append(lines, "[No body content available]")
		return lines
	}

	body := wrapText(text, width)
	if len(body) > m.previewLines {
		omitted := len(body) - m.previewLines
		body = body[:m.previewLines]
		body = append(body, fmt.Sprintf("[... %d more lines]", omitted))
	}
	return append(lines, body...)
}

// footerView renders the bottom key help line.
func (m Model) footerView() string {
	var keys []string
	var posStr string

	switch m.level {
	case levelLoading:
		keys = []string{"Esc cancel", "q quit"}

	case levelMessageList:
		keys = []string{
			"↑/k",
			"↓/j",
			"Enter view",
			"/ search",
			"Tab field",
			"c case",
		}
		keys = append(keys, "q quit")
		if len(m.results) > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.cursor+1, len(m.results))
		}

	case levelMessageDetail:
		keys = []string{
			"←/→ prev/next",
			"↑/↓ scroll",
		}
		if m.body != nil && m.body.HTML != "" {
			keys = append(keys, "o html")
		}
		keys = append(keys, "Esc back", "q quit")
		if len(m.results) > 0 {
			posStr = fmt.Sprintf(" msg %d/%d ", m.detailIndex+1, len(m.results))
		}
	}

	keysStr := strings.Join(keys, " │ ")

	// lipgloss.Width is ANSI-aware and handles the Unicode arrows
	gap := m.width - lipgloss.Width(keysStr) - lipgloss.Width(posStr) - 2
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(keysStr + strings.Repeat(" ", gap) + posStr)
}

// renderInfoLine renders the info line with an optional right-aligned
// loading spinner.
func (m Model) renderInfoLine(content string, loading bool) string {
	// statsStyle has Padding(0, 1) which adds 2 characters, so content should be m.width-2
	contentWidth := m.width - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	if content == "" && !loading {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	if loading {
		indicator := m.spinnerIndicator()
		gap := contentWidth - lipgloss.Width(content) - lipgloss.Width(indicator)
		if gap < 1 {
			gap = 1
		}
		// Render spinner with bold style so it's visible (statsStyle is faint)
		content += strings.Repeat(" ", gap) + spinnerStyle.Render(indicator)
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

// fillScreenWithPageSize pads content with blank rows up to pageSize
// and closes with a blank info line.
func (m Model) fillScreenWithPageSize(content string, usedLines, pageSize int) string {
	// Guard against zero/negative width (can happen before first resize)
	if m.width <= 0 {
		return content + "\n"
	}

	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteString("\n")
	for i := usedLines; i < pageSize; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
		sb.WriteString("\n")
	}
	sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", m.width)))
	return sb.String()
}

// fillScreen fills remaining space for full-screen notices, keeping
// the same row count as the results table.
func (m Model) fillScreen(content string, usedLines int) string {
	return m.fillScreenWithPageSize(content, usedLines, m.pageSize+2)
}

// tableFrame-less views in the detail level have two extra rows.
func (m Model) fillScreenDetail(content string, usedLines int) string {
	return m.fillScreenWithPageSize(content, usedLines, m.detailPageSize())
}

// highlightMatches highlights the committed query inside text.
func (m Model) highlightMatches(text string) string {
	return highlightTerm(text, m.searchQuery, m.caseSensitive)
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}
