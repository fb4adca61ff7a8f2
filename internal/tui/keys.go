package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfdurocher/qdmboxsearch/internal/search"
)

// handleKeyPress dispatches a key event based on the active view.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchActive {
		return m.handleSearchInputKeys(msg)
	}

	switch m.level {
	case levelLoading:
		return m.handleLoadingKeys(msg)
	case levelMessageList:
		return m.handleMessageListKeys(msg)
	case levelMessageDetail:
		return m.handleDetailKeys(msg)
	}
	return m, nil
}

// handleGlobalKeys handles keys common to all views (quit).
// Returns (model, cmd, true) if the key was handled.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.arch.CancelLoad()
		return m, tea.Quit, true
	}
	return m, nil, false
}

// handleLoadingKeys handles keys on the loading screen.
func (m Model) handleLoadingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	if msg.String() == "esc" {
		// The session finishes with a cancelled outcome; the normal
		// event flow then drops us into the list with the partial index.
		m.arch.CancelLoad()
	}
	return m, nil
}

// handleSearchInputKeys handles keys while the search bar is open.
func (m Model) handleSearchInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.commitSearch()

	case "esc":
		// Close the bar, keeping whatever query was last committed.
		m.searchActive = false
		m.searchInput.Blur()
		m.searchInput.SetValue(m.searchQuery)
		return m, nil

	case "ctrl+c":
		m.quitting = true
		m.arch.CancelLoad()
		return m, tea.Quit

	case "tab":
		m.cycleField()
		return m, nil

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

// commitSearch runs the query in the search bar.
func (m Model) commitSearch() (tea.Model, tea.Cmd) {
	m.searchActive = false
	m.searchInput.Blur()
	m.searchQuery = m.searchInput.Value()
	m.cursor = 0
	m.scrollOffset = 0
	m.searchRequestID++
	m.searchLoading = true
	spin := m.startSpinner()
	return m, tea.Batch(spin, m.runSearch(m.searchQuery))
}

// cycleField advances the search field: all, subject, body.
func (m *Model) cycleField() {
	switch m.searchField {
	case search.FieldAll:
		m.searchField = search.FieldSubject
	case search.FieldSubject:
		m.searchField = search.FieldBody
	default:
		m.searchField = search.FieldAll
	}
}

// rerunActiveSearch re-executes the committed query after a field or
// case toggle; a no-op when nothing is committed.
func (m *Model) rerunActiveSearch() tea.Cmd {
	if m.searchQuery == "" {
		return nil
	}
	m.searchRequestID++
	m.searchLoading = true
	spin := m.startSpinner()
	return tea.Batch(spin, m.runSearch(m.searchQuery))
}

// handleMessageListKeys handles keys in the message list view.
func (m Model) handleMessageListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	if m.navigateList(msg.String(), len(m.results)) {
		return m, nil
	}

	switch msg.String() {
	// Back - clear the active search first, then cancel a running scan
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.searchInput.SetValue("")
			m.cursor = 0
			m.scrollOffset = 0
			m.searchRequestID++
			m.searchLoading = true
			spin := m.startSpinner()
			return m, tea.Batch(spin, m.runSearch(""))
		}
		if !m.loadDone {
			m.arch.CancelLoad()
		}
		return m, nil

	// Search - open the search bar
	case "/":
		m.searchActive = true
		m.searchInput.Focus()
		m.searchInput.SetValue(m.searchQuery)
		return m, textinput.Blink

	// Cycle search field; an active query re-runs against the new field
	case "tab":
		m.cycleField()
		return m, m.rerunActiveSearch()

	// Toggle case sensitivity
	case "c":
		m.caseSensitive = !m.caseSensitive
		return m, m.rerunActiveSearch()

	// Open the selected message
	case "enter":
		if len(m.results) > 0 && m.cursor < len(m.results) {
			m.level = levelMessageDetail
			m.detailIndex = m.cursor
			m.body = nil
			m.bodyErr = nil
			m.showHTML = false
			m.detailScroll = 0
			m.detailRequestID++
			spin := m.startSpinner()
			return m, tea.Batch(spin, m.loadBody(m.cursor))
		}
	}

	return m, nil
}

// handleDetailKeys handles keys in the message detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	switch msg.String() {
	case "esc":
		m.level = levelMessageList
		m.body = nil
		m.bodyErr = nil
		m.showHTML = false
		return m, nil

	case "up", "k":
		m.detailScroll--
		m.clampDetailScroll()
		return m, nil

	case "down", "j":
		m.detailScroll++
		m.clampDetailScroll()
		return m, nil

	case "pgup", "ctrl+u":
		m.detailScroll -= m.detailPageSize()
		m.clampDetailScroll()
		return m, nil

	case "pgdown", "ctrl+d", " ":
		m.detailScroll += m.detailPageSize()
		m.clampDetailScroll()
		return m, nil

	case "home", "g":
		m.detailScroll = 0
		return m, nil

	case "end", "G":
		m.detailScroll = m.maxDetailScroll()
		return m, nil

	case "left", "h":
		return m.changeDetailMessage(-1)

	case "right", "l":
		return m.changeDetailMessage(1)

	// Toggle between decoded text and the raw HTML part
	case "o":
		if m.body != nil && m.body.HTML != "" {
			m.showHTML = !m.showHTML
			m.detailScroll = 0
		}
		return m, nil
	}

	return m, nil
}

// changeDetailMessage moves to an adjacent message in the detail view.
func (m Model) changeDetailMessage(delta int) (tea.Model, tea.Cmd) {
	if len(m.results) == 0 {
		return m, nil
	}
	newIndex := m.detailIndex + delta
	if newIndex < 0 || newIndex >= len(m.results) {
		return m, nil
	}

	m.detailIndex = newIndex
	m.cursor = newIndex
	m.ensureCursorVisible()
	m.body = nil
	m.bodyErr = nil
	m.showHTML = false
	m.detailScroll = 0
	m.detailRequestID++
	spin := m.startSpinner()
	return m, tea.Batch(spin, m.loadBody(newIndex))
}

// navigateList applies list navigation keys to the cursor. Returns
// true if the key was a navigation key.
func (m *Model) navigateList(key string, itemCount int) bool {
	changed := false

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			changed = true
		}
	case "down", "j":
		if m.cursor < itemCount-1 {
			m.cursor++
			changed = true
		}
	case "pgup", "ctrl+u":
		m.cursor -= m.pageSize
		if m.cursor < 0 {
			m.cursor = 0
		}
		changed = true
	case "pgdown", "ctrl+d":
		m.cursor += m.pageSize
		if m.cursor >= itemCount {
			m.cursor = itemCount - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		changed = true
	case "home":
		m.cursor = 0
		m.scrollOffset = 0
		return true
	case "end", "G":
		m.cursor = itemCount - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
		changed = true
	default:
		return false
	}

	if changed {
		m.ensureCursorVisible()
	}
	return true
}

// detailPageSize is the number of body lines visible in the detail
// view; it has two extra rows since there is no table header row.
func (m Model) detailPageSize() int {
	return m.pageSize + 2
}

// maxDetailScroll is the largest useful detailScroll value.
func (m Model) maxDetailScroll() int {
	max := len(m.detailLines()) - m.detailPageSize()
	if max < 0 {
		max = 0
	}
	return max
}

func (m *Model) clampDetailScroll() {
	if m.level != levelMessageDetail {
		m.detailScroll = 0
		return
	}
	if max := m.maxDetailScroll(); m.detailScroll > max {
		m.detailScroll = max
	}
	if m.detailScroll < 0 {
		m.detailScroll = 0
	}
}
