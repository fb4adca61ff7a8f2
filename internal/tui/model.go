// Package tui provides the interactive terminal browser for mbox archives.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfdurocher/qdmboxsearch/internal/archive"
	"github.com/jfdurocher/qdmboxsearch/internal/loader"
	"github.com/jfdurocher/qdmboxsearch/internal/mime"
	"github.com/jfdurocher/qdmboxsearch/internal/search"
)

// viewLevel represents the current navigation depth.
type viewLevel int

const (
	levelLoading viewLevel = iota
	levelMessageList
	levelMessageDetail
)

// Options configures the TUI model.
type Options struct {
	Path          string // mbox file to browse
	Field         string // initial search field (all, subject, body)
	CaseSensitive bool
	BodyWorkers   int
	PageSize      int // rows per page before the first resize arrives
	PreviewLines  int // max body lines rendered in the detail view
	Version       string
}

// Model is the main TUI model following the Elm architecture.
type Model struct {
	arch    *archive.Archive
	path    string
	version string

	// Terminal dimensions
	width    int
	height   int
	pageSize int

	level viewLevel

	// Load state, fed by session events
	events   <-chan loader.Event
	progress loader.Progress
	loadDone bool
	outcome  loader.Outcome
	loadErr  error

	// Spinner
	spinnerFrame  int
	spinnerActive bool

	// Results list. An empty query lists every indexed message.
	results      []search.Result
	cursor       int
	scrollOffset int

	// Search state
	searchInput     textinput.Model
	searchActive    bool // input bar open
	searchQuery     string
	searchField     search.Field
	caseSensitive   bool
	bodyWorkers     int
	searchLoading   bool
	searchErr       error
	searchRequestID uint64

	// Detail view
	detailIndex     int // index into results
	body            *mime.Body
	bodyErr         error
	detailScroll    int
	showHTML        bool
	previewLines    int
	detailRequestID uint64

	quitting bool
}

// New creates a TUI model over arch, which must not have been loaded
// yet; Init starts the load.
func New(arch *archive.Archive, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "search (Tab: field)"
	ti.CharLimit = 200
	ti.Width = 50

	field, err := search.ParseField(opts.Field)
	if err != nil {
		field = search.FieldAll
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	previewLines := opts.PreviewLines
	if previewLines < 1 {
		previewLines = 400
	}

	return Model{
		arch:          arch,
		path:          opts.Path,
		version:       opts.Version,
		pageSize:      pageSize,
		level:         levelLoading,
		spinnerActive: true,
		searchInput:   ti,
		searchField:   field,
		caseSensitive: opts.CaseSensitive,
		bodyWorkers:   opts.BodyWorkers,
		previewLines:  previewLines,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.beginLoad(), spinnerTick())
}

// loadStartedMsg is sent once the load session is running.
type loadStartedMsg struct {
	sess *loader.Session
}

// loadBeginErrMsg is sent when the load could not start at all.
type loadBeginErrMsg struct {
	err error
}

// loadEventMsg carries one session event into the update loop.
type loadEventMsg struct {
	ev loader.Event
}

// loadClosedMsg is sent when the session's event channel closes.
type loadClosedMsg struct{}

// searchResultsMsg is sent when an async search finishes.
type searchResultsMsg struct {
	results   []search.Result
	err       error
	requestID uint64 // To detect stale responses
}

// bodyLoadedMsg is sent when a message body has been read and decoded.
type bodyLoadedMsg struct {
	index     int
	body      *mime.Body
	err       error
	requestID uint64
}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// beginLoad starts the archive load in the background.
func (m Model) beginLoad() tea.Cmd {
	arch, path := m.arch, m.path
	return func() tea.Msg {
		sess, err := arch.BeginLoad(context.Background(), path)
		if err != nil {
			return loadBeginErrMsg{err: err}
		}
		return loadStartedMsg{sess: sess}
	}
}

// waitForLoadEvent blocks on the session event channel and hands the
// next event to Update. Re-armed after every event until the channel
// closes.
func waitForLoadEvent(events <-chan loader.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return loadClosedMsg{}
		}
		return loadEventMsg{ev: ev}
	}
}

// runSearch executes the current query against the archive. An empty
// query lists everything.
func (m Model) runSearch(query string) tea.Cmd {
	requestID := m.searchRequestID
	arch := m.arch
	opts := search.Options{
		Field:         m.searchField,
		CaseSensitive: m.caseSensitive,
		BodyWorkers:   m.bodyWorkers,
	}
	return func() tea.Msg {
		results, err := arch.Search(context.Background(), query, opts)
		return searchResultsMsg{results: results, err: err, requestID: requestID}
	}
}

// loadBody reads and decodes the body of the message at results[index].
func (m Model) loadBody(index int) tea.Cmd {
	requestID := m.detailRequestID
	arch := m.arch
	seq := m.results[index].Seq
	return func() tea.Msg {
		body, err := arch.Body(context.Background(), seq)
		return bodyLoadedMsg{index: index, body: body, err: err, requestID: requestID}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active. Call this when async work begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width < 0 {
			m.width = 0
		}
		if m.height < 0 {
			m.height = 0
		}
		// Reserve space for: title bar (1) + status line (1) + table header (1) +
		// separator (1) + info line (1) + footer (1) = 6
		m.pageSize = m.height - 6
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		m.ensureCursorVisible()
		m.clampDetailScroll()
		return m, nil

	case loadStartedMsg:
		m.events = msg.sess.Events()
		return m, waitForLoadEvent(m.events)

	case loadBeginErrMsg:
		m.loadDone = true
		m.outcome = loader.OutcomeFailed
		m.loadErr = msg.err
		return m, nil

	case loadEventMsg:
		return m.handleLoadEvent(msg.ev)

	case loadClosedMsg:
		return m, nil

	case searchResultsMsg:
		// Ignore stale responses from previous searches
		if msg.requestID != m.searchRequestID {
			return m, nil
		}
		m.searchLoading = false
		if msg.err != nil {
			m.searchErr = msg.err
			return m, nil
		}
		m.searchErr = nil
		m.results = msg.results
		if m.cursor >= len(m.results) {
			m.cursor = len(m.results) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureCursorVisible()
		return m, nil

	case bodyLoadedMsg:
		if msg.requestID != m.detailRequestID {
			return m, nil
		}
		m.body = msg.body
		m.bodyErr = msg.err
		m.detailScroll = 0
		return m, nil

	case spinnerTickMsg:
		if m.spinnerActive {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			if m.stillBusy() {
				return m, spinnerTick()
			}
			m.spinnerActive = false
		}
		return m, nil
	}

	return m, nil
}

// stillBusy reports whether any async work warrants spinner animation.
func (m Model) stillBusy() bool {
	return (!m.loadDone && m.loadErr == nil) || m.searchLoading ||
		(m.level == levelMessageDetail && m.body == nil && m.bodyErr == nil)
}

// handleLoadEvent folds one session event into the model.
func (m Model) handleLoadEvent(ev loader.Event) (tea.Model, tea.Cmd) {
	m.progress = ev.Progress

	switch ev.Kind {
	case loader.EventProgress:
		var refresh tea.Cmd
		if m.level == levelLoading && ev.Progress.Messages > 0 {
			// Messages are browsable as soon as they are indexed.
			m.level = levelMessageList
			m.searchRequestID++
			refresh = m.runSearch(m.searchQuery)
		} else if m.level != levelLoading && m.searchQuery == "" && !m.searchActive {
			// Keep the identity listing growing while the scan runs.
			m.searchRequestID++
			refresh = m.runSearch("")
		}
		return m, tea.Batch(refresh, waitForLoadEvent(m.events))

	case loader.EventDone:
		m.loadDone = true
		m.outcome = ev.Outcome
		if ev.Outcome == loader.OutcomeFailed {
			m.loadErr = ev.Err
			return m, waitForLoadEvent(m.events)
		}
		if m.level == levelLoading {
			m.level = levelMessageList
		}
		// Final refresh over the complete (or cancelled) index.
		m.searchRequestID++
		m.searchLoading = true
		return m, tea.Batch(m.runSearch(m.searchQuery), waitForLoadEvent(m.events))
	}

	return m, waitForLoadEvent(m.events)
}

// ensureCursorVisible adjusts scroll offset to keep cursor in view.
func (m *Model) ensureCursorVisible() {
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+m.pageSize {
		m.scrollOffset = m.cursor - m.pageSize + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	switch m.level {
	case levelLoading:
		return m.headerView() + "\n" + m.loadingView() + "\n" + m.footerView()
	case levelMessageList:
		return m.headerView() + "\n" + m.messageListView() + "\n" + m.footerView()
	case levelMessageDetail:
		return m.headerView() + "\n" + m.messageDetailView() + "\n" + m.footerView()
	}

	return ""
}
