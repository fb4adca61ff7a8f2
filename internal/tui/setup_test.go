package tui

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jfdurocher/qdmboxsearch/internal/archive"
	"github.com/jfdurocher/qdmboxsearch/internal/loader"
	"github.com/jfdurocher/qdmboxsearch/internal/testutil/mboxtest"
)

const ansiStart = "\x1b["

// Tests that assert on styled output force a fixed color profile;
// lipgloss keeps that in process-global state, so serialize them.
var colorProfileMu sync.Mutex

func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(prev)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyEnd   = tea.KeyMsg{Type: tea.KeyEnd}
	keyHome  = tea.KeyMsg{Type: tea.KeyHome}
)

// sendMsg runs one message through Update and returns the concrete model.
func sendMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	nm, _ := m.Update(msg)
	out, ok := nm.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", nm)
	}
	return out
}

func sendKey(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	return sendMsg(t, m, k)
}

// fixtureMessages builds n distinct fixture messages.
func fixtureMessages(n int) []mboxtest.Message {
	msgs := make([]mboxtest.Message, n)
	for i := range msgs {
		msgs[i] = mboxtest.Message{
			Headers: []string{
				fmt.Sprintf("Subject: message %d", i),
				fmt.Sprintf("From: person%d@example.com", i),
				"Date: Mon, 1 Jan 2024 10:00:00 +0000",
			},
			Body: fmt.Sprintf("body text %d\n", i),
		}
	}
	return msgs
}

// newTestModel builds an un-loaded model over a fixture archive with a
// fixed 80x24 window applied.
func newTestModel(t *testing.T, msgs ...mboxtest.Message) Model {
	t.Helper()
	arch := archive.New(loader.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	m := New(arch, Options{Path: mboxtest.Write(t, msgs...)})
	return sendMsg(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// loadModel drives a full load through Update the way the runtime
// would: begin, pump every session event, then the channel close.
func loadModel(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.beginLoad()()
	if be, ok := msg.(loadBeginErrMsg); ok {
		t.Fatalf("begin load: %v", be.err)
	}
	started, ok := msg.(loadStartedMsg)
	if !ok {
		t.Fatalf("begin load returned %T", msg)
	}
	m = sendMsg(t, m, started)
	for ev := range started.sess.Events() {
		m = sendMsg(t, m, loadEventMsg{ev: ev})
	}
	return sendMsg(t, m, loadClosedMsg{})
}

// refreshResults executes the pending list query synchronously and
// feeds its response back in, standing in for the async search cmd.
func refreshResults(t *testing.T, m Model) Model {
	t.Helper()
	return sendMsg(t, m, m.runSearch(m.searchQuery)())
}

// loadedModel is newTestModel + loadModel + refreshResults: a model
// sitting on the message list with results populated.
func loadedModel(t *testing.T, msgs ...mboxtest.Message) Model {
	t.Helper()
	return refreshResults(t, loadModel(t, newTestModel(t, msgs...)))
}
