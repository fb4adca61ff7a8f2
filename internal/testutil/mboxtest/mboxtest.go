// Package mboxtest builds mbox archive fixtures for tests: classic
// blank-line-separated archives written byte-precisely, so offset and
// round-trip assertions can be made against the rendered text.
package mboxtest

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gombox "github.com/emersion/go-mbox"
)

// Message describes one fixture message. Zero-value fields get usable
// defaults; bodies are written verbatim, so fixtures that need mboxrd
// escaping spell it out explicitly.
type Message struct {
	From    string   // separator sender, default sender@example.com
	Date    string   // ctime-like separator date, default Mon Jan 1 00:00:00 2024
	Headers []string // header lines without newlines
	Body    string   // body text, may be multiline
}

func (m Message) separator() string {
	from := m.From
	if from == "" {
		from = "sender@example.com"
	}
	date := m.Date
	if date == "" {
		date = "Mon Jan 1 00:00:00 2024"
	}
	return "From " + from + " " + date
}

// Render joins messages into mbox text: separator line, headers, empty
// line, body, and an empty line closing each message.
func Render(msgs ...Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.separator())
		b.WriteString("\n")
		for _, h := range m.Headers {
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.Body != "" {
			b.WriteString(m.Body)
			if !strings.HasSuffix(m.Body, "\n") {
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Write renders the messages into a temp file and returns its path.
func Write(t *testing.T, msgs ...Message) string {
	t.Helper()
	return WriteRaw(t, Render(msgs...))
}

// WriteRaw writes preassembled archive text into a temp file.
func WriteRaw(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.mbox")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

// ReadWithGoMbox re-reads an archive with the emersion/go-mbox reader and
// returns each message's raw bytes. Well-formed fixtures must split the
// same way under both readers, which corroborates boundary decisions
// independently of our own scanner.
func ReadWithGoMbox(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	mr := gombox.NewReader(f)
	var out [][]byte
	for {
		r, err := mr.NextMessage()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("go-mbox NextMessage: %v", err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("go-mbox read message: %v", err)
		}
		out = append(out, data)
	}
}
