package mboxtest

import (
	"os"
	"strings"
	"testing"

	"github.com/jfdurocher/qdmboxsearch/internal/mbox"
)

func TestRender_Layout(t *testing.T) {
	got := Render(Message{
		Headers: []string{"Subject: Hello"},
		Body:    "Line one\nLine two",
	})
	want := "From sender@example.com Mon Jan 1 00:00:00 2024\n" +
		"Subject: Hello\n" +
		"\n" +
		"Line one\nLine two\n" +
		"\n"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestWrite_SplitsAgreeWithGoMbox(t *testing.T) {
	path := Write(t,
		Message{From: "a@example.com", Headers: []string{"Subject: First"}, Body: "Body one"},
		Message{From: "b@example.com", Date: "Tue Jan 2 00:00:00 2024", Headers: []string{"Subject: Second"}, Body: "Body two\n>From escaped line"},
		Message{From: "c@example.com", Headers: []string{"Subject: Third"}, Body: "Body three"},
	)

	foreign := ReadWithGoMbox(t, path)
	if len(foreign) != 3 {
		t.Fatalf("go-mbox found %d messages, want 3", len(foreign))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	r := mbox.NewReader(f)
	var count int
	for {
		msg, err := r.Next()
		if err != nil {
			break
		}
		if !strings.Contains(string(msg.Header), "Subject:") {
			t.Errorf("message %d header missing Subject: %q", count, msg.Header)
		}
		count++
	}
	if count != len(foreign) {
		t.Fatalf("our reader found %d messages, go-mbox found %d", count, len(foreign))
	}

	for i, want := range []string{"Subject: First", "Subject: Second", "Subject: Third"} {
		if !strings.Contains(string(foreign[i]), want) {
			t.Errorf("go-mbox message %d missing %q:\n%s", i, want, foreign[i])
		}
	}
}
