package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jfdurocher/qdmboxsearch/internal/loader"
	"github.com/jfdurocher/qdmboxsearch/internal/search"
	"github.com/jfdurocher/qdmboxsearch/internal/testutil/mboxtest"
)

func newTestArchive() *Archive {
	return New(loader.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// loadArchive begins a load and waits it out.
func loadArchive(t *testing.T, a *Archive, path string) {
	t.Helper()
	s, err := a.BeginLoad(context.Background(), path)
	if err != nil {
		t.Fatalf("BeginLoad() failed: %v", err)
	}
	if _, err := s.Wait(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}

func TestArchive_ReadsBeforeFirstLoad(t *testing.T) {
	a := newTestArchive()
	ctx := context.Background()

	if a.State() != loader.StateIdle {
		t.Errorf("State() = %v, want idle", a.State())
	}
	if _, err := a.Snapshot(); !errors.Is(err, ErrNoIndexLoaded) {
		t.Errorf("Snapshot() err = %v, want ErrNoIndexLoaded", err)
	}
	if _, err := a.Search(ctx, "x", search.Options{}); !errors.Is(err, ErrNoIndexLoaded) {
		t.Errorf("Search() err = %v, want ErrNoIndexLoaded", err)
	}
	if _, err := a.Body(ctx, 0); !errors.Is(err, ErrNoIndexLoaded) {
		t.Errorf("Body() err = %v, want ErrNoIndexLoaded", err)
	}
	if a.Session() != nil {
		t.Errorf("Session() non-nil before first load")
	}
}

func TestArchive_BeginLoadRequiresPath(t *testing.T) {
	if _, err := newTestArchive().BeginLoad(context.Background(), ""); err == nil {
		t.Fatalf("BeginLoad(\"\") succeeded, want error")
	}
}

func TestArchive_LoadSearchBody(t *testing.T) {
	path := mboxtest.Write(t,
		mboxtest.Message{
			Headers: []string{"Subject: Invoice 123", "From: billing@example.com"},
			Body:    "document attached\n",
		},
		mboxtest.Message{
			Headers: []string{"Subject: Re: lunch", "From: sam@example.com"},
			Body:    "the invoice was paid yesterday\n",
		},
	)
	a := newTestArchive()
	loadArchive(t, a, path)
	ctx := context.Background()

	if a.State() != loader.StateCompleted {
		t.Errorf("State() = %v, want completed", a.State())
	}

	results, err := a.Search(ctx, "invoice", search.Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	body, err := a.Body(ctx, 1)
	if err != nil {
		t.Fatalf("Body() failed: %v", err)
	}
	if !strings.Contains(body.DisplayText(), "invoice was paid") {
		t.Errorf("DisplayText() = %q", body.DisplayText())
	}
}

func TestArchive_BodyUnknownSeq(t *testing.T) {
	path := mboxtest.Write(t, mboxtest.Message{Headers: []string{"Subject: only"}, Body: "x\n"})
	a := newTestArchive()
	loadArchive(t, a, path)

	for _, seq := range []int{-1, 1, 99} {
		if _, err := a.Body(context.Background(), seq); !errors.Is(err, ErrUnknownMessage) {
			t.Errorf("Body(%d) err = %v, want ErrUnknownMessage", seq, err)
		}
	}
}

func TestArchive_BodyUnescapesStoredForm(t *testing.T) {
	data := strings.Join([]string{
		"From sender@example.com Mon Jan  1 00:00:00 2024",
		"Subject: quoted",
		"Content-Type: text/plain",
		"",
		">From here on it is quoted text",
		"",
	}, "\n")
	a := newTestArchive()
	loadArchive(t, a, mboxtest.WriteRaw(t, data))

	body, err := a.Body(context.Background(), 0)
	if err != nil {
		t.Fatalf("Body() failed: %v", err)
	}
	if got := body.DisplayText(); !strings.HasPrefix(got, "From here on") {
		t.Errorf("DisplayText() = %q, want unescaped From line", got)
	}
}

func TestArchive_ReloadReplacesIndexWholesale(t *testing.T) {
	first := mboxtest.Write(t,
		mboxtest.Message{Headers: []string{"Subject: old one"}, Body: "a\n"},
		mboxtest.Message{Headers: []string{"Subject: old two"}, Body: "b\n"},
	)
	second := mboxtest.Write(t, mboxtest.Message{Headers: []string{"Subject: new"}, Body: "c\n"})

	a := newTestArchive()
	loadArchive(t, a, first)
	loadArchive(t, a, second)

	snap, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if snap.Len() != 1 || snap.Path != second {
		t.Fatalf("snapshot = %d records of %q, want the second archive only", snap.Len(), snap.Path)
	}
	results, err := a.Search(context.Background(), "old", search.Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results from the replaced index: %+v", results)
	}
}

func TestArchive_CancelledLoadLeavesSearchablePrefix(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50000; i++ {
		fmt.Fprintf(&b, "From sender@example.com Mon Jan  1 00:00:00 2024\nSubject: bulk %d\n\nfiller body\n\n", i)
	}
	path := mboxtest.WriteRaw(t, b.String())

	a := newTestArchive()
	s, err := a.BeginLoad(context.Background(), path)
	if err != nil {
		t.Fatalf("BeginLoad() failed: %v", err)
	}
	if ev, ok := <-s.Events(); !ok || ev.Kind != loader.EventProgress {
		t.Fatalf("first event = %+v ok=%v, want progress", ev, ok)
	}
	a.CancelLoad()
	if _, err := s.Wait(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() err = %v, want context.Canceled", err)
	}
	if a.State() != loader.StateCancelled {
		t.Errorf("State() = %v, want cancelled", a.State())
	}

	snap, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() after cancel failed: %v", err)
	}
	if snap.Complete || snap.Len() == 0 {
		t.Fatalf("snapshot complete=%v len=%d, want a partial prefix", snap.Complete, snap.Len())
	}

	results, err := a.Search(context.Background(), "bulk 0", search.Options{Field: search.FieldSubject, Limit: 1})
	if err != nil {
		t.Fatalf("Search() over prefix failed: %v", err)
	}
	if len(results) != 1 || results[0].Seq != 0 {
		t.Fatalf("prefix search results = %+v", results)
	}
	if _, err := a.Body(context.Background(), 0); err != nil {
		t.Errorf("Body() over prefix failed: %v", err)
	}
}
