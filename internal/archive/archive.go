// Package archive is the application facade: one Archive owns the
// load manager, the live index, and the search engine. The CLI and
// the TUI both drive this type and nothing below it.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfdurocher/qdmboxsearch/internal/index"
	"github.com/jfdurocher/qdmboxsearch/internal/loader"
	"github.com/jfdurocher/qdmboxsearch/internal/mbox"
	"github.com/jfdurocher/qdmboxsearch/internal/mime"
	"github.com/jfdurocher/qdmboxsearch/internal/search"
)

var (
	// ErrNoIndexLoaded is returned by reads before the first BeginLoad.
	// Once a load has begun, reads see its (possibly partial) index.
	ErrNoIndexLoaded = errors.New("no index loaded")

	// ErrUnknownMessage is returned for a Seq outside the snapshot.
	ErrUnknownMessage = errors.New("unknown message")
)

// Archive is the one-per-application entry point.
type Archive struct {
	mgr    *loader.Manager
	engine search.Engine
}

// New returns an Archive applying opts to every load it begins.
func New(opts loader.Options) *Archive {
	return &Archive{mgr: loader.NewManager(opts)}
}

// BeginLoad starts loading path on a background session, cancelling
// and replacing any previous session and its index wholesale.
func (a *Archive) BeginLoad(ctx context.Context, path string) (*loader.Session, error) {
	if path == "" {
		return nil, fmt.Errorf("no mbox path given")
	}
	return a.mgr.Begin(ctx, path), nil
}

// CancelLoad cancels the active load, if any. The prefix indexed so
// far stays searchable.
func (a *Archive) CancelLoad() {
	if s := a.mgr.Current(); s != nil {
		s.Cancel()
	}
}

// Session returns the most recent load session, nil before the first
// BeginLoad.
func (a *Archive) Session() *loader.Session {
	return a.mgr.Current()
}

// State reports the current load state, StateIdle before the first
// load.
func (a *Archive) State() loader.State {
	s := a.mgr.Current()
	if s == nil {
		return loader.StateIdle
	}
	return s.State()
}

// Snapshot returns the current index snapshot. While a load runs this
// is a valid prefix of the file.
func (a *Archive) Snapshot() (index.Snapshot, error) {
	s := a.mgr.Current()
	if s == nil {
		return index.Snapshot{}, ErrNoIndexLoaded
	}
	return s.Index().Snapshot(), nil
}

// Search runs one query against the current snapshot.
func (a *Archive) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	snap, err := a.Snapshot()
	if err != nil {
		return nil, err
	}
	return a.engine.Search(ctx, snap, query, opts)
}

// Body fetches and decodes one message's body by Seq. Decode defects
// degrade to best-effort text recorded on the Body; only missing
// messages and I/O failures error.
func (a *Archive) Body(ctx context.Context, seq int) (*mime.Body, error) {
	snap, err := a.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seq < 0 || seq >= snap.Len() {
		return nil, fmt.Errorf("message %d: %w", seq, ErrUnknownMessage)
	}

	raw, err := snap.Raw(snap.Records[seq])
	if err != nil {
		return nil, err
	}
	body, _ := mime.ParseBody(mbox.Unescape(raw))
	return body, nil
}
