package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults for Options fields left zero.
const (
	DefaultMaxHeaderBytes   = 1 << 20 // 1 MiB per message header block
	DefaultProgressInterval = 200 * time.Millisecond
)

// Options configure how sessions scan.
type Options struct {
	// MaxHeaderBytes caps a single message's header block. Messages
	// over the cap are indexed as malformed with a truncated header.
	// Zero means DefaultMaxHeaderBytes.
	MaxHeaderBytes int64

	// ProgressInterval is the minimum spacing between progress events.
	// Zero means DefaultProgressInterval.
	ProgressInterval time.Duration

	// StrictSeparators additionally requires a ctime-style date on
	// "From " separator lines.
	StrictSeparators bool

	// KeepFromEscapes disables mboxrd ">From" unescaping.
	KeepFromEscapes bool

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Manager starts sessions and enforces that at most one is ever
// writing: beginning a load cancels and waits out the previous one.
type Manager struct {
	opts Options

	mu  sync.Mutex
	cur *Session
}

// NewManager returns a manager applying opts to every session.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts.withDefaults()}
}

// Begin starts loading path on a background goroutine, first cancelling
// and waiting out any session still running. The returned session is
// already live; its index replaces the previous one wholesale.
func (m *Manager) Begin(ctx context.Context, path string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur != nil {
		m.cur.Cancel()
		<-m.cur.done
	}

	sctx, cancel := context.WithCancel(ctx)
	s := newSession(path, cancel)
	go s.run(sctx, m.opts)
	m.cur = s
	return s
}

// Current returns the most recent session, or nil before the first
// Begin.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}
