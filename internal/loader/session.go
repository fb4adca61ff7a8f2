// Package loader runs load sessions: each session scans one mbox file
// into a fresh index on a background goroutine, streaming progress
// events and honoring cancellation at message granularity.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/jfdurocher/qdmboxsearch/internal/index"
	"github.com/jfdurocher/qdmboxsearch/internal/mbox"
	"github.com/jfdurocher/qdmboxsearch/internal/mime"
)

// Progress is a point-in-time measurement of a running load.
type Progress struct {
	BytesRead  int64
	TotalBytes int64
	Messages   int
	Malformed  int
}

// Outcome says how a finished load ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// State is a session's lifecycle position. StateIdle belongs to the
// application before its first load; sessions are born loading.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind discriminates session events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventDone
)

// Event is one update from a running session. Progress events may be
// dropped for a slow consumer; the EventDone terminal event is always
// delivered, is always last, and is followed by the channel closing.
type Event struct {
	Kind     EventKind
	Progress Progress
	Outcome  Outcome // EventDone only
	Err      error   // EventDone only; nil on success
}

// eventBuffer leaves headroom for progress while reserving the final
// slot for the terminal event.
const eventBuffer = 8

// Session is one load of one mbox file. Create via Manager.Begin.
type Session struct {
	path   string
	idx    *index.Index
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	progress Progress
	err      error
}

func newSession(path string, cancel context.CancelFunc) *Session {
	return &Session{
		path:   path,
		idx:    index.New(path, 0),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		state:  StateLoading,
	}
}

// Path returns the mbox file this session loads.
func (s *Session) Path() string { return s.path }

// Index returns the live index. Snapshots taken from it mid-load are
// valid prefixes.
func (s *Session) Index() *index.Index { return s.idx }

// Events returns the session's event stream. The channel closes after
// the terminal event; consumers that stop listening lose progress
// updates but nothing else.
func (s *Session) Events() <-chan Event { return s.events }

// Cancel requests the load stop. Safe to call repeatedly and after the
// session finished. The already-indexed prefix remains usable.
func (s *Session) Cancel() { s.cancel() }

// Wait blocks until the session reaches a terminal state and returns
// the final snapshot together with the terminal error, if any.
func (s *Session) Wait() (index.Snapshot, error) {
	<-s.done
	return s.idx.Snapshot(), s.Err()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error: nil while loading and after success,
// context.Canceled after Cancel, the scan error after a failure.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress returns the latest progress measurement.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Session) setTotal(n int64) {
	s.mu.Lock()
	s.progress.TotalBytes = n
	s.mu.Unlock()
}

func (s *Session) noteMessage(end int64, malformed bool) {
	s.mu.Lock()
	s.progress.BytesRead = end
	s.progress.Messages++
	if malformed {
		s.progress.Malformed++
	}
	s.mu.Unlock()
}

// sendProgress never blocks and never takes the last buffer slot: a
// lagging consumer drops stale progress, not the terminal event. The
// worker is the sole sender, so the headroom check cannot race.
func (s *Session) sendProgress() {
	if len(s.events) >= cap(s.events)-1 {
		return
	}
	s.events <- Event{Kind: EventProgress, Progress: s.Progress()}
}

// finish records the terminal state, emits the terminal event, and
// closes the stream. The state is visible before the event lands.
func (s *Session) finish(outcome Outcome, err error) {
	s.mu.Lock()
	switch outcome {
	case OutcomeCompleted:
		s.state = StateCompleted
	case OutcomeCancelled:
		s.state = StateCancelled
	case OutcomeFailed:
		s.state = StateFailed
	}
	s.err = err
	p := s.progress
	s.mu.Unlock()

	s.events <- Event{Kind: EventDone, Progress: p, Outcome: outcome, Err: err}
	close(s.events)
	close(s.done)
}

// ctxReader fails reads once ctx is done, bounding cancellation latency
// even inside a single oversized message.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// run is the session worker. It owns the index until the terminal
// event; a cancelled or failed scan leaves the appended prefix valid
// and the index incomplete.
func (s *Session) run(ctx context.Context, opts Options) {
	f, err := os.Open(s.path)
	if err != nil {
		s.finish(OutcomeFailed, fmt.Errorf("open mbox: %w", err))
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		s.finish(OutcomeFailed, fmt.Errorf("stat mbox: %w", err))
		return
	}
	s.idx.SetFileSize(fi.Size())
	s.setTotal(fi.Size())

	r := mbox.NewReaderWithMaxHeaderBytes(&ctxReader{ctx: ctx, r: f}, opts.MaxHeaderBytes)
	r.SetUnescapeFrom(!opts.KeepFromEscapes)
	if opts.StrictSeparators {
		r.RequireSeparatorDate(true)
	}

	emit := rate.Sometimes{First: 1, Interval: opts.ProgressInterval}
	for seq := 0; ; seq++ {
		if ctx.Err() != nil {
			s.finish(OutcomeCancelled, context.Canceled)
			return
		}

		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if msg == nil {
			if ctx.Err() != nil {
				s.finish(OutcomeCancelled, context.Canceled)
				return
			}
			s.finish(OutcomeFailed, fmt.Errorf("read mbox: %w", err))
			return
		}

		malformed := false
		if err != nil {
			// Oversized header block: offsets are valid, the header is
			// truncated. Index it and keep going.
			malformed = true
			opts.Logger.Warn("recovered oversized message header",
				"seq", seq, "offset", msg.Offset, "error", err)
		}

		h := mime.ParseHeader(msg.Header)
		if len(h.Defects) > 0 {
			malformed = true
			opts.Logger.Warn("header defects",
				"seq", seq, "offset", msg.Offset, "defects", strings.Join(h.Defects, "; "))
		}

		date := h.Date()
		if date.IsZero() {
			if t, ok := mbox.ParseFromSeparatorDateStrict(msg.FromLine); ok {
				date = t.UTC()
			}
		}

		s.idx.Append(index.Record{
			Seq:          seq,
			Offset:       msg.Offset,
			HeaderOffset: msg.HeaderOffset,
			BodyOffset:   msg.BodyOffset,
			End:          msg.End,
			Subject:      h.Subject(),
			From:         h.From(),
			Date:         date,
			MessageID:    h.MessageID(),
			Headers:      h,
			Malformed:    malformed,
		})
		s.noteMessage(msg.End, malformed)
		emit.Do(s.sendProgress)
	}

	s.mu.Lock()
	s.progress.BytesRead = s.progress.TotalBytes
	s.mu.Unlock()
	s.idx.SetComplete()
	s.finish(OutcomeCompleted, nil)
}
