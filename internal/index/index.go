// Package index holds the in-memory message index a load session
// builds, and the snapshot type every reader consumes. Records carry
// header-derived metadata plus byte ranges into the source file; body
// content is never stored here.
package index

import (
	"sync"
	"time"

	"github.com/jfdurocher/qdmboxsearch/internal/mime"
)

// Record is one indexed message. Immutable once appended.
type Record struct {
	Seq          int   // 0-based position in the archive
	Offset       int64 // start of the "From " separator line
	HeaderOffset int64 // first byte after the separator line
	BodyOffset   int64 // first byte after the header block's empty line
	End          int64 // one past the last byte of the message

	Subject   string
	From      string
	Date      time.Time
	MessageID string
	Headers   mime.Header

	Malformed bool // header block had recoverable defects
}

// Index is the append-only record sequence owned by one load session.
// Exactly one goroutine appends; any number of readers take snapshots.
type Index struct {
	mu       sync.RWMutex
	records  []Record
	path     string
	fileSize int64
	complete bool
}

// New returns an empty index over the given source file.
func New(path string, fileSize int64) *Index {
	return &Index{path: path, fileSize: fileSize}
}

// Append adds a record. Loader use only.
func (ix *Index) Append(rec Record) {
	ix.mu.Lock()
	ix.records = append(ix.records, rec)
	ix.mu.Unlock()
}

// SetComplete marks the index as covering the whole file.
func (ix *Index) SetComplete() {
	ix.mu.Lock()
	ix.complete = true
	ix.mu.Unlock()
}

// SetFileSize records the source size once the loader has stat'ed it.
func (ix *Index) SetFileSize(n int64) {
	ix.mu.Lock()
	ix.fileSize = n
	ix.mu.Unlock()
}

// Len returns the current record count.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Snapshot returns a point-in-time view of the index. Records are never
// mutated after append, so the returned prefix stays valid while the
// load keeps appending.
func (ix *Index) Snapshot() Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Snapshot{
		Records:  ix.records[:len(ix.records):len(ix.records)],
		Path:     ix.path,
		FileSize: ix.fileSize,
		Complete: ix.complete,
	}
}
