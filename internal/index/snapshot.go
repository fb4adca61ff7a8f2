package index

import (
	"fmt"
	"io"
	"os"

	"github.com/jfdurocher/qdmboxsearch/internal/mbox"
)

// Snapshot is a stable view of an index: the records appended up to
// some point, plus what is needed to re-read their bytes. A snapshot
// taken mid-load is a valid prefix of the final index.
type Snapshot struct {
	Records  []Record
	Path     string
	FileSize int64
	Complete bool
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int { return len(s.Records) }

// Raw reads the message's stored bytes, header block included, exactly
// as they sit in the file. No unescaping.
func (s Snapshot) Raw(rec Record) ([]byte, error) {
	return s.readRange(rec.HeaderOffset, rec.End)
}

// Body reads the message's body bytes with mboxrd From-escapes removed.
func (s Snapshot) Body(rec Record) ([]byte, error) {
	b, err := s.readRange(rec.BodyOffset, rec.End)
	if err != nil {
		return nil, err
	}
	return mbox.Unescape(b), nil
}

// readRange opens the source file, reads [start, end), and closes it.
// A short read (file truncated since indexing) surfaces as an error
// rather than zero-padded bytes.
func (s Snapshot) readRange(start, end int64) ([]byte, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid byte range [%d, %d)", start, end)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s to %d: %w", s.Path, start, err)
	}
	buf := make([]byte, end-start)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("read %s [%d, %d): %w", s.Path, start, end, err)
	}
	return buf, nil
}
