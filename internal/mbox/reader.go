// Package mbox implements a streaming reader for MBOX files.
//
// The reader splits an archive on Unix "From " separator lines and reports
// each message as byte ranges into the source stream, materializing only the
// header block. Bodies stay on disk; callers fetch them later by range.
//
// A column-zero "From " line is a separator only when it opens the scan or
// immediately follows an empty line; a "From " line inside a paragraph is
// ordinary content. Archives whose bodies contain unescaped "From " text
// after blank lines can additionally require a ctime-like date on separator
// lines via (*Reader).RequireSeparatorDate.
//
// mboxrd escaping: lines matching ^>+From  lose a single leading '>' when
// read. This can mutate literal ">From " lines in pure mboxo exports; call
// (*Reader).SetUnescapeFrom(false) to disable unescaping if needed.
package mbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxLineBytes = 32 << 20 // 32 MiB

// ErrHeaderTooLarge is returned by Next together with the affected message
// when its header block exceeds the reader's limit. The message's offsets
// are valid and Header holds the prefix that fit; the scan continues with
// the following message.
var ErrHeaderTooLarge = errors.New("mbox header block exceeds max size")

// Message is one message located by a scan. All offsets are absolute byte
// positions in the source stream: Offset addresses the "From " separator
// line, HeaderOffset the first byte after it, BodyOffset the first byte
// after the empty line ending the headers (equal to End when there is no
// body), and End the next separator line or end of file.
//
// Offset < HeaderOffset <= BodyOffset <= End always holds, and the bytes in
// [HeaderOffset, End) are exactly the stored message content: headers, the
// empty line, the body, and any trailing empty line before the next
// separator.
type Message struct {
	// FromLine is the separator line (without trailing newline).
	FromLine string

	Offset       int64
	HeaderOffset int64
	BodyOffset   int64
	End          int64

	// Header is the raw header block, folded lines intact, with mboxrd
	// unescaping applied unless disabled. It excludes the terminating
	// empty line.
	Header []byte
}

type offsetReader struct {
	r io.Reader
	n int64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	o.n += int64(n)
	return n, err
}

// Reader reads messages from an MBOX stream.
// It is safe for large files: body bytes are never buffered.
type Reader struct {
	or *offsetReader
	br *bufio.Reader

	// pendingFrom is the already-read separator line for the next message,
	// captured while finishing the previous one.
	pendingFrom   string
	pendingOffset int64
	hasPending    bool
	eof           bool

	maxHeaderBytes int64
	unescapeFrom   bool
	strictDate     bool
}

// NewReader creates a new MBOX reader.
func NewReader(r io.Reader) *Reader {
	or := &offsetReader{r: r}
	// If the underlying reader is seekable (e.g. *os.File), initialize the
	// counter from the current position so offsets remain absolute after a
	// prior Seek().
	if s, ok := r.(io.Seeker); ok {
		if off, err := s.Seek(0, io.SeekCurrent); err == nil {
			or.n = off
		}
	}
	return &Reader{
		or:           or,
		br:           bufio.NewReader(or),
		unescapeFrom: true,
	}
}

// NewReaderWithMaxHeaderBytes creates a new MBOX reader that caps a single
// message's header block at maxHeaderBytes. If maxHeaderBytes <= 0, no
// limit is enforced.
func NewReaderWithMaxHeaderBytes(r io.Reader, maxHeaderBytes int64) *Reader {
	rd := NewReader(r)
	rd.maxHeaderBytes = maxHeaderBytes
	return rd
}

// SetUnescapeFrom controls whether the reader performs mboxrd-style
// unescaping of ^>+From  lines in returned header bytes. The default is
// true.
func (r *Reader) SetUnescapeFrom(enabled bool) {
	r.unescapeFrom = enabled
}

// RequireSeparatorDate controls whether a separator line must also carry a
// parseable ctime-like date. The default is false: any column-zero "From "
// line after an empty line (or at the start of the scan) opens a message.
func (r *Reader) RequireSeparatorDate(enabled bool) {
	r.strictDate = enabled
}

// Offset reports the current logical read offset (bytes consumed) within
// the underlying stream, accounting for buffered data.
func (r *Reader) Offset() int64 {
	return r.or.n - int64(r.br.Buffered())
}

// Next returns the next message from the MBOX stream.
// Returns io.EOF when there are no more messages.
//
// When a header block exceeds the reader's limit, Next returns the message
// together with ErrHeaderTooLarge rather than failing the scan; see the
// error's documentation.
func (r *Reader) Next() (*Message, error) {
	if r.eof && !r.hasPending {
		return nil, io.EOF
	}

	// Find the first separator. This loop only runs before any message has
	// been returned; afterwards the separator is always captured while
	// scanning the previous body. Content before the first separator is
	// skipped.
	if !r.hasPending {
		prevBlank := true // the start of the scan opens a separator position
		for {
			lineStart := r.Offset()
			line, err := r.readLineBytes()
			if err != nil && err != io.EOF {
				return nil, err
			}
			if len(line) > 0 && r.isSeparator(line, prevBlank) {
				r.pendingFrom = string(trimEOL(line))
				r.pendingOffset = lineStart
				r.hasPending = true
				break
			}
			prevBlank = isBlankLine(line)
			if err == io.EOF {
				r.eof = true
				return nil, io.EOF
			}
		}
	}

	msg := &Message{
		FromLine: r.pendingFrom,
		Offset:   r.pendingOffset,
	}
	r.hasPending = false
	msg.HeaderOffset = r.Offset()

	// Scan the header block, then the body. Inside the header block no line
	// follows an empty one, so separator checks only apply once the headers
	// have been closed off.
	var hdr bytes.Buffer
	var hdrErr error
	inHeader := true
	prevBlank := false

	for {
		lineStart := r.Offset()
		line, err := r.readLineBytes()

		if len(line) > 0 {
			switch {
			case !inHeader && r.isSeparator(line, prevBlank):
				// Found the next message separator; stash it for the next call.
				r.pendingFrom = string(trimEOL(line))
				r.pendingOffset = lineStart
				r.hasPending = true
				msg.End = lineStart
				msg.Header = hdr.Bytes()
				return msg, hdrErr
			case inHeader && isBlankLine(line):
				inHeader = false
				msg.BodyOffset = r.Offset()
				prevBlank = true
			case inHeader:
				b := line
				if r.unescapeFrom {
					b = unescapeFromLine(line)
				}
				if hdrErr == nil {
					if r.maxHeaderBytes > 0 && int64(hdr.Len()+len(b)) > r.maxHeaderBytes {
						hdrErr = fmt.Errorf("%w: limit %d bytes", ErrHeaderTooLarge, r.maxHeaderBytes)
					} else {
						hdr.Write(b)
					}
				}
				prevBlank = false
			default:
				prevBlank = isBlankLine(line)
			}
		}

		if err != nil {
			if err == io.EOF {
				r.eof = true
				end := r.Offset()
				if inHeader {
					// Headers ran to end of file; the message has no body.
					msg.BodyOffset = end
				}
				msg.End = end
				msg.Header = hdr.Bytes()
				return msg, hdrErr
			}
			return nil, err
		}
	}
}

func (r *Reader) readLineBytes() ([]byte, error) {
	// ReadBytes returns bufio.ErrBufferFull when the buffer fills before
	// finding the delimiter. Treat that as a partial line and keep
	// accumulating.
	var out []byte
	for {
		b, err := r.br.ReadBytes('\n')
		out = append(out, b...)
		if len(out) > maxLineBytes {
			return nil, fmt.Errorf("mbox line exceeds max length (%d bytes)", maxLineBytes)
		}
		if err == nil {
			return out, nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err == io.EOF {
			return out, io.EOF
		}
		if len(out) > 0 {
			return out, err
		}
		return nil, err
	}
}

var fromPrefix = []byte("From ")

// isSeparator reports whether line opens a new message. prevBlank is true
// when the previous line was empty or the line starts the scan.
func (r *Reader) isSeparator(line []byte, prevBlank bool) bool {
	if !prevBlank || !bytes.HasPrefix(line, fromPrefix) {
		return false
	}
	if !r.strictDate {
		return true
	}
	_, ok := ParseFromSeparatorDate(string(trimEOL(line)))
	return ok
}

func trimEOL(line []byte) []byte {
	return bytes.TrimRight(line, "\r\n")
}

func isBlankLine(line []byte) bool {
	return len(trimEOL(line)) == 0
}

// unescapeFromLine removes a single leading '>' from any line that matches
// ^>+From  (mboxrd unquoting). This also works for mboxo where only
// ">From " appears for originally "From " lines.
func unescapeFromLine(line []byte) []byte {
	if len(line) == 0 || line[0] != '>' {
		return line
	}

	i := 0
	for i < len(line) && line[i] == '>' {
		i++
	}
	if i < len(line) && bytes.HasPrefix(line[i:], fromPrefix) {
		return line[1:]
	}
	return line
}

var escapedFrom = []byte(">From ")

// Unescape applies mboxrd unquoting to every line of b, removing one
// leading '>' from lines matching ^>+From . Used on body bytes fetched
// back from disk; header bytes are unescaped during the scan. Returns b
// unchanged when no line needs unquoting.
func Unescape(b []byte) []byte {
	if !bytes.Contains(b, escapedFrom) {
		return b
	}
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		var line []byte
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line, b = b[:i+1], b[i+1:]
		} else {
			line, b = b, nil
		}
		out = append(out, unescapeFromLine(line)...)
	}
	return out
}

// Validate scans the stream and returns an error if it doesn't look like an
// MBOX file. It reads up to maxBytes from the stream. This is a heuristic
// for early warnings only; a file with no separators still loads as an
// empty archive.
func Validate(r io.Reader, maxBytes int64) error {
	if maxBytes <= 0 {
		return fmt.Errorf("maxBytes must be > 0")
	}
	br := bufio.NewReader(io.LimitReader(r, maxBytes))
	prevBlank := true
	for {
		line, err := br.ReadString('\n')
		if prevBlank && strings.HasPrefix(line, "From ") {
			return nil
		}
		prevBlank = len(strings.TrimRight(line, "\r\n")) == 0
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("no \"From \" separators found (not an mbox file?)")
			}
			return err
		}
	}
}
