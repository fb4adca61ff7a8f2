// Package mime provides message header handling and MIME body decoding.
//
// Header parsing is deliberately lightweight and tolerant: the loader runs
// it on every message of an archive, so a defective header block degrades
// to recorded defects rather than an error. Full MIME parsing via enmime
// happens lazily, only when a body is fetched.
package mime

import (
	"bytes"
	stdmime "mime"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"

	"github.com/jfdurocher/qdmboxsearch/internal/textutil"
)

// HeaderField is a single header field as encountered, with continuation
// lines already folded into Value.
type HeaderField struct {
	Name  string
	Value string
}

// Header is an ordered multimap of RFC 5322 header fields. Repeated
// fields keep their encounter order and are never collapsed. Defects
// records recoverable problems found while parsing the block.
type Header struct {
	Fields  []HeaderField
	Defects []string
}

// ParseHeader parses a raw header block (as returned by the mbox reader)
// into a Header. It never fails: junk lines before the first field are
// skipped, and a malformed line after valid fields ends the header
// portion, both recorded as defects.
func ParseHeader(block []byte) Header {
	var h Header
	for _, raw := range bytes.Split(block, []byte("\n")) {
		line := bytes.TrimRight(raw, "\r")
		if len(line) == 0 {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(h.Fields) == 0 {
				h.addDefect("continuation line before any header field")
				continue
			}
			last := &h.Fields[len(h.Fields)-1]
			last.Value += " " + string(bytes.TrimSpace(line))
			continue
		}

		name, value, ok := splitField(line)
		if !ok {
			if len(h.Fields) == 0 {
				h.addDefect("skipping non-header line before first field")
				continue
			}
			h.addDefect("non-header line ends header block; treating remainder as body spill")
			break
		}
		h.Fields = append(h.Fields, HeaderField{Name: name, Value: value})
	}
	return h
}

// splitField splits "Name: value", requiring a printable ASCII field name.
func splitField(line []byte) (name, value string, ok bool) {
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	rawName := line[:idx]
	for _, c := range rawName {
		if c <= ' ' || c > '~' {
			return "", "", false
		}
	}
	return string(rawName), string(bytes.TrimSpace(line[idx+1:])), true
}

func (h *Header) addDefect(msg string) {
	h.Defects = append(h.Defects, msg)
}

// Get returns the first value of the named field, or "". Lookup is
// case-insensitive.
func (h Header) Get(name string) string {
	for _, f := range h.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value of the named field in encounter order.
func (h Header) Values(name string) []string {
	var out []string
	for _, f := range h.Fields {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Has reports whether the named field is present.
func (h Header) Has(name string) bool {
	for _, f := range h.Fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Subject returns the decoded Subject field.
func (h Header) Subject() string {
	return DecodeRFC2047(h.Get("Subject"))
}

// From returns the decoded From field in display form.
func (h Header) From() string {
	return DecodeRFC2047(h.Get("From"))
}

// MessageID returns the Message-ID field without its angle brackets.
func (h Header) MessageID() string {
	return strings.Trim(h.Get("Message-ID"), "<>")
}

// Date returns the parsed Date field in UTC, or the zero time when the
// field is absent or unparseable.
func (h Header) Date() time.Time {
	t, _ := parseDate(h.Get("Date"))
	return t
}

var wordDecoder = stdmime.WordDecoder{CharsetReader: charset.Reader}

// DecodeRFC2047 decodes encoded words (=?charset?enc?...?=) in a header
// value. A bad encoded word falls back to the raw input rather than
// failing; either way the result is forced to valid UTF-8.
func DecodeRFC2047(s string) string {
	if strings.Contains(s, "=?") {
		if decoded, err := wordDecoder.DecodeHeader(s); err == nil {
			return textutil.EnsureUTF8(decoded)
		}
	}
	return textutil.EnsureUTF8(s)
}

// dateFormats lists common email date formats for parseDate.
var dateFormats = []string{
	time.RFC1123Z,                           // "Mon, 02 Jan 2006 15:04:05 -0700"
	time.RFC1123,                            // "Mon, 02 Jan 2006 15:04:05 MST"
	"Mon, 2 Jan 2006 15:04:05 -0700",        // Single-digit day
	"Mon, 2 Jan 2006 15:04:05 MST",          // Single-digit day with named TZ
	"2 Jan 2006 15:04:05 -0700",             // No weekday
	"2 Jan 2006 15:04:05 MST",               // No weekday, named TZ
	"02 Jan 2006 15:04:05 -0700",            // No weekday, zero-padded
	"02 Jan 2006 15:04:05 MST",              // No weekday, zero-padded, named TZ
	time.RFC822Z,                            // "02 Jan 06 15:04 -0700"
	time.RFC822,                             // "02 Jan 06 15:04 MST"
	time.RFC850,                             // "Monday, 02-Jan-06 15:04:05 MST"
	time.ANSIC,                              // "Mon Jan _2 15:04:05 2006"
	time.UnixDate,                           // "Mon Jan _2 15:04:05 MST 2006"
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)", // With parenthesized TZ
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",  // Single-digit day with paren TZ
	time.RFC3339,                            // "2006-01-02T15:04:05Z07:00" (ISO 8601)
	"2006-01-02T15:04:05Z",                  // ISO 8601 UTC
	"2006-01-02T15:04:05-07:00",             // ISO 8601 with offset
	"2006-01-02 15:04:05 -0700",             // SQL-like format
	"2006-01-02 15:04:05",                   // SQL-like without TZ
}

// parseDate attempts to parse a date string in various formats. Returns
// the time in UTC for consistent display and sorting. Unparseable dates
// yield the zero time, not an error: malformed dates are common in email
// and must not fail the message.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	// Normalize whitespace runs, then try once with any trailing
	// parenthesized zone name stripped and once with the original.
	s = strings.Join(strings.Fields(s), " ")
	baseStr := s
	if idx := strings.LastIndex(s, "("); idx > 0 {
		baseStr = strings.TrimSpace(s[:idx])
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, baseStr); err == nil {
			return t.UTC(), nil
		}
	}
	if baseStr != s {
		for _, format := range dateFormats {
			if t, err := time.Parse(format, s); err == nil {
				return t.UTC(), nil
			}
		}
	}

	return time.Time{}, nil
}
