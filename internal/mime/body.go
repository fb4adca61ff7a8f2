package mime

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Body holds the displayable content of one message.
type Body struct {
	Text    string
	HTML    string
	Defects []string // non-fatal parsing problems
}

// ParseBody parses raw message bytes (header block included, so enmime
// sees Content-Type) into a Body. On envelope parse failure it returns a
// best-effort Body holding the undecoded text after the header block
// together with the error, so viewing and searching degrade instead of
// disappearing; callers may log the error and keep the Body.
func ParseBody(raw []byte) (*Body, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		b := &Body{Text: rawBodyText(raw)}
		b.Defects = append(b.Defects, err.Error())
		return b, fmt.Errorf("parse MIME envelope: %w", err)
	}

	b := &Body{Text: env.Text, HTML: env.HTML}
	for _, e := range env.Errors {
		b.Defects = append(b.Defects, e.Error())
	}
	return b, nil
}

// rawBodyText cuts the bytes after the first empty line for the
// degraded-parse path.
func rawBodyText(raw []byte) string {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return string(raw[i+4:])
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return string(raw[i+2:])
	}
	return ""
}

// DisplayText returns the best available text: the plain text part,
// falling back to stripped HTML. This is what both the viewer shows and
// the body search matches against.
func (b *Body) DisplayText() string {
	if b.Text != "" {
		return b.Text
	}
	if b.HTML != "" {
		return StripHTML(b.HTML)
	}
	return ""
}

// Block tags that should create line breaks when stripped.
var blockTagRe = regexp.MustCompile(`(?i)<(/?)(p|div|br|hr|h[1-6]|li|tr|td|th|blockquote|pre|table|ul|ol|dl|dt|dd)[^>]*>`)

// Content-stripping tags need one pattern each (no backreferences in RE2).
var (
	scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTagRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTagRe   = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML removes HTML tags, decodes entities, and normalizes
// whitespace. Block elements become line breaks so the output reads as
// plain text paragraphs.
//
// Preformatted content (<pre>, <code>) loses its exact spacing since runs
// of spaces are collapsed; for message preview that beats keeping markup.
func StripHTML(rawHTML string) string {
	text := scriptTagRe.ReplaceAllString(rawHTML, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = headTagRe.ReplaceAllString(text, "")

	// Opening and closing block tags both emit a newline so consecutive
	// blocks like </p><p> keep their separation.
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")

	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, " ", " ")

	// Collapse space runs per line, keep the line structure.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}
