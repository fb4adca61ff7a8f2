// Package email builds raw RFC 5322 test messages with a fluent API.
package email

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Attachment is a MIME attachment for the builder; Data is base64-encoded
// on output.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MessageBuilder constructs MIME messages. By default messages use \n
// line endings, matching Go raw string literals; CRLF() switches to \r\n.
type MessageBuilder struct {
	from        string
	to          string
	subject     string
	date        string
	contentType string
	text        string
	htmlPart    string
	extraKeys   []string
	extraVals   []string
	attachments []Attachment
	boundary    string
	crlf        bool
	noSubject   bool
}

// NewMessage creates a MessageBuilder with usable defaults.
func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		from:     "sender@example.com",
		to:       "recipient@example.com",
		date:     "Mon, 01 Jan 2024 12:00:00 +0000",
		subject:  "Test Message",
		text:     "This is a test message body.",
		boundary: "boundary123",
	}
}

// From sets the From header.
func (b *MessageBuilder) From(v string) *MessageBuilder { b.from = v; return b }

// To sets the To header.
func (b *MessageBuilder) To(v string) *MessageBuilder { b.to = v; return b }

// Subject sets the Subject header. Use NoSubject() to omit it entirely.
func (b *MessageBuilder) Subject(v string) *MessageBuilder {
	b.subject = v
	b.noSubject = false
	return b
}

// NoSubject omits the Subject header from the output.
func (b *MessageBuilder) NoSubject() *MessageBuilder { b.noSubject = true; return b }

// Date sets the Date header.
func (b *MessageBuilder) Date(v string) *MessageBuilder { b.date = v; return b }

// ContentType overrides the Content-Type header for single-part messages.
func (b *MessageBuilder) ContentType(v string) *MessageBuilder { b.contentType = v; return b }

// Body sets the plain-text body.
func (b *MessageBuilder) Body(v string) *MessageBuilder { b.text = v; return b }

// HTMLAlternative adds an HTML part; the message becomes
// multipart/alternative with the plain text first.
func (b *MessageBuilder) HTMLAlternative(v string) *MessageBuilder { b.htmlPart = v; return b }

// Header adds an arbitrary extra header.
func (b *MessageBuilder) Header(key, value string) *MessageBuilder {
	b.extraKeys = append(b.extraKeys, key)
	b.extraVals = append(b.extraVals, value)
	return b
}

// Boundary sets the multipart boundary string.
func (b *MessageBuilder) Boundary(v string) *MessageBuilder { b.boundary = v; return b }

// WithAttachment adds an attachment, making the message multipart/mixed.
func (b *MessageBuilder) WithAttachment(filename, contentType string, data []byte) *MessageBuilder {
	b.attachments = append(b.attachments, Attachment{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	return b
}

// CRLF switches to \r\n line endings.
func (b *MessageBuilder) CRLF() *MessageBuilder { b.crlf = true; return b }

// String builds the complete MIME message.
func (b *MessageBuilder) String() string {
	nl := "\n"
	if b.crlf {
		nl = "\r\n"
	}

	var s strings.Builder
	s.WriteString("From: " + b.from + nl)
	s.WriteString("To: " + b.to + nl)
	if !b.noSubject {
		s.WriteString("Subject: " + b.subject + nl)
	}
	if b.date != "" {
		s.WriteString("Date: " + b.date + nl)
	}
	for i, k := range b.extraKeys {
		s.WriteString(k + ": " + b.extraVals[i] + nl)
	}

	switch {
	case len(b.attachments) > 0:
		b.writeMixed(&s, nl)
	case b.htmlPart != "":
		b.writeAlternative(&s, nl)
	default:
		ct := b.contentType
		if ct == "" {
			ct = `text/plain; charset="utf-8"`
		}
		s.WriteString("Content-Type: " + ct + nl)
		s.WriteString(nl)
		s.WriteString(b.text + nl)
	}

	return s.String()
}

// Bytes builds the complete MIME message.
func (b *MessageBuilder) Bytes() []byte {
	return []byte(b.String())
}

func (b *MessageBuilder) writeMixed(s *strings.Builder, nl string) {
	s.WriteString("MIME-Version: 1.0" + nl)
	s.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", b.boundary) + nl)
	s.WriteString(nl)

	s.WriteString("--" + b.boundary + nl)
	s.WriteString(`Content-Type: text/plain; charset="utf-8"` + nl)
	s.WriteString(nl)
	s.WriteString(b.text + nl)

	for _, att := range b.attachments {
		s.WriteString("--" + b.boundary + nl)
		ct := att.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		s.WriteString(fmt.Sprintf("Content-Type: %s; name=%q", ct, att.Filename) + nl)
		s.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q", att.Filename) + nl)
		s.WriteString("Content-Transfer-Encoding: base64" + nl)
		s.WriteString(nl)
		s.WriteString(base64.StdEncoding.EncodeToString(att.Data) + nl)
	}

	s.WriteString("--" + b.boundary + "--" + nl)
}

func (b *MessageBuilder) writeAlternative(s *strings.Builder, nl string) {
	s.WriteString("MIME-Version: 1.0" + nl)
	s.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", b.boundary) + nl)
	s.WriteString(nl)

	s.WriteString("--" + b.boundary + nl)
	s.WriteString(`Content-Type: text/plain; charset="utf-8"` + nl)
	s.WriteString(nl)
	s.WriteString(b.text + nl)

	s.WriteString("--" + b.boundary + nl)
	s.WriteString(`Content-Type: text/html; charset="utf-8"` + nl)
	s.WriteString(nl)
	s.WriteString(b.htmlPart + nl)

	s.WriteString("--" + b.boundary + "--" + nl)
}
