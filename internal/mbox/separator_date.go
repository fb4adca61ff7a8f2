package mbox

import (
	"fmt"
	"strings"
	"time"
)

// Layouts for the ctime-like date on a "From " separator line, covering
// the common producer variants: optional weekday, optional seconds, and a
// timezone token placed before or after the year.
var separatorDateLayouts = buildSeparatorDateLayouts()

func buildSeparatorDateLayouts() []string {
	var out []string
	for _, day := range []string{"Mon Jan 2", "Jan 2"} {
		for _, clock := range []string{"15:04:05", "15:04"} {
			out = append(out, day+" "+clock+" 2006")
			for _, zone := range []string{"-0700", "-07:00", "MST"} {
				out = append(out,
					day+" "+clock+" "+zone+" 2006",
					day+" "+clock+" 2006 "+zone)
			}
		}
	}
	return out
}

// Offsets for zone abbreviations the strict parser accepts. Anything else
// is rejected rather than silently read as UTC.
var separatorZoneOffsets = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"UT":   0,
	"Z":    0,
	"EST":  -5 * 60 * 60,
	"EDT":  -4 * 60 * 60,
	"CST":  -6 * 60 * 60,
	"CDT":  -5 * 60 * 60,
	"MST":  -7 * 60 * 60,
	"MDT":  -6 * 60 * 60,
	"PST":  -8 * 60 * 60,
	"PDT":  -7 * 60 * 60,
	"AKST": -9 * 60 * 60,
	"AKDT": -8 * 60 * 60,
	"HST":  -10 * 60 * 60,
}

func zoneOffsetFromAbbrev(abbrev string) (int, bool) {
	abbrev = strings.ToUpper(strings.Trim(abbrev, "()"))
	off, ok := separatorZoneOffsets[abbrev]
	return off, ok
}

func formatZoneOffset(offsetSeconds int) string {
	sign := '+'
	if offsetSeconds < 0 {
		sign = '-'
		offsetSeconds = -offsetSeconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, offsetSeconds/3600, (offsetSeconds%3600)/60)
}

// looksLikeZoneToken reports whether token could be a timezone: a known or
// unknown short alphabetic abbreviation, or a numeric offset.
func looksLikeZoneToken(token string) bool {
	token = strings.Trim(token, "()")
	if _, ok := zoneOffsetFromAbbrev(token); ok {
		return true
	}
	if looksLikeNumericOffset(token) {
		return true
	}
	if token == "" || len(token) > 5 || token != strings.ToUpper(token) {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

func looksLikeNumericOffset(token string) bool {
	if token == "" || (token[0] != '+' && token[0] != '-') {
		return false
	}
	digits := token[1:]
	if len(digits) == 5 && digits[2] == ':' {
		digits = digits[:2] + digits[3:]
	}
	if len(digits) != 4 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// ParseFromSeparatorDate parses the ctime-like date portion of an mbox
// "From " separator line.
//
// This is intentionally permissive and backs the opt-in strict separator
// mode: "From <sender> <ctime-like date> [extra...]", where producers may
// append extra tokens such as "remote from ...". Unknown alphabetic zone
// abbreviations are accepted and read as UTC.
func ParseFromSeparatorDate(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 || fields[0] != "From" {
		return time.Time{}, false
	}

	dateFields := fields[2:]
	for _, layout := range separatorDateLayouts {
		n := len(strings.Fields(layout))
		if len(dateFields) < n {
			continue
		}
		if t, err := time.Parse(layout, strings.Join(dateFields[:n], " ")); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFromSeparatorDateStrict parses the ctime-like date portion of an
// mbox "From " separator line, but only accepts numeric offsets or a small
// allowlist of well-known timezone abbreviations. This avoids treating
// arbitrary abbreviations as UTC, and is what backs the fallback date for
// messages without a usable Date header.
func ParseFromSeparatorDateStrict(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 || fields[0] != "From" {
		return time.Time{}, false
	}

	for _, layout := range separatorDateLayouts {
		if t, ok := parseStrictSeparatorLayout(layout, fields[2:]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseStrictSeparatorLayout tries a single layout against the tokens
// following the sender field. A zone-like token trailing a zoneless layout
// disqualifies the match, so a line carrying an unknown abbreviation is
// not read as a zoneless date plus junk.
func parseStrictSeparatorLayout(layout string, tokens []string) (time.Time, bool) {
	layoutFields := strings.Fields(layout)
	if len(tokens) < len(layoutFields) {
		return time.Time{}, false
	}

	zoneIdx := -1
	for i, f := range layoutFields {
		if f == "MST" {
			zoneIdx = i
			break
		}
	}
	hasZone := zoneIdx >= 0 || strings.Contains(layout, "-0700") || strings.Contains(layout, "-07:00")
	if !hasZone && len(tokens) > len(layoutFields) && looksLikeZoneToken(tokens[len(layoutFields)]) {
		return time.Time{}, false
	}

	dateFields := tokens[:len(layoutFields)]
	if zoneIdx < 0 {
		t, err := time.Parse(layout, strings.Join(dateFields, " "))
		return t, err == nil
	}

	off, ok := zoneOffsetFromAbbrev(dateFields[zoneIdx])
	if !ok {
		return time.Time{}, false
	}
	patched := append([]string(nil), dateFields...)
	patched[zoneIdx] = formatZoneOffset(off)
	numericLayout := strings.Replace(layout, "MST", "-0700", 1)
	t, err := time.Parse(numericLayout, strings.Join(patched, " "))
	return t, err == nil
}
