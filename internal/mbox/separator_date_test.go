package mbox

import (
	"testing"
	"time"
)

func TestParseFromSeparatorDate_Variants(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string // RFC3339 in UTC; empty means the parse must fail
	}{
		{"plain ctime", "From a@b Mon Jan 1 00:00:00 2024", "2024-01-01T00:00:00Z"},
		{"no weekday", "From a@b Jan 1 00:00:00 2024", "2024-01-01T00:00:00Z"},
		{"no seconds", "From a@b Mon Jan 1 00:00 2024", "2024-01-01T00:00:00Z"},
		{"numeric offset before year", "From a@b Mon Jan 1 00:00:00 -0700 2024", "2024-01-01T07:00:00Z"},
		{"numeric offset after year", "From a@b Mon Jan 1 00:00:00 2024 -0700", "2024-01-01T07:00:00Z"},
		{"colon offset", "From a@b Mon Jan 1 00:00:00 -07:00 2024", "2024-01-01T07:00:00Z"},
		{"remote from suffix", "From a@b Mon Jan 1 00:00:00 2024 remote from mail.example.com", "2024-01-01T00:00:00Z"},
		{"no date", "From Bob's desk, have a great day", ""},
		{"not a From line", "Subject: Mon Jan 1 00:00:00 2024", ""},
		{"too few fields", "From a@b Jan 2024", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts, ok := ParseFromSeparatorDate(tc.line)
			if tc.want == "" {
				if ok {
					t.Fatalf("expected not ok, got %v", ts)
				}
				return
			}
			if !ok {
				t.Fatalf("expected ok")
			}
			if got := ts.UTC().Format(time.RFC3339); got != tc.want {
				t.Fatalf("ts=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseFromSeparatorDateStrict_ParsesKnownTZAbbrev(t *testing.T) {
	line := "From a@b Mon Jan 1 00:00:00 PST 2024"
	ts, ok := ParseFromSeparatorDateStrict(line)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got, want := ts.UTC().Format(time.RFC3339), "2024-01-01T08:00:00Z"; got != want {
		t.Fatalf("ts=%q, want %q", got, want)
	}
}

func TestParseFromSeparatorDateStrict_ParsesKnownTZAbbrevAfterYear(t *testing.T) {
	line := "From a@b Mon Jan 1 00:00:00 2024 PST"
	ts, ok := ParseFromSeparatorDateStrict(line)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got, want := ts.UTC().Format(time.RFC3339), "2024-01-01T08:00:00Z"; got != want {
		t.Fatalf("ts=%q, want %q", got, want)
	}
}

func TestParseFromSeparatorDateStrict_ParsesNumericOffset(t *testing.T) {
	line := "From a@b Mon Jan 1 00:00:00 -0700 2024"
	ts, ok := ParseFromSeparatorDateStrict(line)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got, want := ts.UTC().Format(time.RFC3339), "2024-01-01T07:00:00Z"; got != want {
		t.Fatalf("ts=%q, want %q", got, want)
	}
}

func TestParseFromSeparatorDateStrict_RejectsUnknownTZAbbrev(t *testing.T) {
	line := "From a@b Mon Jan 1 00:00:00 FOO 2024"
	if _, ok := ParseFromSeparatorDateStrict(line); ok {
		t.Fatalf("expected not ok")
	}
	lineAfterYear := "From a@b Mon Jan 1 00:00:00 2024 FOO"
	if _, ok := ParseFromSeparatorDateStrict(lineAfterYear); ok {
		t.Fatalf("expected not ok")
	}
	if _, ok := ParseFromSeparatorDate(line); !ok {
		t.Fatalf("expected permissive ParseFromSeparatorDate to accept line for separator detection")
	}
}
