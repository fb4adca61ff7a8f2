// Package search implements substring search over an index snapshot.
// Subject matching reads only the index; body matching materializes
// each candidate's display text once per query through the snapshot's
// scoped reads.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jfdurocher/qdmboxsearch/internal/index"
	"github.com/jfdurocher/qdmboxsearch/internal/mbox"
	"github.com/jfdurocher/qdmboxsearch/internal/mime"
)

// Field selects what a query matches against.
type Field int

const (
	FieldAll Field = iota // subject or body
	FieldSubject
	FieldBody
)

func (f Field) String() string {
	switch f {
	case FieldAll:
		return "all"
	case FieldSubject:
		return "subject"
	case FieldBody:
		return "body"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField parses a field name as given on the command line.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return FieldAll, nil
	case "subject":
		return FieldSubject, nil
	case "body":
		return FieldBody, nil
	}
	return FieldAll, fmt.Errorf("unknown search field %q (want all, subject, or body)", s)
}

// Options control one search.
type Options struct {
	Field         Field
	CaseSensitive bool
	Limit         int // 0 = unlimited
	BodyWorkers   int // concurrent body reads; <=1 reads sequentially
}

// Result is one hit, carrying what a result list renders. No body.
type Result struct {
	Seq     int
	Subject string
	From    string
	Date    time.Time
	Offset  int64
}

func resultOf(rec index.Record) Result {
	return Result{
		Seq:     rec.Seq,
		Subject: rec.Subject,
		From:    rec.From,
		Date:    rec.Date,
		Offset:  rec.Offset,
	}
}

// bodyBatchPerWorker sizes the read window: enough candidates in
// flight to keep workers busy while confirming results in file order.
const bodyBatchPerWorker = 4

// Engine runs queries against snapshots. The zero value is ready to
// use.
type Engine struct{}

// Search returns every message in snap matching query, ascending Seq.
// An empty query matches everything. Matching is plain substring
// containment; case-insensitive mode lowercases both sides.
func (e Engine) Search(ctx context.Context, snap index.Snapshot, query string, opts Options) ([]Result, error) {
	if opts.BodyWorkers < 1 {
		opts.BodyWorkers = 1
	}

	if query == "" {
		n := snap.Len()
		if opts.Limit > 0 && opts.Limit < n {
			n = opts.Limit
		}
		out := make([]Result, 0, n)
		for _, rec := range snap.Records[:n] {
			out = append(out, resultOf(rec))
		}
		return out, nil
	}

	needle := query
	if !opts.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	if opts.Field == FieldSubject {
		var out []Result
		for _, rec := range snap.Records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if contains(rec.Subject, needle, opts.CaseSensitive) {
				out = append(out, resultOf(rec))
				if opts.Limit > 0 && len(out) >= opts.Limit {
					break
				}
			}
		}
		return out, nil
	}

	// Body-inspecting fields work through the file in windows: workers
	// read ahead within the window, results are confirmed in order at
	// the window boundary so Limit can stop the sweep early.
	window := opts.BodyWorkers * bodyBatchPerWorker
	var out []Result
	for start := 0; start < snap.Len(); start += window {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs := snap.Records[start:min(start+window, snap.Len())]

		subjectHit := make([]bool, len(recs))
		bodyHit := make([]bool, len(recs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.BodyWorkers)
		for i, rec := range recs {
			if opts.Field == FieldAll && contains(rec.Subject, needle, opts.CaseSensitive) {
				subjectHit[i] = true
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				text, err := bodyText(snap, rec)
				if err != nil {
					return err
				}
				bodyHit[i] = contains(text, needle, opts.CaseSensitive)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, rec := range recs {
			if subjectHit[i] || bodyHit[i] {
				out = append(out, resultOf(rec))
				if opts.Limit > 0 && len(out) >= opts.Limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func contains(s, needle string, caseSensitive bool) bool {
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return strings.Contains(s, needle)
}

// bodyText materializes the text a body query matches: the decoded
// display text when MIME parsing succeeds, its raw-bytes fallback when
// it does not. Read errors are real errors; decode defects are not.
func bodyText(snap index.Snapshot, rec index.Record) (string, error) {
	raw, err := snap.Raw(rec)
	if err != nil {
		return "", err
	}
	body, _ := mime.ParseBody(mbox.Unescape(raw))
	return body.DisplayText(), nil
}
