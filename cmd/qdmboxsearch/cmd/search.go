package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfdurocher/qdmboxsearch/internal/archive"
	"github.com/jfdurocher/qdmboxsearch/internal/loader"
	"github.com/jfdurocher/qdmboxsearch/internal/search"
	"github.com/jfdurocher/qdmboxsearch/internal/textutil"
)

var (
	searchField string
	searchCase  bool
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <mbox-file> <query...>",
	Short: "Search an mbox archive for a substring",
	Long: `Search an mbox archive for messages containing a substring.

The archive is scanned first (progress on stderr), then searched.
Subject matches come straight from the in-memory index; body matches
read the message text back from the file on demand.

Fields:
  all       Subject first, then body (default)
  subject   Subject only
  body      Body only

Examples:
  qdmboxsearch search archive.mbox invoice
  qdmboxsearch search archive.mbox --field subject "quarterly report"
  qdmboxsearch search archive.mbox --case-sensitive ACME --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Join the remaining args to form the query (allows unquoted
		// multi-term searches)
		query := strings.Join(args[1:], " ")

		if searchField == "" {
			searchField = cfg.Search.Field
		}
		field, err := search.ParseField(searchField)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("case-sensitive") {
			searchCase = cfg.Search.CaseSensitive
		}

		arch, err := loadArchive(cmd, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Searching...")
		results, err := arch.Search(cmd.Context(), query, search.Options{
			Field:         field,
			CaseSensitive: searchCase,
			Limit:         searchLimit,
			BodyWorkers:   cfg.Search.BodyWorkers,
		})
		fmt.Fprintf(os.Stderr, "\r            \r")
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No messages found.")
			return nil
		}

		if searchJSON {
			return outputSearchResultsJSON(results)
		}
		return outputSearchResultsTable(results)
	},
}

// loadArchive scans path with progress on stderr and hands back the
// archive once the load finishes. Cancellation and read failures come
// back as errors.
func loadArchive(cmd *cobra.Command, path string) (*archive.Archive, error) {
	arch := archive.New(loaderOptions())
	sess, err := arch.BeginLoad(cmd.Context(), path)
	if err != nil {
		return nil, err
	}

	progress := NewCLIProgress(os.Stderr)
	progress.OnStart()
	for ev := range sess.Events() {
		if ev.Kind == loader.EventProgress {
			progress.OnProgress(ev.Progress)
		}
	}
	progress.OnDone()

	if _, err := sess.Wait(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return arch, nil
}

func outputSearchResultsTable(results []search.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tDATE\tFROM\tSUBJECT")
	fmt.Fprintln(w, "───\t────\t────\t───────")

	for _, msg := range results {
		// Decoded headers can hold multi-byte runes; byte slicing
		// would split them.
		from := textutil.TruncateRunes(msg.From, 30)
		subject := textutil.TruncateRunes(msg.Subject, 50)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", msg.Seq, formatDate(msg.Date), from, subject)
	}

	w.Flush()
	fmt.Printf("\nShowing %d results\n", len(results))
	return nil
}

func outputSearchResultsJSON(results []search.Result) error {
	output := make([]map[string]interface{}, len(results))
	for i, msg := range results {
		date := ""
		if !msg.Date.IsZero() {
			date = msg.Date.Format(time.RFC3339)
		}
		output[i] = map[string]interface{}{
			"seq":     msg.Seq,
			"subject": msg.Subject,
			"from":    msg.From,
			"date":    date,
			"offset":  msg.Offset,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// formatDate renders a message date for table output; undated messages
// show a blank column instead of the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchField, "field", "", "search field: all, subject, or body")
	searchCmd.Flags().BoolVar(&searchCase, "case-sensitive", false, "match case exactly")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = unlimited)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}
