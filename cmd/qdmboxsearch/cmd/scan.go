package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfdurocher/qdmboxsearch/internal/archive"
	"github.com/jfdurocher/qdmboxsearch/internal/loader"
	"github.com/jfdurocher/qdmboxsearch/internal/mbox"
)

var (
	scanStrict      bool
	scanKeepEscapes bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <mbox-file>",
	Short: "Scan an mbox archive and report what it holds",
	Long: `Scan an mbox archive, indexing message boundaries and headers.

The scan streams the file once and keeps only offsets and decoded
headers in memory; bodies stay on disk. Progress is reported live and
the scan can be interrupted with Ctrl+C.

Examples:
  qdmboxsearch scan ~/mail/archive.mbox
  qdmboxsearch scan --strict-separators takeout.mbox`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := loaderOptions()
		if scanStrict {
			opts.StrictSeparators = true
		}
		if scanKeepEscapes {
			opts.KeepFromEscapes = true
		}

		// A separator-free file still scans as an empty archive, so
		// sniff it up front and warn instead of silently indexing
		// nothing. Open errors surface through the load itself.
		if f, err := os.Open(args[0]); err == nil {
			if verr := mbox.Validate(f, 8<<20); verr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s: %v\n", args[0], verr)
			}
			f.Close()
		}

		arch := archive.New(opts)
		sess, err := arch.BeginLoad(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		start := time.Now()
		progress := NewCLIProgress(os.Stderr)
		progress.OnStart()

		var final loader.Event
		for ev := range sess.Events() {
			switch ev.Kind {
			case loader.EventProgress:
				progress.OnProgress(ev.Progress)
			case loader.EventDone:
				final = ev
			}
		}
		progress.OnDone()

		switch final.Outcome {
		case loader.OutcomeCancelled:
			fmt.Fprintln(os.Stderr, "Scan interrupted.")
			return final.Err
		case loader.OutcomeFailed:
			return fmt.Errorf("scan %s: %w", args[0], final.Err)
		}

		p := final.Progress
		fmt.Println("Scan complete!")
		fmt.Printf("  File:       %s\n", sess.Path())
		fmt.Printf("  Duration:   %s\n", time.Since(start).Round(time.Second))
		fmt.Printf("  Messages:   %d\n", p.Messages)
		if p.Malformed > 0 {
			fmt.Printf("  Malformed:  %d (indexed with partial headers)\n", p.Malformed)
		}
		fmt.Printf("  Bytes:      %s\n", formatSize(p.BytesRead))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanStrict, "strict-separators", false, `require a date on "From " separator lines`)
	scanCmd.Flags().BoolVar(&scanKeepEscapes, "keep-from-escapes", false, "keep mboxrd >From quoting as stored")
}
