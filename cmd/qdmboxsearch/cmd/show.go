package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	showHTML    bool
	showHeaders bool
)

var showCmd = &cobra.Command{
	Use:   "show <mbox-file> <seq>",
	Short: "Show one message from an mbox archive",
	Long: `Show the decoded body of a single message, addressed by its
sequence number in the archive (the SEQ column of search output).

The archive is scanned first; only the requested message's body is
read back and decoded.

Examples:
  qdmboxsearch show archive.mbox 42
  qdmboxsearch show archive.mbox 42 --headers
  qdmboxsearch show archive.mbox 42 --html`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid sequence number %q", args[1])
		}

		arch, err := loadArchive(cmd, args[0])
		if err != nil {
			return err
		}

		snap, err := arch.Snapshot()
		if err != nil {
			return err
		}
		if seq < 0 || seq >= snap.Len() {
			return fmt.Errorf("message %d not found (archive has %d messages)", seq, snap.Len())
		}
		rec := snap.Records[seq]

		body, err := arch.Body(cmd.Context(), seq)
		if err != nil {
			return fmt.Errorf("read message %d: %w", seq, err)
		}

		const rule = "═══════════════════════════════════════════════════════════════════════════════"
		const thinRule = "───────────────────────────────────────────────────────────────────────────────"

		fmt.Println(rule)
		fmt.Printf("Message %d of %d\n", rec.Seq, snap.Len())
		fmt.Println(thinRule)
		if rec.From != "" {
			fmt.Printf("From:    %s\n", rec.From)
		}
		fmt.Printf("Subject: %s\n", rec.Subject)
		if !rec.Date.IsZero() {
			fmt.Printf("Date:    %s\n", rec.Date.Format(time.RFC1123))
		}
		if id := rec.MessageID; id != "" {
			fmt.Printf("Message-ID: %s\n", id)
		}
		fmt.Printf("Size:    %s\n", formatSize(rec.End-rec.Offset))

		if showHeaders {
			raw, err := snap.Raw(rec)
			if err != nil {
				return fmt.Errorf("read message %d: %w", seq, err)
			}
			headerLen := rec.BodyOffset - rec.HeaderOffset
			if headerLen > int64(len(raw)) {
				headerLen = int64(len(raw))
			}
			fmt.Println("\n" + thinRule)
			fmt.Print(strings.TrimRight(string(raw[:headerLen]), "\n") + "\n")
		}

		fmt.Println("\n" + rule)
		switch {
		case showHTML:
			if body.HTML == "" {
				fmt.Println("[No HTML part]")
			} else {
				fmt.Println(body.HTML)
			}
		case body.DisplayText() != "":
			fmt.Println(body.DisplayText())
		default:
			fmt.Println("[No body content available]")
		}
		fmt.Println(rule)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showHTML, "html", false, "print the raw HTML part instead of text")
	showCmd.Flags().BoolVar(&showHeaders, "headers", false, "include the stored header block")
}
