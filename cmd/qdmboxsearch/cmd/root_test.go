package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jfdurocher/qdmboxsearch/internal/testutil/mboxtest"
)

// resetCmdState snapshots the package-level command state and restores
// it when the test ends, since cobra keeps everything global.
func resetCmdState(t *testing.T) {
	t.Helper()
	prevCfgFile, prevHome, prevVerbose := cfgFile, homeDir, verbose
	prevCfg, prevLogger := cfg, logger
	t.Cleanup(func() {
		cfgFile, homeDir, verbose = prevCfgFile, prevHome, prevVerbose
		cfg, logger = prevCfg, prevLogger
		scanStrict, scanKeepEscapes = false, false
		searchField, searchCase, searchLimit, searchJSON = "", false, 0, false
		showHTML, showHeaders = false, false
		rootCmd.SetArgs(nil)
		// Cobra only propagates the root context to a subcommand whose
		// cached ctx is nil, so clear what the last execution left behind.
		rootCmd.SetContext(nil)
		for _, c := range rootCmd.Commands() {
			c.SetContext(nil)
		}
	})
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "search", "show", "browse", "version"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestPreRunSkipsConfigForVersion(t *testing.T) {
	resetCmdState(t)
	cfg = nil

	if err := rootCmd.PersistentPreRunE(versionCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE(version) = %v", err)
	}
	if cfg != nil {
		t.Errorf("version command loaded config")
	}
}

func TestPreRunLoadsConfigAndCreatesHome(t *testing.T) {
	resetCmdState(t)
	homeDir = filepath.Join(t.TempDir(), "qdms-home")

	if err := rootCmd.PersistentPreRunE(scanCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE(scan) = %v", err)
	}
	if cfg == nil {
		t.Fatalf("config not loaded")
	}
	if cfg.HomeDir != homeDir {
		t.Errorf("cfg.HomeDir = %q, want %q", cfg.HomeDir, homeDir)
	}
	if logger == nil {
		t.Errorf("logger not initialized")
	}
}

func TestScanCommandEndToEnd(t *testing.T) {
	resetCmdState(t)
	path := mboxtest.Write(t,
		mboxtest.Message{Headers: []string{"Subject: hello"}, Body: "first\n"},
		mboxtest.Message{Headers: []string{"Subject: again"}, Body: "second\n"},
	)

	rootCmd.SetArgs([]string{"scan", path, "--home", t.TempDir()})
	if err := ExecuteContext(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
}

func TestScanCommandWarnsOnSeparatorFreeFile(t *testing.T) {
	resetCmdState(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just some notes\nno mail here\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	defer rootCmd.SetErr(nil)

	rootCmd.SetArgs([]string{"scan", path, "--home", t.TempDir()})
	if err := ExecuteContext(context.Background()); err != nil {
		t.Fatalf("scan of a separator-free file failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "Warning:") {
		t.Errorf("no warning on stderr, got: %q", stderr.String())
	}
}

func TestScanCommandMissingFile(t *testing.T) {
	resetCmdState(t)
	missing := filepath.Join(t.TempDir(), "nope.mbox")

	rootCmd.SetArgs([]string{"scan", missing, "--home", t.TempDir()})
	err := ExecuteContext(context.Background())
	if err == nil {
		t.Fatalf("scan of a missing file succeeded")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error does not name the file: %v", err)
	}
}

func TestScanCommandCancelledContext(t *testing.T) {
	resetCmdState(t)
	path := mboxtest.Write(t, mboxtest.Message{Headers: []string{"Subject: x"}, Body: "y\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"scan", path, "--home", t.TempDir()})
	err := ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSearchCommandEndToEnd(t *testing.T) {
	resetCmdState(t)
	path := mboxtest.Write(t,
		mboxtest.Message{Headers: []string{"Subject: Invoice 9"}, Body: "pay up\n"},
		mboxtest.Message{Headers: []string{"Subject: lunch"}, Body: "tacos\n"},
	)

	rootCmd.SetArgs([]string{"search", path, "invoice", "--home", t.TempDir()})
	if err := ExecuteContext(context.Background()); err != nil {
		t.Fatalf("search failed: %v", err)
	}
}

func TestSearchCommandBadField(t *testing.T) {
	resetCmdState(t)
	path := mboxtest.Write(t, mboxtest.Message{Headers: []string{"Subject: x"}, Body: "y\n"})

	rootCmd.SetArgs([]string{"search", path, "x", "--field", "sender", "--home", t.TempDir()})
	err := ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unknown search field") {
		t.Fatalf("err = %v, want unknown-field error", err)
	}
}

func TestShowCommandEndToEnd(t *testing.T) {
	resetCmdState(t)
	path := mboxtest.Write(t,
		mboxtest.Message{Headers: []string{"Subject: first"}, Body: "alpha\n"},
		mboxtest.Message{Headers: []string{"Subject: second"}, Body: "beta\n"},
	)

	rootCmd.SetArgs([]string{"show", path, "1", "--home", t.TempDir()})
	if err := ExecuteContext(context.Background()); err != nil {
		t.Fatalf("show failed: %v", err)
	}
}

func TestShowCommandInvalidSequence(t *testing.T) {
	resetCmdState(t)

	rootCmd.SetArgs([]string{"show", "whatever.mbox", "abc", "--home", t.TempDir()})
	err := ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid sequence number") {
		t.Fatalf("err = %v, want invalid-sequence error", err)
	}
}

func TestShowCommandSequenceOutOfRange(t *testing.T) {
	resetCmdState(t)
	path := mboxtest.Write(t, mboxtest.Message{Headers: []string{"Subject: only"}, Body: "x\n"})

	rootCmd.SetArgs([]string{"show", path, "5", "--home", t.TempDir()})
	err := ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not-found error", err)
	}
}

func TestVersionCommand(t *testing.T) {
	resetCmdState(t)

	rootCmd.SetArgs([]string{"version"})
	if err := ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version failed: %v", err)
	}
}
