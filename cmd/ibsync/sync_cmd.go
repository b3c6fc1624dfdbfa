package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ibroadcast/ibsync/internal/catalog"
	"github.com/ibroadcast/ibsync/internal/config"
	"github.com/ibroadcast/ibsync/internal/ibsdk"
	"github.com/ibroadcast/ibsync/internal/journal"
	"github.com/ibroadcast/ibsync/internal/sync"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// test seams
var (
	confirmUpload    = runConfirmTUI
	stdoutIsTerminal = func() bool { return isatty.IsTerminal(os.Stdout.Fd()) }
)

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 2 {
		cfg.Username, cfg.Password = args[0], args[1]
	}

	out := cmd.OutOrStdout()
	if cfg.Username != "" && cfg.Password == "" && stdinIsTerminal() {
		if cfg.Password, err = promptPassword(out, cfg.Username); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	cmd.SilenceUsage = true

	restoreLog, err := attachLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer restoreLog()
	slog.Debug("ibsync", "config", cfg)

	client, err := ibsdk.New(cfg.SDKConfig())
	if err != nil {
		return err
	}

	rep := &reporter{out: out, root: cfg.RootDir, live: cfg.Workers == 1 && stdoutIsTerminal()}
	opts := []sync.Option{
		sync.WithWorkers(cfg.Workers),
		sync.WithCatalogOptions(catalogOptions(cfg)...),
	}
	if rep.live {
		opts = append(opts, sync.WithProgress(rep.progress))
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if errors.Is(err, journal.ErrJournalLocked) {
			return fmt.Errorf("another ibsync run is using %s: %w", cfg.JournalPath, err)
		} else if err != nil {
			return err
		}
		defer closeQuietly(j)
		opts = append(opts, sync.WithRecorder(j))
	}

	engine := sync.New(client, sync.Credentials{Username: cfg.Username, Password: cfg.Password}, opts...)
	ctx := cmd.Context()

	fmt.Fprintln(out, "Logging in...")
	if err := engine.Authenticate(ctx); err != nil {
		return err
	}
	session, _ := engine.Session()
	fmt.Fprintf(out, "Login successful - user_id: %s\n", session.Identity.UserID)

	files, err := engine.Enumerate(cfg.RootDir)
	if err != nil {
		return err
	}

	if !cfg.AssumeYes {
		if !stdinIsTerminal() {
			fmt.Fprintln(out, yellow.Render(fmt.Sprintf("Found %d files. stdin is not a terminal, pass --yes to upload without confirmation.", len(files))))
			fmt.Fprintln(out, red.Render("Aborting"))
			return nil
		}
		ok, err := confirmUpload(rep.displayAll(files))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, red.Render("Aborting"))
			return nil
		}
	}
	fmt.Fprintf(out, "Starting upload of %d files.\n", len(files))

	var summary sync.Summary
	for res, err := range engine.Transfer(ctx, files) {
		if err != nil {
			summary.RunID = engine.RunID()
			rep.summary(summary)
			return err
		}
		summary.Add(res)
		rep.result(res)
	}
	summary.RunID = engine.RunID()
	rep.summary(summary)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total())
	}
	return nil
}

func catalogOptions(cfg *config.Config) []catalog.Option {
	var opts []catalog.Option
	if len(cfg.Ignore) > 0 {
		opts = append(opts, catalog.WithIgnore(cfg.Ignore...))
	}
	if cfg.FoldCase {
		opts = append(opts, catalog.WithFoldCase())
	}
	return opts
}
