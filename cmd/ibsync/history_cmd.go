package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/ibroadcast/ibsync/internal/journal"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 10

var errNoJournal = errors.New("no journal configured")

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past sync runs, or the files of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return errNoJournal
			}
			cmd.SilenceUsage = true

			j, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer closeQuietly(j)

			if len(args) == 1 {
				return printEntries(cmd.OutOrStdout(), j, args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return printRuns(cmd.OutOrStdout(), j, limit)
		},
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of runs to show (0 for all)")
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(gray).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cyan.Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func printRuns(w io.Writer, j *journal.Journal, limit int) error {
	runs, err := j.Runs(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded yet.")
		return err
	}

	t := newTable("RUN", "STARTED", "FILES", "UPLOADED", "SKIPPED", "FAILED", "BYTES")
	for _, r := range runs {
		t.Row(
			r.RunID,
			humanize.Time(r.StartedAt),
			fmt.Sprint(r.Total()),
			fmt.Sprint(r.Uploaded),
			fmt.Sprint(r.Skipped),
			fmt.Sprint(r.Failed),
			humanize.Bytes(uint64(r.BytesUploaded)),
		)
	}
	_, err = fmt.Fprintln(w, t.String())
	return err
}

func printEntries(w io.Writer, j *journal.Journal, runID string) error {
	entries, err := j.Entries(runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries for run %s", runID)
	}

	t := newTable("OUTCOME", "PATH", "MD5", "SIZE", "ERROR")
	for _, e := range entries {
		t.Row(e.Outcome, e.Path, e.Fingerprint, humanize.Bytes(uint64(e.Size)), e.Error)
	}
	_, err = fmt.Fprintln(w, t.String())
	return err
}
