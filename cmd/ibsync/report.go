package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/ibroadcast/ibsync/internal/catalog"
	"github.com/ibroadcast/ibsync/internal/sync"
)

const clearLine = "\r\x1b[2K"

// reporter prints per-file results. live enables an in-place progress line,
// which only makes sense on a terminal with a single worker.
type reporter struct {
	out  io.Writer
	root string
	live bool
}

func (r *reporter) display(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil {
		return rel
	}
	return path
}

func (r *reporter) displayAll(files []catalog.CandidateFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = r.display(f.Path)
	}
	return paths
}

func (r *reporter) progress(file catalog.CandidateFile, sent, total int64) {
	fmt.Fprintf(r.out, "%s  %s %s / %s", clearLine,
		gray.Render(r.display(file.Path)),
		humanize.Bytes(uint64(sent)),
		humanize.Bytes(uint64(total)),
	)
}

func (r *reporter) result(res sync.FileResult) {
	if r.live {
		fmt.Fprint(r.out, clearLine)
	}

	path := r.display(res.File.Path)
	switch res.Outcome {
	case sync.Uploaded:
		fmt.Fprintf(r.out, "%s %s %s\n", green.Render("UPLOADED"), path, gray.Render(humanize.Bytes(uint64(res.Size))))
	case sync.Skipped:
		fmt.Fprintf(r.out, "%s  %s %s\n", gray.Render("SKIPPED"), path, gray.Render("already uploaded"))
	case sync.Failed:
		fmt.Fprintf(r.out, "%s   %s %s\n", red.Render("FAILED"), path, res.Err)
	}
}

func (r *reporter) summary(s sync.Summary) {
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%s %d files: %s uploaded (%s), %s skipped, %s failed\n",
		cyan.Render("Done."),
		s.Total(),
		green.Render(fmt.Sprint(s.Uploaded)),
		humanize.Bytes(uint64(s.BytesUploaded)),
		gray.Render(fmt.Sprint(s.Skipped)),
		red.Render(fmt.Sprint(s.Failed)),
	)
	for _, f := range s.Failures {
		fmt.Fprintf(r.out, "  %s %s\n", red.Render("-"), r.display(f.File.Path))
	}
	if s.RunID != "" {
		fmt.Fprintf(r.out, "%s\n", gray.Render("run "+s.RunID))
	}
}
