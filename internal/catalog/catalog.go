// Package catalog discovers the local files eligible for upload.
//
// Traversal follows symbolic links and has no loop protection: a link that
// points back at one of its ancestors recurses until the operating system
// refuses the path (ELOOP or ENAMETOOLONG), which surfaces as ErrFilesystem.
package catalog

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	gitignore "github.com/sabhiram/go-gitignore"
)

const hiddenPrefix = "."

// ErrFilesystem is the kind of every traversal failure
var ErrFilesystem = errors.New("catalog: filesystem error")

// WalkError reports the path that could not be listed or inspected
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFilesystem, e.Path, e.Err)
}

func (e *WalkError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}

// CandidateFile is a file the sync engine should consider
type CandidateFile struct {
	Path      string // absolute
	Extension string // as found on disk, with the leading dot
}

// Catalog filters a directory tree by extension. It holds no traversal state
// so one Catalog can enumerate any number of roots, any number of times.
type Catalog struct {
	extensions mapset.Set[string]
	ignore     *gitignore.GitIgnore
	foldCase   bool
}

type Option func(*Catalog)

// WithIgnore excludes root-relative paths matching gitignore-style patterns.
// A matching directory is not descended into.
func WithIgnore(patterns ...string) Option {
	return func(c *Catalog) {
		if len(patterns) > 0 {
			c.ignore = gitignore.CompileIgnoreLines(patterns...)
		}
	}
}

// WithFoldCase matches extensions case-insensitively. Off by default, so
// `.MP3` is not eligible when the remote advertises `.mp3`.
func WithFoldCase() Option {
	return func(c *Catalog) {
		c.foldCase = true
	}
}

func New(extensions mapset.Set[string], opts ...Option) *Catalog {
	c := &Catalog{}
	for _, opt := range opts {
		opt(c)
	}

	c.extensions = mapset.NewSet[string]()
	if extensions != nil {
		for _, ext := range extensions.ToSlice() {
			c.extensions.Add(c.normalize(ext))
		}
	}
	return c
}

// Matches reports whether a file name has an eligible extension.
func (c *Catalog) Matches(name string) bool {
	ext := filepath.Ext(name)
	return ext != "" && c.extensions.ContainsOne(c.normalize(ext))
}

// Enumerate lazily walks root depth-first in directory-listing order. Each
// range over the returned sequence starts a fresh walk. The first I/O error
// is yielded as a *WalkError and ends the sequence.
func (c *Catalog) Enumerate(root string) iter.Seq2[CandidateFile, error] {
	return func(yield func(CandidateFile, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield(CandidateFile{}, &WalkError{Path: root, Err: err})
			return
		}
		c.walk(abs, abs, yield)
	}
}

// walk returns false once the consumer stopped or an error was yielded.
func (c *Catalog) walk(root, dir string, yield func(CandidateFile, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		yield(CandidateFile{}, &WalkError{Path: dir, Err: err})
		return false
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, hiddenPrefix) {
			continue
		}

		path := filepath.Join(dir, name)
		isDir, err := c.isDir(entry, path)
		if err != nil {
			yield(CandidateFile{}, &WalkError{Path: path, Err: err})
			return false
		}

		if c.ignored(root, path, isDir) {
			continue
		}

		if isDir {
			if !c.walk(root, path, yield) {
				return false
			}
			continue
		}

		if c.Matches(name) {
			if !yield(CandidateFile{Path: path, Extension: filepath.Ext(name)}, nil) {
				return false
			}
		}
	}
	return true
}

// isDir resolves symlinks, so a dangling link is an error rather than a skip.
func (c *Catalog) isDir(entry os.DirEntry, path string) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (c *Catalog) ignored(root, path string, isDir bool) bool {
	if c.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	return c.ignore.MatchesPath(rel)
}

func (c *Catalog) normalize(ext string) string {
	if c.foldCase {
		return strings.ToLower(ext)
	}
	return ext
}

// Collect drains a sequence, stopping at the first error.
func Collect(seq iter.Seq2[CandidateFile, error]) ([]CandidateFile, error) {
	var files []CandidateFile
	for file, err := range seq {
		if err != nil {
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}
