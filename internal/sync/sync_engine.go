package sync

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/ibroadcast/ibsync/internal/catalog"
	"github.com/ibroadcast/ibsync/internal/ibsdk"
)

// Engine runs authenticate → enumerate → fetch known hashes → per file
// (hash, decide, skip or upload). It is meant for a single run: nothing is
// cached between runs, so re-running after any failure is always safe.
type Engine struct {
	remote      Remote
	creds       Credentials
	workers     int
	recorder    Recorder
	progress    ProgressFunc
	catalogOpts []catalog.Option

	mu      sync.Mutex
	session *ibsdk.Session
	state   State
	runID   string
}

type Option func(*Engine)

// WithWorkers hashes and uploads up to n files at once. Results are still
// reported in enumeration order. Default 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(e *Engine) {
		e.catalogOpts = append(e.catalogOpts, opts...)
	}
}

func New(remote Remote, creds Credentials, opts ...Option) *Engine {
	e := &Engine{
		remote:  remote,
		creds:   creds,
		workers: 1,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authenticate logs in once. A later call after success is a no-op; a failed
// attempt is not retried by the engine.
func (e *Engine) Authenticate(ctx context.Context) error {
	if _, ok := e.Session(); ok {
		return nil
	}

	e.setState(StateAuthenticating)
	slog.Info("sync", "state", StateAuthenticating, "user", e.creds.Username)

	session, err := e.remote.Authenticate(ctx, e.creds.Username, e.creds.Password)
	if err != nil {
		e.setState(StateFailed)
		return fmt.Errorf("authenticate: %w", err)
	}

	e.mu.Lock()
	e.session = session
	e.state = StateAuthenticated
	e.mu.Unlock()

	slog.Info("sync", "state", StateAuthenticated, "identity", session.Identity, "extensions", session.Extensions.Cardinality())
	return nil
}

// Session returns the login result once Authenticate succeeded
func (e *Engine) Session() (*ibsdk.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, e.session != nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RunID identifies the latest Transfer, empty before the first one
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Catalog returns the file catalog for the authenticated identity's extensions.
func (e *Engine) Catalog() (*catalog.Catalog, error) {
	session, ok := e.Session()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return catalog.New(session.Extensions, e.catalogOpts...), nil
}

// Candidates lazily enumerates root. Before authentication the sequence
// yields ErrNotAuthenticated and nothing else.
func (e *Engine) Candidates(root string) iter.Seq2[catalog.CandidateFile, error] {
	return func(yield func(catalog.CandidateFile, error) bool) {
		cat, err := e.Catalog()
		if err != nil {
			yield(catalog.CandidateFile{}, err)
			return
		}
		for file, err := range cat.Enumerate(root) {
			if !yield(file, err) || err != nil {
				return
			}
		}
	}
}

// Enumerate lists every candidate under root, so a caller can show or
// confirm the list before Transfer.
func (e *Engine) Enumerate(root string) ([]catalog.CandidateFile, error) {
	if _, ok := e.Session(); !ok {
		return nil, ErrNotAuthenticated
	}

	e.setState(StateEnumerating)
	files, err := catalog.Collect(e.Candidates(root))
	if err != nil {
		e.setState(StateFailed)
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}

	e.setState(StateEnumerated)
	slog.Info("sync", "state", StateEnumerated, "root", root, "candidates", len(files))
	return files, nil
}

// Run authenticates if needed, enumerates root completely, then transfers.
// Authentication and enumeration failures end the sequence before any file
// is processed.
func (e *Engine) Run(ctx context.Context, root string) iter.Seq2[FileResult, error] {
	return func(yield func(FileResult, error) bool) {
		if err := e.Authenticate(ctx); err != nil {
			yield(FileResult{}, err)
			return
		}

		files, err := e.Enumerate(root)
		if err != nil {
			yield(FileResult{}, err)
			return
		}

		for res, err := range e.Transfer(ctx, files) {
			if !yield(res, err) || err != nil {
				return
			}
		}
	}
}
