package sync

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ibroadcast/ibsync/internal/catalog"
	"github.com/ibroadcast/ibsync/internal/ibsdk"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type slot struct {
	res FileResult
	err error
}

// Transfer fetches the remote fingerprint snapshot once, then hashes each
// file and uploads the ones the snapshot does not contain.
//
// Results come out in the order of files. A rejected or unreadable file is
// reported as Failed and the run goes on. Any other error (transport, server,
// cancellation) is yielded once with the file it happened on and ends the
// sequence. Files after it that were already in flight are allowed to finish
// and go to the recorder, but are not yielded.
//
// The snapshot is not updated by this run's uploads: two files with the same
// content in one run are both uploaded.
func (e *Engine) Transfer(ctx context.Context, files []catalog.CandidateFile) iter.Seq2[FileResult, error] {
	return func(yield func(FileResult, error) bool) {
		session, ok := e.Session()
		if !ok {
			yield(FileResult{}, ErrNotAuthenticated)
			return
		}

		e.setState(StateFetchingKnownHashes)
		known, err := e.remote.FetchKnown(ctx, session.Identity)
		if err != nil {
			e.setState(StateFailed)
			yield(FileResult{}, fmt.Errorf("fetch known hashes: %w", err))
			return
		}

		runID := uuid.NewString()
		e.mu.Lock()
		e.runID = runID
		e.state = StateTransferring
		e.mu.Unlock()

		slog.Info("sync", "state", StateTransferring, "run", runID, "candidates", len(files), "known", known.Len(), "workers", e.workers)

		if e.transfer(ctx, runID, session.Identity, known, files, yield) {
			e.setState(StateDone)
			slog.Info("sync", "state", StateDone, "run", runID)
		}
	}
}

// transfer schedules files on a bounded pool and yields results in input
// order. It returns true when every file was reported.
func (e *Engine) transfer(
	ctx context.Context,
	runID string,
	id ibsdk.Identity,
	known ibsdk.FingerprintSet,
	files []catalog.CandidateFile,
	yield func(FileResult, error) bool,
) bool {
	slots := make([]chan slot, len(files))
	for i := range slots {
		slots[i] = make(chan slot, 1)
	}

	var stop atomic.Bool
	done := make(chan struct{})

	go func() {
		defer close(done)

		var g errgroup.Group
		sem := semaphore.NewWeighted(int64(e.workers))
		scheduled := 0

		for i, file := range files {
			if err := sem.Acquire(ctx, 1); err != nil {
				slots[i] <- slot{res: FileResult{File: file}, err: err}
				scheduled = i + 1
				break
			}
			// checked after Acquire so that with one worker nothing starts
			// after a fatal error
			if stop.Load() {
				sem.Release(1)
				break
			}
			scheduled = i + 1

			g.Go(func() error {
				defer sem.Release(1)
				res, err := e.processFile(ctx, id, known, file)
				if err != nil {
					stop.Store(true)
				}
				slots[i] <- slot{res: res, err: err}
				return nil
			})
		}

		for i := scheduled; i < len(files); i++ {
			close(slots[i])
		}
		_ = g.Wait()
	}()

	defer func() {
		stop.Store(true)
		<-done
	}()

	for i := range files {
		s, ok := <-slots[i]
		if !ok {
			return false
		}

		if s.err != nil {
			e.setState(StateFailed)
			slog.Error("sync", "op", "ABORT", "run", runID, "path", files[i].Path, "error", s.err)
			yield(s.res, s.err)

			stop.Store(true)
			<-done
			e.recordSettled(runID, slots[i+1:])
			return false
		}

		e.record(runID, s.res)
		if !yield(s.res, nil) {
			return false
		}
	}
	return true
}

// recordSettled records the results that completed behind a fatal error.
// The pool must have exited, so every slot is either filled or closed.
func (e *Engine) recordSettled(runID string, slots []chan slot) {
	for _, ch := range slots {
		s, ok := <-ch
		if ok && s.err == nil {
			e.record(runID, s.res)
		}
	}
}

// processFile returns an error only when the whole run has to stop.
func (e *Engine) processFile(ctx context.Context, id ibsdk.Identity, known ibsdk.FingerprintSet, file catalog.CandidateFile) (FileResult, error) {
	res := FileResult{File: file}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	fingerprint, size, err := Fingerprint(file.Path)
	if err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("hash %s: %w", file.Path, err)
		return res, nil
	}
	res.Fingerprint = fingerprint
	res.Size = size

	if known.Contains(fingerprint) {
		res.Outcome = Skipped
		return res, nil
	}

	params := &ibsdk.UploadParams{
		FilePath:    file.Path,
		Fingerprint: fingerprint,
	}
	if e.progress != nil {
		params.Callback = func(sent, total int64) {
			e.progress(file, sent, total)
		}
	}

	_, err = e.remote.Upload(ctx, id, params)
	switch {
	case err == nil:
		res.Outcome = Uploaded
	case errors.Is(err, ibsdk.ErrUploadRejected), errors.Is(err, ibsdk.ErrFileRead):
		res.Outcome = Failed
		res.Err = err
	default:
		return res, fmt.Errorf("upload %s: %w", file.Path, err)
	}
	return res, nil
}

func (e *Engine) record(runID string, res FileResult) {
	attrs := []any{"op", res.Outcome, "path", res.File.Path, "md5", res.Fingerprint}
	if res.Err != nil {
		slog.Warn("sync", append(attrs, "error", res.Err)...)
	} else {
		slog.Info("sync", attrs...)
	}

	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(runID, res); err != nil {
		slog.Warn("sync journal", "run", runID, "path", res.File.Path, "error", err)
	}
}
