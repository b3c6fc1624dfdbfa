package sync

import (
	"context"
	"fmt"

	"github.com/ibroadcast/ibsync/internal/catalog"
	"github.com/ibroadcast/ibsync/internal/ibsdk"
)

// ErrNotAuthenticated is returned by every engine call made before a
// successful Authenticate. It matches ibsdk.ErrAuth.
var ErrNotAuthenticated = fmt.Errorf("sync: not authenticated: %w", ibsdk.ErrAuth)

// Outcome is the terminal classification of one candidate file
type Outcome int

const (
	Skipped  Outcome = iota + 1 // fingerprint already known remotely
	Uploaded                    // remote acknowledged the upload
	Failed                      // remote refused the file, or it could not be read
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "SKIPPED"
	case Uploaded:
		return "UPLOADED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// State is where a run currently is
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateAuthenticated
	StateEnumerating
	StateEnumerated
	StateFetchingKnownHashes
	StateTransferring
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateEnumerating:
		return "enumerating"
	case StateEnumerated:
		return "enumerated"
	case StateFetchingKnownHashes:
		return "fetching known hashes"
	case StateTransferring:
		return "transferring"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FileResult is the outcome of processing one candidate
type FileResult struct {
	File        catalog.CandidateFile
	Fingerprint string // empty when hashing failed
	Size        int64
	Outcome     Outcome
	Err         error // set for Failed only
}

// Credentials are used once, to authenticate
type Credentials struct {
	Username string
	Password string
}

// Remote is the slice of the media library the engine needs. *ibsdk.Client
// implements it.
type Remote interface {
	Authenticate(ctx context.Context, username, password string) (*ibsdk.Session, error)
	FetchKnown(ctx context.Context, id ibsdk.Identity) (ibsdk.FingerprintSet, error)
	Upload(ctx context.Context, id ibsdk.Identity, params *ibsdk.UploadParams) (*ibsdk.UploadAck, error)
}

var _ Remote = (*ibsdk.Client)(nil)

// Recorder receives every per-file result of a run, in order.
type Recorder interface {
	Record(runID string, res FileResult) error
}

// ProgressFunc is called periodically while a file uploads
type ProgressFunc func(file catalog.CandidateFile, sentBytes, totalBytes int64)
