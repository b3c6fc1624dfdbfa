package ibsdk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// config
	ErrNoStatusURL  = errors.New("sdk: status url missing or invalid")
	ErrNoSyncURL    = errors.New("sdk: sync url missing or invalid")
	ErrNoClientName = errors.New("sdk: client name missing")

	// error kinds, match with errors.Is
	ErrAuth           = errors.New("sdk: authentication failed")
	ErrTransport      = errors.New("sdk: transport error")
	ErrServer         = errors.New("sdk: unexpected server response")
	ErrUploadRejected = errors.New("sdk: upload rejected")
	ErrFileRead       = errors.New("sdk: cannot read local file")
)

// RequestError carries the details of a failed remote call. It unwraps to its
// Kind (one of the Err* kinds above) and to the underlying cause, if any.
type RequestError struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

func newRequestError(kind error, op string, cause error) *RequestError {
	return &RequestError{Kind: kind, Op: op, Err: cause}
}
