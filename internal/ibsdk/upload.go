package ibsdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/imroc/req/v3"
)

const progressInterval = 500 * time.Millisecond

var (
	errIsDirectory   = errors.New("path is a directory")
	errMissingResult = errors.New("response has no result field")
)

// Upload streams one file to the remote as multipart form content.
//
// Errors: ErrFileRead when the file cannot be opened, ErrServer on a non-2xx
// status or an unreadable body, ErrUploadRejected when the remote answered
// but refused the file, ErrTransport when the request never completed.
func (c *Client) Upload(ctx context.Context, id Identity, params *UploadParams) (*UploadAck, error) {
	if id.IsZero() {
		return nil, newRequestError(ErrAuth, opUpload, errNoIdentity)
	}

	file, err := os.Open(params.FilePath)
	if err != nil {
		return nil, newRequestError(ErrFileRead, opUpload, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, newRequestError(ErrFileRead, opUpload, err)
	}
	if info.IsDir() {
		return nil, &RequestError{Kind: ErrFileRead, Op: opUpload, Message: params.FilePath, Err: errIsDirectory}
	}

	r := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"user_id":   id.UserID,
			"token":     id.Token,
			"file_path": params.FilePath,
			"method":    c.cfg.ClientName,
		}).
		SetFileUpload(req.FileUpload{
			ParamName: "file",
			FileName:  filepath.Base(params.FilePath),
			FileSize:  info.Size(),
			// the handle is closed by the deferred Close above, not by req
			GetFileContent: func() (io.ReadCloser, error) {
				return io.NopCloser(file), nil
			},
		})

	if params.Callback != nil {
		r.SetUploadCallbackWithInterval(func(info req.UploadInfo) {
			params.Callback(info.UploadedSize, info.FileSize)
		}, progressInterval)
	}

	resp, err := r.Post(c.cfg.SyncURL)
	if err != nil {
		return nil, newRequestError(ErrTransport, opUpload, err)
	}

	if !resp.IsSuccessState() {
		return nil, statusError(ErrServer, opUpload, resp)
	}

	var result uploadResponse
	if err := decode(opUpload, resp, &result); err != nil {
		return nil, err
	}

	if result.Result == nil {
		return nil, newRequestError(ErrServer, opUpload, errMissingResult)
	}

	if !bool(*result.Result) {
		msg := result.Message
		if msg == "" {
			msg = params.FilePath
		}
		return nil, &RequestError{Kind: ErrUploadRejected, Op: opUpload, Message: msg}
	}

	slog.Debug("sdk", "op", opUpload, "path", params.FilePath, "size", info.Size())
	return &UploadAck{
		FilePath:    params.FilePath,
		Fingerprint: params.Fingerprint,
		Size:        info.Size(),
		Message:     result.Message,
	}, nil
}
