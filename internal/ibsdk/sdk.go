package ibsdk

import (
	"fmt"

	"github.com/ibroadcast/ibsync/internal/utils"
	"github.com/ibroadcast/ibsync/internal/version"
	"github.com/imroc/req/v3"
)

const (
	opAuthenticate = "authenticate"
	opFetchKnown   = "fetch known hashes"
	opUpload       = "upload"

	// how much of an unexpected body ends up in an error message
	maxErrorBody = 256
)

// Client talks to the remote media library. Every call is a single attempt,
// retrying is left to whoever re-runs the sync.
type Client struct {
	http *req.Client
	cfg  *Config
}

// New creates a new Client
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	http := req.C().
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonHeader(HeaderDeviceID, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		SetTimeout(max(cfg.Timeout, 0))

	return &Client{http: http, cfg: cfg}, nil
}

// Config returns the configuration the client was built with
func (c *Client) Config() Config {
	return *c.cfg
}

// statusError turns a non-2xx response into a RequestError of the given kind.
func statusError(kind error, op string, resp *req.Response) *RequestError {
	return &RequestError{
		Kind:       kind,
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    truncate(resp.String(), maxErrorBody),
	}
}

func decode(op string, resp *req.Response, v any) error {
	if err := jsonUnmarshal(resp.Bytes(), v); err != nil {
		return &RequestError{
			Kind:    ErrServer,
			Op:      op,
			Message: fmt.Sprintf("undecodable body %q", truncate(resp.String(), maxErrorBody)),
			Err:     err,
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
