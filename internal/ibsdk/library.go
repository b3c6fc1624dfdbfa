package ibsdk

import (
	"context"
	"errors"
	"log/slog"
)

var errNoIdentity = errors.New("identity is empty")

type md5Response struct {
	Result  *flexBool      `json:"result"`
	Message string         `json:"message"`
	MD5     FingerprintSet `json:"md5"`
}

// FetchKnown returns the content hashes the remote already holds for id.
// A first-time user legitimately gets an empty set.
func (c *Client) FetchKnown(ctx context.Context, id Identity) (FingerprintSet, error) {
	if id.IsZero() {
		return FingerprintSet{}, newRequestError(ErrAuth, opFetchKnown, errNoIdentity)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"user_id": id.UserID,
			"token":   id.Token,
		}).
		Post(c.cfg.SyncURL)
	if err != nil {
		return FingerprintSet{}, newRequestError(ErrTransport, opFetchKnown, err)
	}

	if !resp.IsSuccessState() {
		return FingerprintSet{}, statusError(ErrTransport, opFetchKnown, resp)
	}

	var known md5Response
	if err := decode(opFetchKnown, resp, &known); err != nil {
		return FingerprintSet{}, err
	}

	// an explicit refusal here means the token was not accepted
	if known.Result != nil && !bool(*known.Result) {
		return FingerprintSet{}, &RequestError{Kind: ErrAuth, Op: opFetchKnown, Message: known.Message}
	}

	if known.MD5.set == nil {
		known.MD5 = NewFingerprintSet()
	}

	slog.Debug("sdk", "op", opFetchKnown, "identity", id, "known", known.MD5.Len())
	return known.MD5, nil
}
