package ibsdk

import (
	"context"
	"errors"
	"log/slog"
)

var errMissingCredentials = errors.New("username and password are required")

// Authenticate logs in once and returns the identity together with the file
// extensions the remote accepts for it.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, newRequestError(ErrAuth, opAuthenticate, errMissingCredentials)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBodyJsonMarshal(&statusRequest{
			Mode:           modeStatus,
			EmailAddress:   username,
			Password:       password,
			Version:        c.cfg.Version,
			Client:         c.cfg.ClientName,
			SupportedTypes: 1,
		}).
		Post(c.cfg.StatusURL)
	if err != nil {
		return nil, newRequestError(ErrTransport, opAuthenticate, err)
	}

	if !resp.IsSuccessState() {
		return nil, statusError(ErrTransport, opAuthenticate, resp)
	}

	var status statusResponse
	if err := decode(opAuthenticate, resp, &status); err != nil {
		return nil, err
	}

	if status.User == nil || status.User.ID == "" || status.User.Token == "" {
		msg := status.Message
		if msg == "" {
			msg = "invalid login"
		}
		return nil, &RequestError{Kind: ErrAuth, Op: opAuthenticate, Message: msg}
	}

	extensions := make([]string, 0, len(status.Supported))
	for _, st := range status.Supported {
		extensions = append(extensions, st.Extension)
	}

	session := &Session{
		Identity: Identity{
			UserID: string(status.User.ID),
			Token:  string(status.User.Token),
		},
		Extensions: NewExtensionSet(extensions...),
	}

	slog.Debug("sdk", "op", opAuthenticate, "identity", session.Identity, "extensions", session.Extensions.Cardinality())
	return session, nil
}
