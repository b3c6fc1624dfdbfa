package ibsdk

import (
	"net/url"
	"time"

	"github.com/ibroadcast/ibsync/internal/version"
)

const (
	DefaultStatusURL = "https://json.ibroadcast.com/s/JSON/status"
	DefaultSyncURL   = "https://sync.ibroadcast.com"
)

// Config is the configuration for the Client
type Config struct {
	StatusURL  string        // StatusURL is the login endpoint
	SyncURL    string        // SyncURL serves both the md5 list and uploads
	ClientName string        // ClientName is sent as `client` and as the upload `method`
	Version    string        // Version is sent as `version` on login
	Timeout    time.Duration // Timeout of a single request, zero means no limit
}

// DefaultConfig points at the public iBroadcast endpoints.
func DefaultConfig() *Config {
	return &Config{
		StatusURL:  DefaultStatusURL,
		SyncURL:    DefaultSyncURL,
		ClientName: version.AppName + " go uploader",
		Version:    version.Version,
	}
}

func (c *Config) Validate() error {
	if !isHTTPURL(c.StatusURL) {
		return ErrNoStatusURL
	}
	if !isHTTPURL(c.SyncURL) {
		return ErrNoSyncURL
	}
	if c.ClientName == "" {
		return ErrNoClientName
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
