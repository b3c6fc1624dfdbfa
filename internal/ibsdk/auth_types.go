package ibsdk

import (
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ibroadcast/ibsync/internal/utils"
)

const modeStatus = "status"

// Identity is the authenticated user. It is produced once by Authenticate and
// passed by value to every later call.
type Identity struct {
	UserID string
	Token  string
}

func (i Identity) IsZero() bool {
	return i.UserID == "" || i.Token == ""
}

// LogValue keeps the token out of logs.
func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", i.UserID),
		slog.String("token", utils.MaskSecret(i.Token)),
	)
}

// Session is the result of a successful login
type Session struct {
	Identity Identity
	// Extensions advertised by the remote, with the leading dot, as sent.
	Extensions mapset.Set[string]
}

// NewExtensionSet builds an extension set, adding a leading dot where missing.
func NewExtensionSet(extensions ...string) mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set.Add(ext)
	}
	return set
}

type statusRequest struct {
	Mode           string `json:"mode"`
	EmailAddress   string `json:"email_address"`
	Password       string `json:"password"`
	Version        string `json:"version"`
	Client         string `json:"client"`
	SupportedTypes int    `json:"supported_types"`
}

type statusResponse struct {
	User      *statusUser     `json:"user"`
	Supported []supportedType `json:"supported"`
	Message   string          `json:"message"`
}

type statusUser struct {
	ID    flexString `json:"id"`
	Token flexString `json:"token"`
}

type supportedType struct {
	Extension string `json:"extension"`
}
