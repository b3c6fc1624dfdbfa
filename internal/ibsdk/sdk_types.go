package ibsdk

import (
	"fmt"
	"runtime"

	"github.com/ibroadcast/ibsync/internal/version"
)

const (
	HeaderVersion  = "X-Ibsync-Version"
	HeaderDeviceID = "X-Ibsync-Device-Id"
)

var UserAgent = fmt.Sprintf("ibsync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)
