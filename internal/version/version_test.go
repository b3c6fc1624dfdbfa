package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Revision)
	assert.Equal(t, "ibsync", AppName)

	assert.Contains(t, Short(), Version)
	assert.True(t, strings.HasPrefix(ShortWithApp(), AppName+" "))

	detailed := Detailed()
	assert.Contains(t, detailed, Revision)
	assert.Contains(t, detailed, "/")
}

func TestApplyBuildInfo_FillsDevDefaults(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	Version, Revision, BuildDate = devVersion, "HEAD", ""

	applyBuildInfo("v1.4.0", map[string]string{
		"vcs.revision": "0badc0de",
		"vcs.modified": "true",
		"vcs.time":     "2026-03-01T10:00:00Z",
	})

	assert.Equal(t, "1.4.0", Version)
	assert.Equal(t, "0badc0de-dirty", Revision)
	assert.Equal(t, "2026-03-01T10:00:00Z", BuildDate)
}

func TestApplyBuildInfo_LdflagsWin(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	Version, Revision, BuildDate = "2.0.0", "cafebabe", "release"

	applyBuildInfo("(devel)", map[string]string{
		"vcs.revision": "0badc0de",
		"vcs.time":     "2026-03-01T10:00:00Z",
	})

	assert.Equal(t, "2.0.0", Version)
	assert.Equal(t, "cafebabe", Revision)
	assert.Equal(t, "release", BuildDate)
}
