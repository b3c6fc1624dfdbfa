package catalog

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates files (and their parents) under a fresh temp dir.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
	return root
}

func relPaths(t *testing.T, root string, files []CandidateFile) []string {
	t.Helper()
	var out []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func exts(e ...string) mapset.Set[string] {
	return mapset.NewSet(e...)
}

func TestEnumerate_Completeness(t *testing.T) {
	root := makeTree(t,
		"a.mp3",
		"b.flac",
		"c.txt",
		".hidden.mp3",
		".git/d.mp3",
		"album/01.mp3",
		"album/02.MP3",
		"album/cover.jpg",
		"album/disc2/03.flac",
		"noext",
	)

	files, err := Collect(New(exts(".mp3", ".flac")).Enumerate(root))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a.mp3",
		"album/01.mp3",
		"album/disc2/03.flac",
		"b.flac",
	}, relPaths(t, root, files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path))
		assert.Equal(t, filepath.Ext(f.Path), f.Extension)
	}
}

func TestEnumerate_Scenario(t *testing.T) {
	root := makeTree(t, "a.mp3", "b.mp3", ".hidden.mp3", "c.txt")

	files, err := Collect(New(exts(".mp3")).Enumerate(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, relPaths(t, root, files))
}

func TestEnumerate_EmptyExtensionSet(t *testing.T) {
	root := makeTree(t, "a.mp3", "sub/b.mp3")

	files, err := Collect(New(exts()).Enumerate(root))
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = Collect(New(nil).Enumerate(root))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestEnumerate_DirectoriesAreNotCandidates(t *testing.T) {
	root := makeTree(t, "weird.mp3/inner.mp3")

	files, err := Collect(New(exts(".mp3")).Enumerate(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"weird.mp3/inner.mp3"}, relPaths(t, root, files))
}

func TestEnumerate_FoldCase(t *testing.T) {
	root := makeTree(t, "a.mp3", "b.MP3", "c.Flac")

	strict, err := Collect(New(exts(".mp3", ".flac")).Enumerate(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3"}, relPaths(t, root, strict))

	folded, err := Collect(New(exts(".MP3", ".flac"), WithFoldCase()).Enumerate(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3", "b.MP3", "c.Flac"}, relPaths(t, root, folded))
	assert.Equal(t, ".MP3", folded[1].Extension)
}

func TestEnumerate_Ignore(t *testing.T) {
	root := makeTree(t, "keep.mp3", "draft.mp3", "live/x.mp3", "album/live/y.mp3", "album/z.mp3")

	c := New(exts(".mp3"), WithIgnore("draft.mp3", "live/"))
	files, err := Collect(c.Enumerate(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"album/z.mp3", "keep.mp3"}, relPaths(t, root, files))
}

func TestEnumerate_Restartable(t *testing.T) {
	root := makeTree(t, "a.mp3", "b.mp3")
	seq := New(exts(".mp3")).Enumerate(root)

	first, err := Collect(seq)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "c.mp3"), nil, 0o644))

	second, err := Collect(seq)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Len(t, second, 3)
}

func TestEnumerate_EarlyStop(t *testing.T) {
	root := makeTree(t, "a.mp3", "b.mp3", "sub/c.mp3")

	var seen int
	for _, err := range New(exts(".mp3")).Enumerate(root) {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestEnumerate_MissingRoot(t *testing.T) {
	_, err := Collect(New(exts(".mp3")).Enumerate(filepath.Join(t.TempDir(), "nope")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilesystem)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var walkErr *WalkError
	require.ErrorAs(t, err, &walkErr)
	assert.Contains(t, walkErr.Path, "nope")
}

func TestEnumerate_BrokenSymlinkAborts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := makeTree(t, "a.mp3", "z.mp3")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "m.mp3")))

	files, err := Collect(New(exts(".mp3")).Enumerate(root))
	assert.ErrorIs(t, err, ErrFilesystem)
	// files listed before the failure are still returned, nothing after it
	assert.Equal(t, []string{"a.mp3"}, relPaths(t, root, files))
}

func TestEnumerate_FollowsDirectorySymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := makeTree(t, "linked.mp3")
	root := makeTree(t, "a.mp3")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "more")))

	files, err := Collect(New(exts(".mp3")).Enumerate(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3", "more/linked.mp3"}, relPaths(t, root, files))
}

func TestEnumerate_UnreadableDirAborts(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := makeTree(t, "a.mp3", "locked/b.mp3")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := Collect(New(exts(".mp3")).Enumerate(root))
	assert.ErrorIs(t, err, ErrFilesystem)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestMatches(t *testing.T) {
	c := New(exts(".mp3"))
	assert.True(t, c.Matches("x.mp3"))
	assert.True(t, c.Matches("x.y.mp3"))
	assert.False(t, c.Matches("mp3"))
	assert.False(t, c.Matches("x.mp3.part"))
}
