package link

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/goup/internal/errs"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "junction", detect("windows").Name())
	assert.Equal(t, "symlink", detect("linux").Name())
	assert.Equal(t, "symlink", detect("darwin").Name())
	assert.NotNil(t, Detect())
}

func TestSymlinkLinkResolveRemove(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	t.Parallel()

	home := t.TempDir()
	target := filepath.Join(home, "1.21.5")
	require.NoError(t, os.MkdirAll(target, 0o755))
	at := filepath.Join(home, "current")

	var l SymlinkLinker
	require.NoError(t, l.Link(target, at))

	got, err := l.Resolve(at)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	// 链接已存在时不允许覆盖
	require.Error(t, l.Link(target, at))

	require.NoError(t, Remove(at))
	_, err = os.Lstat(at)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(target)
	require.NoError(t, err, "removing the link must keep the target")

	require.NoError(t, Remove(at), "removing a missing link is not an error")
}

func TestJunctionUnsupportedOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("junctions are supported on windows")
	}
	t.Parallel()

	err := JunctionLinker{}.Link(t.TempDir(), filepath.Join(t.TempDir(), "current"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPlatformUnsupported)
}
