package version

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/internal/lock"
	"github.com/liangyou/goup/internal/storage"
)

const archiveName = "1.21.5.linux-amd64.tar.gz"

func TestInstallLinuxAmd64(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.publish(archiveName, goArchive(t, "1.21.5"), "")

	outcome, err := f.installer.Install(context.Background(), "1.21.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInstalled, outcome)
	assert.Equal(t, []Stage{StageDownloading, StageVerifying, StageExtracting, StageInstalled}, f.stages)

	layout := f.store.Layout()
	assert.FileExists(t, layout.CachePath(archiveName))
	assert.FileExists(t, layout.CachePath(archiveName+".sha256"))
	assert.FileExists(t, filepath.Join(f.cfg.Home, "1.21.5", "go", "VERSION"))
	assert.FileExists(t, filepath.Join(f.cfg.Home, "1.21.5", ".unpacked-success"))
	assert.True(t, f.store.IsInstalled("1.21.5"))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(f.cfg.Home, "1.21.5", "go", "bin", "go"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o111, "go binary must stay executable")
	}
}

func TestInstallIsIdempotentWithoutNetwork(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.publish(archiveName, goArchive(t, "1.21.5"), "")

	_, err := f.installer.Install(context.Background(), "1.21.5")
	require.NoError(t, err)
	requests := f.upstream.requests.Load()
	require.Positive(t, requests)

	f.stages = nil
	outcome, err := f.installer.Install(context.Background(), "1.21.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInstalled, outcome)
	assert.Equal(t, requests, f.upstream.requests.Load(), "second install must not touch the network")
	assert.Equal(t, []Stage{StageInstalled}, f.stages)
}

func TestInstallChecksumMismatchLeavesNoMarker(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	wrong := "0000000000000000000000000000000000000000000000000000000000000000"
	f.upstream.publish(archiveName, goArchive(t, "1.21.5"), wrong)

	_, err := f.installer.Install(context.Background(), "1.21.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrChecksumMismatch)
	assert.Contains(t, err.Error(), wrong)
	assert.Contains(t, err.Error(), archiveName)

	assert.False(t, f.store.IsInstalled("1.21.5"))
	assert.NoDirExists(t, filepath.Join(f.cfg.Home, "1.21.5"))
	assert.NotContains(t, f.stages, StageExtracting)
}

func TestInstallReverifiesCachedArchive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data := goArchive(t, "1.21.5")
	layout := f.store.Layout()
	require.NoError(t, os.MkdirAll(layout.Cache(), 0o755))

	// 缓存中的压缩包被篡改
	corrupted := append([]byte{}, data...)
	corrupted[len(corrupted)/2] ^= 0x01
	require.NoError(t, os.WriteFile(layout.CachePath(archiveName), corrupted, 0o644))
	require.NoError(t, os.WriteFile(layout.CachePath(archiveName+".sha256"), []byte(sha256Hex(data)), 0o644))

	_, err := f.installer.Install(context.Background(), "1.21.5")
	assert.ErrorIs(t, err, errs.ErrChecksumMismatch)
	assert.Zero(t, f.upstream.requests.Load())

	// 修复缓存后不下载即可安装
	require.NoError(t, os.WriteFile(layout.CachePath(archiveName), data, 0o644))
	outcome, err := f.installer.Install(context.Background(), "1.21.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInstalled, outcome)
	assert.Zero(t, f.upstream.requests.Load())
}

func TestInstallRedownloadsWhenSidecarMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data := goArchive(t, "1.21.5")
	f.upstream.publish(archiveName, data, "")
	layout := f.store.Layout()
	require.NoError(t, os.MkdirAll(layout.Cache(), 0o755))
	require.NoError(t, os.WriteFile(layout.CachePath(archiveName), data, 0o644))

	_, err := f.installer.Install(context.Background(), "1.21.5")
	require.NoError(t, err)
	assert.Contains(t, f.stages, StageDownloading)
	assert.Positive(t, f.upstream.requests.Load())
}

func TestInstallOverwritesPartialExtraction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.upstream.publish(archiveName, goArchive(t, "1.21.5"), "")
	stale := filepath.Join(f.cfg.Home, "1.21.5", "go", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("left over"), 0o644))

	outcome, err := f.installer.Install(context.Background(), "1.21.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInstalled, outcome)
	assert.NoFileExists(t, stale)
}

func TestInstallMissingRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.installer.Install(context.Background(), "1.21.5")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.False(t, f.store.IsInstalled("1.21.5"))
}

func TestInstallBusyWhenLocked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	held, err := lock.Acquire(storage.Layout{Home: f.cfg.Home}.LocksDir(), "1.21.5")
	require.NoError(t, err)
	defer held.Release()

	_, err = f.installer.Install(context.Background(), "go1.21.5")
	assert.ErrorIs(t, err, errs.ErrBusy)
	assert.Zero(t, f.upstream.requests.Load())
}

func TestInstallRequiresVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.installer.Install(context.Background(), "  ")
	require.Error(t, err)
}
