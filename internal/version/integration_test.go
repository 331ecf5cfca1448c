package version

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/goup/internal/link"
	"github.com/liangyou/goup/pkg/models"
)

func TestIntegrationInstallUseUninstall(t *testing.T) {
	skipWithoutSymlinks(t)
	t.Parallel()

	f := newFixture(t)
	f.upstream.publish("1.21.5.linux-amd64.tar.gz", goArchive(t, "1.21.5"), "")
	f.upstream.publish("1.22.0.linux-amd64.tar.gz", goArchive(t, "1.22.0"), "")

	ctx := context.Background()
	for _, v := range []models.Version{"1.21.5", "1.22.0"} {
		outcome, err := f.installer.Install(ctx, v)
		require.NoError(t, err, v)
		assert.Equal(t, OutcomeInstalled, outcome)
	}

	switcher := NewSwitcher(f.cfg, f.store, link.SymlinkLinker{})
	require.NoError(t, switcher.SetActive("1.21.5"))
	assert.FileExists(t, filepath.Join(f.cfg.Home, "current", "go", "VERSION"))

	lister := NewLister(f.store, switcher, nil)
	versions, err := lister.LocalVersions()
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].Active)

	require.NoError(t, switcher.SetActive("1.22.0"))
	uninstaller := NewUninstaller(f.cfg, f.store, switcher)
	require.NoError(t, uninstaller.Uninstall([]models.Version{"1.21.5"}, false))

	versions, err = lister.LocalVersions()
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, models.Version("1.22.0"), versions[0].Version)
	assert.True(t, versions[0].Active)

	// 缓存仍然保留，重新安装无需网络
	requests := f.upstream.requests.Load()
	outcome, err := f.installer.Install(ctx, "1.21.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInstalled, outcome)
	assert.Equal(t, requests, f.upstream.requests.Load())
}
