package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/pkg/models"
)

func TestUninstallInactive(t *testing.T) {
	t.Parallel()

	s, store, cfg := newSwitcher(t)
	installFake(t, store, "1.21.5")
	installFake(t, store, "1.22.0")

	u := NewUninstaller(cfg, store, s)
	require.NoError(t, u.Uninstall([]models.Version{"go1.21.5"}, false))
	assert.False(t, store.IsInstalled("1.21.5"))
	assert.True(t, store.IsInstalled("1.22.0"))
}

func TestUninstallActiveRequiresForce(t *testing.T) {
	skipWithoutSymlinks(t)
	t.Parallel()

	s, store, cfg := newSwitcher(t)
	installFake(t, store, "1.21.5")
	require.NoError(t, s.SetActive("1.21.5"))

	u := NewUninstaller(cfg, store, s)
	require.Error(t, u.Uninstall([]models.Version{"1.21.5"}, false))
	assert.True(t, store.IsInstalled("1.21.5"))

	require.NoError(t, u.Uninstall([]models.Version{"1.21.5"}, true))
	assert.False(t, store.IsInstalled("1.21.5"))
	_, err := os.Lstat(filepath.Join(cfg.Home, "current"))
	assert.True(t, os.IsNotExist(err), "dangling current link must be removed")
}

func TestUninstallCollectsErrors(t *testing.T) {
	t.Parallel()

	s, store, cfg := newSwitcher(t)
	installFake(t, store, "1.21.5")

	u := NewUninstaller(cfg, store, s)
	err := u.Uninstall([]models.Version{"1.20.0", "1.21.5"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotInstalled)
	assert.False(t, store.IsInstalled("1.21.5"), "later versions are still removed")

	require.Error(t, u.Uninstall(nil, false))
}
