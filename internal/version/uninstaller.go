package version

import (
	"errors"
	"fmt"

	"github.com/liangyou/goup/internal/link"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

// Uninstaller 删除本地已安装的 Go 版本。
type Uninstaller struct {
	store  storage.StateStore
	active ActiveSource
	layout storage.Layout
	log    *logger.Logger
}

// NewUninstaller 创建卸载器。
func NewUninstaller(cfg models.Config, store storage.StateStore, active ActiveSource) *Uninstaller {
	return &Uninstaller{
		store:  store,
		active: active,
		layout: storage.Layout{Home: cfg.Home},
		log:    logger.NewLogger("uninstaller"),
	}
}

// Uninstall 删除指定版本。当前版本只有在 force=true 时才会删除，同时移除 current 链接。
// 单个版本失败不影响其余版本，所有错误合并返回。
func (u *Uninstaller) Uninstall(versions []models.Version, force bool) error {
	if u.store == nil {
		return errors.New("uninstaller: storage is required")
	}
	if len(versions) == 0 {
		return errors.New("uninstaller: version is required")
	}

	var current models.Version
	if u.active != nil {
		current, _ = u.active.Active()
	}

	var failures []error
	for _, v := range versions {
		if err := u.uninstall(v, current, force); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func (u *Uninstaller) uninstall(v, current models.Version, force bool) error {
	isActive := !current.IsZero() && models.SameVersion(v, current)
	if isActive && !force {
		return fmt.Errorf("uninstaller: version %s is active, pass force to remove", v)
	}

	if err := u.store.Remove(v); err != nil {
		return err
	}
	if isActive {
		if err := link.Remove(u.layout.Current()); err != nil {
			return err
		}
	}
	u.log.WithFields(logger.Fields{"version": v.String(), "active": isActive}).Info("version removed")
	return nil
}
