package version

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/internal/link"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

// Switcher 负责切换当前使用的 Go 版本。
type Switcher struct {
	store  storage.StateStore
	layout storage.Layout
	linker link.Linker
	log    *logger.Logger
}

// NewSwitcher 创建 Switcher。
func NewSwitcher(cfg models.Config, store storage.StateStore, linker link.Linker) *Switcher {
	return &Switcher{
		store:  store,
		layout: storage.Layout{Home: cfg.Home},
		linker: linker,
		log:    logger.NewLogger("switcher"),
	}
}

// SetActive 将 current 链接指向指定版本的目录。
// 版本未完整安装时返回 NotInstalled，且不修改现有链接。
func (s *Switcher) SetActive(version models.Version) error {
	dir, ok := s.store.InstalledDir(version)
	if !ok {
		return &errs.Error{Kind: errs.KindNotInstalled, Op: "switcher", Path: s.layout.VersionDir(version)}
	}
	s.warnMissingBinary(dir)

	at := s.layout.Current()
	if err := os.MkdirAll(filepath.Dir(at), 0o755); err != nil {
		return fmt.Errorf("switcher: prepare home: %w", err)
	}
	if err := link.Remove(at); err != nil {
		return err
	}
	if err := s.linker.Link(dir, at); err != nil {
		return err
	}

	s.log.WithFields(logger.Fields{"version": version.String(), "target": dir, "linker": s.linker.Name()}).Info("active version set")
	return nil
}

// Active 返回 current 链接指向的版本。链接不存在或无法解析时返回 false。
func (s *Switcher) Active() (models.Version, bool) {
	dest, err := s.linker.Resolve(s.layout.Current())
	if err != nil {
		return "", false
	}
	v := models.Version(filepath.Base(filepath.Clean(dest))).Normalize()
	if v.IsZero() || v == "." {
		return "", false
	}
	return v, true
}

func (s *Switcher) warnMissingBinary(dir string) {
	name := "go"
	if s.linker.Name() == "junction" {
		name = "go.exe"
	}
	goBin := filepath.Join(dir, "go", "bin", name)
	if info, err := os.Stat(goBin); err != nil || info.IsDir() {
		s.log.WithField("path", goBin).Warn("go binary missing in installed version")
	}
}
