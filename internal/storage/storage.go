package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/pkg/models"
)

const (
	// MarkerName 是解压完成后写入版本目录的标记文件名。
	MarkerName = ".unpacked-success"

	cacheDirName = "cache"
	currentName  = "current"
	locksDirName = ".locks"
)

// StateStore 定义安装状态的读写接口，标记文件是唯一的判断依据。
type StateStore interface {
	IsInstalled(version models.Version) bool
	MarkInstalled(version models.Version) error
	ResolveDir(version models.Version) (string, bool)
	InstalledDir(version models.Version) (string, bool)
	ListInstalled() ([]models.InstalledVersion, error)
	Remove(version models.Version) error
}

// Layout 描述 home 目录下的固定布局。
type Layout struct {
	Home string
}

// Cache 返回共享缓存目录。
func (l Layout) Cache() string {
	return filepath.Join(l.Home, cacheDirName)
}

// CachePath 返回缓存目录中的文件路径。
func (l Layout) CachePath(name string) string {
	return filepath.Join(l.Cache(), name)
}

// VersionDir 返回版本目录，目录名直接使用调用方给出的版本字符串。
func (l Layout) VersionDir(version models.Version) string {
	return filepath.Join(l.Home, strings.TrimSpace(version.String()))
}

func (l Layout) MarkerPath(version models.Version) string {
	return filepath.Join(l.VersionDir(version), MarkerName)
}

// Current 返回当前版本链接的位置。
func (l Layout) Current() string {
	return filepath.Join(l.Home, currentName)
}

func (l Layout) LocksDir() string {
	return filepath.Join(l.Home, locksDirName)
}

// FileStore 通过文件系统持久化安装状态。
type FileStore struct {
	layout Layout
}

// NewFileStore 构造一个文件系统存储实例。
func NewFileStore(cfg models.Config) *FileStore {
	return &FileStore{layout: Layout{Home: cfg.Home}}
}

// Layout 返回目录布局。
func (s *FileStore) Layout() Layout {
	return s.layout
}

// IsInstalled 判断版本目录中是否存在完成标记。
func (s *FileStore) IsInstalled(version models.Version) bool {
	_, ok := s.InstalledDir(version)
	return ok
}

// MarkInstalled 写入完成标记，必须在解压全部完成之后调用。
func (s *FileStore) MarkInstalled(version models.Version) error {
	dir := s.layout.VersionDir(version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create version dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerName), nil, 0o644); err != nil {
		return fmt.Errorf("storage: write marker: %w", err)
	}
	return nil
}

// ResolveDir 查找版本目录，依次尝试原样、去前缀与带 go 前缀的目录名。
func (s *FileStore) ResolveDir(version models.Version) (string, bool) {
	for _, dir := range s.candidates(version) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// InstalledDir 返回带完成标记的版本目录。与 ResolveDir 不同，未完成的目录会被跳过。
func (s *FileStore) InstalledDir(version models.Version) (string, bool) {
	for _, dir := range s.candidates(version) {
		if info, err := os.Stat(filepath.Join(dir, MarkerName)); err == nil && !info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

func (s *FileStore) candidates(version models.Version) []string {
	if version.IsZero() {
		return nil
	}
	names := []string{
		strings.TrimSpace(version.String()),
		string(version.Normalize()),
		version.Tag(),
	}
	seen := make(map[string]struct{}, len(names))
	dirs := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		dirs = append(dirs, filepath.Join(s.layout.Home, name))
	}
	return dirs
}

// ListInstalled 返回带完成标记的版本，按版本号升序排列。
func (s *FileStore) ListInstalled() ([]models.InstalledVersion, error) {
	entries, err := os.ReadDir(s.layout.Home)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.InstalledVersion{}, nil
		}
		return nil, fmt.Errorf("storage: read home: %w", err)
	}

	versions := make([]models.InstalledVersion, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == cacheDirName || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(s.layout.Home, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, MarkerName)); err != nil {
			continue
		}
		versions = append(versions, models.InstalledVersion{
			Version: models.Version(entry.Name()).Normalize(),
			Dir:     dir,
		})
	}

	sort.Slice(versions, func(i, j int) bool {
		return models.CompareVersions(versions[i].Version, versions[j].Version) < 0
	})
	return versions, nil
}

// Remove 删除版本目录。
func (s *FileStore) Remove(version models.Version) error {
	dir, ok := s.ResolveDir(version)
	if !ok {
		return &errs.Error{Kind: errs.KindNotInstalled, Op: "storage: remove", Path: s.layout.VersionDir(version)}
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("storage: remove %s: %w", dir, err)
	}
	return nil
}
