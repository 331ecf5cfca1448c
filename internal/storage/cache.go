package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CacheEntry 描述缓存目录中的一个文件。
type CacheEntry struct {
	Name string
	Path string
	Size int64
}

// ListCache 列出缓存的压缩包，withChecksums 为 true 时同时列出 .sha256 文件。
func (s *FileStore) ListCache(withChecksums bool) ([]CacheEntry, error) {
	dir := s.layout.Cache()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []CacheEntry{}, nil
		}
		return nil, fmt.Errorf("storage: read cache: %w", err)
	}

	result := make([]CacheEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !withChecksums && strings.HasSuffix(entry.Name(), ".sha256") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", entry.Name(), err)
		}
		result = append(result, CacheEntry{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CleanCache 删除整个缓存目录。
func (s *FileStore) CleanCache() error {
	if err := os.RemoveAll(s.layout.Cache()); err != nil {
		return fmt.Errorf("storage: clean cache: %w", err)
	}
	return nil
}

// RemoveHome 删除整个 home 目录，包括所有版本、缓存与当前链接。
func (s *FileStore) RemoveHome() error {
	if s.layout.Home == "" {
		return errors.New("storage: home is not configured")
	}
	if err := os.RemoveAll(s.layout.Home); err != nil {
		return fmt.Errorf("storage: remove home: %w", err)
	}
	return nil
}
