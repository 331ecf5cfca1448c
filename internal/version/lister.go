package version

import (
	"context"
	"fmt"

	"github.com/liangyou/goup/internal/remote"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/pkg/models"
)

// ActiveSource 返回当前激活的版本。
type ActiveSource interface {
	Active() (models.Version, bool)
}

// SearchResult 是上游版本与本地状态的合并结果。
type SearchResult struct {
	remote.Release
	Installed bool
	Active    bool
}

// Lister 聚合远程与本地版本信息。
type Lister struct {
	store  storage.StateStore
	active ActiveSource
	remote remote.Source
}

// NewLister 创建版本列表服务，remoteSource 可以为 nil（仅列出本地版本）。
func NewLister(store storage.StateStore, active ActiveSource, remoteSource remote.Source) *Lister {
	return &Lister{store: store, active: active, remote: remoteSource}
}

// LocalVersions 返回本地已完整安装的版本，并标记当前版本。
func (l *Lister) LocalVersions() ([]models.InstalledVersion, error) {
	if l.store == nil {
		return nil, fmt.Errorf("lister: storage is required")
	}
	versions, err := l.store.ListInstalled()
	if err != nil {
		return nil, err
	}

	if l.active != nil {
		if current, ok := l.active.Active(); ok {
			for i := range versions {
				versions[i].Active = models.SameVersion(versions[i].Version, current)
			}
		}
	}
	return versions, nil
}

// Search 返回满足筛选条件的上游版本，按版本号升序排列。
func (l *Lister) Search(ctx context.Context, filter remote.Filter) ([]SearchResult, error) {
	if l.remote == nil {
		return nil, fmt.Errorf("lister: remote source is required")
	}
	releases, err := l.remote.ListVersions(ctx)
	if err != nil {
		return nil, err
	}

	local, err := l.LocalVersions()
	if err != nil {
		return nil, err
	}
	state := make(map[models.Version]bool, len(local))
	for _, v := range local {
		state[v.Version] = v.Active
	}

	matched := remote.FilterVersions(releases, filter)
	results := make([]SearchResult, 0, len(matched))
	for _, r := range matched {
		active, installed := state[r.Version.Normalize()]
		results = append(results, SearchResult{Release: r, Installed: installed, Active: active})
	}
	return results, nil
}

// FormatLocalVersion 格式化本地版本输出，当前版本以 * 标记。
func FormatLocalVersion(v models.InstalledVersion) string {
	marker := " "
	if v.Active {
		marker = "*"
	}
	return fmt.Sprintf("%s %-12s %s", marker, v.Version, v.Dir)
}

// FormatSearchResult 格式化上游版本输出。
func FormatSearchResult(r SearchResult) string {
	switch {
	case r.Active:
		return fmt.Sprintf("%s (active)", r.Version)
	case r.Installed:
		return fmt.Sprintf("%s (installed)", r.Version)
	default:
		return string(r.Version)
	}
}
