package version

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/liangyou/goup/internal/archive"
	"github.com/liangyou/goup/internal/checksum"
	"github.com/liangyou/goup/internal/lock"
	"github.com/liangyou/goup/internal/platform"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

// Stage 是单个版本安装过程中的状态。
type Stage int

const (
	StageAbsent Stage = iota
	StageDownloading
	StageVerifying
	StageExtracting
	StageInstalled
)

func (s Stage) String() string {
	switch s {
	case StageDownloading:
		return "downloading"
	case StageVerifying:
		return "verifying"
	case StageExtracting:
		return "extracting"
	case StageInstalled:
		return "installed"
	default:
		return "absent"
	}
}

// StageFunc 在状态切换时回调。
type StageFunc func(version models.Version, stage Stage)

// Outcome 区分新安装与已安装两种成功结果。
type Outcome int

const (
	OutcomeInstalled Outcome = iota + 1
	OutcomeAlreadyInstalled
)

func (o Outcome) String() string {
	if o == OutcomeAlreadyInstalled {
		return "already installed"
	}
	return "installed"
}

// ArtifactFetcher 用于获取远程 Go 发行版的压缩包与校验文件。
type ArtifactFetcher interface {
	FetchArchive(ctx context.Context, url, dest string) (int64, error)
	FetchChecksum(ctx context.Context, url, dest string) error
}

// Installer 负责将 Go 版本安装到 home 目录。
type Installer struct {
	store        storage.StateStore
	layout       storage.Layout
	fetcher      ArtifactFetcher
	target       platform.Target
	downloadBase string
	onStage      StageFunc
	log          *logger.Logger
}

// InstallerOption 配置 Installer。
type InstallerOption func(*Installer)

// WithTarget 指定目标平台，默认为当前进程的平台。
func WithTarget(t platform.Target) InstallerOption {
	return func(i *Installer) {
		i.target = t
	}
}

// WithStageFunc 指定状态回调。
func WithStageFunc(fn StageFunc) InstallerOption {
	return func(i *Installer) {
		i.onStage = fn
	}
}

// NewInstaller 创建 Installer。
func NewInstaller(cfg models.Config, store storage.StateStore, fetcher ArtifactFetcher, opts ...InstallerOption) *Installer {
	i := &Installer{
		store:        store,
		layout:       storage.Layout{Home: cfg.Home},
		fetcher:      fetcher,
		target:       platform.CurrentTarget(),
		downloadBase: cfg.DownloadBaseURL,
		log:          logger.NewLogger("installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install 执行完整的安装流程。
//
// 已有完成标记时直接返回 OutcomeAlreadyInstalled，不发起任何网络请求。
// 缓存中缺少压缩包或校验文件时重新下载两者；无论是否命中缓存都会重新校验。
// 完成标记只在解压全部成功后写入。
func (i *Installer) Install(ctx context.Context, version models.Version) (Outcome, error) {
	if i.store == nil || i.fetcher == nil {
		return 0, errors.New("installer: missing dependencies")
	}
	if version.IsZero() {
		return 0, errors.New("installer: version is required")
	}

	lk, err := lock.Acquire(i.layout.LocksDir(), string(version.Normalize()))
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := lk.Release(); err != nil {
			i.log.WithError(err).Warn("release install lock")
		}
	}()

	log := i.log.WithField("version", version.String())
	if i.store.IsInstalled(version) {
		log.Debug("already installed")
		i.stage(version, StageInstalled)
		return OutcomeAlreadyInstalled, nil
	}

	desc := platform.Describe(version, i.target, i.downloadBase)
	archivePath := i.layout.CachePath(desc.ArchiveName)
	checksumPath := i.layout.CachePath(desc.ChecksumName)

	if !fileExists(archivePath) || !fileExists(checksumPath) {
		i.stage(version, StageDownloading)
		start := time.Now()
		if _, err := i.fetcher.FetchArchive(ctx, desc.ArchiveURL, archivePath); err != nil {
			return 0, err
		}
		if err := i.fetcher.FetchChecksum(ctx, desc.ChecksumURL, checksumPath); err != nil {
			return 0, err
		}
		log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("archive downloaded")
	} else {
		log.WithField("archive", archivePath).Debug("using cached archive")
	}

	i.stage(version, StageVerifying)
	if err := checksum.Verify(archivePath, checksumPath); err != nil {
		return 0, err
	}

	i.stage(version, StageExtracting)
	versionDir := i.layout.VersionDir(version)
	// 没有完成标记的目录是上次中断留下的，直接覆盖
	if err := os.RemoveAll(versionDir); err != nil {
		return 0, fmt.Errorf("installer: cleanup partial install: %w", err)
	}
	if err := archive.Unpack(archivePath, versionDir); err != nil {
		return 0, err
	}

	if err := i.store.MarkInstalled(version); err != nil {
		return 0, err
	}
	i.stage(version, StageInstalled)
	log.WithField("dir", versionDir).Info("version installed")
	return OutcomeInstalled, nil
}

func (i *Installer) stage(v models.Version, s Stage) {
	if i.onStage != nil {
		i.onStage(v, s)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
