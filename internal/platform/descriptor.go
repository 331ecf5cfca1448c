package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/liangyou/goup/pkg/models"
)

// Target 描述运行平台的操作系统与架构，取值可以是 Go 的 GOOS/GOARCH，也可以是 macos、x86_64 这类通用名称。
type Target struct {
	OS   string
	Arch string
}

// CurrentTarget 返回当前进程的平台。
func CurrentTarget() Target {
	return Target{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ArchiveDescriptor 由版本与平台唯一确定，描述压缩包及其校验文件。
type ArchiveDescriptor struct {
	Version      models.Version
	OS           string
	Arch         string
	Ext          string
	ArchiveName  string
	ChecksumName string
	ArchiveURL   string
	ChecksumURL  string
}

const checksumSuffix = ".sha256"

// Describe 生成 <version>.<os>-<arch>.<ext> 形式的文件名与下载地址。
func Describe(version models.Version, target Target, downloadBase string) ArchiveDescriptor {
	goos := MapOS(target.OS)
	arch := MapArch(goos, target.Arch)
	ext := "tar.gz"
	if goos == "windows" {
		ext = "zip"
	}

	name := fmt.Sprintf("%s.%s-%s.%s", strings.TrimSpace(version.String()), goos, arch, ext)
	base := strings.TrimRight(downloadBase, "/")
	archiveURL := base + "/" + name

	return ArchiveDescriptor{
		Version:      version,
		OS:           goos,
		Arch:         arch,
		Ext:          ext,
		ArchiveName:  name,
		ChecksumName: name + checksumSuffix,
		ArchiveURL:   archiveURL,
		ChecksumURL:  archiveURL + checksumSuffix,
	}
}

// MapOS 将 macos 映射为 darwin，其余保持不变。
func MapOS(goos string) string {
	goos = strings.ToLower(strings.TrimSpace(goos))
	if goos == "macos" {
		return "darwin"
	}
	return goos
}

// MapArch 将架构名称映射为上游发布使用的名称。
func MapArch(goos, arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "x86", "i386", "i686":
		return "386"
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	case "arm":
		if goos == "linux" {
			return "armv6l"
		}
	}
	return arch
}
