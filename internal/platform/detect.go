package platform

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// HostInfo 补充主机的发行版与内核架构信息，仅用于诊断输出。
type HostInfo struct {
	Target
	Platform        string
	Family          string
	PlatformVersion string
	KernelArch      string
}

// Detect 探测主机信息。gopsutil 失败时只保留 OS/arch，不视为错误。
func Detect(ctx context.Context) HostInfo {
	info := HostInfo{Target: CurrentTarget()}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err == nil {
		info.Platform = strings.TrimSpace(platform)
		info.Family = strings.TrimSpace(family)
		info.PlatformVersion = strings.TrimSpace(version)
	}
	if arch, err := host.KernelArch(); err == nil {
		info.KernelArch = strings.TrimSpace(arch)
	}
	return info
}
