package platform

import (
	"fmt"
	"os"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/pkg/models"
)

var supportedOS = map[string]struct{}{
	"linux":   {},
	"darwin":  {},
	"windows": {},
	"freebsd": {},
}

var supportedArch = map[string]struct{}{
	"amd64":   {},
	"arm64":   {},
	"386":     {},
	"armv6l":  {},
	"ppc64le": {},
	"s390x":   {},
	"riscv64": {},
	"loong64": {},
}

// Checker 校验当前系统是否满足 goup 的运行要求。
type Checker struct {
	cfg    models.Config
	target func() Target
}

// NewChecker 创建平台检测器。
func NewChecker(cfg models.Config) *Checker {
	return &Checker{cfg: cfg, target: CurrentTarget}
}

// Validate 校验当前平台与根目录权限。
func (c *Checker) Validate() error {
	t := c.target()
	goos := MapOS(t.OS)
	if _, ok := supportedOS[goos]; !ok {
		return &errs.Error{Kind: errs.KindPlatformUnsupported, Op: "platform", Actual: goos, Err: fmt.Errorf("unsupported operating system %s", goos)}
	}
	arch := MapArch(goos, t.Arch)
	if _, ok := supportedArch[arch]; !ok {
		return &errs.Error{Kind: errs.KindPlatformUnsupported, Op: "platform", Actual: arch, Err: fmt.Errorf("unsupported architecture %s", arch)}
	}

	if c.cfg.Home == "" {
		return fmt.Errorf("platform: home directory is not configured")
	}
	if err := os.MkdirAll(c.cfg.Home, 0o755); err != nil {
		return fmt.Errorf("platform: cannot access home directory %s: %w", c.cfg.Home, err)
	}
	return nil
}
