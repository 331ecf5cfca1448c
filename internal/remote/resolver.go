package remote

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"

	"github.com/liangyou/goup/pkg/models"
)

var (
	exactPattern     = regexp.MustCompile(`^\d+\.\d+\.\d+$|^\d+\.\d+(\.\d+)?(rc|beta)\d+$`)
	minorOnlyPattern = regexp.MustCompile(`^\d+\.\d+$`)
)

// Resolver 将工具链描述解析为具体版本。
type Resolver struct {
	source Source
}

// NewResolver 创建解析器。
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve 支持的写法：
//
//	stable            最新稳定版
//	unstable | beta   最新的 rc 或 beta 版本
//	=1.21.4 | 1.21.4  精确版本，不访问网络
//	1.21 | >=1.20.0 <1.22.0 | 1.21.x
//	                  满足约束的最新稳定版
func (r *Resolver) Resolve(ctx context.Context, toolchain string) (models.Version, error) {
	expr := strings.TrimSpace(toolchain)
	lower := strings.ToLower(expr)

	switch lower {
	case "", "stable":
		return r.source.LatestStable(ctx)
	case "unstable":
		return r.newest(ctx, Filter{kind: filterUnstable}, toolchain)
	case "beta":
		return r.newest(ctx, Filter{kind: filterBeta}, toolchain)
	case "nightly", "tip", "gotip":
		return "", fmt.Errorf("remote: %s toolchain is not supported", lower)
	}

	if strings.HasPrefix(expr, "=") {
		v := models.Version(expr).Normalize()
		if v.IsZero() {
			return "", fmt.Errorf("remote: empty version in %q", toolchain)
		}
		return v, nil
	}
	if v := models.Version(expr).Normalize(); exactPattern.MatchString(string(v)) {
		return v, nil
	}

	rng, err := parseRange(expr)
	if err != nil {
		return "", err
	}

	releases, err := r.source.ListVersions(ctx)
	if err != nil {
		return "", err
	}
	for i := len(releases) - 1; i >= 0; i-- {
		rel := releases[i]
		if !rel.Version.IsStable() {
			continue
		}
		sv, err := rel.Version.Semver()
		if err != nil {
			continue
		}
		if rng(sv) {
			return rel.Version, nil
		}
	}
	return "", fmt.Errorf("remote: no upstream version matches %q", toolchain)
}

func (r *Resolver) newest(ctx context.Context, f Filter, toolchain string) (models.Version, error) {
	releases, err := r.source.ListVersions(ctx)
	if err != nil {
		return "", err
	}
	matched := FilterVersions(releases, f)
	if len(matched) == 0 {
		return "", fmt.Errorf("remote: no upstream version matches %q", toolchain)
	}
	return matched[len(matched)-1].Version, nil
}

func parseRange(requirement string) (semver.Range, error) {
	expr := strings.TrimPrefix(strings.TrimSpace(requirement), "go")
	if minorOnlyPattern.MatchString(expr) {
		expr += ".x"
	}
	rng, err := semver.ParseRange(expr)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid version requirement %q: %w", requirement, err)
	}
	return rng, nil
}
