package remote

import (
	"fmt"
	"regexp"
	"strings"
)

type filterKind int

const (
	filterAll filterKind = iota
	filterStable
	filterUnstable
	filterBeta
	filterRegexp
)

// Filter 筛选上游版本：stable、unstable（rc）、beta 或任意正则表达式。
type Filter struct {
	kind filterKind
	re   *regexp.Regexp
}

// ParseFilter 解析筛选表达式，空字符串表示不过滤。
func ParseFilter(expr string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(expr)) {
	case "":
		return Filter{kind: filterAll}, nil
	case "stable":
		return Filter{kind: filterStable}, nil
	case "unstable":
		return Filter{kind: filterUnstable}, nil
	case "beta":
		return Filter{kind: filterBeta}, nil
	}
	re, err := regexp.Compile(strings.TrimSpace(expr))
	if err != nil {
		return Filter{}, fmt.Errorf("remote: invalid filter %q: %w", expr, err)
	}
	return Filter{kind: filterRegexp, re: re}, nil
}

// Match 判断版本是否满足筛选条件。
func (f Filter) Match(r Release) bool {
	s := string(r.Version)
	switch f.kind {
	case filterStable:
		return r.Version.IsStable()
	case filterUnstable:
		return strings.Contains(s, "rc")
	case filterBeta:
		return strings.Contains(s, "beta")
	case filterRegexp:
		return f.re.MatchString(s)
	default:
		return true
	}
}

// FilterVersions 返回满足筛选条件的版本，保持原有顺序。
func FilterVersions(releases []Release, f Filter) []Release {
	out := make([]Release, 0, len(releases))
	for _, r := range releases {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
