package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"
)

// goVersionPattern 匹配 1.21、1.21.5、1.22rc1、1.18beta2 这类上游版本号。
var goVersionPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:(rc|beta)(\d+))?$`)

// Semver 将 Go 版本号转换为语义化版本，预发布部分记为 -rc.N 或 -beta.N。
func (v Version) Semver() (semver.Version, error) {
	s := string(v.Normalize())
	m := goVersionPattern.FindStringSubmatch(s)
	if m == nil {
		return semver.Version{}, fmt.Errorf("models: invalid go version %q", s)
	}

	minor, patch := orZero(m[2]), orZero(m[3])
	text := fmt.Sprintf("%s.%s.%s", m[1], minor, patch)
	if m[4] != "" {
		text += "-" + m[4] + "." + m[5]
	}
	return semver.Parse(text)
}

// IsStable 判断版本是否为正式版。
func (v Version) IsStable() bool {
	s := strings.ToLower(string(v.Normalize()))
	return s != "" && !strings.Contains(s, "rc") && !strings.Contains(s, "beta")
}

// CompareVersions 按语义化版本比较，无法解析的版本按字符串比较并排在后面。
func CompareVersions(a, b Version) int {
	sa, errA := a.Semver()
	sb, errB := b.Semver()
	switch {
	case errA == nil && errB == nil:
		return sa.Compare(sb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(a.Normalize()), string(b.Normalize()))
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
