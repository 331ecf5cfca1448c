package models

import "strings"

// Version 表示规范化后的 Go 版本标识，例如 1.21.5 或 1.22rc1。
type Version string

// versionPrefix 是上游发布标签的约定前缀。
const versionPrefix = "go"

// Normalize 去除空白、前导 "=" 以及 "go" 前缀。
func (v Version) Normalize() Version {
	s := strings.TrimSpace(string(v))
	s = strings.TrimPrefix(s, "=")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, versionPrefix)
	return Version(s)
}

// Tag 返回上游使用的发布标签，例如 go1.21.5。
func (v Version) Tag() string {
	return versionPrefix + string(v.Normalize())
}

// String 返回原始字符串。
func (v Version) String() string {
	return string(v)
}

// IsZero 判断版本是否为空。
func (v Version) IsZero() bool {
	return v.Normalize() == ""
}

// SameVersion 按规范化结果比较两个版本。
func SameVersion(a, b Version) bool {
	return a.Normalize() == b.Normalize()
}

// InstalledVersion 描述本地已安装的版本。
type InstalledVersion struct {
	Version Version // 规范化版本号
	Dir     string  // 版本目录
	Active  bool    // 是否为当前激活版本
}
