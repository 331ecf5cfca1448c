// Package link 维护指向当前版本目录的固定链接。
//
// POSIX 平台使用符号链接，Windows 使用目录联接（junction），
// 后者不需要管理员权限或开发者模式。
package link

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// Linker 是平台相关的链接原语。
type Linker interface {
	// Link 在 at 处创建指向 target 的链接，at 必须不存在。
	Link(target, at string) error
	// Resolve 返回 at 指向的目录。
	Resolve(at string) (string, error)
	Name() string
}

// Detect 根据运行平台选择链接实现，只应在启动时调用一次。
func Detect() Linker {
	return detect(runtime.GOOS)
}

func detect(goos string) Linker {
	if goos == "windows" {
		return JunctionLinker{}
	}
	return SymlinkLinker{}
}

// Remove 删除 at 处的链接，不存在时忽略。不会删除链接指向的内容。
func Remove(at string) error {
	if err := os.Remove(at); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("link: remove %s: %w", at, err)
	}
	return nil
}
