package link

import (
	"fmt"
	"os"
)

// SymlinkLinker 使用符号链接。
type SymlinkLinker struct{}

func (SymlinkLinker) Name() string { return "symlink" }

func (SymlinkLinker) Link(target, at string) error {
	if err := os.Symlink(target, at); err != nil {
		return fmt.Errorf("link: symlink %s -> %s: %w", at, target, err)
	}
	return nil
}

func (SymlinkLinker) Resolve(at string) (string, error) {
	return os.Readlink(at)
}
