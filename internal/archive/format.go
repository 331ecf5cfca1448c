// Package archive 根据文件后缀选择解压算法并将内容展开到目标目录。
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/liangyou/goup/internal/errs"
)

// Format 是封闭的压缩格式集合。
type Format int

const (
	FormatTarGz Format = iota + 1
	FormatZip
)

func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

// Classify 仅根据文件名后缀判断格式，不访问文件系统。
func Classify(name string) (Format, error) {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	default:
		return 0, &errs.Error{Kind: errs.KindUnsupportedFormat, Op: "archive", Path: name}
	}
}

// Extract 将 archivePath 完整展开到 destDir，必要时创建 destDir。
// 任一成员失败即中止并返回 ExtractionFailure。
func (f Format) Extract(archivePath, destDir string) error {
	var err error
	switch f {
	case FormatTarGz:
		err = extractTarGz(archivePath, destDir)
	case FormatZip:
		err = extractZip(archivePath, destDir)
	default:
		return &errs.Error{Kind: errs.KindUnsupportedFormat, Op: "archive", Path: archivePath}
	}
	if err != nil {
		return &errs.Error{Kind: errs.KindExtraction, Op: "archive", Path: archivePath, Err: err}
	}
	return nil
}

// Unpack 先分类再解压。
func Unpack(archivePath, destDir string) error {
	format, err := Classify(archivePath)
	if err != nil {
		return err
	}
	return format.Extract(archivePath, destDir)
}

func ensureWithinRoot(root, target string) error {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return nil
	}
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path %s", target)
	}
	return nil
}

// memberPath 返回成员在 root 下的路径，拒绝越界路径以及经由已解压符号链接的写入。
func memberPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if err := ensureWithinRoot(root, target); err != nil {
		return "", err
	}
	if err := ensureNoSymlinkParents(root, target); err != nil {
		return "", err
	}
	return target, nil
}

// ensureNoSymlinkParents 逐级检查 root 与 target 之间已存在的父目录，不允许出现符号链接。
func ensureNoSymlinkParents(root, target string) error {
	root = filepath.Clean(root)
	rel, err := filepath.Rel(root, filepath.Dir(filepath.Clean(target)))
	if err != nil {
		return fmt.Errorf("illegal path %s", target)
	}
	if rel == "." {
		return nil
	}

	cur := root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("illegal path %s: parent %s is a symlink", target, cur)
		}
	}
	return nil
}

// ensureLinkWithinRoot 只接受指向 root 内部的相对链接。
func ensureLinkWithinRoot(root, at, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) || filepath.IsAbs(filepath.FromSlash(linkname)) {
		return fmt.Errorf("illegal symlink %s -> %s", at, linkname)
	}
	return ensureWithinRoot(root, filepath.Join(filepath.Dir(at), filepath.FromSlash(linkname)))
}
