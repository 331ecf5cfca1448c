//go:build windows

package link

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"golang.org/x/sys/windows"
)

const (
	fsctlSetReparsePoint     = 0x000900A4
	ioReparseTagMountPoint   = 0xA0000003
	reparseHeaderSize        = 8
	mountPointHeaderSize     = 8
	nonInterpretedPathPrefix = `\??\`
)

// JunctionLinker 使用 NTFS 目录联接。
type JunctionLinker struct{}

func (JunctionLinker) Name() string { return "junction" }

// Link 创建空目录后写入挂载点重解析数据。
func (JunctionLinker) Link(target, at string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("link: resolve %s: %w", target, err)
	}
	if err := os.Mkdir(at, 0o755); err != nil {
		return fmt.Errorf("link: create junction dir %s: %w", at, err)
	}

	if err := setMountPoint(at, abs); err != nil {
		_ = os.Remove(at)
		return fmt.Errorf("link: junction %s -> %s: %w", at, abs, err)
	}
	return nil
}

func (JunctionLinker) Resolve(at string) (string, error) {
	dest, err := os.Readlink(at)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(dest, nonInterpretedPathPrefix), nil
}

func setMountPoint(at, target string) error {
	path, err := windows.UTF16PtrFromString(at)
	if err != nil {
		return err
	}
	handle, err := windows.CreateFile(
		path,
		windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OPEN_REPARSE_POINT|windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	buf := mountPointBuffer(target)
	var returned uint32
	return windows.DeviceIoControl(handle, fsctlSetReparsePoint, &buf[0], uint32(len(buf)), nil, 0, &returned, nil)
}

// mountPointBuffer 构造 REPARSE_DATA_BUFFER（MountPointReparseBuffer）。
func mountPointBuffer(target string) []byte {
	substitute := utf16.Encode([]rune(nonInterpretedPathPrefix + target))
	printName := utf16.Encode([]rune(target))

	subLen := len(substitute) * 2
	printLen := len(printName) * 2
	// 两个名称各自带一个 NUL 结尾
	pathBufLen := subLen + 2 + printLen + 2
	dataLen := mountPointHeaderSize + pathBufLen

	buf := make([]byte, reparseHeaderSize+dataLen)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], ioReparseTagMountPoint)
	le.PutUint16(buf[4:], uint16(dataLen))
	le.PutUint16(buf[8:], 0)
	le.PutUint16(buf[10:], uint16(subLen))
	le.PutUint16(buf[12:], uint16(subLen+2))
	le.PutUint16(buf[14:], uint16(printLen))

	off := reparseHeaderSize + mountPointHeaderSize
	for i, c := range substitute {
		le.PutUint16(buf[off+i*2:], c)
	}
	off += subLen + 2
	for i, c := range printName {
		le.PutUint16(buf[off+i*2:], c)
	}
	return buf
}
