// Package checksum 以流式 sha256 校验缓存中的压缩包。
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/liangyou/goup/internal/errs"
)

const bufferSize = 32 * 1024

// FileSHA256 以固定大小的缓冲区流式计算文件摘要，返回小写十六进制。
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify 读取校验文件中的期望摘要（去除首尾空白）并与压缩包比对。
func Verify(archivePath, checksumPath string) error {
	data, err := os.ReadFile(checksumPath)
	if err != nil {
		return fmt.Errorf("checksum: read %s: %w", checksumPath, err)
	}
	return VerifyDigest(archivePath, string(data))
}

// VerifyDigest 将文件摘要与 expected 比对，不一致时返回 ChecksumMismatch。
func VerifyDigest(path, expected string) error {
	expected = strings.TrimSpace(expected)
	actual, err := FileSHA256(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return &errs.Error{
			Kind:     errs.KindChecksumMismatch,
			Op:       "checksum",
			Path:     path,
			Expected: expected,
			Actual:   actual,
		}
	}
	return nil
}
