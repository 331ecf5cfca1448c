// Package lock 提供基于文件的按版本咨询锁，防止同一版本被并发安装。
package lock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liangyou/goup/internal/errs"
)

// StaleThreshold 超过该时长的锁视为遗留锁，可以被接管。
const StaleThreshold = 10 * time.Minute

// Lock 表示一个已持有的锁。
type Lock struct {
	path  string
	owner string
	file  *os.File
}

// Acquire 在 dir 下以 O_EXCL 创建 <name>.lock。锁被占用时返回 Busy。
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: create lock dir: %w", err)
	}
	path := filepath.Join(dir, sanitize(name)+".lock")

	file, err := create(path)
	if err != nil {
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("lock: create %s: %w", path, err)
		}
		if !isStale(path) {
			return nil, &errs.Error{Kind: errs.KindBusy, Op: "lock", Path: path}
		}
		_ = os.Remove(path)
		if file, err = create(path); err != nil {
			return nil, &errs.Error{Kind: errs.KindBusy, Op: "lock", Path: path, Err: err}
		}
	}

	owner := uuid.NewString()
	data := fmt.Sprintf("pid=%d\nowner=%s\ntimestamp=%s\n", os.Getpid(), owner, time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(data); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("lock: write %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("lock: sync %s: %w", path, err)
	}

	return &Lock{path: path, owner: owner, file: file}, nil
}

// Path 返回锁文件路径。
func (l *Lock) Path() string {
	return l.path
}

// Release 释放锁。锁文件已被其他进程接管时不删除。
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path == "" {
		return nil
	}

	if owner, err := readOwner(l.path); err == nil && owner != l.owner {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lock: remove %s: %w", l.path, err)
	}
	l.path = ""
	return nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
}

func isStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > StaleThreshold
}

func readOwner(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "owner="); ok {
			return v, nil
		}
	}
	return "", scanner.Err()
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}
