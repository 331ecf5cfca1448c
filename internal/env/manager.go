// Package env 输出 goup 相关的环境变量，并维护 shell 配置文件中的 PATH 配置块。
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/liangyou/goup/internal/config"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

const (
	blockStart = "# >>> goup initialize >>>"
	blockEnd   = "# <<< goup initialize <<<"
)

// Manager 暴露环境配置能力。
type Manager struct {
	cfg  models.Config
	goos string
	log  *logger.Logger

	homeFn func() (string, error)
	envFn  func(string) string
}

// NewManager 构造环境配置服务。
func NewManager(cfg models.Config) *Manager {
	return &Manager{
		cfg:    cfg,
		goos:   runtime.GOOS,
		log:    logger.NewLogger("env"),
		homeFn: os.UserHomeDir,
		envFn:  os.Getenv,
	}
}

// Vars 返回当前生效的 goup 环境变量，Windows 下为 "set KEY=VALUE" 形式。
func (m *Manager) Vars() []string {
	pairs := [][2]string{
		{config.EnvHome, m.cfg.Home},
		{config.EnvGoHost, m.cfg.GoHost},
		{config.EnvDownloadBaseURL, m.cfg.DownloadBaseURL},
	}
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		line := p[0] + "=" + p[1]
		if m.goos == "windows" {
			line = "set " + line
		}
		lines = append(lines, line)
	}
	return lines
}

// BinDir 返回需要加入 PATH 的目录。
func (m *Manager) BinDir() string {
	return filepath.Join(m.cfg.Home, "current", "go", "bin")
}

// DetectShell 根据 SHELL 环境变量推断当前 shell。
func (m *Manager) DetectShell() (string, error) {
	shellPath := m.envFn("SHELL")
	if shellPath == "" {
		shellPath = "bash"
	}
	shell := filepath.Base(shellPath)
	switch shell {
	case "bash", "zsh":
		return shell, nil
	default:
		return "", fmt.Errorf("env: unsupported shell %q", shell)
	}
}

// UpdateShellConfig 对指定 shell 写入配置块，重复执行只保留一份。返回被修改的文件路径。
func (m *Manager) UpdateShellConfig(shellType string) (string, error) {
	if shellType == "" {
		detected, err := m.DetectShell()
		if err != nil {
			return "", err
		}
		shellType = detected
	}

	configPath, err := m.configFileForShell(shellType)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("env: ensure config dir: %w", err)
	}

	var existing []byte
	if data, err := os.ReadFile(configPath); err == nil {
		existing = data
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("env: read config: %w", err)
	}

	merged := mergeConfig(string(existing), m.buildConfigBlock())
	if err := os.WriteFile(configPath, []byte(merged), 0o644); err != nil {
		return "", fmt.Errorf("env: write config: %w", err)
	}
	m.log.WithField("path", configPath).Info("shell config updated")
	return configPath, nil
}

func (m *Manager) configFileForShell(shellType string) (string, error) {
	home, err := m.homeFn()
	if err != nil {
		return "", fmt.Errorf("env: home dir: %w", err)
	}

	switch shellType {
	case "bash":
		path := filepath.Join(home, ".bashrc")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return filepath.Join(home, ".bash_profile"), nil
	case "zsh":
		return filepath.Join(home, ".zshrc"), nil
	default:
		return "", fmt.Errorf("env: unsupported shell %q", shellType)
	}
}

func (m *Manager) buildConfigBlock() string {
	lines := []string{
		blockStart,
		fmt.Sprintf("export %s=%q", config.EnvHome, m.cfg.Home),
		fmt.Sprintf("export PATH=\"$%s/current/go/bin:$PATH\"", config.EnvHome),
		blockEnd,
	}
	return strings.Join(lines, "\n")
}

func mergeConfig(existing, block string) string {
	cleaned := strings.TrimRight(removeExistingBlock(existing), "\n")
	if strings.TrimSpace(cleaned) == "" {
		return block + "\n"
	}
	return cleaned + "\n\n" + block + "\n"
}

func removeExistingBlock(content string) string {
	var kept []string
	skipping := false
	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimSpace(line) {
		case blockStart:
			skipping = true
			continue
		case blockEnd:
			skipping = false
			continue
		}
		if skipping || (line == "" && len(kept) == 0) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Trim(strings.Join(kept, "\n"), "\n")
}
