package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/liangyou/goup/pkg/models"
)

// 环境变量名，与 viper 的 GOUP 前缀映射保持一致。
const (
	EnvHome            = "GOUP_HOME"
	EnvGoHost          = "GOUP_GO_HOST"
	EnvDownloadBaseURL = "GOUP_GO_DOWNLOAD_BASE_URL"
)

const (
	DefaultGoHost          = "https://golang.google.cn"
	DefaultDownloadBaseURL = "https://dl.google.com/go"
	defaultHomeDirName     = ".goup"
)

const (
	keyHome            = "home"
	keyGoHost          = "go_host"
	keyDownloadBaseURL = "go_download_base_url"
	keyMirror          = "mirror"
	keyLogLevel        = "log.level"
	keyLogFormat       = "log.format"
	keyLogFile         = "log.file"
	keyProbeTimeout    = "download.probe_timeout"
	keyChunkTimeout    = "download.chunk_timeout"
	keyFullBodyTimeout = "download.full_body_timeout"
	keyInitialChunk    = "download.initial_chunk"
	keyMinChunk        = "download.min_chunk"
	keyMaxChunk        = "download.max_chunk"
)

const mib = 1024 * 1024

// Loader 负责从环境变量与可选配置文件构造 models.Config。
type Loader struct {
	homeFn func() (string, error)
	lookup func(string) (string, bool)
}

// NewLoader 创建 Loader。
func NewLoader() *Loader {
	return &Loader{homeFn: os.UserHomeDir, lookup: os.LookupEnv}
}

// Load 读取配置。path 为空时尝试 $GOUP_HOME/config.yaml，文件不存在不视为错误。
func (l *Loader) Load(path string) (models.Config, error) {
	v := viper.New()

	home, err := l.defaultHome()
	if err != nil {
		return models.Config{}, err
	}

	v.SetDefault(keyHome, home)
	v.SetDefault(keyGoHost, DefaultGoHost)
	v.SetDefault(keyDownloadBaseURL, DefaultDownloadBaseURL)
	v.SetDefault(keyMirror, "")
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyProbeTimeout, 10*time.Second)
	v.SetDefault(keyChunkTimeout, 30*time.Second)
	v.SetDefault(keyFullBodyTimeout, 30*time.Minute)
	v.SetDefault(keyInitialChunk, 2*mib)
	v.SetDefault(keyMinChunk, 1*mib)
	v.SetDefault(keyMaxChunk, 64*mib)

	v.SetEnvPrefix("GOUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString(keyHome))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return models.Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := models.Config{
		Home:             expandHome(v.GetString(keyHome), home),
		GoHost:           strings.TrimRight(v.GetString(keyGoHost), "/"),
		DownloadBaseURL:  strings.TrimRight(v.GetString(keyDownloadBaseURL), "/"),
		Mirror:           strings.ToLower(strings.TrimSpace(v.GetString(keyMirror))),
		HostExplicit:     l.explicit(v, keyGoHost, EnvGoHost),
		DownloadExplicit: l.explicit(v, keyDownloadBaseURL, EnvDownloadBaseURL),
		Log: models.LogConfig{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
			File:   v.GetString(keyLogFile),
		},
		Download: models.DownloadConfig{
			ProbeTimeout:    v.GetDuration(keyProbeTimeout),
			ChunkTimeout:    v.GetDuration(keyChunkTimeout),
			FullBodyTimeout: v.GetDuration(keyFullBodyTimeout),
			InitialChunk:    v.GetInt64(keyInitialChunk),
			MinChunk:        v.GetInt64(keyMinChunk),
			MaxChunk:        v.GetInt64(keyMaxChunk),
		},
		ConfigFileUsed: v.ConfigFileUsed(),
	}

	if err := validate(cfg); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

func (l *Loader) defaultHome() (string, error) {
	userHome, err := l.homeFn()
	if err != nil {
		return "", fmt.Errorf("config: resolve user home: %w", err)
	}
	return filepath.Join(userHome, defaultHomeDirName), nil
}

// explicit 判断 key 是否来自配置文件或非空的环境变量。
func (l *Loader) explicit(v *viper.Viper, key, env string) bool {
	if val, ok := l.lookup(env); ok && val != "" {
		return true
	}
	return v.InConfig(key)
}

func expandHome(p, defaultHome string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return defaultHome
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		return filepath.Join(filepath.Dir(defaultHome), strings.TrimPrefix(p[1:], "/"))
	}
	return filepath.Clean(p)
}

func validate(cfg models.Config) error {
	d := cfg.Download
	if d.MinChunk <= 0 {
		return fmt.Errorf("config: download.min_chunk must be positive")
	}
	if d.InitialChunk < d.MinChunk {
		return fmt.Errorf("config: download.initial_chunk %d below min_chunk %d", d.InitialChunk, d.MinChunk)
	}
	if d.MaxChunk < d.InitialChunk {
		return fmt.Errorf("config: download.max_chunk %d below initial_chunk %d", d.MaxChunk, d.InitialChunk)
	}
	if cfg.Mirror != "" && cfg.Mirror != "auto" {
		return fmt.Errorf("config: unsupported mirror mode %q", cfg.Mirror)
	}
	return nil
}
