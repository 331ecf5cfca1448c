package region

import (
	"context"
	"strings"

	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

// MirrorAuto 是 mirror 配置项唯一支持的非空取值。
const MirrorAuto = "auto"

// Mirror 描述上游站点与发行包下载地址。
type Mirror struct {
	GoHost          string
	DownloadBaseURL string
}

var (
	// OfficialMirror 是官方站点。
	OfficialMirror = Mirror{
		GoHost:          "https://go.dev",
		DownloadBaseURL: "https://dl.google.com/go",
	}
	// ChinaMirror 是面向中国大陆的官方镜像。
	ChinaMirror = Mirror{
		GoHost:          "https://golang.google.cn",
		DownloadBaseURL: "https://golang.google.cn/dl",
	}
)

// SelectMirror 根据国家代码返回镜像。
func SelectMirror(countryCode string) Mirror {
	if strings.EqualFold(strings.TrimSpace(countryCode), "CN") {
		return ChinaMirror
	}
	return OfficialMirror
}

// Apply 在 mirror=auto 时按探测结果改写未显式配置的地址。探测失败时保持配置不变。
func Apply(ctx context.Context, cfg models.Config, detector CountryDetector) models.Config {
	if cfg.Mirror != MirrorAuto || detector == nil {
		return cfg
	}
	if cfg.HostExplicit && cfg.DownloadExplicit {
		return cfg
	}

	log := logger.NewLogger("region")
	code, err := detector.CountryCode(ctx)
	if err != nil {
		log.WithError(err).Warn("mirror auto-selection skipped")
		return cfg
	}

	m := SelectMirror(code)
	if !cfg.HostExplicit {
		cfg.GoHost = m.GoHost
	}
	if !cfg.DownloadExplicit {
		cfg.DownloadBaseURL = m.DownloadBaseURL
	}
	log.WithFields(logger.Fields{
		"country":  code,
		"go_host":  cfg.GoHost,
		"download": cfg.DownloadBaseURL,
	}).Debug("mirror selected")
	return cfg
}
