// Package region 探测公网出口所在国家，用于自动选择上游镜像。
package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/liangyou/goup/pkg/logger"
)

const (
	defaultEndpoint = "https://ipinfo.io/country"
	defaultFallback = "https://ipapi.co/json"
	defaultTimeout  = 3 * time.Second
)

// CountryDetector 返回 ISO 3166 两位国家代码。
type CountryDetector interface {
	CountryCode(ctx context.Context) (string, error)
}

// HTTPClient 最小化 HTTP 客户端接口，便于测试替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type endpoint struct {
	url   string
	parse func([]byte) (string, error)
}

// Detector 依次请求主接口与备选接口，成功结果在进程内缓存。
type Detector struct {
	endpoints []endpoint
	client    HTTPClient
	timeout   time.Duration
	log       *logger.Logger

	mu   sync.Mutex
	code string
}

// Option 用于配置 Detector。
type Option func(*Detector)

// WithEndpoint 替换主接口，响应体为纯文本国家代码。
func WithEndpoint(url string) Option {
	return func(d *Detector) {
		if url != "" {
			d.endpoints[0] = endpoint{url: url, parse: parsePlain}
		}
	}
}

// WithFallbackEndpoint 替换备选接口，响应体为带 country_code 字段的 JSON；传空字符串禁用。
func WithFallbackEndpoint(url string) Option {
	return func(d *Detector) {
		if url == "" {
			d.endpoints = d.endpoints[:1]
			return
		}
		d.endpoints = append(d.endpoints[:1], endpoint{url: url, parse: parseJSON})
	}
}

func WithHTTPClient(client HTTPClient) Option {
	return func(d *Detector) {
		if client != nil {
			d.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDetector 创建 Detector 实例。
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		endpoints: []endpoint{
			{url: defaultEndpoint, parse: parsePlain},
			{url: defaultFallback, parse: parseJSON},
		},
		client:  http.DefaultClient,
		timeout: defaultTimeout,
		log:     logger.NewLogger("region"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CountryCode 返回大写国家代码，例如 CN、US。
func (d *Detector) CountryCode(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.code != "" {
		return d.code, nil
	}

	var failures []error
	for _, ep := range d.endpoints {
		code, err := d.fetch(ctx, ep)
		if err == nil {
			d.code = code
			return code, nil
		}
		d.log.WithError(err).WithField("endpoint", ep.url).Debug("country lookup failed")
		failures = append(failures, err)
	}
	return "", fmt.Errorf("region: detect country: %w", errors.Join(failures...))
}

func (d *Detector) fetch(ctx context.Context, ep endpoint) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", ep.url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", ep.url, err)
	}
	return ep.parse(data)
}

func parsePlain(data []byte) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(string(data)))
	if len(code) != 2 {
		return "", fmt.Errorf("invalid country code %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid country code %q", code)
		}
	}
	return code, nil
}

func parseJSON(data []byte) (string, error) {
	var payload struct {
		CountryCode string `json:"country_code"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return parsePlain([]byte(payload.CountryCode))
}
