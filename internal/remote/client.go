package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

const (
	defaultHost     = "https://golang.google.cn"
	defaultCacheTTL = 5 * time.Minute
	defaultTimeout  = 10 * time.Second

	releasesPath = "/dl/?mode=json&include=all"
	latestPath   = "/VERSION?m=text"

	cacheKeyReleases = "releases"
	cacheKeyLatest   = "latest"
)

// Release 是上游发布列表中的一个版本。
type Release struct {
	Version models.Version
	Stable  bool
}

// Source 定义远程版本源应具备的能力。
type Source interface {
	ListVersions(ctx context.Context) ([]Release, error)
	LatestStable(ctx context.Context) (models.Version, error)
}

// HTTPClient 描述最小化的 HTTP 客户端接口，方便测试时替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 用于配置 Client。
type Option func(*Client)

// WithHost 设置上游站点地址，例如 https://go.dev。
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = strings.TrimRight(host, "/")
		}
	}
}

// WithHTTPClient 设置 HTTP 客户端。
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithCacheTTL 设置远程结果缓存时间。
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client 实现 Source，结果在 TTL 内缓存于内存。
type Client struct {
	host       string
	httpClient HTTPClient
	cacheTTL   time.Duration
	log        *logger.Logger

	cache *gocache.Cache
}

// NewClient 创建远程版本源客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		host:       defaultHost,
		httpClient: http.DefaultClient,
		cacheTTL:   defaultCacheTTL,
		log:        logger.NewLogger("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = gocache.New(c.cacheTTL, 2*c.cacheTTL)
	return c
}

// ListVersions 返回上游全部版本，按版本号升序排列。
func (c *Client) ListVersions(ctx context.Context) ([]Release, error) {
	if cached, ok := c.cache.Get(cacheKeyReleases); ok {
		return cloneReleases(cached.([]Release)), nil
	}

	body, err := c.get(ctx, c.host+releasesPath)
	if err != nil {
		return nil, err
	}

	var payload []struct {
		Version string `json:"version"`
		Stable  bool   `json:"stable"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("remote: decode response: %w", err)
	}

	releases := make([]Release, 0, len(payload))
	for _, p := range payload {
		v := models.Version(p.Version).Normalize()
		if v.IsZero() {
			continue
		}
		releases = append(releases, Release{Version: v, Stable: p.Stable})
	}
	sort.SliceStable(releases, func(i, j int) bool {
		return models.CompareVersions(releases[i].Version, releases[j].Version) < 0
	})

	c.log.WithField("count", len(releases)).Debug("fetched upstream releases")
	c.cache.Set(cacheKeyReleases, releases, gocache.DefaultExpiration)
	return cloneReleases(releases), nil
}

// LatestStable 返回上游公布的最新稳定版本。
func (c *Client) LatestStable(ctx context.Context) (models.Version, error) {
	if cached, ok := c.cache.Get(cacheKeyLatest); ok {
		return cached.(models.Version), nil
	}

	body, err := c.get(ctx, c.host+latestPath)
	if err != nil {
		return "", err
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	if !scanner.Scan() {
		return "", fmt.Errorf("remote: empty version response")
	}
	v := models.Version(scanner.Text()).Normalize()
	if v.IsZero() {
		return "", fmt.Errorf("remote: empty version response")
	}

	c.cache.Set(cacheKeyLatest, v, gocache.DefaultExpiration)
	return v, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("User-Agent", "goup-client")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindTransport, Op: "remote", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errs.Error{
			Kind: errs.KindUpstream,
			Op:   "remote",
			URL:  url,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindTransport, Op: "remote", URL: url, Err: err}
	}
	return body, nil
}

func cloneReleases(in []Release) []Release {
	out := make([]Release, len(in))
	copy(out, in)
	return out
}
