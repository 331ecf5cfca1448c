// Package download 以自适应分块的 Range 请求获取发行包，并以单次请求获取校验文件。
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

// UserAgent 是每个请求携带的固定客户端标识。
const UserAgent = "goup-client"

const (
	defaultProbeTimeout    = 10 * time.Second
	defaultChunkTimeout    = 30 * time.Second
	defaultFullBodyTimeout = 30 * time.Minute
)

// ProgressFunc 在每个分块写入后回调已完成字节数与总字节数。
type ProgressFunc func(done, total int64)

// HTTPClient 定义 Downloader 所需的 HTTP 客户端能力。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloader 负责把远程对象写入本地缓存文件。
type Downloader struct {
	httpClient   HTTPClient
	progressFunc ProgressFunc
	log          *logger.Logger

	probeTimeout    time.Duration
	chunkTimeout    time.Duration
	fullBodyTimeout time.Duration
	initialChunk    int64
	bounds          ChunkBounds
}

// Option 配置 Downloader。
type Option func(*Downloader)

// WithHTTPClient 指定自定义 HTTP 客户端。
func WithHTTPClient(client HTTPClient) Option {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithProgressFunc 指定进度回调。
func WithProgressFunc(fn ProgressFunc) Option {
	return func(d *Downloader) {
		d.progressFunc = fn
	}
}

// WithLogger 指定日志实例。
func WithLogger(l *logger.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.log = l
		}
	}
}

// New 根据下载配置创建 Downloader，未设置的字段使用默认值。
func New(cfg models.DownloadConfig, opts ...Option) *Downloader {
	d := &Downloader{
		httpClient:      http.DefaultClient,
		log:             logger.NewLogger("download"),
		probeTimeout:    orDuration(cfg.ProbeTimeout, defaultProbeTimeout),
		chunkTimeout:    orDuration(cfg.ChunkTimeout, defaultChunkTimeout),
		fullBodyTimeout: orDuration(cfg.FullBodyTimeout, defaultFullBodyTimeout),
		initialChunk:    orInt64(cfg.InitialChunk, DefaultInitialChunk),
		bounds: ChunkBounds{
			Min: orInt64(cfg.MinChunk, DefaultMinChunk),
			Max: orInt64(cfg.MaxChunk, DefaultMaxChunk),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FetchArchive 先探测对象长度，再按分块 Range 请求写入 dest，最后核对文件长度。
// dest 总是从 0 开始覆盖写入；失败时残留的部分文件不会被删除。
func (d *Downloader) FetchArchive(ctx context.Context, url, dest string) (int64, error) {
	total, err := d.probe(ctx, url)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("download: create cache dir: %w", err)
	}
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("download: open %s: %w", dest, err)
	}
	defer file.Close()

	d.log.WithFields(logger.Fields{
		"url":  url,
		"size": humanize.IBytes(uint64(total)),
	}).Info("downloading archive")

	state := NewChunkState(d.initialChunk, d.bounds)
	for state.Offset < total {
		start := time.Now()
		n, err := d.fetchChunk(ctx, url, file, state, total)
		if err != nil {
			return state.Offset, err
		}
		if n == 0 {
			break
		}
		state = state.Advance(n, time.Since(start), d.bounds)

		d.log.WithFields(logger.Fields{
			"offset":     state.Offset,
			"next_chunk": humanize.IBytes(uint64(state.ChunkSize)),
			"throughput": humanize.IBytes(uint64(state.LastThroughput)) + "/s",
		}).Debug("chunk received")
		if d.progressFunc != nil {
			d.progressFunc(state.Offset, total)
		}
	}

	if err := file.Sync(); err != nil {
		return state.Offset, fmt.Errorf("download: sync %s: %w", dest, err)
	}
	info, err := file.Stat()
	if err != nil {
		return state.Offset, fmt.Errorf("download: stat %s: %w", dest, err)
	}
	if info.Size() != total {
		return info.Size(), &errs.Error{
			Kind:     errs.KindSizeMismatch,
			Op:       "download",
			Path:     dest,
			URL:      url,
			Expected: strconv.FormatInt(total, 10),
			Actual:   strconv.FormatInt(info.Size(), 10),
		}
	}
	return total, nil
}

func (d *Downloader) probe(ctx context.Context, url string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	req, err := d.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, &errs.Error{Kind: errs.KindTransport, Op: "download: probe", URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, &errs.Error{Kind: errs.KindNotFound, Op: "download: probe", URL: url}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, &errs.Error{
			Kind: errs.KindUpstream,
			Op:   "download: probe",
			URL:  url,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	case resp.ContentLength < 0:
		return 0, &errs.Error{
			Kind: errs.KindUpstream,
			Op:   "download: probe",
			URL:  url,
			Err:  fmt.Errorf("missing content length"),
		}
	}
	return resp.ContentLength, nil
}

// fetchChunk 请求 [Offset, End] 并追加写入 w，返回写入字节数。
// 分块受 chunkTimeout 限制；服务端返回完整对象时改用 fullBodyTimeout。
func (d *Downloader) fetchChunk(ctx context.Context, url string, w io.Writer, state ChunkState, total int64) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	deadline := time.AfterFunc(d.chunkTimeout, cancel)
	defer deadline.Stop()

	req, err := d.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", state.Offset, state.End(total)))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, &errs.Error{Kind: errs.KindTransport, Op: "download: chunk", URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusOK && state.Offset == 0:
		// 服务端忽略了 Range，响应体即完整对象
		deadline.Reset(d.fullBodyTimeout)
		d.log.WithField("url", url).Debug("range ignored, reading full body")
	default:
		return 0, &errs.Error{
			Kind: errs.KindUpstream,
			Op:   "download: chunk",
			URL:  url,
			Err:  fmt.Errorf("unexpected status %d for offset %d", resp.StatusCode, state.Offset),
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &errs.Error{Kind: errs.KindTransport, Op: "download: chunk", URL: url, Err: err}
	}
	return n, nil
}

// FetchChecksum 以单次 GET 获取校验文件并写入 dest，任何失败都归为 DownloadError。
func (d *Downloader) FetchChecksum(ctx context.Context, url, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, d.chunkTimeout)
	defer cancel()

	req, err := d.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &errs.Error{Kind: errs.KindDownload, Op: "download: checksum", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errs.Error{
			Kind: errs.KindDownload,
			Op:   "download: checksum",
			URL:  url,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{Kind: errs.KindDownload, Op: "download: checksum", URL: url, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("download: create cache dir: %w", err)
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return fmt.Errorf("download: write %s: %w", dest, err)
	}
	d.log.WithField("path", dest).Debug("checksum saved")
	return nil
}

func (d *Downloader) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download: build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func orInt64(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}
