package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/goup/internal/errs"
	"github.com/liangyou/goup/pkg/models"
)

func smallChunks() models.DownloadConfig {
	return models.DownloadConfig{
		ProbeTimeout: time.Second,
		ChunkTimeout: time.Second,
		InitialChunk: 64,
		MinChunk:     32,
		MaxChunk:     256,
	}
}

func payload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

type recorder struct {
	heads atomic.Int32
	gets  atomic.Int32

	mu     sync.Mutex
	ranges []string
	agents []string
}

func rangeServer(t *testing.T, data []byte, rec *recorder) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.agents = append(rec.agents, r.Header.Get("User-Agent"))
		if r.Method == http.MethodHead {
			rec.heads.Add(1)
		} else {
			rec.gets.Add(1)
			rec.ranges = append(rec.ranges, r.Header.Get("Range"))
		}
		rec.mu.Unlock()
		http.ServeContent(w, r, "archive.tar.gz", time.Time{}, bytes.NewReader(data))
	}))
}

func TestFetchArchiveRangedLoop(t *testing.T) {
	data := payload(1000)
	rec := &recorder{}
	srv := rangeServer(t, data, rec)
	defer srv.Close()

	var progress []int64
	d := New(smallChunks(), WithProgressFunc(func(done, total int64) {
		assert.Equal(t, int64(len(data)), total)
		progress = append(progress, done)
	}))

	dest := filepath.Join(t.TempDir(), "cache", "1.21.5.linux-amd64.tar.gz")
	n, err := d.FetchArchive(context.Background(), srv.URL+"/1.21.5.linux-amd64.tar.gz", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, int32(1), rec.heads.Load())
	assert.Greater(t, rec.gets.Load(), int32(1))
	require.NotEmpty(t, rec.ranges)
	assert.Equal(t, "bytes=0-63", rec.ranges[0])
	for _, ua := range rec.agents {
		assert.Equal(t, UserAgent, ua)
	}
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(len(data)), progress[len(progress)-1])
}

func TestFetchArchiveOverwritesExistingFile(t *testing.T) {
	data := payload(100)
	srv := rangeServer(t, data, &recorder{})
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, os.WriteFile(dest, bytes.Repeat([]byte("x"), 500), 0o644))

	_, err := New(smallChunks()).FetchArchive(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFetchArchiveAcceptsFullBodyAtOffsetZero(t *testing.T) {
	data := payload(300)
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodHead {
			return
		}
		gets.Add(1)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	n, err := New(smallChunks()).FetchArchive(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, int32(1), gets.Load())
}

// slowFullBodyServer 忽略 Range，先写一半内容，停顿 pause 后再写剩余部分。
func slowFullBodyServer(t *testing.T, data []byte, pause time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodHead {
			return
		}
		half := len(data) / 2
		_, _ = w.Write(data[:half])
		w.(http.Flusher).Flush()
		select {
		case <-time.After(pause):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write(data[half:])
	}))
}

func TestFetchArchiveFullBodyOutlivesChunkTimeout(t *testing.T) {
	data := payload(400)
	srv := slowFullBodyServer(t, data, 300*time.Millisecond)
	defer srv.Close()

	cfg := smallChunks()
	cfg.ChunkTimeout = 100 * time.Millisecond

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	n, err := New(cfg).FetchArchive(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFetchArchiveFullBodyTimeout(t *testing.T) {
	data := payload(400)
	srv := slowFullBodyServer(t, data, 2*time.Second)
	defer srv.Close()

	cfg := smallChunks()
	cfg.FullBodyTimeout = 100 * time.Millisecond

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	_, err := New(cfg).FetchArchive(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, errs.KindTransport, errs.KindOf(err))
}

func TestFetchArchiveProbeStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   errs.Kind
	}{
		{name: "missing release", status: http.StatusNotFound, kind: errs.KindNotFound},
		{name: "server error", status: http.StatusInternalServerError, kind: errs.KindUpstream},
		{name: "forbidden", status: http.StatusForbidden, kind: errs.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gets atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					gets.Add(1)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "archive.tar.gz")
			_, err := New(smallChunks()).FetchArchive(context.Background(), srv.URL, dest)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.Contains(t, err.Error(), srv.URL)
			assert.Zero(t, gets.Load())
		})
	}
}

func TestFetchArchiveTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(smallChunks()).FetchArchive(context.Background(), url, filepath.Join(t.TempDir(), "a.tar.gz"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransport)
}

func TestFetchArchiveTruncatedBody(t *testing.T) {
	const advertised, served = 200, 50
	data := payload(served)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(advertised))
			return
		}
		var start, end int
		if _, err := fmt.Sscanf(strings.TrimPrefix(r.Header.Get("Range"), "bytes="), "%d-%d", &start, &end); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		chunk := []byte{}
		if start < served {
			chunk = data[start:min(end+1, served)]
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(chunk)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(chunk)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	_, err := New(smallChunks()).FetchArchive(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSizeMismatch)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "200", e.Expected)
	assert.Equal(t, "50", e.Actual)

	// 部分文件保留在磁盘上
	info, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.Equal(t, int64(served), info.Size())
}

func TestFetchArchiveRejectsFullBodyAfterOffset(t *testing.T) {
	data := payload(200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			return
		}
		if r.Header.Get("Range") == "bytes=0-63" {
			w.Header().Set("Content-Length", "64")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(data[:64])
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	_, err := New(smallChunks()).FetchArchive(context.Background(), srv.URL, filepath.Join(t.TempDir(), "a.tar.gz"))
	require.Error(t, err)
	assert.Equal(t, errs.KindUpstream, errs.KindOf(err))
}

func TestFetchChecksum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Range"))
		if strings.HasSuffix(r.URL.Path, "missing.sha256") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("abc123  \n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "cache", "1.21.5.linux-amd64.tar.gz.sha256")
	require.NoError(t, New(smallChunks()).FetchChecksum(context.Background(), srv.URL+"/ok.sha256", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "abc123  \n", string(got))

	err = New(smallChunks()).FetchChecksum(context.Background(), srv.URL+"/missing.sha256", filepath.Join(dir, "m.sha256"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDownload)
}
