package version

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/goup/internal/download"
	"github.com/liangyou/goup/internal/platform"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/pkg/models"
)

var linuxAmd64 = platform.Target{OS: "linux", Arch: "amd64"}

// upstream 模拟发行包下载站点，统计收到的请求数。
type upstream struct {
	srv      *httptest.Server
	requests atomic.Int32

	mu    sync.Mutex
	files map[string][]byte
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{files: map[string][]byte{}}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.requests.Add(1)
		u.mu.Lock()
		data, ok := u.files[path.Base(r.URL.Path)]
		u.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, path.Base(r.URL.Path), time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

// publish 发布一个压缩包及其校验文件，digest 为空时使用正确的摘要。
func (u *upstream) publish(name string, data []byte, digest string) {
	if digest == "" {
		digest = sha256Hex(data)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[name] = data
	u.files[name+".sha256"] = []byte(digest + "\n")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// goArchive 构造与官方发行包布局一致的 tar.gz，所有条目位于 go/ 下。
func goArchive(t *testing.T, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	entries := []struct {
		name string
		body string
		mode int64
	}{
		{name: "go/bin/go", body: "#!/bin/sh\necho go" + version + "\n", mode: 0o755},
		{name: "go/bin/gofmt", body: "#!/bin/sh\n", mode: 0o755},
		{name: "go/VERSION", body: "go" + version + "\n", mode: 0o644},
	}
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "go/", Typeflag: tar.TypeDir, Mode: 0o755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "go/bin/", Typeflag: tar.TypeDir, Mode: 0o755}))
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Typeflag: tar.TypeReg,
			Mode:     e.mode,
			Size:     int64(len(e.body)),
		}))
		_, err := tw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type fixture struct {
	cfg       models.Config
	store     *storage.FileStore
	upstream  *upstream
	installer *Installer
	stages    []Stage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	up := newUpstream(t)
	cfg := models.Config{Home: t.TempDir(), DownloadBaseURL: up.srv.URL + "/go"}
	f := &fixture{cfg: cfg, store: storage.NewFileStore(cfg), upstream: up}
	f.installer = NewInstaller(cfg, f.store, download.New(models.DownloadConfig{}),
		WithTarget(linuxAmd64),
		WithStageFunc(func(_ models.Version, s Stage) { f.stages = append(f.stages, s) }),
	)
	return f
}
