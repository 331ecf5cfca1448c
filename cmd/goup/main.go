package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/liangyou/goup/internal/cli"
	"github.com/liangyou/goup/internal/config"
	"github.com/liangyou/goup/internal/download"
	"github.com/liangyou/goup/internal/env"
	"github.com/liangyou/goup/internal/link"
	"github.com/liangyou/goup/internal/platform"
	"github.com/liangyou/goup/internal/region"
	"github.com/liangyou/goup/internal/remote"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/internal/version"
	"github.com/liangyou/goup/pkg/logger"
	"github.com/liangyou/goup/pkg/models"
)

// appVersion 在发布时通过 -ldflags "-X main.appVersion=..." 注入。
var appVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(os.Stdout, os.Stderr, appVersion, func(opts cli.Options) (*cli.Services, error) {
		return buildServices(ctx, opts, os.Stderr)
	})
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildServices(ctx context.Context, opts cli.Options, progress io.Writer) (*cli.Services, error) {
	cfg, err := config.NewLoader().Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Module: "goup",
	}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}

	if opts.Host != "" {
		cfg.GoHost = strings.TrimRight(opts.Host, "/")
		cfg.HostExplicit = true
	}
	if cfg.Mirror == region.MirrorAuto {
		cfg = region.Apply(ctx, cfg, region.NewDetector())
	}
	if err := platform.NewChecker(cfg).Validate(); err != nil {
		return nil, err
	}

	log := logger.NewLogger("main")
	log.WithFields(logger.Fields{
		"home":     cfg.Home,
		"go_host":  cfg.GoHost,
		"download": cfg.DownloadBaseURL,
		"config":   cfg.ConfigFileUsed,
	}).Debug("configuration loaded")

	store := storage.NewFileStore(cfg)
	linker := link.Detect()
	client := remote.NewClient(remote.WithHost(cfg.GoHost))

	fetcher := download.New(cfg.Download, download.WithProgressFunc(progressPrinter(progress)))
	installer := version.NewInstaller(cfg, store, fetcher, version.WithStageFunc(func(v models.Version, s version.Stage) {
		if s == version.StageAbsent {
			return
		}
		fmt.Fprintf(progress, "%s: %s\n", v, s)
	}))
	switcher := version.NewSwitcher(cfg, store, linker)

	return &cli.Services{
		Resolver:    remote.NewResolver(client),
		Installer:   installer,
		Switcher:    switcher,
		Lister:      version.NewLister(store, switcher, client),
		Uninstaller: version.NewUninstaller(cfg, store, switcher),
		Cache:       store,
		Env:         env.NewManager(cfg),
		HostInfo:    platform.Detect,
	}, nil
}

// progressPrinter 在同一行刷新下载进度。
func progressPrinter(w io.Writer) download.ProgressFunc {
	return func(done, total int64) {
		fmt.Fprintf(w, "\r%s / %s", humanize.IBytes(uint64(done)), humanize.IBytes(uint64(total)))
		if done >= total {
			fmt.Fprintln(w)
		}
	}
}
