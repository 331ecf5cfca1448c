// Package cli 定义 goup 的命令行入口，命令实现只依赖服务接口，便于替换。
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/liangyou/goup/internal/platform"
	"github.com/liangyou/goup/internal/remote"
	"github.com/liangyou/goup/internal/storage"
	"github.com/liangyou/goup/internal/version"
	"github.com/liangyou/goup/pkg/models"
)

// ResolveService 将工具链描述解析为具体版本。
type ResolveService interface {
	Resolve(ctx context.Context, toolchain string) (models.Version, error)
}

// InstallService 描述安装能力。
type InstallService interface {
	Install(ctx context.Context, v models.Version) (version.Outcome, error)
}

// SwitchService 描述版本切换能力。
type SwitchService interface {
	SetActive(v models.Version) error
	Active() (models.Version, bool)
}

// ListService 描述版本查询能力。
type ListService interface {
	LocalVersions() ([]models.InstalledVersion, error)
	Search(ctx context.Context, filter remote.Filter) ([]version.SearchResult, error)
}

// UninstallService 描述卸载能力。
type UninstallService interface {
	Uninstall(versions []models.Version, force bool) error
}

// CacheService 描述缓存与 home 目录的清理能力。
type CacheService interface {
	ListCache(withChecksums bool) ([]storage.CacheEntry, error)
	CleanCache() error
	RemoveHome() error
}

// EnvService 描述环境变量输出与 shell 配置能力。
type EnvService interface {
	Vars() []string
	UpdateShellConfig(shell string) (string, error)
}

// Services 汇总命令所需的全部服务。
type Services struct {
	Resolver    ResolveService
	Installer   InstallService
	Switcher    SwitchService
	Lister      ListService
	Uninstaller UninstallService
	Cache       CacheService
	Env         EnvService
	HostInfo    func(ctx context.Context) platform.HostInfo
}

// Options 是全局命令行参数。
type Options struct {
	ConfigFile string
	Host       string
	Verbose    bool
}

// Builder 在参数解析之后构造服务，配置文件路径等全局参数此时才可用。
type Builder func(opts Options) (*Services, error)

// App 负责 CLI 命令解析与分发。
type App struct {
	out     io.Writer
	errOut  io.Writer
	version string
	build   Builder

	opts     Options
	services *Services
}

// NewApp 创建 CLI 应用实例。
func NewApp(out, errOut io.Writer, appVersion string, build Builder) *App {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &App{out: out, errOut: errOut, version: appVersion, build: build}
}

// Run 解析参数并执行命令。
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.Command()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Command 返回根命令。
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "goup",
		Short:         "goup - Go toolchain installer and version switcher",
		Long:          "goup installs Go releases into $GOUP_HOME and switches between them through the $GOUP_HOME/current link.",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigFile, "config", "", "config file (default: $GOUP_HOME/config.yaml)")
	flags.StringVar(&a.opts.Host, "host", "", "host that is used to query Go releases (overrides GOUP_GO_HOST)")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.installCmd(),
		a.listCmd(),
		a.removeCmd(),
		a.searchCmd(),
		a.setCmd(),
		a.currentCmd(),
		a.envCmd(),
		a.initCmd(),
		a.cacheCmd(),
		a.cleanCmd(),
	)
	return root
}

// svc 延迟构造服务，只在命令真正执行时调用一次。
func (a *App) svc() (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	if a.build == nil {
		return nil, errors.New("cli: services are not configured")
	}
	s, err := a.build(a.opts)
	if err != nil {
		return nil, err
	}
	a.services = s
	return s, nil
}
