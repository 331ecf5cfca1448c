package models

import "time"

// Config 保存 goup 的全局配置，在 main 中构造一次后传入各组件。
type Config struct {
	Home            string // 根目录，默认 ~/.goup
	GoHost          string // 版本列表查询地址
	DownloadBaseURL string // 压缩包与校验文件的下载前缀
	Mirror          string // 为 auto 时根据地区选择镜像

	// HostExplicit 与 DownloadExplicit 标记地址是否由用户显式配置。
	HostExplicit     bool
	DownloadExplicit bool

	Log      LogConfig
	Download DownloadConfig

	// ConfigFileUsed 为实际读取的配置文件路径，未读取时为空。
	ConfigFileUsed string
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// DownloadConfig 描述分块下载的参数。
type DownloadConfig struct {
	ProbeTimeout    time.Duration
	ChunkTimeout    time.Duration
	// FullBodyTimeout 限制服务端忽略 Range、一次返回完整对象时的读取时间。
	FullBodyTimeout time.Duration
	InitialChunk    int64
	MinChunk        int64
	MaxChunk        int64
}
