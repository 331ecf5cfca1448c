package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields 为 logrus.Fields 的别名。
type Fields = logrus.Fields

// Logger 在 logrus.Logger 上附加模块名。
type Logger struct {
	*logrus.Logger
	module string
}

// Config 描述日志初始化参数。
type Config struct {
	Level      string
	Format     string
	Module     string
	File       string // 为空时只输出到 Output
	Output     io.Writer
	MaxSize    int
	MaxAge     int
	MaxBackups int
	Compress   bool
}

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

// Init 初始化全局日志。
func Init(config Config) error {
	if config.Level == "" {
		config.Level = "warn"
	}
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("logger: invalid log level: %w", err)
	}

	l := logrus.New()
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			CallerPrettyfier: callerPrettyfier,
			TimestampFormat:  "2006-01-02 15:04:05",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:          true,
			CallerPrettyfier:       callerPrettyfier,
			DisableSorting:         true,
			DisableLevelTruncation: true,
			PadLevelText:           true,
			TimestampFormat:        "2006-01-02 15:04:05",
		})
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	outputs := []io.Writer{out}

	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err != nil {
			return fmt.Errorf("logger: create log dir: %w", err)
		}
		outputs = append(outputs, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    defaultInt(config.MaxSize, 10),
			MaxAge:     defaultInt(config.MaxAge, 30),
			MaxBackups: defaultInt(config.MaxBackups, 3),
			Compress:   config.Compress,
		})
	}

	if len(outputs) > 1 {
		l.SetOutput(io.MultiWriter(outputs...))
	} else {
		l.SetOutput(outputs[0])
	}
	l.SetReportCaller(level >= logrus.DebugLevel)

	mu.Lock()
	globalLogger = &Logger{Logger: l, module: config.Module}
	mu.Unlock()

	globalLogger.WithFields(Fields{
		"level":  level.String(),
		"format": config.Format,
		"file":   config.File,
	}).Debug("logger initialized")
	return nil
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func callerPrettyfier(f *runtime.Frame) (string, string) {
	pcs := make([]uintptr, 15)
	n := runtime.Callers(4, pcs)
	if n == 0 {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/logger") &&
			!strings.Contains(frame.File, "sirupsen/logrus") {
			return "", fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

// NewLogger 返回带模块名的日志实例。全局日志未初始化时（例如测试中）输出被丢弃。
func NewLogger(module string) *Logger {
	mu.RLock()
	g := globalLogger
	mu.RUnlock()

	if g == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return &Logger{Logger: l, module: module}
	}
	return &Logger{Logger: g.Logger, module: module}
}

// WithFields 附加字段与模块名。
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	if l.module != "" {
		if fields == nil {
			fields = Fields{}
		}
		fields["module"] = l.module
	}
	return l.Logger.WithFields(fields)
}

// WithField 附加单个字段。
func (l *Logger) WithField(key string, value any) *logrus.Entry {
	return l.WithFields(Fields{key: value})
}

// WithError 附加错误字段。
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.WithFields(Fields{"error": err})
}

func (l *Logger) Debugf(format string, args ...any) {
	l.WithFields(nil).Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.WithFields(nil).Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.WithFields(nil).Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.WithFields(nil).Errorf(format, args...)
}
