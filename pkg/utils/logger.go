package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// 日志级别常量
const (
	LogLevelVerbose = "VERBOSE"
	LogLevelNormal  = "INFO"
	LogLevelQuiet   = "WARN"
	LogLevelError   = "ERROR"
)

var (
	// Log 全局日志实例
	Log = logrus.New()

	// 进度条占用终端时日志写入文件
	terminalProgressEnabled bool
	logFilePath             string
)

// ParseLevel 把配置中的级别名转换为 logrus 级别，无法识别时使用 Info
func ParseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case LogLevelVerbose, "DEBUG":
		return logrus.DebugLevel
	case LogLevelNormal:
		return logrus.InfoLevel
	case LogLevelQuiet, "WARNING":
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		return lvl
	}
	return logrus.InfoLevel
}

// InitLogger 初始化日志系统
// logFile 为空时仅输出到控制台
func InitLogger(level string, logFile string) error {
	Log = logrus.New()
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	Log.SetLevel(ParseLevel(level))
	logFilePath = logFile

	// 配置加载阶段使用标准 logrus 实例
	logrus.SetLevel(Log.GetLevel())

	out, err := logOutput(logFile)
	if err != nil {
		Log.SetOutput(os.Stdout)
		return err
	}
	Log.SetOutput(out)
	return nil
}

func logOutput(logFile string) (io.Writer, error) {
	if terminalProgressEnabled {
		if logFile == "" {
			logFile = filepath.Join(os.TempDir(), "ocrbatch.log")
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		return file, nil
	}

	if logFile == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	return io.MultiWriter(os.Stdout, file), nil
}

// EnableTerminalProgress 启用终端进度条模式，之后日志不再输出到终端
func EnableTerminalProgress() {
	terminalProgressEnabled = true
	if out, err := logOutput(logFilePath); err == nil {
		Log.SetOutput(out)
	}
}

// DisableTerminalProgress 禁用终端进度条模式
func DisableTerminalProgress() {
	terminalProgressEnabled = false
	if out, err := logOutput(logFilePath); err == nil {
		Log.SetOutput(out)
	} else {
		Log.SetOutput(os.Stdout)
	}
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) {
	Log.Debugf(format, args...)
}

// Info 输出信息日志
func Info(format string, args ...interface{}) {
	Log.Infof(format, args...)
}

// Warn 输出警告日志
func Warn(format string, args ...interface{}) {
	Log.Warnf(format, args...)
}

// Error 输出错误日志
func Error(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}

// WithField 创建带字段的日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

// WithFields 创建带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
