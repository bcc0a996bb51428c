package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// logger 全局 logger 实例，未初始化时为 no-op
	logger = zap.NewNop()
	once   sync.Once
)

// Init 初始化日志系统，outputPath 为空时只输出到控制台
func Init(level string, outputPath string) error {
	var initErr error
	once.Do(func() {
		logLevel := parseLevel(level)

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		cores := []zapcore.Core{
			zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), logLevel),
		}

		if outputPath != "" {
			if err := os.MkdirAll(outputPath, 0755); err != nil {
				initErr = err
				return
			}

			// 常规日志文件
			if f, err := openLogFile(filepath.Join(outputPath, "app.log")); err == nil {
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), logLevel))
			}
			// 错误日志文件，只记录错误及以上级别
			if f, err := openLogFile(filepath.Join(outputPath, "error.log")); err == nil {
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.ErrorLevel))
			}
		}

		logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	})
	return initErr
}

// Replace 替换全局 logger，测试中用于捕获日志
func Replace(l *zap.Logger) func() {
	prev := logger
	logger = l
	return func() { logger = prev }
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Debug 记录调试信息
func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

// Info 记录一般信息
func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

// Warn 记录警告信息
func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

// Error 记录错误信息
func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

// Fatal 记录致命错误并退出程序
func Fatal(msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

// WithFields 返回带有字段的 logger
func WithFields(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

// Sync 刷新日志缓冲
func Sync() {
	_ = logger.Sync()
}
