// Package logging builds the zap logger shared by the CLI, the TUI and the
// mock server.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
	OutputOff    = "off"

	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Level      string
	Format     string // FormatJSON or FormatConsole
	Output     string // stderr, stdout, off, or a file path
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultFile is where the TUI logs when no output is configured; the
// terminal belongs to the UI.
func DefaultFile() string {
	dir, err := os.UserCacheDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "calldesk", "calldesk.log")
}

func New(cfg Config) (*zap.Logger, error) {
	output := strings.TrimSpace(cfg.Output)
	if strings.EqualFold(output, OutputOff) {
		return zap.NewNop(), nil
	}
	ws, err := buildWriteSyncer(output, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}
	core := zapcore.NewCore(buildEncoder(cfg.Format), ws, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func buildEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(strings.TrimSpace(format), FormatConsole) {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func buildWriteSyncer(output string, cfg Config) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case OutputStderr, "":
		return zapcore.AddSync(os.Stderr), nil
	case OutputStdout:
		return zapcore.AddSync(os.Stdout), nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   output,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}), nil
}
