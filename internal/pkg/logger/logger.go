package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"typhoon/internal/config"
)

// Init 按配置装配全局 logger
// 未知的 level 回退到 info 而不是报错, 日志配置坏了不应拦住服务启动
func Init(cfg *config.LogConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch cfg.TimeFormat {
	case "Unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "UnixMs":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	writer, err := newWriter(cfg)
	if err != nil {
		return err
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Caller().Logger()
	return nil
}

// newWriter 输出目标: 默认 stdout, output=file 时追加写文件;
// console 格式在外层再包一层人类可读的 writer
func newWriter(cfg *config.LogConfig) (io.Writer, error) {
	var out io.Writer = os.Stdout
	if cfg.Output == "file" && cfg.FilePath != "" {
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, err
		}
		out = file
	}

	if cfg.Format == "console" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}, nil
	}
	return out, nil
}
