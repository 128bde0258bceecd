package logger

import (
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Config struct {
	Service string
	Version string
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string
}

// New creates a new structured logger using go-kit/log
func New(config Config) kitlog.Logger {
	return NewWithWriter(os.Stderr, config)
}

// NewWithWriter creates the logger on an arbitrary writer
func NewWithWriter(w io.Writer, config Config) kitlog.Logger {
	// Using logfmt format, human readable and easy to parse by log aggregators like datadog, ELK stack etc.
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	logger = level.NewFilter(logger, levelOption(config.Level))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	logger = kitlog.With(logger, "caller", kitlog.DefaultCaller)
	logger = kitlog.With(logger, "service", config.Service, "version", config.Version)
	return logger
}

func levelOption(name string) level.Option {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
