package log

import (
	"io"
	"os"
	"strings"

	"backupmgr/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a zerolog.Logger for the given configuration together with the
// closer of its underlying writer. "stdout" and "stderr" write to the process
// streams, any other path is a size-rotated file.
func New(cfg config.LogConfig) (zerolog.Logger, io.Closer) {
	writer, closer := output(cfg)

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(writer).With().Timestamp().Logger().Level(level), closer
}

// Console returns a human-readable logger for interactive commands.
func Console(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

func output(cfg config.LogConfig) (io.Writer, io.Closer) {
	switch strings.ToLower(cfg.Path) {
	case "stdout":
		return os.Stdout, nopCloser{}
	case "stderr", "":
		return os.Stderr, nopCloser{}
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return rotated, rotated
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
