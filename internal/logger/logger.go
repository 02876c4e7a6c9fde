package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	Logger = zerolog.Nop()

	fileWriter *lumberjack.Logger
)

type Options struct {
	Level string
	// Rotated log file; empty disables file output.
	File string
	// Console destination, stderr when nil.
	Out     io.Writer
	NoColor bool
}

// Init builds the process logger: a console writer, optionally tee'd into a
// rotating file. It also replaces the zerolog global logger.
func Init(opts Options) error {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	var writer io.Writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.NoColor}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return err
		}
		// Setup log rotation
		fileWriter = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(writer, fileWriter)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	Logger = zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("app", "rsagen").
		Logger()

	log.Logger = Logger
	return nil
}

// Close flushes and closes the log file, if one was opened.
func Close() error {
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}
