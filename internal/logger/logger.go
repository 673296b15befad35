// Package logger configures the process-wide standard logger.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the rotating log file
type Options struct {
	Dir        string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var appLogger = log.New(os.Stdout, "", log.LstdFlags)

// Setup writes logs to stdout and a rotating file under opts.Dir.
// With an empty Dir only stdout is used.
func Setup(opts Options) (io.Closer, error) {
	if opts.Dir == "" {
		appLogger = log.New(os.Stdout, "", log.LstdFlags)
		return io.NopCloser(nil), nil
	}

	absDir, err := filepath.Abs(opts.Dir)
	if err != nil {
		absDir = opts.Dir
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", absDir, err)
	}

	name := opts.File
	if name == "" {
		name = "journal.log"
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(absDir, name),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
		LocalTime:  true,
	}

	out := io.MultiWriter(os.Stdout, rotating)
	appLogger = log.New(out, "", log.LstdFlags)
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags)

	Info("Logger initialized, log file: %s", rotating.Filename)
	return rotating, nil
}

// SetOutput redirects the logger, mainly for tests
func SetOutput(w io.Writer) {
	appLogger = log.New(w, "", 0)
}

// Info logs info level messages
func Info(format string, v ...interface{}) {
	appLogger.Printf("[INFO] "+format, v...)
}

// Error logs error level messages
func Error(format string, v ...interface{}) {
	appLogger.Printf("[ERROR] "+format, v...)
}

// Debug logs debug level messages
func Debug(format string, v ...interface{}) {
	appLogger.Printf("[DEBUG] "+format, v...)
}
