// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLevel is used when no level is given.
const DefaultLevel = "warn"

// Console is the log path that means "standard error".
const Console = "console"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init parses level and routes log output. An empty path or "console" logs
// to stderr; anything else is a file rotated by size. The returned closer
// flushes and closes that file.
func Init(level, path string) (io.Closer, error) {
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", level, err)
		return nil, err
	}

	var closer io.Closer = nopCloser{}
	if path != "" && path != Console {
		lj := &lumberjack.Logger{
			Filename:   filepath.ToSlash(path),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(lj)
		closer = lj
	} else {
		log.SetOutput(os.Stderr)
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetLevel(lvl)
	return closer, nil
}
