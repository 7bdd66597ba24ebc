// Package logging configures the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing timestamped lines to stdout.
func New(level, format string) (*log.Logger, error) {
	return NewWithOutput(os.Stdout, level, format)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(out io.Writer, level, format string) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(out)

	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
		})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}
