// Package logging builds the run logger: a persistent append-only log
// file plus a live console echo of every message.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a logger writing timestamped JSON lines to the file at
// path and a human-readable echo of each message to stdout. The returned
// closer flushes and closes the log file.
func New(path string) (zerolog.Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	multi := zerolog.MultiLevelWriter(file, console)

	logger := zerolog.New(multi).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return logger, file, nil
}
