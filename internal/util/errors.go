package util

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const maxStderrLine = 200

// Wrap prefixes err with the failed operation. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// LastLine returns the last non-blank line of a child's stderr, truncated
// to a loggable length.
func LastLine(stderr string) string {
	trimmed := strings.TrimRight(stderr, " \t\r\n")
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	line := strings.TrimSpace(trimmed)
	if len(line) > maxStderrLine {
		line = line[:maxStderrLine] + "..."
	}
	return line
}

// CloseLogged closes c and logs a failure. Use with defer.
func CloseLogged(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		slog.Warn("close failed", "resource", what, "error", err)
	}
}
