package logger

import (
	"io"
	"log/slog"
)

// NewTestLogger returns a StyledLogger that discards everything; used across
// package tests.
func NewTestLogger() StyledLogger {
	return NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
