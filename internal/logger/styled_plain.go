package logger

import (
	"fmt"
	"log/slog"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// PlainStyledLogger implements StyledLogger without formatting
type PlainStyledLogger struct {
	logger *slog.Logger
}

func NewPlainStyledLogger(logger *slog.Logger) *PlainStyledLogger {
	return &PlainStyledLogger{
		logger: logger,
	}
}

func (sl *PlainStyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *PlainStyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *PlainStyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *PlainStyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *PlainStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s (%d)", msg, count), args...)
}

func (sl *PlainStyledLogger) InfoWithPlatform(msg string, platform string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, platform), args...)
}

func (sl *PlainStyledLogger) WarnWithPlatform(msg string, platform string, args ...any) {
	sl.logger.Warn(fmt.Sprintf("%s %s", msg, platform), args...)
}

func (sl *PlainStyledLogger) ErrorWithPlatform(msg string, platform string, args ...any) {
	sl.logger.Error(fmt.Sprintf("%s %s", msg, platform), args...)
}

func (sl *PlainStyledLogger) InfoWithInstance(msg string, instance string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, instance), args...)
}

func (sl *PlainStyledLogger) InfoHealthStatus(msg string, name string, status domain.HealthStatus, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s is %s", msg, name, status), args...)
}

func (sl *PlainStyledLogger) With(args ...any) StyledLogger {
	return &PlainStyledLogger{logger: sl.logger.With(args...)}
}

func (sl *PlainStyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}
