package logger

import (
	"log/slog"

	"github.com/vidra-project/vidra/internal/core/domain"
)

// StyledLogger decorates slog with inline styling for values that appear in
// nearly every line: platform tags, federated instances, health statuses and
// counts. Pretty output goes through pterm styles; plain output falls back
// to unstyled text so file/JSON sinks stay clean.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithPlatform(msg string, platform string, args ...any)
	WarnWithPlatform(msg string, platform string, args ...any)
	ErrorWithPlatform(msg string, platform string, args ...any)
	InfoWithInstance(msg string, instance string, args ...any)
	InfoHealthStatus(msg string, name string, status domain.HealthStatus, args ...any)

	With(args ...any) StyledLogger
	GetUnderlying() *slog.Logger
}

func toInterfaceSlice(strs []string) []any {
	out := make([]any, len(strs))
	for i, s := range strs {
		out[i] = s
	}
	return out
}
