// Package logger provides the structured, levelled logger used across menugr,
// built on log/slog.
//
// Recoverable failures (corrupt carts, failed persistence, resolution
// fallbacks) are logged at WARN and never surfaced to callers:
//
//	log := logger.WithCtx(ctx)
//	log.Warn("cart: restore failed, starting empty", "slug", slug, "error", err)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/menugr/menugr/config"
)

// L is the base logger, also installed as the slog default.
var L *slog.Logger

func init() {
	L = New(os.Stdout, config.AppEnv())
	slog.SetDefault(L)
}

// New builds a logger for env: JSON for production, text otherwise.
func New(w io.Writer, env string) *slog.Logger {
	switch env {
	case "production", "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "test":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the logger stored in ctx by InjectLogger, or the base
// logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a pre-tagged logger into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ─────────────────────────────────────────────
// Short-hand helpers (use base logger)
// ─────────────────────────────────────────────

// Debug logs at debug level on the base logger.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at info level on the base logger.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level on the base logger.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level on the base logger.
func Error(msg string, args ...any) { L.Error(msg, args...) }
