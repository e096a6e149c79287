// Package logging builds the process logger and the HTTP access log middleware.
package logging

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a production JSON logger, or a development console logger
// when the level is debug or the format is console.
func NewLogger(cfg formview.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	if level == zapcore.DebugLevel || strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// RequestLogger logs one line per request with status and latency.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"durationMs", time.Since(start).Milliseconds(),
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields = append(fields, "requestId", id)
		}
		if status >= http.StatusInternalServerError {
			zap.S().Errorw("request failed", fields...)
			return
		}
		zap.S().Infow("request", fields...)
	})
}
