// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	xlog "github.com/ManuGH/ytdlq/internal/log"
)

// Logging writes one access log line per request. Health and metrics probes
// log at debug.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		logger := xlog.WithComponentFromContext(r.Context(), "api")
		ev := logger.Info()
		switch {
		case sw.status >= 500:
			ev = logger.Error()
		case !shouldTrace(r):
			ev = logger.Debug()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Float64(xlog.FieldDuration, time.Since(start).Seconds()).
			Str("remote_addr", r.RemoteAddr).
			Msg("http request")
	})
}
