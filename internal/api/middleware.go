// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/playlog-io/playlog/internal/logging"
)

// requestLogger logs one line per request at debug level with the chi
// request ID. The /metrics and /healthz scrape endpoints are skipped to
// keep the log free of probe noise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}
