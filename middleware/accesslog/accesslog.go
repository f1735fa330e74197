// Copyright 2026 The Routeforge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package accesslog provides structured request logging middleware built on
// log/slog.
package accesslog

import (
	"log/slog"
	"time"

	"routeforge.dev/router"
)

// Option configures the accesslog middleware.
type Option func(*config)

type config struct {
	logger *slog.Logger
	skip   func(c *router.Context) bool
}

// WithLogger sets the destination logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithSkipper suppresses logging for requests the predicate matches, such as
// health checks.
//
// Example:
//
//	accesslog.New(accesslog.WithSkipper(func(c *router.Context) bool {
//	    return c.Request.URL.Path == "/healthz"
//	}))
func WithSkipper(skip func(c *router.Context) bool) Option {
	return func(cfg *config) { cfg.skip = skip }
}

// New returns middleware that logs one line per request after the handler
// chain completes: method, path, status, response size, and duration.
//
// Example:
//
//	r := router.MustNew()
//	r.Use(accesslog.New(accesslog.WithLogger(logger)))
func New(opts ...Option) router.HandlerFunc {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		if cfg.skip != nil && cfg.skip(c) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"duration", time.Since(start),
		}
		if rw, ok := c.Response.(router.ResponseInfo); ok {
			attrs = append(attrs, "status", rw.StatusCode(), "size", rw.Size())
		}
		if id := c.Response.Header().Get("X-Request-ID"); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		cfg.logger.Info("request", attrs...)
	}
}
