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

// Package recovery provides middleware that recovers from handler panics and
// answers with a 500 instead of tearing down the connection.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime"

	"routeforge.dev/router"
)

// Option configures the recovery middleware.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	handler   func(c *router.Context, v any)
	stackSize int
}

func defaultConfig() *config {
	return &config{
		logger:    slog.Default(),
		stackSize: 4 << 10,
	}
}

// WithLogger sets the logger panics are reported to. A nil logger disables
// logging.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithoutLogging disables panic logging, mainly for tests.
func WithoutLogging() Option {
	return func(cfg *config) { cfg.logger = nil }
}

// WithHandler replaces the default 500 response with a custom one.
//
// Example:
//
//	recovery.New(recovery.WithHandler(func(c *router.Context, v any) {
//	    c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal"})
//	}))
func WithHandler(handler func(c *router.Context, v any)) Option {
	return func(cfg *config) { cfg.handler = handler }
}

// WithStackSize caps the captured stack trace in bytes. Default 4KB.
func WithStackSize(n int) Option {
	return func(cfg *config) { cfg.stackSize = n }
}

// New returns middleware that converts a panic anywhere downstream into a
// logged 500 response.
//
// Example:
//
//	r := router.MustNew()
//	r.Use(recovery.New())
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if cfg.logger != nil {
				stack := make([]byte, cfg.stackSize)
				stack = stack[:runtime.Stack(stack, false)]
				cfg.logger.Error("panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", v,
					"stack", string(stack),
				)
			}
			c.Abort()
			if cfg.handler != nil {
				cfg.handler(c, v)
				return
			}
			if rw, ok := c.Response.(router.ResponseInfo); !ok || !rw.Written() {
				http.Error(c.Response, "500 internal server error", http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
