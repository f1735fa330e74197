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

// Package requestid provides middleware that tags every request with a
// unique ID for log correlation.
package requestid

import (
	"github.com/google/uuid"

	"routeforge.dev/router"
)

// DefaultHeader is the header the request ID is read from and written to.
const DefaultHeader = "X-Request-ID"

// Option configures the requestid middleware.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

func defaultConfig() *config {
	return &config{
		header:        DefaultHeader,
		generator:     generateUUIDv7,
		allowClientID: true,
	}
}

// generateUUIDv7 produces a time-ordered, lexicographically sortable ID
// (RFC 9562).
func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// WithHeader changes the request ID header name.
func WithHeader(name string) Option {
	return func(cfg *config) { cfg.header = name }
}

// WithGenerator replaces the UUID v7 generator.
func WithGenerator(gen func() string) Option {
	return func(cfg *config) { cfg.generator = gen }
}

// WithAllowClientID controls whether an ID supplied by the client is trusted.
// Default true; disable at trust boundaries.
func WithAllowClientID(allow bool) Option {
	return func(cfg *config) { cfg.allowClientID = allow }
}

// New returns middleware that ensures every request carries an ID: an
// incoming header value is reused when allowed, otherwise a fresh UUID v7 is
// generated. The ID is echoed on the response.
//
// Example:
//
//	r := router.MustNew()
//	r.Use(requestid.New())
//	r.GET("/", func(c *router.Context) {
//	    id := c.Response.Header().Get(requestid.DefaultHeader)
//	    c.String(http.StatusOK, id)
//	})
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		id := ""
		if cfg.allowClientID {
			id = c.Request.Header.Get(cfg.header)
		}
		if id == "" {
			id = cfg.generator()
		}
		c.Request.Header.Set(cfg.header, id)
		c.Response.Header().Set(cfg.header, id)
		c.Next()
	}
}
