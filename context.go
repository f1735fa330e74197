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

package router

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// noopLogger is the singleton used when no request logger is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Context carries one HTTP request through the middleware chain and handler.
//
// Contexts are pooled and reused across requests. Do not retain a Context
// beyond the handler's lifetime and do not share one across goroutines; copy
// the values you need before starting async work.
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	router   *Router
	route    *Route
	handlers []HandlerFunc
	index    int32
	aborted  bool

	paramNames  []string
	paramValues []string

	logger *slog.Logger
	errs   []error
}

var contextPool = sync.Pool{
	New: func() any { return &Context{index: -1} },
}

func acquireContext() *Context {
	return contextPool.Get().(*Context)
}

func releaseContext(c *Context) {
	c.reset()
	contextPool.Put(c)
}

// reset clears per-request state so pooled contexts never leak parameters or
// errors into the next request.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.router = nil
	c.route = nil
	c.handlers = nil
	c.index = -1
	c.aborted = false
	c.paramNames = c.paramNames[:0]
	c.paramValues = c.paramValues[:0]
	c.logger = nil
	c.errs = c.errs[:0]
}

// Next advances the handler chain. Middleware calls it to delegate to the
// rest of the pipeline; not calling it short-circuits the request.
func (c *Context) Next() {
	c.index++
	for c.index < int32(len(c.handlers)) {
		if c.aborted {
			return
		}
		c.handlers[c.index](c)
		c.index++
	}
}

// Abort stops the remaining handler chain. The current handler keeps running.
func (c *Context) Abort() { c.aborted = true }

// IsAborted reports whether the chain has been aborted.
func (c *Context) IsAborted() bool { return c.aborted }

// Route returns the matched route, or nil outside a dispatched request.
func (c *Context) Route() *Route { return c.route }

// Param returns the captured value of a route parameter, or "" when the
// parameter is not part of the matched route.
func (c *Context) Param(name string) string {
	for i, n := range c.paramNames {
		if n == name {
			return c.paramValues[i]
		}
	}
	return ""
}

// Params returns the captured route parameters. Iteration order of the map is
// unspecified; ParamNames preserves declaration order.
func (c *Context) Params() map[string]string {
	params := make(map[string]string, len(c.paramNames))
	for i, n := range c.paramNames {
		params[n] = c.paramValues[i]
	}
	return params
}

// ParamNames returns the matched route's parameter names in path order.
func (c *Context) ParamNames() []string { return c.paramNames }

// Query returns the first query value for key.
func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

// Logger returns the request-scoped logger, falling back to a no-op logger
// when observability is not configured.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return noopLogger
	}
	return c.logger
}

// Error records a handler error against the request. Recorded errors
// propagate to the router's error handler after the chain finishes.
func (c *Context) Error(err error) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

// Errors returns the errors recorded during this request.
func (c *Context) Errors() []error { return c.errs }

// Status writes the status code with no body.
func (c *Context) Status(code int) {
	c.Response.WriteHeader(code)
}

// Header sets a response header.
func (c *Context) Header(key, value string) {
	c.Response.Header().Set(key, value)
}

// String writes a plain-text response.
func (c *Context) String(code int, value string) error {
	c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Response.WriteHeader(code)
	_, err := io.WriteString(c.Response, value)
	return err
}

// Stringf writes a formatted plain-text response.
func (c *Context) Stringf(code int, format string, args ...any) error {
	return c.String(code, fmt.Sprintf(format, args...))
}

// JSON writes a JSON response.
func (c *Context) JSON(code int, obj any) error {
	c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.Response.WriteHeader(code)
	return json.NewEncoder(c.Response).Encode(obj)
}

// YAML writes a YAML response.
func (c *Context) YAML(code int, obj any) error {
	c.Response.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	c.Response.WriteHeader(code)
	enc := yaml.NewEncoder(c.Response)
	defer enc.Close()
	return enc.Encode(obj)
}

// Data writes raw bytes with an explicit content type.
func (c *Context) Data(code int, contentType string, data []byte) error {
	c.Response.Header().Set("Content-Type", contentType)
	c.Response.WriteHeader(code)
	_, err := c.Response.Write(data)
	return err
}

// NoContent writes a 204 response.
func (c *Context) NoContent() {
	c.Response.WriteHeader(http.StatusNoContent)
}

// Redirect writes a redirect response to location.
func (c *Context) Redirect(code int, location string) {
	http.Redirect(c.Response, c.Request, location, code)
}

// NotFound writes the plain 404 routing outcome.
func (c *Context) NotFound() {
	http.Error(c.Response, "404 page not found", http.StatusNotFound)
}

// MethodNotAllowed writes the 405 routing outcome with the Allow header
// listing the permitted methods.
func (c *Context) MethodNotAllowed(allowed []string) {
	c.Response.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(c.Response, "405 method not allowed", http.StatusMethodNotAllowed)
}
