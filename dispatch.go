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
	"bufio"
	"net"
	"net/http"
	"strings"
)

// ResponseInfo exposes what has been written to a wrapped response writer.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
	Written() bool
}

// responseWriter wraps http.ResponseWriter to capture status and size and to
// suppress superfluous WriteHeader calls.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

func (rw *responseWriter) Size() int64   { return rw.size }
func (rw *responseWriter) Written() bool { return rw.written }

// Flush forwards to the underlying writer when it supports streaming, so
// handlers sending server-sent events or chunked responses keep working
// behind the wrapper.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack forwards to the underlying writer for protocol upgrades such as
// WebSockets. It returns ErrResponseWriterNotHijacker when the underlying
// writer cannot hand over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

var _ ResponseInfo = (*responseWriter)(nil)
var _ http.Flusher = (*responseWriter)(nil)

// headWriter strips the response body for HEAD requests while preserving
// status and headers. Written bytes are counted so Size() still reflects the
// body the equivalent GET would have produced.
type headWriter struct {
	*responseWriter
}

func (hw *headWriter) Write(b []byte) (int, error) {
	if !hw.written {
		hw.written = true
	}
	if hw.statusCode == 0 {
		hw.statusCode = http.StatusOK
	}
	hw.size += int64(len(b))
	return len(b), nil
}

// ServeHTTP dispatches one request through the state machine: OPTIONS
// preflight, HEAD rewrite, match, middleware pipeline, handler invocation,
// and response normalization. Routing outcomes (404, 405, 204 preflight) are
// expected control flow; resolution errors go to the error handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Warmup()

	ctx := req.Context()
	var obsState any
	if r.observability != nil {
		enriched, state := r.observability.OnRequestStart(ctx, req)
		obsState = state
		if enriched != ctx {
			ctx = enriched
			req = req.WithContext(ctx)
		}
		w = r.observability.WrapResponseWriter(w, obsState)
	}

	rw := &responseWriter{ResponseWriter: w}
	path := normalizePath(req.URL.Path)

	finish := func(template string) {
		if obsState != nil {
			r.observability.OnRequestEnd(ctx, obsState, rw, template)
		}
	}

	// OPTIONS answers from the route tables alone, before any matching or
	// middleware: 204 with Allow and CORS preflight headers when the path is
	// known, 404 otherwise.
	if req.Method == http.MethodOptions {
		allowed := r.allowedMethods(path)
		if len(allowed) == 0 {
			http.Error(rw, "404 page not found", http.StatusNotFound)
			finish("_options")
			return
		}
		rw.Header().Set("Allow", strings.Join(allowed, ", "))
		if r.cors != nil {
			r.cors.applyPreflight(rw, req.Header.Get("Origin"), allowed)
		}
		rw.WriteHeader(http.StatusNoContent)
		finish("_options")
		return
	}

	// HEAD is matched and dispatched as GET; the body is stripped on the way
	// out while headers survive.
	matchMethod := req.Method
	out := http.ResponseWriter(rw)
	if req.Method == http.MethodHead {
		matchMethod = http.MethodGet
		out = &headWriter{responseWriter: rw}
	}

	rt, values, ok := r.lookup(matchMethod, path)
	if !ok {
		if allowed := r.allowedMethods(path); len(allowed) > 0 {
			rw.Header().Set("Allow", strings.Join(allowed, ", "))
			http.Error(rw, "405 method not allowed", http.StatusMethodNotAllowed)
			finish("_method_not_allowed")
			return
		}
		http.Error(rw, "404 page not found", http.StatusNotFound)
		finish("_not_found")
		return
	}

	if r.cors != nil {
		r.cors.applySimple(rw, req.Header.Get("Origin"))
	}

	c := acquireContext()
	c.Request = req
	c.Response = out
	c.router = r
	c.route = rt
	if rt.compiled != nil {
		c.paramNames = append(c.paramNames, rt.compiled.paramNames...)
		c.paramValues = append(c.paramValues, values...)
	}
	if r.observability != nil {
		c.logger = r.observability.BuildRequestLogger(ctx, req, rt.path)
	} else {
		c.logger = r.logger
	}

	chain, err := r.pipeline(rt)
	if err != nil {
		r.errorHandler(c, err)
		releaseContext(c)
		finish(rt.path)
		return
	}

	c.handlers = chain
	c.index = -1
	c.Next()

	if errs := c.Errors(); len(errs) > 0 {
		r.errorHandler(c, errs[0])
	}

	releaseContext(c)
	finish(rt.path)
}
