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
	"fmt"
	"strings"
)

// MiddlewareFactory produces a HandlerFunc from the colon-separated arguments
// of a middleware reference. "auth:admin,editor" calls the "auth" factory
// with ("admin", "editor").
type MiddlewareFactory func(args ...string) HandlerFunc

// buildPipeline assembles a route's handler chain: global middleware, then
// the route's merged group and route middleware (outer first), then the
// terminal handler that invokes the route's handler spec. String references
// resolve through the named-middleware registry; unknown names are resolution
// errors surfaced through the error handler.
//
// Pipelines are pure functions of the route definition, so the result is
// cached per route.
func (r *Router) buildPipeline(rt *Route) ([]HandlerFunc, error) {
	r.mu.RLock()
	entries := make([]any, 0, len(r.middleware)+len(rt.middleware)+1)
	entries = append(entries, r.middleware...)
	entries = append(entries, rt.middleware...)
	r.mu.RUnlock()

	chain := make([]HandlerFunc, 0, len(entries)+1)
	for _, entry := range entries {
		fn, err := r.resolveMiddleware(entry)
		if err != nil {
			return nil, err
		}
		chain = append(chain, fn)
	}

	chain = append(chain, func(c *Context) {
		if err := r.invoke(c, rt.handler); err != nil {
			c.Error(err)
			c.Abort()
		}
	})
	return chain, nil
}

// pipeline returns the cached handler chain for a route, building it on first
// use. The cache never serves a chain from a superseded route definition:
// fluent mutations before freezing invalidate the entry.
func (r *Router) pipeline(rt *Route) ([]HandlerFunc, error) {
	if cached, ok := r.pipelines.Load(rt); ok {
		return cached.([]HandlerFunc), nil
	}
	chain, err := r.buildPipeline(rt)
	if err != nil {
		return nil, err
	}
	r.pipelines.Store(rt, chain)
	return chain, nil
}

// resolveMiddleware turns one middleware entry into a HandlerFunc. Accepted
// shapes: HandlerFunc, func(*Context), and "name" / "name:arg1,arg2" registry
// references.
func (r *Router) resolveMiddleware(entry any) (HandlerFunc, error) {
	switch v := entry.(type) {
	case HandlerFunc:
		return v, nil
	case func(*Context):
		return v, nil
	case string:
		name, argstr, _ := strings.Cut(v, ":")
		r.mu.RLock()
		factory, ok := r.mwFactories[name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMiddleware, name)
		}
		var args []string
		if argstr != "" {
			args = strings.Split(argstr, ",")
		}
		return factory(args...), nil
	default:
		return nil, fmt.Errorf("%w: middleware entry %T", ErrInvalidHandler, entry)
	}
}

// middlewareNames reports a route's middleware references for introspection
// and cache compilation. Callable entries appear under their function name.
func middlewareNames(entries []any) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if s, ok := entry.(string); ok {
			names = append(names, s)
			continue
		}
		names = append(names, funcName(entry))
	}
	return names
}
