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
	"net/http"
	"strings"
)

// Group organizes related routes under a shared path prefix, middleware set,
// and name prefix. Nesting concatenates prefixes outer-to-inner and merges
// middleware outer-first. Because each Group is an immutable-by-convention
// value scoped to the code that created it, there is no registration stack to
// unwind — leaving the group's scope is the cleanup.
//
// Example:
//
//	api := r.Group("/api/v1", "auth")
//	api.GET("/users", listUsers)          // GET /api/v1/users
//	admin := api.Group("/admin", "auth:admin")
//	admin.GET("/stats", stats)            // GET /api/v1/admin/stats
type Group struct {
	router     *Router
	prefix     string
	middleware []any
	namePrefix string
}

// Group creates a route group. Middleware entries are HandlerFunc values or
// registry references and run after the router's global middleware.
func (r *Router) Group(prefix string, middleware ...any) *Group {
	return &Group{
		router:     r,
		prefix:     trimPrefix(prefix),
		middleware: middleware,
	}
}

// Group nests a group under this one. The child inherits the parent's
// middleware (outer first) and name prefix.
func (g *Group) Group(prefix string, middleware ...any) *Group {
	merged := make([]any, 0, len(g.middleware)+len(middleware))
	merged = append(merged, g.middleware...)
	merged = append(merged, middleware...)
	return &Group{
		router:     g.router,
		prefix:     g.prefix + trimPrefix(prefix),
		middleware: merged,
		namePrefix: g.namePrefix,
	}
}

// Use appends middleware to the group, affecting routes registered afterwards.
func (g *Group) Use(middleware ...any) {
	g.middleware = append(g.middleware, middleware...)
}

// SetNamePrefix appends a name prefix for routes named within this group.
func (g *Group) SetNamePrefix(prefix string) *Group {
	g.namePrefix += prefix
	return g
}

// Routes invokes fn with the group, for callers who prefer registering a
// group's routes in one block.
//
//	r.Group("/api").Routes(func(api *router.Group) {
//	    api.GET("/users", listUsers)
//	    api.POST("/users", createUser)
//	})
func (g *Group) Routes(fn func(*Group)) *Group {
	fn(g)
	return g
}

// GET registers a GET route under the group's prefix.
func (g *Group) GET(path string, handler any) *Route { return g.mustHandle(http.MethodGet, path, handler) }

// POST registers a POST route under the group's prefix.
func (g *Group) POST(path string, handler any) *Route { return g.mustHandle(http.MethodPost, path, handler) }

// PUT registers a PUT route under the group's prefix.
func (g *Group) PUT(path string, handler any) *Route { return g.mustHandle(http.MethodPut, path, handler) }

// PATCH registers a PATCH route under the group's prefix.
func (g *Group) PATCH(path string, handler any) *Route { return g.mustHandle(http.MethodPatch, path, handler) }

// DELETE registers a DELETE route under the group's prefix.
func (g *Group) DELETE(path string, handler any) *Route { return g.mustHandle(http.MethodDelete, path, handler) }

// Handle registers a route for an arbitrary method under the group's prefix.
func (g *Group) Handle(method, path string, handler any) (*Route, error) {
	full := g.prefix + "/" + strings.TrimLeft(path, "/")
	return g.router.handle(method, full, handler, g.middleware, g.namePrefix)
}

func (g *Group) mustHandle(method, path string, handler any) *Route {
	rt, err := g.Handle(method, path, handler)
	if err != nil {
		panic(err)
	}
	return rt
}

// trimPrefix canonicalizes one group prefix segment: a leading slash, no
// trailing slash, and "" for the empty or root prefix.
func trimPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return ""
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}
	return prefix
}
