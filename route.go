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
	"net/url"
	"regexp"
	"strings"
)

// Route is a registered route: method, path template, handler, middleware
// references, optional name, and parameter constraints. Dynamic routes also
// carry their compiled matching pattern.
//
// Routes are created through the Router's registration methods and expose a
// fluent API for constraints, middleware, and naming. Fluent calls are only
// legal before the router starts serving; once routes are warmed up they are
// immutable for matching purposes.
type Route struct {
	router      *Router
	method      string
	path        string
	handler     handlerSpec
	middleware  []any // HandlerFunc values or "name:arg1,arg2" references
	name        string
	constraints map[string]string
	compiled    *pattern // nil iff the route is static
	seq         int      // registration order, precedence tie-break
	namePrefix  string   // inherited from the owning group, applied by Name
}

// Method returns the route's HTTP method.
func (rt *Route) Method() string { return rt.method }

// Path returns the normalized path template.
func (rt *Route) Path() string { return rt.path }

// RouteName returns the route's name, or "" when unnamed.
func (rt *Route) RouteName() string { return rt.name }

// IsStatic reports whether the path contains no placeholders.
func (rt *Route) IsStatic() bool { return rt.compiled == nil }

// ParamNames returns the placeholder names in path order. Static routes have none.
func (rt *Route) ParamNames() []string {
	if rt.compiled == nil {
		return nil
	}
	return rt.compiled.paramNames
}

// HandlerName returns the handler's display name for introspection.
func (rt *Route) HandlerName() string { return rt.handler.display }

// Middleware appends middleware to the route. Entries are either HandlerFunc
// values or registry references of the form "name" / "name:arg1,arg2".
//
// Example:
//
//	r.GET("/admin", handler).Middleware("auth:admin", audit)
func (rt *Route) Middleware(entries ...any) *Route {
	rt.router.ensureMutable()
	rt.middleware = append(rt.middleware, entries...)
	rt.router.pipelines.Delete(rt)
	return rt
}

// Where constrains a route parameter with a regular expression. The pattern
// is validated and the route recompiled immediately, so a broken constraint
// fails at definition time rather than on the first request.
//
// Where panics with an error wrapping ErrInvalidConstraint on an invalid
// pattern; route definition mistakes are boot-time failures.
//
// Example:
//
//	r.GET("/items/{id}", handler).Where("id", `\d+`)
func (rt *Route) Where(param, constraint string) *Route {
	rt.router.ensureMutable()
	if rt.constraints == nil {
		rt.constraints = make(map[string]string)
	}
	rt.constraints[param] = constraint

	if rt.compiled != nil {
		p, err := compilePattern(rt.path, rt.constraints)
		if err != nil {
			panic(err)
		}
		rt.compiled = p
	}
	return rt
}

// Name registers the route under a unique name for reverse routing. A
// duplicate name panics with an error wrapping ErrDuplicateRouteName.
//
// Example:
//
//	r.GET("/users/{id}", handler).Name("users.show")
//	u, _ := r.URLFor("users.show", map[string]string{"id": "42"}, nil)
func (rt *Route) Name(name string) *Route {
	rt.router.ensureMutable()
	if err := rt.router.registerName(name, rt); err != nil {
		panic(err)
	}
	rt.name = name
	return rt
}

// Match tests a normalized path against this single route. It returns the
// captured parameters, or nil when the path does not match. A matching
// static route returns an empty, non-nil map.
func (rt *Route) Match(path string) map[string]string {
	path = normalizePath(path)
	if rt.compiled == nil {
		if path == rt.path {
			return map[string]string{}
		}
		return nil
	}
	values, ok := rt.compiled.match(path)
	if !ok {
		return nil
	}
	return rt.compiled.paramMap(values)
}

// URL builds a concrete URL from the route's path template. Every placeholder
// must be supplied in params and must satisfy its declared constraint. Query
// values, when present, are appended encoded.
func (rt *Route) URL(params map[string]string, query url.Values) (string, error) {
	path := rt.path
	if rt.compiled != nil {
		var buildErr error
		path = placeholderRe.ReplaceAllStringFunc(rt.path, func(ph string) string {
			if buildErr != nil {
				return ph
			}
			name := ph[1 : len(ph)-1]
			value, ok := params[name]
			if !ok {
				buildErr = fmt.Errorf("%w: %q for route %s", ErrMissingRouteParameter, name, rt.path)
				return ph
			}
			if err := rt.checkConstraint(name, value); err != nil {
				buildErr = err
				return ph
			}
			return url.PathEscape(value)
		})
		if buildErr != nil {
			return "", buildErr
		}
	}

	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// checkConstraint validates a generated parameter value against the declared
// constraint (or the default non-slash pattern when none is declared).
func (rt *Route) checkConstraint(name, value string) error {
	constraint := defaultParamPattern
	if c, ok := rt.constraints[name]; ok && c != "" {
		constraint = c
	}
	re, err := regexp.Compile("^(?:" + constraint + ")$")
	if err != nil {
		// Constraints were validated at definition time; reaching this means
		// the route was mutated behind the API.
		return fmt.Errorf("%w: %q: %v", ErrInvalidConstraint, name, err)
	}
	if !re.MatchString(value) {
		return fmt.Errorf("%w: %q = %q does not match %q", ErrParameterConstraint, name, value, constraint)
	}
	return nil
}

// normalizePath decodes and canonicalizes a request path: percent-decoded,
// exactly one leading slash, no trailing slash except the root.
func normalizePath(path string) string {
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	for len(path) > 1 && path[0] == '/' && path[1] == '/' {
		path = path[1:]
	}
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
