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
	"slices"
	"strings"
)

// MatchResult is the outcome of routing a method and path.
//
//   - Route non-nil: matched; Params holds the captured parameters (empty,
//     non-nil for a static match).
//   - Route nil, Allowed non-empty: the path exists under other methods (405
//     candidate); Allowed is sorted, de-duplicated, and includes HEAD
//     whenever GET is allowed.
//   - Route nil, Allowed empty: no match (404 candidate).
type MatchResult struct {
	Route   *Route
	Params  map[string]string
	Allowed []string
}

// Match routes a method and path without dispatching. The path is normalized
// (percent-decoded, single leading slash, trailing slash stripped except the
// root) before lookup.
func (r *Router) Match(method, path string) MatchResult {
	method = strings.ToUpper(method)
	path = normalizePath(path)

	if rt, values, ok := r.lookup(method, path); ok {
		params := map[string]string{}
		if rt.compiled != nil {
			params = rt.compiled.paramMap(values)
		}
		return MatchResult{Route: rt, Params: params}
	}

	if allowed := r.allowedMethods(path); len(allowed) > 0 {
		return MatchResult{Allowed: allowed}
	}
	return MatchResult{}
}

// lookup implements the matching algorithm: static table first (O(1),
// unconditional precedence), then the dynamic candidates for the path's
// literal first-segment bucket followed by the wildcard bucket. Buckets are
// pre-sorted by specificity, so the first pattern hit wins. The returned
// values align with the route's parameter names.
func (r *Router) lookup(method, path string) (*Route, []string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rt, ok := r.static[method+":"+path]; ok {
		return rt, nil, true
	}

	buckets := r.buckets[method]
	if buckets == nil {
		return nil, nil, false
	}
	seg := firstSegment(path)
	for _, candidates := range [2][]*Route{buckets[seg], buckets[wildcardBucket]} {
		for _, rt := range candidates {
			if values, ok := rt.compiled.match(path); ok {
				return rt, values, true
			}
		}
	}
	return nil, nil, false
}

// allowedMethods reports which methods have a route matching the normalized
// path, sorted and de-duplicated, with HEAD implied by GET. An empty result
// means the path is unknown under every method.
func (r *Router) allowedMethods(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var allowed []string
	add := func(m string) {
		if !slices.Contains(allowed, m) {
			allowed = append(allowed, m)
		}
	}

	for key := range r.static {
		method, keyPath, _ := strings.Cut(key, ":")
		if keyPath == path {
			add(method)
		}
	}
	seg := firstSegment(path)
	for method, buckets := range r.buckets {
		for _, candidates := range [2][]*Route{buckets[seg], buckets[wildcardBucket]} {
			for _, rt := range candidates {
				if _, ok := rt.compiled.match(path); ok {
					add(method)
					break
				}
			}
		}
	}

	if slices.Contains(allowed, http.MethodGet) {
		add(http.MethodHead)
	}
	slices.Sort(allowed)
	return allowed
}
