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

import "maps"

// RouteInfo describes one registered route for introspection: debugging,
// route-listing tooling, and cache compilation.
type RouteInfo struct {
	Method      string
	Path        string
	Handler     string
	Middleware  []string
	Name        string
	Constraints map[string]string
	Static      bool
}

// Routes returns every registered route in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RouteInfo, 0, len(r.routes))
	for _, rt := range r.routes {
		infos = append(infos, RouteInfo{
			Method:      rt.method,
			Path:        rt.path,
			Handler:     rt.handler.display,
			Middleware:  middlewareNames(rt.middleware),
			Name:        rt.name,
			Constraints: maps.Clone(rt.constraints),
			Static:      rt.compiled == nil,
		})
	}
	return infos
}

// Lookup returns the route registered under a name, or nil.
func (r *Router) Lookup(name string) *Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.named[name]
}
