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
)

// URLFor builds a URL from a named route. Unknown names and missing
// parameters are configuration errors; a parameter value that fails its
// declared constraint is a value error (ErrParameterConstraint). The
// generated URL round-trips: matching it returns the same route and
// reconstructs the same parameters.
//
// Example:
//
//	r.GET("/users/{id}", handler).Where("id", `\d+`).Name("users.show")
//	u, err := r.URLFor("users.show", map[string]string{"id": "42"}, nil)
//	// u == "/users/42"
func (r *Router) URLFor(name string, params map[string]string, query url.Values) (string, error) {
	r.mu.RLock()
	rt, ok := r.named[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRouteName, name)
	}
	return rt.URL(params, query)
}

// MustURLFor is URLFor, panicking on error. Intended for templates and other
// places where a failure is a programming mistake.
func (r *Router) MustURLFor(name string, params map[string]string, query url.Values) string {
	u, err := r.URLFor(name, params, query)
	if err != nil {
		panic(fmt.Sprintf("router.MustURLFor: %v", err))
	}
	return u
}
