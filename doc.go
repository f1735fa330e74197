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

// Package router is an HTTP router with O(1) static matching, bucketed
// dynamic matching with specificity-based precedence, per-route middleware
// pipelines, container-backed handler resolution, and a persisted route
// cache for instant production startup.
//
// Routes are registered with a fluent API:
//
//	r := router.MustNew()
//	r.GET("/users/me", currentUser)
//	r.GET("/users/{id}", showUser).Where("id", `\d+`).Name("users.show")
//	http.ListenAndServe(":8080", r)
//
// Static routes always win over dynamic ones. Among dynamic candidates the
// route with more literal segments wins; registration order breaks ties.
//
// Handlers can be plain func(*Context) values, arbitrary functions resolved
// reflectively with parameter injection, Bound controller methods, or
// Invokable services; the last two resolve through a Container and survive
// the route cache (see RouteCache and the compiler package).
//
// The subpackages provide declarative YAML route loading (loader), cache
// artifact encoding and validation (compiler), and common middleware
// (middleware/recovery, middleware/requestid, middleware/accesslog). The
// routectl command builds and inspects route caches from manifests.
package router
