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

import "errors"

// Configuration errors are raised while routes are being defined, before any
// traffic is served. They indicate a programming mistake in the route table
// and are meant to fail the boot, not a request.
var (
	// ErrDuplicateRoute indicates that a static route with the same method and
	// path has already been registered.
	ErrDuplicateRoute = errors.New("duplicate route registration")

	// ErrDuplicateRouteName indicates that another route already carries the name.
	ErrDuplicateRouteName = errors.New("duplicate route name")

	// ErrInvalidConstraint indicates that a parameter constraint is not a valid
	// regular expression.
	ErrInvalidConstraint = errors.New("invalid route parameter constraint")

	// ErrInvalidHandler indicates that a registered handler has an unsupported shape.
	ErrInvalidHandler = errors.New("invalid handler type")

	// ErrInvalidPath indicates a malformed route path template.
	ErrInvalidPath = errors.New("invalid route path")

	// ErrDuplicateMiddleware indicates that a named middleware factory is already registered.
	ErrDuplicateMiddleware = errors.New("duplicate middleware registration")

	// ErrInvalidCORSPattern indicates that an allowed-origin pattern does not compile.
	ErrInvalidCORSPattern = errors.New("invalid CORS origin pattern")

	// ErrRoutesFrozen indicates a registration attempt after the router started serving.
	ErrRoutesFrozen = errors.New("routes are frozen after warmup")
)

// Resolution errors surface during dispatch and propagate out of the handler
// chain to the router's error handler. They become 500-class responses.
var (
	// ErrRouteNotFound indicates that no route matches the request path.
	ErrRouteNotFound = errors.New("route not found")

	// ErrUnknownRouteName indicates that no route is registered under the name.
	ErrUnknownRouteName = errors.New("unknown route name")

	// ErrMissingRouteParameter indicates that a required parameter for URL
	// generation is missing.
	ErrMissingRouteParameter = errors.New("missing required parameter")

	// ErrParameterConstraint indicates that a supplied parameter value fails
	// the route's declared constraint.
	ErrParameterConstraint = errors.New("parameter fails route constraint")

	// ErrUnresolvableHandler indicates that a handler could not be resolved to
	// an invocable function at dispatch time.
	ErrUnresolvableHandler = errors.New("unresolvable handler")

	// ErrUnresolvableParam indicates that a handler parameter could not be
	// satisfied from the request, the container, or the route parameters.
	ErrUnresolvableParam = errors.New("unresolvable handler parameter")

	// ErrUnknownMiddleware indicates that a middleware reference names no
	// registered factory.
	ErrUnknownMiddleware = errors.New("unknown middleware")

	// ErrServiceNotFound indicates that the container has no binding for the
	// requested service.
	ErrServiceNotFound = errors.New("service not found in container")

	// ErrResponseWriterNotHijacker indicates that the underlying
	// http.ResponseWriter does not support connection hijacking.
	ErrResponseWriterNotHijacker = errors.New("response writer does not implement http.Hijacker")
)

// Cache errors are recoverable: a missing, stale, or corrupt cache artifact
// triggers a rebuild from route registration, never a failed boot.
var (
	// ErrHandlerNotReconstructible indicates a cached handler that cannot be
	// rebuilt from its metadata (typically a closure). Version mismatches are
	// reported by the compiler package (compiler.ErrVersionMismatch) and are
	// treated by RouteCache.Load as a miss.
	ErrHandlerNotReconstructible = errors.New("handler not reconstructible from cache")
)
