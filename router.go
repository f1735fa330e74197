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
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// wildcardBucket groups dynamic routes whose first path segment is itself a
// placeholder, so they are tried after every literal first-segment bucket.
const wildcardBucket = "{*}"

// Option configures a Router at construction time.
type Option func(*Router)

// ErrorHandler converts a resolution error that escaped the handler chain
// into a response. The default handler logs the error and writes a generic
// 500; frameworks embedding the router install their own.
type ErrorHandler func(c *Context, err error)

// Router matches HTTP requests to registered routes and runs their
// middleware pipelines and handlers. It implements http.Handler.
//
// Matching guarantees:
//   - Static routes are matched by an O(1) table lookup and always win over
//     dynamic routes, regardless of registration order.
//   - Dynamic candidates are bucketed by literal first segment and ordered by
//     specificity (more literal segments first), with registration order as
//     the tie-break.
//
// Registration is expected at boot. The route tables freeze on the first
// request (or an explicit Warmup call); after that the Router is safe for
// unlimited concurrent reads. The per-route pipeline and handler descriptor
// caches are concurrency-safe maps populated lazily.
//
// Example:
//
//	r := router.MustNew()
//	r.GET("/users/{id}", func(c *router.Context) {
//	    c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//	http.ListenAndServe(":8080", r)
type Router struct {
	mu      sync.RWMutex
	static  map[string]*Route            // "METHOD:path" -> route
	dynamic map[string][]*Route          // method -> routes in registration order
	buckets map[string]map[string][]*Route
	named   map[string]*Route
	routes  []*Route // registration order, for introspection and compilation

	middleware  []any // global middleware, outermost first
	mwFactories map[string]MiddlewareFactory
	handlers    map[string]HandlerFunc // stable-name registry, for cache reconstruction

	container     Container
	corsRaw       *CORSConfig
	cors          *corsRules
	mode          Mode
	observability ObservabilityRecorder
	errorHandler  ErrorHandler
	logger        *slog.Logger

	pipelines   sync.Map // *Route -> []HandlerFunc
	descriptors sync.Map // handler identity -> *descriptor

	frozen     atomic.Bool
	warmupOnce sync.Once
	seq        int
}

// New creates a Router. Configuration is validated immediately; an invalid
// CORS pattern or option combination fails here rather than at runtime.
//
// Example:
//
//	r, err := router.New(
//	    router.WithMode(router.DevelopmentMode),
//	    router.WithContainer(registry),
//	)
func New(opts ...Option) (*Router, error) {
	r := &Router{
		static:      make(map[string]*Route),
		dynamic:     make(map[string][]*Route),
		buckets:     make(map[string]map[string][]*Route),
		named:       make(map[string]*Route),
		mwFactories: make(map[string]MiddlewareFactory),
		handlers:    make(map[string]HandlerFunc),
		mode:        modeFromEnv(),
		logger:      noopLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	// CORS compiles after all options so the final mode governs the
	// development allow-all escape hatch.
	if r.corsRaw != nil {
		rules, err := compileCORS(*r.corsRaw, r.mode)
		if err != nil {
			return nil, err
		}
		r.cors = rules
	}
	if r.errorHandler == nil {
		r.errorHandler = defaultErrorHandler
	}
	return r, nil
}

// MustNew is New, panicking on configuration errors.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("router.MustNew: %v", err))
	}
	return r
}

// WithMode fixes the operating mode instead of reading ROUTEFORGE_MODE.
func WithMode(mode Mode) Option {
	return func(r *Router) { r.mode = mode }
}

// WithContainer supplies the service container used to resolve Bound and
// Invokable handlers and to inject handler parameters by type.
func WithContainer(c Container) Option {
	return func(r *Router) { r.container = c }
}

// WithCORS enables CORS handling with the given configuration. Origin
// patterns are compiled and validated by New.
func WithCORS(cfg CORSConfig) Option {
	return func(r *Router) { r.corsRaw = &cfg }
}

// WithObservability installs a recorder for request metrics, tracing, and
// request-scoped logging.
func WithObservability(rec ObservabilityRecorder) Option {
	return func(r *Router) { r.observability = rec }
}

// WithErrorHandler replaces the default resolution-error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Router) { r.errorHandler = h }
}

// WithLogger sets the router's base logger, used for cache warnings and the
// default error handler.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// defaultErrorHandler logs the resolution error and answers with a generic
// 500. The router never formats user-facing error bodies beyond this.
func defaultErrorHandler(c *Context, err error) {
	c.Logger().Error("handler resolution failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	if rw, ok := c.Response.(ResponseInfo); !ok || !rw.Written() {
		http.Error(c.Response, "500 internal server error", http.StatusInternalServerError)
	}
}

// Mode returns the router's operating mode.
func (r *Router) Mode() Mode { return r.mode }

// Use appends global middleware, applied to every route ahead of group and
// route middleware. Entries are HandlerFunc values or registry references.
func (r *Router) Use(middleware ...any) {
	r.ensureMutable()
	r.mu.Lock()
	r.middleware = append(r.middleware, middleware...)
	r.mu.Unlock()
}

// RegisterMiddleware binds a named middleware factory. Route middleware
// references of the form "name" or "name:arg1,arg2" resolve through this
// registry; the colon-separated arguments are passed to the factory.
//
// Example:
//
//	r.RegisterMiddleware("auth", func(roles ...string) router.HandlerFunc {
//	    return func(c *router.Context) { /* check roles */ c.Next() }
//	})
//	r.GET("/admin", handler).Middleware("auth:admin,editor")
func (r *Router) RegisterMiddleware(name string, factory MiddlewareFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.mwFactories[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateMiddleware, name)
	}
	r.mwFactories[name] = factory
	return nil
}

// GET registers a GET route. Registration mistakes (duplicate static path,
// invalid handler, broken pattern) panic: they are boot-time configuration
// errors. Use Handle for the error-returning form.
func (r *Router) GET(path string, handler any) *Route { return r.mustHandle(http.MethodGet, path, handler) }

// POST registers a POST route.
func (r *Router) POST(path string, handler any) *Route { return r.mustHandle(http.MethodPost, path, handler) }

// PUT registers a PUT route.
func (r *Router) PUT(path string, handler any) *Route { return r.mustHandle(http.MethodPut, path, handler) }

// PATCH registers a PATCH route.
func (r *Router) PATCH(path string, handler any) *Route { return r.mustHandle(http.MethodPatch, path, handler) }

// DELETE registers a DELETE route.
func (r *Router) DELETE(path string, handler any) *Route { return r.mustHandle(http.MethodDelete, path, handler) }

func (r *Router) mustHandle(method, path string, handler any) *Route {
	rt, err := r.Handle(method, path, handler)
	if err != nil {
		panic(err)
	}
	return rt
}

// Handle registers a route for an arbitrary method. The method is
// upper-cased and the path normalized to a single leading slash with no
// trailing slash (the root stays "/"). Static paths (no placeholders) go to
// the O(1) table; dynamic paths are compiled and bucketed by first segment.
//
// Handle returns a configuration error for a duplicate static route, an
// invalid handler shape, or an uncompilable pattern.
func (r *Router) Handle(method, path string, handler any) (*Route, error) {
	return r.handle(method, path, handler, nil, "")
}

// handle is the registration core shared by the Router and Group surfaces.
// Group middleware arrives merged outer-to-inner; namePrefix applies to a
// later Name call via the returned route's router reference.
func (r *Router) handle(method, path string, handler any, groupMiddleware []any, namePrefix string) (*Route, error) {
	if r.frozen.Load() {
		return nil, ErrRoutesFrozen
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrInvalidPath)
	}
	path = normalizeTemplate(path)

	spec, err := normalizeHandler(handler)
	if err != nil {
		return nil, err
	}

	rt := &Route{
		router:     r,
		method:     method,
		path:       path,
		handler:    spec,
		namePrefix: namePrefix,
	}
	if len(groupMiddleware) > 0 {
		rt.middleware = append(rt.middleware, groupMiddleware...)
	}

	if !isStaticPath(path) {
		p, err := compilePattern(path, nil)
		if err != nil {
			return nil, err
		}
		rt.compiled = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rt.seq = r.seq
	r.seq++

	if rt.compiled == nil {
		key := method + ":" + path
		if _, exists := r.static[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
		}
		r.static[key] = rt
	} else {
		r.dynamic[method] = append(r.dynamic[method], rt)
		r.insertBucket(rt)
	}
	r.routes = append(r.routes, rt)
	return rt, nil
}

// insertBucket files a dynamic route under its first-segment bucket and keeps
// the bucket ordered by specificity score, registration order as tie-break.
// Callers hold r.mu.
func (r *Router) insertBucket(rt *Route) {
	seg := firstSegment(rt.path)
	if strings.Contains(seg, "{") {
		seg = wildcardBucket
	}
	if r.buckets[rt.method] == nil {
		r.buckets[rt.method] = make(map[string][]*Route)
	}
	bucket := append(r.buckets[rt.method][seg], rt)
	sort.SliceStable(bucket, func(i, j int) bool {
		si, sj := specificity(bucket[i].path), specificity(bucket[j].path)
		if si != sj {
			return si > sj
		}
		return bucket[i].seq < bucket[j].seq
	})
	r.buckets[rt.method][seg] = bucket
}

// registerName enforces unique route names.
func (r *Router) registerName(name string, rt *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	full := rt.namePrefix + name
	if _, exists := r.named[full]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateRouteName, full)
	}
	r.named[full] = rt
	rt.name = full
	return nil
}

// ensureMutable panics when route definition continues after the tables have
// frozen. Definition mistakes must fail loudly at boot.
func (r *Router) ensureMutable() {
	if r.frozen.Load() {
		panic(ErrRoutesFrozen)
	}
}

// Warmup freezes the route tables and pre-builds every route's middleware
// pipeline so the first real request pays no construction cost. It runs at
// most once; ServeHTTP calls it lazily.
func (r *Router) Warmup() {
	r.warmupOnce.Do(func() {
		r.frozen.Store(true)
		r.mu.RLock()
		routes := make([]*Route, len(r.routes))
		copy(routes, r.routes)
		r.mu.RUnlock()
		for _, rt := range routes {
			// Pipeline build errors (unknown middleware names) surface
			// per-request through the error handler; warmup only warms.
			if chain, err := r.buildPipeline(rt); err == nil {
				r.pipelines.Store(rt, chain)
			}
		}
	})
}

// normalizeTemplate canonicalizes a registration path template: exactly one
// leading slash and no trailing slash except the root.
func normalizeTemplate(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	for len(path) > 1 && path[0] == '/' && path[1] == '/' {
		path = path[1:]
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
