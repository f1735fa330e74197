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
	"maps"
	"reflect"
	"runtime"

	"routeforge.dev/router/compiler"
)

// RegisterHandler binds a function handler to a stable name so routes using
// it survive a cache round trip. Hydration looks handlers up by this name;
// the compiler marks unregistered functions as non-reconstructible.
//
// Example:
//
//	r.RegisterHandler("users.show", showUser)
//	r.GET("/users/{id}", showUser)
func (r *Router) RegisterHandler(name string, handler HandlerFunc) {
	r.mu.Lock()
	r.handlers[name] = handler
	r.mu.Unlock()
}

// CompileArtifact snapshots the route tables into a versioned cache artifact.
// Handlers are reduced to reconstruction metadata; middleware survives only
// as registry references (function-valued middleware must be re-attached
// through RegisterMiddleware names to be cacheable).
func (r *Router) CompileArtifact() *compiler.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := compiler.NewArtifact()
	for _, rt := range r.routes {
		meta := r.handlerMeta(rt.handler)
		mw := stringMiddleware(rt.middleware)

		if rt.compiled == nil {
			a.Static[rt.method+":"+rt.path] = compiler.StaticEntry{
				Method:      rt.method,
				Path:        rt.path,
				Handler:     meta,
				Middleware:  mw,
				Name:        rt.name,
				Constraints: maps.Clone(rt.constraints),
			}
			continue
		}
		a.Dynamic[rt.method] = append(a.Dynamic[rt.method], compiler.DynamicEntry{
			Method:      rt.method,
			Path:        rt.path,
			ParamNames:  rt.compiled.paramNames,
			Handler:     meta,
			Middleware:  mw,
			Name:        rt.name,
			Constraints: maps.Clone(rt.constraints),
		})
	}
	return a
}

// ValidateForCaching compiles the current tables and reports every route that
// would degrade or break under caching: closures and unregistered functions,
// and bound or invokable handlers whose container reference dangles.
func (r *Router) ValidateForCaching() []compiler.Issue {
	return r.CompileArtifact().Validate(r.checkHandlerMeta)
}

// Hydrate rebuilds the route tables from a cache artifact. The receiver must
// be freshly constructed with the same container, middleware registry, and
// handler registry the compiling router had; any handler that cannot be
// reconstructed aborts hydration with ErrHandlerNotReconstructible.
func (r *Router) Hydrate(a *compiler.Artifact) error {
	for _, entry := range a.Static {
		if err := r.hydrateRoute(entry.Method, entry.Path, entry.Handler, entry.Middleware, entry.Name, entry.Constraints); err != nil {
			return err
		}
	}
	for _, entries := range a.Dynamic {
		for _, entry := range entries {
			if err := r.hydrateRoute(entry.Method, entry.Path, entry.Handler, entry.Middleware, entry.Name, entry.Constraints); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Router) hydrateRoute(method, path string, meta compiler.HandlerMeta, middleware []string, name string, constraints map[string]string) error {
	handler, err := r.reconstructHandler(meta)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	rt, err := r.handle(method, path, handler, nil, "")
	if err != nil {
		return err
	}

	if len(constraints) > 0 {
		rt.constraints = maps.Clone(constraints)
		if rt.compiled != nil {
			p, err := compilePattern(rt.path, rt.constraints)
			if err != nil {
				return err
			}
			rt.compiled = p
		}
	}
	for _, ref := range middleware {
		rt.middleware = append(rt.middleware, ref)
	}
	if name != "" {
		if err := r.registerName(name, rt); err != nil {
			return err
		}
	}
	return nil
}

// reconstructHandler turns persisted handler metadata back into a registrable
// handler value.
func (r *Router) reconstructHandler(meta compiler.HandlerMeta) (any, error) {
	switch meta.Kind {
	case compiler.KindBound:
		return Bound{Controller: meta.Controller, Method: meta.Method}, nil
	case compiler.KindInvokable:
		return Invokable{Service: meta.Controller}, nil
	case compiler.KindFunc:
		r.mu.RLock()
		h, ok := r.handlers[meta.FuncName]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: function %q is not in the handler registry", ErrHandlerNotReconstructible, meta.FuncName)
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %s is a closure", ErrHandlerNotReconstructible, meta.FuncName)
	}
}

// checkHandlerMeta is the compiler.HandlerChecker backed by this router's
// container and handler registry.
func (r *Router) checkHandlerMeta(meta compiler.HandlerMeta) error {
	switch meta.Kind {
	case compiler.KindFunc:
		r.mu.RLock()
		_, ok := r.handlers[meta.FuncName]
		r.mu.RUnlock()
		if !ok {
			return fmt.Errorf("function %q is not registered via RegisterHandler", meta.FuncName)
		}
		return nil
	case compiler.KindBound:
		inst, err := r.resolveService(meta.Controller)
		if err != nil {
			return err
		}
		if !reflect.ValueOf(inst).MethodByName(meta.Method).IsValid() {
			return fmt.Errorf("controller %q has no method %s", meta.Controller, meta.Method)
		}
		return nil
	case compiler.KindInvokable:
		inst, err := r.resolveService(meta.Controller)
		if err != nil {
			return err
		}
		if !reflect.ValueOf(inst).MethodByName(invokableMethod).IsValid() {
			return fmt.Errorf("service %q has no %s method", meta.Controller, invokableMethod)
		}
		return nil
	}
	return nil
}

func (r *Router) resolveService(name string) (any, error) {
	if r.container == nil {
		return nil, fmt.Errorf("%w: no container configured to resolve %q", ErrServiceNotFound, name)
	}
	inst, err := r.container.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrServiceNotFound, name, err)
	}
	return inst, nil
}

// handlerMeta reduces a handler spec to its persistable description. Callers
// hold r.mu.
func (r *Router) handlerMeta(spec handlerSpec) compiler.HandlerMeta {
	switch spec.kind {
	case kindBound:
		return compiler.HandlerMeta{
			Kind:            compiler.KindBound,
			Controller:      spec.controller,
			Method:          spec.method,
			Reconstructible: true,
		}
	case kindInvokable:
		return compiler.HandlerMeta{
			Kind:            compiler.KindInvokable,
			Controller:      spec.service,
			Method:          invokableMethod,
			Reconstructible: true,
		}
	}

	meta := compiler.HandlerMeta{Kind: compiler.KindFunc, FuncName: spec.display}
	if alias, ok := r.handlerAlias(spec); ok {
		meta.FuncName = alias
		meta.Reconstructible = true
	} else if isClosureName(spec.display) {
		meta.Kind = compiler.KindClosure
	}

	// Debug metadata, best effort.
	fv := reflect.ValueOf(spec.fn)
	if spec.kind == kindReflect {
		fv = spec.raw
	}
	if fv.IsValid() && fv.Kind() == reflect.Func {
		ft := fv.Type()
		for i := 0; i < ft.NumIn(); i++ {
			meta.ParamTypes = append(meta.ParamTypes, ft.In(i).String())
		}
		if f := runtime.FuncForPC(fv.Pointer()); f != nil {
			file, line := f.FileLine(f.Entry())
			meta.Source = fmt.Sprintf("%s:%d", file, line)
		}
	}
	return meta
}

// handlerAlias finds the registry name a function handler was registered
// under, by code pointer. Callers hold r.mu.
func (r *Router) handlerAlias(spec handlerSpec) (string, bool) {
	var ptr uintptr
	switch spec.kind {
	case kindFunc:
		ptr = reflect.ValueOf(spec.fn).Pointer()
	case kindReflect:
		ptr = spec.raw.Pointer()
	default:
		return "", false
	}
	for name, h := range r.handlers {
		if reflect.ValueOf(h).Pointer() == ptr {
			return name, true
		}
	}
	return "", false
}

// stringMiddleware keeps only registry references; function-valued middleware
// cannot be persisted.
func stringMiddleware(entries []any) []string {
	var refs []string
	for _, e := range entries {
		if s, ok := e.(string); ok {
			refs = append(refs, s)
		}
	}
	return refs
}
