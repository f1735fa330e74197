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
	"context"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

// HandlerFunc is the canonical handler and middleware shape. Middleware calls
// c.Next() to continue the chain or writes a response to short-circuit.
type HandlerFunc func(*Context)

// Bound references a controller method. The controller instance is resolved
// from the Container by name at dispatch time and the method is invoked with
// reflective parameter resolution.
type Bound struct {
	Controller string
	Method     string
}

// Invokable references a container service whose Handle method serves the
// route. It is the single-action controller shape.
type Invokable struct {
	Service string
}

// Responder lets a handler return a value that renders itself. Returned
// Responder values pass through response normalization unchanged.
type Responder interface {
	Respond(c *Context) error
}

// invokableMethod is the method looked up on Invokable services.
const invokableMethod = "Handle"

type handlerKind uint8

const (
	kindFunc      handlerKind = iota // func(*Context), invoked directly
	kindReflect                      // any other func shape, reflective resolution
	kindBound                        // controller + method via container
	kindInvokable                    // container service with Handle method
)

// handlerSpec is the normalized, registration-time form of a route handler.
// Exactly one variant is populated, selected by kind.
type handlerSpec struct {
	kind       handlerKind
	fn         HandlerFunc
	raw        reflect.Value // kindReflect
	controller string
	method     string
	service    string
	display    string // introspection / cache metadata name
}

// normalizeHandler classifies a registered handler into its spec. Supported
// shapes: func(*Context), any other func, Bound, Invokable, and
// "Controller.Method" / "Controller::Method" strings. Anything else is a
// configuration error.
func normalizeHandler(h any) (handlerSpec, error) {
	switch v := h.(type) {
	case nil:
		return handlerSpec{}, fmt.Errorf("%w: nil handler", ErrInvalidHandler)
	case HandlerFunc:
		return handlerSpec{kind: kindFunc, fn: v, display: funcName(v)}, nil
	case func(*Context):
		return handlerSpec{kind: kindFunc, fn: v, display: funcName(v)}, nil
	case Bound:
		if v.Controller == "" || v.Method == "" {
			return handlerSpec{}, fmt.Errorf("%w: Bound requires controller and method", ErrInvalidHandler)
		}
		return handlerSpec{
			kind: kindBound, controller: v.Controller, method: v.Method,
			display: v.Controller + "." + v.Method,
		}, nil
	case Invokable:
		if v.Service == "" {
			return handlerSpec{}, fmt.Errorf("%w: Invokable requires a service name", ErrInvalidHandler)
		}
		return handlerSpec{kind: kindInvokable, service: v.Service, display: v.Service}, nil
	case string:
		sep := "::"
		if !strings.Contains(v, sep) {
			sep = "."
		}
		controller, method, ok := strings.Cut(v, sep)
		if !ok || controller == "" || method == "" {
			return handlerSpec{}, fmt.Errorf("%w: handler string %q is not Controller.Method", ErrInvalidHandler, v)
		}
		return handlerSpec{
			kind: kindBound, controller: controller, method: method,
			display: controller + "." + method,
		}, nil
	}

	rv := reflect.ValueOf(h)
	if rv.Kind() == reflect.Func {
		return handlerSpec{kind: kindReflect, raw: rv, display: funcName(h)}, nil
	}
	return handlerSpec{}, fmt.Errorf("%w: %T", ErrInvalidHandler, h)
}

// funcName reports the symbol name of a function value for introspection and
// cache metadata. Anonymous functions keep Go's .funcN suffix, which is how
// the compiler's validation pass recognizes them as non-reconstructible.
func funcName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown"
	}
	return f.Name()
}

// isClosureName reports whether a function symbol looks like an anonymous
// function (closure). Closures cannot be rebuilt from cache metadata.
func isClosureName(name string) bool {
	return strings.Contains(name, ".func") || name == "unknown" || name == ""
}

type paramSource uint8

const (
	srcContext paramSource = iota
	srcRequest
	srcStdContext
	srcService
	srcRouteParam
)

// paramPlan describes how one declared handler parameter is satisfied.
type paramPlan struct {
	source     paramSource
	typ        reflect.Type
	routeIndex int // position among the route's captured values, for srcRouteParam
}

// descriptor is the cached reflective shape of a handler: how to produce each
// argument and where the error return sits. Resolution order per parameter:
// context/request injection, container lookup by type, then positional route
// parameter with scalar casting. Parameters satisfying none of those reject
// the handler at descriptor build time.
type descriptor struct {
	plans    []paramPlan
	errIndex int // index of a trailing error return, -1 when absent
	numOut   int
}

var (
	contextType    = reflect.TypeOf((*Context)(nil))
	requestType    = reflect.TypeOf((*http.Request)(nil))
	stdContextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// buildDescriptor inspects a function type and plans its invocation. The
// container is consulted only for a type's resolvability; instances are
// resolved fresh per request so container rebinding stays observable.
func buildDescriptor(ft reflect.Type, container Container, display string) (*descriptor, error) {
	d := &descriptor{errIndex: -1, numOut: ft.NumOut()}

	routeIdx := 0
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		plan := paramPlan{typ: pt}

		switch {
		case pt == contextType:
			plan.source = srcContext
		case pt == requestType:
			plan.source = srcRequest
		case pt == stdContextType:
			plan.source = srcStdContext
		case isScalarKind(pt.Kind()):
			plan.source = srcRouteParam
			plan.routeIndex = routeIdx
			routeIdx++
		default:
			if container != nil {
				if _, ok := container.ResolveType(pt); ok {
					plan.source = srcService
					break
				}
			}
			return nil, fmt.Errorf("%w: %s parameter %d (%s)", ErrUnresolvableParam, display, i, pt)
		}
		d.plans = append(d.plans, plan)
	}

	for i := 0; i < ft.NumOut(); i++ {
		if ft.Out(i) == errorType {
			d.errIndex = i
		}
	}
	return d, nil
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Int, reflect.Int64, reflect.Float64, reflect.Bool:
		return true
	default:
		return false
	}
}

// buildArgs materializes the argument list for one request.
func (d *descriptor) buildArgs(c *Context, container Container) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(d.plans))
	for i, plan := range d.plans {
		switch plan.source {
		case srcContext:
			args[i] = reflect.ValueOf(c)
		case srcRequest:
			args[i] = reflect.ValueOf(c.Request)
		case srcStdContext:
			args[i] = reflect.ValueOf(c.Request.Context())
		case srcService:
			svc, ok := container.ResolveType(plan.typ)
			if !ok {
				return nil, fmt.Errorf("%w: no binding for %s", ErrUnresolvableParam, plan.typ)
			}
			args[i] = reflect.ValueOf(svc)
		case srcRouteParam:
			if plan.routeIndex >= len(c.paramValues) {
				return nil, fmt.Errorf("%w: route supplies %d parameters, handler wants more", ErrUnresolvableParam, len(c.paramValues))
			}
			v, err := castScalar(c.paramValues[plan.routeIndex], plan.typ)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
	}
	return args, nil
}

// castScalar converts a captured route parameter (always a string on the
// wire) to the handler's declared scalar type.
func castScalar(raw string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t), nil
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not an integer", ErrUnresolvableParam, raw)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a float", ErrUnresolvableParam, raw)
		}
		return reflect.ValueOf(f), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a bool", ErrUnresolvableParam, raw)
		}
		return reflect.ValueOf(b), nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: unsupported scalar %s", ErrUnresolvableParam, t)
	}
}

// invoke runs a route handler. Plain HandlerFuncs are called directly; every
// other shape goes through the reflective path with descriptor caching keyed
// by handler identity.
func (r *Router) invoke(c *Context, spec handlerSpec) error {
	if spec.kind == kindFunc {
		spec.fn(c)
		return nil
	}

	fn, err := r.resolveCallable(spec)
	if err != nil {
		return err
	}

	key := r.descriptorKey(spec)
	var d *descriptor
	if cached, ok := r.descriptors.Load(key); ok {
		d = cached.(*descriptor)
	} else {
		d, err = buildDescriptor(fn.Type(), r.container, spec.display)
		if err != nil {
			return err
		}
		r.descriptors.Store(key, d)
	}

	args, err := d.buildArgs(c, r.container)
	if err != nil {
		return err
	}

	outs := fn.Call(args)
	return normalizeResults(c, d, outs)
}

// resolveCallable produces the reflect.Value to call for a handler spec.
func (r *Router) resolveCallable(spec handlerSpec) (reflect.Value, error) {
	switch spec.kind {
	case kindReflect:
		return spec.raw, nil
	case kindBound:
		if r.container == nil {
			return reflect.Value{}, fmt.Errorf("%w: %s requires a container", ErrUnresolvableHandler, spec.display)
		}
		inst, err := r.container.Resolve(spec.controller)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %s: %v", ErrUnresolvableHandler, spec.display, err)
		}
		m := reflect.ValueOf(inst).MethodByName(spec.method)
		if !m.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %T has no method %s", ErrUnresolvableHandler, inst, spec.method)
		}
		return m, nil
	case kindInvokable:
		if r.container == nil {
			return reflect.Value{}, fmt.Errorf("%w: %s requires a container", ErrUnresolvableHandler, spec.display)
		}
		inst, err := r.container.Resolve(spec.service)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %s: %v", ErrUnresolvableHandler, spec.display, err)
		}
		m := reflect.ValueOf(inst).MethodByName(invokableMethod)
		if !m.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %T has no %s method", ErrUnresolvableHandler, inst, invokableMethod)
		}
		return m, nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: kind %d", ErrUnresolvableHandler, spec.kind)
	}
}

// descriptorKey identifies a handler for descriptor caching. Bound and
// Invokable handlers are keyed by name; raw functions by code pointer.
func (r *Router) descriptorKey(spec handlerSpec) string {
	switch spec.kind {
	case kindBound:
		return "bound:" + spec.controller + "." + spec.method
	case kindInvokable:
		return "invokable:" + spec.service
	default:
		return "func:" + strconv.FormatUint(uint64(spec.raw.Pointer()), 16)
	}
}

// normalizeResults turns a reflective handler's return values into a
// response: a non-nil error return propagates, a Responder renders itself,
// strings become text, structured values become JSON, and anything else is
// stringified. Handlers returning nothing are assumed to have written
// through an injected *Context or *http.Request.
func normalizeResults(c *Context, d *descriptor, outs []reflect.Value) error {
	if d.errIndex >= 0 {
		if errv := outs[d.errIndex]; !errv.IsNil() {
			return errv.Interface().(error)
		}
	}
	for i, out := range outs {
		if i == d.errIndex {
			continue
		}
		return normalizeResponse(c, out.Interface())
	}
	return nil
}

// normalizeResponse writes an arbitrary handler result to the response.
func normalizeResponse(c *Context, v any) error {
	switch rv := v.(type) {
	case nil:
		return nil
	case Responder:
		return rv.Respond(c)
	case string:
		return c.String(http.StatusOK, rv)
	case []byte:
		return c.Data(http.StatusOK, "application/octet-stream", rv)
	case error:
		return rv
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Struct, reflect.Ptr, reflect.Interface, reflect.Array:
		return c.JSON(http.StatusOK, v)
	default:
		return c.String(http.StatusOK, fmt.Sprint(v))
	}
}
