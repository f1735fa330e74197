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
	"reflect"
	"sync"
)

// Container supplies services to handler invocation. The router only consumes
// this interface; the dependency-injection machinery behind it belongs to the
// surrounding framework. Bound and Invokable handlers resolve their receiver
// by name, and reflective parameter resolution looks services up by type.
type Container interface {
	// Resolve returns the service registered under name, or an error wrapping
	// ErrServiceNotFound.
	Resolve(name string) (any, error)

	// ResolveType returns a service assignable to t, if one is bound.
	ResolveType(t reflect.Type) (any, bool)
}

// Registry is a minimal Container for applications that do not bring their
// own. Services registered by name are also indexed by their concrete type
// and by any interfaces they implement on lookup.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewRegistry returns an empty service registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]any)}
}

// Register binds a service instance under a name. Re-registering a name
// replaces the previous binding.
func (r *Registry) Register(name string, service any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = service
}

// Resolve implements Container.
func (r *Registry) Resolve(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}
	return svc, nil
}

// ResolveType implements Container. It scans registered services for one
// whose type is assignable to t. Registries are small (boot-time wiring), so
// a linear scan is fine; hot-path lookups are memoized by the handler
// descriptor cache anyway.
func (r *Registry) ResolveType(t reflect.Type) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, svc := range r.services {
		if reflect.TypeOf(svc).AssignableTo(t) {
			return svc, true
		}
	}
	return nil, false
}
