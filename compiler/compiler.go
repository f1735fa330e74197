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

// Package compiler turns a router's route tables into a serializable cache
// artifact and back. Handlers are normalized to metadata describing how to
// reconstruct them, because function values cannot be persisted: bound
// controller methods and invokable services rebuild through the container,
// named functions through the router's handler registry, and closures are
// flagged as non-reconstructible.
package compiler

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ArtifactVersion is bumped whenever the persisted layout changes. Decoding
// an artifact with a different version fails with ErrVersionMismatch, which
// cache loading treats as a miss.
const ArtifactVersion = 1

// ErrVersionMismatch indicates an artifact written by an incompatible
// compiler version.
var ErrVersionMismatch = errors.New("route cache artifact version mismatch")

// HandlerKind tags the normalized representation of a route handler.
type HandlerKind string

const (
	// KindFunc is a function registered under a stable name; reconstructible
	// through the handler registry.
	KindFunc HandlerKind = "func"

	// KindClosure is an anonymous function. Closures cannot be rebuilt from
	// metadata and are rejected by the validation pass.
	KindClosure HandlerKind = "closure"

	// KindBound is a controller method resolved through the container.
	KindBound HandlerKind = "bound"

	// KindInvokable is a container service with a Handle method.
	KindInvokable HandlerKind = "invokable"
)

// HandlerMeta is the serializable description of a handler: a kind tag plus
// the data needed to reconstruct it, and best-effort debug metadata.
type HandlerMeta struct {
	Kind            HandlerKind `msgpack:"kind"`
	Controller      string      `msgpack:"controller,omitempty"`
	Method          string      `msgpack:"method,omitempty"`
	FuncName        string      `msgpack:"func_name,omitempty"`
	Reconstructible bool        `msgpack:"reconstructible"`

	// Debug metadata, gathered best-effort; reflection failures during
	// compilation leave these empty rather than aborting.
	ParamTypes []string `msgpack:"param_types,omitempty"`
	Source     string   `msgpack:"source,omitempty"`
}

// Display returns a human-readable handler name.
func (m HandlerMeta) Display() string {
	switch m.Kind {
	case KindBound:
		return m.Controller + "." + m.Method
	case KindInvokable:
		return m.Controller
	default:
		return m.FuncName
	}
}

// StaticEntry is one static route in the artifact.
type StaticEntry struct {
	Method      string            `msgpack:"method"`
	Path        string            `msgpack:"path"`
	Handler     HandlerMeta       `msgpack:"handler"`
	Middleware  []string          `msgpack:"middleware,omitempty"`
	Name        string            `msgpack:"name,omitempty"`
	Constraints map[string]string `msgpack:"constraints,omitempty"`
}

// DynamicEntry is one dynamic route in the artifact. Entries keep their
// precedence order within a method.
type DynamicEntry struct {
	Method      string            `msgpack:"method"`
	Path        string            `msgpack:"path"`
	ParamNames  []string          `msgpack:"param_names"`
	Handler     HandlerMeta       `msgpack:"handler"`
	Middleware  []string          `msgpack:"middleware,omitempty"`
	Name        string            `msgpack:"name,omitempty"`
	Constraints map[string]string `msgpack:"constraints,omitempty"`
}

// Artifact is the persisted form of a router's route tables.
type Artifact struct {
	Version   int                       `msgpack:"version"`
	CreatedAt int64                     `msgpack:"created_at"`
	Static    map[string]StaticEntry    `msgpack:"static"`  // "METHOD:path" -> entry
	Dynamic   map[string][]DynamicEntry `msgpack:"dynamic"` // method -> ordered entries
}

// NewArtifact returns an empty artifact stamped with the current version.
func NewArtifact() *Artifact {
	return &Artifact{
		Version:   ArtifactVersion,
		CreatedAt: time.Now().Unix(),
		Static:    make(map[string]StaticEntry),
		Dynamic:   make(map[string][]DynamicEntry),
	}
}

// Encode serializes the artifact.
func (a *Artifact) Encode() ([]byte, error) {
	return msgpack.Marshal(a)
}

// Decode deserializes an artifact, rejecting incompatible versions.
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode route cache artifact: %w", err)
	}
	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("%w: artifact %d, compiler %d", ErrVersionMismatch, a.Version, ArtifactVersion)
	}
	return &a, nil
}

// RouteCount reports the total number of routes in the artifact.
func (a *Artifact) RouteCount() int {
	n := len(a.Static)
	for _, entries := range a.Dynamic {
		n += len(entries)
	}
	return n
}
