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

// Package loader registers routes from declarative YAML manifests. A
// manifest groups routes under an optional shared prefix, middleware set,
// and name prefix:
//
//	prefix: /api/v1
//	middleware: [auth]
//	name_prefix: "api."
//	routes:
//	  - method: GET
//	    path: /users/{id}
//	    handler: UserController.Show
//	    name: users.show
//	    middleware: ["throttle:60"]
//	    where:
//	      id: '\d+'
//
// Handlers are container references (Controller.Method or an invokable
// service registered with a Handle method), so manifests stay fully
// cacheable. Scanning overlapping directories is safe: each manifest file
// registers at most once per Loader.
package loader

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"routeforge.dev/router"
)

// manifestSuffix identifies route manifest files during directory scans.
const manifestSuffix = ".routes.yaml"

// Manifest is one route definition file.
type Manifest struct {
	Prefix     string     `yaml:"prefix"`
	Middleware []string   `yaml:"middleware"`
	NamePrefix string     `yaml:"name_prefix"`
	Routes     []RouteDef `yaml:"routes" validate:"required,min=1,dive"`
}

// RouteDef is one route inside a manifest.
type RouteDef struct {
	Method     string            `yaml:"method" validate:"required"`
	Path       string            `yaml:"path" validate:"required,startswith=/"`
	Handler    string            `yaml:"handler" validate:"required,contains=."`
	Name       string            `yaml:"name"`
	Middleware []string          `yaml:"middleware"`
	Where      map[string]string `yaml:"where"`
}

// Loader scans directories for route manifests and registers their routes.
type Loader struct {
	validate *validator.Validate
	logger   *slog.Logger
	seen     map[string]struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for per-manifest progress.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	ld := &Loader{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadDir walks the given roots, loads every *.routes.yaml manifest found,
// and registers its routes on r. Files are processed in sorted path order so
// registration (and therefore dynamic route tie-breaking) is deterministic.
// A manifest reachable from several roots registers once. It returns the
// number of routes registered.
func (ld *Loader) LoadDir(r *router.Router, roots ...string) (int, error) {
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), manifestSuffix) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	sort.Strings(files)

	total := 0
	for _, f := range files {
		n, err := ld.LoadFile(r, f)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// LoadFile loads a single manifest and registers its routes on r. It returns
// the number of routes registered; a manifest this Loader already processed
// registers zero.
func (ld *Loader) LoadFile(r *router.Router, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, done := ld.seen[abs]; done {
		return 0, nil
	}
	ld.seen[abs] = struct{}{}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return 0, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := ld.validate.Struct(&m); err != nil {
		return 0, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	n, err := ld.register(r, &m)
	if err != nil {
		return n, fmt.Errorf("manifest %s: %w", path, err)
	}
	ld.logger.Debug("route manifest loaded", "path", path, "routes", n)
	return n, nil
}

// register applies one manifest through the router's public registration API.
// Constraints and names are pre-validated so definition mistakes in a
// manifest come back as errors rather than panics.
func (ld *Loader) register(r *router.Router, m *Manifest) (int, error) {
	group := r.Group(m.Prefix, toAny(m.Middleware)...)
	if m.NamePrefix != "" {
		group.SetNamePrefix(m.NamePrefix)
	}

	for i, def := range m.Routes {
		for param, constraint := range def.Where {
			if _, err := regexp.Compile(constraint); err != nil {
				return i, fmt.Errorf("route %s %s: constraint %q for %q: %w", def.Method, def.Path, constraint, param, err)
			}
		}
		if def.Name != "" && r.Lookup(m.NamePrefix+def.Name) != nil {
			return i, fmt.Errorf("route %s %s: name %q already registered", def.Method, def.Path, m.NamePrefix+def.Name)
		}

		rt, err := group.Handle(def.Method, def.Path, def.Handler)
		if err != nil {
			return i, err
		}
		for param, constraint := range def.Where {
			rt.Where(param, constraint)
		}
		if len(def.Middleware) > 0 {
			rt.Middleware(toAny(def.Middleware)...)
		}
		if def.Name != "" {
			rt.Name(def.Name)
		}
	}
	return len(m.Routes), nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
