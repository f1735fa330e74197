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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"routeforge.dev/router/compiler"
)

// defaultDevTTL is how long a development-mode cache file stays fresh.
const defaultDevTTL = 5 * time.Second

// cacheFileMode keeps artifacts private to the owning user.
const cacheFileMode = 0o600

// RouteCache persists compiled route artifacts on disk. Files are partitioned
// by mode so development and production never serve each other's artifacts:
// development caches expire on a short TTL and whenever a watched source file
// is newer than the cache, while production caches live until Clear.
//
// Load treats a missing, stale, corrupt, or version-mismatched file as a
// cache miss, not an error; the caller compiles fresh and Saves.
//
// Example:
//
//	cache, _ := router.NewRouteCache("/var/cache/app",
//	    router.WithCacheMode(router.ProductionMode),
//	)
//	if art, _ := cache.Load(); art != nil {
//	    err = r.Hydrate(art)
//	} else {
//	    registerRoutes(r)
//	    err = cache.Save(r.CompileArtifact())
//	}
type RouteCache struct {
	dir      string
	mode     Mode
	ttl      time.Duration
	sources  []string
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	warmHook func(*compiler.Artifact)
}

// CacheOption configures a RouteCache.
type CacheOption func(*RouteCache)

// WithCacheMode fixes the cache's operating mode instead of reading
// ROUTEFORGE_MODE.
func WithCacheMode(mode Mode) CacheOption {
	return func(c *RouteCache) { c.mode = mode }
}

// WithCacheTTL overrides the development-mode freshness window.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *RouteCache) { c.ttl = ttl }
}

// WithCacheSources registers route definition files (manifests, config) whose
// modification invalidates a development cache.
func WithCacheSources(paths ...string) CacheOption {
	return func(c *RouteCache) { c.sources = append(c.sources, paths...) }
}

// WithCacheLogger sets the logger for cache warnings.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *RouteCache) { c.logger = l }
}

// WithCacheWarmHook runs fn after every successful Save, typically to hand
// the fresh artifact to a hydrating router without a Load round trip.
func WithCacheWarmHook(fn func(*compiler.Artifact)) CacheOption {
	return func(c *RouteCache) { c.warmHook = fn }
}

// NewRouteCache creates a cache rooted at dir. The directory is created on
// the first Save, not here.
func NewRouteCache(dir string, opts ...CacheOption) (*RouteCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("route cache: empty directory")
	}
	c := &RouteCache{
		dir:    dir,
		mode:   modeFromEnv(),
		ttl:    defaultDevTTL,
		logger: noopLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Path returns the cache file for the active mode.
func (c *RouteCache) Path() string {
	name := "routes.prod.cache"
	if c.mode == DevelopmentMode {
		name = "routes.dev.cache"
	}
	return filepath.Join(c.dir, name)
}

// Load reads the artifact for the active mode. It returns (nil, nil) on any
// cache miss: no file, a stale development file, or a file that fails to
// decode. Stale and undecodable files are deleted so the next Save starts
// clean. Only real I/O failures surface as errors.
func (c *RouteCache) Load() (*compiler.Artifact, error) {
	path := c.Path()
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("route cache: stat %s: %w", path, err)
	}

	if c.mode == DevelopmentMode && c.stale(info) {
		c.logger.Debug("route cache stale, discarding", "path", path)
		_ = os.Remove(path)
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("route cache: read %s: %w", path, err)
	}
	art, err := compiler.Decode(data)
	if err != nil {
		c.logger.Warn("route cache unreadable, discarding", "path", path, "error", err)
		_ = os.Remove(path)
		return nil, nil
	}
	return art, nil
}

// stale reports whether a development cache file has outlived its TTL or
// predates any watched source file.
func (c *RouteCache) stale(info fs.FileInfo) bool {
	if time.Since(info.ModTime()) > c.ttl {
		return true
	}
	for _, src := range c.sources {
		si, err := os.Stat(src)
		if err != nil {
			continue
		}
		if si.ModTime().After(info.ModTime()) {
			return true
		}
	}
	return false
}

// Save atomically persists the artifact for the active mode: the bytes land
// in a temp file in the cache directory and replace the live file by rename,
// so concurrent Loads never observe a partial write.
func (c *RouteCache) Save(art *compiler.Artifact) error {
	data, err := art.Encode()
	if err != nil {
		return fmt.Errorf("route cache: encode: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		return fmt.Errorf("route cache: mkdir %s: %w", c.dir, err)
	}

	tmp, err := os.CreateTemp(c.dir, "routes.*.tmp")
	if err != nil {
		return fmt.Errorf("route cache: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("route cache: write: %w", err)
	}
	if err := tmp.Chmod(cacheFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("route cache: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("route cache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path()); err != nil {
		return fmt.Errorf("route cache: rename: %w", err)
	}
	c.logger.Debug("route cache saved", "path", c.Path(), "routes", art.RouteCount())
	if c.warmHook != nil {
		c.warmHook(art)
	}
	return nil
}

// Clear removes the cache files for both modes. Missing files are not an
// error.
func (c *RouteCache) Clear() error {
	for _, name := range []string{"routes.dev.cache", "routes.prod.cache"} {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("route cache: remove %s: %w", name, err)
		}
	}
	return nil
}

// Watch starts a filesystem watcher over the registered source files and
// invokes onChange whenever one of them is written, removed, or renamed.
// Development workflows use it to rebuild the cache on manifest edits. The
// watcher goroutine stops when Close is called.
func (c *RouteCache) Watch(onChange func(path string)) error {
	if len(c.sources) == 0 {
		return fmt.Errorf("route cache: no sources registered to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("route cache: watcher: %w", err)
	}
	for _, src := range c.sources {
		if err := w.Add(src); err != nil {
			w.Close()
			return fmt.Errorf("route cache: watch %s: %w", src, err)
		}
	}
	c.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
					c.logger.Debug("route source changed", "path", ev.Name, "op", ev.Op.String())
					onChange(ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Warn("route cache watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the source watcher, if one is running.
func (c *RouteCache) Close() error {
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}
