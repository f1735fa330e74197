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
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeforge.dev/router/compiler"
)

func listUsersHandler(c *Context) {
	c.String(http.StatusOK, "users")
}

func newCacheTestRouter(t *testing.T) *Router {
	t.Helper()
	reg := NewRegistry()
	reg.Register("UserController", &userController{store: &userStore{names: map[int64]string{42: "ada"}}})
	reg.Register("ping", pingService{})

	r := MustNew(WithContainer(reg))
	r.RegisterHandler("users.list", listUsersHandler)
	r.GET("/users", listUsersHandler).Name("users.index")
	r.GET("/users/{id}", "UserController.Show").Where("id", `\d+`).Name("users.show")
	r.POST("/ping", Invokable{Service: "ping"}).Middleware("throttle:10")
	return r
}

func TestCompileArtifact(t *testing.T) {
	t.Parallel()

	r := newCacheTestRouter(t)
	art := r.CompileArtifact()

	assert.Equal(t, compiler.ArtifactVersion, art.Version)
	assert.Equal(t, 3, art.RouteCount())

	static, ok := art.Static["GET:/users"]
	require.True(t, ok)
	assert.Equal(t, compiler.KindFunc, static.Handler.Kind)
	assert.Equal(t, "users.list", static.Handler.FuncName, "registry alias replaces the symbol name")
	assert.True(t, static.Handler.Reconstructible)
	assert.Equal(t, "users.index", static.Name)

	dyn := art.Dynamic["GET"]
	require.Len(t, dyn, 1)
	assert.Equal(t, compiler.KindBound, dyn[0].Handler.Kind)
	assert.Equal(t, "UserController", dyn[0].Handler.Controller)
	assert.Equal(t, []string{"id"}, dyn[0].ParamNames)
	assert.Equal(t, map[string]string{"id": `\d+`}, dyn[0].Constraints)

	post := art.Dynamic["POST"]
	require.Len(t, post, 1)
	assert.Equal(t, compiler.KindInvokable, post[0].Handler.Kind)
	assert.Equal(t, []string{"throttle:10"}, post[0].Middleware)
}

func TestValidateForCaching(t *testing.T) {
	t.Parallel()

	t.Run("clean tables validate clean", func(t *testing.T) {
		t.Parallel()
		r := newCacheTestRouter(t)
		assert.Empty(t, r.ValidateForCaching())
	})

	t.Run("closures warn", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		r.GET("/anon", func(c *Context) {})

		issues := r.ValidateForCaching()
		require.Len(t, issues, 1)
		assert.Equal(t, compiler.SeverityWarning, issues[0].Severity)
		assert.Empty(t, compiler.Errors(issues))
	})

	t.Run("dangling controller reference errors", func(t *testing.T) {
		t.Parallel()
		r := MustNew(WithContainer(NewRegistry()))
		r.GET("/ghost", "GhostController.Show")

		issues := r.ValidateForCaching()
		require.Len(t, issues, 1)
		assert.Equal(t, compiler.SeverityError, issues[0].Severity)
	})

	t.Run("bound method missing on the controller errors", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		reg.Register("UserController", &userController{})
		r := MustNew(WithContainer(reg))
		r.GET("/users", "UserController.Nope")

		issues := r.ValidateForCaching()
		require.Len(t, issues, 1)
		assert.Equal(t, compiler.SeverityError, issues[0].Severity)
		assert.Contains(t, issues[0].Message, "Nope")
	})
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache, err := NewRouteCache(dir, WithCacheMode(ProductionMode))
	require.NoError(t, err)

	source := newCacheTestRouter(t)
	require.NoError(t, cache.Save(source.CompileArtifact()))

	art, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, art)

	// The hydrating router needs the same container and handler registry.
	hydrated := newCacheTestRouter(t)
	fresh := MustNew(WithContainer(hydrated.container))
	fresh.RegisterHandler("users.list", listUsersHandler)
	require.NoError(t, fresh.Hydrate(art))

	// Matching is equivalent to the freshly registered tables.
	for _, probe := range []struct{ method, path string }{
		{"GET", "/users"},
		{"GET", "/users/42"},
		{"POST", "/ping"},
	} {
		want := source.Match(probe.method, probe.path)
		got := fresh.Match(probe.method, probe.path)
		require.NotNil(t, got.Route, "%s %s", probe.method, probe.path)
		assert.Equal(t, want.Route.Path(), got.Route.Path())
		assert.Equal(t, want.Params, got.Params)
	}

	// Constraints survive.
	assert.Nil(t, fresh.Match("GET", "/users/abc").Route)

	// Names survive and reverse routing works.
	u, err := fresh.URLFor("users.show", map[string]string{"id": "42"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/users/42", u)

	// Dispatch through a hydrated route works end to end.
	rec := doRequest(fresh, http.MethodGet, "/users/42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user ada", rec.Body.String())
}

func TestHydrateRejectsUnreconstructible(t *testing.T) {
	t.Parallel()

	source := MustNew()
	source.RegisterHandler("known", listUsersHandler)
	source.GET("/known", listUsersHandler)
	art := source.CompileArtifact()

	// A router without the registry entry cannot rebuild the route.
	fresh := MustNew()
	err := fresh.Hydrate(art)
	assert.ErrorIs(t, err, ErrHandlerNotReconstructible)
}

func TestCacheStaleness(t *testing.T) {
	t.Parallel()

	t.Run("development cache expires after its TTL", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cache, err := NewRouteCache(dir,
			WithCacheMode(DevelopmentMode),
			WithCacheTTL(time.Millisecond),
		)
		require.NoError(t, err)
		require.NoError(t, cache.Save(compiler.NewArtifact()))

		time.Sleep(10 * time.Millisecond)

		art, err := cache.Load()
		require.NoError(t, err)
		assert.Nil(t, art, "expired cache is a miss")
		_, statErr := os.Stat(cache.Path())
		assert.True(t, os.IsNotExist(statErr), "stale file is deleted")
	})

	t.Run("development cache invalidated by a newer source file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		src := filepath.Join(dir, "api.routes.yaml")

		cache, err := NewRouteCache(dir,
			WithCacheMode(DevelopmentMode),
			WithCacheTTL(time.Hour),
			WithCacheSources(src),
		)
		require.NoError(t, err)
		require.NoError(t, cache.Save(compiler.NewArtifact()))

		// Touch the source after the save with a future mtime so the
		// comparison does not depend on filesystem timestamp resolution.
		require.NoError(t, os.WriteFile(src, []byte("routes: []\n"), 0o600))
		future := time.Now().Add(time.Minute)
		require.NoError(t, os.Chtimes(src, future, future))

		art, err := cache.Load()
		require.NoError(t, err)
		assert.Nil(t, art)
	})

	t.Run("production cache ignores the TTL", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cache, err := NewRouteCache(dir,
			WithCacheMode(ProductionMode),
			WithCacheTTL(time.Millisecond),
		)
		require.NoError(t, err)
		require.NoError(t, cache.Save(compiler.NewArtifact()))

		time.Sleep(10 * time.Millisecond)

		art, err := cache.Load()
		require.NoError(t, err)
		assert.NotNil(t, art)
	})
}

func TestCacheRobustness(t *testing.T) {
	t.Parallel()

	t.Run("missing file is a miss", func(t *testing.T) {
		t.Parallel()
		cache, err := NewRouteCache(t.TempDir())
		require.NoError(t, err)
		art, err := cache.Load()
		require.NoError(t, err)
		assert.Nil(t, art)
	})

	t.Run("corrupt file is a miss and is deleted", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cache, err := NewRouteCache(dir, WithCacheMode(ProductionMode))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cache.Path(), []byte("garbage"), 0o600))

		art, err := cache.Load()
		require.NoError(t, err)
		assert.Nil(t, art)
		_, statErr := os.Stat(cache.Path())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("version mismatch is a miss", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cache, err := NewRouteCache(dir, WithCacheMode(ProductionMode))
		require.NoError(t, err)

		art := compiler.NewArtifact()
		art.Version = compiler.ArtifactVersion + 1
		data, err := art.Encode()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cache.Path(), data, 0o600))

		loaded, err := cache.Load()
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("modes are partitioned", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		dev, err := NewRouteCache(dir, WithCacheMode(DevelopmentMode), WithCacheTTL(time.Hour))
		require.NoError(t, err)
		prod, err := NewRouteCache(dir, WithCacheMode(ProductionMode))
		require.NoError(t, err)

		require.NoError(t, prod.Save(compiler.NewArtifact()))

		art, err := dev.Load()
		require.NoError(t, err)
		assert.Nil(t, art, "development never reads the production artifact")
		assert.NotEqual(t, dev.Path(), prod.Path())
	})

	t.Run("clear removes both modes", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		dev, err := NewRouteCache(dir, WithCacheMode(DevelopmentMode))
		require.NoError(t, err)
		prod, err := NewRouteCache(dir, WithCacheMode(ProductionMode))
		require.NoError(t, err)
		require.NoError(t, dev.Save(compiler.NewArtifact()))
		require.NoError(t, prod.Save(compiler.NewArtifact()))

		require.NoError(t, prod.Clear())
		_, err = os.Stat(dev.Path())
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(prod.Path())
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCacheWarmHook(t *testing.T) {
	t.Parallel()

	var warmed *compiler.Artifact
	cache, err := NewRouteCache(t.TempDir(),
		WithCacheMode(ProductionMode),
		WithCacheWarmHook(func(a *compiler.Artifact) { warmed = a }),
	)
	require.NoError(t, err)

	art := newCacheTestRouter(t).CompileArtifact()
	require.NoError(t, cache.Save(art))
	assert.Same(t, art, warmed)
}

func TestArtifactDecodeVersionCheck(t *testing.T) {
	t.Parallel()

	art := compiler.NewArtifact()
	art.Version = compiler.ArtifactVersion + 1
	data, err := art.Encode()
	require.NoError(t, err)

	_, err = compiler.Decode(data)
	assert.ErrorIs(t, err, compiler.ErrVersionMismatch)
}
