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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(c *Context) {}

func TestRouteFluentAPI(t *testing.T) {
	t.Parallel()

	t.Run("where recompiles the pattern immediately", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		rt := r.GET("/items/{id}", noopHandler).Where("id", `\d+`)

		assert.NotNil(t, rt.Match("/items/42"))
		assert.Nil(t, rt.Match("/items/abc"))
	})

	t.Run("invalid constraint panics at definition time", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		assert.Panics(t, func() {
			r.GET("/items/{id}", noopHandler).Where("id", "(")
		})
	})

	t.Run("duplicate name panics", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		r.GET("/a", noopHandler).Name("dup")
		assert.Panics(t, func() {
			r.GET("/b", noopHandler).Name("dup")
		})
	})
}

func TestRouteMatch(t *testing.T) {
	t.Parallel()

	r := MustNew()
	staticRt := r.GET("/users/me", noopHandler)
	dynRt := r.GET("/users/{id}", noopHandler)

	t.Run("static match yields empty non-nil params", func(t *testing.T) {
		t.Parallel()
		params := staticRt.Match("/users/me")
		require.NotNil(t, params)
		assert.Empty(t, params)
	})

	t.Run("dynamic match captures parameters", func(t *testing.T) {
		t.Parallel()
		params := dynRt.Match("/users/42")
		require.NotNil(t, params)
		assert.Equal(t, map[string]string{"id": "42"}, params)
	})

	t.Run("non-match returns nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, staticRt.Match("/users/you"))
		assert.Nil(t, dynRt.Match("/posts/42"))
	})

	t.Run("request path is normalized before matching", func(t *testing.T) {
		t.Parallel()
		assert.NotNil(t, staticRt.Match("/users/me/"))
		assert.NotNil(t, dynRt.Match("//users/42"))
	})
}

func TestRouteURL(t *testing.T) {
	t.Parallel()

	r := MustNew()
	rt := r.GET("/users/{id}/posts/{slug}", noopHandler).Where("id", `\d+`)

	t.Run("substitutes and escapes parameters", func(t *testing.T) {
		t.Parallel()
		u, err := rt.URL(map[string]string{"id": "42", "slug": "a b"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "/users/42/posts/a%20b", u)
	})

	t.Run("missing parameter fails", func(t *testing.T) {
		t.Parallel()
		_, err := rt.URL(map[string]string{"id": "42"}, nil)
		assert.ErrorIs(t, err, ErrMissingRouteParameter)
	})

	t.Run("constraint violation fails", func(t *testing.T) {
		t.Parallel()
		_, err := rt.URL(map[string]string{"id": "abc", "slug": "x"}, nil)
		assert.ErrorIs(t, err, ErrParameterConstraint)
	})

	t.Run("appends encoded query values", func(t *testing.T) {
		t.Parallel()
		u, err := rt.URL(map[string]string{"id": "1", "slug": "x"}, url.Values{"page": {"2"}})
		require.NoError(t, err)
		assert.Equal(t, "/users/1/posts/x?page=2", u)
	})
}

func TestURLFor(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/users/{id}", noopHandler).Where("id", `\d+`).Name("users.show")

	t.Run("builds from a named route", func(t *testing.T) {
		t.Parallel()
		u, err := r.URLFor("users.show", map[string]string{"id": "42"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "/users/42", u)
	})

	t.Run("unknown name fails", func(t *testing.T) {
		t.Parallel()
		_, err := r.URLFor("nope", nil, nil)
		assert.ErrorIs(t, err, ErrUnknownRouteName)
	})

	t.Run("generated URL round-trips through matching", func(t *testing.T) {
		t.Parallel()
		u, err := r.URLFor("users.show", map[string]string{"id": "7"}, nil)
		require.NoError(t, err)

		res := r.Match("GET", u)
		require.NotNil(t, res.Route)
		assert.Equal(t, "users.show", res.Route.RouteName())
		assert.Equal(t, map[string]string{"id": "7"}, res.Params)
	})

	t.Run("MustURLFor panics on error", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { r.MustURLFor("nope", nil, nil) })
	})
}
