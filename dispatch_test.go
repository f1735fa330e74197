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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(r *Router, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDispatchBasics(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/hello", func(c *Context) {
		c.String(http.StatusOK, "hello")
	})
	r.GET("/users/{id}", func(c *Context) {
		c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	})

	t.Run("static route", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodGet, "/hello", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", rec.Body.String())
	})

	t.Run("dynamic route with parameter", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodGet, "/users/42", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"42"}`, rec.Body.String())
	})

	t.Run("trailing slash is normalized", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodGet, "/hello/", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodGet, "/nowhere", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("known path wrong method is 405 with Allow", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodPost, "/hello", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
	})
}

func TestDispatchHead(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/page", func(c *Context) {
		c.Header("X-Custom", "yes")
		c.String(http.StatusOK, "body text")
	})

	rec := doRequest(r, http.MethodHead, "/page", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String(), "HEAD must not carry a body")
	assert.Equal(t, "yes", rec.Header().Get("X-Custom"))
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestDispatchStreaming(t *testing.T) {
	t.Parallel()

	t.Run("flush reaches the underlying writer", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		r.GET("/events", func(c *Context) {
			c.String(http.StatusOK, "data: ping\n\n")
			flusher, ok := c.Response.(http.Flusher)
			require.True(t, ok, "wrapped writer must support flushing")
			flusher.Flush()
		})

		rec := doRequest(r, http.MethodGet, "/events", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, rec.Flushed, "flush must pass through to the underlying writer")
	})

	t.Run("hijack on a non-hijackable writer", func(t *testing.T) {
		t.Parallel()
		var hijackErr error
		r := MustNew()
		r.GET("/upgrade", func(c *Context) {
			hijacker, ok := c.Response.(http.Hijacker)
			require.True(t, ok, "wrapped writer must expose Hijack")
			_, _, hijackErr = hijacker.Hijack()
			c.Status(http.StatusOK)
		})

		// httptest.ResponseRecorder cannot hand over a connection, so the
		// wrapper reports that instead of panicking.
		doRequest(r, http.MethodGet, "/upgrade", nil)
		assert.ErrorIs(t, hijackErr, ErrResponseWriterNotHijacker)
	})
}

func TestDispatchOptions(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/resource", noopHandler)
	r.POST("/resource", noopHandler)

	t.Run("known path answers 204 with Allow", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodOptions, "/resource", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "GET, HEAD, POST", rec.Header().Get("Allow"))
		assert.Empty(t, rec.Body.String())
	})

	t.Run("unknown path is 404", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(r, http.MethodOptions, "/nowhere", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDispatchCORS(t *testing.T) {
	t.Parallel()

	t.Run("preflight for an allowed origin", func(t *testing.T) {
		t.Parallel()
		r := MustNew(WithCORS(CORSConfig{
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedHeaders: []string{"Authorization"},
			MaxAge:         600,
		}))
		r.GET("/data", noopHandler)

		rec := doRequest(r, http.MethodOptions, "/data", http.Header{
			"Origin": {"https://app.example.com"},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, HEAD", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		t.Parallel()
		r := MustNew(WithCORS(CORSConfig{
			AllowedOrigins: []string{"https://app.example.com"},
		}))
		r.GET("/data", noopHandler)

		rec := doRequest(r, http.MethodOptions, "/data", http.Header{
			"Origin": {"https://evil.example.com"},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("simple request gets origin and exposed headers", func(t *testing.T) {
		t.Parallel()
		r := MustNew(WithCORS(CORSConfig{
			AllowedOrigins: []string{"https://app.example.com"},
			ExposedHeaders: []string{"X-Total-Count"},
		}))
		r.GET("/data", func(c *Context) { c.String(http.StatusOK, "ok") })

		rec := doRequest(r, http.MethodGet, "/data", http.Header{
			"Origin": {"https://app.example.com"},
		})
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Total-Count", rec.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("development allow-all answers any origin", func(t *testing.T) {
		t.Parallel()
		r := MustNew(
			WithMode(DevelopmentMode),
			WithCORS(CORSConfig{DevelopmentAllowAll: true}),
		)
		r.GET("/data", func(c *Context) { c.String(http.StatusOK, "ok") })

		rec := doRequest(r, http.MethodGet, "/data", http.Header{
			"Origin": {"http://localhost:3000"},
		})
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("development allow-all is inert in production", func(t *testing.T) {
		t.Parallel()
		r := MustNew(
			WithMode(ProductionMode),
			WithCORS(CORSConfig{DevelopmentAllowAll: true}),
		)
		r.GET("/data", func(c *Context) { c.String(http.StatusOK, "ok") })

		rec := doRequest(r, http.MethodGet, "/data", http.Header{
			"Origin": {"http://localhost:3000"},
		})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("invalid origin pattern fails construction", func(t *testing.T) {
		t.Parallel()
		_, err := New(WithCORS(CORSConfig{AllowedOriginPatterns: []string{"("}}))
		assert.ErrorIs(t, err, ErrInvalidCORSPattern)
	})
}

func TestDispatchMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("global, group, and route middleware run outer to inner", func(t *testing.T) {
		t.Parallel()
		var order []string
		tag := func(name string) HandlerFunc {
			return func(c *Context) {
				order = append(order, name+":before")
				c.Next()
				order = append(order, name+":after")
			}
		}

		r := MustNew()
		r.Use(tag("global"))
		g := r.Group("/api", tag("group"))
		g.GET("/thing", func(c *Context) {
			order = append(order, "handler")
		}).Middleware(tag("route"))

		rec := doRequest(r, http.MethodGet, "/api/thing", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{
			"global:before", "group:before", "route:before",
			"handler",
			"route:after", "group:after", "global:after",
		}, order)
	})

	t.Run("named middleware receives its arguments", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		var got []string
		require.NoError(t, r.RegisterMiddleware("roles", func(args ...string) HandlerFunc {
			return func(c *Context) {
				got = args
				c.Next()
			}
		}))
		r.GET("/admin", noopHandler).Middleware("roles:admin,editor")

		doRequest(r, http.MethodGet, "/admin", nil)
		assert.Equal(t, []string{"admin", "editor"}, got)
	})

	t.Run("duplicate middleware name is rejected", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		require.NoError(t, r.RegisterMiddleware("once", func(args ...string) HandlerFunc { return noopHandler }))
		err := r.RegisterMiddleware("once", func(args ...string) HandlerFunc { return noopHandler })
		assert.ErrorIs(t, err, ErrDuplicateMiddleware)
	})

	t.Run("unknown middleware reference becomes a 500", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		r.GET("/broken", noopHandler).Middleware("ghost")

		rec := doRequest(r, http.MethodGet, "/broken", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("abort short-circuits the chain", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		reached := false
		r.Use(func(c *Context) {
			c.String(http.StatusForbidden, "denied")
			c.Abort()
		})
		r.GET("/secret", func(c *Context) { reached = true })

		rec := doRequest(r, http.MethodGet, "/secret", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, reached)
	})
}

func TestDispatchErrorHandling(t *testing.T) {
	t.Parallel()

	t.Run("recorded errors reach the error handler", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("boom")
		var seen error
		r := MustNew(WithErrorHandler(func(c *Context, err error) {
			seen = err
			c.Status(http.StatusBadGateway)
		}))
		r.GET("/fail", func(c *Context) {
			c.Error(sentinel)
		})

		rec := doRequest(r, http.MethodGet, "/fail", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.ErrorIs(t, seen, sentinel)
	})

	t.Run("default error handler answers 500 when nothing was written", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		r.GET("/fail", func(c *Context) {
			c.Error(errors.New("boom"))
		})

		rec := doRequest(r, http.MethodGet, "/fail", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("written responses are not clobbered by the error handler", func(t *testing.T) {
		t.Parallel()
		r := MustNew()
		r.GET("/partial", func(c *Context) {
			c.String(http.StatusTeapot, "already sent")
			c.Error(errors.New("late failure"))
		})

		rec := doRequest(r, http.MethodGet, "/partial", nil)
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "already sent", rec.Body.String())
	})
}

func TestWarmupPrebuildsPipelines(t *testing.T) {
	t.Parallel()

	r := MustNew()
	rt := r.GET("/warm", noopHandler)
	r.Warmup()

	_, ok := r.pipelines.Load(rt)
	assert.True(t, ok)

	rec := doRequest(r, http.MethodGet, "/warm", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
