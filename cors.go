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
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin handling for preflight and simple
// requests. It is configuration handed to the router, not core routing
// logic: the router only consults it when answering OPTIONS preflights and
// when stamping Access-Control headers onto matched responses.
type CORSConfig struct {
	// AllowAllOrigins answers every origin with a wildcard. Incompatible
	// with AllowCredentials (browsers reject that combination).
	AllowAllOrigins bool

	// AllowedOrigins lists exact origins, scheme and host included.
	AllowedOrigins []string

	// AllowedOriginPatterns lists regular expressions matched against the
	// Origin header. Invalid patterns are configuration errors raised by New.
	AllowedOriginPatterns []string

	// AllowedHeaders is advertised on preflight responses.
	AllowedHeaders []string

	// ExposedHeaders is advertised on simple-request responses.
	ExposedHeaders []string

	// AllowCredentials advertises Access-Control-Allow-Credentials.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the header.
	MaxAge int

	// DevelopmentAllowAll short-circuits origin validation in development
	// mode. It has no effect in production.
	DevelopmentAllowAll bool
}

// corsRules is the validated, compiled form of CORSConfig.
type corsRules struct {
	cfg      CORSConfig
	patterns []*regexp.Regexp
	allowAll bool
}

func compileCORS(cfg CORSConfig, mode Mode) (*corsRules, error) {
	rules := &corsRules{cfg: cfg}
	for _, p := range cfg.AllowedOriginPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCORSPattern, p, err)
		}
		rules.patterns = append(rules.patterns, re)
	}
	rules.allowAll = cfg.AllowAllOrigins || (cfg.DevelopmentAllowAll && mode.IsDevelopment())
	return rules, nil
}

// originAllowed validates a request origin against the allow-list, the
// compiled patterns, and the allow-all flags.
func (cr *corsRules) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if cr.allowAll {
		return true
	}
	for _, allowed := range cr.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	for _, re := range cr.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// applyPreflight stamps the full preflight header set for an allowed origin
// onto an OPTIONS response.
func (cr *corsRules) applyPreflight(w http.ResponseWriter, origin string, allowedMethods []string) {
	if !cr.originAllowed(origin) {
		return
	}
	h := w.Header()
	cr.setOrigin(h, origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
	if len(cr.cfg.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(cr.cfg.AllowedHeaders, ", "))
	}
	if cr.cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(cr.cfg.MaxAge))
	}
}

// applySimple stamps simple-request headers onto a non-preflight response.
func (cr *corsRules) applySimple(w http.ResponseWriter, origin string) {
	if !cr.originAllowed(origin) {
		return
	}
	h := w.Header()
	cr.setOrigin(h, origin)
	if len(cr.cfg.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(cr.cfg.ExposedHeaders, ", "))
	}
}

func (cr *corsRules) setOrigin(h http.Header, origin string) {
	if cr.allowAll && !cr.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Origin", "*")
		return
	}
	// Credentialed responses must echo the concrete origin and vary on it.
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if cr.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}
