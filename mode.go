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

import "os"

// Mode selects the router's operating environment. The mode partitions the
// route cache (development caches are short-lived and staleness-checked,
// production caches are durable) and relaxes CORS in development when the
// DevelopmentAllowAll escape hatch is enabled.
type Mode string

const (
	// DevelopmentMode enables short cache TTLs and source staleness checks.
	DevelopmentMode Mode = "development"

	// ProductionMode is the default. Caches are durable and must be rebuilt
	// explicitly on deploy.
	ProductionMode Mode = "production"
)

// EnvMode is the environment variable consulted when no explicit mode is
// configured via WithMode.
const EnvMode = "ROUTEFORGE_MODE"

// modeFromEnv reads the operating mode from the environment, defaulting to
// ProductionMode for anything unrecognized.
func modeFromEnv() Mode {
	switch Mode(os.Getenv(EnvMode)) {
	case DevelopmentMode:
		return DevelopmentMode
	case ProductionMode:
		return ProductionMode
	default:
		return ProductionMode
	}
}

// IsDevelopment reports whether the mode is DevelopmentMode.
func (m Mode) IsDevelopment() bool { return m == DevelopmentMode }
