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

package compiler

import "fmt"

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityWarning marks routes that degrade under caching but do not
	// corrupt the artifact, such as closures that must be re-registered.
	SeverityWarning Severity = "warning"

	// SeverityError marks routes that cannot be reconstructed at all, such
	// as bound handlers whose controller is missing from the container.
	SeverityError Severity = "error"
)

// Issue is a single validation finding tied to a route.
type Issue struct {
	Severity Severity
	Method   string
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", i.Severity, i.Method, i.Path, i.Message)
}

// HandlerChecker reports whether a handler described by metadata can be
// reconstructed. The router supplies a checker that consults its container
// and handler registry.
type HandlerChecker func(meta HandlerMeta) error

// Validate inspects every handler in the artifact and reports findings for
// anything that will not survive a save/load round trip. Closures produce
// warnings; handlers the checker rejects produce errors. A nil checker skips
// reference checks and only flags closures.
func (a *Artifact) Validate(check HandlerChecker) []Issue {
	var issues []Issue

	inspect := func(method, path string, meta HandlerMeta) {
		if meta.Kind == KindClosure {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Method:   method,
				Path:     path,
				Message:  "closure handler cannot be cached; register it under a stable name or use a bound handler",
			})
			return
		}
		if check == nil {
			return
		}
		if err := check(meta); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Method:   method,
				Path:     path,
				Message:  err.Error(),
			})
		}
	}

	for _, entry := range a.Static {
		inspect(entry.Method, entry.Path, entry.Handler)
	}
	for _, entries := range a.Dynamic {
		for _, entry := range entries {
			inspect(entry.Method, entry.Path, entry.Handler)
		}
	}
	return issues
}

// Errors filters issues down to those with SeverityError.
func Errors(issues []Issue) []Issue {
	var errs []Issue
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}
