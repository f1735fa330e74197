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
	"regexp"
	"strings"
)

// defaultParamPattern matches one or more non-slash characters. It is the
// constraint applied to a {param} placeholder when no explicit constraint is
// declared via Where().
const defaultParamPattern = `[^/]+`

// placeholderRe extracts {name} placeholders from a path template.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// pattern is the compiled matching form of a dynamic route path: an anchored
// regular expression with one capture group per placeholder, plus the
// placeholder names in left-to-right path order. Constraints may carry their
// own capture groups, so each parameter records the index of its enclosing
// group rather than assuming a one-to-one submatch layout.
type pattern struct {
	re         *regexp.Regexp
	paramNames []string
	groupIdx   []int // submatch index of each parameter's capture group
}

// compilePattern converts a path template with {param} placeholders into a
// pattern. Constraints are validated individually before being embedded so
// that a broken constraint is reported against its parameter, not as an
// opaque failure of the combined expression.
//
// The compiled expression is anchored at both ends and all literal path text
// is meta-quoted, so templates containing regex metacharacters match
// themselves literally.
func compilePattern(path string, constraints map[string]string) (*pattern, error) {
	locs := placeholderRe.FindAllStringSubmatchIndex(path, -1)

	var sb strings.Builder
	sb.Grow(len(path) + 16)
	sb.WriteString("^")

	names := make([]string, 0, len(locs))
	groupIdx := make([]int, 0, len(locs))
	nextGroup := 1
	last := 0
	for _, loc := range locs {
		sb.WriteString(regexp.QuoteMeta(path[last:loc[0]]))
		name := path[loc[2]:loc[3]]

		for _, seen := range names {
			if seen == name {
				return nil, fmt.Errorf("%w: duplicate parameter {%s} in %q", ErrInvalidPath, name, path)
			}
		}
		names = append(names, name)

		sub := defaultParamPattern
		nsub := 0
		if c, ok := constraints[name]; ok && c != "" {
			cre, err := regexp.Compile(c)
			if err != nil {
				return nil, fmt.Errorf("%w: parameter %q pattern %q: %v", ErrInvalidConstraint, name, c, err)
			}
			sub = c
			nsub = cre.NumSubexp()
		}
		// The parameter's group opens before any group the constraint itself
		// declares, so the constraint's own groups occupy the next nsub
		// submatch slots.
		groupIdx = append(groupIdx, nextGroup)
		nextGroup += 1 + nsub
		sb.WriteString("(")
		sb.WriteString(sub)
		sb.WriteString(")")
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(path[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		// Individually valid constraints can still break the combined
		// expression (for example an unbalanced group).
		return nil, fmt.Errorf("%w: path %q: %v", ErrInvalidConstraint, path, err)
	}

	return &pattern{re: re, paramNames: names, groupIdx: groupIdx}, nil
}

// match tests a normalized request path against the compiled pattern.
// It returns the captured parameter values in declaration order, or false
// when the path does not satisfy the pattern. A matched pattern with zero
// placeholders yields an empty, non-nil slice. Values are read by each
// parameter's recorded group index, never by raw submatch position.
func (p *pattern) match(path string) ([]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	values := make([]string, len(p.paramNames))
	for i, gi := range p.groupIdx {
		values[i] = m[gi]
	}
	return values, true
}

// paramMap pairs the pattern's parameter names with captured values. match
// always yields one value per name, so the lengths agree by construction.
func (p *pattern) paramMap(values []string) map[string]string {
	params := make(map[string]string, len(p.paramNames))
	for i, name := range p.paramNames {
		params[name] = values[i]
	}
	return params
}

// isStaticPath reports whether a path template contains no placeholders.
func isStaticPath(path string) bool {
	return !strings.Contains(path, "{")
}

// firstSegment returns the first path segment of a template or request path,
// without the leading slash. The root path yields an empty segment.
func firstSegment(path string) string {
	if len(path) <= 1 {
		return ""
	}
	rest := path[1:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// specificity scores a route path for dynamic candidate ordering: each
// literal segment counts, placeholder segments do not. A higher score matches
// before a lower one, so /a/b/c beats /a/{x}/c beats /a/{x}/{y} regardless of
// registration order.
func specificity(path string) int {
	score := 0
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if seg != "" && !strings.Contains(seg, "{") {
			score++
		}
	}
	return score
}
