// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package match

import (
	"strings"

	"github.com/sbomlens/sbomlens/model"
)

// ecosystemNormalizer rewrites a package name within one ecosystem into a
// canonical form before the ecosystem-rule tier compares it, e.g. Maven's
// javax.* to jakarta.* migration or npm's scope-less aliasing.
type ecosystemNormalizer func(name string) string

// EcosystemRules holds one normalizer per ecosystem for the third matching
// tier (spec §4.E). Ecosystems with no registered normalizer fall through to
// a case-folding default.
type EcosystemRules struct {
	normalizers map[string]ecosystemNormalizer
}

// DefaultEcosystemRules returns the built-in rule set covering the
// migrations and aliasing conventions observed across the major package
// ecosystems.
func DefaultEcosystemRules() *EcosystemRules {
	return &EcosystemRules{
		normalizers: map[string]ecosystemNormalizer{
			model.EcosystemMaven.String(): normalizeMaven,
			model.EcosystemNpm.String():   normalizeNpm,
			model.EcosystemPyPI.String():  normalizePyPI,
			model.EcosystemGo.String():    normalizeGoModule,
		},
	}
}

// NormalizeName applies the ecosystem-specific normalizer for eco, or a
// lowercase fold when none is registered.
func (r *EcosystemRules) NormalizeName(name string, eco model.Ecosystem) string {
	if r != nil {
		if fn, ok := r.normalizers[eco.String()]; ok {
			return fn(name)
		}
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// javaxToJakartaPrefixes is the set of namespace prefixes Jakarta EE renamed
// away from javax.* starting with the 9.0 specification release.
var javaxToJakartaPrefixes = []string{
	"javax.servlet", "javax.persistence", "javax.validation",
	"javax.ws.rs", "javax.inject", "javax.annotation",
	"javax.xml.bind", "javax.json", "javax.enterprise",
}

// normalizeMaven folds a javax.* artifact group onto its jakarta.*
// successor so the two are treated as the same logical package across the
// EE9 rename, and lowercases the remainder for comparison.
func normalizeMaven(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range javaxToJakartaPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "jakarta" + strings.TrimPrefix(lower, "javax")
		}
	}
	return lower
}

// normalizeNpm lowercases and strips a leading "@scope/" prefix, so
// "@babel/core" normalizes to "core"; an unscoped "babel-core" stays
// "babel-core" and does not compare equal to it.
func normalizeNpm(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if idx := strings.Index(lower, "/"); idx >= 0 && strings.HasPrefix(lower, "@") {
		lower = lower[idx+1:]
	}
	return lower
}

// normalizePyPI applies PEP 503 name normalization: runs of -, _, . fold to
// a single -, then lowercases.
func normalizePyPI(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == '.' {
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
			continue
		}
		b.WriteRune(r)
		lastDash = false
	}
	return b.String()
}

// normalizeGoModule strips a major-version suffix path element (e.g.
// "/v2") so major-version bumps of the same module still compare equal at
// this tier; case is preserved per Go module path semantics.
func normalizeGoModule(name string) string {
	trimmed := strings.TrimSpace(name)
	parts := strings.Split(trimmed, "/")
	if n := len(parts); n > 1 {
		last := parts[n-1]
		if len(last) >= 2 && last[0] == 'v' {
			if _, err := parseMajor(last[1:]); err == nil {
				return strings.Join(parts[:n-1], "/")
			}
		}
	}
	return trimmed
}

func parseMajor(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errEmptyMajor
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errEmptyMajor
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

var errEmptyMajor = &majorParseError{}

type majorParseError struct{}

func (*majorParseError) Error() string { return "not a version suffix" }
