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

package purl

import "strings"

// Normalize returns an ecosystem-aware canonical form of a PURL string
// suitable for exact-identifier comparison in the matching engine. It is
// idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(raw string) string {
	p, err := FromString(raw)
	if err != nil {
		// Not parseable as a PURL; fall back to a conservative lowercase
		// form so unknown inputs still compare consistently.
		return strings.ToLower(raw)
	}
	return normalizeParsed(p).String()
}

func normalizeParsed(p PackageURL) PackageURL {
	switch strings.ToLower(p.Type) {
	case TypePyPi:
		p.Namespace = strings.ToLower(p.Namespace)
		p.Name = foldPyPI(strings.ToLower(p.Name))
	case TypeNPM:
		p.Namespace = strings.ToLower(p.Namespace)
		p.Name = strings.ToLower(p.Name)
	case TypeCargo:
		p.Namespace = strings.ToLower(p.Namespace)
		p.Name = strings.ReplaceAll(strings.ToLower(p.Name), "-", "_")
	case TypeNuget:
		p.Namespace = strings.ToLower(p.Namespace)
		p.Name = strings.ToLower(p.Name)
	case TypeMaven, TypeGolang:
		// Case-sensitive ecosystems: preserve as-is.
	default:
		p.Namespace = strings.ToLower(p.Namespace)
		p.Name = strings.ToLower(p.Name)
	}
	p.Type = strings.ToLower(p.Type)
	return p
}

// foldPyPI collapses the separators PyPI treats as equivalent ("-", "_",
// ".") onto a single hyphen, per PEP 503 name normalization.
func foldPyPI(name string) string {
	r := strings.NewReplacer("_", "-", ".", "-")
	folded := r.Replace(name)
	for strings.Contains(folded, "--") {
		folded = strings.ReplaceAll(folded, "--", "-")
	}
	return folded
}

// SameIdentity reports whether two PURL strings denote the same logical
// package after ecosystem-aware normalization (ignoring version).
func SameIdentity(a, b string) bool {
	pa, errA := FromString(a)
	pb, errB := FromString(b)
	if errA != nil || errB != nil {
		return strings.ToLower(a) == strings.ToLower(b)
	}
	na, nb := normalizeParsed(pa), normalizeParsed(pb)
	na.Version, nb.Version = "", ""
	return na.String() == nb.String()
}

// EqualNormalized reports whether two PURL strings are identical,
// including version, after ecosystem-aware normalization.
func EqualNormalized(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
