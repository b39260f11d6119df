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

// Package license parses SPDX-family license expressions and classifies
// them into the coarse risk families the matching and diff engines reason
// about (spec §3, LicenseExpression).
package license

import (
	"strings"

	"github.com/sbomlens/sbomlens/model"
)

// familyOf is a curated table of common SPDX license identifiers to their
// risk family. It is intentionally not exhaustive: anything absent is
// treated as Unknown rather than guessed.
var familyOf = map[string]model.LicenseFamily{
	"MIT":               model.LicenseFamilyPermissive,
	"MIT-0":             model.LicenseFamilyPermissive,
	"ISC":               model.LicenseFamilyPermissive,
	"BSD-2-Clause":      model.LicenseFamilyPermissive,
	"BSD-3-Clause":      model.LicenseFamilyPermissive,
	"BSD-3-Clause-Clear": model.LicenseFamilyPermissive,
	"Apache-2.0":        model.LicenseFamilyPermissive,
	"Apache-1.1":        model.LicenseFamilyPermissive,
	"Zlib":              model.LicenseFamilyPermissive,
	"BSL-1.0":           model.LicenseFamilyPermissive,
	"PostgreSQL":        model.LicenseFamilyPermissive,
	"Python-2.0":        model.LicenseFamilyPermissive,
	"PHP-3.01":          model.LicenseFamilyPermissive,
	"X11":               model.LicenseFamilyPermissive,

	"0BSD":        model.LicenseFamilyPublicDomain,
	"Unlicense":   model.LicenseFamilyPublicDomain,
	"CC0-1.0":     model.LicenseFamilyPublicDomain,
	"WTFPL":       model.LicenseFamilyPublicDomain,

	"GPL-1.0-only":     model.LicenseFamilyCopyleft,
	"GPL-1.0-or-later":  model.LicenseFamilyCopyleft,
	"GPL-2.0-only":     model.LicenseFamilyCopyleft,
	"GPL-2.0-or-later":  model.LicenseFamilyCopyleft,
	"GPL-3.0-only":     model.LicenseFamilyCopyleft,
	"GPL-3.0-or-later":  model.LicenseFamilyCopyleft,
	"AGPL-1.0-only":    model.LicenseFamilyCopyleft,
	"AGPL-3.0-only":    model.LicenseFamilyCopyleft,
	"AGPL-3.0-or-later": model.LicenseFamilyCopyleft,
	"CC-BY-SA-4.0":     model.LicenseFamilyCopyleft,

	"LGPL-2.0-only":     model.LicenseFamilyWeakCopyleft,
	"LGPL-2.1-only":     model.LicenseFamilyWeakCopyleft,
	"LGPL-2.1-or-later": model.LicenseFamilyWeakCopyleft,
	"LGPL-3.0-only":     model.LicenseFamilyWeakCopyleft,
	"LGPL-3.0-or-later": model.LicenseFamilyWeakCopyleft,
	"MPL-1.1":           model.LicenseFamilyWeakCopyleft,
	"MPL-2.0":           model.LicenseFamilyWeakCopyleft,
	"EPL-1.0":           model.LicenseFamilyWeakCopyleft,
	"EPL-2.0":           model.LicenseFamilyWeakCopyleft,
	"CDDL-1.0":          model.LicenseFamilyWeakCopyleft,
	"CDDL-1.1":          model.LicenseFamilyWeakCopyleft,
}

// invalidExpressions are the well-known placeholder values that SPDX/
// CycloneDX use to indicate "no claim made", per spec §3.
var invalidExpressions = map[string]bool{
	"NOASSERTION": true,
	"NONE":        true,
	"":            true,
}

// node is the parsed form of an SPDX boolean license expression, supporting
// the subset of the grammar actually seen in the wild: A, A OR B, A AND B,
// and parenthesized combinations thereof. It does not parse WITH exception
// clauses into a separate field; they are kept as part of the leaf text.
type node struct {
	leaf     string // set when this is a single license id (op == "")
	op       string // "OR", "AND", or ""
	children []node
}

// Parse classifies a raw license string into a model.LicenseExpression,
// per §3: NOASSERTION/NONE/empty are invalid; OR resolves to the
// most-permissive branch; AND resolves to the most-restrictive branch.
func Parse(text string) model.LicenseExpression {
	trimmed := strings.TrimSpace(text)
	if invalidExpressions[trimmed] {
		return model.LicenseExpression{Text: text, IsValidSpdx: false, Family: model.LicenseFamilyUnknown}
	}

	n, validLeaves, totalLeaves := parseExpr(trimmed)
	family := familyOfNode(n)
	return model.LicenseExpression{
		Text:        text,
		IsValidSpdx: totalLeaves > 0 && validLeaves == totalLeaves,
		Family:      family,
	}
}

// permissiveRank orders families from least to most restrictive for the
// purposes of picking the "most permissive" OR-branch and the "most
// restrictive" AND-branch.
var permissiveRank = map[model.LicenseFamily]int{
	model.LicenseFamilyPublicDomain: 0,
	model.LicenseFamilyPermissive:   1,
	model.LicenseFamilyUnknown:      2,
	model.LicenseFamilyWeakCopyleft: 3,
	model.LicenseFamilyProprietary:  4,
	model.LicenseFamilyCopyleft:     5,
}

func familyOfNode(n node) model.LicenseFamily {
	if n.op == "" {
		if f, ok := familyOf[n.leaf]; ok {
			return f
		}
		return model.LicenseFamilyUnknown
	}

	families := make([]model.LicenseFamily, 0, len(n.children))
	for _, c := range n.children {
		families = append(families, familyOfNode(c))
	}
	if len(families) == 0 {
		return model.LicenseFamilyUnknown
	}

	best := families[0]
	for _, f := range families[1:] {
		switch n.op {
		case "OR":
			// Most permissive branch wins: lowest rank.
			if permissiveRank[f] < permissiveRank[best] {
				best = f
			}
		case "AND":
			// Most restrictive branch wins: highest rank.
			if permissiveRank[f] > permissiveRank[best] {
				best = f
			}
		}
	}
	return best
}

// parseExpr is a small recursive-descent parser for "A", "A OR B", "A AND
// B", and parenthesized groups, splitting only on the top-level operator so
// nested groups are handled correctly. It also returns how many leaves were
// recognized as valid SPDX ids, to decide overall validity.
func parseExpr(s string) (n node, validLeaves, totalLeaves int) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && balanced(s[1:len(s)-1]) {
		return parseExpr(s[1 : len(s)-1])
	}

	if parts, ok := splitTopLevel(s, " OR "); ok {
		return combine("OR", parts)
	}
	if parts, ok := splitTopLevel(s, " AND "); ok {
		return combine("AND", parts)
	}

	leaf := strings.TrimSpace(s)
	// Strip a trailing "WITH <exception>" clause for classification purposes.
	if i := strings.Index(leaf, " WITH "); i >= 0 {
		leaf = leaf[:i]
	}
	totalLeaves = 1
	if _, ok := familyOf[leaf]; ok {
		validLeaves = 1
	} else if looksLikeSpdxID(leaf) {
		// Recognized shape but not in our curated table: still a
		// syntactically valid SPDX identifier, just an Unknown family.
		validLeaves = 1
	}
	return node{leaf: leaf}, validLeaves, totalLeaves
}

func combine(op string, parts []string) (node, int, int) {
	n := node{op: op}
	validLeaves, totalLeaves := 0, 0
	for _, p := range parts {
		child, v, t := parseExpr(p)
		n.children = append(n.children, child)
		validLeaves += v
		totalLeaves += t
	}
	return n, validLeaves, totalLeaves
}

// splitTopLevel splits s on sep only where parenthesis depth is zero.
func splitTopLevel(s, sep string) ([]string, bool) {
	depth := 0
	var parts []string
	last := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && s[i:i+len(sep)] == sep {
			parts = append(parts, s[last:i])
			last = i + len(sep)
			i += len(sep) - 1
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	parts = append(parts, s[last:])
	return parts, true
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			return false
		}
	}
	return depth == 0
}

// looksLikeSpdxID is a conservative shape check (letters, digits, '.', '-',
// '+') used only to decide validity when the identifier isn't in our
// curated family table.
func looksLikeSpdxID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '+') {
			return false
		}
	}
	return true
}
