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
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/xrash/smetrics"
)

// jaroWinklerSimilarity returns the Jaro-Winkler similarity of a and b in
// [0, 1], using the standard boost threshold and 4-character prefix.
func jaroWinklerSimilarity(a, b string) float64 {
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// levenshteinSimilarity returns normalized Levenshtein similarity: 1 minus
// edit distance over the longer string's length.
func levenshteinSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.Distance(a, b, nil)
	return 1.0 - float64(dist)/float64(maxLen)
}

// tokenJaccardSimilarity splits both names on "-_. @/" and returns the
// Jaccard index of the resulting token sets, catching reordered names like
// "react-dom" vs "dom-react".
func tokenJaccardSimilarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	inter, union := 0, 0
	seen := make(map[string]bool, len(ta)+len(tb))
	for t := range ta {
		seen[t] = true
	}
	for t := range tb {
		seen[t] = true
	}
	union = len(seen)
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune("-_. @/", r)
	}) {
		if t != "" {
			out[t] = true
		}
	}
	return out
}

// soundex computes the classic 4-character Soundex code for name.
func soundex(name string) string {
	upper := strings.ToUpper(name)
	var letters []byte
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if c >= 'A' && c <= 'Z' {
			letters = append(letters, c)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := make([]byte, 0, 4)
	code = append(code, letters[0])
	lastDigit := soundexDigit(letters[0])

	for i := 1; i < len(letters) && len(code) < 4; i++ {
		d := soundexDigit(letters[i])
		if d != '0' && d != lastDigit {
			code = append(code, d)
		}
		if d != '0' {
			lastDigit = d
		}
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

func soundexDigit(c byte) byte {
	switch c {
	case 'B', 'F', 'P', 'V':
		return '1'
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return '2'
	case 'D', 'T':
		return '3'
	case 'L':
		return '4'
	case 'M', 'N':
		return '5'
	case 'R':
		return '6'
	default:
		return '0'
	}
}

// phoneticSimilarity returns 1.0 if the full-name Soundex codes match,
// else a partial per-token phonetic match ratio (catches "color"/"colour").
func phoneticSimilarity(a, b string) float64 {
	sa, sb := soundex(a), soundex(b)
	if sa != "" && sa == sb {
		return 1.0
	}

	ta := splitAlnum(a)
	tb := splitAlnum(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	total := len(ta)
	if len(tb) > total {
		total = len(tb)
	}
	matches := 0
	for _, x := range ta {
		sx := soundex(x)
		if sx == "" {
			continue
		}
		for _, y := range tb {
			if soundex(y) == sx {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(total)
}

func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

// versionSimilarityBoost returns the version-aware boost added to the
// legacy fuzzy string score: exact +0.10, same major.minor +0.07, same
// major +0.04, else 0 (spec §4.E).
func versionSimilarityBoost(va, vb string) float64 {
	if va == "" || vb == "" {
		return 0.0
	}
	if va == vb {
		return 0.10
	}
	pa, okA := parseSemverLoose(va)
	pb, okB := parseSemverLoose(vb)
	if !okA || !okB {
		return 0.0
	}
	if pa.major == pb.major && pa.minor == pb.minor {
		return 0.07
	}
	if pa.major == pb.major {
		return 0.04
	}
	return 0.0
}

type semverParts struct{ major, minor, patch int }

// parseSemverLoose parses "v1.2.3", "1.2.3-rc1", "1.2", "1" into major/
// minor/patch, defaulting missing trailing components to 0.
func parseSemverLoose(v string) (semverParts, bool) {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	// Cut at the first non-numeric-dot separator (pre-release/build).
	for i, r := range v {
		if r != '.' && (r < '0' || r > '9') {
			v = v[:i]
			break
		}
	}
	fields := strings.SplitN(v, ".", 3)
	if len(fields) == 0 || fields[0] == "" {
		return semverParts{}, false
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return semverParts{}, false
	}
	minor, patch := 0, 0
	if len(fields) > 1 && fields[1] != "" {
		minor, _ = strconv.Atoi(fields[1])
	}
	if len(fields) > 2 && fields[2] != "" {
		patch, _ = strconv.Atoi(fields[2])
	}
	return semverParts{major: major, minor: minor, patch: patch}, true
}

// versionDivergenceScore is the graduated version-match score used by
// multi-field scoring (spec §4.E): same major.minor scores
// max(0.8-0.01*|patch diff|, 0.5); same major, diff minor scores
// max(0.5-minorPenalty*|minor diff|, 0.2); diff major scores
// max(0.3-majorPenalty*|major diff|, 0.0).
func versionDivergenceScore(va, vb string, w FieldWeights) float64 {
	switch {
	case va == "" && vb == "":
		return 0.5
	case va == "" || vb == "":
		return 0.0
	case va == vb:
		return 1.0
	}
	pa, okA := parseSemverLoose(va)
	pb, okB := parseSemverLoose(vb)
	if !okA || !okB {
		return partialStringCredit(va, vb)
	}
	if pa.major == pb.major && pa.minor == pb.minor {
		diff := absInt(pa.patch - pb.patch)
		return maxF(0.8-0.01*float64(diff), 0.5)
	}
	if pa.major == pb.major {
		diff := absInt(pa.minor - pb.minor)
		return maxF(0.5-w.VersionMinorPenalty*float64(diff), 0.2)
	}
	diff := absInt(pa.major - pb.major)
	return maxF(0.3-w.VersionMajorPenalty*float64(diff), 0.0)
}

func partialStringCredit(a, b string) float64 {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 || n == 0 {
		return 0.1
	}
	score := float64(n) / float64(maxLen) * 0.5
	return minF(score, 0.4)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
