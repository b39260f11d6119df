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

// Package sbomerr defines the closed error taxonomy shared across the
// parsing, matching, diffing, reporting, and enrichment subsystems (spec
// §7). A single top-level Error wraps five families, each with its own
// closed Kind enum, plus flat IO/Validation/Config variants.
package sbomerr

import "fmt"

// Family is the closed set of error families.
type Family int

// Family values.
const (
	FamilyParse Family = iota
	FamilyDiff
	FamilyReport
	FamilyMatching
	FamilyEnrichment
	FamilyIO
	FamilyValidation
	FamilyConfig
)

func (f Family) String() string {
	switch f {
	case FamilyParse:
		return "Parse"
	case FamilyDiff:
		return "Diff"
	case FamilyReport:
		return "Report"
	case FamilyMatching:
		return "Matching"
	case FamilyEnrichment:
		return "Enrichment"
	case FamilyIO:
		return "IO"
	case FamilyValidation:
		return "Validation"
	default:
		return "Config"
	}
}

// ParseKind is the closed taxonomy of parser failures (spec §4.B).
type ParseKind int

// ParseKind values.
const (
	ParseUnknownFormat ParseKind = iota
	ParseUnsupportedVersion
	ParseInvalidJSON
	ParseInvalidXML
	ParseMissingField
	ParseInvalidValue
	ParseInvalidPurl
	ParseDialectSpecific
	ParseFileTooLarge
)

// MatchingKind is the closed taxonomy of matching-engine failures.
type MatchingKind int

// MatchingKind values.
const (
	MatchingRuleCompileError MatchingKind = iota
	MatchingInvalidConfig
)

// DiffKind is the closed taxonomy of diff-engine failures.
type DiffKind int

// DiffKind values.
const (
	DiffInvalidInput DiffKind = iota
	DiffInvalidClusterThreshold
)

// EnrichmentKind is the closed taxonomy of enrichment failures (spec §4.H).
type EnrichmentKind int

// EnrichmentKind values.
const (
	EnrichmentAPIError EnrichmentKind = iota
	EnrichmentRateLimitExceeded
	EnrichmentCacheError
	EnrichmentParseError
	EnrichmentTimeout
	EnrichmentMissingIdentifiers
)

func (k EnrichmentKind) String() string {
	switch k {
	case EnrichmentRateLimitExceeded:
		return "RateLimitExceeded"
	case EnrichmentCacheError:
		return "CacheError"
	case EnrichmentParseError:
		return "ParseError"
	case EnrichmentTimeout:
		return "Timeout"
	case EnrichmentMissingIdentifiers:
		return "MissingIdentifiers"
	default:
		return "ApiError"
	}
}

// ReportKind is the closed taxonomy of report-facing failures (the core
// only needs this to classify errors it returns to external reporters).
type ReportKind int

// ReportKind values.
const (
	ReportUnsupportedFormat ReportKind = iota
	ReportWriteFailed
)

// Error is the single top-level error type returned by this module. It
// carries a human-readable context string, the family it belongs to, a
// family-specific kind (as `any`, since each family has its own enum), an
// optional path, and an optional wrapped cause.
type Error struct {
	Context string
	Family  Family
	Kind    any
	Path    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%v) [%s]", e.Context, e.Family, e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Context, e.Family, e.Kind)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Parse constructs a Parse-family error.
func Parse(kind ParseKind, context string, cause error) *Error {
	return &Error{Context: context, Family: FamilyParse, Kind: kind, Cause: cause}
}

// ParseAt constructs a Parse-family error with a source path attached.
func ParseAt(kind ParseKind, context, path string, cause error) *Error {
	return &Error{Context: context, Family: FamilyParse, Kind: kind, Path: path, Cause: cause}
}

// Matching constructs a Matching-family error.
func Matching(kind MatchingKind, context string, cause error) *Error {
	return &Error{Context: context, Family: FamilyMatching, Kind: kind, Cause: cause}
}

// Diff constructs a Diff-family error.
func Diff(kind DiffKind, context string, cause error) *Error {
	return &Error{Context: context, Family: FamilyDiff, Kind: kind, Cause: cause}
}

// Enrichment constructs an Enrichment-family error. Per §7, enrichers never
// surface these as the whole-run error: they are recorded into
// enrich.Stats.Errors and processing continues.
func Enrichment(kind EnrichmentKind, context string, cause error) *Error {
	return &Error{Context: context, Family: FamilyEnrichment, Kind: kind, Cause: cause}
}

// Report constructs a Report-family error.
func Report(kind ReportKind, context string, cause error) *Error {
	return &Error{Context: context, Family: FamilyReport, Kind: kind, Cause: cause}
}

// IO constructs a flat IO error carrying an optional path.
func IO(context, path string, cause error) *Error {
	return &Error{Context: context, Family: FamilyIO, Path: path, Cause: cause}
}

// Validation constructs a flat validation error.
func Validation(context string) *Error {
	return &Error{Context: context, Family: FamilyValidation}
}

// Config constructs a flat configuration error.
func Config(context string) *Error {
	return &Error{Context: context, Family: FamilyConfig}
}
