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

// Package enrich defines the uniform enricher interface (spec §4.H) that
// every data source under enrich/* (OSV, KEV, EOL, staleness, no-op)
// implements, plus the shared Stats shape every run reports.
package enrich

import (
	"context"
	"time"

	"github.com/sbomlens/sbomlens/model"
)

// Enricher is the capability-set abstraction every enrichment source
// implements (spec §9: "trait-object enrichers"). The set of enrichers is
// open-ended, so callers hold a slice of this interface rather than a
// closed union.
type Enricher interface {
	// Enrich annotates components in place and reports what happened.
	Enrich(ctx context.Context, components []*model.Component) Stats
	// Name identifies this enricher for logging and ordering.
	Name() string
	// IsAvailable is a lightweight health probe; it may issue a single
	// remote call and should not be invoked per-component.
	IsAvailable(ctx context.Context) bool
}

// ErrorKind is the closed set of enrichment failure categories (spec
// §4.H).
type ErrorKind int

// ErrorKind values.
const (
	ErrorKindAPIError ErrorKind = iota
	ErrorKindRateLimitExceeded
	ErrorKindCacheError
	ErrorKindParseError
	ErrorKindTimeout
	ErrorKindMissingIdentifiers
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAPIError:
		return "ApiError"
	case ErrorKindRateLimitExceeded:
		return "RateLimitExceeded"
	case ErrorKindCacheError:
		return "CacheError"
	case ErrorKindParseError:
		return "ParseError"
	case ErrorKindTimeout:
		return "Timeout"
	case ErrorKindMissingIdentifiers:
		return "MissingIdentifiers"
	default:
		return "Unknown"
	}
}

// EnrichError is one failure encountered during an Enrich call.
type EnrichError struct {
	Kind          ErrorKind
	ComponentName string
	Message       string
}

func (e EnrichError) Error() string { return e.Kind.String() + ": " + e.Message }

// Stats is the uniform report every Enrich call returns (spec §4.H).
type Stats struct {
	ComponentsQueried     int
	ComponentsWithResults int
	TotalItemsFound       int
	CacheHits             int
	APICalls              int
	ComponentsSkipped     int
	Duration              time.Duration
	Errors                []EnrichError
}

// Merge folds other's counters into s, for callers running several
// enrichers in sequence and wanting one combined report.
func (s *Stats) Merge(other Stats) {
	s.ComponentsQueried += other.ComponentsQueried
	s.ComponentsWithResults += other.ComponentsWithResults
	s.TotalItemsFound += other.TotalItemsFound
	s.CacheHits += other.CacheHits
	s.APICalls += other.APICalls
	s.ComponentsSkipped += other.ComponentsSkipped
	s.Duration += other.Duration
	s.Errors = append(s.Errors, other.Errors...)
}

// Run invokes every enricher in order against components, merging their
// stats. This mirrors the teacher's enricher.Run loop (plugin/enricher
// orchestration) generalized to this package's simpler interface.
func Run(ctx context.Context, enrichers []Enricher, components []*model.Component) Stats {
	var total Stats
	for _, e := range enrichers {
		total.Merge(e.Enrich(ctx, components))
	}
	return total
}
