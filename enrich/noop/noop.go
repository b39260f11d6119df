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

// Package noop provides a trivial enrich.Enricher that performs no work,
// useful as a placeholder in a configured pipeline or in tests that need an
// Enricher value without a network dependency.
package noop

import (
	"context"
	"time"

	"github.com/sbomlens/sbomlens/enrich"
	"github.com/sbomlens/sbomlens/model"
)

// Enricher implements enrich.Enricher by doing nothing.
type Enricher struct{}

// New returns a no-op enricher.
func New() Enricher { return Enricher{} }

// Name implements enrich.Enricher.
func (Enricher) Name() string { return "noop" }

// IsAvailable implements enrich.Enricher and always reports unavailable, so
// orchestration code skips it rather than crediting it with coverage.
func (Enricher) IsAvailable(context.Context) bool { return false }

// Enrich implements enrich.Enricher and reports every component skipped.
func (Enricher) Enrich(_ context.Context, components []*model.Component) enrich.Stats {
	return enrich.Stats{
		ComponentsQueried: len(components),
		ComponentsSkipped: len(components),
		Duration:          0 * time.Second,
	}
}
