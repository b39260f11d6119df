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

import "github.com/sbomlens/sbomlens/model"

// CompositeMatcher runs several Matchers and keeps the highest-scoring
// result, useful when a caller wants to combine a strict identifier matcher
// with a permissive fuzzy fallback without changing tiers inside either.
type CompositeMatcher struct {
	matchers  []Matcher
	threshold float64
	name      string
}

var _ Matcher = (*CompositeMatcher)(nil)

// NewCompositeMatcher builds a CompositeMatcher over matchers. threshold is
// reported via Threshold() and is independent of each child's own threshold.
func NewCompositeMatcher(name string, threshold float64, matchers ...Matcher) *CompositeMatcher {
	return &CompositeMatcher{matchers: matchers, threshold: threshold, name: name}
}

// Name implements Matcher.
func (c *CompositeMatcher) Name() string { return c.name }

// Threshold implements Matcher.
func (c *CompositeMatcher) Threshold() float64 { return c.threshold }

// MatchScore implements Matcher, returning the best score across children.
func (c *CompositeMatcher) MatchScore(a, b *model.Component) float64 {
	return c.MatchDetailed(a, b).Score
}

// MatchDetailed implements Matcher, returning the child Result with the
// highest score. Ties keep the first child's Result.
func (c *CompositeMatcher) MatchDetailed(a, b *model.Component) Result {
	best := NoMatch()
	for _, m := range c.matchers {
		r := m.MatchDetailed(a, b)
		if r.Score > best.Score {
			best = r
		}
	}
	return best
}
