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
	"math"
	"sort"

	"github.com/sbomlens/sbomlens/model"
)

// AdaptiveMethod records which algorithm produced an AdaptiveThresholdResult.
type AdaptiveMethod int

// AdaptiveMethod values.
const (
	AdaptiveMethodDefault AdaptiveMethod = iota
	AdaptiveMethodOtsu
	AdaptiveMethodTargetRatio
)

func (m AdaptiveMethod) String() string {
	switch m {
	case AdaptiveMethodOtsu:
		return "otsu"
	case AdaptiveMethodTargetRatio:
		return "target-ratio"
	default:
		return "default"
	}
}

// AdaptiveThresholdConfig bounds and tunes threshold search (spec §4.E).
type AdaptiveThresholdConfig struct {
	MinThreshold      float64
	MaxThreshold      float64
	MaxIterations     int
	TargetMatchRatio  *float64 // nil selects Otsu's method
	MinSamples        int
	Precision         float64
}

// DefaultAdaptiveThresholdConfig mirrors the original implementation's
// defaults: Otsu selection, a [0.50, 0.99] search range, 20 binary-search
// iterations, and a minimum of 10 samples.
func DefaultAdaptiveThresholdConfig() AdaptiveThresholdConfig {
	return AdaptiveThresholdConfig{
		MinThreshold:  0.50,
		MaxThreshold:  0.99,
		MaxIterations: 20,
		MinSamples:    10,
		Precision:     0.01,
	}
}

// AdaptiveThresholdForTargetRatio configures binary search for a threshold
// yielding approximately the given fraction of matching pairs.
func AdaptiveThresholdForTargetRatio(ratio float64) AdaptiveThresholdConfig {
	cfg := DefaultAdaptiveThresholdConfig()
	r := clamp01(ratio)
	cfg.TargetMatchRatio = &r
	return cfg
}

// ScoreStats summarizes a sampled score distribution.
type ScoreStats struct {
	Min          float64
	Max          float64
	Mean         float64
	StdDev       float64
	Median       float64
	ExactMatches int
	ZeroScores   int
}

// ComputeScoreStats computes ScoreStats over scores, returning the zero
// value for an empty slice.
func ComputeScoreStats(scores []float64) ScoreStats {
	if len(scores) == 0 {
		return ScoreStats{}
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	min, max := sorted[0], sorted[len(sorted)-1]
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	n := len(sorted)
	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2.0
	} else {
		median = sorted[n/2]
	}

	variance := 0.0
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))
	stdDev := math.Sqrt(variance)

	exact, zero := 0, 0
	for _, s := range scores {
		if s >= 0.9999 {
			exact++
		}
		if s < 0.0001 {
			zero++
		}
	}

	return ScoreStats{Min: min, Max: max, Mean: mean, StdDev: stdDev, Median: median, ExactMatches: exact, ZeroScores: zero}
}

// AdaptiveThresholdResult is the outcome of AdaptiveThreshold.ComputeThreshold.
type AdaptiveThresholdResult struct {
	Threshold  float64
	Method     AdaptiveMethod
	Samples    int
	ScoreStats ScoreStats
	MatchRatio float64
	Confidence float64
}

// AdaptiveThreshold derives a data-driven match threshold from the observed
// score distribution between two documents, per spec §4.E.
type AdaptiveThreshold struct {
	cfg AdaptiveThresholdConfig
}

// NewAdaptiveThreshold constructs an AdaptiveThreshold with cfg.
func NewAdaptiveThreshold(cfg AdaptiveThresholdConfig) *AdaptiveThreshold {
	return &AdaptiveThreshold{cfg: cfg}
}

const adaptiveMaxSamples = 1000

// ComputeThreshold samples best-match scores for every (capped) component in
// oldSbom against newSbom, then derives a threshold via the configured
// method. Falls back to the matcher's own threshold when too few samples are
// available to estimate reliably.
func (a *AdaptiveThreshold) ComputeThreshold(oldComponents, newComponents []*model.Component, m Matcher) AdaptiveThresholdResult {
	scores := a.sampleScores(oldComponents, newComponents, m)

	if len(scores) < a.cfg.MinSamples {
		return AdaptiveThresholdResult{
			Threshold:  m.Threshold(),
			Method:     AdaptiveMethodDefault,
			Samples:    len(scores),
			ScoreStats: ComputeScoreStats(scores),
			MatchRatio: 0,
			Confidence: 0,
		}
	}

	stats := ComputeScoreStats(scores)

	var threshold float64
	var method AdaptiveMethod
	if a.cfg.TargetMatchRatio != nil {
		threshold = a.binarySearchThreshold(scores, *a.cfg.TargetMatchRatio)
		method = AdaptiveMethodTargetRatio
	} else {
		threshold = a.otsuThreshold(scores)
		method = AdaptiveMethodOtsu
	}
	threshold = clampRange(threshold, a.cfg.MinThreshold, a.cfg.MaxThreshold)

	matchCount := 0
	for _, s := range scores {
		if s >= threshold {
			matchCount++
		}
	}
	matchRatio := float64(matchCount) / float64(len(scores))

	return AdaptiveThresholdResult{
		Threshold:  threshold,
		Method:     method,
		Samples:    len(scores),
		ScoreStats: stats,
		MatchRatio: matchRatio,
		Confidence: a.estimateConfidence(scores, stats),
	}
}

func (a *AdaptiveThreshold) sampleScores(oldComponents, newComponents []*model.Component, m Matcher) []float64 {
	limit := len(oldComponents)
	if limit > adaptiveMaxSamples {
		limit = adaptiveMaxSamples
	}
	scores := make([]float64, 0, limit)
	for _, oldC := range oldComponents[:limit] {
		best := 0.0
		for _, newC := range newComponents {
			s := m.MatchScore(oldC, newC)
			if s > best {
				best = s
			}
		}
		scores = append(scores, best)
	}
	return scores
}

func (a *AdaptiveThreshold) binarySearchThreshold(scores []float64, targetRatio float64) float64 {
	low, high := a.cfg.MinThreshold, a.cfg.MaxThreshold
	for i := 0; i < a.cfg.MaxIterations; i++ {
		mid := (low + high) / 2.0
		count := 0
		for _, s := range scores {
			if s >= mid {
				count++
			}
		}
		ratio := float64(count) / float64(len(scores))
		if math.Abs(ratio-targetRatio) < a.cfg.Precision {
			return mid
		}
		if ratio > targetRatio {
			low = mid
		} else {
			high = mid
		}
	}
	return (low + high) / 2.0
}

const otsuNumBins = 100
const otsuVarianceTolerance = 1e-6

func (a *AdaptiveThreshold) otsuThreshold(scores []float64) float64 {
	histogram := make([]int, otsuNumBins)
	for _, s := range scores {
		bin := int(s * float64(otsuNumBins-1))
		if bin >= otsuNumBins {
			bin = otsuNumBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		histogram[bin]++
	}

	total := float64(len(scores))
	sumTotal := 0.0
	for i, count := range histogram {
		sumTotal += float64(i) * float64(count)
	}

	firstOptimalBin, lastOptimalBin := 0, 0
	bestVariance := 0.0
	sumBackground, weightBackground := 0.0, 0.0

	for i, count := range histogram {
		weightBackground += float64(count)
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}

		sumBackground += float64(i) * float64(count)
		meanBackground := sumBackground / weightBackground
		meanForeground := (sumTotal - sumBackground) / weightForeground

		diff := meanBackground - meanForeground
		betweenVariance := weightBackground * weightForeground * diff * diff

		switch {
		case betweenVariance > bestVariance+otsuVarianceTolerance:
			bestVariance = betweenVariance
			firstOptimalBin = i
			lastOptimalBin = i
		case math.Abs(betweenVariance-bestVariance) <= otsuVarianceTolerance:
			lastOptimalBin = i
		}
	}

	middleBin := (firstOptimalBin + lastOptimalBin) / 2
	return (float64(middleBin) + 0.5) / float64(otsuNumBins)
}

func (a *AdaptiveThreshold) estimateConfidence(scores []float64, stats ScoreStats) float64 {
	sampleFactor := math.Min(float64(len(scores))/100.0, 1.0)
	distributionFactor := math.Min(stats.StdDev*3.0, 1.0)
	exactMatchFactor := 0.5
	if stats.ExactMatches > 0 {
		exactMatchFactor = 0.9
	}
	zeroScorePenalty := 1.0
	if stats.ZeroScores == len(scores) {
		zeroScorePenalty = 0.0
	}

	confidence := sampleFactor*0.3 + distributionFactor*0.3 + exactMatchFactor*0.2 + zeroScorePenalty*0.2
	return clampRange(confidence, 0.0, 1.0)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
