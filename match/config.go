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

// Package match implements the tiered component-identity matcher described
// in spec §4.E: exact-identifier, alias, ecosystem-rule, and multi-field or
// legacy fuzzy tiers, plus adaptive threshold selection and the declarative
// rule engine.
package match

// Preset is the closed set of named overall matcher configurations exposed
// in the config surface (spec §6).
type Preset string

// Preset values.
const (
	PresetStrict        Preset = "strict"
	PresetBalanced       Preset = "balanced"
	PresetPermissive     Preset = "permissive"
	PresetStrictMulti    Preset = "strict-multi"
	PresetBalancedMulti  Preset = "balanced-multi"
)

// Config is the fuzzy-matching configuration surface from spec §6.
type Config struct {
	Threshold           float64
	LevenshteinWeight   float64
	JaroWinklerWeight   float64
	UseAliases          bool
	UseEcosystemRules   bool
	MaxCandidates       int
	FieldWeights        *FieldWeights // nil disables multi-field scoring
}

// DefaultConfig returns the "balanced" preset.
func DefaultConfig() Config { return ConfigForPreset(PresetBalanced) }

// ConfigForPreset returns the Config for one of the named presets in §6.
func ConfigForPreset(p Preset) Config {
	base := Config{
		LevenshteinWeight: 0.4,
		JaroWinklerWeight: 0.6,
		UseAliases:        true,
		UseEcosystemRules: true,
		MaxCandidates:     50,
	}
	switch p {
	case PresetStrict:
		base.Threshold = 0.92
	case PresetPermissive:
		base.Threshold = 0.70
	case PresetStrictMulti:
		base.Threshold = 0.90
		w := SecurityFocusedWeights()
		base.FieldWeights = &w
	case PresetBalancedMulti:
		base.Threshold = 0.80
		w := BalancedWeights()
		base.FieldWeights = &w
	default: // PresetBalanced
		base.Threshold = 0.85
	}
	return base
}

// FieldWeights are the six-signal weights used by multi-field scoring
// (spec §4.E). Weights across Name/Version/Ecosystem/Licenses/Supplier/
// Group must sum to 1.0; the two penalty knobs apply on top.
type FieldWeights struct {
	Name      float64
	Version   float64
	Ecosystem float64
	Licenses  float64
	Supplier  float64
	Group     float64

	EcosystemMismatchPenalty float64
	VersionDivergenceEnabled bool
	VersionMajorPenalty      float64
	VersionMinorPenalty      float64
}

// NameFocusedWeights emphasizes the name field above all else.
func NameFocusedWeights() FieldWeights {
	return FieldWeights{
		Name: 0.80, Version: 0.05, Ecosystem: 0.10, Licenses: 0.03, Supplier: 0.01, Group: 0.01,
		EcosystemMismatchPenalty: -0.15, VersionDivergenceEnabled: true,
		VersionMajorPenalty: 0.10, VersionMinorPenalty: 0.02,
	}
}

// BalancedWeights spreads weight across all six signals.
func BalancedWeights() FieldWeights {
	return FieldWeights{
		Name: 0.60, Version: 0.10, Ecosystem: 0.15, Licenses: 0.08, Supplier: 0.04, Group: 0.03,
		EcosystemMismatchPenalty: -0.15, VersionDivergenceEnabled: true,
		VersionMajorPenalty: 0.10, VersionMinorPenalty: 0.02,
	}
}

// SecurityFocusedWeights emphasizes ecosystem and version precision, with
// stricter mismatch penalties — appropriate when false-positive matches
// would mask an introduced vulnerability.
func SecurityFocusedWeights() FieldWeights {
	return FieldWeights{
		Name: 0.50, Version: 0.20, Ecosystem: 0.20, Licenses: 0.05, Supplier: 0.03, Group: 0.02,
		EcosystemMismatchPenalty: -0.25, VersionDivergenceEnabled: true,
		VersionMajorPenalty: 0.15, VersionMinorPenalty: 0.03,
	}
}

// LegacyWeights reproduces the pre-penalty binary-scoring behavior.
func LegacyWeights() FieldWeights {
	return FieldWeights{
		Name: 0.60, Version: 0.10, Ecosystem: 0.15, Licenses: 0.08, Supplier: 0.04, Group: 0.03,
	}
}

// IsNormalized reports whether the six field weights sum to ~1.0.
func (w FieldWeights) IsNormalized() bool {
	sum := w.Name + w.Version + w.Ecosystem + w.Licenses + w.Supplier + w.Group
	d := sum - 1.0
	if d < 0 {
		d = -d
	}
	return d < 0.001
}

// Normalize rescales the six field weights to sum to 1.0, leaving the
// penalty knobs untouched.
func (w *FieldWeights) Normalize() {
	sum := w.Name + w.Version + w.Ecosystem + w.Licenses + w.Supplier + w.Group
	if sum <= 0 {
		return
	}
	w.Name /= sum
	w.Version /= sum
	w.Ecosystem /= sum
	w.Licenses /= sum
	w.Supplier /= sum
	w.Group /= sum
}
