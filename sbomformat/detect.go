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

// Package sbomformat dispatches raw SBOM bytes to the parser best able to
// handle them (spec §4.C). Each dialect parser lives in its own
// sub-package and exposes the Parser interface below; this package only
// knows how to run detect() across all of them and pick a winner.
package sbomformat

import (
	"fmt"
	"io"

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomerr"
)

// Confidence bands a detector's certainty that it recognizes a document.
type Confidence float64

// Confidence bands named in spec §4.C.
const (
	ConfidenceNone    Confidence = 0.0
	ConfidenceLow     Confidence = 0.25
	ConfidenceMedium  Confidence = 0.5
	ConfidenceHigh    Confidence = 0.75
	ConfidenceCertain Confidence = 1.0
)

// DefaultThreshold is the minimum confidence a parser must clear to be
// selected when the caller doesn't specify one.
const DefaultThreshold = ConfidenceLow

// FormatDetection is one parser's self-assessed confidence about a
// candidate document.
type FormatDetection struct {
	Parser     string
	Confidence Confidence
	Variant    string // e.g. "JSON", "XML", "tag-value", "RDF"
	Version    string // detected spec version, if identifiable
	Warnings   []string
}

// Parser is the uniform interface every dialect parser under
// sbomformat/* implements.
type Parser interface {
	FormatName() string
	SupportedVersions() []string
	Detect(text []byte) FormatDetection
	ParseString(text []byte) (*model.NormalizedSbom, error)
	ParseReader(r io.Reader) (*model.NormalizedSbom, error)
}

// Registry holds the set of parsers a Detect call chooses among.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a Registry over the given parsers, tried in the
// order given when confidences tie.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Detect runs every parser's Detect and returns all results, highest
// confidence first, stable on ties.
func (r *Registry) Detect(text []byte) []FormatDetection {
	out := make([]FormatDetection, len(r.parsers))
	for i, p := range r.parsers {
		out[i] = p.Detect(text)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Confidence > out[j-1].Confidence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Select runs Detect and returns the parser with the highest confidence
// above threshold. The detector has no default bias: if no parser clears
// threshold, it fails with a ParseUnknownFormat error carrying every
// candidate's score in the warning list (spec §4.C).
func (r *Registry) Select(text []byte, threshold Confidence) (Parser, FormatDetection, error) {
	var best Parser
	var bestResult FormatDetection
	var warnings []string

	for _, p := range r.parsers {
		d := p.Detect(text)
		warnings = append(warnings, fmt.Sprintf("%s: confidence=%.2f", p.FormatName(), float64(d.Confidence)))
		if d.Confidence > bestResult.Confidence {
			best = p
			bestResult = d
		}
	}

	if best == nil || bestResult.Confidence < threshold {
		err := sbomerr.Parse(sbomerr.ParseUnknownFormat, "no registered parser matched the input", nil)
		err.Path = ""
		return nil, FormatDetection{Warnings: warnings}, withWarnings(err, warnings)
	}
	return best, bestResult, nil
}

// Parse runs Select at DefaultThreshold and parses with the winning parser.
func (r *Registry) Parse(text []byte) (*model.NormalizedSbom, error) {
	p, _, err := r.Select(text, DefaultThreshold)
	if err != nil {
		return nil, err
	}
	return p.ParseString(text)
}

func withWarnings(err *sbomerr.Error, warnings []string) error {
	err.Context = err.Context + ": " + fmt.Sprint(warnings)
	return err
}
