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
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomerr"
)

// Precedence names how multiple matching rules for the same component are
// resolved (spec §4.E). It is parsed and stored in RulesConfig only; the
// rule engine applies the first matching rule in declaration order whatever
// its value, and most-specific ordering is not implemented.
type Precedence string

// Precedence values.
const (
	PrecedenceFirstMatch    Precedence = "first-match"
	PrecedenceMostSpecific  Precedence = "most-specific"
)

// AliasPattern is one alias entry within an EquivalenceGroup: either an
// exact PURL string, or a pattern match against glob/regex/ecosystem/name.
type AliasPattern struct {
	Exact     string `yaml:"exact,omitempty"`
	Pattern   string `yaml:"pattern,omitempty"`
	Regex     string `yaml:"regex,omitempty"`
	Ecosystem string `yaml:"ecosystem,omitempty"`
	Name      string `yaml:"name,omitempty"`
}

func (a AliasPattern) isExact() bool { return a.Exact != "" }

// EquivalenceGroup declares that a set of aliases should be treated as the
// canonical PURL for identity purposes.
type EquivalenceGroup struct {
	Name             string         `yaml:"name,omitempty"`
	Canonical        string         `yaml:"canonical"`
	Aliases          []AliasPattern `yaml:"aliases,omitempty"`
	VersionSensitive bool           `yaml:"version_sensitive,omitempty"`
}

// ExclusionRule declares that matching components should be dropped from
// diff consideration entirely.
type ExclusionRule struct {
	Exact     string `yaml:"exact,omitempty"`
	Pattern   string `yaml:"pattern,omitempty"`
	Regex     string `yaml:"regex,omitempty"`
	Ecosystem string `yaml:"ecosystem,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Scope     string `yaml:"scope,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
}

func (e ExclusionRule) isExact() bool { return e.Exact != "" && e.Pattern == "" && e.Regex == "" && e.Ecosystem == "" && e.Name == "" }

// RulesConfig is the declarative rule file format (spec §4.E, §6).
type RulesConfig struct {
	Precedence   Precedence          `yaml:"precedence,omitempty"`
	Equivalences []EquivalenceGroup  `yaml:"equivalences,omitempty"`
	Exclusions   []ExclusionRule     `yaml:"exclusions,omitempty"`
}

// ParseRulesConfig loads a RulesConfig from YAML bytes, defaulting an empty
// precedence to first-match.
func ParseRulesConfig(data []byte) (RulesConfig, error) {
	var cfg RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RulesConfig{}, sbomerr.Config(fmt.Sprintf("parsing rules file: %v", err))
	}
	if cfg.Precedence == "" {
		cfg.Precedence = PrecedenceFirstMatch
	}
	return cfg, nil
}

// AppliedRuleKind distinguishes the two rule effects.
type AppliedRuleKind int

// AppliedRuleKind values.
const (
	AppliedEquivalence AppliedRuleKind = iota
	AppliedExclusion
)

// RuleApplication records one rule's effect on one component, produced both
// in dry-run mode and during a real apply for auditing (spec §4.E).
type RuleApplication struct {
	ComponentID   model.CanonicalId
	ComponentName string
	Kind          AppliedRuleKind
	Canonical     string // set for AppliedEquivalence
	Reason        string // set for AppliedExclusion
	RuleIndex     int
	RuleName      string
}

// compiledEquivalence pairs an EquivalenceGroup with its pre-compiled alias
// patterns so load-time errors surface once, not per-lookup.
type compiledEquivalence struct {
	group   EquivalenceGroup
	globs   []glob.Glob
	regexes []*regexp.Regexp
}

type compiledExclusion struct {
	rule  ExclusionRule
	glob  glob.Glob
	regex *regexp.Regexp
}

// RuleEngine applies a compiled RulesConfig to components, either mapping a
// component's canonical id to a declared canonical or marking it excluded.
// Compile errors are returned from NewRuleEngine and are fatal for the run
// (spec §5): patterns are never partially applied.
type RuleEngine struct {
	cfg          RulesConfig
	equivalences []compiledEquivalence
	exclusions   []compiledExclusion
}

// NewRuleEngine compiles every glob and regex pattern in cfg once.
func NewRuleEngine(cfg RulesConfig) (*RuleEngine, error) {
	e := &RuleEngine{cfg: cfg}

	for i, eq := range cfg.Equivalences {
		ce := compiledEquivalence{
			group:   eq,
			globs:   make([]glob.Glob, len(eq.Aliases)),
			regexes: make([]*regexp.Regexp, len(eq.Aliases)),
		}
		for j, a := range eq.Aliases {
			if a.isExact() {
				continue
			}
			if a.Pattern != "" {
				g, err := glob.Compile(a.Pattern, '/')
				if err != nil {
					return nil, sbomerr.Matching(sbomerr.MatchingRuleCompileError, fmt.Sprintf("equivalence %d alias %d: invalid glob %q", i, j, a.Pattern), err)
				}
				ce.globs[j] = g
			}
			if a.Regex != "" {
				re, err := regexp.Compile(a.Regex)
				if err != nil {
					return nil, sbomerr.Matching(sbomerr.MatchingRuleCompileError, fmt.Sprintf("equivalence %d alias %d: invalid regex %q", i, j, a.Regex), err)
				}
				ce.regexes[j] = re
			}
		}
		e.equivalences = append(e.equivalences, ce)
	}

	for i, ex := range cfg.Exclusions {
		cx := compiledExclusion{rule: ex}
		if ex.Pattern != "" {
			g, err := glob.Compile(ex.Pattern, '/')
			if err != nil {
				return nil, sbomerr.Matching(sbomerr.MatchingRuleCompileError, fmt.Sprintf("exclusion %d: invalid glob %q", i, ex.Pattern), err)
			}
			cx.glob = g
		}
		if ex.Regex != "" {
			re, err := regexp.Compile(ex.Regex)
			if err != nil {
				return nil, sbomerr.Matching(sbomerr.MatchingRuleCompileError, fmt.Sprintf("exclusion %d: invalid regex %q", i, ex.Regex), err)
			}
			cx.regex = re
		}
		e.exclusions = append(e.exclusions, cx)
	}

	return e, nil
}

// RuleResult is the outcome of applying a RuleEngine across a document.
type RuleResult struct {
	CanonicalMap map[model.CanonicalId]string
	Excluded     map[model.CanonicalId]bool
	Applied      []RuleApplication
}

// Apply evaluates every component against the compiled rules. Exclusions
// are checked before equivalences for each component, matching the
// precedence semantics described in spec §4.E. DryRun produces the same
// Applied log without callers needing to act on CanonicalMap/Excluded.
func (e *RuleEngine) Apply(components []*model.Component) RuleResult {
	res := RuleResult{
		CanonicalMap: make(map[model.CanonicalId]string),
		Excluded:     make(map[model.CanonicalId]bool),
	}
	for _, c := range components {
		if app, ok := e.matchExclusion(c); ok {
			res.Excluded[c.CanonicalID] = true
			res.Applied = append(res.Applied, app)
			continue
		}
		if canonical, app, ok := e.matchEquivalence(c); ok {
			res.CanonicalMap[c.CanonicalID] = canonical
			res.Applied = append(res.Applied, app)
		}
	}
	return res
}

func (e *RuleEngine) matchExclusion(c *model.Component) (RuleApplication, bool) {
	for idx, cx := range e.exclusions {
		if exclusionMatches(cx, c) {
			return RuleApplication{
				ComponentID:   c.CanonicalID,
				ComponentName: c.Name,
				Kind:          AppliedExclusion,
				Reason:        cx.rule.Reason,
				RuleIndex:     idx,
			}, true
		}
	}
	return RuleApplication{}, false
}

func exclusionMatches(cx compiledExclusion, c *model.Component) bool {
	purl := c.Identifiers.Purl
	if cx.rule.isExact() {
		return purl != "" && purl == cx.rule.Exact
	}

	matchedAny := false
	if cx.rule.Ecosystem != "" {
		if !strings.EqualFold(c.Ecosystem.String(), cx.rule.Ecosystem) {
			return false
		}
		matchedAny = true
	}
	if cx.rule.Name != "" {
		if !strings.Contains(strings.ToLower(c.Name), strings.ToLower(cx.rule.Name)) {
			return false
		}
		matchedAny = true
	}
	if cx.glob != nil {
		if purl == "" || !cx.glob.Match(purl) {
			return false
		}
		matchedAny = true
	}
	if cx.regex != nil {
		if purl == "" || !cx.regex.MatchString(purl) {
			return false
		}
		matchedAny = true
	}
	return matchedAny
}

func (e *RuleEngine) matchEquivalence(c *model.Component) (string, RuleApplication, bool) {
	purl := c.Identifiers.Purl
	if purl == "" {
		return "", RuleApplication{}, false
	}
	for idx, ce := range e.equivalences {
		if purl == ce.group.Canonical || aliasMatches(ce, purl) {
			return ce.group.Canonical, RuleApplication{
				ComponentID:   c.CanonicalID,
				ComponentName: c.Name,
				Kind:          AppliedEquivalence,
				Canonical:     ce.group.Canonical,
				RuleIndex:     idx,
				RuleName:      ce.group.Name,
			}, true
		}
	}
	return "", RuleApplication{}, false
}

func aliasMatches(ce compiledEquivalence, purl string) bool {
	lower := strings.ToLower(purl)
	for i, a := range ce.group.Aliases {
		if a.isExact() {
			if purl == a.Exact {
				return true
			}
			continue
		}
		if ce.globs[i] != nil && ce.globs[i].Match(purl) {
			return true
		}
		if ce.regexes[i] != nil && ce.regexes[i].MatchString(purl) {
			return true
		}
		if a.Ecosystem != "" && strings.HasPrefix(lower, "pkg:"+strings.ToLower(a.Ecosystem)+"/") {
			return true
		}
		if a.Name != "" && strings.Contains(lower, strings.ToLower(a.Name)) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether purl matches any configured exclusion,
// independent of any particular component.
func (e *RuleEngine) IsExcluded(purl string) bool {
	for _, cx := range e.exclusions {
		if cx.rule.isExact() {
			if purl == cx.rule.Exact {
				return true
			}
			continue
		}
		if cx.glob != nil && cx.glob.Match(purl) {
			return true
		}
		if cx.regex != nil && cx.regex.MatchString(purl) {
			return true
		}
	}
	return false
}

// GetCanonical returns the declared canonical PURL for purl, if any
// equivalence group applies.
func (e *RuleEngine) GetCanonical(purl string) (string, bool) {
	for _, ce := range e.equivalences {
		if purl == ce.group.Canonical || aliasMatches(ce, purl) {
			return ce.group.Canonical, true
		}
	}
	return "", false
}
