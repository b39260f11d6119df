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

// Package model defines the canonical, format-agnostic representation every
// SBOM dialect is normalized into before matching, diffing, and enrichment.
package model

import "time"

// CanonicalId is a stable identity token for a Component. Two components
// share a CanonicalId iff they denote the same logical entity within one
// document. See the idhash package for derivation rules.
type CanonicalId string

// ComponentType is the closed set of component kinds a Component may carry.
// Unknown dialect-specific strings are preserved via Other.
type ComponentType struct {
	kind string
	raw  string // only set when kind == "other"
}

// Component type constructors.
var (
	TypeApplication = ComponentType{kind: "application"}
	TypeFramework   = ComponentType{kind: "framework"}
	TypeLibrary     = ComponentType{kind: "library"}
	TypeContainer   = ComponentType{kind: "container"}
	TypeOS          = ComponentType{kind: "operating-system"}
	TypeDevice      = ComponentType{kind: "device"}
	TypeFirmware    = ComponentType{kind: "firmware"}
	TypeFile        = ComponentType{kind: "file"}
	TypeMLModel     = ComponentType{kind: "ml-model"}
	TypeData        = ComponentType{kind: "data"}
)

// OtherType wraps an unrecognized dialect-specific component type string.
func OtherType(raw string) ComponentType { return ComponentType{kind: "other", raw: raw} }

// String renders the component type, returning the raw value for Other.
func (t ComponentType) String() string {
	if t.kind == "other" {
		return t.raw
	}
	return t.kind
}

// IsOther reports whether this type is a widened unknown dialect string.
func (t ComponentType) IsOther() bool { return t.kind == "other" }

// Ecosystem is the closed set of package ecosystems a Component may belong
// to. Unknown ecosystem strings are preserved via OtherEcosystem.
type Ecosystem struct {
	kind string
	raw  string
}

// Ecosystem constructors.
var (
	EcosystemNpm        = Ecosystem{kind: "npm"}
	EcosystemPyPI       = Ecosystem{kind: "pypi"}
	EcosystemCargo      = Ecosystem{kind: "cargo"}
	EcosystemMaven      = Ecosystem{kind: "maven"}
	EcosystemGo         = Ecosystem{kind: "go"}
	EcosystemNuGet      = Ecosystem{kind: "nuget"}
	EcosystemRubyGems   = Ecosystem{kind: "rubygems"}
	EcosystemPackagist  = Ecosystem{kind: "packagist"}
	EcosystemCocoapods  = Ecosystem{kind: "cocoapods"}
	EcosystemSwift      = Ecosystem{kind: "swift"}
	EcosystemHex        = Ecosystem{kind: "hex"}
	EcosystemPub        = Ecosystem{kind: "pub"}
	EcosystemHackage    = Ecosystem{kind: "hackage"}
	EcosystemCPAN       = Ecosystem{kind: "cpan"}
	EcosystemCRAN       = Ecosystem{kind: "cran"}
	EcosystemConda      = Ecosystem{kind: "conda"}
	EcosystemConan      = Ecosystem{kind: "conan"}
	EcosystemDebian     = Ecosystem{kind: "deb"}
	EcosystemRPM        = Ecosystem{kind: "rpm"}
	EcosystemAlpine     = Ecosystem{kind: "apk"}
	EcosystemGeneric    = Ecosystem{kind: "generic"}
	EcosystemUnknownVal = Ecosystem{kind: "unknown"}
)

// OtherEcosystem wraps an unrecognized ecosystem string.
func OtherEcosystem(raw string) Ecosystem { return Ecosystem{kind: "unknown", raw: raw} }

// String renders the ecosystem, returning the raw value when unknown.
func (e Ecosystem) String() string {
	if e.kind == "unknown" && e.raw != "" {
		return e.raw
	}
	return e.kind
}

// Equal reports whether two ecosystems denote the same value, including raw
// unknown strings.
func (e Ecosystem) Equal(o Ecosystem) bool { return e.kind == o.kind && e.raw == o.raw }

// IsZero reports whether no ecosystem was set at all.
func (e Ecosystem) IsZero() bool { return e.kind == "" }

// Identifiers holds the alternate identifiers known for a Component.
type Identifiers struct {
	Purl    string // empty if unknown
	CPEs    []string
	Aliases []string
}

// LicenseFamily classifies a license expression into a coarse risk bucket.
type LicenseFamily int

// LicenseFamily values.
const (
	LicenseFamilyUnknown LicenseFamily = iota
	LicenseFamilyPermissive
	LicenseFamilyCopyleft
	LicenseFamilyWeakCopyleft
	LicenseFamilyPublicDomain
	LicenseFamilyProprietary
)

func (f LicenseFamily) String() string {
	switch f {
	case LicenseFamilyPermissive:
		return "Permissive"
	case LicenseFamilyCopyleft:
		return "Copyleft"
	case LicenseFamilyWeakCopyleft:
		return "WeakCopyleft"
	case LicenseFamilyPublicDomain:
		return "PublicDomain"
	case LicenseFamilyProprietary:
		return "Proprietary"
	default:
		return "Unknown"
	}
}

// LicenseExpression is a single SPDX (or SPDX-like) license expression
// together with its validity and risk-family classification.
type LicenseExpression struct {
	Text        string
	IsValidSpdx bool
	Family      LicenseFamily
}

// IsPermissive reports whether this expression resolves to the permissive
// family, accounting for OR/AND boolean structure (see license package).
// Public domain dedications are at least as permissive as a permissive
// license, so they count here too: an OR expression with one permissive
// branch and one public-domain branch must still report permissive.
func (l LicenseExpression) IsPermissive() bool {
	return l.Family == LicenseFamilyPermissive || l.Family == LicenseFamilyPublicDomain
}

// IsCopyleft reports whether this expression resolves to a (strong)
// copyleft family.
func (l LicenseExpression) IsCopyleft() bool { return l.Family == LicenseFamilyCopyleft }

// Licenses groups the declared and concluded license expressions of a
// Component.
type Licenses struct {
	Declared   []LicenseExpression
	Concluded  *LicenseExpression
}

// Organization is a supplier/manufacturer reference.
type Organization struct {
	Name string
	URLs []string
}

// Hash is an (algorithm, hex digest) pair. Unknown algorithm names are
// preserved verbatim in Algorithm.
type Hash struct {
	Algorithm string
	HexDigest string
}

// ExternalRefType is the closed set of external reference kinds, plus an
// open string for dialect-specific extensions.
type ExternalRefType struct {
	kind string
	raw  string
}

// External reference type constructors.
var (
	RefVCS           = ExternalRefType{kind: "vcs"}
	RefIssueTracker  = ExternalRefType{kind: "issue-tracker"}
	RefWebsite       = ExternalRefType{kind: "website"}
	RefAdvisories    = ExternalRefType{kind: "advisories"}
	RefBOM           = ExternalRefType{kind: "bom"}
	RefMailingList   = ExternalRefType{kind: "mailing-list"}
	RefSocial        = ExternalRefType{kind: "social"}
	RefChat          = ExternalRefType{kind: "chat"}
	RefDocumentation = ExternalRefType{kind: "documentation"}
	RefSupport       = ExternalRefType{kind: "support"}
	RefDistribution  = ExternalRefType{kind: "distribution"}
	RefLicense       = ExternalRefType{kind: "license"}
	RefBuildMeta     = ExternalRefType{kind: "build-meta"}
	RefBuildSystem   = ExternalRefType{kind: "build-system"}
	RefSecurityContact = ExternalRefType{kind: "security-contact"}
)

// OtherRefType wraps a dialect-specific external reference type string.
func OtherRefType(raw string) ExternalRefType { return ExternalRefType{kind: "other", raw: raw} }

func (t ExternalRefType) String() string {
	if t.kind == "other" {
		return t.raw
	}
	return t.kind
}

// ExternalRef is a single external reference attached to a component.
type ExternalRef struct {
	Type    ExternalRefType
	URL     string
	Comment string
}

// Property is a free-form name/value extension pair.
type Property struct {
	Name  string
	Value string
}

// VulnSource is the closed set of vulnerability identifier namespaces.
type VulnSource int

// VulnSource values.
const (
	VulnSourceOther VulnSource = iota
	VulnSourceCVE
	VulnSourceNVD
	VulnSourceGHSA
	VulnSourceOSV
	VulnSourceSnyk
)

func (s VulnSource) String() string {
	switch s {
	case VulnSourceCVE:
		return "CVE"
	case VulnSourceNVD:
		return "NVD"
	case VulnSourceGHSA:
		return "GHSA"
	case VulnSourceOSV:
		return "OSV"
	case VulnSourceSnyk:
		return "Snyk"
	default:
		return "Other"
	}
}

// Severity is the closed set of coarse severity buckets.
type Severity int

// Severity values, ordered from least to most severe.
const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	case SeverityLow:
		return "Low"
	default:
		return "None"
	}
}

// SeverityFromScore buckets a CVSS numeric score per the rules in spec §4.B:
// Critical >= 9.0, High >= 7.0, Medium >= 4.0, Low > 0, else None.
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// CvssScore carries one CVSS rating (vector or numeric-only).
type CvssScore struct {
	Version string // e.g. "3.1", "2.0"
	Vector  string
	Score   float64
}

// RemediationKind is the closed set of remediation types.
type RemediationKind int

// RemediationKind values.
const (
	RemediationUnknown RemediationKind = iota
	RemediationFix
	RemediationMitigation
	RemediationWorkaround
	RemediationNoFixPlanned
)

// Remediation describes how a vulnerability can be addressed.
type Remediation struct {
	Kind        RemediationKind
	Description string
	FixedVersion string
}

// VexStatus is the closed set of VEX exploitability statuses.
type VexStatus int

// VexStatus values.
const (
	VexStatusUnknown VexStatus = iota
	VexStatusNotAffected
	VexStatusAffected
	VexStatusFixed
	VexStatusUnderInvestigation
)

func (s VexStatus) String() string {
	switch s {
	case VexStatusNotAffected:
		return "not_affected"
	case VexStatusAffected:
		return "affected"
	case VexStatusFixed:
		return "fixed"
	case VexStatusUnderInvestigation:
		return "under_investigation"
	default:
		return "unknown"
	}
}

// KevInfo is the CISA KEV catalog payload attached to a VulnerabilityRef
// once it has been matched against the catalog.
type KevInfo struct {
	DateAdded           string
	DueDate             string
	KnownRansomwareUse  bool
	RequiredAction      string
	VendorProject       string
	Product             string
}

// VulnerabilityRef is a single vulnerability associated with a component.
type VulnerabilityRef struct {
	ID                string
	Source            VulnSource
	Severity          *Severity
	CvssScores        []CvssScore
	AffectedVersions  []string
	Remediation       *Remediation
	CWEs              []string
	Published         *time.Time
	Modified          *time.Time
	IsKev             bool
	KevInfo           *KevInfo
	VexStatus         *VexStatus
}

// StalenessLevel is the closed set of package-freshness buckets.
type StalenessLevel int

// StalenessLevel values.
const (
	StalenessUnknown StalenessLevel = iota
	StalenessFresh
	StalenessAging
	StalenessStale
	StalenessAbandoned
	StalenessDeprecated
	StalenessArchived
)

func (s StalenessLevel) String() string {
	switch s {
	case StalenessFresh:
		return "Fresh"
	case StalenessAging:
		return "Aging"
	case StalenessStale:
		return "Stale"
	case StalenessAbandoned:
		return "Abandoned"
	case StalenessDeprecated:
		return "Deprecated"
	case StalenessArchived:
		return "Archived"
	default:
		return "Unknown"
	}
}

// StalenessInfo is the payload the staleness enricher attaches to a
// Component.
type StalenessInfo struct {
	Level         StalenessLevel
	LastPublished *time.Time
	DaysSince     int
}

// EolInfo is the payload the EOL enricher attaches to a Component.
type EolInfo struct {
	Product     string
	Cycle       string
	EolDate     *time.Time
	IsEol       bool
	Latest      string
	Support     *time.Time
}

// Component is a single normalized software entity within a NormalizedSbom.
type Component struct {
	CanonicalID CanonicalId
	Name        string
	Version     string // empty if unknown
	Group       string // empty if unknown (namespace)

	ComponentType ComponentType
	Ecosystem     Ecosystem

	Identifiers Identifiers
	Licenses    Licenses
	Supplier    *Organization
	Hashes      []Hash
	ExternalRefs []ExternalRef
	Properties  []Property

	Vulnerabilities []VulnerabilityRef

	Staleness *StalenessInfo
	Eol       *EolInfo
	VexStatus *VexStatus
}

// EdgeKind is the closed set of dependency edge relationship kinds.
type EdgeKind int

// EdgeKind values.
const (
	EdgeDependsOn EdgeKind = iota
	EdgeContains
	EdgeDescribes
	EdgeOther
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeContains:
		return "CONTAINS"
	case EdgeDescribes:
		return "DESCRIBES"
	case EdgeOther:
		return "OTHER"
	default:
		return "DEPENDS_ON"
	}
}

// DependencyEdge is a directed edge in the component dependency graph.
type DependencyEdge struct {
	From CanonicalId
	To   CanonicalId
	Kind EdgeKind
}

// CreatorKind is the closed set of SBOM document creator kinds.
type CreatorKind int

// CreatorKind values.
const (
	CreatorUnknown CreatorKind = iota
	CreatorTool
	CreatorOrganization
	CreatorPerson
)

// Creator is a single document creator entry (tool, org, or person).
type Creator struct {
	Kind CreatorKind
	Name string
}

// DocumentMeta carries the document-level metadata of a NormalizedSbom.
type DocumentMeta struct {
	Format         string // e.g. "CycloneDX", "SPDX"
	FormatVersion  string // e.g. "1.5", "2.3"
	CreatedAt      *time.Time
	Creators       []Creator
	SerialNumber   string
	Name           string
	SecurityContact string
	DisclosureURL   string
	SupportEndDate  string
}

// NormalizedSbom is the canonical, format-agnostic in-memory representation
// every dialect parser produces.
type NormalizedSbom struct {
	Document DocumentMeta

	// order is the insertion order of canonical ids; components is the
	// lookup table. Kept separate so iteration order is preserved even
	// though map iteration in Go is randomized.
	order      []CanonicalId
	components map[CanonicalId]*Component

	Edges []DependencyEdge

	PrimaryComponentID CanonicalId // empty if unset

	contentHash      uint64
	contentHashValid bool

	// Collisions records canonical-id collisions encountered while
	// building this document (see idhash package).
	Collisions []Collision
}

// Collision records that two components attempted to claim the same
// CanonicalId, and which one was kept.
type Collision struct {
	ID      CanonicalId
	Kept    string // name@version of the kept component
	Dropped string // name@version of the dropped component
}

// New returns an empty NormalizedSbom ready for incremental construction by
// a parser.
func New(doc DocumentMeta) *NormalizedSbom {
	return &NormalizedSbom{
		Document:   doc,
		components: make(map[CanonicalId]*Component),
	}
}

// AddComponent inserts c under its CanonicalID, preserving insertion order.
// If a component already exists under the same id, the new entry replaces
// it only if it carries strictly more information (see idhash.MoreInformative);
// ties keep the first entry. Either way a Collision entry is appended when
// a prior entry existed.
func (s *NormalizedSbom) AddComponent(c *Component, moreInformative func(newC, old *Component) bool) {
	id := c.CanonicalID
	if prev, ok := s.components[id]; ok {
		kept := prev
		dropped := c
		if moreInformative != nil && moreInformative(c, prev) {
			kept = c
			dropped = prev
		}
		s.Collisions = append(s.Collisions, Collision{
			ID:      id,
			Kept:    kept.Name + "@" + kept.Version,
			Dropped: dropped.Name + "@" + dropped.Version,
		})
		s.components[id] = kept
		s.contentHashValid = false
		return
	}
	s.order = append(s.order, id)
	s.components[id] = c
	s.contentHashValid = false
}

// AddEdge appends a dependency edge. Both endpoints must already be present
// via AddComponent; callers are responsible for the invariant (validated by
// Validate).
func (s *NormalizedSbom) AddEdge(e DependencyEdge) {
	s.Edges = append(s.Edges, e)
	s.contentHashValid = false
}

// SetPrimaryComponent records the root-product pointer.
func (s *NormalizedSbom) SetPrimaryComponent(id CanonicalId) {
	s.PrimaryComponentID = id
	s.contentHashValid = false
}

// Lookup returns the component stored under id, if any.
func (s *NormalizedSbom) Lookup(id CanonicalId) (*Component, bool) {
	c, ok := s.components[id]
	return c, ok
}

// Components returns all components in stable insertion order.
func (s *NormalizedSbom) Components() []*Component {
	out := make([]*Component, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.components[id])
	}
	return out
}

// ComponentCount returns the number of distinct components.
func (s *NormalizedSbom) ComponentCount() int { return len(s.order) }

// VulnTotals returns the count of vulnerabilities across all components,
// bucketed by severity.
func (s *NormalizedSbom) VulnTotals() map[Severity]int {
	totals := make(map[Severity]int)
	for _, id := range s.order {
		for _, v := range s.components[id].Vulnerabilities {
			sev := SeverityNone
			if v.Severity != nil {
				sev = *v.Severity
			}
			totals[sev]++
		}
	}
	return totals
}

// Validate checks the structural invariants of §3: every edge endpoint and
// the primary component pointer must refer to a present component, and each
// canonical id must be unique (guaranteed by construction via AddComponent).
func (s *NormalizedSbom) Validate() error {
	for _, e := range s.Edges {
		if _, ok := s.components[e.From]; !ok {
			return &InvariantError{Msg: "edge references unknown component: " + string(e.From)}
		}
		if _, ok := s.components[e.To]; !ok {
			return &InvariantError{Msg: "edge references unknown component: " + string(e.To)}
		}
	}
	if s.PrimaryComponentID != "" {
		if _, ok := s.components[s.PrimaryComponentID]; !ok {
			return &InvariantError{Msg: "primary component id not present: " + string(s.PrimaryComponentID)}
		}
	}
	return nil
}

// InvariantError is returned by Validate when a structural invariant of §3
// is violated.
type InvariantError struct{ Msg string }

func (e *InvariantError) Error() string { return e.Msg }

// ContentHash returns the cached xxh3-class content digest, computing it on
// first access (or after a mutation). See the idhash package for how the
// digest is derived.
func (s *NormalizedSbom) ContentHash(compute func(*NormalizedSbom) uint64) uint64 {
	if s.contentHashValid {
		return s.contentHash
	}
	s.contentHash = compute(s)
	s.contentHashValid = true
	return s.contentHash
}
