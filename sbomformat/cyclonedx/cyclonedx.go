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

// Package cyclonedx parses CycloneDX 1.4-1.6 documents (JSON and XML) into
// the shared normalized model.
package cyclonedx

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	"github.com/tidwall/gjson"

	"github.com/sbomlens/sbomlens/idhash"
	"github.com/sbomlens/sbomlens/license"
	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomerr"
	"github.com/sbomlens/sbomlens/sbomformat"
)

// Parser implements sbomformat.Parser for CycloneDX documents.
type Parser struct{}

// New returns a CycloneDX parser.
func New() *Parser { return &Parser{} }

// FormatName implements sbomformat.Parser.
func (*Parser) FormatName() string { return "CycloneDX" }

// SupportedVersions implements sbomformat.Parser.
func (*Parser) SupportedVersions() []string { return []string{"1.4", "1.5", "1.6"} }

// Detect implements sbomformat.Parser. JSON documents are recognized by
// their bomFormat/specVersion fields; XML documents by their root element
// and namespace.
func (*Parser) Detect(text []byte) sbomformat.FormatDetection {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceNone}
	}

	if trimmed[0] == '{' {
		bomFormat := gjson.GetBytes(trimmed, "bomFormat").String()
		version := gjson.GetBytes(trimmed, "specVersion").String()
		switch {
		case bomFormat == "CycloneDX" && supportedVersion(version):
			return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceCertain, Variant: "JSON", Version: version}
		case bomFormat == "CycloneDX":
			return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceHigh, Variant: "JSON", Version: version,
				Warnings: []string{"unrecognized specVersion " + version}}
		case gjson.GetBytes(trimmed, "components").Exists() && gjson.GetBytes(trimmed, "specVersion").Exists():
			return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceMedium, Variant: "JSON"}
		default:
			return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceNone}
		}
	}

	if bytes.Contains(trimmed[:min(len(trimmed), 512)], []byte("cyclonedx")) && bytes.Contains(trimmed, []byte("<bom")) {
		version := extractXMLAttr(trimmed, "version")
		if supportedVersion(version) {
			return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceCertain, Variant: "XML", Version: version}
		}
		return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceHigh, Variant: "XML", Version: version}
	}

	return sbomformat.FormatDetection{Parser: "CycloneDX", Confidence: sbomformat.ConfidenceNone}
}

func supportedVersion(v string) bool {
	switch v {
	case "1.4", "1.5", "1.6":
		return true
	default:
		return false
	}
}

var xmlVersionAttr = regexp.MustCompile(`cyclonedx\.org/schema/bom/([0-9.]+)`)

func extractXMLAttr(text []byte, _ string) string {
	m := xmlVersionAttr.FindSubmatch(text)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// ParseString implements sbomformat.Parser.
func (p *Parser) ParseString(text []byte) (*model.NormalizedSbom, error) {
	return p.parse(text, bytes.TrimSpace(text)[0] != '{')
}

// ParseReader implements sbomformat.Parser. CycloneDX JSON decoding
// requires the whole document be in memory (the decoder builds a full BOM
// graph), so this still buffers the reader before dispatching.
func (p *Parser) ParseReader(r io.Reader) (*model.NormalizedSbom, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sbomerr.IO("reading CycloneDX input", "", err)
	}
	return p.ParseString(data)
}

func (p *Parser) parse(text []byte, isXML bool) (*model.NormalizedSbom, error) {
	format := cdx.BOMFileFormatJSON
	if isXML {
		format = cdx.BOMFileFormatXML
	}

	bom := new(cdx.BOM)
	decoder := cdx.NewBOMDecoder(bytes.NewReader(text), format)
	if err := decoder.Decode(bom); err != nil {
		kind := sbomerr.ParseInvalidJSON
		if isXML {
			kind = sbomerr.ParseInvalidXML
		}
		return nil, sbomerr.Parse(kind, "decoding CycloneDX document", err)
	}

	doc := model.DocumentMeta{
		Format:        "CycloneDX",
		FormatVersion: bomSpecVersion(bom),
		SerialNumber:  bom.SerialNumber,
	}
	if bom.Metadata != nil {
		if t, err := time.Parse(time.RFC3339, bom.Metadata.Timestamp); err == nil {
			doc.CreatedAt = &t
		}
		doc.Creators = parseTools(text, bom.Metadata)
	}

	sbom := model.New(doc)

	var primaryID model.CanonicalId
	if bom.Metadata != nil && bom.Metadata.Component != nil {
		primary := convertComponent(*bom.Metadata.Component)
		sbom.AddComponent(primary, idhash.MoreInformative)
		primaryID = primary.CanonicalID
		applyMetadataExternalRefs(&sbom.Document, bom.Metadata.Component)
		applySupportEndProperties(&sbom.Document, bom.Metadata.Component)
	}

	idByBomRef := make(map[string]model.CanonicalId)
	if bom.Components != nil {
		addComponentsRecursive(sbom, *bom.Components, idByBomRef)
	}

	if bom.Dependencies != nil {
		for _, dep := range *bom.Dependencies {
			from, ok := idByBomRef[dep.Ref]
			if !ok {
				continue
			}
			if dep.Dependencies == nil {
				continue
			}
			for _, toRef := range *dep.Dependencies {
				to, ok := idByBomRef[toRef]
				if !ok {
					continue
				}
				sbom.AddEdge(model.DependencyEdge{From: from, To: to, Kind: model.EdgeDependsOn})
			}
		}
	}

	if bom.Vulnerabilities != nil {
		applyVulnerabilities(sbom, *bom.Vulnerabilities, idByBomRef)
	}

	if primaryID != "" {
		sbom.SetPrimaryComponent(primaryID)
	}

	return sbom, nil
}

func bomSpecVersion(bom *cdx.BOM) string {
	switch bom.SpecVersion {
	case cdx.SpecVersion1_4:
		return "1.4"
	case cdx.SpecVersion1_5:
		return "1.5"
	case cdx.SpecVersion1_6:
		return "1.6"
	default:
		return bom.SpecVersion.String()
	}
}

// parseTools sniffs the raw metadata.tools shape with gjson since
// cyclonedx-go's ToolsChoice differs between the 1.4/1.5 "array of Tool"
// form and the 1.6 "object with components/services" form; reading the raw
// JSON directly handles both uniformly without depending on which shape
// the decoder normalized into.
func parseTools(raw []byte, meta *cdx.Metadata) []model.Creator {
	_ = meta
	var creators []model.Creator
	toolsNode := gjson.GetBytes(raw, "metadata.tools")
	if !toolsNode.Exists() {
		return nil
	}
	if toolsNode.IsArray() {
		for _, t := range toolsNode.Array() {
			creators = append(creators, toolCreator(t))
		}
		return creators
	}
	for _, t := range toolsNode.Get("components").Array() {
		creators = append(creators, toolCreator(t))
	}
	for _, t := range toolsNode.Get("services").Array() {
		creators = append(creators, toolCreator(t))
	}
	return creators
}

func toolCreator(t gjson.Result) model.Creator {
	name := t.Get("name").String()
	if v := t.Get("version").String(); v != "" {
		name = name + "@" + v
	}
	return model.Creator{Kind: model.CreatorTool, Name: name}
}

var supportEndPattern = regexp.MustCompile(`(?i)endofsupport|end-of-support|eol|supportend|support_end`)

func applySupportEndProperties(doc *model.DocumentMeta, c *cdx.Component) {
	if c.Properties == nil {
		return
	}
	for _, p := range *c.Properties {
		if supportEndPattern.MatchString(p.Name) {
			doc.SupportEndDate = p.Value
			return
		}
	}
}

func applyMetadataExternalRefs(doc *model.DocumentMeta, c *cdx.Component) {
	if c.ExternalReferences == nil {
		return
	}
	for _, ref := range *c.ExternalReferences {
		switch string(ref.Type) {
		case "security-contact":
			doc.SecurityContact = ref.URL
		case "advisories":
			if doc.DisclosureURL == "" {
				doc.DisclosureURL = ref.URL
			}
		}
	}
}

func addComponentsRecursive(sbom *model.NormalizedSbom, components []cdx.Component, idByBomRef map[string]model.CanonicalId) {
	for _, raw := range components {
		c := convertComponent(raw)
		sbom.AddComponent(c, idhash.MoreInformative)
		if raw.BOMRef != "" {
			idByBomRef[raw.BOMRef] = c.CanonicalID
		}
		if raw.Components != nil {
			addComponentsRecursive(sbom, *raw.Components, idByBomRef)
		}
	}
}

var componentTypes = map[cdx.ComponentType]model.ComponentType{
	cdx.ComponentTypeApplication: model.TypeApplication,
	cdx.ComponentTypeFramework:   model.TypeFramework,
	cdx.ComponentTypeLibrary:     model.TypeLibrary,
	cdx.ComponentTypeContainer:   model.TypeContainer,
	cdx.ComponentTypeOS:          model.TypeOS,
	cdx.ComponentTypeDevice:      model.TypeDevice,
	cdx.ComponentTypeFirmware:    model.TypeFirmware,
	cdx.ComponentTypeFile:        model.TypeFile,
	cdx.ComponentTypeData:        model.TypeData,
}

func convertComponentType(t cdx.ComponentType) model.ComponentType {
	if mapped, ok := componentTypes[t]; ok {
		return mapped
	}
	if string(t) == "machine-learning-model" {
		return model.TypeMLModel
	}
	return model.OtherType(string(t))
}

var hashAlgorithms = map[cdx.HashAlgorithm]string{
	cdx.HashAlgoMD5:    "MD5",
	cdx.HashAlgoSHA1:   "SHA-1",
	cdx.HashAlgoSHA256: "SHA-256",
	cdx.HashAlgoSHA384: "SHA-384",
	cdx.HashAlgoSHA512: "SHA-512",
}

func convertHashAlgorithm(a cdx.HashAlgorithm) string {
	if mapped, ok := hashAlgorithms[a]; ok {
		return mapped
	}
	return string(a)
}

func convertComponent(c cdx.Component) *model.Component {
	out := &model.Component{
		Name:          c.Name,
		Version:       c.Version,
		Group:         c.Group,
		ComponentType: convertComponentType(c.Type),
		Identifiers: model.Identifiers{
			Purl: c.PackageURL,
		},
	}
	if c.CPE != "" {
		out.Identifiers.CPEs = append(out.Identifiers.CPEs, c.CPE)
	}
	out.Ecosystem = purlEcosystem(c.PackageURL)

	if c.Licenses != nil {
		for _, lc := range *c.Licenses {
			out.Licenses.Declared = append(out.Licenses.Declared, licenseFromChoice(lc))
		}
	}
	if c.Supplier != nil {
		org := &model.Organization{Name: c.Supplier.Name}
		if c.Supplier.URL != nil {
			org.URLs = append(org.URLs, *c.Supplier.URL...)
		}
		out.Supplier = org
	}
	if c.Hashes != nil {
		for _, h := range *c.Hashes {
			out.Hashes = append(out.Hashes, model.Hash{
				Algorithm: convertHashAlgorithm(h.Algorithm),
				HexDigest: h.Value,
			})
		}
	}
	if c.ExternalReferences != nil {
		for _, ref := range *c.ExternalReferences {
			out.ExternalRefs = append(out.ExternalRefs, model.ExternalRef{
				Type:    externalRefType(string(ref.Type)),
				URL:     ref.URL,
				Comment: ref.Comment,
			})
		}
	}
	if c.Properties != nil {
		for _, p := range *c.Properties {
			out.Properties = append(out.Properties, model.Property{Name: p.Name, Value: p.Value})
		}
	}

	out.CanonicalID = idhash.ComponentID(out.Name, out.Version, out.Group, out.Ecosystem, out.Identifiers, c.BOMRef)
	return out
}

func licenseFromChoice(lc cdx.LicenseChoice) model.LicenseExpression {
	if lc.Expression != "" {
		return license.Parse(lc.Expression)
	}
	if lc.License != nil {
		if lc.License.ID != "" {
			return license.Parse(lc.License.ID)
		}
		return license.Parse(lc.License.Name)
	}
	return license.Parse("")
}

var refTypes = map[string]model.ExternalRefType{
	"vcs":               model.RefVCS,
	"issue-tracker":     model.RefIssueTracker,
	"website":           model.RefWebsite,
	"advisories":        model.RefAdvisories,
	"bom":               model.RefBOM,
	"mailing-list":      model.RefMailingList,
	"social":            model.RefSocial,
	"chat":              model.RefChat,
	"documentation":     model.RefDocumentation,
	"support":           model.RefSupport,
	"distribution":      model.RefDistribution,
	"license":           model.RefLicense,
	"build-meta":        model.RefBuildMeta,
	"build-system":      model.RefBuildSystem,
	"security-contact":  model.RefSecurityContact,
}

func externalRefType(raw string) model.ExternalRefType {
	if t, ok := refTypes[raw]; ok {
		return t
	}
	return model.OtherRefType(raw)
}

// purlEcosystem derives an ecosystem from a PURL type prefix, the same
// mapping the matching engine's ecosystem rules assume.
func purlEcosystem(purl string) model.Ecosystem {
	if purl == "" {
		return model.Ecosystem{}
	}
	const prefix = "pkg:"
	if !strings.HasPrefix(purl, prefix) {
		return model.Ecosystem{}
	}
	rest := purl[len(prefix):]
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		return model.Ecosystem{}
	}
	switch strings.ToLower(rest[:end]) {
	case "npm":
		return model.EcosystemNpm
	case "pypi":
		return model.EcosystemPyPI
	case "cargo":
		return model.EcosystemCargo
	case "maven":
		return model.EcosystemMaven
	case "golang":
		return model.EcosystemGo
	case "nuget":
		return model.EcosystemNuGet
	case "gem":
		return model.EcosystemRubyGems
	case "composer":
		return model.EcosystemPackagist
	case "cocoapods":
		return model.EcosystemCocoapods
	case "swift":
		return model.EcosystemSwift
	case "hex":
		return model.EcosystemHex
	case "pub":
		return model.EcosystemPub
	case "hackage":
		return model.EcosystemHackage
	case "cran":
		return model.EcosystemCRAN
	case "conda":
		return model.EcosystemConda
	case "conan":
		return model.EcosystemConan
	case "deb":
		return model.EcosystemDebian
	case "rpm":
		return model.EcosystemRPM
	case "apk":
		return model.EcosystemAlpine
	default:
		return model.OtherEcosystem(rest[:end])
	}
}

func applyVulnerabilities(sbom *model.NormalizedSbom, vulns []cdx.Vulnerability, idByBomRef map[string]model.CanonicalId) {
	for _, v := range vulns {
		ref := convertVulnerability(v)
		if v.Affects == nil {
			continue
		}
		for _, affects := range *v.Affects {
			id, ok := idByBomRef[affects.Ref]
			if !ok {
				continue
			}
			c, ok := sbom.Lookup(id)
			if !ok {
				continue
			}
			c.Vulnerabilities = append(c.Vulnerabilities, ref)
		}
	}
}

func convertVulnerability(v cdx.Vulnerability) model.VulnerabilityRef {
	ref := model.VulnerabilityRef{ID: v.ID, Source: vulnSource(v.ID)}

	if v.CWEs != nil {
		for _, cwe := range *v.CWEs {
			ref.CWEs = append(ref.CWEs, "CWE-"+strconv.Itoa(cwe))
		}
	}
	if v.Ratings != nil {
		for _, r := range *v.Ratings {
			score := ratingScore(r)
			ref.CvssScores = append(ref.CvssScores, score)
		}
		if sev := severityFromRatings(*v.Ratings); sev != nil {
			ref.Severity = sev
		}
	}
	if ref.Severity == nil && len(ref.CvssScores) > 0 {
		best := ref.CvssScores[0].Score
		for _, s := range ref.CvssScores[1:] {
			if s.Score > best {
				best = s.Score
			}
		}
		bucket := model.SeverityFromScore(best)
		ref.Severity = &bucket
	}
	if v.Recommendation != "" {
		ref.Remediation = &model.Remediation{Kind: model.RemediationFix, Description: v.Recommendation}
	}
	if t, err := time.Parse(time.RFC3339, v.Published); err == nil {
		ref.Published = &t
	}
	if t, err := time.Parse(time.RFC3339, v.Updated); err == nil {
		ref.Modified = &t
	}
	return ref
}

func vulnSource(id string) model.VulnSource {
	switch {
	case strings.HasPrefix(id, "CVE-"):
		return model.VulnSourceCVE
	case strings.HasPrefix(id, "GHSA-"):
		return model.VulnSourceGHSA
	default:
		return model.VulnSourceOther
	}
}

func ratingScore(r cdx.VulnerabilityRating) model.CvssScore {
	score := model.CvssScore{Vector: r.Vector}
	if r.Score != nil {
		score.Score = *r.Score
	}
	switch r.Method {
	case cdx.ScoringMethodCVSS2:
		score.Version = "2.0"
		if score.Score == 0 && r.Vector != "" {
			if vec, err := gocvss20.ParseVector(r.Vector); err == nil {
				score.Score = vec.BaseScore()
			}
		}
	case cdx.ScoringMethodCVSS3:
		score.Version = "3.0"
		if score.Score == 0 && r.Vector != "" {
			if vec, err := gocvss30.ParseVector(r.Vector); err == nil {
				score.Score = vec.BaseScore()
			}
		}
	case cdx.ScoringMethodCVSS31:
		score.Version = "3.1"
		if score.Score == 0 && r.Vector != "" {
			if vec, err := gocvss31.ParseVector(r.Vector); err == nil {
				score.Score = vec.BaseScore()
			}
		}
	case cdx.ScoringMethodCVSS4:
		score.Version = "4.0"
	}
	return score
}

func severityFromRatings(ratings []cdx.VulnerabilityRating) *model.Severity {
	for _, r := range ratings {
		var sev model.Severity
		switch r.Severity {
		case cdx.SeverityCritical:
			sev = model.SeverityCritical
		case cdx.SeverityHigh:
			sev = model.SeverityHigh
		case cdx.SeverityMedium:
			sev = model.SeverityMedium
		case cdx.SeverityLow, cdx.SeverityInfo:
			sev = model.SeverityLow
		case cdx.SeverityNone:
			sev = model.SeverityNone
		default:
			continue
		}
		return &sev
	}
	return nil
}
